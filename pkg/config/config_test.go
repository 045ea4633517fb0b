package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"anchorage/pkg/chunker"
	"anchorage/pkg/core"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newViper 在空目录里初始化，避免读到开发机上的配置文件
func newViper(t *testing.T, cfgFile string) *viper.Viper {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	v := viper.New()
	require.NoError(t, Init(v, cfgFile))
	return v
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 4444, cfg.Port)
	assert.Equal(t, ":4444", cfg.Addr())
	assert.Equal(t, int64(14*1024*1024), cfg.BodyLimit)
	assert.Equal(t, StorageLocal, cfg.Storage.Type)
	assert.NotEmpty(t, cfg.Storage.Directory)
	assert.Equal(t, NodeStoreLocal, cfg.Node.Store)
	assert.Equal(t, core.IDModeRandom, cfg.Node.IDMode)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.Empty(t, cfg.Redis.RedisURL)
	assert.Equal(t, "http://localhost:4444", cfg.Remote)
	assert.Equal(t, 4, cfg.IngestConcurrency)

	// 切块参数与内置默认值一致
	assert.Equal(t, chunker.DefaultConfig(), cfg.Chunker)
}

func TestInit_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anchoraged.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 5555
storage:
  type: local
  directory: /srv/anchorage
node:
  id_mode: content
chunker:
  min_size: 1KiB
  max_size: 8KiB
  window_size: 64
  boundary: buzhash
`), 0o644))

	cfg, err := Parse(newViper(t, path))
	require.NoError(t, err)

	assert.Equal(t, 5555, cfg.Port)
	assert.Equal(t, "/srv/anchorage", cfg.Storage.Directory)
	assert.Equal(t, core.IDModeContent, cfg.Node.IDMode)
	assert.Equal(t, 1024, cfg.Chunker.MinSize)
	assert.Equal(t, 8192, cfg.Chunker.MaxSize)
	assert.Equal(t, 64, cfg.Chunker.WindowSize)
	assert.Equal(t, chunker.BoundaryBuzhash, cfg.Chunker.Boundary)
	assert.Equal(t, uint64(500000), cfg.Chunker.Target, "未配置的键保留默认值")
}

// 旧版服务端配置里存储类型写作 "Local"
func TestInit_LegacyServerConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anchoraged.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 4444
storage:
  type: Local
  directory: /var/lib/anchorage
`), 0o644))

	cfg, err := Parse(newViper(t, path))
	require.NoError(t, err)

	assert.Equal(t, 4444, cfg.Port)
	assert.Equal(t, StorageLocal, cfg.Storage.Type)
	assert.Equal(t, "/var/lib/anchorage", cfg.Storage.Directory)
}

func TestParse_CaseInsensitiveKinds(t *testing.T) {
	v := newViper(t, "")
	v.Set("storage.type", "S3")
	v.Set("node.store", "SQL")

	cfg, err := Parse(v)
	require.NoError(t, err)
	assert.Equal(t, StorageS3, cfg.Storage.Type)
	assert.Equal(t, NodeStoreSQL, cfg.Node.Store)
}

func TestParse_BodyLimitFitsMaxChunk(t *testing.T) {
	v := newViper(t, "")
	v.Set("chunker.max_size", "12MiB")
	v.Set("server.body_limit", "17MiB")

	cfg, err := Parse(v)
	require.NoError(t, err)
	assert.Equal(t, 12*1024*1024, cfg.Chunker.MaxSize)
}

func TestInit_SearchPath(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.MkdirAll(".anchorage", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(".anchorage", "config.yaml"), []byte("port: 6000\n"), 0o644))

	v := viper.New()
	require.NoError(t, Init(v, ""))
	cfg, err := Parse(v)
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Port)
}

func TestInit_EnvOverrides(t *testing.T) {
	t.Setenv("ANC_PORT", "7777")
	t.Setenv("ANC_STORAGE_DIRECTORY", "/from/env")
	t.Setenv("ANC_CHUNKER_MIN_SIZE", "4MiB")

	cfg, err := Parse(newViper(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Port)
	assert.Equal(t, "/from/env", cfg.Storage.Directory)
	assert.Equal(t, 4*1024*1024, cfg.Chunker.MinSize)
}

func TestInit_BrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [unterminated\n"), 0o644))

	v := viper.New()
	err := Init(v, path)
	assert.ErrorContains(t, err, "fatal error config file")
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		key, value, msg string
	}{
		{"port", "0", "invalid port"},
		{"server.body_limit", "lots", "invalid server.body_limit"},
		{"redis.ttl", "forever", "invalid redis.ttl"},
		{"node.id_mode", "sequential", "invalid node.id_mode"},
		{"chunker.boundary", "rabin", "unknown boundary"},
		{"chunker.max_size", "1KiB", "below min size"},
		{"chunker.max_size", "12MiB", "exceeds server.body_limit"},
		{"server.body_limit", "1MiB", "exceeds server.body_limit"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			v := newViper(t, "")
			v.Set(tc.key, tc.value)
			_, err := Parse(v)
			assert.ErrorContains(t, err, tc.msg)
		})
	}
}

func TestSetupLogging(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	require.NoError(t, SetupLogging(&buf, LogConfig{Level: "warn", Format: "json"}))
	slog.Info("hidden")
	slog.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	assert.Error(t, SetupLogging(&buf, LogConfig{Level: "loud"}))
	assert.Error(t, SetupLogging(&buf, LogConfig{Level: "info", Format: "xml"}))
}

package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestImportExport(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ANC_CHUNKER_MIN_SIZE", "512")
	t.Setenv("ANC_CHUNKER_MAX_SIZE", "2KiB")
	t.Setenv("ANC_CHUNKER_WINDOW_SIZE", "16")
	t.Setenv("ANC_LOG_LEVEL", "error")

	storeDir := filepath.Join(t.TempDir(), "store")
	content := bytes.Repeat([]byte("a long-expected party "), 1000)
	require.NoError(t, os.WriteFile("party.txt", content, 0o644))

	// 1. import 直接写入本地存储
	out, err := run(t, "--storage-dir", storeDir, "import", "party.txt")
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 2)
	nodeID := fields[0]
	assert.Equal(t, "party.txt", fields[1])

	// 2. Blob 与 Node 平铺在同一目录
	entries, err := os.ReadDir(storeDir)
	require.NoError(t, err)
	var blobs, nodes int
	for _, e := range entries {
		switch {
		case strings.HasPrefix(e.Name(), "blob-"):
			blobs++
		case strings.HasPrefix(e.Name(), "node-"):
			nodes++
		}
	}
	assert.Greater(t, blobs, 1)
	assert.Equal(t, 1, nodes)

	// 3. export 还原
	_, err = run(t, "--storage-dir", storeDir, "export", nodeID, "restored.txt")
	require.NoError(t, err)
	restored, err := os.ReadFile("restored.txt")
	require.NoError(t, err)
	assert.Equal(t, content, restored)
}

func TestExport_UnknownNode(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ANC_LOG_LEVEL", "error")

	_, err := run(t, "--storage-dir", t.TempDir(), "export", strings.Repeat("ab", 32))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NotFound")
}

func TestInvalidStorageType(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	_, err := run(t, "--storage-dir", t.TempDir(), "--storage-type", "tape", "export", strings.Repeat("ab", 32))
	assert.ErrorContains(t, err, "unsupported storage type")

	// flag 值在全局命令上保留，恢复默认
	require.NoError(t, rootCmd.PersistentFlags().Set("storage-type", "local"))
}

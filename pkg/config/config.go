// Package config 读取 Viper 配置并转换为类型化的 Config
package config

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"anchorage/pkg/chunker"
	"anchorage/pkg/core"
	"anchorage/pkg/meta"
	"anchorage/pkg/storage/cache"
	"anchorage/pkg/storage/s3"

	units "github.com/docker/go-units"
	"github.com/spf13/viper"
)

var envReplacer = strings.NewReplacer(".", "_")

const (
	StorageLocal = "local"
	StorageS3    = "s3"

	NodeStoreLocal = "local"
	NodeStoreSQL   = "sql"
)

// blobEnvelope 是 POST /blob 请求体中 JSON 包装的余量
const blobEnvelope = 64

type Config struct {
	Port      int
	BodyLimit int64

	Log LogConfig

	Storage StorageConfig
	S3      s3.Config
	Redis   cache.Config

	Node     NodeConfig
	Database meta.Config

	Chunker chunker.Config

	Remote            string
	IngestConcurrency int
}

type LogConfig struct {
	Level  string
	Format string
}

type StorageConfig struct {
	Type      string // "local" | "s3"
	Directory string
}

type NodeConfig struct {
	Store  string // "local" | "sql"
	IDMode core.IDMode
}

// Addr 返回监听地址
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// Parse 从 Viper 中读取并校验所有配置项
func Parse(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:   v.GetInt("port"),
		Remote: strings.TrimRight(v.GetString("remote"), "/"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Storage: StorageConfig{
			Type:      strings.ToLower(v.GetString("storage.type")),
			Directory: v.GetString("storage.directory"),
		},
		S3: s3.Config{
			Endpoint:        v.GetString("s3.endpoint"),
			Region:          v.GetString("s3.region"),
			Bucket:          v.GetString("s3.bucket"),
			Prefix:          v.GetString("s3.prefix"),
			AccessKeyID:     v.GetString("s3.access_key_id"),
			SecretAccessKey: v.GetString("s3.secret_access_key"),
		},
		Redis: cache.Config{
			RedisURL: v.GetString("redis.url"),
		},
		Database: meta.Config{
			Driver:   v.GetString("database.driver"),
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
			Path:     v.GetString("database.path"),
		},
		IngestConcurrency: v.GetInt("ingest.concurrency"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}

	// 1. 大小类配置接受 "14MiB" 这样的写法
	limit, err := parseSize(v, "server.body_limit")
	if err != nil {
		return nil, err
	}
	cfg.BodyLimit = limit

	ttl, err := time.ParseDuration(v.GetString("redis.ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid redis.ttl: %w", err)
	}
	cfg.Redis.TTL = ttl

	// 2. Node
	mode, err := core.ParseIDMode(v.GetString("node.id_mode"))
	if err != nil {
		return nil, fmt.Errorf("invalid node.id_mode: %w", err)
	}
	cfg.Node = NodeConfig{Store: strings.ToLower(v.GetString("node.store")), IDMode: mode}

	// 3. Chunker
	cc, err := parseChunker(v)
	if err != nil {
		return nil, err
	}
	cfg.Chunker = cc

	// 最大块经 Base64 编码后必须能通过请求体限制
	if need := int64(base64.RawStdEncoding.EncodedLen(cc.MaxSize)) + blobEnvelope; need > cfg.BodyLimit {
		return nil, fmt.Errorf("chunker.max_size %d needs a %d byte request body, exceeds server.body_limit %d",
			cc.MaxSize, need, cfg.BodyLimit)
	}

	return cfg, nil
}

func parseChunker(v *viper.Viper) (chunker.Config, error) {
	var cc chunker.Config

	minSize, err := parseSize(v, "chunker.min_size")
	if err != nil {
		return cc, err
	}
	maxSize, err := parseSize(v, "chunker.max_size")
	if err != nil {
		return cc, err
	}
	window, err := parseSize(v, "chunker.window_size")
	if err != nil {
		return cc, err
	}
	boundary, err := chunker.ParseBoundary(v.GetString("chunker.boundary"))
	if err != nil {
		return cc, err
	}

	cc = chunker.Config{
		MinSize:    int(minSize),
		MaxSize:    int(maxSize),
		WindowSize: int(window),
		Target:     v.GetUint64("chunker.target"),
		Boundary:   boundary,
	}
	if err := cc.Validate(); err != nil {
		return cc, err
	}
	return cc, nil
}

// parseSize 解析二进制单位的大小 ("4KiB", "2MiB", 也接受纯数字)
func parseSize(v *viper.Viper, key string) (int64, error) {
	raw := v.GetString(key)
	n, err := units.RAMInBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return n, nil
}

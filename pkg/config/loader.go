package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀：ANC_STORAGE_DIRECTORY 对应 storage.directory
const EnvPrefix = "ANC"

// Load 初始化全局 Viper 并返回类型化的配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) (*Config, error) {
	if err := Init(viper.GetViper(), cfgFile); err != nil {
		return nil, err
	}
	return Parse(viper.GetViper())
}

// Init 设置默认值、搜索路径和环境变量，然后读取配置文件
func Init(v *viper.Viper, cfgFile string) error {
	// 1. 设置默认值 (Defaults)
	SetDefaults(v)

	// 2. 配置搜索路径
	if cfgFile != "" {
		// 如果用户指定了文件，直接使用
		v.SetConfigFile(cfgFile)
	} else {
		// 搜索顺序：当前目录 -> ./.anchorage -> ~/.anchorage
		v.AddConfigPath(".")
		v.AddConfigPath(".anchorage")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".anchorage"))
		}

		v.SetConfigType("yaml")
		v.SetConfigName("config") // 找 config.yaml
	}

	// 3. 读取环境变量 (ANC_PORT 等)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	// 4. 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 没找到配置文件不算错，默认值和环境变量仍然有效
		// 但配置文件格式错就是错
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Debug("no config file found, using defaults/env vars")
			return nil
		}
		return fmt.Errorf("fatal error config file: %w", err)
	}

	slog.Debug("using config file", "path", v.ConfigFileUsed())
	return nil
}

// SetDefaults 写入所有键的默认值
// 每个键都必须有默认值，AutomaticEnv 才能在 Unmarshal 时看到它
func SetDefaults(v *viper.Viper) {
	// 服务端
	v.SetDefault("port", 4444)
	v.SetDefault("server.body_limit", "14MiB")

	// 日志
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Blob 存储
	wd, _ := os.Getwd()
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.directory", filepath.Join(wd, ".anchorage", "data"))

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")

	// Redis 存在性缓存，url 为空时不启用
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.ttl", "24h")

	// Node 存储
	v.SetDefault("node.store", "local")
	v.SetDefault("node.id_mode", "random")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "anchorage")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "")

	// 切块
	v.SetDefault("chunker.min_size", "2MiB")
	v.SetDefault("chunker.max_size", "10MiB")
	v.SetDefault("chunker.window_size", "4KiB")
	v.SetDefault("chunker.target", 500000)
	v.SetDefault("chunker.boundary", "sum")

	// 客户端
	v.SetDefault("remote", "http://localhost:4444")
	v.SetDefault("ingest.concurrency", 4)
}

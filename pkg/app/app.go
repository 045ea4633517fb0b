// Package app 根据配置组装存储、服务和传输层
package app

import (
	"context"
	"fmt"
	"log/slog"

	"anchorage/pkg/chunker"
	"anchorage/pkg/config"
	"anchorage/pkg/meta"
	"anchorage/pkg/metrics"
	"anchorage/pkg/server"
	"anchorage/pkg/service"
	"anchorage/pkg/storage"
	"anchorage/pkg/storage/cache"
	"anchorage/pkg/storage/disk"
	"anchorage/pkg/storage/s3"
)

// App 是整个服务端的依赖容器 (Dependency Container)
// 它持有所有“单例”服务
type App struct {
	Config *config.Config

	BlobStore storage.BlobStore
	NodeStore storage.NodeStore

	Blobs   *service.BlobService
	Nodes   *service.NodeService
	Metrics *metrics.Metrics
	Chunker *chunker.Chunker

	closers []func() error
}

// NewApp 是工厂函数，负责组装这一台机器
// 它只依赖类型化的 Config，不知道具体的 CLI 命令
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics.New()}

	// 1. Blob 存储
	blobs, local, err := initStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init blob store: %w", err)
	}
	a.BlobStore = blobs

	// 2. Node 存储
	nodes, err := a.initNodeStore(ctx, cfg, local)
	if err != nil {
		return nil, fmt.Errorf("failed to init node store: %w", err)
	}
	a.NodeStore = nodes

	// 3. 切块器
	c, err := chunker.NewChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	a.Chunker = c

	// 4. 服务层
	a.Blobs = service.NewBlobService(a.BlobStore, a.Metrics)
	a.Nodes = service.NewNodeService(a.NodeStore, cfg.Node.IDMode, a.Metrics)

	slog.Info("✅ anchorage initialized",
		"storage", cfg.Storage.Type,
		"node_store", cfg.Node.Store,
		"node_id_mode", cfg.Node.IDMode,
		"redis_cache", cfg.Redis.RedisURL != "",
	)
	return a, nil
}

// initStore 根据 storage.type 选择 Blob 后端，配置了 redis.url 时再包一层缓存
// 返回的 *disk.Adapter 只有 local 模式下非 nil，Node 存储可以共用同一目录
func initStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, *disk.Adapter, error) {
	var (
		store storage.BlobStore
		local *disk.Adapter
	)

	switch cfg.Storage.Type {
	case config.StorageLocal, "":
		d, err := disk.NewAdapter(cfg.Storage.Directory)
		if err != nil {
			return nil, nil, err
		}
		store, local = d, d

	case config.StorageS3:
		s, err := s3.NewAdapter(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}
		store = s

	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	if cfg.Redis.RedisURL == "" {
		return store, local, nil
	}

	cached, err := cache.NewCachedStore(store, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return cached, local, nil
}

func (a *App) initNodeStore(ctx context.Context, cfg *config.Config, local *disk.Adapter) (storage.NodeStore, error) {
	switch cfg.Node.Store {
	case config.NodeStoreLocal, "":
		if local != nil {
			return local.Nodes(), nil
		}
		// Blob 在 S3 上时，Node 仍然落在本地目录
		d, err := disk.NewAdapter(cfg.Storage.Directory)
		if err != nil {
			return nil, err
		}
		return d.Nodes(), nil

	case config.NodeStoreSQL:
		db, err := meta.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return meta.NewRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported node store: %s", cfg.Node.Store)
	}
}

// Server 构造 HTTP 传输层
func (a *App) Server() *server.Server {
	return server.New(a.Blobs, a.Nodes, a.Metrics, server.Options{BodyLimit: a.Config.BodyLimit})
}

// Local 返回进程内的读写端，供 import / export 命令使用
func (a *App) Local(op string) *service.Local {
	return service.NewLocal(a.Blobs, a.Nodes, op)
}

// Close 释放数据库连接等资源
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

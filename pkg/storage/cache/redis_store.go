package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"anchorage/pkg/storage"
	"anchorage/pkg/types"

	"github.com/redis/go-redis/v9"
)

var (
	_ storage.BlobStore = (*CachedStore)(nil)
	_ storage.Exister   = (*CachedStore)(nil)
)

// CachedStore 是一个装饰器，为底层 BlobStore 加一层 Redis 存在性缓存
// 只缓存“是否存在”，不缓存 Blob 内容
type CachedStore struct {
	backend storage.BlobStore
	client  *redis.Client
	ttl     time.Duration
}

type Config struct {
	RedisURL string        // redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 过期时间
}

func NewCachedStore(backend storage.BlobStore, cfg Config) (*CachedStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newCachedStore(backend, client, cfg.TTL), nil
}

func newCachedStore(backend storage.BlobStore, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{backend: backend, client: client, ttl: ttl}
}

// cacheKey 生成 Redis Key，添加前缀防止冲突
func (s *CachedStore) cacheKey(id types.Hash) string {
	return "anc:blob:" + string(id)
}

// Has 优先查 Redis；Redis 故障时退化为直接查后端
func (s *CachedStore) Has(ctx context.Context, id types.Hash) (bool, error) {
	key := s.cacheKey(id)

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		slog.Warn("redis exists failed, falling back to backend", slog.String("key", key), slog.Any("err", err))
	} else if val > 0 {
		return true, nil
	}

	// 缓存未命中，查底层存储 (后端不支持 Has 时视为不存在，交给后端 Put 自己去重)
	ex, ok := s.backend.(storage.Exister)
	if !ok {
		return false, nil
	}
	found, err := ex.Has(ctx, id)
	if err != nil {
		return false, err
	}

	// 缓存回填：异步写入，不阻塞主流程
	if found {
		go func() {
			fillCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.client.Set(fillCtx, key, "1", s.ttl)
		}()
	}

	return found, nil
}

// Put 利用 Has 的缓存能力预检，命中则直接返回
func (s *CachedStore) Put(ctx context.Context, id types.Hash, data []byte) error {
	exists, err := s.Has(ctx, id)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := s.backend.Put(ctx, id, data); err != nil {
		return err
	}

	// 只有后端写成功才写缓存，Set 失败不影响主流程
	if err := s.client.Set(ctx, s.cacheKey(id), "1", s.ttl).Err(); err != nil {
		slog.Warn("redis set failed", slog.String("id", id.Short()), slog.Any("err", err))
	}
	return nil
}

// Get 透传
func (s *CachedStore) Get(ctx context.Context, id types.Hash) ([]byte, error) {
	return s.backend.Get(ctx, id)
}

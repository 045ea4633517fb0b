package storage

import (
	"context"
	"errors"
	"fmt"

	"anchorage/pkg/core"
	"anchorage/pkg/types"
)

var (
	ErrNotFound = errors.New("object not found")
)

// IOError 包装后端的任意 IO 失败 (权限、读写错误、网络等)
type IOError struct {
	Op  string // "get" / "put" / "has"
	Key string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// BlobStore 按内容摘要存取 Blob 字节
// 实现可以是本地磁盘、S3 或带缓存的装饰器
type BlobStore interface {
	// Put 幂等：同一个 id 已存在时直接返回成功，不覆盖也不比较内容
	Put(ctx context.Context, id types.Hash, data []byte) error

	// Get 返回完整字节的一份拷贝；不存在时返回 ErrNotFound
	Get(ctx context.Context, id types.Hash) ([]byte, error)
}

// Exister 是可选能力：不读内容就能判断 Blob 是否存在 (缓存层用它去重)
type Exister interface {
	Has(ctx context.Context, id types.Hash) (bool, error)
}

// NodeStore 按 Node ID 存取 Node 元数据
// 错误直接使用 apperr：不存在为 NotFound，序列化或 IO 失败为 Internal
type NodeStore interface {
	Put(ctx context.Context, id types.Hash, node *core.Node) error
	Get(ctx context.Context, id types.Hash) (*core.Node, error)
}

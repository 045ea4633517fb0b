package disk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"anchorage/pkg/apperr"
	"anchorage/pkg/core"
	"anchorage/pkg/storage"
	"anchorage/pkg/types"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

var (
	_ storage.BlobStore = (*Adapter)(nil)
	_ storage.NodeStore = (*NodeAdapter)(nil)
	_ storage.Exister   = (*Adapter)(nil)
)

// Adapter 是本地目录后端，Blob 和 Node 共享同一个目录:
//
//	root/blob-<sha256>
//	root/node-<id>
type Adapter struct {
	fs       afero.Fs
	rootPath string

	// 同一个 key 的并发 Put 合并为一次执行
	inflight singleflight.Group
}

// NewAdapter 创建一个新的磁盘存储适配器
func NewAdapter(root string) (*Adapter, error) {
	return NewAdapterFs(afero.NewOsFs(), root)
}

// NewAdapterFs 允许注入文件系统 (测试用 afero.NewMemMapFs)
func NewAdapterFs(fs afero.Fs, root string) (*Adapter, error) {
	// 确保根目录存在
	if err := fs.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage dir: %w", err)
	}
	return &Adapter{fs: fs, rootPath: root}, nil
}

// Nodes 返回共享同一目录的 NodeStore 视图
func (s *Adapter) Nodes() *NodeAdapter {
	return &NodeAdapter{a: s}
}

func (s *Adapter) layout(key string) string {
	return filepath.Join(s.rootPath, key)
}

// writeOnce 保证同一个 key 的“存在性检查 + 写入”是串行的
// 不同 key 之间互不阻塞
func (s *Adapter) writeOnce(key string, data []byte) error {
	_, err, _ := s.inflight.Do(key, func() (any, error) {
		targetPath := s.layout(key)

		// 1. 检查是否存在 (幂等性)
		if _, err := s.fs.Stat(targetPath); err == nil {
			return nil, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}

		// 2. 原子写入：先写临时文件再 Rename
		// 这样保证要么文件不存在，要么文件是完整的
		tempFile, err := afero.TempFile(s.fs, s.rootPath, ".tmp-*")
		if err != nil {
			return nil, err
		}
		tempName := tempFile.Name()
		defer s.fs.Remove(tempName) // Rename 成功后这里是无害的

		if _, err := tempFile.Write(data); err != nil {
			tempFile.Close()
			return nil, err
		}
		if err := tempFile.Close(); err != nil {
			return nil, err
		}

		// 3. 移动到最终位置
		return nil, s.fs.Rename(tempName, targetPath)
	})
	return err
}

func (s *Adapter) readAll(key string) ([]byte, error) {
	// afero.ReadFile 每次返回新切片，调用方拿到的是自己的拷贝
	return afero.ReadFile(s.fs, s.layout(key))
}

// Put 写入 Blob；已存在时直接返回
func (s *Adapter) Put(ctx context.Context, id types.Hash, data []byte) error {
	key := core.BlobKey(id)
	if err := s.writeOnce(key, data); err != nil {
		return &storage.IOError{Op: "put", Key: key, Err: err}
	}
	return nil
}

func (s *Adapter) Get(ctx context.Context, id types.Hash) ([]byte, error) {
	key := core.BlobKey(id)
	data, err := s.readAll(key)
	if errors.Is(err, os.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, &storage.IOError{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

func (s *Adapter) Has(ctx context.Context, id types.Hash) (bool, error) {
	key := core.BlobKey(id)
	_, err := s.fs.Stat(s.layout(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, &storage.IOError{Op: "has", Key: key, Err: err}
}

// NodeAdapter 把 Node 以 YAML 形式存到同一个目录，便于人工查看
type NodeAdapter struct {
	a *Adapter
}

func (n *NodeAdapter) Put(ctx context.Context, id types.Hash, node *core.Node) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return apperr.Wrap(err, "failed to serialize node", apperr.Internal).WithOp("disk.PutNode")
	}
	if err := n.a.writeOnce(core.NodeKey(id), data); err != nil {
		return apperr.Wrap(err, "failed to write node", apperr.Internal).WithOp("disk.PutNode")
	}
	return nil
}

func (n *NodeAdapter) Get(ctx context.Context, id types.Hash) (*core.Node, error) {
	data, err := n.a.readAll(core.NodeKey(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.Newf(apperr.NotFound, "node %s not found", id).WithOp("disk.GetNode")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to read node", apperr.Internal).WithOp("disk.GetNode")
	}

	var node core.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, apperr.Wrap(err, "failed to parse node", apperr.Internal).WithOp("disk.GetNode")
	}
	return &node, nil
}

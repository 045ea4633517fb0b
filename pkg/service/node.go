package service

import (
	"context"
	"errors"
	"log/slog"

	"anchorage/pkg/apperr"
	"anchorage/pkg/core"
	"anchorage/pkg/metrics"
	"anchorage/pkg/storage"
	"anchorage/pkg/types"
)

// NodeService 实现 Node 的创建与查询
type NodeService struct {
	store   storage.NodeStore
	mode    core.IDMode
	metrics *metrics.Metrics
}

func NewNodeService(store storage.NodeStore, mode core.IDMode, m *metrics.Metrics) *NodeService {
	return &NodeService{store: store, mode: mode, metrics: m}
}

// CreateNode 校验类型和 Blob 列表，生成 ID 并持久化
// Blob 是否真实存在不在这里检查
func (s *NodeService) CreateNode(ctx context.Context, rc RequestContext, nodeType string, blobs []string) (*core.Node, error) {
	// 1. 类型
	t, err := core.ParseNodeType(nodeType)
	if err != nil {
		return nil, apperr.Wrap(err, "invalid node type", apperr.BadRequest).
			WithOp(rc.Op).WithUser(rc.User)
	}

	// 2. Blob 列表 (允许带 "blob-" 前缀)
	hashes := make([]types.Hash, len(blobs))
	for i, b := range blobs {
		hashes[i] = core.TrimBlobKey(b)
	}

	node, err := core.NewNode(s.mode, t, hashes)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to derive node id", apperr.Internal).
			WithOp(rc.Op).WithUser(rc.User)
	}
	if err := node.Validate(); err != nil {
		return nil, apperr.Wrap(err, "invalid node", apperr.BadRequest).
			WithOp(rc.Op).WithUser(rc.User)
	}

	// 3. 持久化 (存储层已经返回 apperr，这里只补 Op / User)
	if err := s.store.Put(ctx, node.ID, node); err != nil {
		return nil, annotate(err, rc)
	}

	if s.metrics != nil {
		s.metrics.NodesCreated.Inc()
	}
	slog.Debug("node created", "id", node.ID.Short(), "blobs", len(node.Blobs), "mode", s.mode)
	return node, nil
}

// GetNode 按 ID 读取 Node
func (s *NodeService) GetNode(ctx context.Context, rc RequestContext, id string) (*core.Node, error) {
	node, err := s.store.Get(ctx, types.Hash(id))
	if err != nil {
		return nil, annotate(err, rc)
	}
	return node, nil
}

// annotate 给存储层返回的错误补上调用方信息；非 apperr 错误按 Internal 处理
func annotate(err error, rc RequestContext) error {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.WithOp(rc.Op).WithUser(rc.User)
	}
	return apperr.Wrap(err, "node store failure", apperr.Internal).WithOp(rc.Op).WithUser(rc.User)
}

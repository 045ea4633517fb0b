package service

import (
	"context"

	"anchorage/pkg/core"
	"anchorage/pkg/types"
)

// Local 以固定的 RequestContext 直接调用两个服务
// 供进程内的批量导入 / 导出使用，不经过 HTTP
type Local struct {
	Blobs *BlobService
	Nodes *NodeService
	RC    RequestContext
}

func NewLocal(blobs *BlobService, nodes *NodeService, op string) *Local {
	return &Local{Blobs: blobs, Nodes: nodes, RC: NewRequestContext("", op)}
}

func (l *Local) PutBlob(ctx context.Context, data []byte) (types.Hash, error) {
	return l.Blobs.PutBlob(ctx, l.RC, data)
}

func (l *Local) GetBlob(ctx context.Context, id types.Hash) ([]byte, error) {
	return l.Blobs.GetBlob(ctx, l.RC, id.String())
}

func (l *Local) CreateNode(ctx context.Context, t core.NodeType, blobs []types.Hash) (*core.Node, error) {
	ids := make([]string, len(blobs))
	for i, b := range blobs {
		ids[i] = b.String()
	}
	return l.Nodes.CreateNode(ctx, l.RC, string(t), ids)
}

func (l *Local) GetNode(ctx context.Context, id types.Hash) (*core.Node, error) {
	return l.Nodes.GetNode(ctx, l.RC, id.String())
}

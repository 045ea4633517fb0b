// Package ingester 把字节流切块、写成 Blob，再登记为一个 Node
package ingester

import (
	"context"
	"errors"
	"fmt"
	"io"

	"anchorage/pkg/chunker"
	"anchorage/pkg/core"
	"anchorage/pkg/metrics"
	"anchorage/pkg/types"

	"golang.org/x/sync/errgroup"
)

// ErrEmptyInput 空流无法构成 Node
var ErrEmptyInput = errors.New("ingester: input is empty")

// Sink 是 Blob / Node 的写入目标
// 服务端本地写入 (service.Local) 和远程 HTTP 客户端 (client.Client) 都实现它
type Sink interface {
	PutBlob(ctx context.Context, data []byte) (types.Hash, error)
	CreateNode(ctx context.Context, t core.NodeType, blobs []types.Hash) (*core.Node, error)
}

// ChunkInfo 描述一个已写入的块，用于进度回调
type ChunkInfo struct {
	Index int
	ID    types.Hash
	Size  int64
}

type Options struct {
	// Concurrency 同时在途的 PutBlob 数量上限，<=0 时为 1
	Concurrency int
	Metrics     *metrics.Metrics
	// OnChunk 每个块写入成功后调用，可能来自多个 goroutine
	OnChunk func(ChunkInfo)
}

type Ingester struct {
	sink    Sink
	chunker *chunker.Chunker
	opts    Options
}

func NewIngester(sink Sink, c *chunker.Chunker, opts Options) *Ingester {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Ingester{sink: sink, chunker: c, opts: opts}
}

// IngestBlobs 切分并写入所有块，按流中顺序返回 Blob ID
func (ing *Ingester) IngestBlobs(ctx context.Context, r io.Reader) ([]types.Hash, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.opts.Concurrency)

	// 每个块一个槽位：只有切分方 append，worker 只写自己的槽
	var slots []*types.Hash

	// 1. Generator: 切分在当前 goroutine 进行，并发已满时 g.Go 阻塞，内存因此有界
	splitErr := ing.chunker.Split(r, func(data []byte) error {
		if err := gctx.Err(); err != nil {
			return err
		}

		idx := len(slots)
		slot := new(types.Hash)
		slots = append(slots, slot)

		// 2. Worker: 计算地址并上传
		g.Go(func() error {
			chunk := core.NewChunk(data)
			id, err := ing.sink.PutBlob(gctx, chunk.Bytes())
			if err != nil {
				return fmt.Errorf("failed to store chunk %d: %w", idx, err)
			}
			if id != chunk.ID() {
				return fmt.Errorf("chunk %d stored as %s, expected %s", idx, id.Short(), chunk.ID().Short())
			}
			*slot = chunk.ID()
			ing.record(ChunkInfo{Index: idx, ID: chunk.ID(), Size: chunk.Size()})
			return nil
		})
		return nil
	})

	// 3. Collector: 先等所有 worker 退出，worker 的错误优先 (它通常是 splitErr 的起因)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if splitErr != nil {
		return nil, splitErr
	}

	ids := make([]types.Hash, len(slots))
	for i, s := range slots {
		ids[i] = *s
	}
	return ids, nil
}

// IngestFile 写入所有块后创建一个 file Node
func (ing *Ingester) IngestFile(ctx context.Context, r io.Reader) (*core.Node, error) {
	ids, err := ing.IngestBlobs(ctx, r)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrEmptyInput
	}

	node, err := ing.sink.CreateNode(ctx, core.NodeFile, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to create node: %w", err)
	}
	return node, nil
}

func (ing *Ingester) record(info ChunkInfo) {
	if ing.opts.Metrics != nil {
		ing.opts.Metrics.ChunksStored.Inc()
	}
	if ing.opts.OnChunk != nil {
		ing.opts.OnChunk(info)
	}
}

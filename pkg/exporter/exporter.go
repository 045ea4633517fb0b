// Package exporter 按 Node 还原文件，并提供 Node 的可读视图
package exporter

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"anchorage/pkg/core"
	"anchorage/pkg/types"

	"github.com/dustin/go-humanize"
)

// Source 是读取端，service.Local 和 client.Client 都实现它
type Source interface {
	GetNode(ctx context.Context, id types.Hash) (*core.Node, error)
	GetBlob(ctx context.Context, id types.Hash) ([]byte, error)
}

type Exporter struct {
	src Source
}

func NewExporter(src Source) *Exporter {
	return &Exporter{src: src}
}

// ExportNode 根据 Node ID，把还原的文件写入 writer，返回写入的字节数
func (e *Exporter) ExportNode(ctx context.Context, id types.Hash, w io.Writer) (int64, error) {
	// 1. 获取 Node 元数据
	node, err := e.src.GetNode(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to get node %s: %w", id.Short(), err)
	}

	// 2. 类型检查
	if node.Type != core.NodeFile {
		return 0, fmt.Errorf("node %s is not a file, got: %s", id.Short(), node.Type)
	}

	// 3. 按顺序取回每个 Blob 并写入 (同一时刻只持有一个块)
	var written int64
	for i, blobID := range node.Blobs {
		data, err := e.src.GetBlob(ctx, blobID)
		if err != nil {
			return written, fmt.Errorf("failed to get blob %d: %w", i, err)
		}

		// 完整性校验：内容必须与地址一致
		if got := core.CalculateBlobHash(data); got != blobID {
			return written, fmt.Errorf("blob %d corrupted: expected %s, got %s", i, blobID.Short(), got.Short())
		}

		n, err := w.Write(data)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("failed to write blob %d data: %w", i, err)
		}
	}
	return written, nil
}

// PrintNode 输出 Node 的元数据；withSizes 时逐个读取 Blob 统计大小
func (e *Exporter) PrintNode(ctx context.Context, id types.Hash, w io.Writer, withSizes bool) error {
	node, err := e.src.GetNode(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "ID:    %s\n", node.ID)
	fmt.Fprintf(w, "Type:  %s\n", node.Type)
	fmt.Fprintf(w, "Blobs: %d\n\n", len(node.Blobs))

	// 使用 tabwriter 对齐输出
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	var total uint64
	for i, b := range node.Blobs {
		size := "-"
		if withSizes {
			data, err := e.src.GetBlob(ctx, b)
			if err != nil {
				return fmt.Errorf("failed to get blob %d: %w", i, err)
			}
			total += uint64(len(data))
			size = humanize.IBytes(uint64(len(data)))
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i, b, size)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if withSizes {
		fmt.Fprintf(w, "\nTotal: %s\n", humanize.IBytes(total))
	}
	return nil
}

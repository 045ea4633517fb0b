package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"anchorage/pkg/core"
	"anchorage/pkg/exporter"
	"anchorage/pkg/ingester"
	"anchorage/pkg/types"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var putFileCmd = &cobra.Command{
	Use:   "put-file [file]",
	Short: "Upload a file as blobs plus a node describing it",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		in, closeFn, err := openInput(cmd, path)
		if err != nil {
			return err
		}
		defer closeFn()

		start := time.Now()
		node, size, err := uploadFile(cmd.Context(), in)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), node.ID)
		fmt.Fprintf(cmd.ErrOrStderr(), "✅ Stored %s in %d blobs (%s)\n",
			humanize.IBytes(uint64(size)), len(node.Blobs), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var getFileCmd = &cobra.Command{
	Use:   "get-file [node-id] [output]",
	Short: "Reassemble a file from its node and write it to output (stdout when omitted)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var w io.Writer = cmd.OutOrStdout()
		if len(args) == 2 {
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		n, err := exporter.NewExporter(Remote).ExportNode(cmd.Context(), types.Hash(args[0]), w)
		if err != nil {
			return fmt.Errorf("get-file failed: %w", err)
		}
		if len(args) == 2 {
			fmt.Fprintf(cmd.ErrOrStderr(), "✅ Restored %s to %s\n", humanize.IBytes(uint64(n)), args[1])
		}
		return nil
	},
}

var getNodeSizes bool

var getNodeCmd = &cobra.Command{
	Use:   "get-node [node-id]",
	Short: "Show a node's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return exporter.NewExporter(Remote).PrintNode(cmd.Context(), types.Hash(args[0]), cmd.OutOrStdout(), getNodeSizes)
	},
}

// uploadFile 上传一个流并创建 Node，返回 Node 与字节数
func uploadFile(ctx context.Context, r io.Reader) (*core.Node, int64, error) {
	var size atomic.Int64
	ing, err := newIngester(ingester.Options{
		OnChunk: func(c ingester.ChunkInfo) { size.Add(c.Size) },
	})
	if err != nil {
		return nil, 0, err
	}

	node, err := ing.IngestFile(ctx, r)
	if err != nil {
		return nil, 0, err
	}
	return node, size.Load(), nil
}

func init() {
	getNodeCmd.Flags().BoolVar(&getNodeSizes, "sizes", false, "fetch every blob to report its size")
	rootCmd.AddCommand(putFileCmd, getFileCmd, getNodeCmd)
}

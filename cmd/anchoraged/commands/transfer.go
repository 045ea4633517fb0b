package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"anchorage/pkg/exporter"
	"anchorage/pkg/ingester"
	"anchorage/pkg/types"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// importCmd 绕过 HTTP 直接写入配置的存储，用于批量导入
var importCmd = &cobra.Command{
	Use:   "import [file...]",
	Short: "Chunk local files straight into the configured storage",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ing := ingester.NewIngester(AN.Local("import"), AN.Chunker, ingester.Options{
			Concurrency: AN.Config.IngestConcurrency,
			Metrics:     AN.Metrics,
		})

		for _, path := range args {
			start := time.Now()
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			node, err := ing.IngestFile(cmd.Context(), f)
			f.Close()
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", node.ID, path)
			fmt.Fprintf(cmd.ErrOrStderr(), "✅ %s: %d blobs in %s\n", path, len(node.Blobs), time.Since(start).Round(time.Millisecond))
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [node-id] [output]",
	Short: "Reassemble a stored file from local storage",
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

		n, err := exporter.NewExporter(AN.Local("export")).ExportNode(cmd.Context(), types.Hash(args[0]), w)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✅ Exported %s\n", humanize.IBytes(uint64(n)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd, exportCmd)
}

package commands

import (
	"fmt"
	"os"

	"anchorage/pkg/core"
	"anchorage/pkg/ingester"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var postBlobCmd = &cobra.Command{
	Use:   "post-blob [file]",
	Short: "Chunk a file (or stdin) and upload every chunk as a blob",
	Long:  `Reads the file (stdin when omitted or "-"), splits it into content-defined chunks and uploads each one. Prints the created blob ids in order, one per line.`,
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

		ing, err := newIngester(ingester.Options{})
		if err != nil {
			return err
		}

		ids, err := ing.IngestBlobs(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("post-blob failed: %w", err)
		}
		if len(ids) == 0 {
			return fmt.Errorf("nothing to upload: input is empty")
		}

		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var getBlobOut string

var getBlobCmd = &cobra.Command{
	Use:   "get-blob [hash]",
	Short: "Download a blob and write its decoded contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := Remote.GetBlob(cmd.Context(), core.TrimBlobKey(args[0]))
		if err != nil {
			return err
		}

		if getBlobOut == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(getBlobOut, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✅ Wrote %s to %s\n", humanize.IBytes(uint64(len(data))), getBlobOut)
		return nil
	},
}

func init() {
	getBlobCmd.Flags().StringVarP(&getBlobOut, "output", "o", "", "write contents to this file instead of stdout")
	rootCmd.AddCommand(postBlobCmd, getBlobCmd)
}

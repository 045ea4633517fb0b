package commands

import (
	"fmt"
	"io/fs"
	"os"

	"anchorage/pkg/ignore"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var pushCmd = &cobra.Command{
	Use:   "push [dir]",
	Short: "Upload every file under a directory, honoring .ancignore",
	Long:  `Walks the directory, skipping paths matched by the built-in rules or by <dir>/.ancignore, and uploads each remaining file as blobs plus a node. Prints "<node-id>  <path>" per file.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := args[0]
		matcher, err := ignore.NewMatcher(root)
		if err != nil {
			return fmt.Errorf("failed to load ignore rules: %w", err)
		}

		success, failures := 0, 0
		var total int64

		err = matcher.Walk(root, func(rel, abs string, info fs.FileInfo) error {
			if info.Size() == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  Skipped %s (empty)\n", rel)
				return nil
			}

			f, err := os.Open(abs)
			if err != nil {
				return err
			}
			defer f.Close()

			node, size, err := uploadFile(cmd.Context(), f)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "❌ %s: %v\n", rel, err)
				failures++
				// 被取消时不再继续
				return cmd.Context().Err()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", node.ID, rel)
			success++
			total += size
			return nil
		})
		if err != nil {
			return fmt.Errorf("walk failed: %w", err)
		}

		fmt.Fprintf(cmd.ErrOrStderr(), "\nSummary: %d succeeded (%s), %d failed.\n", success, humanize.IBytes(uint64(total)), failures)
		if failures > 0 {
			return fmt.Errorf("some files failed to upload")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

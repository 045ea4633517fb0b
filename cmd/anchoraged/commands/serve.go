package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the blob and node HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := AN.Server()
		if err := srv.Run(cmd.Context(), AN.Config.Addr()); err != nil {
			return err
		}
		slog.Info("👋 server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

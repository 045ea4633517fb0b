package commands

import (
	"context"
	"fmt"
	"os"

	"anchorage/pkg/app"
	"anchorage/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	// 全局应用实例，供子命令使用
	AN *app.App
)

var rootCmd = &cobra.Command{
	Use:           "anchoraged",
	Short:         "anchoraged: content-addressed blob server",
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE 会在所有子命令执行前运行，统一初始化 App
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := config.SetupLogging(cmd.ErrOrStderr(), cfg.Log); err != nil {
			return err
		}

		AN, err = app.NewApp(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize anchorage: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if AN == nil {
			return nil
		}
		return AN.Close()
	},
	// 不带子命令时直接启动服务
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

// ExecuteContext 是入口
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	gin.SetMode(gin.ReleaseMode)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.anchorage/config.yaml)")

	// 既可以在 yaml 里写，也可以用 flag 覆盖
	rootCmd.PersistentFlags().Int("port", 4444, "port to listen on")
	rootCmd.PersistentFlags().String("storage-dir", "", "directory for the local backend")
	rootCmd.PersistentFlags().String("storage-type", "local", "blob backend: local | s3")
	mustBind("port", "port")
	mustBind("storage.directory", "storage-dir")
	mustBind("storage.type", "storage-type")
}

func mustBind(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		fmt.Println("Failed to bind flag:", err)
		os.Exit(1)
	}
}

package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"anchorage/pkg/chunker"
	"anchorage/pkg/client"
	"anchorage/pkg/config"
	"anchorage/pkg/ingester"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	user    string

	// 全局实例，由 PersistentPreRunE 初始化，供子命令使用
	Cfg    *config.Config
	Remote *client.Client
)

var rootCmd = &cobra.Command{
	Use:           "anc",
	Short:         "anc: client for the anchorage blob server",
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := config.SetupLogging(cmd.ErrOrStderr(), cfg.Log); err != nil {
			return err
		}
		Cfg = cfg
		Remote = client.New(cfg.Remote, user)
		return nil
	},
}

// ExecuteContext 是入口
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.anchorage/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&user, "user", "", "caller identity sent with each request")

	// 既可以在 yaml 里写，也可以用 flag 覆盖
	rootCmd.PersistentFlags().String("remote", client.DefaultRemote, "anchoraged base URL")
	rootCmd.PersistentFlags().Int("concurrency", 4, "max blobs uploaded in parallel")
	mustBind("remote", "remote")
	mustBind("ingest.concurrency", "concurrency")
}

func mustBind(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		fmt.Println("Failed to bind flag:", err)
		os.Exit(1)
	}
}

// newIngester 按配置构造切块器和上传器
func newIngester(opts ingester.Options) (*ingester.Ingester, error) {
	c, err := chunker.NewChunker(Cfg.Chunker)
	if err != nil {
		return nil, err
	}
	opts.Concurrency = Cfg.IngestConcurrency
	return ingester.NewIngester(Remote, c, opts), nil
}

// openInput 打开文件；path 为空或 "-" 时读 stdin
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

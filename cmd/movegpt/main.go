package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"MoveGPT/internal/config"
	"MoveGPT/pkg/logger"
)

// main 是 movegpt 命令行的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "movegpt 运行失败: %v\n", err)
		stop()
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "movegpt",
		Short:         "Move 编程与链上账户问答助手",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.Logging); err != nil {
				return fmt.Errorf("初始化日志失败: %w", err)
			}
			opts.cfg = cfg
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "配置文件路径（json/yaml/toml）")

	cmd.AddCommand(
		newServeCommand(opts),
		newReplCommand(opts, modeMove),
		newReplCommand(opts, modeResource),
		newIngestCommand(opts),
		newAskCommand(opts),
	)
	return cmd
}

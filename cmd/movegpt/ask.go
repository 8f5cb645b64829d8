package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"MoveGPT/sdk/go/movegpt"
)

func newAskCommand(opts *rootOptions) *cobra.Command {
	var (
		server   string
		session  string
		resource bool
	)
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "连接远程 MoveGPT 服务进行问答",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if server == "" {
				server = localServerURL(opts.cfg.Server.Address)
			}
			client, err := movegpt.NewClient(server, nil)
			if err != nil {
				return err
			}

			prompt := modeMove.prompt
			ask := func(ctx context.Context, q string) (string, error) {
				resp, err := client.Ask(ctx, movegpt.Question{Question: q, SessionID: session})
				return resp.Answer, err
			}
			if resource {
				prompt = modeResource.prompt
				ask = func(ctx context.Context, q string) (string, error) {
					resp, err := client.AskAboutAccount(ctx, movegpt.Question{Question: q, SessionID: session})
					return resp.Answer, err
				}
			}

			line := openLiner(opts.cfg.Runtime.HistoryFile)
			defer line.Close()
			return runLoop(cmd.Context(), line, cmd.OutOrStdout(), cmd.ErrOrStderr(), prompt, ask)
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "服务地址（默认根据 server.address 推断）")
	cmd.Flags().StringVar(&session, "session", "", "会话标识")
	cmd.Flags().BoolVar(&resource, "resource", false, "使用账户问答接口")
	return cmd
}

// localServerURL 把监听地址转换为本机可访问的 URL。
func localServerURL(addr string) string {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return fmt.Sprintf("http://%s", addr)
}

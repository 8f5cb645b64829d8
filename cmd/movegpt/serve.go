package main

import (
	"github.com/spf13/cobra"

	"MoveGPT/internal/api"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP API 服务",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := buildApplication(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			return api.NewServer(opts.cfg.Server, app.agent).Start(ctx)
		},
	}
}

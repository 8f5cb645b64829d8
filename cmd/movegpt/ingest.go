package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"MoveGPT/internal/knowledge"
	"MoveGPT/pkg/logger"
)

func newIngestCommand(opts *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "切分训练文档并写入知识库",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg
			if dir == "" {
				dir = cfg.Knowledge.Ingest.Dir
			}

			llmClient, err := createLLMClient(cfg)
			if err != nil {
				return err
			}
			index, err := openKnowledge(ctx, cfg, llmClient)
			if err != nil {
				return err
			}
			if closer, ok := index.(interface{ Close() error }); ok {
				defer closer.Close()
			}

			splitter := knowledge.NewSplitter(cfg.Knowledge.Ingest.ChunkSize, cfg.Knowledge.Ingest.Separator)
			count, err := knowledge.Ingest(ctx, dir, splitter, index)
			if err != nil {
				return err
			}
			logger.Named("ingest").Info("文档导入完成",
				slog.String("dir", dir),
				slog.String("driver", cfg.Knowledge.Driver),
				slog.Int("chunks", count))
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d chunks from %s\n", count, dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "训练文档目录（默认 knowledge.ingest.dir）")
	return cmd
}

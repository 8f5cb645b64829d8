package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"MoveGPT/internal/agent"
)

type replMode struct {
	use    string
	short  string
	prompt string
	ask    func(ag *agent.Agent) askFunc
}

type askFunc func(ctx context.Context, question string) (string, error)

var (
	modeMove = replMode{
		use:    "repl",
		short:  "交互式 Move 编程问答",
		prompt: "Generate Move Code > ",
		ask: func(ag *agent.Agent) askFunc {
			return func(ctx context.Context, q string) (string, error) {
				result, err := ag.Ask(ctx, "", q)
				if err != nil {
					return "", err
				}
				return result.Answer, nil
			}
		},
	}
	modeResource = replMode{
		use:    "resource-repl",
		short:  "交互式链上账户问答",
		prompt: "Ask about an account > ",
		ask: func(ag *agent.Agent) askFunc {
			return func(ctx context.Context, q string) (string, error) {
				result, err := ag.AskAboutAccount(ctx, "", q)
				if err != nil {
					return "", err
				}
				return result.Answer, nil
			}
		},
	}
)

func newReplCommand(opts *rootOptions, mode replMode) *cobra.Command {
	return &cobra.Command{
		Use:   mode.use,
		Short: mode.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := buildApplication(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			line := openLiner(opts.cfg.Runtime.HistoryFile)
			defer line.Close()

			return runLoop(ctx, line, cmd.OutOrStdout(), cmd.ErrOrStderr(), mode.prompt, mode.ask(app.agent))
		},
	}
}

// lineReader 抽象出 liner 的读取能力，便于测试。
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// runLoop 逐行读取问题并输出回答。单轮失败只打印错误，不会结束循环。
func runLoop(ctx context.Context, in lineReader, out, errOut io.Writer, prompt string, ask askFunc) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := in.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}

		question := strings.TrimSpace(input)
		if question == "" {
			continue
		}
		in.AppendHistory(question)
		if question == "quit" || question == "exit" {
			return nil
		}

		answer, err := ask(ctx, question)
		if err != nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "MoveGPT: %s\n", answer)
	}
}

// historyLiner 在关闭时把输入历史写回文件。
type historyLiner struct {
	*liner.State
	path string
}

func openLiner(path string) *historyLiner {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	if f, err := os.Open(path); err == nil {
		_, _ = state.ReadHistory(f)
		_ = f.Close()
	}
	return &historyLiner{State: state, path: path}
}

func (h *historyLiner) Close() error {
	if h.path != "" {
		if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err == nil {
			if f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
				_, _ = h.WriteHistory(f)
				_ = f.Close()
			}
		}
	}
	return h.State.Close()
}

package openai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	xerrors "MoveGPT/internal/errors"
	"MoveGPT/internal/llm"
)

const (
	defaultModelName      = "gpt-3.5-turbo-instruct"
	defaultEmbeddingModel = "text-embedding-ada-002"
	defaultTimeout        = 60 * time.Second
)

// Config 描述了调用 OpenAI API 所需的信息。
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	Timeout        time.Duration
}

// Client 基于 go-openai 实现 llm.Completer 与 llm.Embedder。
type Client struct {
	api            *goopenai.Client
	model          string
	embeddingModel string
	temperature    float32
	maxTokens      int
}

var (
	_ llm.Completer = (*Client)(nil)
	_ llm.Embedder  = (*Client)(nil)
)

// NewClient 根据配置创建 OpenAI 客户端。
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "未提供 OpenAI API Key")
	}

	clientCfg := goopenai.DefaultConfig(apiKey)
	if baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModelName
	}
	embeddingModel := strings.TrimSpace(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = defaultEmbeddingModel
	}

	return &Client{
		api:            goopenai.NewClientWithConfig(clientCfg),
		model:          model,
		embeddingModel: embeddingModel,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
	}, nil
}

// Model 返回补全使用的模型名称。
func (c *Client) Model() string { return c.model }

// Complete 发送提示词。instruct 与 davinci 系列走 completions 接口，其余模型走 chat 接口。
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var (
		text string
		err  error
	)
	if isLegacyCompletionModel(c.model) {
		text, err = c.completeLegacy(ctx, prompt)
	} else {
		text, err = c.completeChat(ctx, prompt)
	}
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", xerrors.New(xerrors.CodeCompletionFailure, "OpenAI 响应内容为空",
			xerrors.WithMetadata("model", c.model))
	}
	return text, nil
}

func (c *Client) completeLegacy(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateCompletion(ctx, goopenai.CompletionRequest{
		Model:       c.model,
		Prompt:      prompt,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", wrapAPIError(err, c.model)
	}
	if len(resp.Choices) == 0 {
		return "", xerrors.New(xerrors.CodeCompletionFailure, "OpenAI 响应中没有有效的 choices",
			xerrors.WithMetadata("model", c.model))
	}
	return resp.Choices[0].Text, nil
}

func (c *Client) completeChat(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", wrapAPIError(err, c.model)
	}
	if len(resp.Choices) == 0 {
		return "", xerrors.New(xerrors.CodeCompletionFailure, "OpenAI 响应中没有有效的 choices",
			xerrors.WithMetadata("model", c.model))
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed 生成单条文本的向量。
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: goopenai.EmbeddingModel(c.embeddingModel),
	})
	if err != nil {
		return nil, wrapAPIError(err, c.embeddingModel)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, xerrors.New(xerrors.CodeCompletionFailure, "OpenAI 未返回向量",
			xerrors.WithMetadata("model", c.embeddingModel))
	}
	return resp.Data[0].Embedding, nil
}

func isLegacyCompletionModel(model string) bool {
	model = strings.ToLower(model)
	return strings.Contains(model, "instruct") ||
		strings.Contains(model, "davinci") ||
		strings.Contains(model, "babbage")
}

func wrapAPIError(err error, model string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return xerrors.Wrap(xerrors.CodeTimeout, err, "请求 OpenAI 超时", xerrors.WithMetadata("model", model))
	}
	opts := []xerrors.Option{xerrors.WithMetadata("model", model)}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		opts = append(opts, xerrors.WithMetadata("status", http.StatusText(apiErr.HTTPStatusCode)))
	}
	return xerrors.Wrap(xerrors.CodeCompletionFailure, err, "请求 OpenAI 失败", opts...)
}

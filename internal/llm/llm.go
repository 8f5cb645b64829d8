package llm

import "context"

// Completer 把完整提示词发送给大模型，返回生成的文本。
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder 为文本生成向量，供向量库检索使用。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CompleterFunc 让普通函数满足 Completer。
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete 实现 Completer。
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// EmbedderFunc 让普通函数满足 Embedder。
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

// Embed 实现 Embedder。
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

package retrieval

import (
	"context"
	"strings"

	xerrors "MoveGPT/internal/errors"
	"MoveGPT/internal/knowledge"
)

// Retriever 为问题生成提示词上下文。
type Retriever interface {
	Retrieve(ctx context.Context, question string) (string, error)
}

// SimilarityRetriever 从文档库中取出最相似的 K 个分片。
type SimilarityRetriever struct {
	Provider knowledge.Provider
	K        int
}

// NewSimilarityRetriever 创建相似度检索器，k<=0 时取 1。
func NewSimilarityRetriever(provider knowledge.Provider, k int) *SimilarityRetriever {
	if k <= 0 {
		k = 1
	}
	return &SimilarityRetriever{Provider: provider, K: k}
}

// Retrieve 以 "Context:\n<content>" 的形式拼接检索结果，结果之间以空行分隔。
func (r *SimilarityRetriever) Retrieve(ctx context.Context, question string) (string, error) {
	if r == nil || r.Provider == nil {
		return "", xerrors.New(xerrors.CodeInitializationFailure, "未配置知识库")
	}
	k := r.K
	if k <= 0 {
		k = 1
	}
	snippets, err := r.Provider.Search(ctx, question, k)
	if err != nil {
		return "", wrap(ctx, err, "检索知识库失败")
	}
	parts := make([]string, 0, len(snippets))
	for _, snippet := range snippets {
		parts = append(parts, "Context:\n"+snippet.Content)
	}
	return strings.Join(parts, "\n\n"), nil
}

// wrap 把协作方错误包装为检索错误，上下文超时包装为超时错误。
func wrap(ctx context.Context, err error, message string) error {
	if ctx.Err() != nil || xerrors.CodeOf(err) == xerrors.CodeTimeout {
		return xerrors.Wrap(xerrors.CodeTimeout, err, message)
	}
	return xerrors.Wrap(xerrors.CodeRetrievalFailure, err, message)
}

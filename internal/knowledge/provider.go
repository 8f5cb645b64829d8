package knowledge

import (
	"context"
)

// Provider 定义知识库检索的通用接口。
type Provider interface {
	Search(ctx context.Context, query string, k int) ([]Snippet, error)
}

// Indexer 把文档写入可检索的知识库。
type Indexer interface {
	AddDocuments(ctx context.Context, docs []Document) error
}

// Snippet 描述可供大模型引用的一段知识。
type Snippet struct {
	ID       string   `json:"id,omitempty"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Score    float32  `json:"score,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Document 是写入知识库的一个文本分片。
type Document struct {
	ID      string
	Title   string
	Source  string
	Content string
}

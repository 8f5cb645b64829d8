package knowledge

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/philippgille/chromem-go"

	"MoveGPT/internal/llm"
)

// DefaultCollection 是文档分片所在的集合名称。
const DefaultCollection = "move-docs"

// ChromemProvider 基于 chromem-go 的嵌入式向量库。
type ChromemProvider struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// ChromemConfig 配置 chromem 向量库。Path 为空时只保存在内存中。
type ChromemConfig struct {
	Path       string
	Collection string
	Compress   bool
}

// NewChromemProvider 打开（或创建）持久化向量库，使用 embedder 生成向量。
func NewChromemProvider(cfg ChromemConfig, embedder llm.Embedder) (*ChromemProvider, error) {
	if embedder == nil {
		return nil, fmt.Errorf("chromem 向量库需要 embedder")
	}

	var (
		db  *chromem.DB
		err error
	)
	if strings.TrimSpace(cfg.Path) == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("打开 chromem 向量库失败: %w", err)
		}
	}

	name := strings.TrimSpace(cfg.Collection)
	if name == "" {
		name = DefaultCollection
	}
	collection, err := db.GetOrCreateCollection(name, nil, embedder.Embed)
	if err != nil {
		return nil, fmt.Errorf("打开集合 %s 失败: %w", name, err)
	}
	return &ChromemProvider{db: db, collection: collection}, nil
}

// Count 返回集合中的文档数量。
func (p *ChromemProvider) Count() int {
	return p.collection.Count()
}

// Search 返回与 query 最相似的 k 个分片。k 超过文档数量时按文档数量截断。
func (p *ChromemProvider) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	if k <= 0 {
		k = 1
	}
	if count := p.collection.Count(); count == 0 {
		return nil, nil
	} else if k > count {
		k = count
	}

	results, err := p.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem 检索失败: %w", err)
	}
	snippets := make([]Snippet, 0, len(results))
	for _, res := range results {
		snippets = append(snippets, Snippet{
			ID:      res.ID,
			Title:   res.Metadata["title"],
			Content: res.Content,
			Score:   res.Similarity,
		})
	}
	return snippets, nil
}

// AddDocuments 写入文档分片，相同 ID 会被覆盖。
func (p *ChromemProvider) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		batch = append(batch, chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: map[string]string{"title": doc.Title, "source": doc.Source},
		})
	}
	if err := p.collection.AddDocuments(ctx, batch, runtime.NumCPU()); err != nil {
		return fmt.Errorf("写入 chromem 失败: %w", err)
	}
	return nil
}

var (
	_ Provider = (*ChromemProvider)(nil)
	_ Indexer  = (*ChromemProvider)(nil)
)

package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StaticProvider 通过加载 JSON 文件提供关键词检索能力，无需向量服务。
type StaticProvider struct {
	items      []Snippet
	maxResults int
}

// NewStaticProvider 创建静态知识库实例。
func NewStaticProvider(items []Snippet, maxResults int) *StaticProvider {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &StaticProvider{
		items:      items,
		maxResults: maxResults,
	}
}

// LoadStaticProvider 从 JSON 文件加载知识条目。
func LoadStaticProvider(path string, maxResults int) (*StaticProvider, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("知识库文件路径不能为空")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("解析知识库路径失败: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("读取知识库文件失败: %w", err)
	}

	var entries []Snippet
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("解析知识库文件失败: %w", err)
	}

	return NewStaticProvider(entries, maxResults), nil
}

// Search 按关键词与标签匹配问题，最多返回 k 条（k<=0 时使用 maxResults）。
func (p *StaticProvider) Search(_ context.Context, query string, k int) ([]Snippet, error) {
	if p == nil {
		return nil, nil
	}
	if k <= 0 || k > p.maxResults {
		k = p.maxResults
	}

	query = strings.ToLower(strings.TrimSpace(query))
	results := make([]Snippet, 0, k)
	for _, item := range p.items {
		score := matchScore(item, query)
		if score == 0 {
			continue
		}
		item.Score = score
		results = append(results, item)
		if len(results) >= k {
			break
		}
	}
	return results, nil
}

// AddDocuments 把分片追加为不带关键词的条目。
func (p *StaticProvider) AddDocuments(_ context.Context, docs []Document) error {
	for _, doc := range docs {
		p.items = append(p.items, Snippet{ID: doc.ID, Title: doc.Title, Content: doc.Content})
	}
	return nil
}

// matchScore 未配置关键词与标签的条目总是命中，得分最低。
func matchScore(snippet Snippet, query string) float32 {
	if len(snippet.Keywords) == 0 && len(snippet.Tags) == 0 {
		return 0.1
	}
	if containsAny(query, snippet.Keywords) {
		return 1
	}
	if containsAny(query, snippet.Tags) {
		return 0.5
	}
	return 0
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		normalized := strings.ToLower(strings.TrimSpace(needle))
		if normalized == "" {
			continue
		}
		if strings.Contains(text, normalized) {
			return true
		}
	}
	return false
}

var (
	_ Provider = (*StaticProvider)(nil)
	_ Indexer  = (*StaticProvider)(nil)
)

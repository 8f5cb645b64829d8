package knowledge

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"MoveGPT/internal/llm"
)

// QdrantConfig 配置 qdrant 向量库。
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
}

// QdrantProvider 使用 qdrant 保存文档向量。
type QdrantProvider struct {
	client     *qdrant.Client
	collection string
	dimension  int
	embedder   llm.Embedder
}

// NewQdrantProvider 连接 qdrant 并确保集合存在。
func NewQdrantProvider(ctx context.Context, cfg QdrantConfig, embedder llm.Embedder) (*QdrantProvider, error) {
	if embedder == nil {
		return nil, fmt.Errorf("qdrant 向量库需要 embedder")
	}
	host, port, useTLS, err := parseQdrantEndpoint(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("解析 qdrant 地址失败: %w", err)
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("连接 qdrant 失败: %w", err)
	}

	p := &QdrantProvider{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		embedder:   embedder,
	}
	if p.collection == "" {
		p.collection = DefaultCollection
	}
	if p.dimension <= 0 {
		p.dimension = 1536
	}
	if err := p.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return p, nil
}

func (p *QdrantProvider) ensureCollection(ctx context.Context) error {
	exists, err := p.client.CollectionExists(ctx, p.collection)
	if err != nil {
		return fmt.Errorf("查询 qdrant 集合失败: %w", err)
	}
	if exists {
		return nil
	}
	err = p.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: p.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(p.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("创建 qdrant 集合失败: %w", err)
	}
	return nil
}

// Search 向量化问题后检索最相似的 k 个分片。
func (p *QdrantProvider) Search(ctx context.Context, query string, k int) ([]Snippet, error) {
	if k <= 0 {
		k = 1
	}
	vector, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("生成查询向量失败: %w", err)
	}
	results, err := p.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: p.collection,
		Query:          qdrant.NewQueryDense(vector),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant 检索失败: %w", err)
	}

	snippets := make([]Snippet, 0, len(results))
	for _, scored := range results {
		payload := scored.GetPayload()
		snippets = append(snippets, Snippet{
			ID:      scored.GetId().GetUuid(),
			Title:   payload["title"].GetStringValue(),
			Content: payload["content"].GetStringValue(),
			Score:   scored.GetScore(),
		})
	}
	return snippets, nil
}

// AddDocuments 以文档 ID 派生的 UUID 写入点，重复写入会覆盖。
func (p *QdrantProvider) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, 0, len(docs))
	for _, doc := range docs {
		vector, err := p.embedder.Embed(ctx, doc.Content)
		if err != nil {
			return fmt.Errorf("生成文档向量失败: %w", err)
		}
		payload, err := qdrant.TryValueMap(map[string]any{
			"title":   doc.Title,
			"source":  doc.Source,
			"content": doc.Content,
		})
		if err != nil {
			return err
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(doc.ID)),
			Vectors: qdrant.NewVectorsDense(vector),
			Payload: payload,
		})
	}
	_, err := p.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: p.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("写入 qdrant 失败: %w", err)
	}
	return nil
}

// Close 关闭 gRPC 连接。
func (p *QdrantProvider) Close() error {
	return p.client.Close()
}

func pointID(id string) string {
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

func parseQdrantEndpoint(endpoint string) (string, int, bool, error) {
	if endpoint == "" {
		return "127.0.0.1", 6334, false, nil
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", 0, false, err
	}
	host := parsed.Hostname()
	if host == "" {
		host = "127.0.0.1"
	}
	port := 6334
	if parsed.Port() != "" {
		port, err = strconv.Atoi(parsed.Port())
		if err != nil {
			return "", 0, false, err
		}
	}
	return host, port, parsed.Scheme == "https", nil
}

var (
	_ Provider = (*QdrantProvider)(nil)
	_ Indexer  = (*QdrantProvider)(nil)
)

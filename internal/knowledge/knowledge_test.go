package knowledge

import (
	"context"
	"hash/fnv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MoveGPT/internal/llm"
)

// bagOfWords 把词哈希到固定维度，得到可重复的向量。
func bagOfWords() llm.Embedder {
	return llm.EmbedderFunc(func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, 64)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(strings.Trim(word, ".,:;!?")))
			vec[h.Sum32()%64]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		if norm == 0 {
			vec[0] = 1
			return vec, nil
		}
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / math.Sqrt(norm))
		}
		return vec, nil
	})
}

func TestSplitterKeepsLines(t *testing.T) {
	s := NewSplitter(10, "\n")
	chunks := s.Split("aaaa\nbbbb\ncccc\n\n")
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc\n\n"}, chunks)
}

func TestSplitterLongLine(t *testing.T) {
	s := NewSplitter(4, "\n")
	assert.Equal(t, []string{"ab", "cdef", "gh"}, s.Split("ab\ncdefgh"))
}

func TestSplitterDefaults(t *testing.T) {
	s := Splitter{}
	chunks := s.Split(strings.Repeat("x", 2500))
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], DefaultChunkSize)
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider([]Snippet{
		{Title: "coins", Content: "coin module", Keywords: []string{"coin"}},
		{Title: "tables", Content: "table module", Tags: []string{"table"}},
	}, 2)

	res, err := p.Search(context.Background(), "How do I mint a Coin?", 0)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "coins", res[0].Title)
	assert.Equal(t, float32(1), res[0].Score)

	res, err = p.Search(context.Background(), "nothing", 1)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestLoadStaticProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"title":"t","content":"c","keywords":["move"]}]`), 0o600))

	p, err := LoadStaticProvider(path, 1)
	require.NoError(t, err)
	res, err := p.Search(context.Background(), "move structs", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)

	_, err = LoadStaticProvider("", 1)
	assert.Error(t, err)
}

func TestChromemProviderSearch(t *testing.T) {
	p, err := NewChromemProvider(ChromemConfig{}, bagOfWords())
	require.NoError(t, err)

	res, err := p.Search(context.Background(), "anything", 1)
	require.NoError(t, err)
	assert.Empty(t, res)

	require.NoError(t, p.AddDocuments(context.Background(), []Document{
		{ID: "a", Title: "coin", Content: "coin transfer mint burn"},
		{ID: "b", Title: "table", Content: "table add borrow remove"},
	}))
	assert.Equal(t, 2, p.Count())

	res, err = p.Search(context.Background(), "how to mint a coin", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "a", res[0].ID)
	assert.Equal(t, "coin", res[0].Title)

	// k 大于文档数量时截断。
	res, err = p.Search(context.Background(), "table", 5)
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestIngest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "coin.md"), []byte("# Coin\ncoin mint"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "table.md"), []byte("table borrow"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("ignored"), 0o600))

	p, err := NewChromemProvider(ChromemConfig{}, bagOfWords())
	require.NoError(t, err)
	n, err := Ingest(context.Background(), dir, NewSplitter(0, ""), p)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, p.Count())

	docs, err := LoadDirectory(dir, NewSplitter(0, ""))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "coin.md#0", docs[0].ID)
	assert.Equal(t, "nested/table.md", docs[1].Source)
	assert.Equal(t, "table", docs[1].Title)
}

func TestParseQdrantEndpoint(t *testing.T) {
	host, port, tls, err := parseQdrantEndpoint("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 6334, port)
	assert.False(t, tls)

	host, port, tls, err = parseQdrantEndpoint("https://qdrant.example.com:7000")
	require.NoError(t, err)
	assert.Equal(t, "qdrant.example.com", host)
	assert.Equal(t, 7000, port)
	assert.True(t, tls)

	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", pointID("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
	assert.Equal(t, pointID("coin.md#0"), pointID("coin.md#0"))
}

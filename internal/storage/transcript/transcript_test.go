package transcript

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTurns() []Turn {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []Turn{
		{ID: "a", SessionID: "default", Mode: ModeSimilarity, Question: "q1", Context: "Context:\nc1", Answer: "a1", CreatedAt: base},
		{ID: "b", SessionID: "s2", Mode: ModeResource, Question: "q2", Answer: "a2", Addresses: []string{"0x1"}, CreatedAt: base.Add(time.Second)},
	}
}

func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()
	for _, turn := range sampleTurns() {
		require.NoError(t, repo.Save(ctx, turn))
	}

	latest, err := repo.ListLatest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "b", latest[0].ID)
	assert.Equal(t, []string{"0x1"}, latest[0].Addresses)
	assert.True(t, latest[0].CreatedAt.Equal(sampleTurns()[1].CreatedAt))

	all, err := repo.ListLatest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[1].ID)
	assert.Equal(t, "Context:\nc1", all[1].Context)
}

func TestFileRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "turns.jsonl")
	repo, err := NewFileRepository(path)
	require.NoError(t, err)
	exerciseRepository(t, repo)

	reopened, err := NewFileRepository(path)
	require.NoError(t, err)
	all, err := reopened.ListLatest(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
}

func TestFileRepositoryLoadKeepsNewestTurns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turns.jsonl")
	file, err := os.Create(path)
	require.NoError(t, err)
	w := bufio.NewWriter(file)
	const total = 3*maxCached + 7
	for i := 0; i < total; i++ {
		line, err := json.Marshal(Turn{ID: fmt.Sprintf("t%d", i), Question: "q"})
		require.NoError(t, err)
		_, _ = w.Write(append(line, '\n'))
		if i == 10 {
			_, _ = w.WriteString("not json\n")
		}
	}
	require.NoError(t, w.Flush())
	require.NoError(t, file.Close())

	repo, err := NewFileRepository(path)
	require.NoError(t, err)
	all, err := repo.ListLatest(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, all, maxCached)
	assert.Equal(t, fmt.Sprintf("t%d", total-1), all[0].ID)
	assert.Equal(t, fmt.Sprintf("t%d", total-maxCached), all[maxCached-1].ID)

	require.NoError(t, repo.Save(context.Background(), Turn{ID: "fresh"}))
	latest, err := repo.ListLatest(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "fresh", latest[0].ID)
	assert.Equal(t, fmt.Sprintf("t%d", total-1), latest[1].ID)
}

func TestSQLiteRepository(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "movegpt.db")
	repo, err := NewSQLRepository(context.Background(), DialectSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	exerciseRepository(t, repo)

	// 重复打开不会重复执行迁移。
	again, err := NewSQLRepository(context.Background(), DialectSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestOpen(t *testing.T) {
	repo, err := Open(context.Background(), Config{Driver: "none"})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), Turn{}))

	repo, err = Open(context.Background(), Config{Driver: "file", Path: filepath.Join(t.TempDir(), "t.jsonl")})
	require.NoError(t, err)
	assert.IsType(t, &FileRepository{}, repo)

	_, err = Open(context.Background(), Config{Driver: "mysql"})
	assert.Error(t, err)

	_, err = Open(context.Background(), Config{Driver: "mongo"})
	assert.Error(t, err)
}

func TestLoadMigrations(t *testing.T) {
	list, err := loadMigrations(fstest.MapFS{
		"002_more.sql":  {Data: []byte("CREATE TABLE b (x INT);")},
		"001_init.sql":  {Data: []byte("CREATE TABLE a (x INT);\n\nCREATE INDEX i ON a (x);")},
		"003_empty.sql": {Data: []byte(" ; ")},
		"README.md":     {Data: []byte("ignored")},
	})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "001", list[0].version)
	assert.Len(t, list[0].statements, 2)
	assert.Equal(t, "002_more.sql", list[1].name)
}

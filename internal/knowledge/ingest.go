package knowledge

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// 分片默认参数。
const (
	DefaultChunkSize = 2000
	DefaultSeparator = "\n"
)

// Splitter 按分隔符把文本切成不超过 ChunkSize 个字符的分片。
// 单个片段超过 ChunkSize 时才会在片段内部截断。
type Splitter struct {
	ChunkSize int
	Separator string
}

// NewSplitter 创建分片器，参数为零值时使用默认值。
func NewSplitter(chunkSize int, separator string) Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if separator == "" {
		separator = DefaultSeparator
	}
	return Splitter{ChunkSize: chunkSize, Separator: separator}
}

// Split 切分文本，丢弃只含空白的分片。
func (s Splitter) Split(text string) []string {
	if s.ChunkSize <= 0 || s.Separator == "" {
		s = NewSplitter(s.ChunkSize, s.Separator)
	}
	sepLen := utf8.RuneCountInString(s.Separator)

	var (
		chunks  []string
		current []string
		size    int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		chunk := strings.Join(current, s.Separator)
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		current = current[:0]
		size = 0
	}

	for _, piece := range strings.Split(text, s.Separator) {
		pieceLen := utf8.RuneCountInString(piece)
		if pieceLen > s.ChunkSize {
			flush()
			runes := []rune(piece)
			for start := 0; start < len(runes); start += s.ChunkSize {
				end := min(start+s.ChunkSize, len(runes))
				current = append(current, string(runes[start:end]))
				flush()
			}
			continue
		}
		extra := pieceLen
		if len(current) > 0 {
			extra += sepLen
		}
		if size+extra > s.ChunkSize {
			flush()
			extra = pieceLen
		}
		current = append(current, piece)
		size += extra
	}
	flush()
	return chunks
}

// LoadDirectory 读取目录下所有 markdown 文件并切分为文档。
func LoadDirectory(dir string, splitter Splitter) ([]Document, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("遍历文档目录失败: %w", err)
	}
	sort.Strings(files)

	var docs []Document
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取文档 %s 失败: %w", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		for i, chunk := range splitter.Split(string(data)) {
			docs = append(docs, Document{
				ID:      fmt.Sprintf("%s#%d", rel, i),
				Title:   title,
				Source:  rel,
				Content: chunk,
			})
		}
	}
	return docs, nil
}

// Ingest 把目录中的文档写入索引，返回写入的分片数。
func Ingest(ctx context.Context, dir string, splitter Splitter, indexer Indexer) (int, error) {
	docs, err := LoadDirectory(dir, splitter)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}
	if err := indexer.AddDocuments(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}

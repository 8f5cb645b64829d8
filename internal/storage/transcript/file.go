package transcript

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// maxCached 是文件仓库在内存中保留的最近记录数。
const maxCached = 512

// FileRepository 以 JSON Lines 追加写入记录，并在内存中保留最近的记录。
type FileRepository struct {
	mu       sync.RWMutex
	dataFile string
	turns    []Turn
}

// NewFileRepository 打开（或创建）记录文件并加载已有记录。
func NewFileRepository(path string) (*FileRepository, error) {
	if path == "" {
		path = "turns.jsonl"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	repo := &FileRepository{dataFile: path}
	if err := repo.loadFromDisk(); err != nil {
		return nil, err
	}
	return repo, nil
}

// Save 以追加写的方式记录一轮问答。
func (f *FileRepository) Save(_ context.Context, turn Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.dataFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("打开对话记录失败: %w", err)
	}
	defer file.Close()

	encoded, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("序列化对话记录失败: %w", err)
	}
	if _, err := file.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("写入对话记录失败: %w", err)
	}

	f.turns = append([]Turn{turn}, f.turns...)
	if len(f.turns) > maxCached {
		f.turns = f.turns[:maxCached]
	}
	return nil
}

// ListLatest 返回最近的记录，按时间倒序排列。limit<=0 返回全部缓存记录。
func (f *FileRepository) ListLatest(_ context.Context, limit int) ([]Turn, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if limit <= 0 || limit > len(f.turns) {
		limit = len(f.turns)
	}
	results := make([]Turn, limit)
	copy(results, f.turns[:limit])
	return results, nil
}

// Close 文件在每次写入后已关闭，这里无需释放资源。
func (f *FileRepository) Close() error { return nil }

func (f *FileRepository) loadFromDisk() error {
	file, err := os.OpenFile(f.dataFile, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("读取对话记录失败: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	// 按文件顺序读取，只保留最后 maxCached 条。
	restored := make([]Turn, 0, maxCached)
	for scanner.Scan() {
		var turn Turn
		if err := json.Unmarshal(scanner.Bytes(), &turn); err != nil {
			continue
		}
		if len(restored) == 2*maxCached {
			restored = append(restored[:0], restored[maxCached:]...)
		}
		restored = append(restored, turn)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("解析对话记录失败: %w", err)
	}
	if len(restored) > maxCached {
		restored = restored[len(restored)-maxCached:]
	}
	slices.Reverse(restored)
	f.turns = restored
	return nil
}

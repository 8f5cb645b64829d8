package transcript

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// 对话模式。
const (
	ModeSimilarity = "similarity"
	ModeResource   = "resource"
)

// Turn 是一轮完成的问答。
type Turn struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Mode      string    `json:"mode"`
	Question  string    `json:"question"`
	Context   string    `json:"context"`
	Answer    string    `json:"answer"`
	Addresses []string  `json:"addresses,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository 抽象对话记录的持久化接口。
type Repository interface {
	Save(ctx context.Context, turn Turn) error
	ListLatest(ctx context.Context, limit int) ([]Turn, error)
	Close() error
}

// Config 选择存储驱动。
type Config struct {
	Driver string
	DSN    string
	Path   string
}

// Open 根据驱动名称创建仓库。
func Open(ctx context.Context, cfg Config) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return Discard{}, nil
	case "file":
		return NewFileRepository(cfg.Path)
	case "mysql":
		return NewSQLRepository(ctx, DialectMySQL, cfg.DSN)
	case "sqlite":
		return NewSQLRepository(ctx, DialectSQLite, cfg.DSN)
	default:
		return nil, fmt.Errorf("暂不支持的存储驱动: %s", cfg.Driver)
	}
}

// Discard 丢弃所有记录。
type Discard struct{}

func (Discard) Save(context.Context, Turn) error                { return nil }
func (Discard) ListLatest(context.Context, int) ([]Turn, error) { return nil, nil }
func (Discard) Close() error                                    { return nil }

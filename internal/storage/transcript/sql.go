package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Dialect 标识 SQL 驱动。
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

// SQLRepository 使用 MySQL 或 SQLite 存储对话记录。
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLRepository 创建连接池并执行迁移。
func NewSQLRepository(ctx context.Context, dialect Dialect, dsn string) (*SQLRepository, error) {
	db, err := openDatabase(ctx, dialect, dsn)
	if err != nil {
		return nil, err
	}
	repo := &SQLRepository{db: db, dialect: dialect}
	if err := repo.runMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

func openDatabase(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s DSN 不能为空", dialect)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("连接 %s 失败: %w", dialect, err)
	}

	switch dialect {
	case DialectSQLite:
		// SQLite 只允许单个写连接。
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("无法连接到 %s: %w", dialect, err)
	}
	return db, nil
}

// Save 将一轮问答写入数据库。
func (s *SQLRepository) Save(ctx context.Context, turn Turn) error {
	const stmt = `INSERT INTO turns
        (id, session_id, mode, question, context, answer, addresses, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	addresses, err := json.Marshal(turn.Addresses)
	if err != nil {
		return fmt.Errorf("序列化地址列表失败: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, stmt,
		turn.ID,
		turn.SessionID,
		turn.Mode,
		turn.Question,
		turn.Context,
		turn.Answer,
		string(addresses),
		turn.CreatedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("写入 %s 失败: %w", s.dialect, err)
	}
	return nil
}

// ListLatest 查询最近的若干条记录。
func (s *SQLRepository) ListLatest(ctx context.Context, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, session_id, mode, question, context, answer, addresses, created_at
        FROM turns ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询对话记录失败: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			turn      Turn
			addresses string
			createdAt int64
		)
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Mode, &turn.Question, &turn.Context, &turn.Answer, &addresses, &createdAt); err != nil {
			return nil, fmt.Errorf("解析对话记录失败: %w", err)
		}
		if addresses != "" && addresses != "null" {
			if err := json.Unmarshal([]byte(addresses), &turn.Addresses); err != nil {
				return nil, fmt.Errorf("解析地址列表失败: %w", err)
			}
		}
		turn.CreatedAt = time.Unix(0, createdAt).UTC()
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历对话记录失败: %w", err)
	}
	return turns, nil
}

// Close 关闭底层数据库连接。
func (s *SQLRepository) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	xerrors "MoveGPT/internal/errors"
	"MoveGPT/internal/storage/transcript"
)

// Publisher 把完成的问答推送给订阅方。
type Publisher interface {
	Publish(ctx context.Context, turn transcript.Turn) error
	Close() error
}

// Config 选择发布驱动。
type Config struct {
	Driver   string
	Buffer   int
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
}

// New 根据驱动名称创建发布器。
func New(ctx context.Context, cfg Config) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "none":
		return Noop{}, nil
	case "memory":
		return NewMemoryPublisher(cfg.Buffer), nil
	case "redis":
		return NewRedisPublisher(ctx, cfg.Redis)
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.RabbitMQ)
	default:
		return nil, fmt.Errorf("暂不支持的事件驱动: %s", cfg.Driver)
	}
}

// Noop 丢弃所有事件。
type Noop struct{}

func (Noop) Publish(context.Context, transcript.Turn) error { return nil }
func (Noop) Close() error                                   { return nil }

func encode(turn transcript.Turn) ([]byte, error) {
	payload, err := json.Marshal(turn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeQueueFailure, err, "序列化事件失败")
	}
	return payload, nil
}

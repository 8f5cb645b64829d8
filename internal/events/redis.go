package events

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	xerrors "MoveGPT/internal/errors"
	"MoveGPT/internal/storage/transcript"
)

// RedisConfig 描述 Redis 连接参数。
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Key      string
}

type listPusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisPublisher 以 LPUSH 把事件的 JSON 写入 Redis list，消费方可用 BRPOP 读取。
type RedisPublisher struct {
	client *redis.Client
	list   listPusher
	key    string
}

// NewRedisPublisher 创建 Redis 发布器。
func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, xerrors.Wrap(xerrors.CodeQueueFailure, err, "连接 Redis 失败")
	}
	key := cfg.Key
	if key == "" {
		key = "movegpt:turns"
	}
	return &RedisPublisher{client: client, list: client, key: key}, nil
}

// Publish 将事件写入 Redis。
func (p *RedisPublisher) Publish(ctx context.Context, turn transcript.Turn) error {
	payload, err := encode(turn)
	if err != nil {
		return err
	}
	if err := p.list.LPush(ctx, p.key, payload).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeQueueFailure, err, "Redis 发布事件失败")
	}
	return nil
}

// Close 关闭 Redis 连接。
func (p *RedisPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

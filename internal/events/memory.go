package events

import (
	"context"
	"sync"

	xerrors "MoveGPT/internal/errors"
	"MoveGPT/internal/storage/transcript"
)

// MemoryPublisher 使用带缓冲的 channel 在进程内分发事件。缓冲区满时丢弃并返回错误。
type MemoryPublisher struct {
	mu     sync.RWMutex
	ch     chan transcript.Turn
	closed bool
}

// NewMemoryPublisher 创建进程内发布器。
func NewMemoryPublisher(buffer int) *MemoryPublisher {
	if buffer <= 0 {
		buffer = 64
	}
	return &MemoryPublisher{ch: make(chan transcript.Turn, buffer)}
}

// Publish 投递事件，不会阻塞调用方。
func (m *MemoryPublisher) Publish(ctx context.Context, turn transcript.Turn) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return xerrors.New(xerrors.CodeQueueFailure, "事件通道已关闭")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case m.ch <- turn:
		return nil
	default:
		return xerrors.New(xerrors.CodeQueueFailure, "事件通道已满",
			xerrors.WithMetadata("turn_id", turn.ID))
	}
}

// Subscribe 返回事件通道，发布器关闭后通道随之关闭。
func (m *MemoryPublisher) Subscribe() <-chan transcript.Turn {
	return m.ch
}

// Close 关闭事件通道。
func (m *MemoryPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.ch)
	}
	return nil
}

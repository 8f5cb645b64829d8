package conversation

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionID 是未指定会话时使用的标识。
const DefaultSessionID = "default"

// Session 拥有一份历史，并保证同一会话的轮次串行执行。
type Session struct {
	ID string

	mu      sync.Mutex
	history History

	// 以下字段由 Manager.mu 保护。
	refs     int
	lastUsed time.Time
}

// NewSession 创建空会话。
func NewSession(id string) *Session {
	return &Session{ID: id}
}

// Lock 在整个轮次期间占用会话。
func (s *Session) Lock() { s.mu.Lock() }

// Unlock 释放会话。
func (s *Session) Unlock() { s.mu.Unlock() }

// History 返回会话历史，调用方必须持有会话锁。
func (s *Session) History() *History { return &s.history }

// Commit 追加一轮问答，调用方必须持有会话锁。
func (s *Session) Commit(question, answer string) {
	s.history.Append(RoleHuman, question)
	s.history.Append(RoleAssistant, answer)
}

func (s *Session) empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len() == 0
}

// Render 在加锁状态下渲染完整历史。
func (s *Session) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Render()
}

// Manager 按标识维护进程内的会话。
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	now         func() time.Time
}

// ManagerOption 配置会话管理器。
type ManagerOption func(*Manager)

// WithMaxSessions 限制保留的会话数量，超出时淘汰最久未使用的空闲会话。0 表示不限制。
func WithMaxSessions(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.maxSessions = n
		}
	}
}

// NewManager 创建会话管理器。
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{sessions: make(map[string]*Session), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func normalizeID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return DefaultSessionID
	}
	return id
}

// Get 返回指定会话，不存在时创建。空标识对应默认会话。
func (m *Manager) Get(id string) *Session {
	id = normalizeID(id)

	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return session
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok = m.sessions[id]; ok {
		return session
	}
	session = NewSession(id)
	session.lastUsed = m.now()
	m.sessions[id] = session
	m.evictLocked(session)
	return session
}

// Acquire 返回指定会话并标记为使用中，用完后必须调用 Release。
// 同一标识的并发调用拿到同一个会话。
func (m *Manager) Acquire(id string) *Session {
	id = normalizeID(id)

	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		session = NewSession(id)
		m.sessions[id] = session
	}
	session.refs++
	session.lastUsed = m.now()
	return session
}

// Release 归还 Acquire 得到的会话。无人使用且没有历史的会话会被移除。
func (m *Manager) Release(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.refs > 0 {
		session.refs--
	}
	session.lastUsed = m.now()
	if session.refs == 0 && session.empty() && m.sessions[session.ID] == session {
		delete(m.sessions, session.ID)
	}
	m.evictLocked(nil)
}

// evictLocked 在超出上限时淘汰最久未使用的空闲会话（keep 除外），调用方必须持有写锁。
func (m *Manager) evictLocked(keep *Session) {
	if m.maxSessions <= 0 {
		return
	}
	for len(m.sessions) > m.maxSessions {
		var oldest *Session
		for _, session := range m.sessions {
			if session.refs > 0 || session == keep {
				continue
			}
			if oldest == nil || session.lastUsed.Before(oldest.lastUsed) {
				oldest = session
			}
		}
		if oldest == nil {
			return
		}
		delete(m.sessions, oldest.ID)
	}
}

// New 使用随机标识创建会话。
func (m *Manager) New() *Session {
	return m.Get(uuid.NewString())
}

// Lookup 查找已存在的会话。
func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	return session, ok
}

// Snapshot 返回会话的渲染历史。
func (m *Manager) Snapshot(id string) (string, bool) {
	session, ok := m.Lookup(id)
	if !ok {
		return "", false
	}
	return session.Render(), true
}

// Len 返回会话数量。
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

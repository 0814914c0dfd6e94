package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/EcommerceGo/storefront/internal/domain"
)

// Factory builds the wishlist service of a new session. mode and userID come
// from the first request seen for that session.
type Factory func(sessionID string, mode domain.Mode, userID string) Wishlists

// Session groups the per-session store and watcher.
type Session struct {
	ID      string
	Store   *Store
	Watcher *Watcher

	lastSeen time.Time
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// IdleTTL evicts sessions that have not been acquired for this long.
	IdleTTL time.Duration
	// ResetDelay is passed to every Watcher.
	ResetDelay time.Duration
	Callbacks  Callbacks
}

// Manager is the registry of live sessions.
type Manager struct {
	cfg     ManagerConfig
	factory Factory
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	nowFunc  func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewManager creates a manager and starts its eviction loop.
func NewManager(cfg ManagerConfig, factory Factory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:      cfg,
		factory:  factory,
		logger:   logger,
		sessions: make(map[string]*Session),
		nowFunc:  time.Now,
		stop:     make(chan struct{}),
	}
	if cfg.IdleTTL > 0 {
		go m.cleanupLoop(cfg.IdleTTL)
	}
	return m
}

// Acquire returns the session for id, creating it on first use. The initial
// mode of a new session follows authenticated; later changes go through the
// session's Watcher.
func (m *Manager) Acquire(id string, authenticated bool, userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	if s, ok := m.sessions[id]; ok {
		s.lastSeen = now
		return s
	}

	mode := domain.ModeGuest
	if authenticated {
		mode = domain.ModeAuthenticated
	}
	store := NewStore(m.factory(id, mode, userID))
	s := &Session{
		ID:       id,
		Store:    store,
		Watcher:  NewWatcher(store, m.cfg.ResetDelay, m.cfg.Callbacks, m.logger),
		lastSeen: now,
	}
	m.sessions[id] = s
	activeSessions.Inc()

	m.logger.Debug("wishlist session created",
		slog.String("session_id", id),
		slog.String("mode", string(mode)),
	)
	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop halts eviction and cancels pending watcher timers.
func (m *Manager) Stop() {
	m.once.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.Watcher.Stop()
	}
}

func (m *Manager) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFunc()
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) > m.cfg.IdleTTL {
			s.Watcher.Stop()
			delete(m.sessions, id)
			activeSessions.Dec()
		}
	}
}

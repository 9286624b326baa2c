// Package session keeps live games in memory: unguessable IDs, sliding TTL
// eviction, and a per-session guard that serializes writers.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-api/internal/domain"
)

var (
	// ErrNotFound covers unknown, expired, and deleted session IDs alike,
	// so a caller cannot distinguish expiry from never-existed.
	ErrNotFound = errors.New("session not found")
	// ErrBusy reports that another request holds the session's guard.
	ErrBusy = errors.New("session busy")
)

const (
	defaultTTL           = time.Hour
	defaultSweepInterval = time.Minute
)

// Session pairs an ID with one game. Writers hold the guard across their
// whole operation (including engine calls) and publish through Commit;
// readers take consistent copies through Snapshot without waiting on the
// guard. CreatedAt and LastActiveAt are managed by the Manager.
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastActiveAt time.Time

	stateMu sync.RWMutex
	game    domain.GameRecord

	guard chan struct{}
}

// Snapshot returns an independent copy of the game record. Safe to call
// while a writer is mid-operation; it sees the last committed state.
func (s *Session) Snapshot() domain.GameRecord {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.game.Clone()
}

// Commit publishes a new game record. Callers must hold the guard.
func (s *Session) Commit(game domain.GameRecord) {
	s.stateMu.Lock()
	s.game = game
	s.stateMu.Unlock()
}

// TryLock claims the single-writer guard without waiting.
func (s *Session) TryLock() bool {
	select {
	case s.guard <- struct{}{}:
		return true
	default:
		return false
	}
}

// Lock claims the guard, waiting until the current holder releases it or ctx
// expires.
func (s *Session) Lock(ctx context.Context) error {
	select {
	case s.guard <- struct{}{}:
		return nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrBusy
		}
		return ctx.Err()
	}
}

func (s *Session) Unlock() {
	<-s.guard
}

type Config struct {
	// TTL is the sliding idle window; zero means one hour.
	TTL time.Duration
	// SweepInterval paces the janitor; zero means one minute, negative
	// disables the background sweep.
	SweepInterval time.Duration
	Logger        *zap.Logger
}

// Manager is the in-memory session store. Sessions live until deleted or
// idle past TTL; the janitor never evicts a session whose guard is held.
type Manager struct {
	ttl    time.Duration
	sweep  time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewManager(cfg Config) *Manager {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}
	sweep := cfg.SweepInterval
	if sweep == 0 {
		sweep = defaultSweepInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Manager{
		ttl:      ttl,
		sweep:    sweep,
		logger:   logger,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if sweep > 0 {
		go m.janitor()
	} else {
		close(m.done)
	}
	return m
}

// Create registers a new session around the given game and returns it with
// a fresh unguessable ID.
func (m *Manager) Create(game domain.GameRecord) *Session {
	now := time.Now()
	s := &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActiveAt: now,
		game:         game,
		guard:        make(chan struct{}, 1),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	total := len(m.sessions)
	m.mu.Unlock()

	m.logger.Debug("session created",
		zap.String("session_id", s.ID),
		zap.Int("sessions", total))
	return s
}

// Get returns a live session and refreshes its idle window. Expired sessions
// are reported as not found even before the janitor collects them.
func (m *Manager) Get(id string) (*Session, error) {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if now.Sub(s.LastActiveAt) > m.ttl {
		return nil, ErrNotFound
	}
	s.LastActiveAt = now
	return s, nil
}

// Peek returns a session without refreshing its idle window.
func (m *Manager) Peek(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if time.Since(s.LastActiveAt) > m.ttl {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts every expired idle session and returns how many went. A
// session whose guard is held is skipped; the next sweep retries it.
func (m *Manager) Sweep() int {
	now := time.Now()

	m.mu.Lock()
	expired := make([]*Session, 0)
	for _, s := range m.sessions {
		if now.Sub(s.LastActiveAt) > m.ttl {
			expired = append(expired, s)
		}
	}
	m.mu.Unlock()

	evicted := 0
	for _, s := range expired {
		if !s.TryLock() {
			continue
		}
		m.mu.Lock()
		// Re-check: the session may have been touched while unguarded.
		if cur, ok := m.sessions[s.ID]; ok && cur == s && now.Sub(cur.LastActiveAt) > m.ttl {
			delete(m.sessions, s.ID)
			evicted++
		}
		m.mu.Unlock()
		s.Unlock()
	}

	if evicted > 0 {
		m.logger.Info("evicted idle sessions",
			zap.Int("evicted", evicted),
			zap.Int("remaining", m.Len()))
	}
	return evicted
}

// Close stops the janitor. Stored sessions become unreachable once the
// owning service drops the manager.
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
}

func (m *Manager) janitor() {
	defer close(m.done)
	ticker := time.NewTicker(m.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stop:
			return
		}
	}
}

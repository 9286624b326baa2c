package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/park285/cheese-api/internal/domain"
)

func testRecord() domain.GameRecord {
	return domain.GameRecord{
		MovesUCI:   []string{"e2e4"},
		Preset:     "level3",
		HumanColor: domain.ColorWhite,
		StartedAt:  time.Now(),
	}
}

func newTestManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()
	// Negative sweep disables the janitor so tests control eviction.
	m := NewManager(Config{TTL: ttl, SweepInterval: -1})
	t.Cleanup(m.Close)
	return m
}

func TestManagerCreateAndGet(t *testing.T) {
	m := newTestManager(t, time.Hour)

	s := m.Create(testRecord())
	if s.ID == "" {
		t.Fatal("session created without ID")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != s {
		t.Fatal("Get returned a different session")
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d, want 1", m.Len())
	}

	if _, err := m.Get("11111111-2222-3333-4444-555555555555"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown ID error = %v, want ErrNotFound", err)
	}
}

func TestManagerExpiry(t *testing.T) {
	m := newTestManager(t, 20*time.Millisecond)

	s := m.Create(testRecord())
	time.Sleep(50 * time.Millisecond)

	// Lazy expiry hides the session even before a sweep runs.
	if _, err := m.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired Get error = %v, want ErrNotFound", err)
	}

	if evicted := m.Sweep(); evicted != 1 {
		t.Fatalf("Sweep evicted %d, want 1", evicted)
	}
	if m.Len() != 0 {
		t.Fatalf("Len after sweep = %d, want 0", m.Len())
	}
}

func TestManagerGetRefreshesIdleWindow(t *testing.T) {
	m := newTestManager(t, 60*time.Millisecond)

	s := m.Create(testRecord())
	for i := 0; i < 4; i++ {
		time.Sleep(30 * time.Millisecond)
		if _, err := m.Get(s.ID); err != nil {
			t.Fatalf("Get at touch %d: %v", i, err)
		}
	}
}

func TestManagerSweepSkipsGuardedSession(t *testing.T) {
	m := newTestManager(t, 20*time.Millisecond)

	s := m.Create(testRecord())
	if !s.TryLock() {
		t.Fatal("fresh session guard unavailable")
	}
	time.Sleep(50 * time.Millisecond)

	if evicted := m.Sweep(); evicted != 0 {
		t.Fatalf("Sweep evicted %d guarded sessions", evicted)
	}
	if m.Len() != 1 {
		t.Fatalf("Len = %d, want guarded session kept", m.Len())
	}

	s.Unlock()
	if evicted := m.Sweep(); evicted != 1 {
		t.Fatalf("Sweep after unlock evicted %d, want 1", evicted)
	}
}

func TestSessionGuardSerializesWriters(t *testing.T) {
	m := newTestManager(t, time.Hour)
	s := m.Create(testRecord())

	if !s.TryLock() {
		t.Fatal("first TryLock failed")
	}
	if s.TryLock() {
		t.Fatal("second TryLock acquired a held guard")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	if err := s.Lock(ctx); !errors.Is(err, ErrBusy) {
		t.Fatalf("Lock on held guard = %v, want ErrBusy", err)
	}

	s.Unlock()
	if !s.TryLock() {
		t.Fatal("TryLock failed after Unlock")
	}
	s.Unlock()
}

func TestSessionSnapshotIsIsolated(t *testing.T) {
	m := newTestManager(t, time.Hour)
	s := m.Create(testRecord())

	snap := s.Snapshot()
	snap.MovesUCI[0] = "a2a3"
	snap.MovesUCI = append(snap.MovesUCI, "e7e5")

	again := s.Snapshot()
	if len(again.MovesUCI) != 1 || again.MovesUCI[0] != "e2e4" {
		t.Fatalf("stored record mutated through snapshot: %v", again.MovesUCI)
	}
}

func TestSessionCommitPublishes(t *testing.T) {
	m := newTestManager(t, time.Hour)
	s := m.Create(testRecord())

	if !s.TryLock() {
		t.Fatal("TryLock failed")
	}
	next := s.Snapshot()
	next.MovesUCI = append(next.MovesUCI, "e7e5")
	s.Commit(next)
	s.Unlock()

	if got := s.Snapshot(); len(got.MovesUCI) != 2 {
		t.Fatalf("committed moves = %v", got.MovesUCI)
	}
}

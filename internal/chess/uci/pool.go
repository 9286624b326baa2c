package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

const defaultSpawnFailureLimit = 3

var (
	// ErrPoolClosed reports an acquire after Close.
	ErrPoolClosed = errors.New("engine pool closed")
	// ErrPoolDegraded reports that consecutive spawn failures tripped the
	// pool; acquisitions fail fast until Reset.
	ErrPoolDegraded = errors.New("engine pool degraded")
	// ErrAcquireTimeout reports that every session stayed leased for the
	// whole acquire deadline.
	ErrAcquireTimeout = errors.New("engine pool acquire timed out")
)

type PoolConfig struct {
	BinaryPath string
	// Capacity bounds live subprocesses. Zero means one per CPU, clamped
	// to [2, 4].
	Capacity int
	// SpawnFailureLimit is the consecutive spawn failure count that marks
	// the pool degraded. Zero means 3.
	SpawnFailureLimit int
	// BaseOptions configure fresh subprocesses. Acquired sessions are
	// retuned per request via ApplyOptions, so these only need to be a
	// sane starting point.
	BaseOptions Options
	Logger      *zap.Logger
}

// Pool maintains up to Capacity engine subprocesses and leases each to one
// caller at a time. Sessions spawn lazily, are reused while healthy, and are
// replaced after a crash or failed search.
type Pool struct {
	binaryPath string
	capacity   int
	spawnLimit int
	baseOpt    Options
	logger     *zap.Logger

	// lifeCtx parents every subprocess so that Close kills leased
	// sessions too, not only idle ones.
	lifeCtx context.Context
	cancel  context.CancelFunc

	mu            sync.Mutex
	total         int
	spawnFailures int
	degraded      bool
	closed        bool

	idle chan *Session
	// freed wakes one parked acquirer after a discard opens a slot, so it
	// can take the spawn path instead of waiting out its deadline.
	freed chan struct{}
}

func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("binary path required")
	}
	if _, err := os.Stat(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("engine binary check: %w", err)
	}

	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity()
	}
	spawnLimit := cfg.SpawnFailureLimit
	if spawnLimit <= 0 {
		spawnLimit = defaultSpawnFailureLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	baseOpt := cfg.BaseOptions
	if baseOpt.Threads <= 0 {
		baseOpt.Threads = 1
	}
	if baseOpt.HashMB <= 0 {
		baseOpt.HashMB = 64
	}
	if baseOpt.MultiPV <= 0 {
		baseOpt.MultiPV = 1
	}
	if err := validateOptions(baseOpt); err != nil {
		return nil, fmt.Errorf("base options: %w", err)
	}

	lifeCtx, cancel := context.WithCancel(context.Background())
	return &Pool{
		binaryPath: cfg.BinaryPath,
		capacity:   capacity,
		spawnLimit: spawnLimit,
		baseOpt:    baseOpt,
		logger:     logger,
		lifeCtx:    lifeCtx,
		cancel:     cancel,
		idle:       make(chan *Session, capacity),
		freed:      make(chan struct{}, 1),
	}, nil
}

func defaultCapacity() int {
	cpu := runtime.NumCPU()
	if cpu < 2 {
		return 2
	}
	if cpu > 4 {
		return 4
	}
	return cpu
}

// Acquire leases a session, spawning one while the pool is below capacity
// and otherwise blocking until a lease returns or ctx expires.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	for {
		if err := p.gate(); err != nil {
			return nil, err
		}

		select {
		case s := <-p.idle:
			if ready := p.vet(ctx, s); ready != nil {
				return ready, nil
			}
			continue
		default:
		}

		if p.reserveSlot() {
			return p.spawn()
		}

		select {
		case s := <-p.idle:
			if ready := p.vet(ctx, s); ready != nil {
				return ready, nil
			}
		case <-p.freed:
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %w", ErrAcquireTimeout, ctx.Err())
			}
			return nil, ctx.Err()
		}
	}
}

// Release returns a leased session. A non-nil searchErr or a crashed flag
// discards the subprocess and wakes a parked acquirer to respawn the slot.
func (p *Pool) Release(session *Session, searchErr error) {
	if session == nil {
		return
	}
	if searchErr != nil || session.Crashed() {
		p.logger.Warn("discarding engine session",
			zap.Int("pid", session.PID()),
			zap.Error(searchErr))
		p.discard(session)
		p.notifyFreed()
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		p.discard(session)
		return
	}

	select {
	case p.idle <- session:
	default:
		p.discard(session)
	}
}

// Reset clears the degraded flag and proves the binary spawnable again by
// starting one session eagerly.
func (p *Pool) Reset(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	wasDegraded := p.degraded
	p.degraded = false
	p.spawnFailures = 0
	p.mu.Unlock()

	if wasDegraded {
		p.logger.Info("engine pool reset, verifying spawn")
	}

	if !p.reserveSlot() {
		// Already at capacity with live sessions; nothing to prove.
		return nil
	}
	session, err := p.spawn()
	if err != nil {
		return err
	}
	if err := session.EnsureReady(ctx); err != nil {
		p.discard(session)
		return err
	}
	p.Release(session, nil)
	return nil
}

type PoolStats struct {
	Capacity      int  `json:"capacity"`
	Live          int  `json:"live"`
	Idle          int  `json:"idle"`
	Degraded      bool `json:"degraded"`
	SpawnFailures int  `json:"spawn_failures"`
}

func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{
		Capacity:      p.capacity,
		Live:          p.total,
		Idle:          len(p.idle),
		Degraded:      p.degraded,
		SpawnFailures: p.spawnFailures,
	}
}

// Close kills every subprocess, leased ones included via the lifecycle
// context. Safe to call more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	for {
		select {
		case session := <-p.idle:
			p.discard(session)
		default:
			return nil
		}
	}
}

func (p *Pool) gate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	if p.degraded {
		return fmt.Errorf("%w: %d consecutive spawn failures", ErrPoolDegraded, p.spawnFailures)
	}
	return nil
}

// vet checks an idle session before handing it out, discarding it when the
// subprocess went away between leases.
func (p *Pool) vet(ctx context.Context, session *Session) *Session {
	if session == nil {
		return nil
	}
	if session.Crashed() {
		p.discard(session)
		return nil
	}
	if err := session.EnsureReady(ctx); err != nil {
		p.logger.Warn("idle engine session unresponsive",
			zap.Int("pid", session.PID()),
			zap.Error(err))
		p.discard(session)
		return nil
	}
	return session
}

func (p *Pool) reserveSlot() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.total >= p.capacity {
		return false
	}
	p.total++
	return true
}

// spawn starts a subprocess for an already reserved slot, releasing the slot
// and advancing the degradation counter on failure.
func (p *Pool) spawn() (*Session, error) {
	session, err := NewSession(p.lifeCtx, p.binaryPath, p.baseOpt)
	if err != nil {
		p.mu.Lock()
		p.total--
		p.spawnFailures++
		failures := p.spawnFailures
		tripped := false
		if !p.degraded && failures >= p.spawnLimit {
			p.degraded = true
			tripped = true
		}
		p.mu.Unlock()

		if tripped {
			p.logger.Error("engine pool degraded",
				zap.Int("spawn_failures", failures),
				zap.Error(err))
		} else {
			p.logger.Warn("engine spawn failed",
				zap.Int("spawn_failures", failures),
				zap.Error(err))
		}
		return nil, fmt.Errorf("spawn engine: %w", err)
	}

	p.mu.Lock()
	p.spawnFailures = 0
	p.mu.Unlock()

	p.logger.Debug("engine session spawned", zap.Int("pid", session.PID()))
	return session, nil
}

func (p *Pool) notifyFreed() {
	select {
	case p.freed <- struct{}{}:
	default:
	}
}

func (p *Pool) discard(session *Session) {
	if session == nil {
		return
	}
	_ = session.Close()
	p.mu.Lock()
	p.total--
	p.mu.Unlock()
}

// Package chess wraps the UCI engine pool behind a difficulty-aware
// evaluation facade: presets pick the engine options and search limits, the
// opening book short-circuits early plies, and the humanizer turns raw
// multipv candidates into a played move.
package chess

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-api/internal/chess/openingbook"
	"github.com/park285/cheese-api/internal/chess/uci"
)

const defaultAcquireTimeout = 5 * time.Second

type Config struct {
	BinaryPath string
	// PoolSize bounds concurrent engine subprocesses. Zero picks a
	// CPU-derived default.
	PoolSize int
	// SpawnFailureLimit is forwarded to the pool's degradation counter.
	SpawnFailureLimit int
	// AcquireTimeout bounds the wait for a free pooled session,
	// independent of the caller's overall evaluation deadline.
	AcquireTimeout time.Duration
	// DefaultPreset seeds the base options fresh subprocesses start with.
	DefaultPreset string
	Logger        *zap.Logger
}

type Engine struct {
	pool           *uci.Pool
	acquireTimeout time.Duration
	logger         *zap.Logger
	randMu         sync.Mutex
	rand           *rand.Rand
}

func NewEngine(cfg Config) (*Engine, error) {
	presetName := cfg.DefaultPreset
	if presetName == "" {
		presetName = DefaultPresetName
	}
	preset, err := GetPreset(presetName)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := uci.NewPool(uci.PoolConfig{
		BinaryPath:        cfg.BinaryPath,
		Capacity:          cfg.PoolSize,
		SpawnFailureLimit: cfg.SpawnFailureLimit,
		BaseOptions:       optionsFromPreset(preset),
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}

	acquireTimeout := cfg.AcquireTimeout
	if acquireTimeout <= 0 {
		acquireTimeout = defaultAcquireTimeout
	}

	return &Engine{
		pool:           pool,
		acquireTimeout: acquireTimeout,
		logger:         logger,
		rand:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

type EvaluateRequest struct {
	PresetName string
	FEN        string
	Moves      []string
}

type EvaluateResult struct {
	PresetName     string        `json:"preset"`
	Duration       time.Duration `json:"duration"`
	Candidates     []Candidate   `json:"candidates,omitempty"`
	Chosen         Candidate     `json:"chosen"`
	EngineBestMove string        `json:"engine_best_move"`
	FromBook       bool          `json:"from_book,omitempty"`
}

// Evaluate picks the move the given difficulty would play from the position
// reached by applying req.Moves to req.FEN. Early plies may come from the
// opening book; everything else goes through a pooled engine session.
func (e *Engine) Evaluate(ctx context.Context, req EvaluateRequest) (EvaluateResult, error) {
	start := time.Now()

	preset, err := GetPreset(req.PresetName)
	if err != nil {
		return EvaluateResult{}, err
	}

	r := e.random()

	if preset.BookMaxPly > 0 && len(req.Moves) < preset.BookMaxPly {
		res, bookErr := openingbook.Lookup(req.FEN, req.Moves, r)
		switch {
		case bookErr != nil:
			// A broken book must never block play.
			e.logger.Warn("opening book lookup failed", zap.Error(bookErr))
		case res.Move != "":
			cand := Candidate{
				Move:      res.Move,
				Principal: []string{res.Move},
				Forced:    true,
			}
			return EvaluateResult{
				PresetName:     preset.Name,
				Duration:       time.Since(start),
				Candidates:     []Candidate{cand},
				Chosen:         cand,
				EngineBestMove: res.Move,
				FromBook:       true,
			}, nil
		}
	}

	acquireCtx, cancelAcquire := context.WithTimeout(ctx, e.acquireTimeout)
	session, err := e.pool.Acquire(acquireCtx)
	cancelAcquire()
	if err != nil {
		return EvaluateResult{}, err
	}
	var releaseErr error
	defer func() {
		e.pool.Release(session, releaseErr)
	}()

	if err := session.ApplyOptions(ctx, optionsFromPreset(preset)); err != nil {
		releaseErr = err
		return EvaluateResult{}, err
	}
	if err := session.NewGame(ctx); err != nil {
		releaseErr = err
		return EvaluateResult{}, err
	}

	goTokens, err := BuildGoCommand(preset)
	if err != nil {
		releaseErr = err
		return EvaluateResult{}, err
	}

	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:         req.FEN,
		Moves:       req.Moves,
		Limits:      limitsFromPreset(preset),
		GoOverrides: goTokens,
	})
	if err != nil {
		releaseErr = err
		return EvaluateResult{}, err
	}

	candidates := convertCandidates(resp.Candidates)
	if len(candidates) == 0 {
		// Legal per UCI: a bestmove with no preceding info lines.
		candidates = []Candidate{{
			Move:      resp.BestMove,
			Principal: []string{resp.BestMove},
		}}
	}

	chosen, err := SelectCandidate(preset, candidates, r)
	if err != nil {
		releaseErr = err
		return EvaluateResult{}, err
	}

	return EvaluateResult{
		PresetName:     preset.Name,
		Duration:       time.Since(start),
		Candidates:     candidates,
		Chosen:         chosen,
		EngineBestMove: resp.BestMove,
	}, nil
}

// random derives an independent source per evaluation so concurrent sessions
// do not contend on one shared generator.
func (e *Engine) random() *rand.Rand {
	e.randMu.Lock()
	seed := e.rand.Int63()
	e.randMu.Unlock()
	return rand.New(rand.NewSource(seed))
}

// SetRandomSeed makes candidate selection reproducible. Test hook.
func (e *Engine) SetRandomSeed(seed int64) {
	e.randMu.Lock()
	e.rand = rand.New(rand.NewSource(seed))
	e.randMu.Unlock()
}

func (e *Engine) PoolStats() uci.PoolStats {
	return e.pool.Stats()
}

// ResetPool clears a degraded pool and verifies the binary spawns again.
func (e *Engine) ResetPool(ctx context.Context) error {
	return e.pool.Reset(ctx)
}

func (e *Engine) Close() error {
	if e.pool == nil {
		return nil
	}
	return e.pool.Close()
}

func optionsFromPreset(p DifficultyPreset) uci.Options {
	return uci.Options{
		Threads:    p.Threads,
		SkillLevel: p.SkillLevel,
		HashMB:     p.HashMB,
		MultiPV:    p.MultiPV,
		Elo:        p.Elo,
	}
}

func limitsFromPreset(p DifficultyPreset) uci.Limits {
	return uci.Limits{
		Depth:          p.DepthCap,
		MoveTimeMillis: p.MoveTimeMillis,
		NodeCap:        p.NodeCap,
	}
}

func convertCandidates(in []uci.Candidate) []Candidate {
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		out = append(out, Candidate{
			Move:      c.Move,
			EvalCP:    c.EvalCP,
			Principal: append([]string(nil), c.Principal...),
		})
	}
	return out
}

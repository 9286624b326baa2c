package chess

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"

	corechess "github.com/park285/cheese-api/internal/chess"
	"github.com/park285/cheese-api/internal/service/cache"
)

const (
	evalCacheKeyPrefix = "chess:eval:"
	defaultEvalTTL     = 10 * time.Minute
)

// EvalCache memoizes engine evaluations by preset and move history. The same
// opening lines come up constantly at low depth, and a cached reply skips an
// engine lease entirely.
type EvalCache struct {
	cache  *cache.CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewEvalCache returns nil when no cache backend is wired, which callers
// treat as "no memoization".
func NewEvalCache(backend *cache.CacheService, ttl time.Duration, logger *zap.Logger) *EvalCache {
	if backend == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultEvalTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvalCache{cache: backend, ttl: ttl, logger: logger}
}

func (c *EvalCache) Lookup(ctx context.Context, preset string, moves []string) (corechess.EvaluateResult, bool) {
	var payload corechess.EvaluateResult
	key := evalCacheKey(preset, moves)
	if err := c.cache.Get(ctx, key, &payload); err != nil {
		c.logger.Debug("eval cache read failed", zap.Error(err))
		return corechess.EvaluateResult{}, false
	}
	if payload.Chosen.Move == "" {
		return corechess.EvaluateResult{}, false
	}
	return payload, true
}

// Store writes the evaluation unless it came off the opening book, which is
// already instant.
func (c *EvalCache) Store(ctx context.Context, preset string, moves []string, result corechess.EvaluateResult) {
	if result.FromBook || result.Chosen.Move == "" {
		return
	}
	key := evalCacheKey(preset, moves)
	if err := c.cache.Set(ctx, key, result, c.ttl); err != nil {
		c.logger.Debug("eval cache write failed", zap.Error(err))
	}
}

func evalCacheKey(preset string, moves []string) string {
	sum := sha256.Sum256([]byte(preset + "|" + strings.Join(moves, " ")))
	return evalCacheKeyPrefix + hex.EncodeToString(sum[:])
}

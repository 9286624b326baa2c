package chess

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	corechess "github.com/park285/cheese-api/internal/chess"
	"github.com/park285/cheese-api/internal/service/cache"
)

func newTestEvalCache(t *testing.T) *EvalCache {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	backend, err := cache.NewCacheService(cache.CacheConfig{Addr: mr.Addr()}, nil)
	if err != nil {
		t.Fatalf("NewCacheService: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	return NewEvalCache(backend, time.Minute, nil)
}

func TestEvalCacheRoundTrip(t *testing.T) {
	ec := newTestEvalCache(t)
	ctx := context.Background()
	moves := []string{"e2e4", "e7e5"}

	if _, ok := ec.Lookup(ctx, "level3", moves); ok {
		t.Fatal("cold cache reported a hit")
	}

	result := corechess.EvaluateResult{
		PresetName: "level3",
		Chosen:     corechess.Candidate{Move: "g1f3", EvalCP: 21},
	}
	ec.Store(ctx, "level3", moves, result)

	got, ok := ec.Lookup(ctx, "level3", moves)
	if !ok {
		t.Fatal("stored evaluation not found")
	}
	if got.Chosen.Move != "g1f3" || got.Chosen.EvalCP != 21 {
		t.Fatalf("got %+v", got.Chosen)
	}

	// Keys are per preset: another difficulty must miss.
	if _, ok := ec.Lookup(ctx, "level8", moves); ok {
		t.Fatal("hit across presets")
	}
	// And per history.
	if _, ok := ec.Lookup(ctx, "level3", moves[:1]); ok {
		t.Fatal("hit across histories")
	}
}

func TestEvalCacheSkipsBookMoves(t *testing.T) {
	ec := newTestEvalCache(t)
	ctx := context.Background()

	ec.Store(ctx, "level1", nil, corechess.EvaluateResult{
		Chosen:   corechess.Candidate{Move: "e2e4"},
		FromBook: true,
	})
	if _, ok := ec.Lookup(ctx, "level1", nil); ok {
		t.Fatal("book move was cached")
	}
}

func TestEvalCacheNilWithoutBackend(t *testing.T) {
	if ec := NewEvalCache(nil, time.Minute, nil); ec != nil {
		t.Fatal("NewEvalCache without backend should return nil")
	}
}

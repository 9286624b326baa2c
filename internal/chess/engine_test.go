package chess

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/park285/cheese-api/internal/chess/uci"
)

const scriptedEngine = `#!/bin/sh
while IFS= read -r line; do
	case "$line" in
	uci)
		echo "id name stubfish 1"
		echo "uciok"
		;;
	isready)
		echo "readyok"
		;;
	go*)
		echo "info depth 6 multipv 1 score cp 34 nodes 4242 pv e2e4 e7e5"
		echo "info depth 6 multipv 2 score cp 12 nodes 4000 pv d2d4 d7d5"
		echo "bestmove e2e4"
		;;
	quit)
		exit 0
		;;
	esac
done
`

func newTestEngine(t *testing.T, defaultPreset string) *Engine {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stubfish.sh")
	if err := os.WriteFile(path, []byte(scriptedEngine), 0o755); err != nil {
		t.Fatalf("write engine script: %v", err)
	}
	e, err := NewEngine(Config{
		BinaryPath:    path,
		PoolSize:      1,
		DefaultPreset: defaultPreset,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngineEvaluateFullStrength(t *testing.T) {
	e := newTestEngine(t, "level8")

	res, err := e.Evaluate(context.Background(), EvaluateRequest{
		PresetName: "level8",
		FEN:        "startpos",
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.PresetName != "level8" {
		t.Fatalf("preset = %q, want level8", res.PresetName)
	}
	if res.FromBook {
		t.Fatal("full strength preset consulted the opening book")
	}
	if res.EngineBestMove != "e2e4" {
		t.Fatalf("engine best move = %q, want e2e4", res.EngineBestMove)
	}
	// Single primary choice with zero noise passes the top line through.
	if res.Chosen.Move != "e2e4" || res.Chosen.EvalCP != 34 {
		t.Fatalf("chosen = %+v, want e2e4 at 34cp", res.Chosen)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(res.Candidates))
	}
	if res.Duration <= 0 {
		t.Fatal("duration not measured")
	}
}

func TestEngineEvaluateWeakPresetPerturbs(t *testing.T) {
	e := newTestEngine(t, "level1")
	e.SetRandomSeed(42)

	res, err := e.Evaluate(context.Background(), EvaluateRequest{
		PresetName: "level1",
		FEN:        "startpos",
		Moves:      []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6", "d2d3", "f8c5", "c2c3", "d7d6", "b2b4", "c5b6"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	base := map[string]int{"e2e4": 34, "d2d4": 12}
	want, ok := base[res.Chosen.Move]
	if !ok {
		t.Fatalf("chosen move %q not among engine candidates", res.Chosen.Move)
	}
	if diff := res.Chosen.EvalCP - want; diff < -80 || diff > 80 {
		t.Fatalf("eval %d strays more than the preset noise from %d", res.Chosen.EvalCP, want)
	}
}

func TestEngineEvaluateUnknownPreset(t *testing.T) {
	e := newTestEngine(t, "level3")

	if _, err := e.Evaluate(context.Background(), EvaluateRequest{PresetName: "turbo", FEN: "startpos"}); err == nil {
		t.Fatal("unknown preset accepted")
	}
}

func TestEngineCloseStopsEvaluate(t *testing.T) {
	e := newTestEngine(t, "level3")
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	_, err := e.Evaluate(context.Background(), EvaluateRequest{PresetName: "level3", FEN: "startpos"})
	if !errors.Is(err, uci.ErrPoolClosed) {
		t.Fatalf("Evaluate error = %v, want ErrPoolClosed", err)
	}
}

package uci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// scriptedEngine speaks just enough UCI for the session handshake and a
// fixed two-line multipv search.
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

func writeEngineScript(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stubfish.sh")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write engine script: %v", err)
	}
	return path
}

func newTestSession(t *testing.T, script string) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), writeEngineScript(t, script), Options{Threads: 1, HashMB: 16, MultiPV: 2})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionSearch(t *testing.T) {
	s := newTestSession(t, scriptedEngine)

	resp, err := s.Search(context.Background(), SearchRequest{
		FEN:    "startpos",
		Limits: Limits{MoveTimeMillis: 50},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.BestMove != "e2e4" {
		t.Fatalf("bestmove = %q, want e2e4", resp.BestMove)
	}
	if len(resp.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(resp.Candidates))
	}
	first := resp.Candidates[0]
	if first.Move != "e2e4" || first.EvalCP != 34 {
		t.Fatalf("first candidate = %+v", first)
	}
	if len(first.Principal) != 2 || first.Principal[1] != "e7e5" {
		t.Fatalf("first principal = %v", first.Principal)
	}
	if resp.Candidates[1].Move != "d2d4" || resp.Candidates[1].EvalCP != 12 {
		t.Fatalf("second candidate = %+v", resp.Candidates[1])
	}
}

func TestSessionSearchMateScore(t *testing.T) {
	script := `#!/bin/sh
while IFS= read -r line; do
	case "$line" in
	uci) echo "uciok" ;;
	isready) echo "readyok" ;;
	go*)
		echo "info depth 10 multipv 1 score mate 2 pv d8h4 g2g3 h4g3"
		echo "bestmove d8h4"
		;;
	esac
done
`
	s := newTestSession(t, script)

	resp, err := s.Search(context.Background(), SearchRequest{FEN: "startpos", Limits: Limits{Depth: 10}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(resp.Candidates))
	}
	if resp.Candidates[0].EvalCP != 30000 {
		t.Fatalf("mate eval = %d, want 30000", resp.Candidates[0].EvalCP)
	}
}

func TestSessionRejectsBestmoveNone(t *testing.T) {
	script := `#!/bin/sh
while IFS= read -r line; do
	case "$line" in
	uci) echo "uciok" ;;
	isready) echo "readyok" ;;
	go*) echo "bestmove (none)" ;;
	esac
done
`
	s := newTestSession(t, script)

	_, err := s.Search(context.Background(), SearchRequest{FEN: "startpos", Limits: Limits{Depth: 1}})
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("Search error = %v, want ErrProtocol", err)
	}
}

func TestSessionCrashDuringSearch(t *testing.T) {
	script := `#!/bin/sh
while IFS= read -r line; do
	case "$line" in
	uci) echo "uciok" ;;
	isready) echo "readyok" ;;
	go*) exit 7 ;;
	esac
done
`
	s := newTestSession(t, script)

	_, err := s.Search(context.Background(), SearchRequest{FEN: "startpos", Limits: Limits{Depth: 1}})
	if !errors.Is(err, ErrEngineClosed) {
		t.Fatalf("Search error = %v, want ErrEngineClosed", err)
	}
	if !s.Crashed() {
		t.Fatal("session not marked crashed after subprocess exit")
	}
}

func TestSessionApplyOptionsSendsDiff(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cmd.log")
	script := fmt.Sprintf(`#!/bin/sh
log=%q
while IFS= read -r line; do
	echo "$line" >> "$log"
	case "$line" in
	uci) echo "uciok" ;;
	isready) echo "readyok" ;;
	esac
done
`, logPath)
	path := filepath.Join(dir, "stubfish.sh")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write engine script: %v", err)
	}

	s, err := NewSession(context.Background(), path, Options{Threads: 1, HashMB: 16, MultiPV: 1})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	next := Options{Threads: 1, HashMB: 16, MultiPV: 2, SkillLevel: 5, Elo: 1200}
	if err := s.ApplyOptions(context.Background(), next); err != nil {
		t.Fatalf("ApplyOptions: %v", err)
	}

	raw, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read command log: %v", err)
	}
	got := string(raw)
	for _, want := range []string{
		"setoption name Skill Level value 5",
		"setoption name MultiPV value 2",
		"setoption name UCI_LimitStrength value true",
		"setoption name UCI_Elo value 1200",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("command log missing %q:\n%s", want, got)
		}
	}

	// Same options again must be a no-op.
	before := len(got)
	if err := s.ApplyOptions(context.Background(), next); err != nil {
		t.Fatalf("ApplyOptions repeat: %v", err)
	}
	raw, err = os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("re-read command log: %v", err)
	}
	if len(raw) != before {
		t.Fatalf("repeat ApplyOptions sent commands:\n%s", string(raw[before:]))
	}
}

func TestParseInfo(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantOK   bool
		wantPV   int
		wantMove string
		wantEval int
	}{
		{
			name:     "cp with multipv",
			line:     "info depth 12 seldepth 16 multipv 2 score cp -15 nodes 90000 pv c7c5 g1f3",
			wantOK:   true,
			wantPV:   2,
			wantMove: "c7c5",
			wantEval: -15,
		},
		{
			name:     "multipv defaults to one",
			line:     "info depth 5 score cp 40 pv e2e4",
			wantOK:   true,
			wantPV:   1,
			wantMove: "e2e4",
			wantEval: 40,
		},
		{
			name:     "mate score saturates",
			line:     "info depth 20 multipv 1 score mate -3 pv h7h8",
			wantOK:   true,
			wantPV:   1,
			wantMove: "h7h8",
			wantEval: -30000,
		},
		{
			name:   "no pv is ignored",
			line:   "info depth 4 score cp 10 nodes 500",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pv, cand, ok := parseInfo(tt.line)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if pv != tt.wantPV || cand.Move != tt.wantMove || cand.EvalCP != tt.wantEval {
				t.Fatalf("parsed pv=%d move=%q eval=%d, want pv=%d move=%q eval=%d",
					pv, cand.Move, cand.EvalCP, tt.wantPV, tt.wantMove, tt.wantEval)
			}
		})
	}
}

func TestBuildPositionCommand(t *testing.T) {
	if got := buildPositionCommand("startpos", nil); got != "position startpos\n" {
		t.Fatalf("startpos command = %q", got)
	}
	if got := buildPositionCommand("", []string{"e2e4", "e7e5"}); got != "position startpos moves e2e4 e7e5\n" {
		t.Fatalf("startpos with moves = %q", got)
	}
	fen := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	if got := buildPositionCommand(fen, []string{"e2e4"}); got != "position fen "+fen+" moves e2e4\n" {
		t.Fatalf("fen command = %q", got)
	}
}

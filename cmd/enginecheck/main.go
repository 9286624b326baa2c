// Command enginecheck spawns the configured UCI engine once and runs a
// short search so deploys can verify the binary before starting the API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/cheese-api/internal/chess/uci"
)

func main() {
	path := strings.TrimSpace(os.Getenv("CHESS_ENGINE_PATH"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	}
	if path == "" {
		log.Fatal("CHESS_ENGINE_PATH is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	started := time.Now()
	session, err := uci.NewSession(ctx, path, uci.Options{Threads: 1, HashMB: 16, MultiPV: 1})
	if err != nil {
		log.Fatalf("spawn error: %v", err)
	}
	defer session.Close()
	log.Printf("handshake ok: pid=%d in %s", session.PID(), time.Since(started).Round(time.Millisecond))

	if err := session.NewGame(ctx); err != nil {
		log.Fatalf("ucinewgame error: %v", err)
	}

	resp, err := session.Search(ctx, uci.SearchRequest{
		FEN:    "startpos",
		Limits: uci.Limits{MoveTimeMillis: 500},
	})
	if err != nil {
		log.Fatalf("search error: %v", err)
	}

	fmt.Printf("bestmove %s\n", resp.BestMove)
	for _, cand := range resp.Candidates {
		fmt.Printf("candidate %s cp=%d pv=%s\n", cand.Move, cand.EvalCP, strings.Join(cand.Principal, " "))
	}
}

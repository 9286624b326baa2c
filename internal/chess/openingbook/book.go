// Package openingbook resolves early-game moves from an optional polyglot
// book so low-difficulty play gets opening variety without burning engine
// time. Without a configured book every lookup is a miss.
package openingbook

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	chesslib "github.com/corentings/chess/v2"
)

var (
	bookOnce sync.Once
	book     *chesslib.PolyglotBook
	bookErr  error
)

// Result is a weighted book move in UCI notation. An empty Move means the
// position is out of book.
type Result struct {
	Move   string
	Weight uint16
}

// Lookup returns a weighted-random book move for the position reached by
// playing moves from fen. The move is verified against the rules library
// before being returned so a corrupt book can never inject an illegal move.
func Lookup(fen string, moves []string, r *rand.Rand) (Result, error) {
	book, err := loadBook()
	if err != nil {
		return Result{}, err
	}
	if book == nil {
		return Result{}, nil
	}

	game, err := buildGameFromPosition(fen, moves)
	if err != nil {
		return Result{}, err
	}

	positionFEN := game.FEN()

	hasher := chesslib.NewZobristHasher()
	hashStr, err := hasher.HashPosition(positionFEN)
	if err != nil {
		return Result{}, fmt.Errorf("compute polyglot hash: %w", err)
	}

	hash := chesslib.ZobristHashToUint64(hashStr)
	entries := book.FindMoves(hash)
	if len(entries) == 0 {
		return Result{}, nil
	}

	entry := entries[0]
	if r != nil && len(entries) > 1 {
		entry = entries[weightedIndex(entries, r)]
	}

	move := chesslib.DecodeMove(entry.Move).ToMove()
	uciMove := move.String()

	verifyGame, err := buildGameFromPosition(fen, moves)
	if err != nil {
		return Result{}, err
	}
	if err := verifyGame.PushNotationMove(uciMove, chesslib.UCINotation{}, nil); err != nil {
		return Result{}, fmt.Errorf("book move %q invalid for position: %w", uciMove, err)
	}

	return Result{
		Move:   uciMove,
		Weight: entry.Weight,
	}, nil
}

func weightedIndex(entries []chesslib.PolyglotEntry, r *rand.Rand) int {
	total := 0
	for _, e := range entries {
		total += int(e.Weight)
	}
	if total <= 0 {
		return 0
	}
	roll := r.Intn(total)
	cumulative := 0
	for i, e := range entries {
		cumulative += int(e.Weight)
		if roll < cumulative {
			return i
		}
	}
	return len(entries) - 1
}

func loadBook() (*chesslib.PolyglotBook, error) {
	bookOnce.Do(func() {
		bookPath, resolveErr := ResolveBookPath()
		if resolveErr != nil {
			bookErr = resolveErr
			return
		}
		if bookPath == "" {
			book = nil
			return
		}
		file, err := os.Open(bookPath)
		if err != nil {
			bookErr = fmt.Errorf("open polyglot book %q: %w", bookPath, err)
			return
		}
		defer file.Close()

		book, err = chesslib.LoadFromReader(file)
		if err != nil {
			bookErr = fmt.Errorf("load polyglot book %q: %w", bookPath, err)
			return
		}
	})

	return book, bookErr
}

// ResolveBookPath honors CHESS_POLYGLOT_BOOK_PATH, then the conventional
// resources location. Empty result means no book, which is not an error.
func ResolveBookPath() (string, error) {
	if envPath := os.Getenv("CHESS_POLYGLOT_BOOK_PATH"); envPath != "" {
		if exists(envPath) {
			return envPath, nil
		}
		return "", fmt.Errorf("env CHESS_POLYGLOT_BOOK_PATH points to missing file: %s", envPath)
	}

	candidate := filepath.Join("resources", "opening", "book.bin")
	if exists(candidate) {
		return candidate, nil
	}

	return "", nil
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func buildGameFromPosition(fen string, moves []string) (*chesslib.Game, error) {
	var (
		game *chesslib.Game
		err  error
	)

	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		game = chesslib.NewGame()
	} else {
		var option func(*chesslib.Game)
		option, err = chesslib.FEN(fen)
		if err != nil {
			return nil, fmt.Errorf("parse fen %q: %w", fen, err)
		}
		game = chesslib.NewGame(option)
	}

	for _, mv := range moves {
		if err := game.PushNotationMove(strings.ToLower(strings.TrimSpace(mv)), chesslib.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("apply move %q: %w", mv, err)
		}
	}
	return game, nil
}

package chess

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/cheese-api/internal/domain"
)

// Game status labels exposed by the API.
const (
	StatusOngoing   = "ongoing"
	StatusCheckmate = "checkmate"
	StatusStalemate = "stalemate"
	StatusDraw      = "draw"
	StatusResigned  = "resigned"
)

var pieceValues = map[nchess.PieceType]int{
	nchess.Pawn:   1,
	nchess.Knight: 3,
	nchess.Bishop: 3,
	nchess.Rook:   5,
	nchess.Queen:  9,
}

var pieceLetters = map[nchess.PieceType]string{
	nchess.Pawn:   "P",
	nchess.Knight: "N",
	nchess.Bishop: "B",
	nchess.Rook:   "R",
	nchess.Queen:  "Q",
}

type MaterialScore struct {
	White int `json:"white"`
	Black int `json:"black"`
}

func (m MaterialScore) Diff() int {
	return m.White - m.Black
}

// CapturedPieces lists what each side has taken so far, in capture order, as
// uppercase piece letters.
type CapturedPieces struct {
	ByWhite []string `json:"by_white,omitempty"`
	ByBlack []string `json:"by_black,omitempty"`
}

// SessionState is a full derived view of one session's game: everything in
// it is recomputed from the move history on each request.
type SessionState struct {
	SessionID  string
	Preset     string
	HumanColor string
	MovesUCI   []string
	MovesSAN   []string
	FEN        string
	Turn       string
	MoveCount  int
	Status     string
	Result     string
	InCheck    bool
	LegalMoves []string
	Material   MaterialScore
	Captured   CapturedPieces
	StartedAt  time.Time
	UpdatedAt  time.Time
}

func (st *SessionState) Finished() bool {
	return st.Status != StatusOngoing
}

// replayGame rebuilds the rules-library game from the stored move list. The
// history is the only authority: a record that fails to replay is corrupt.
func replayGame(record domain.GameRecord) (*nchess.Game, error) {
	game := nchess.NewGame()
	notation := nchess.UCINotation{}
	for _, mv := range record.MovesUCI {
		move, err := notation.Decode(game.Position(), strings.ToLower(strings.TrimSpace(mv)))
		if err != nil {
			return nil, fmt.Errorf("decode move %s: %w", mv, err)
		}
		if err := game.Move(move, nil); err != nil {
			return nil, fmt.Errorf("apply move %s: %w", mv, err)
		}
	}
	if record.ResignedBy != "" && game.Outcome() == nchess.NoOutcome {
		switch record.ResignedBy {
		case domain.ColorWhite:
			game.Resign(nchess.White)
		case domain.ColorBlack:
			game.Resign(nchess.Black)
		}
	}
	return game, nil
}

func (s *Service) stateFromGame(sessionID string, record domain.GameRecord, game *nchess.Game) *SessionState {
	positions := game.Positions()
	moves := game.Moves()
	sanMoves := make([]string, len(moves))
	notation := nchess.AlgebraicNotation{}
	for i, mv := range moves {
		if i < len(positions) {
			sanMoves[i] = notation.Encode(positions[i], mv)
		}
	}

	state := &SessionState{
		SessionID:  sessionID,
		Preset:     record.Preset,
		HumanColor: record.HumanColor,
		MovesUCI:   append([]string(nil), record.MovesUCI...),
		MovesSAN:   sanMoves,
		FEN:        game.FEN(),
		Turn:       colorName(game.Position().Turn()),
		MoveCount:  len(moves),
		Status:     statusLabel(game, record.ResignedBy),
		Result:     game.Outcome().String(),
		StartedAt:  record.StartedAt,
		UpdatedAt:  record.UpdatedAt,
	}
	if len(moves) > 0 {
		state.InCheck = moves[len(moves)-1].HasTag(nchess.Check)
	}
	if state.Status == StatusOngoing {
		state.LegalMoves = legalMovesUCI(game)
	}
	state.Material, state.Captured = computeMaterial(game)
	return state
}

func statusLabel(game *nchess.Game, resignedBy string) string {
	if resignedBy != "" {
		return StatusResigned
	}
	switch game.Outcome() {
	case nchess.NoOutcome:
		return StatusOngoing
	case nchess.Draw:
		if game.Method() == nchess.Stalemate {
			return StatusStalemate
		}
		return StatusDraw
	default:
		switch game.Method() {
		case nchess.Checkmate:
			return StatusCheckmate
		case nchess.Resignation:
			return StatusResigned
		default:
			return StatusDraw
		}
	}
}

func legalMovesUCI(game *nchess.Game) []string {
	valid := game.ValidMoves()
	out := make([]string, 0, len(valid))
	for _, mv := range valid {
		out = append(out, strings.ToLower(mv.String()))
	}
	return out
}

// computeMaterial walks the move list tallying captures (board walk for the
// totals, move tags for the order). Promotions are why the totals come from
// the board rather than from subtracting captures.
func computeMaterial(game *nchess.Game) (MaterialScore, CapturedPieces) {
	var captured CapturedPieces
	if game == nil {
		return MaterialScore{}, captured
	}
	position := game.Position()
	if position == nil {
		return MaterialScore{}, captured
	}

	score := MaterialScore{}
	board := position.Board()
	for file := nchess.FileA; file <= nchess.FileH; file++ {
		for rank := nchess.Rank1; rank <= nchess.Rank8; rank++ {
			piece := board.Piece(nchess.NewSquare(file, rank))
			if piece == nchess.NoPiece {
				continue
			}
			value := pieceValues[piece.Type()]
			if value == 0 {
				continue
			}
			if piece.Color() == nchess.White {
				score.White += value
			} else {
				score.Black += value
			}
		}
	}

	moves := game.Moves()
	positions := game.Positions()
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		if !mv.HasTag(nchess.Capture) && !mv.HasTag(nchess.EnPassant) {
			continue
		}
		pos := positions[i]
		captureSquare := mv.S2()
		if mv.HasTag(nchess.EnPassant) {
			file := mv.S2().File()
			rank := mv.S2().Rank()
			if pos.Turn() == nchess.White {
				captureSquare = nchess.NewSquare(file, rank-1)
			} else {
				captureSquare = nchess.NewSquare(file, rank+1)
			}
		}
		victim := pos.Board().Piece(captureSquare)
		if victim == nchess.NoPiece {
			continue
		}
		letter, ok := pieceLetters[victim.Type()]
		if !ok {
			continue
		}
		if pos.Turn() == nchess.White {
			captured.ByWhite = append(captured.ByWhite, letter)
		} else {
			captured.ByBlack = append(captured.ByBlack, letter)
		}
	}

	return score, captured
}

// uciMoveShape matches coordinate notation like e2e4 or e7e8q.
var uciMoveShape = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbnk]?$`)

// decodePlayerMove accepts coordinate (UCI) input and SAN. Coordinate-shaped
// text must go through the UCI decoder: the SAN parser also accepts strings
// like "f1c4" but reads them as a destination square, yielding a different
// legal move (the pawn push c4 instead of the bishop move).
func decodePlayerMove(game *nchess.Game, text string) (*nchess.Move, error) {
	pos := game.Position()
	lower := strings.ToLower(text)
	if uciMoveShape.MatchString(lower) {
		if mv, err := (nchess.UCINotation{}).Decode(pos, lower); err == nil {
			return mv, nil
		}
	}
	if mv, err := (nchess.AlgebraicNotation{}).Decode(pos, text); err == nil {
		return mv, nil
	}
	return (nchess.UCINotation{}).Decode(pos, lower)
}

func colorOf(name string) nchess.Color {
	if name == domain.ColorBlack {
		return nchess.Black
	}
	return nchess.White
}

// colorName is the wire spelling of a color. The library's own String()
// renders FEN letters ("w"/"b"), which is not what API clients expect.
func colorName(c nchess.Color) string {
	if c == nchess.Black {
		return domain.ColorBlack
	}
	return domain.ColorWhite
}

func engineColorOf(record domain.GameRecord) string {
	if record.HumanColor == domain.ColorBlack {
		return domain.ColorWhite
	}
	return domain.ColorBlack
}

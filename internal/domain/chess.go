package domain

import "time"

const (
	ColorWhite = "white"
	ColorBlack = "black"
)

// GameRecord is the authoritative state of one live session. MovesUCI is the
// source of truth; board, turn, and status are always derived by replaying it
// through the rules library.
type GameRecord struct {
	MovesUCI   []string
	Preset     string
	HumanColor string
	// ResignedBy marks a resignation, which ends the game without a move.
	ResignedBy string
	StartedAt  time.Time
	UpdatedAt  time.Time
}

// Clone deep-copies the record so a handler can mutate a scratch copy and
// commit it only after every step succeeded.
func (g GameRecord) Clone() GameRecord {
	out := g
	out.MovesUCI = append([]string(nil), g.MovesUCI...)
	return out
}

// FinishedGame is the archive row written when a session's game ends.
type FinishedGame struct {
	ID            int64
	SessionID     string
	Preset        string
	HumanColor    string
	Result        string
	Method        string
	MovesUCI      []string
	MovesSAN      []string
	PGN           string
	StartedAt     time.Time
	EndedAt       time.Time
	Duration      time.Duration
	EngineLatency time.Duration
}

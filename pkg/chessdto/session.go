package chessdto

import "time"

type MaterialScore struct {
	White int `json:"white"`
	Black int `json:"black"`
	// Diff is white minus black.
	Diff int `json:"diff"`
}

type CapturedPieces struct {
	ByWhite []string `json:"by_white,omitempty"`
	ByBlack []string `json:"by_black,omitempty"`
}

type NewGameResponse struct {
	SessionID  string `json:"session_id"`
	Position   string `json:"position"`
	Status     string `json:"status"`
	Turn       string `json:"turn"`
	Difficulty string `json:"difficulty"`
	HumanColor string `json:"human_color"`
	// EngineMove is set when the engine opened the game.
	EngineMove    string `json:"engine_move,omitempty"`
	EngineMoveSAN string `json:"engine_move_san,omitempty"`
}

// StatusResponse is the status-shaped body shared by /status, /undo,
// /resign, /reset, and /difficulty.
type StatusResponse struct {
	SessionID    string         `json:"session_id"`
	Position     string         `json:"position"`
	History      []string       `json:"history"`
	HistorySAN   []string       `json:"history_san"`
	Status       string         `json:"status"`
	Result       string         `json:"result,omitempty"`
	Turn         string         `json:"turn"`
	InCheck      bool           `json:"in_check"`
	LegalMoves   []string       `json:"legal_moves,omitempty"`
	MoveCount    int            `json:"move_count"`
	Difficulty   string         `json:"difficulty"`
	HumanColor   string         `json:"human_color"`
	Material     MaterialScore  `json:"material"`
	Captured     CapturedPieces `json:"captured"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActiveAt time.Time      `json:"last_active_at"`
}

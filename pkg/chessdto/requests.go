// Package chessdto defines the JSON request and response bodies of the game
// service API.
package chessdto

type NewGameRequest struct {
	// Difficulty accepts a preset name, an alias, or a numeric skill level.
	Difficulty string `json:"difficulty,omitempty"`
	// Color is the side the caller plays, "white" by default.
	Color string `json:"color,omitempty"`
}

type MoveRequest struct {
	SessionID string `json:"session_id"`
	// Move is SAN or UCI.
	Move string `json:"move"`
}

type UndoRequest struct {
	SessionID string `json:"session_id"`
	// Plies counts half-moves to take back: 1, 2, or 0 to let the service
	// pick whichever puts the caller back on turn.
	Plies int `json:"plies,omitempty"`
}

type ResignRequest struct {
	SessionID string `json:"session_id"`
}

type ResetRequest struct {
	SessionID string `json:"session_id"`
}

type DifficultyRequest struct {
	SessionID  string `json:"session_id"`
	Difficulty string `json:"difficulty"`
}

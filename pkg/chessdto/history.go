package chessdto

import "time"

type GameSummary struct {
	ID             int64     `json:"id"`
	SessionID      string    `json:"session_id"`
	Difficulty     string    `json:"difficulty"`
	HumanColor     string    `json:"human_color"`
	Result         string    `json:"result"`
	Method         string    `json:"method"`
	MoveCount      int       `json:"move_count"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	DurationMillis int64     `json:"duration_ms"`
}

type GameDetail struct {
	GameSummary
	MovesUCI []string `json:"moves_uci"`
	MovesSAN []string `json:"moves_san"`
	PGN      string   `json:"pgn"`
}

type GamesResponse struct {
	Games []GameSummary `json:"games"`
}

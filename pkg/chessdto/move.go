package chessdto

// MoveResponse reports one exchange. A rejected move carries only Success
// and Error.
type MoveResponse struct {
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	Position      string `json:"position,omitempty"`
	Status        string `json:"status,omitempty"`
	Result        string `json:"result,omitempty"`
	Move          string `json:"move,omitempty"`
	MoveUCI       string `json:"move_uci,omitempty"`
	EngineMove    string `json:"engine_move,omitempty"`
	EngineMoveSAN string `json:"engine_move_san,omitempty"`
	EvaluationCP  int    `json:"eval_cp,omitempty"`
	FromBook      bool   `json:"from_book,omitempty"`
	InCheck       bool   `json:"in_check,omitempty"`
	GameOver      bool   `json:"game_over,omitempty"`
}

type HintResponse struct {
	Move           string   `json:"move"`
	SAN            string   `json:"san,omitempty"`
	EvaluationCP   int      `json:"eval_cp"`
	Principal      []string `json:"principal,omitempty"`
	DurationMillis int64    `json:"duration_ms"`
}

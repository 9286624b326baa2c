package httpapi

import (
	"github.com/park285/cheese-api/internal/chess/uci"
	"github.com/park285/cheese-api/internal/domain"
	svcchess "github.com/park285/cheese-api/internal/service/chess"
	"github.com/park285/cheese-api/pkg/chessdto"
)

func toStatusResponse(state *svcchess.SessionState) chessdto.StatusResponse {
	return chessdto.StatusResponse{
		SessionID:  state.SessionID,
		Position:   state.FEN,
		History:    state.MovesUCI,
		HistorySAN: state.MovesSAN,
		Status:     state.Status,
		Result:     cleanResult(state.Result),
		Turn:       state.Turn,
		InCheck:    state.InCheck,
		LegalMoves: state.LegalMoves,
		MoveCount:  state.MoveCount,
		Difficulty: state.Preset,
		HumanColor: state.HumanColor,
		Material: chessdto.MaterialScore{
			White: state.Material.White,
			Black: state.Material.Black,
			Diff:  state.Material.Diff(),
		},
		Captured: chessdto.CapturedPieces{
			ByWhite: state.Captured.ByWhite,
			ByBlack: state.Captured.ByBlack,
		},
		CreatedAt:    state.StartedAt,
		LastActiveAt: state.UpdatedAt,
	}
}

// cleanResult hides the rules library's "*" marker for unfinished games.
func cleanResult(result string) string {
	if result == "*" {
		return ""
	}
	return result
}

func toPoolStats(stats uci.PoolStats) chessdto.PoolStats {
	return chessdto.PoolStats{
		Capacity:      stats.Capacity,
		Live:          stats.Live,
		Idle:          stats.Idle,
		Degraded:      stats.Degraded,
		SpawnFailures: stats.SpawnFailures,
	}
}

func toGameSummary(game *domain.FinishedGame) chessdto.GameSummary {
	return chessdto.GameSummary{
		ID:             game.ID,
		SessionID:      game.SessionID,
		Difficulty:     game.Preset,
		HumanColor:     game.HumanColor,
		Result:         game.Result,
		Method:         game.Method,
		MoveCount:      len(game.MovesUCI),
		StartedAt:      game.StartedAt,
		EndedAt:        game.EndedAt,
		DurationMillis: game.Duration.Milliseconds(),
	}
}

func toGameDetail(game *domain.FinishedGame) chessdto.GameDetail {
	return chessdto.GameDetail{
		GameSummary: toGameSummary(game),
		MovesUCI:    game.MovesUCI,
		MovesSAN:    game.MovesSAN,
		PGN:         game.PGN,
	}
}

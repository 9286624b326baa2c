package httpapi

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"

	svcchess "github.com/park285/cheese-api/internal/service/chess"
	"github.com/park285/cheese-api/pkg/chessdto"
)

// invalidMoveMessage is part of the wire contract: clients match on it.
const invalidMoveMessage = "Invalid move"

func (s *Server) handleNewGame(ctx *fasthttp.RequestCtx) {
	var req chessdto.NewGameRequest
	if !s.decodeBody(ctx, &req) {
		return
	}

	state, err := s.svc.NewGame(ctx, req.Difficulty, req.Color)
	if err != nil {
		s.writeServiceError(ctx, err)
		return
	}

	resp := chessdto.NewGameResponse{
		SessionID:  state.SessionID,
		Position:   state.FEN,
		Status:     state.Status,
		Turn:       state.Turn,
		Difficulty: state.Preset,
		HumanColor: state.HumanColor,
	}
	if len(state.MovesUCI) == 1 {
		resp.EngineMove = state.MovesUCI[0]
		resp.EngineMoveSAN = state.MovesSAN[0]
	}
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *Server) handleMove(ctx *fasthttp.RequestCtx) {
	var req chessdto.MoveRequest
	if !s.decodeBody(ctx, &req) {
		return
	}
	if req.SessionID == "" || req.Move == "" {
		writeBadRequest(ctx, "session_id and move are required")
		return
	}

	summary, err := s.svc.Play(ctx, req.SessionID, req.Move)
	if errors.Is(err, svcchess.ErrInvalidMove) {
		writeJSON(ctx, fasthttp.StatusOK, chessdto.MoveResponse{
			Success: false,
			Error:   invalidMoveMessage,
		})
		return
	}
	if err != nil {
		s.writeServiceError(ctx, err)
		return
	}

	state := summary.State
	writeJSON(ctx, fasthttp.StatusOK, chessdto.MoveResponse{
		Success:       true,
		Position:      state.FEN,
		Status:        state.Status,
		Result:        cleanResult(state.Result),
		Move:          summary.PlayerSAN,
		MoveUCI:       summary.PlayerUCI,
		EngineMove:    summary.EngineUCI,
		EngineMoveSAN: summary.EngineSAN,
		EvaluationCP:  summary.EngineResult.Chosen.EvalCP,
		FromBook:      summary.EngineResult.FromBook,
		InCheck:       state.InCheck,
		GameOver:      summary.Finished,
	})
}

func (s *Server) handleStatus(ctx *fasthttp.RequestCtx) {
	sessionID, ok := s.requireSessionID(ctx)
	if !ok {
		return
	}
	state, err := s.svc.Status(ctx, sessionID)
	if err != nil {
		s.writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toStatusResponse(state))
}

func (s *Server) handlePGN(ctx *fasthttp.RequestCtx) {
	sessionID, ok := s.requireSessionID(ctx)
	if !ok {
		return
	}
	pgn, err := s.svc.PGN(ctx, sessionID)
	if err != nil {
		s.writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString(pgn)
}

func (s *Server) handleUndo(ctx *fasthttp.RequestCtx) {
	var req chessdto.UndoRequest
	if !s.decodeBody(ctx, &req) {
		return
	}
	if req.SessionID == "" {
		writeBadRequest(ctx, "session_id is required")
		return
	}
	state, err := s.svc.Undo(ctx, req.SessionID, req.Plies)
	if err != nil {
		s.writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toStatusResponse(state))
}

func (s *Server) handleResign(ctx *fasthttp.RequestCtx) {
	var req chessdto.ResignRequest
	if !s.decodeBody(ctx, &req) {
		return
	}
	if req.SessionID == "" {
		writeBadRequest(ctx, "session_id is required")
		return
	}
	state, err := s.svc.Resign(ctx, req.SessionID)
	if err != nil {
		s.writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toStatusResponse(state))
}

func (s *Server) handleReset(ctx *fasthttp.RequestCtx) {
	var req chessdto.ResetRequest
	if !s.decodeBody(ctx, &req) {
		return
	}
	if req.SessionID == "" {
		writeBadRequest(ctx, "session_id is required")
		return
	}
	state, err := s.svc.Reset(ctx, req.SessionID)
	if err != nil {
		s.writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toStatusResponse(state))
}

func (s *Server) handleDifficulty(ctx *fasthttp.RequestCtx) {
	var req chessdto.DifficultyRequest
	if !s.decodeBody(ctx, &req) {
		return
	}
	if req.SessionID == "" || req.Difficulty == "" {
		writeBadRequest(ctx, "session_id and difficulty are required")
		return
	}
	state, err := s.svc.SetDifficulty(ctx, req.SessionID, req.Difficulty)
	if err != nil {
		s.writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toStatusResponse(state))
}

func (s *Server) handleHint(ctx *fasthttp.RequestCtx) {
	sessionID, ok := s.requireSessionID(ctx)
	if !ok {
		return
	}
	suggestion, err := s.svc.Hint(ctx, sessionID)
	if err != nil {
		s.writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, chessdto.HintResponse{
		Move:           suggestion.MoveUCI,
		SAN:            suggestion.MoveSAN,
		EvaluationCP:   suggestion.EvaluationCP,
		Principal:      suggestion.Principal,
		DurationMillis: suggestion.Duration.Milliseconds(),
	})
}

func (s *Server) handleBoard(ctx *fasthttp.RequestCtx) {
	sessionID, ok := s.requireSessionID(ctx)
	if !ok {
		return
	}
	format := queryString(ctx, "format")
	size := queryInt(ctx, "size")

	data, contentType, err := s.svc.Board(ctx, sessionID, format, size)
	if err != nil {
		s.writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetContentType(contentType)
	ctx.SetBody(data)
}

func (s *Server) handleGames(ctx *fasthttp.RequestCtx) {
	limit := queryInt(ctx, "limit")
	games, err := s.svc.RecentGames(ctx, limit)
	if err != nil {
		s.writeServiceError(ctx, err)
		return
	}
	resp := chessdto.GamesResponse{Games: make([]chessdto.GameSummary, 0, len(games))}
	for _, g := range games {
		resp.Games = append(resp.Games, toGameSummary(g))
	}
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *Server) handleGame(ctx *fasthttp.RequestCtx) {
	raw := queryString(ctx, "game_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(ctx, "game_id must be a positive integer")
		return
	}
	game, err := s.svc.FinishedGameByID(ctx, id)
	if err != nil {
		s.writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, toGameDetail(game))
}

func (s *Server) handleHealthz(ctx *fasthttp.RequestCtx) {
	report := s.svc.Health(ctx)
	status := fasthttp.StatusOK
	if report.Status != "ok" {
		status = fasthttp.StatusServiceUnavailable
	}
	writeJSON(ctx, status, chessdto.HealthResponse{
		Status:   report.Status,
		Sessions: report.Sessions,
		Pool:     toPoolStats(report.Pool),
	})
}

func (s *Server) handlePoolReset(ctx *fasthttp.RequestCtx) {
	if err := s.svc.ResetEnginePool(ctx); err != nil {
		s.writeServiceError(ctx, err)
		return
	}
	report := s.svc.Health(ctx)
	writeJSON(ctx, fasthttp.StatusOK, chessdto.PoolResetResponse{
		Status: "ok",
		Pool:   toPoolStats(report.Pool),
	})
}

// decodeBody fills dest from the request body. An empty body leaves dest
// zeroed, which endpoints with all-optional fields accept.
func (s *Server) decodeBody(ctx *fasthttp.RequestCtx, dest any) bool {
	body := ctx.PostBody()
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, dest); err != nil {
		writeBadRequest(ctx, "malformed JSON body")
		return false
	}
	return true
}

func (s *Server) requireSessionID(ctx *fasthttp.RequestCtx) (string, bool) {
	sessionID := queryString(ctx, "session_id")
	if sessionID == "" {
		writeBadRequest(ctx, "session_id is required")
		return "", false
	}
	return sessionID, true
}

func queryString(ctx *fasthttp.RequestCtx, key string) string {
	return strings.TrimSpace(string(ctx.QueryArgs().Peek(key)))
}

func queryInt(ctx *fasthttp.RequestCtx, key string) int {
	raw := queryString(ctx, key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

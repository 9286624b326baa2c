package httpapi

import (
	"encoding/json"
	"errors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	svcchess "github.com/park285/cheese-api/internal/service/chess"
	"github.com/park285/cheese-api/pkg/chessdto"
)

const jsonContentType = "application/json; charset=utf-8"

func writeJSON(ctx *fasthttp.RequestCtx, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		writeInternalError(ctx)
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType(jsonContentType)
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, code, message string) {
	writeJSON(ctx, status, chessdto.ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      code,
		Retryable: retryableCode(code),
	})
}

// retryableCode marks the infrastructure failures that clear up on their own:
// a later identical request may find a free engine or a healthy subprocess.
func retryableCode(code string) bool {
	switch code {
	case chessdto.CodePoolTimeout, chessdto.CodeEngineTimeout, chessdto.CodeEngineUnavailable, chessdto.CodeSessionBusy:
		return true
	}
	return false
}

func writeBadRequest(ctx *fasthttp.RequestCtx, message string) {
	writeError(ctx, fasthttp.StatusBadRequest, chessdto.CodeBadRequest, message)
}

func writeNotFound(ctx *fasthttp.RequestCtx) {
	writeError(ctx, fasthttp.StatusNotFound, chessdto.CodeNotFound, "not found")
}

func writeMethodNotAllowed(ctx *fasthttp.RequestCtx) {
	writeError(ctx, fasthttp.StatusMethodNotAllowed, chessdto.CodeMethodNotAllowed, "method not allowed")
}

func writeInternalError(ctx *fasthttp.RequestCtx) {
	writeError(ctx, fasthttp.StatusInternalServerError, chessdto.CodeInternal, "internal error")
}

// writeServiceError maps service sentinels onto HTTP statuses. The /move
// handler intercepts ErrInvalidMove before calling this; everywhere else an
// invalid move is a plain 400.
func (s *Server) writeServiceError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, svcchess.ErrBadInput):
		writeError(ctx, fasthttp.StatusBadRequest, chessdto.CodeBadRequest, err.Error())
	case errors.Is(err, svcchess.ErrInvalidMove):
		writeError(ctx, fasthttp.StatusBadRequest, chessdto.CodeInvalidMove, "Invalid move")
	case errors.Is(err, svcchess.ErrSessionNotFound):
		writeError(ctx, fasthttp.StatusNotFound, chessdto.CodeSessionNotFound, "session not found")
	case errors.Is(err, svcchess.ErrGameNotFound):
		writeError(ctx, fasthttp.StatusNotFound, chessdto.CodeGameNotFound, "game not found")
	case errors.Is(err, svcchess.ErrSessionBusy):
		writeError(ctx, fasthttp.StatusConflict, chessdto.CodeSessionBusy, "another request holds this session")
	case errors.Is(err, svcchess.ErrGameFinished):
		writeError(ctx, fasthttp.StatusConflict, chessdto.CodeGameFinished, "game already finished")
	case errors.Is(err, svcchess.ErrUndoNotAvailable):
		writeError(ctx, fasthttp.StatusBadRequest, chessdto.CodeUndoNotAvailable, "no moves available to undo")
	case errors.Is(err, svcchess.ErrPoolDegraded):
		writeError(ctx, fasthttp.StatusServiceUnavailable, chessdto.CodePoolDegraded, "engine pool degraded, reset required")
	case errors.Is(err, svcchess.ErrPoolTimeout):
		writeError(ctx, fasthttp.StatusInternalServerError, chessdto.CodePoolTimeout, "no engine available in time")
	case errors.Is(err, svcchess.ErrEngineTimeout):
		writeError(ctx, fasthttp.StatusInternalServerError, chessdto.CodeEngineTimeout, "engine timed out")
	case errors.Is(err, svcchess.ErrEngineProtocol):
		writeError(ctx, fasthttp.StatusInternalServerError, chessdto.CodeEngineProtocol, "engine protocol error")
	case errors.Is(err, svcchess.ErrEngineUnavailable):
		writeError(ctx, fasthttp.StatusInternalServerError, chessdto.CodeEngineUnavailable, "engine unavailable")
	default:
		s.logger.Error("unhandled service error",
			zap.Error(err),
			zap.ByteString("path", ctx.Path()))
		writeInternalError(ctx)
	}
}

package httpapi

import "github.com/valyala/fasthttp"

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/new_game":
		s.post(ctx, s.handleNewGame)
	case "/move":
		s.post(ctx, s.handleMove)
	case "/status":
		s.get(ctx, s.handleStatus)
	case "/pgn":
		s.get(ctx, s.handlePGN)
	case "/undo":
		s.post(ctx, s.handleUndo)
	case "/resign":
		s.post(ctx, s.handleResign)
	case "/reset":
		s.post(ctx, s.handleReset)
	case "/difficulty":
		s.post(ctx, s.handleDifficulty)
	case "/hint":
		s.get(ctx, s.handleHint)
	case "/board":
		s.get(ctx, s.handleBoard)
	case "/games":
		s.get(ctx, s.handleGames)
	case "/game":
		s.get(ctx, s.handleGame)
	case "/healthz":
		s.get(ctx, s.handleHealthz)
	case "/admin/pool/reset":
		s.post(ctx, s.handlePoolReset)
	default:
		writeNotFound(ctx)
	}
}

func (s *Server) post(ctx *fasthttp.RequestCtx, h fasthttp.RequestHandler) {
	if !ctx.IsPost() {
		writeMethodNotAllowed(ctx)
		return
	}
	h(ctx)
}

func (s *Server) get(ctx *fasthttp.RequestCtx, h fasthttp.RequestHandler) {
	if !ctx.IsGet() {
		writeMethodNotAllowed(ctx)
		return
	}
	h(ctx)
}

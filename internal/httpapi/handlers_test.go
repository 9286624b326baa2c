package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	corechess "github.com/park285/cheese-api/internal/chess"
	"github.com/park285/cheese-api/internal/session"
	svcchess "github.com/park285/cheese-api/internal/service/chess"
	"github.com/park285/cheese-api/pkg/chessdto"
)

// scriptedEvaluator feeds the service canned engine replies so handler tests
// never spawn a subprocess.
type scriptedEvaluator struct {
	mu    sync.Mutex
	moves []string
}

func (e *scriptedEvaluator) Evaluate(ctx context.Context, req corechess.EvaluateRequest) (corechess.EvaluateResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.moves) == 0 {
		return corechess.EvaluateResult{}, errors.New("evaluator script exhausted")
	}
	mv := e.moves[0]
	e.moves = e.moves[1:]
	cand := corechess.Candidate{Move: mv, Principal: []string{mv}}
	return corechess.EvaluateResult{
		PresetName:     req.PresetName,
		Candidates:     []corechess.Candidate{cand},
		Chosen:         cand,
		EngineBestMove: mv,
	}, nil
}

func newTestServer(t *testing.T, engineMoves ...string) *Server {
	t.Helper()

	sessions := session.NewManager(session.Config{TTL: time.Hour, SweepInterval: -1})
	t.Cleanup(sessions.Close)

	svc, err := svcchess.NewService(
		&scriptedEvaluator{moves: engineMoves},
		nil,
		sessions,
		svcchess.NewMemoryRepository(),
		svcchess.NewBoardRenderer(),
		nil,
		svcchess.Config{},
		nil,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewServer(svc, ServerConfig{Addr: ":0"}, nil)
}

func serve(t *testing.T, s *Server, method, uri, body string) *fasthttp.RequestCtx {
	t.Helper()

	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if body != "" {
		req.Header.SetContentType("application/json")
		req.SetBodyString(body)
	}

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	s.Handler()(ctx)
	return ctx
}

func decodeBody(t *testing.T, ctx *fasthttp.RequestCtx, dest any) {
	t.Helper()
	if err := json.Unmarshal(ctx.Response.Body(), dest); err != nil {
		t.Fatalf("decode response %q: %v", ctx.Response.Body(), err)
	}
}

func createGame(t *testing.T, s *Server) chessdto.NewGameResponse {
	t.Helper()
	ctx := serve(t, s, fasthttp.MethodPost, "/new_game", `{}`)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("POST /new_game status = %d, body %s", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	var resp chessdto.NewGameResponse
	decodeBody(t, ctx, &resp)
	if resp.SessionID == "" {
		t.Fatal("new_game returned no session_id")
	}
	return resp
}

func TestNewGameThenMove(t *testing.T) {
	s := newTestServer(t, "e7e5")
	game := createGame(t, s)

	ctx := serve(t, s, fasthttp.MethodPost, "/move",
		`{"session_id":"`+game.SessionID+`","move":"e2e4"}`)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("POST /move status = %d", ctx.Response.StatusCode())
	}

	var resp chessdto.MoveResponse
	decodeBody(t, ctx, &resp)
	if !resp.Success {
		t.Fatalf("move failed: %s", resp.Error)
	}
	if resp.Status != "ongoing" || resp.EngineMove != "e7e5" {
		t.Fatalf("response = %+v, want ongoing with engine reply e7e5", resp)
	}
	if resp.Position == "" || resp.GameOver {
		t.Fatalf("response = %+v", resp)
	}
}

func TestMoveRejectsIllegalMoveWithHTTP200(t *testing.T) {
	s := newTestServer(t, "e7e5")
	game := createGame(t, s)

	ctx := serve(t, s, fasthttp.MethodPost, "/move",
		`{"session_id":"`+game.SessionID+`","move":"e2e5"}`)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("illegal move status = %d, want 200", ctx.Response.StatusCode())
	}

	var resp chessdto.MoveResponse
	decodeBody(t, ctx, &resp)
	if resp.Success || resp.Error != "Invalid move" {
		t.Fatalf("response = %+v, want success:false with %q", resp, "Invalid move")
	}

	// The rejection left the game untouched.
	status := serve(t, s, fasthttp.MethodGet, "/status?session_id="+game.SessionID, "")
	var st chessdto.StatusResponse
	decodeBody(t, status, &st)
	if len(st.History) != 0 || st.Position != game.Position {
		t.Fatalf("state changed after rejected move: %+v", st)
	}
}

func TestMoveRequiresFields(t *testing.T) {
	s := newTestServer(t)

	ctx := serve(t, s, fasthttp.MethodPost, "/move", `{"move":"e2e4"}`)
	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", ctx.Response.StatusCode())
	}

	ctx = serve(t, s, fasthttp.MethodPost, "/move", `{not json`)
	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want 400", ctx.Response.StatusCode())
	}
}

func TestStatusUnknownSessionIs404(t *testing.T) {
	s := newTestServer(t)

	ctx := serve(t, s, fasthttp.MethodGet, "/status?session_id=deadbeef", "")
	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("status = %d, want 404", ctx.Response.StatusCode())
	}
	var resp chessdto.ErrorResponse
	decodeBody(t, ctx, &resp)
	if resp.Code != chessdto.CodeSessionNotFound {
		t.Fatalf("code = %s, want %s", resp.Code, chessdto.CodeSessionNotFound)
	}
}

func TestUndoRoundTrip(t *testing.T) {
	s := newTestServer(t, "e7e5")
	game := createGame(t, s)

	serve(t, s, fasthttp.MethodPost, "/move",
		`{"session_id":"`+game.SessionID+`","move":"e2e4"}`)

	ctx := serve(t, s, fasthttp.MethodPost, "/undo",
		`{"session_id":"`+game.SessionID+`"}`)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("POST /undo status = %d", ctx.Response.StatusCode())
	}
	var st chessdto.StatusResponse
	decodeBody(t, ctx, &st)
	if len(st.History) != 0 || st.Position != game.Position {
		t.Fatalf("undo state = %+v, want initial position", st)
	}
}

func TestPGNEndpointReturnsPlainText(t *testing.T) {
	s := newTestServer(t, "e7e5")
	game := createGame(t, s)
	serve(t, s, fasthttp.MethodPost, "/move",
		`{"session_id":"`+game.SessionID+`","move":"e2e4"}`)

	ctx := serve(t, s, fasthttp.MethodGet, "/pgn?session_id="+game.SessionID, "")
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("GET /pgn status = %d", ctx.Response.StatusCode())
	}
	if ct := string(ctx.Response.Header.ContentType()); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %s, want text/plain", ct)
	}
	if body := string(ctx.Response.Body()); !strings.Contains(body, "e4") {
		t.Fatalf("PGN body = %q", body)
	}
}

func TestBoardEndpointServesSVG(t *testing.T) {
	s := newTestServer(t)
	game := createGame(t, s)

	ctx := serve(t, s, fasthttp.MethodGet, "/board?session_id="+game.SessionID+"&format=svg", "")
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("GET /board status = %d", ctx.Response.StatusCode())
	}
	if ct := string(ctx.Response.Header.ContentType()); ct != "image/svg+xml" {
		t.Fatalf("content type = %s, want image/svg+xml", ct)
	}
}

func TestResignThenGamesListsArchive(t *testing.T) {
	s := newTestServer(t, "e7e5")
	game := createGame(t, s)
	serve(t, s, fasthttp.MethodPost, "/move",
		`{"session_id":"`+game.SessionID+`","move":"e2e4"}`)

	ctx := serve(t, s, fasthttp.MethodPost, "/resign",
		`{"session_id":"`+game.SessionID+`"}`)
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("POST /resign status = %d", ctx.Response.StatusCode())
	}
	var st chessdto.StatusResponse
	decodeBody(t, ctx, &st)
	if st.Status != "resigned" {
		t.Fatalf("status = %s, want resigned", st.Status)
	}

	list := serve(t, s, fasthttp.MethodGet, "/games", "")
	var games chessdto.GamesResponse
	decodeBody(t, list, &games)
	if len(games.Games) != 1 || games.Games[0].Method != "resignation" {
		t.Fatalf("games = %+v, want one resignation", games.Games)
	}
}

func TestMethodAndPathErrors(t *testing.T) {
	s := newTestServer(t)

	if ctx := serve(t, s, fasthttp.MethodGet, "/move", ""); ctx.Response.StatusCode() != fasthttp.StatusMethodNotAllowed {
		t.Fatalf("GET /move status = %d, want 405", ctx.Response.StatusCode())
	}
	if ctx := serve(t, s, fasthttp.MethodPost, "/status", ""); ctx.Response.StatusCode() != fasthttp.StatusMethodNotAllowed {
		t.Fatalf("POST /status status = %d, want 405", ctx.Response.StatusCode())
	}
	if ctx := serve(t, s, fasthttp.MethodGet, "/nope", ""); ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("GET /nope status = %d, want 404", ctx.Response.StatusCode())
	}
}

func TestHealthzReportsSessions(t *testing.T) {
	s := newTestServer(t)
	createGame(t, s)

	ctx := serve(t, s, fasthttp.MethodGet, "/healthz", "")
	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("GET /healthz status = %d", ctx.Response.StatusCode())
	}
	var resp chessdto.HealthResponse
	decodeBody(t, ctx, &resp)
	if resp.Status != "ok" || resp.Sessions != 1 {
		t.Fatalf("health = %+v, want ok with one session", resp)
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	s := newTestServer(t)
	ctx := serve(t, s, fasthttp.MethodGet, "/healthz", "")
	if id := string(ctx.Response.Header.Peek("X-Request-ID")); id == "" {
		t.Fatal("response lacks X-Request-ID")
	}
}

// Package chess orchestrates game sessions: it owns the session store, turns
// REST-level commands into rules-library mutations, asks the engine facade
// for replies, and archives finished games.
package chess

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	corechess "github.com/park285/cheese-api/internal/chess"
	"github.com/park285/cheese-api/internal/chess/uci"
	"github.com/park285/cheese-api/internal/domain"
	"github.com/park285/cheese-api/internal/session"
)

var (
	ErrBadInput          = errors.New("invalid request input")
	ErrSessionNotFound   = errors.New("chess session not found")
	ErrSessionBusy       = errors.New("chess session busy")
	ErrInvalidMove       = errors.New("invalid chess move")
	ErrGameFinished      = errors.New("chess game already finished")
	ErrUndoNotAvailable  = errors.New("no moves available to undo")
	ErrGameNotFound      = errors.New("chess game not found")
	ErrEngineUnavailable = errors.New("chess engine unavailable")
	ErrEngineTimeout     = errors.New("chess engine timeout")
	ErrEngineProtocol    = errors.New("chess engine protocol error")
	ErrPoolTimeout       = errors.New("engine pool exhausted")
	ErrPoolDegraded      = errors.New("engine pool degraded")
)

// Session wait policies for a guard already held by another request.
const (
	WaitReject = "reject"
	WaitBlock  = "block"
)

const (
	defaultEngineTimeoutFloor = 5 * time.Second
	engineEvaluationBuffer    = 2 * time.Second
	defaultLockWait           = 10 * time.Second
	defaultHistoryLimit       = 20
)

// Evaluator is the engine facade surface the orchestrator needs. Tests
// substitute a scripted implementation.
type Evaluator interface {
	Evaluate(ctx context.Context, req corechess.EvaluateRequest) (corechess.EvaluateResult, error)
}

// PoolAdmin exposes engine pool health and recovery.
type PoolAdmin interface {
	PoolStats() uci.PoolStats
	ResetPool(ctx context.Context) error
}

type Config struct {
	DefaultPreset string
	// WaitPolicy decides what a second writer gets while a session is
	// busy: WaitReject fails fast, WaitBlock queues briefly.
	WaitPolicy string
	LockWait   time.Duration
	// EngineTimeoutFloor bounds every evaluation deadline from below.
	// Presets with long move times extend it.
	EngineTimeoutFloor time.Duration
	HistoryLimit       int
}

type Service struct {
	engine    Evaluator
	pool      PoolAdmin
	sessions  *session.Manager
	repo      Repository
	renderer  BoardRenderer
	evalCache *EvalCache
	cfg       Config
	logger    *zap.Logger
}

// MoveSummary reports one full move exchange: the player's move, the
// engine's reply when one was made, and the resulting state.
type MoveSummary struct {
	State        *SessionState
	PlayerSAN    string
	PlayerUCI    string
	EngineSAN    string
	EngineUCI    string
	EngineResult corechess.EvaluateResult
	Finished     bool
}

type HintSuggestion struct {
	MoveUCI      string
	MoveSAN      string
	EvaluationCP int
	Principal    []string
	Duration     time.Duration
}

type HealthReport struct {
	Status   string
	Sessions int
	Pool     uci.PoolStats
}

func NewService(engine Evaluator, pool PoolAdmin, sessions *session.Manager, repo Repository, renderer BoardRenderer, evalCache *EvalCache, cfg Config, logger *zap.Logger) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("chess engine evaluator is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("chess repository is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("board renderer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	defaultPreset := strings.ToLower(strings.TrimSpace(cfg.DefaultPreset))
	if defaultPreset == "" {
		defaultPreset = corechess.DefaultPresetName
	}
	if _, err := corechess.GetPreset(defaultPreset); err != nil {
		return nil, fmt.Errorf("default preset validation failed: %w", err)
	}
	cfg.DefaultPreset = defaultPreset

	switch cfg.WaitPolicy {
	case "":
		cfg.WaitPolicy = WaitReject
	case WaitReject, WaitBlock:
	default:
		return nil, fmt.Errorf("unknown session wait policy %q", cfg.WaitPolicy)
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = defaultLockWait
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}

	return &Service{
		engine:    engine,
		pool:      pool,
		sessions:  sessions,
		repo:      repo,
		renderer:  renderer,
		evalCache: evalCache,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// NewGame creates a session playing the given difficulty. When the human
// takes black the engine moves first, before the session becomes visible.
func (s *Service) NewGame(ctx context.Context, presetToken, color string) (*SessionState, error) {
	presetName, err := corechess.ResolvePresetName(presetToken, s.cfg.DefaultPreset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadInput, err)
	}

	humanColor, err := normalizeColor(color)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadInput, err)
	}

	now := time.Now()
	record := domain.GameRecord{
		MovesUCI:   []string{},
		Preset:     presetName,
		HumanColor: humanColor,
		StartedAt:  now,
		UpdatedAt:  now,
	}

	game := nchess.NewGame()
	if humanColor == domain.ColorBlack {
		if game, err = s.appendEngineMove(ctx, &record, nil); err != nil {
			return nil, err
		}
	}

	sess := s.sessions.Create(record)
	state := s.stateFromGame(sess.ID, record, game)
	s.logger.Info("chess session started",
		zap.String("session_id", sess.ID),
		zap.String("preset", presetName),
		zap.String("human_color", humanColor))
	return state, nil
}

// Play applies the player's move and, when the game continues, the engine's
// reply. The stored record changes only after the whole exchange succeeded:
// any failure leaves the session exactly as it was.
func (s *Service) Play(ctx context.Context, sessionID, moveInput string) (*MoveSummary, error) {
	moveText := strings.TrimSpace(moveInput)
	if moveText == "" {
		return nil, ErrInvalidMove
	}

	sess, err := s.sessions.Get(strings.TrimSpace(sessionID))
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if err := s.lockSession(ctx, sess); err != nil {
		return nil, err
	}
	defer sess.Unlock()

	record := sess.Snapshot()
	game, err := s.replayOngoing(record)
	if err != nil {
		return nil, err
	}

	posBeforePlayer := game.Position()
	if colorName(posBeforePlayer.Turn()) != record.HumanColor {
		return nil, ErrInvalidMove
	}

	move, err := decodePlayerMove(game, moveText)
	if err != nil {
		return nil, ErrInvalidMove
	}
	if err := game.Move(move, nil); err != nil {
		return nil, ErrInvalidMove
	}

	playerSAN := (nchess.AlgebraicNotation{}).Encode(posBeforePlayer, move)
	playerUCI := strings.ToLower((nchess.UCINotation{}).Encode(posBeforePlayer, move))
	record.MovesUCI = append(record.MovesUCI, playerUCI)
	record.UpdatedAt = time.Now()

	if game.Outcome() != nchess.NoOutcome {
		sess.Commit(record)
		state := s.stateFromGame(sess.ID, record, game)
		s.archiveFinished(ctx, sess.ID, record, game, corechess.EvaluateResult{})
		return &MoveSummary{
			State:     state,
			PlayerSAN: playerSAN,
			PlayerUCI: playerUCI,
			Finished:  true,
		}, nil
	}

	result, err := s.evaluate(ctx, sess.ID, record)
	if err != nil {
		return nil, err
	}

	engineMoveText := strings.ToLower(strings.TrimSpace(result.Chosen.Move))
	if engineMoveText == "" {
		return nil, fmt.Errorf("%w: engine chose no move", ErrEngineProtocol)
	}

	posBeforeEngine := game.Position()
	engineMove, err := (nchess.UCINotation{}).Decode(posBeforeEngine, engineMoveText)
	if err != nil {
		return nil, fmt.Errorf("%w: engine move %q does not parse: %v", ErrEngineProtocol, engineMoveText, err)
	}
	if err := game.Move(engineMove, nil); err != nil {
		return nil, fmt.Errorf("%w: engine move %q is illegal here: %v", ErrEngineProtocol, engineMoveText, err)
	}

	engineSAN := (nchess.AlgebraicNotation{}).Encode(posBeforeEngine, engineMove)
	engineUCI := strings.ToLower((nchess.UCINotation{}).Encode(posBeforeEngine, engineMove))
	record.MovesUCI = append(record.MovesUCI, engineUCI)
	record.UpdatedAt = time.Now()

	sess.Commit(record)
	state := s.stateFromGame(sess.ID, record, game)
	summary := &MoveSummary{
		State:        state,
		PlayerSAN:    playerSAN,
		PlayerUCI:    playerUCI,
		EngineSAN:    engineSAN,
		EngineUCI:    engineUCI,
		EngineResult: result,
		Finished:     state.Finished(),
	}
	if summary.Finished {
		s.archiveFinished(ctx, sess.ID, record, game, result)
	}
	return summary, nil
}

// Status derives the current state without taking the writer guard, so it
// answers even while a move is in flight.
func (s *Service) Status(ctx context.Context, sessionID string) (*SessionState, error) {
	sess, err := s.sessions.Get(strings.TrimSpace(sessionID))
	if err != nil {
		return nil, ErrSessionNotFound
	}

	record := sess.Snapshot()
	game, err := replayGame(record)
	if err != nil {
		return nil, fmt.Errorf("replay session %s: %w", sess.ID, err)
	}
	return s.stateFromGame(sess.ID, record, game), nil
}

// PGN exports the session's game, finished or not.
func (s *Service) PGN(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.sessions.Get(strings.TrimSpace(sessionID))
	if err != nil {
		return "", ErrSessionNotFound
	}

	record := sess.Snapshot()
	game, err := replayGame(record)
	if err != nil {
		return "", fmt.Errorf("replay session %s: %w", sess.ID, err)
	}

	game.AddTagPair("Event", "Cheese API game")
	game.AddTagPair("Date", record.StartedAt.Format("2006.01.02"))
	if engineColorOf(record) == domain.ColorWhite {
		game.AddTagPair("White", "Engine ("+record.Preset+")")
		game.AddTagPair("Black", "Player")
	} else {
		game.AddTagPair("White", "Player")
		game.AddTagPair("Black", "Engine ("+record.Preset+")")
	}
	return game.String(), nil
}

// Undo strips plies from the history. Zero plies picks the smallest cut that
// puts the human back on turn. A finished game revives unless it ended by
// resignation.
func (s *Service) Undo(ctx context.Context, sessionID string, plies int) (*SessionState, error) {
	if plies < 0 || plies > 2 {
		return nil, ErrUndoNotAvailable
	}

	sess, err := s.sessions.Get(strings.TrimSpace(sessionID))
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if err := s.lockSession(ctx, sess); err != nil {
		return nil, err
	}
	defer sess.Unlock()

	record := sess.Snapshot()
	if record.ResignedBy != "" {
		return nil, ErrGameFinished
	}

	if plies == 0 {
		plies = autoUndoPlies(record)
	}
	if plies <= 0 || plies > len(record.MovesUCI) {
		return nil, ErrUndoNotAvailable
	}
	remaining := len(record.MovesUCI) - plies
	if !humanOnTurn(record.HumanColor, remaining) {
		return nil, ErrUndoNotAvailable
	}

	record.MovesUCI = append([]string(nil), record.MovesUCI[:remaining]...)
	record.UpdatedAt = time.Now()

	game, err := replayGame(record)
	if err != nil {
		return nil, fmt.Errorf("replay session %s: %w", sess.ID, err)
	}

	sess.Commit(record)
	return s.stateFromGame(sess.ID, record, game), nil
}

// Resign ends the game as a loss for the human. The session stays readable
// until it expires.
func (s *Service) Resign(ctx context.Context, sessionID string) (*SessionState, error) {
	sess, err := s.sessions.Get(strings.TrimSpace(sessionID))
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if err := s.lockSession(ctx, sess); err != nil {
		return nil, err
	}
	defer sess.Unlock()

	record := sess.Snapshot()
	game, err := s.replayOngoing(record)
	if err != nil {
		return nil, err
	}

	record.ResignedBy = record.HumanColor
	record.UpdatedAt = time.Now()
	game.Resign(colorOf(record.HumanColor))

	sess.Commit(record)
	state := s.stateFromGame(sess.ID, record, game)
	s.archiveFinished(ctx, sess.ID, record, game, corechess.EvaluateResult{})
	return state, nil
}

// Reset starts the same session over: same ID, same difficulty, same colors,
// empty board.
func (s *Service) Reset(ctx context.Context, sessionID string) (*SessionState, error) {
	sess, err := s.sessions.Get(strings.TrimSpace(sessionID))
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if err := s.lockSession(ctx, sess); err != nil {
		return nil, err
	}
	defer sess.Unlock()

	prev := sess.Snapshot()
	now := time.Now()
	record := domain.GameRecord{
		MovesUCI:   []string{},
		Preset:     prev.Preset,
		HumanColor: prev.HumanColor,
		StartedAt:  now,
		UpdatedAt:  now,
	}

	game := nchess.NewGame()
	if record.HumanColor == domain.ColorBlack {
		if game, err = s.appendEngineMove(ctx, &record, nil); err != nil {
			return nil, err
		}
	}

	sess.Commit(record)
	return s.stateFromGame(sess.ID, record, game), nil
}

// SetDifficulty switches the session's preset; it applies from the engine's
// next move.
func (s *Service) SetDifficulty(ctx context.Context, sessionID, presetToken string) (*SessionState, error) {
	presetName, err := corechess.ResolvePresetName(presetToken, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadInput, err)
	}

	sess, err := s.sessions.Get(strings.TrimSpace(sessionID))
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if err := s.lockSession(ctx, sess); err != nil {
		return nil, err
	}
	defer sess.Unlock()

	record := sess.Snapshot()
	record.Preset = presetName
	record.UpdatedAt = time.Now()

	game, err := replayGame(record)
	if err != nil {
		return nil, fmt.Errorf("replay session %s: %w", sess.ID, err)
	}

	sess.Commit(record)
	return s.stateFromGame(sess.ID, record, game), nil
}

// Hint analyzes the current position at full strength and suggests the
// human's best move.
func (s *Service) Hint(ctx context.Context, sessionID string) (*HintSuggestion, error) {
	sess, err := s.sessions.Get(strings.TrimSpace(sessionID))
	if err != nil {
		return nil, ErrSessionNotFound
	}

	record := sess.Snapshot()
	game, err := s.replayOngoing(record)
	if err != nil {
		return nil, err
	}

	analysis := record.Clone()
	analysis.Preset = corechess.HintPresetName
	result, err := s.evaluate(ctx, sess.ID, analysis)
	if err != nil {
		return nil, err
	}

	bestMove := strings.ToLower(strings.TrimSpace(result.EngineBestMove))
	if bestMove == "" {
		bestMove = strings.ToLower(strings.TrimSpace(result.Chosen.Move))
	}
	if bestMove == "" {
		return nil, fmt.Errorf("%w: hint search chose no move", ErrEngineProtocol)
	}

	suggestion := &HintSuggestion{
		MoveUCI:  bestMove,
		Duration: result.Duration,
	}
	if mv, decodeErr := (nchess.UCINotation{}).Decode(game.Position(), bestMove); decodeErr == nil {
		suggestion.MoveSAN = (nchess.AlgebraicNotation{}).Encode(game.Position(), mv)
	}
	for _, cand := range result.Candidates {
		if strings.EqualFold(cand.Move, bestMove) {
			suggestion.EvaluationCP = cand.EvalCP
			suggestion.Principal = append([]string(nil), cand.Principal...)
			break
		}
	}
	return suggestion, nil
}

// Board renders the current position. Supported formats are "png" and
// "svg"; empty means png. Size is a pixel-width hint, zero for the default.
func (s *Service) Board(ctx context.Context, sessionID, format string, size int) ([]byte, string, error) {
	sess, err := s.sessions.Get(strings.TrimSpace(sessionID))
	if err != nil {
		return nil, "", ErrSessionNotFound
	}

	record := sess.Snapshot()
	game, err := replayGame(record)
	if err != nil {
		return nil, "", fmt.Errorf("replay session %s: %w", sess.ID, err)
	}

	opts := RenderOptions{
		Highlight:   lastMoveHighlight(game),
		Perspective: colorOf(record.HumanColor),
		SizePx:      size,
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "png":
		data, err := s.renderer.RenderPNG(ctx, game.Position().Board(), opts)
		if err != nil {
			return nil, "", err
		}
		return data, "image/png", nil
	case "svg":
		data, err := s.renderer.RenderSVG(ctx, game.Position().Board(), opts)
		if err != nil {
			return nil, "", err
		}
		return data, "image/svg+xml", nil
	default:
		return nil, "", fmt.Errorf("%w: unsupported board format %q", ErrBadInput, format)
	}
}

// RecentGames lists the newest archived games.
func (s *Service) RecentGames(ctx context.Context, limit int) ([]*domain.FinishedGame, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.repo.RecentGames(ctx, limit)
}

// FinishedGameByID fetches one archived game.
func (s *Service) FinishedGameByID(ctx context.Context, id int64) (*domain.FinishedGame, error) {
	game, err := s.repo.GameByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return game, nil
}

// Health reports live session count and engine pool state.
func (s *Service) Health(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Status:   "ok",
		Sessions: s.sessions.Len(),
	}
	if s.pool != nil {
		report.Pool = s.pool.PoolStats()
		if report.Pool.Degraded {
			report.Status = "degraded"
		}
	}
	return report
}

// ResetEnginePool clears a degraded pool after the operator fixed the
// underlying binary problem.
func (s *Service) ResetEnginePool(ctx context.Context) error {
	if s.pool == nil {
		return ErrEngineUnavailable
	}
	if err := s.pool.ResetPool(ctx); err != nil {
		s.logger.Warn("engine pool reset failed", zap.Error(err))
		return mapEngineError(err)
	}
	s.logger.Info("engine pool reset")
	return nil
}

// Close stops the session janitor.
func (s *Service) Close() {
	s.sessions.Close()
}

func (s *Service) lockSession(ctx context.Context, sess *session.Session) error {
	if s.cfg.WaitPolicy == WaitBlock {
		waitCtx, cancel := context.WithTimeout(ctx, s.cfg.LockWait)
		defer cancel()
		err := sess.Lock(waitCtx)
		if errors.Is(err, session.ErrBusy) {
			return ErrSessionBusy
		}
		return err
	}
	if !sess.TryLock() {
		return ErrSessionBusy
	}
	return nil
}

// replayOngoing replays the record and rejects finished games.
func (s *Service) replayOngoing(record domain.GameRecord) (*nchess.Game, error) {
	if record.ResignedBy != "" {
		return nil, ErrGameFinished
	}
	game, err := replayGame(record)
	if err != nil {
		return nil, fmt.Errorf("replay session history: %w", err)
	}
	if game.Outcome() != nchess.NoOutcome {
		return nil, ErrGameFinished
	}
	return game, nil
}

// appendEngineMove evaluates the record's position and appends the engine's
// move, returning the replayed game including it. Used when the engine is
// to move without a preceding player move.
func (s *Service) appendEngineMove(ctx context.Context, record *domain.GameRecord, game *nchess.Game) (*nchess.Game, error) {
	if game == nil {
		var err error
		game, err = replayGame(*record)
		if err != nil {
			return nil, fmt.Errorf("replay session history: %w", err)
		}
	}

	result, err := s.evaluate(ctx, "", *record)
	if err != nil {
		return nil, err
	}

	engineMoveText := strings.ToLower(strings.TrimSpace(result.Chosen.Move))
	if engineMoveText == "" {
		return nil, fmt.Errorf("%w: engine chose no move", ErrEngineProtocol)
	}
	pos := game.Position()
	mv, err := (nchess.UCINotation{}).Decode(pos, engineMoveText)
	if err != nil {
		return nil, fmt.Errorf("%w: engine move %q does not parse: %v", ErrEngineProtocol, engineMoveText, err)
	}
	if err := game.Move(mv, nil); err != nil {
		return nil, fmt.Errorf("%w: engine move %q is illegal here: %v", ErrEngineProtocol, engineMoveText, err)
	}

	record.MovesUCI = append(record.MovesUCI, engineMoveText)
	record.UpdatedAt = time.Now()
	return game, nil
}

// evaluate runs the engine with the preset's deadline, consulting the memo
// cache first when one is wired.
func (s *Service) evaluate(ctx context.Context, sessionID string, record domain.GameRecord) (corechess.EvaluateResult, error) {
	evalTimeout := s.evaluationTimeout(record.Preset)
	evalCtx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	if s.evalCache != nil {
		if result, ok := s.evalCache.Lookup(evalCtx, record.Preset, record.MovesUCI); ok {
			return result, nil
		}
	}

	result, err := s.engine.Evaluate(evalCtx, corechess.EvaluateRequest{
		PresetName: record.Preset,
		FEN:        "startpos",
		Moves:      append([]string(nil), record.MovesUCI...),
	})
	if err != nil {
		s.logger.Warn("chess engine evaluation failed",
			zap.Error(err),
			zap.String("session_id", sessionID),
			zap.String("preset", record.Preset),
			zap.Int("move_count", len(record.MovesUCI)),
			zap.Duration("timeout", evalTimeout))
		return result, mapEngineError(err)
	}

	if s.evalCache != nil && !result.FromBook {
		s.evalCache.Store(ctx, record.Preset, record.MovesUCI, result)
	}
	return result, nil
}

// archiveFinished writes the archive row. Best effort: the game is over for
// the player whether or not the insert lands.
func (s *Service) archiveFinished(ctx context.Context, sessionID string, record domain.GameRecord, game *nchess.Game, engineResult corechess.EvaluateResult) {
	now := time.Now()
	finished := &domain.FinishedGame{
		SessionID:     sessionID,
		Preset:        record.Preset,
		HumanColor:    record.HumanColor,
		Result:        game.Outcome().String(),
		Method:        strings.ToLower(game.Method().String()),
		MovesUCI:      append([]string(nil), record.MovesUCI...),
		MovesSAN:      s.stateFromGame(sessionID, record, game).MovesSAN,
		PGN:           game.String(),
		StartedAt:     record.StartedAt,
		EndedAt:       now,
		Duration:      now.Sub(record.StartedAt),
		EngineLatency: engineResult.Duration,
	}
	if record.ResignedBy != "" {
		finished.Method = "resignation"
	}

	if _, err := s.repo.InsertGame(ctx, finished); err != nil {
		s.logger.Warn("failed to archive finished chess game",
			zap.Error(err),
			zap.String("session_id", sessionID))
		return
	}
	s.logger.Info("chess game finished",
		zap.String("session_id", sessionID),
		zap.String("result", finished.Result),
		zap.String("method", finished.Method),
		zap.Int("moves", len(finished.MovesUCI)))
}

func (s *Service) evaluationTimeout(presetName string) time.Duration {
	floor := s.cfg.EngineTimeoutFloor
	if floor <= 0 {
		floor = defaultEngineTimeoutFloor
	}
	preset, err := corechess.GetPreset(presetName)
	if err != nil {
		s.logger.Warn("failed to resolve chess preset for timeout, using fallback",
			zap.String("preset", presetName),
			zap.Error(err))
		return floor + engineEvaluationBuffer
	}
	timeout := evaluationTimeoutFromPreset(preset) + engineEvaluationBuffer
	if timeout < floor {
		return floor
	}
	return timeout
}

func evaluationTimeoutFromPreset(p corechess.DifficultyPreset) time.Duration {
	if p.MoveTimeMillis > 0 {
		ms := p.MoveTimeMillis + 800
		return time.Duration(ms) * time.Millisecond * 2
	}
	if p.DepthCap > 0 {
		base := time.Duration(p.DepthCap) * 200 * time.Millisecond
		if base < 3*time.Second {
			base = 3 * time.Second
		}
		if base > 15*time.Second {
			base = 15 * time.Second
		}
		return base
	}
	return 5 * time.Second
}

func mapEngineError(err error) error {
	switch {
	case err == nil:
		return ErrEngineUnavailable
	case errors.Is(err, uci.ErrPoolDegraded):
		return ErrPoolDegraded
	case errors.Is(err, uci.ErrAcquireTimeout):
		return ErrPoolTimeout
	case errors.Is(err, uci.ErrProtocol):
		return ErrEngineProtocol
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), engineTimeoutMessage(err):
		return ErrEngineTimeout
	default:
		return ErrEngineUnavailable
	}
}

func engineTimeoutMessage(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

func normalizeColor(color string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(color)) {
	case "", domain.ColorWhite:
		return domain.ColorWhite, nil
	case domain.ColorBlack:
		return domain.ColorBlack, nil
	default:
		return "", fmt.Errorf("unknown color %q", color)
	}
}

// autoUndoPlies picks how many plies to strip so the human ends up on turn:
// the engine's reply plus the player's move after a full exchange, just the
// player's move when the game ended on it.
func autoUndoPlies(record domain.GameRecord) int {
	for _, n := range []int{1, 2} {
		if n > len(record.MovesUCI) {
			return 0
		}
		if humanOnTurn(record.HumanColor, len(record.MovesUCI)-n) {
			return n
		}
	}
	return 0
}

// humanOnTurn reports whether the side to move after moveCount plies from
// the start is the human.
func humanOnTurn(humanColor string, moveCount int) bool {
	whiteToMove := moveCount%2 == 0
	if humanColor == domain.ColorBlack {
		return !whiteToMove
	}
	return whiteToMove
}

func lastMoveHighlight(game *nchess.Game) *MoveHighlight {
	moves := game.Moves()
	if len(moves) == 0 {
		return nil
	}
	last := moves[len(moves)-1]
	return &MoveHighlight{From: last.S1(), To: last.S2()}
}

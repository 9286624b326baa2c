package chess

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/park285/cheese-api/internal/domain"
)

// Repository archives finished games.
type Repository interface {
	// InsertGame stores the game, replacing any earlier archive row for the
	// same session. A session can finish twice when moves are undone after
	// checkmate.
	InsertGame(ctx context.Context, game *domain.FinishedGame) (int64, error)
	RecentGames(ctx context.Context, limit int) ([]*domain.FinishedGame, error)
	// GameByID returns nil without error when no row matches.
	GameByID(ctx context.Context, id int64) (*domain.FinishedGame, error)
}

const gameColumns = `
	id,
	session_id,
	preset,
	human_color,
	result,
	result_method,
	moves_uci,
	moves_san,
	pgn,
	started_at,
	ended_at,
	duration_ms,
	engine_latency_ms`

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the archive table when it does not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS chess_games (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL UNIQUE,
			preset TEXT NOT NULL,
			human_color TEXT NOT NULL,
			result TEXT NOT NULL,
			result_method TEXT NOT NULL,
			moves_uci JSONB NOT NULL,
			moves_san JSONB NOT NULL,
			pgn TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT NOT NULL,
			engine_latency_ms BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS chess_games_ended_at_idx ON chess_games (ended_at DESC)`

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure chess_games schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) InsertGame(ctx context.Context, game *domain.FinishedGame) (int64, error) {
	if game == nil {
		return 0, fmt.Errorf("nil chess game payload")
	}

	movesUCI, err := json.Marshal(game.MovesUCI)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_uci: %w", err)
	}
	movesSAN, err := json.Marshal(game.MovesSAN)
	if err != nil {
		return 0, fmt.Errorf("marshal moves_san: %w", err)
	}

	const query = `
		INSERT INTO chess_games (
			session_id,
			preset,
			human_color,
			result,
			result_method,
			moves_uci,
			moves_san,
			pgn,
			started_at,
			ended_at,
			duration_ms,
			engine_latency_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb, $8, $9, $10, $11, $12)
		ON CONFLICT (session_id) DO UPDATE SET
			preset = EXCLUDED.preset,
			result = EXCLUDED.result,
			result_method = EXCLUDED.result_method,
			moves_uci = EXCLUDED.moves_uci,
			moves_san = EXCLUDED.moves_san,
			pgn = EXCLUDED.pgn,
			ended_at = EXCLUDED.ended_at,
			duration_ms = EXCLUDED.duration_ms,
			engine_latency_ms = EXCLUDED.engine_latency_ms
		RETURNING id`

	var id int64
	err = r.db.QueryRowContext(
		ctx,
		query,
		game.SessionID,
		game.Preset,
		game.HumanColor,
		game.Result,
		game.Method,
		movesUCI,
		movesSAN,
		game.PGN,
		game.StartedAt,
		game.EndedAt,
		game.Duration.Milliseconds(),
		game.EngineLatency.Milliseconds(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert chess game: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) RecentGames(ctx context.Context, limit int) ([]*domain.FinishedGame, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT` + gameColumns + `
		FROM chess_games
		ORDER BY ended_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select chess games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.FinishedGame, 0, limit)
	for rows.Next() {
		game, err := scanFinishedGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chess games: %w", err)
	}
	return games, nil
}

func (r *PostgresRepository) GameByID(ctx context.Context, id int64) (*domain.FinishedGame, error) {
	query := `SELECT` + gameColumns + `
		FROM chess_games
		WHERE id = $1`

	game, err := scanFinishedGame(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return game, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFinishedGame(row rowScanner) (*domain.FinishedGame, error) {
	var (
		game         domain.FinishedGame
		movesUCIJSON []byte
		movesSANJSON []byte
		durationMS   sql.NullInt64
		latencyMS    sql.NullInt64
	)
	err := row.Scan(
		&game.ID,
		&game.SessionID,
		&game.Preset,
		&game.HumanColor,
		&game.Result,
		&game.Method,
		&movesUCIJSON,
		&movesSANJSON,
		&game.PGN,
		&game.StartedAt,
		&game.EndedAt,
		&durationMS,
		&latencyMS,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan chess game: %w", err)
	}

	if durationMS.Valid {
		game.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if latencyMS.Valid {
		game.EngineLatency = time.Duration(latencyMS.Int64) * time.Millisecond
	}
	if err := json.Unmarshal(movesUCIJSON, &game.MovesUCI); err != nil {
		return nil, fmt.Errorf("unmarshal moves_uci: %w", err)
	}
	if err := json.Unmarshal(movesSANJSON, &game.MovesSAN); err != nil {
		return nil, fmt.Errorf("unmarshal moves_san: %w", err)
	}
	return &game, nil
}

// Package chessbuilder assembles the service graph from loaded
// configuration: engine pool, session manager, caches, archive
// repository, and the HTTP server on top.
package chessbuilder

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	corechess "github.com/park285/cheese-api/internal/chess"
	"github.com/park285/cheese-api/internal/config"
	"github.com/park285/cheese-api/internal/httpapi"
	"github.com/park285/cheese-api/internal/service/cache"
	svcchess "github.com/park285/cheese-api/internal/service/chess"
	"github.com/park285/cheese-api/internal/session"
	"go.uber.org/zap"
)

// Deps is the assembled application. Close tears it down in reverse
// dependency order; it tolerates partially built graphs so New can call
// it on its own error paths.
type Deps struct {
	Server   *httpapi.Server
	Service  *svcchess.Service
	Engine   *corechess.Engine
	Sessions *session.Manager
	Cache    *cache.CacheService
	Repo     svcchess.Repository

	db     *sql.DB
	logger *zap.Logger
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if strings.TrimSpace(cfg.EnginePath) == "" {
		return nil, fmt.Errorf("CHESS_ENGINE_PATH is required")
	}

	if cfg.ChessPresetsFile != "" {
		if err := corechess.LoadPresetFile(cfg.ChessPresetsFile); err != nil {
			return nil, fmt.Errorf("load presets file: %w", err)
		}
		logger.Info("difficulty presets overridden", zap.String("file", cfg.ChessPresetsFile))
	}

	engine, err := corechess.NewEngine(corechess.Config{
		BinaryPath:        cfg.EnginePath,
		PoolSize:          cfg.EnginePoolSize,
		SpawnFailureLimit: cfg.PoolSpawnRetries,
		AcquireTimeout:    time.Duration(cfg.PoolAcquireMillis) * time.Millisecond,
		DefaultPreset:     cfg.ChessDefaultPreset,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init engine: %w", err)
	}

	deps := &Deps{Engine: engine, logger: logger}

	// Redis is optional. Without it evaluations are recomputed every time,
	// which only costs engine cycles.
	if cfg.RedisAddr != "" {
		cacheSvc, cerr := cache.NewCacheService(cache.CacheConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if cerr != nil {
			deps.Close()
			return nil, fmt.Errorf("init cache: %w", cerr)
		}
		deps.Cache = cacheSvc
	}
	evalCache := svcchess.NewEvalCache(deps.Cache, time.Duration(cfg.EvalCacheTTLSec)*time.Second, logger)

	// Postgres is optional. Without it finished games are archived in
	// process memory and lost on restart.
	if cfg.DatabaseURL != "" {
		repo, db, rerr := openPostgres(cfg.DatabaseURL)
		if rerr != nil {
			deps.Close()
			return nil, rerr
		}
		deps.Repo = repo
		deps.db = db
	} else {
		deps.Repo = svcchess.NewMemoryRepository()
		logger.Info("no DATABASE_URL, archiving finished games in memory")
	}

	deps.Sessions = session.NewManager(session.Config{
		TTL:           time.Duration(cfg.SessionTTLSec) * time.Second,
		SweepInterval: time.Duration(cfg.SessionSweepSec) * time.Second,
		Logger:        logger,
	})

	service, err := svcchess.NewService(engine, engine, deps.Sessions, deps.Repo, svcchess.NewBoardRenderer(), evalCache, svcchess.Config{
		DefaultPreset:      cfg.ChessDefaultPreset,
		WaitPolicy:         cfg.SessionWait,
		EngineTimeoutFloor: time.Duration(cfg.EngineMoveMillis) * time.Millisecond,
	}, logger)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Service = service

	deps.Server = httpapi.NewServer(service, httpapi.ServerConfig{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
	}, logger)

	return deps, nil
}

func openPostgres(databaseURL string) (*svcchess.PostgresRepository, *sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	repo := svcchess.NewRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, db, nil
}

// Close stops the session janitor, kills pooled engine subprocesses, and
// closes cache and database connections. The HTTP server is shut down by
// the caller before Close so in-flight requests drain first.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	logger := d.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if d.Sessions != nil {
		d.Sessions.Close()
	}
	if d.Engine != nil {
		if err := d.Engine.Close(); err != nil {
			logger.Warn("engine close", zap.Error(err))
		}
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			logger.Warn("cache close", zap.Error(err))
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			logger.Warn("postgres close", zap.Error(err))
		}
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	SessionWaitReject = "reject"
	SessionWaitBlock  = "block"
)

type AppConfig struct {
	HTTPAddr            string
	HTTPReadTimeoutSec  int
	HTTPWriteTimeoutSec int

	EnginePath        string
	EnginePoolSize    int
	PoolAcquireMillis int
	PoolSpawnRetries  int
	EngineMoveMillis  int

	ChessDefaultPreset string
	ChessPresetsFile   string

	SessionTTLSec   int
	SessionSweepSec int
	SessionWait     string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	EvalCacheTTLSec  int

	DatabaseURL string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:            ":8080",
		HTTPReadTimeoutSec:  15,
		HTTPWriteTimeoutSec: 60,
		EnginePoolSize:      0,
		PoolAcquireMillis:   5000,
		PoolSpawnRetries:    3,
		EngineMoveMillis:    5000,
		ChessDefaultPreset:  "level3",
		SessionTTLSec:       3600,
		SessionSweepSec:     60,
		SessionWait:         SessionWaitReject,
		EvalCacheTTLSec:     600,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_READ_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPReadTimeoutSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_WRITE_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPWriteTimeoutSec = n
		}
	}

	cfg.EnginePath = strings.TrimSpace(os.Getenv("CHESS_ENGINE_PATH"))
	if cfg.EnginePath == "" {
		cfg.EnginePath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_ENGINE_POOL_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.EnginePoolSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_POOL_ACQUIRE_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PoolAcquireMillis = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_POOL_SPAWN_RETRIES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PoolSpawnRetries = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_ENGINE_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineMoveMillis = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("CHESS_DEFAULT_PRESET")); v != "" {
		cfg.ChessDefaultPreset = v
	}
	cfg.ChessPresetsFile = strings.TrimSpace(os.Getenv("CHESS_PRESETS_FILE"))

	if v := strings.TrimSpace(os.Getenv("CHESS_SESSION_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTLSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_SESSION_SWEEP_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionSweepSec = n
		}
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("CHESS_SESSION_WAIT"))); v != "" {
		if v != SessionWaitReject && v != SessionWaitBlock {
			return nil, fmt.Errorf("CHESS_SESSION_WAIT must be %q or %q, got %q", SessionWaitReject, SessionWaitBlock, v)
		}
		cfg.SessionWait = v
	}

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = strings.TrimSpace(os.Getenv("REDIS_PASSWORD"))
	if v := strings.TrimSpace(os.Getenv("REDIS_DB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RedisDB = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_EVAL_CACHE_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EvalCacheTTLSec = n
		}
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if cfg.EnginePath == "" {
		return nil, errors.New("CHESS_ENGINE_PATH is required")
	}

	return cfg, nil
}

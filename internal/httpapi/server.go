// Package httpapi serves the game service's REST surface over fasthttp.
package httpapi

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	svcchess "github.com/park285/cheese-api/internal/service/chess"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	maxRequestBodySize  = 64 * 1024
)

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type Server struct {
	svc    *svcchess.Service
	logger *zap.Logger
	addr   string
	inner  *fasthttp.Server
}

func NewServer(svc *svcchess.Service, cfg ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}

	s := &Server{
		svc:    svc,
		logger: logger,
		addr:   cfg.Addr,
	}
	s.inner = &fasthttp.Server{
		Handler:            s.withRecover(s.withAccessLog(s.route)),
		Name:               "cheese-api",
		ReadTimeout:        cfg.ReadTimeout,
		WriteTimeout:       cfg.WriteTimeout,
		IdleTimeout:        cfg.IdleTimeout,
		MaxRequestBodySize: maxRequestBodySize,
	}
	return s
}

func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", zap.String("addr", s.addr))
	return s.inner.ListenAndServe(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.ShutdownWithContext(ctx)
}

// Handler exposes the routed handler chain for tests.
func (s *Server) Handler() fasthttp.RequestHandler {
	return s.inner.Handler
}

func (s *Server) withRecover(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic while serving request",
					zap.Any("panic", r),
					zap.ByteString("method", ctx.Method()),
					zap.ByteString("path", ctx.Path()))
				writeInternalError(ctx)
			}
		}()
		next(ctx)
	}
}

func (s *Server) withAccessLog(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		requestID := uuid.NewString()
		ctx.SetUserValue(requestIDKey, requestID)
		ctx.Response.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		next(ctx)

		s.logger.Info("http request",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("path", ctx.Path()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestID))
	}
}

const requestIDKey = "request_id"

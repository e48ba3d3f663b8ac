package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/flowgen/logger"
	"github.com/kbukum/flowgen/server/endpoint"
	"github.com/kbukum/flowgen/server/middleware"
)

// Server is an HTTP server backed by Gin with a net/http middleware chain
// applied in front of the engine.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     Config
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
}

// New creates a Server. Routes are registered on Engine before Start.
func New(cfg Config, log *logger.Logger) *Server {
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	log = log.WithComponent("server")

	chain := middleware.Chain(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.CORS(&cfg.CORS),
		middleware.BodySizeLimit(cfg.MaxBodySize),
		middleware.RequestLogger(log),
	)

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          cfg.IdleTimeout,
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h2c.NewHandler(chain(engine), h2s),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		httpServer: httpServer,
		engine:     engine,
		config:     cfg,
		log:        log,
	}
}

// Engine returns the Gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler returns the full handler including middleware, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// RegisterHealth mounts /health and /alive.
func (s *Server) RegisterHealth(checker endpoint.HealthChecker) {
	s.engine.GET("/health", endpoint.Health(checker))
	s.engine.GET("/alive", endpoint.Liveness())
}

// Start binds the port and serves in a goroutine. It returns once the
// listener is bound.
func (s *Server) Start(_ context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", logger.Fields("error", err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", listener.Addr().String()))
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server shut down")
	return nil
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

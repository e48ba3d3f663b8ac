package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/flowgen/component"
	"github.com/kbukum/flowgen/logger"
	"github.com/kbukum/flowgen/observability"
)

// App owns the component registry and lifecycle of one process.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger

	gracefulTimeout time.Duration
	onStart         []Hook
	onReady         []Hook
	onStop          []Hook
}

// Option configures an App.
type Option func(*options)

type options struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
}

// WithLogger uses l instead of initializing the global logger from config.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithGracefulTimeout bounds shutdown. The default is 15s; non-positive
// values keep it.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.gracefulTimeout = d
		}
	}
}

// NewApp applies defaults to cfg, validates it and initializes logging.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := options{gracefulTimeout: 15 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	base := cfg.GetServiceConfig()
	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		gracefulTimeout: o.gracefulTimeout,
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}
	return app, nil
}

// RegisterComponent adds c. Components start in registration order.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// Health aggregates component health for the /health endpoint.
func (a *App[C]) Health(ctx context.Context) *observability.ServiceHealth {
	return a.Components.Health(ctx, a.Name, a.Version)
}

// ReadyCheck returns an error naming every component that is not up.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var unhealthy []string
	for _, h := range a.Health(ctx).Unhealthy() {
		detail := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			detail += "(" + h.Message + ")"
		}
		unhealthy = append(unhealthy, detail)
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %s", strings.Join(unhealthy, ", "))
	}
	return nil
}

// Run starts the application, blocks until SIGINT, SIGTERM or ctx is done,
// then shuts down.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown()
		return err
	}
	a.Logger.Info("application ready")
	a.WaitForSignal(ctx)
	return a.Shutdown()
}

// Start starts every component and runs the start and ready hooks. A
// failed ready check is logged, not returned.
func (a *App[C]) Start(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("start components: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart: %w", err)
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady: %w", err)
	}
	a.Logger.Info("application started", logger.Fields(logger.FieldDuration, time.Since(start).Milliseconds()))
	return nil
}

// WaitForSignal blocks until SIGINT, SIGTERM or ctx is done.
func (a *App[C]) WaitForSignal(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("shutdown signal received", logger.Fields("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.Info("context done, shutting down")
	}
}

// Shutdown runs the stop hooks and stops components in reverse order
// within the graceful timeout.
func (a *App[C]) Shutdown() error {
	a.Logger.Info("shutting down", logger.Fields("timeout", a.gracefulTimeout.String()))
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("onStop hook failed", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		shutdownErr = err
	}
	a.Logger.Info("shutdown complete")
	return shutdownErr
}

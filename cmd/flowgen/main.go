// Command flowgen serves the generation graph scheduler over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kbukum/flowgen/api"
	"github.com/kbukum/flowgen/backend"
	"github.com/kbukum/flowgen/bootstrap"
	"github.com/kbukum/flowgen/config"
	"github.com/kbukum/flowgen/graph"
	"github.com/kbukum/flowgen/guard"
	"github.com/kbukum/flowgen/ledger"
	"github.com/kbukum/flowgen/logger"
	"github.com/kbukum/flowgen/observability"
	"github.com/kbukum/flowgen/redis"
	"github.com/kbukum/flowgen/runner"
	"github.com/kbukum/flowgen/scheduler"
	"github.com/kbukum/flowgen/server"
	"github.com/kbukum/flowgen/sse"
	"github.com/kbukum/flowgen/version"
)

const serviceName = "flowgen"

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg AppConfig
	var loadOpts []config.LoaderOption
	if path := os.Getenv("FLOWGEN_ENV_FILE"); path != "" {
		loadOpts = append(loadOpts, config.WithEnvFile(path))
	}
	if err := config.LoadConfig(serviceName, &cfg, loadOpts...); err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.Short()
	}

	app, err := bootstrap.NewApp(&cfg, bootstrap.WithGracefulTimeout(cfg.ShutdownTimeout))
	if err != nil {
		return err
	}
	log := app.Logger

	shutdownTelemetry, err := observability.Init(ctx, cfg.Observability, cfg.Name, cfg.Version)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			log.Warn("telemetry shutdown failed", logger.Fields(logger.FieldError, err.Error()))
		}
	}()
	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	backends, err := backend.New(cfg.Backends, log, metrics)
	if err != nil {
		return fmt.Errorf("backends: %w", err)
	}

	store := graph.NewStore()
	tasks := ledger.New()

	events := sse.NewComponent("/v1/events")
	tasks.Subscribe(ledger.Broadcaster(events.Hub(), log.WithComponent("ledger")))
	store.Listen(api.NodeBroadcaster(events.Hub(), log.WithComponent("graph")))
	if err := app.RegisterComponent(events); err != nil {
		return err
	}

	if cfg.Redis.Enabled {
		rc := redis.NewComponent(cfg.Redis, log)
		if err := app.RegisterComponent(rc); err != nil {
			return err
		}
		app.OnStart(func(ctx context.Context) error {
			return restoreLedger(ctx, tasks, ledger.NewRedisMirror(rc.Client(), log), log)
		})
	}

	var opts []runner.Option
	for _, s := range runner.Strategies(backends) {
		opts = append(opts, runner.WithStrategy(s))
	}
	var exec runner.Executor = runner.New(store, opts...)
	exec = runner.WithTracing(exec, "runner")
	exec = runner.WithMetrics(exec, metrics)
	exec = runner.WithLogging(exec, log.WithComponent("runner"))

	g := guard.New(guard.WithWindow(cfg.Scheduler.ThrottleWindow))
	sched := scheduler.New(cfg.Scheduler, store, exec, g, tasks,
		scheduler.WithLogger(log.WithComponent("scheduler")),
		scheduler.WithMetrics(metrics),
		scheduler.WithPublisher(events.Hub()),
	)
	if err := app.RegisterComponent(sched); err != nil {
		return err
	}

	srv := server.New(cfg.Server, log)
	srv.RegisterHealth(app.Health)
	api.NewHandler(store, sched, tasks, events.Hub(), log.WithComponent("api")).Register(srv.Engine())
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return err
	}

	return app.Run(ctx)
}

// restoreLedger loads mirrored records, then keeps the mirror in sync. An
// unreachable mirror leaves the ledger empty but does not stop the process.
func restoreLedger(ctx context.Context, tasks *ledger.Ledger, mirror *ledger.RedisMirror, log *logger.Logger) error {
	records, err := mirror.Load(ctx)
	if err != nil {
		log.Warn("ledger restore failed", logger.Fields(logger.FieldError, err.Error()))
	} else {
		tasks.Restore(records)
		// interrupted records were failed on restore
		if err := mirror.Sync(ctx, tasks.List()); err != nil {
			log.Warn("ledger resync failed", logger.Fields(logger.FieldError, err.Error()))
		}
		log.Info("ledger restored", logger.Fields("records", len(records)))
	}
	tasks.Subscribe(mirror.Listener())
	return nil
}

// main is the entry point of the Students API application.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Open the configured storage backend, optionally behind Redis
//  4. Build the student service, the validator and the router
//  5. Serve HTTP until an OS signal (Ctrl+C / kill) arrives
//  6. Gracefully shut down: finish in-flight requests, then close storage
//
// RUNNING THE SERVER:
//
//	go run ./cmd/students-api --config=config/local.yaml
//
// or (with the environment variable):
//
//	CONFIG_PATH=config/local.yaml go run ./cmd/students-api
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/qapabilities/students-api/internal/config"
	"github.com/qapabilities/students-api/internal/http/router"
	"github.com/qapabilities/students-api/internal/metrics"
	"github.com/qapabilities/students-api/internal/service/student"
	"github.com/qapabilities/students-api/internal/storage"
	"github.com/qapabilities/students-api/internal/storage/memory"
	"github.com/qapabilities/students-api/internal/storage/postgres"
	"github.com/qapabilities/students-api/internal/storage/rediscache"
	"github.com/qapabilities/students-api/internal/storage/sqlite"
	"github.com/qapabilities/students-api/internal/validation"
)

func main() {
	// ── 1. Load Config ────────────────────────────────────────────────────
	cfg := config.MustLoad()

	// ── 2. Initialise Logger ──────────────────────────────────────────────
	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	log.Info("starting students-api",
		slog.String("env", cfg.Env),
		slog.String("driver", cfg.Driver),
		slog.String("version", "1.0.0"),
	)

	// ctx is cancelled on SIGINT / SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("students-api stopped with error", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}

// run owns every resource opened after config and logger, so deferred
// cleanup happens before main decides the exit code.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// ── 3. Initialise Storage ─────────────────────────────────────────────
	// Everything below depends on the storage.Storage interface only;
	// the driver is picked by config.
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialise storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close storage", slog.String("error", err.Error()))
		}
	}()

	// ── 4. Service, Validator, Router ─────────────────────────────────────
	svc, err := student.New(store,
		student.WithLogger(log),
		student.WithMetrics(metrics.New(prometheus.DefaultRegisterer)),
	)
	if err != nil {
		return fmt.Errorf("build student service: %w", err)
	}

	handler := router.New(router.Deps{
		Service:        svc,
		Validator:      validation.New(nil),
		MaxPageSize:    cfg.MaxPageSize,
		Gatherer:       prometheus.DefaultGatherer,
		RequestTimeout: cfg.WriteTimeout,
	})

	server := &http.Server{
		Addr:         cfg.HTTPServer.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// ── 5. Serve until a signal arrives ───────────────────────────────────
	// One goroutine serves; the other waits for ctx and shuts the server
	// down. If serving fails, the group's context is cancelled and the
	// shutdown goroutine returns too.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server started", slog.String("address", cfg.HTTPServer.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, stopping server...")

		// ── 6. Graceful Shutdown ──────────────────────────────────────────
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStorage opens the backend named by cfg.Driver and, when a Redis
// address is configured, wraps it with the read-through cache. An
// unreachable Redis only disables the cache.
func openStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	var (
		store storage.Storage
		err   error
	)

	switch cfg.Driver {
	case config.DriverPostgres:
		store, err = postgres.New(ctx, cfg.Postgres)
	case config.DriverMemory:
		store = memory.New()
	default:
		store, err = sqlite.New(cfg)
	}
	if err != nil {
		return nil, err
	}
	log.Info("storage initialised", slog.String("driver", cfg.Driver))

	if cfg.Redis.Addr == "" {
		return store, nil
	}

	client, err := rediscache.Dial(ctx, cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, running without cache", slog.String("error", err.Error()))
		return store, nil
	}
	log.Info("student cache enabled", slog.String("address", cfg.Redis.Addr), slog.Duration("ttl", cfg.Redis.TTL))

	return rediscache.New(store, client, cfg.Redis.TTL, log), nil
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default: // "dev" and anything unrecognised
		return slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}

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
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/healthcare-ti/form-enfermagem/internal/config"
	"github.com/healthcare-ti/form-enfermagem/internal/logging"
	"github.com/healthcare-ti/form-enfermagem/internal/ratelimit"
	"github.com/healthcare-ti/form-enfermagem/internal/store"
	"github.com/healthcare-ti/form-enfermagem/internal/store/memory"
	"github.com/healthcare-ti/form-enfermagem/internal/store/postgres"
	"github.com/healthcare-ti/form-enfermagem/internal/submission"
	"github.com/healthcare-ti/form-enfermagem/internal/web"
)

func main() {
	// A missing .env is normal in deployed environments.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := submission.NewMetrics(registry)

	coordinator := submission.NewCoordinator(st, st, submission.Config{
		Bucket:       cfg.Store.Bucket,
		CacheControl: cfg.Store.CacheControl,
		Deadline:     cfg.Submission.Deadline,
	}, submission.WithMetrics(metrics))
	limiter := submission.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime, metrics)

	g, gctx := errgroup.WithContext(ctx)

	deps := web.Deps{
		Coordinator: coordinator,
		Limiter:     limiter,
		Health:      st,
	}
	if cfg.Metrics.Enabled {
		deps.Registry = registry
	}
	if cfg.Rate.Enabled {
		requests, submits, closeRedis, err := rateLimiters(gctx, g, cfg)
		if err != nil {
			return err
		}
		defer closeRedis()
		deps.Requests, deps.Submits = requests, submits
	}

	server := web.NewServer(cfg, deps)

	g.Go(func() error {
		slog.Info("server starting", "addr", cfg.Server.Addr(), "deadline", cfg.Submission.Deadline)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop taking requests, then let running sagas finish before the
		// store closes.
		err := server.Shutdown(shutdownCtx)
		if active := limiter.Active(); active > 0 {
			slog.Info("waiting for submissions to complete", "active", active)
			if derr := limiter.Drain(shutdownCtx); derr != nil {
				slog.Warn("submissions did not complete in time", "error", derr)
			}
		}
		return err
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.Store.Driver == config.DriverMemory {
		slog.Warn("using in-memory store, submissions are lost on restart")
		return memory.New(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	pg, err := postgres.Connect(connectCtx, postgres.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Database.EnsureSchema {
		if err := pg.EnsureSchema(connectCtx); err != nil {
			pg.Close()
			return nil, err
		}
	}
	slog.Info("connected to database", "max_conns", cfg.Database.MaxConns)
	return pg, nil
}

// rateLimiters returns the global and submission limiters. With REDIS_URL
// they share counters through Redis; otherwise they are per process and a
// sweeper runs in g.
func rateLimiters(ctx context.Context, g *errgroup.Group, cfg *config.Config) (requests, submits ratelimit.Limiter, closeFn func(), err error) {
	client, err := ratelimit.NewClient(ctx, ratelimit.ClientConfig{
		URL:         cfg.Rate.RedisURL,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	if client != nil {
		slog.Info("rate limiting with redis")
		closeFn = func() {
			if err := client.Close(); err != nil {
				slog.Warn("close redis", "error", err)
			}
		}
		return ratelimit.NewRedis(client, cfg.Rate.RequestsPerMinute, time.Minute),
			ratelimit.NewRedis(client, cfg.Rate.SubmitLimit, time.Minute, ratelimit.WithPrefix("cadastro:rl:submit:")),
			closeFn, nil
	}

	slog.Warn("REDIS_URL not set, rate limits are per process")
	all := ratelimit.NewMemory(cfg.Rate.RequestsPerMinute, time.Minute)
	submit := ratelimit.NewMemory(cfg.Rate.SubmitLimit, time.Minute)
	g.Go(func() error { all.Run(ctx); return nil })
	g.Go(func() error { submit.Run(ctx); return nil })
	return all, submit, func() {}, nil
}

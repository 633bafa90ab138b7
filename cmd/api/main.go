package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/fincrest/expensehub/internal/auth"
	"github.com/fincrest/expensehub/internal/cache"
	"github.com/fincrest/expensehub/internal/config"
	"github.com/fincrest/expensehub/internal/db"
	httpapi "github.com/fincrest/expensehub/internal/http"
	"github.com/fincrest/expensehub/internal/http/handlers"
	"github.com/fincrest/expensehub/internal/http/middlewares"
	"github.com/fincrest/expensehub/internal/notifications"
	"github.com/fincrest/expensehub/internal/observability"
	"github.com/fincrest/expensehub/internal/repo/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "expensehub", cfg.OTLPEndpoint)
	if err != nil {
		log.Warn("tracer init failed, continuing without traces", "error", err)
	} else {
		defer func() {
			c, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(c)
		}()
	}

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DBURL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	{
		c, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := db.EnsureSystemCategory(c, pool); err != nil {
			return fmt.Errorf("seed system category: %w", err)
		}
		if err := db.SeedDefaultCategories(c, pool); err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
		if err := db.EnsureBootstrapManager(c, pool, cfg); err != nil {
			return fmt.Errorf("seed bootstrap manager: %w", err)
		}
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL)
	authMW := middlewares.NewAuthMiddleware(tokens)

	var authLimiter httpapi.RateLimiter = middlewares.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		c, cancel := config.WithTimeout(3 * time.Second)
		pingErr := rdb.Ping(c).Err()
		cancel()

		if pingErr != nil {
			log.Warn("redis unreachable, using in-memory rate limiter", "error", pingErr)
		} else {
			authLimiter = middlewares.NewRedisRateLimiter(rdb, cfg.AuthRateLimit, cfg.AuthRateWindow)
			defer func() { _ = rdb.Close() }()
		}
	}

	users := postgres.NewUsersRepo(pool, prom)
	categories := postgres.NewCategoriesRepo(pool, prom)
	expenses := postgres.NewExpensesRepo(pool, prom)
	reports := postgres.NewReportsRepo(pool, prom)

	var notifier notifications.Notifier = notifications.NewProtectedNotifier(
		notifications.NewLogNotifier(log),
		notifications.ProtectedNotifierConfig{},
	)

	categoryCache := cache.New(30 * time.Second)

	router := httpapi.NewRouter(httpapi.Deps{
		Cfg:  cfg,
		Log:  log,
		Prom: prom,

		Auth:       handlers.NewAuthHandler(users, tokens, log),
		Categories: handlers.NewCategoriesHandler(categories, categoryCache, log),
		Expenses:   handlers.NewExpensesHandler(expenses, notifier, prom, log),
		Reports:    handlers.NewReportsHandler(reports, log),
		Health:     handlers.NewHealthHandler(pool),

		AuthMW:      authMW,
		AuthLimiter: authLimiter,

		PromRegistry: registry,
	})

	srv := &stdhttp.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("server listening", "port", cfg.Port, "env", cfg.Env)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	_ "github.com/99minutos/taskboard/docs"
	"github.com/99minutos/taskboard/internal/api"
	"github.com/99minutos/taskboard/internal/api/handler"
	"github.com/99minutos/taskboard/internal/api/metrics"
	"github.com/99minutos/taskboard/internal/core/ratelimit"
	"github.com/99minutos/taskboard/internal/core/service"
	mongodb "github.com/99minutos/taskboard/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/taskboard/internal/infrastructure/db/redis"
	"github.com/99minutos/taskboard/internal/infrastructure/queue"
	"github.com/99minutos/taskboard/internal/infrastructure/session"
	"github.com/99minutos/taskboard/internal/pkg/config"
	"github.com/99minutos/taskboard/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// @title                       Taskboard API
// @version                     1.0
// @description                 Users, projects and tasks behind rate limiting and role-based authorization.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "taskboard",
	})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("mongodb disconnect failed")
		}
	}()
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		return err
	}

	probes := map[string]handler.Probe{
		"mongodb": func(ctx context.Context) error { return mongodb.Ping(ctx, client) },
	}

	// --- Admission ---
	memStore := ratelimit.NewMemoryStore()
	var store ratelimit.Store = memStore
	if cfg.RateLimit.Backend == "redis" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		store = redisdb.NewRateLimitStore(rdb)
		probes["redis"] = func(ctx context.Context) error { return redisdb.Ping(ctx, rdb) }
	}

	limiter := ratelimit.New(store,
		log.With().Str("component", "ratelimit").Logger(),
		ratelimit.WithObserver(metrics.ObserveRateLimit),
	)
	sweeper, err := scheduleSweep(cfg.RateLimit.Sweep, sweepJob(log, time.Now, memStore, limiter.Fallback()))
	if err != nil {
		return err
	}
	sweeper.Start()
	defer func() { <-sweeper.Stop().Done() }()

	// --- Repositories and activity trail ---
	users := mongodb.NewUserRepository(db)
	projects := mongodb.NewProjectRepository(db)
	tasks := mongodb.NewTaskRepository(db)
	activityRepo := mongodb.NewActivityRepository(db)

	dispatcher := queue.NewDispatcher(cfg.ActivityWorkers, activityRepo, log.With().Str("component", "activity").Logger())
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher.Start(workerCtx)
	defer func() {
		stopWorkers()
		dispatcher.Wait()
	}()

	// --- Sessions and services ---
	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn().Msg("JWT_SECRET not set, using an ephemeral development secret")
	}
	tokens := session.NewTokens(secret, cfg.TokenTTL)
	auth := service.NewAuthService(users, tokens, log)

	if cfg.Seed.Email != "" {
		if err := auth.EnsureAdmin(ctx, cfg.Seed.Name, cfg.Seed.Email, cfg.Seed.Password); err != nil {
			return err
		}
	}

	deps := service.Deps{
		Users:    users,
		Projects: projects,
		Tasks:    tasks,
		Activity: dispatcher,
		Observer: metrics.Mutations{},
		Log:      log,
	}

	e := api.NewRouter(api.RouterDeps{
		Log:      log,
		Limiter:  limiter,
		Policies: cfg.RateLimit.Policies(),
		Resolver: session.NewResolver(tokens, users),
		Auth:     auth,
		Users:    service.NewUserService(deps),
		Projects: service.NewProjectService(deps),
		Tasks:    service.NewTaskService(deps),
		Activity: service.NewActivityService(activityRepo),
		Probes:   probes,
	})

	// --- HTTP server with graceful shutdown ---
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("rate_limit_backend", cfg.RateLimit.Backend).
			Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

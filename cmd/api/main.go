package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"blackjack-pool-backend/internal/config"
	"blackjack-pool-backend/internal/handlers"
	"blackjack-pool-backend/internal/logging"
	"blackjack-pool-backend/internal/services"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("development", "info")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.Env, cfg.LogLevel)
	if envErr != nil {
		logger.Info().Msg("no .env file found, using environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	redisService, err := services.NewRedisService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer redisService.Close()

	jwtService, err := services.NewJWTService(cfg.JWTSecret, logger)
	if err != nil {
		return err
	}

	clock := quartz.NewReal()
	hub := handlers.NewWebSocketHub(logger)
	wallet := services.NewRedisWallet(redisService.Client(), cfg.StartingBalance)

	gameEngine := services.NewGameEngine(redisService, wallet, cfg.Table,
		services.WithClock(clock),
		services.WithLogger(logger),
		services.WithBroadcaster(hub),
		services.WithSessionTTL(cfg.SessionTTL),
	)
	if _, err := gameEngine.InitPool(ctx, cfg.InitialPool); err != nil {
		return err
	}

	reaper := services.NewReaper(gameEngine, cfg.ReaperInterval, clock, logger)

	router := handlers.NewRouter(handlers.RouterConfig{
		Env:          cfg.Env,
		GameEngine:   gameEngine,
		RedisService: redisService,
		JWTService:   jwtService,
		Hub:          hub,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	g.Go(func() error {
		return reaper.Run(gctx)
	})
	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

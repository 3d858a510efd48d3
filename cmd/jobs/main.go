package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gamenethq/gamenet-pos/internal/config"
	"github.com/gamenethq/gamenet-pos/internal/jobs"
	"github.com/gamenethq/gamenet-pos/internal/store"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "gamenet-jobs").Logger()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect db")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping db")
	}

	st := store.New(pool)
	jobs.NewRunner(st, cfg.LowStockThreshold, log).Start(ctx)

	log.Info().Msg("gamenet-jobs worker started")
	<-ctx.Done()
	log.Info().Msg("gamenet-jobs worker stopping")
}

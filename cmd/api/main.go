package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gamenethq/gamenet-pos/internal/api"
	"github.com/gamenethq/gamenet-pos/internal/config"
	"github.com/gamenethq/gamenet-pos/internal/lifecycle"
	"github.com/gamenethq/gamenet-pos/internal/notify"
	"github.com/gamenethq/gamenet-pos/internal/store"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("service", "gamenet-api").Logger()

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
	lc := lifecycle.NewManager(st, nil, log)
	hub := notify.NewHub(log)
	handler := api.NewRouter(cfg, st, lc, hub, nil, log)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("gamenet-pos api listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server")
	}
}

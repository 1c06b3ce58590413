// main.go
//
// Entry point for the bingo HTTP server.
//   - Loads .env (godotenv) and the environment config.
//   - Opens the KV store selected by STORAGE (sqlite | memory).
//   - Periodically purges expired saved boards from SQLite and drops idle
//     boards from memory.
//   - Serves the board API on PORT; on SIGINT/SIGTERM drains requests
//     before the store is closed.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bingo/internal/config"
	"github.com/robalobadob/bingo/internal/httpserver"
	"github.com/robalobadob/bingo/internal/persist"
	"github.com/robalobadob/bingo/internal/store"
)

const (
	purgeEvery    = time.Hour
	sweepEvery    = time.Minute
	shutdownGrace = 10 * time.Second
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var kv store.KV
	switch cfg.Storage {
	case "memory":
		kv = store.NewMemory(nil)
	default:
		db, err := store.OpenSQLite(cfg.DBPath, nil)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
		}
		defer db.Close()
		go purgeLoop(ctx, db)
		kv = db
	}

	srv := httpserver.New(cfg, persist.New(kv, cfg.StateTTL))
	go sweepLoop(ctx, srv, cfg.BoardIdle)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.Storage).Msg("starting bingo server")
		serveErr <- srv.Start(":" + cfg.Port)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server exited")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("shutdown")
		}
	}
}

// sweepLoop frees idle in-memory boards until ctx is done.
func sweepLoop(ctx context.Context, srv *httpserver.Server, idle time.Duration) {
	t := time.NewTicker(sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			srv.EvictIdle(idle)
		}
	}
}

// purgeLoop deletes expired rows until ctx is done.
func purgeLoop(ctx context.Context, db *store.SQLite) {
	t := time.NewTicker(purgeEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := db.Purge(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("purge expired boards")
				continue
			}
			if n > 0 {
				log.Debug().Int64("rows", n).Msg("purged expired boards")
			}
		}
	}
}

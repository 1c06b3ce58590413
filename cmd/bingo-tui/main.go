// cmd/bingo-tui/main.go
//
// Terminal bingo player. The board is kept in a local SQLite file without
// expiry (TUI_DB_PATH, default ./data/bingo-tui.db). Logs go to TUI_LOG_FILE
// so they never draw over the board.

package main

import (
	"context"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bingo/internal/bingo"
	"github.com/robalobadob/bingo/internal/config"
	"github.com/robalobadob/bingo/internal/persist"
	"github.com/robalobadob/bingo/internal/store"
	"github.com/robalobadob/bingo/internal/tui"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logPath := config.GetEnv("TUI_LOG_FILE", "bingo-tui.log")
	lf, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		// no terminal logging while the UI owns the screen
		lf, _ = os.Open(os.DevNull)
	}
	defer lf.Close()
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: lf, NoColor: true, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	dbPath := config.GetEnv("TUI_DB_PATH", "./data/bingo-tui.db")
	db, err := store.OpenSQLite(dbPath, nil)
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("failed to open database")
	}
	defer db.Close()

	saver := persist.New(db, 0)
	ctrl := bingo.NewController(saver.Load(context.Background(), ""), nil)
	ctrl.Subscribe(saver.Autosave(""))

	p := tea.NewProgram(tui.New(ctrl, saver, cfg.WinNotifyDelay), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error().Err(err).Msg("tui exited")
		os.Exit(1)
	}
}

// internal/config/config.go
//
// Environment-driven configuration.
// `.env` files are loaded by the binaries (godotenv) before Load is called.
//
// Environment variables:
//   PORT                 listen port (default 5175)
//   LOG_LEVEL            zerolog level (default info)
//   STORAGE              sqlite | memory (default sqlite)
//   DB_PATH              sqlite file (default ./data/bingo.db)
//   STATE_TTL_DAYS       saved-state expiry in days, 0 = never (default 30)
//   SESSION_SECRET       HMAC key for the session cookie
//   COOKIE_NAME          session cookie name (default bingo_session)
//   CLIENT_ORIGIN        CORS origin (default http://localhost:5173)
//   NODE_ENV             "production" enables Secure cookies
//   WIN_NOTIFY_DELAY_MS  delay before the win dialog (default 300)
//   MAX_UPLOAD_BYTES     image/import upload limit (default 10 MiB)
//   BOARD_IDLE_MINUTES   unused boards leave memory after this (default 30)

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds process settings.
type Config struct {
	Port           string
	LogLevel       string
	Storage        string
	DBPath         string
	StateTTL       time.Duration
	SessionSecret  string
	CookieName     string
	ClientOrigin   string
	Production     bool
	WinNotifyDelay time.Duration
	MaxUploadBytes int64
	BoardIdle      time.Duration
}

const devSecret = "dev_secret_change_me"

// Load reads the environment, applying defaults.
func Load() Config {
	c := Config{
		Port:           GetEnv("PORT", "5175"),
		LogLevel:       GetEnv("LOG_LEVEL", "info"),
		Storage:        GetEnv("STORAGE", "sqlite"),
		DBPath:         GetEnv("DB_PATH", "./data/bingo.db"),
		StateTTL:       time.Duration(envInt("STATE_TTL_DAYS", 30)) * 24 * time.Hour,
		SessionSecret:  GetEnv("SESSION_SECRET", devSecret),
		CookieName:     GetEnv("COOKIE_NAME", "bingo_session"),
		ClientOrigin:   GetEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		Production:     os.Getenv("NODE_ENV") == "production",
		WinNotifyDelay: time.Duration(envInt("WIN_NOTIFY_DELAY_MS", 300)) * time.Millisecond,
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 10<<20)),
		BoardIdle:      time.Duration(envInt("BOARD_IDLE_MINUTES", 30)) * time.Minute,
	}
	if c.StateTTL < 0 {
		c.StateTTL = 0
	}
	if c.Production && c.SessionSecret == devSecret {
		log.Warn().Msg("SESSION_SECRET not set in production; using the development secret")
	}
	return c
}

// GetEnv returns the value of k or def if unset/empty.
func GetEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-numeric setting")
		return def
	}
	return n
}

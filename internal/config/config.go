// Package config loads crawler settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the fully-resolved crawler configuration.
type Config struct {
	ClientsFile string
	ProxiesFile string
	UseProxies  bool
	GlobalRPS   float64
	LogLevel    slog.Level
}

// Load reads .env (if present, non-fatal otherwise) then resolves Config
// from the environment. A missing .env
// is not fatal — the process may run from real environment variables
// (a container, CI, a production host) instead of a dev-mode dotfile.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config: no .env file loaded", "err", err)
	}

	return Config{
		ClientsFile: Env("SPOTIFY_CLIENTS_FILE", "clients.csv"),
		ProxiesFile: Env("SPOTIFY_PROXIES_FILE", "proxies.csv"),
		UseProxies:  EnvBool("SPOTIFY_USE_PROXIES", false),
		GlobalRPS:   EnvFloat("SPOTIFY_GLOBAL_RPS", 0),
		LogLevel:    parseLevel(Env("SPOTIFY_LOG_LEVEL", "info")),
	}
}

// Env returns the value of the environment variable key, or def if unset.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// EnvBool parses key as a bool, falling back to def on absence or a
// malformed value.
func EnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// EnvFloat parses key as a float64, falling back to def on absence or a
// malformed value.
func EnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func parseLevel(raw string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// RequireCredentials fails fast if the clients file doesn't exist, since
// every crawl stage needs at least one credential to build a ring.
func (c Config) RequireCredentials() error {
	if _, err := os.Stat(c.ClientsFile); err != nil {
		return fmt.Errorf("config: clients file %s: %w", c.ClientsFile, err)
	}
	return nil
}

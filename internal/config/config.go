// Package config reads service settings from the environment, with optional
// .env file support.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"go-portwatch/internal/logger"
)

type Config struct {
	WebHost string
	WebPort string

	// PollInterval of zero disables the background warm-up loop.
	PollInterval  time.Duration
	DBPath        string
	InventoryFile string

	CacheTTL      time.Duration
	IdleThreshold time.Duration
	MaxEvents     int
	PollWorkers   int

	SwitchUser           string
	SwitchPass           string
	SwitchPort           int
	SwitchTimeout        time.Duration
	SwitchCommandTimeout time.Duration
	SwitchKnownHosts     string

	Log logger.Config
}

func (c Config) ListenAddr() string {
	return c.WebHost + ":" + c.WebPort
}

// getEnv fetches environment variable or returns fallback
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return n, nil
}

func getSeconds(key string, fallback int) (time.Duration, error) {
	n, err := getInt(key, fallback)
	return time.Duration(n) * time.Second, err
}

// Load reads .env if one exists, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		WebHost:          getEnv("WEB_HOST", "0.0.0.0"),
		WebPort:          getEnv("WEB_PORT", "8080"),
		DBPath:           getEnv("DB_PATH", "/tmp/portwatch.db"),
		InventoryFile:    getEnv("INVENTORY_FILE", ""),
		SwitchUser:       getEnv("SWITCH_USER", ""),
		SwitchPass:       getEnv("SWITCH_PASS", ""),
		SwitchKnownHosts: getEnv("SWITCH_KNOWN_HOSTS", ""),
		Log: logger.Config{
			Level:  getEnv("LOG_LEVEL", "info"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	var err error
	if cfg.PollInterval, err = getSeconds("POLL_INTERVAL", 600); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = getSeconds("CACHE_TTL", 60); err != nil {
		return Config{}, err
	}
	if cfg.SwitchTimeout, err = getSeconds("SWITCH_TIMEOUT", 15); err != nil {
		return Config{}, err
	}
	if cfg.SwitchCommandTimeout, err = getSeconds("SWITCH_COMMAND_TIMEOUT", 30); err != nil {
		return Config{}, err
	}

	days, err := getInt("IDLE_THRESHOLD_DAYS", 14)
	if err != nil {
		return Config{}, err
	}
	cfg.IdleThreshold = time.Duration(days) * 24 * time.Hour

	if cfg.MaxEvents, err = getInt("MAX_EVENTS", 50); err != nil {
		return Config{}, err
	}
	if cfg.PollWorkers, err = getInt("POLL_WORKERS", 4); err != nil {
		return Config{}, err
	}
	if cfg.SwitchPort, err = getInt("SWITCH_PORT", 22); err != nil {
		return Config{}, err
	}

	if v := getEnv("DEBUG", ""); v != "" {
		if cfg.Log.Debug, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("DEBUG: %w", err)
		}
	}
	return cfg, nil
}

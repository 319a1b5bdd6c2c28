package app

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment keys. A .env file in the home directory is loaded first, so
// deployments can pin these without touching the process environment.
const (
	envPassphrase    = "MESHWIRE_PASSPHRASE"
	envRetentionDays = "MESHWIRE_RETENTION_DAYS"
	envMaxConcurrent = "MESHWIRE_MAX_CONCURRENT"
	envAckTimeout    = "MESHWIRE_ACK_TIMEOUT"
	envAuthFailures  = "MESHWIRE_AUTH_FAILURES"
	envStorePath     = "MESHWIRE_STORE_PATH"
)

// memoryStore is the envStorePath value selecting the in-memory store.
const memoryStore = "memory"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home       string // config directory, e.g. $HOME/.meshwire
	Passphrase string // protects the identity file at rest

	RetentionDays         int           // message retention horizon
	MaxConcurrentMessages int           // in-flight outgoing message bound
	AckTimeout            time.Duration // transport acknowledgement window
	AuthFailureThreshold  int           // consecutive failures before re-key
	PruneInterval         time.Duration // retention sweep cadence

	// StorePath is the SQLite database path; empty selects the in-memory
	// store (history does not survive a restart).
	StorePath string
}

// DefaultConfig returns the stock configuration rooted at home.
func DefaultConfig(home string) Config {
	return Config{
		Home:                  home,
		RetentionDays:         7,
		MaxConcurrentMessages: 10,
		AckTimeout:            10 * time.Second,
		AuthFailureThreshold:  5,
		PruneInterval:         time.Hour,
		StorePath:             filepath.Join(home, "messages.db"),
	}
}

// Load builds a Config from the defaults, an optional .env in home, and the
// process environment, in that order of precedence.
func Load(home string) Config {
	// Missing .env is the normal case.
	_ = godotenv.Load(filepath.Join(home, ".env"))

	cfg := DefaultConfig(home)
	if v := os.Getenv(envPassphrase); v != "" {
		cfg.Passphrase = v
	}
	cfg.RetentionDays = envInt(envRetentionDays, cfg.RetentionDays)
	cfg.MaxConcurrentMessages = envInt(envMaxConcurrent, cfg.MaxConcurrentMessages)
	cfg.AckTimeout = envDuration(envAckTimeout, cfg.AckTimeout)
	cfg.AuthFailureThreshold = envInt(envAuthFailures, cfg.AuthFailureThreshold)
	if v := os.Getenv(envStorePath); v != "" {
		if v == memoryStore {
			cfg.StorePath = ""
		} else {
			cfg.StorePath = v
		}
	}
	return cfg
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

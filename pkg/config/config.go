// Package config loads the core's runtime configuration: environment
// variables for the single-process defaults, and an optional YAML topology
// file describing a multi-domain deployment, following a
// load-with-defaults-then-Validate shape.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the core's runtime settings.
type Config struct {
	// DataDir is where a durable store backend (CometBFTBackend) persists
	// its files. Ignored when StoreBackend is "memory".
	DataDir string

	// StoreBackend selects the content-addressed store's backing engine:
	// "memory" or "cometbftdb".
	StoreBackend string

	// LocalDomainID is this process's own domain.Adapter id when it hosts
	// the default in-process local.Adapter.
	LocalDomainID string

	// DeadlockDetection records whether the deployment expects the
	// cycle-detecting lock variant (build tag "deadlock") in pkg/resource.
	// The variant is selected by the build tag alone: no package reads this
	// field, and Validate does not compare it against the build.
	DeadlockDetection bool

	// RecoverOnStart runs Router.Recover during startup before accepting
	// new submissions.
	RecoverOnStart bool

	// BatchMaxSize and BatchMaxAge are loaded from the environment and
	// BatchMaxSize is checked by Validate, but no package reads either
	// one: factlog's BatchRoot always covers every fact appended so far.
	BatchMaxSize int
	BatchMaxAge  time.Duration

	LogLevel  slog.Level
	LogFormat string // "json" or "text"
}

// Load reads configuration from environment variables, applying the same
// defaults a development deployment would want.
func Load() (*Config, error) {
	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:           getEnv("DATA_DIR", "./data"),
		StoreBackend:      getEnv("STORE_BACKEND", "memory"),
		LocalDomainID:     getEnv("LOCAL_DOMAIN_ID", "local"),
		DeadlockDetection: getEnvBool("DEADLOCK_DETECTION", false),
		RecoverOnStart:    getEnvBool("RECOVER_ON_START", true),
		BatchMaxSize:      getEnvInt("BATCH_MAX_SIZE", 100),
		BatchMaxAge:       getEnvDuration("BATCH_MAX_AGE", 5*time.Minute),
		LogLevel:          level,
		LogFormat:         getEnv("LOG_FORMAT", "text"),
	}
	return cfg, nil
}

// Validate checks that Config is internally consistent.
func (c *Config) Validate() error {
	var errs []string

	switch c.StoreBackend {
	case "memory", "cometbftdb":
	default:
		errs = append(errs, fmt.Sprintf("store backend %q is not one of memory, cometbftdb", c.StoreBackend))
	}
	if c.StoreBackend == "cometbftdb" && c.DataDir == "" {
		errs = append(errs, "data_dir is required when store_backend is cometbftdb")
	}
	if c.LocalDomainID == "" {
		errs = append(errs, "local_domain_id must be set")
	}
	if c.BatchMaxSize <= 0 {
		errs = append(errs, "batch_max_size must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("config: unknown log level %q", s)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

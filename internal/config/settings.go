package config

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"extfilter/internal/support"
)

type Config struct {
	AllowedOrigins []string
	WriteLockTTL   time.Duration
	WriteLockWait  time.Duration
	ShutdownGrace  time.Duration
}

var (
	InProductionMode bool

	configValue atomic.Value
)

func init() {
	configValue.Store(defaultConfig())
}

func defaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
		WriteLockTTL:   10 * time.Second,
		WriteLockWait:  5 * time.Second,
		ShutdownGrace:  10 * time.Second,
	}
}

// ReadSettings loads the runtime settings from the environment.
func ReadSettings() Config {
	cfg := defaultConfig()

	cfg.AllowedOrigins = normalizeOrigins(support.GetEnvList("CORS_ALLOWED_ORIGINS", cfg.AllowedOrigins))
	cfg.WriteLockTTL = secondsFromEnv("WRITE_LOCK_TTL_SECONDS", cfg.WriteLockTTL)
	cfg.WriteLockWait = secondsFromEnv("WRITE_LOCK_WAIT_SECONDS", cfg.WriteLockWait)
	cfg.ShutdownGrace = secondsFromEnv("SHUTDOWN_GRACE_SECONDS", cfg.ShutdownGrace)

	configValue.Store(cfg)
	log.Debug("Configuration applied", "origins", cfg.AllowedOrigins)
	return cfg
}

func GetConfig() Config {
	return configValue.Load().(Config)
}

func SetProductionMode(productionMode bool) {
	InProductionMode = productionMode
}

// IsOriginAllowed reports whether a browser origin may call the API.
func IsOriginAllowed(origin string) bool {
	origin = strings.TrimRight(strings.ToLower(strings.TrimSpace(origin)), "/")
	for _, allowed := range GetConfig().AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func normalizeOrigins(origins []string) []string {
	normalized := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimRight(strings.ToLower(strings.TrimSpace(origin)), "/")
		if origin != "" {
			normalized = append(normalized, origin)
		}
	}
	return normalized
}

func secondsFromEnv(key string, fallback time.Duration) time.Duration {
	seconds := support.GetEnvInt(key, -1)
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	SQLitePath  string // path to the links database ("file::memory:?cache=shared" works for dev)
	TrackerFile string // path to the trackers.yaml file (optional, empty = built-in set only)

	MetadataEndpoint string        // metadata resolver base URL (ex: https://resolver.domain.ext/resolve)
	MetadataTimeout  time.Duration // per-attempt fetch timeout (default: 8s)

	PageSize      int           // links per collection page (default: 30)
	TombstoneTTL  time.Duration // how long deletion markers shield refreshes (default: 1h)
	SweepInterval time.Duration // tombstone sweeper period (default: 15m)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("LINKSTASH_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("LINKSTASH_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("LINKSTASH_LOG_LEVEL", "info"),
		PrettyLog: mustBool("LINKSTASH_PRETTY_LOG", true),

		// Storage
		SQLitePath:  getenv("LINKSTASH_SQLITE_PATH", "/app/data/linkstash.db"),
		TrackerFile: getenv("LINKSTASH_TRACKER_FILE", ""), // Optional, empty = built-in trackers only

		// Metadata enrichment
		MetadataEndpoint: requireEnv("LINKSTASH_METADATA_ENDPOINT"),
		MetadataTimeout:  mustDuration("LINKSTASH_METADATA_TIMEOUT", 8*time.Second),

		// Collection
		PageSize:      getenvInt("LINKSTASH_PAGE_SIZE", 30),
		TombstoneTTL:  mustDuration("LINKSTASH_TOMBSTONE_TTL", time.Hour),
		SweepInterval: mustDuration("LINKSTASH_SWEEP_INTERVAL", 15*time.Minute),

		// Redis settings
		RedisAddr:             requireEnv("LINKSTASH_REDIS_ADDR"),
		RedisUser:             getenv("LINKSTASH_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("LINKSTASH_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("LINKSTASH_REDIS_PASSWORD", ""),
		RedisDB:               requireEnvInt("LINKSTASH_REDIS_DB"),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("LINKSTASH_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("LINKSTASH_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("LINKSTASH_TRUST_PROXY", true),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: LINKSTASH_REDIS_PASSWORD is required when LINKSTASH_REDIS_PASSWORD_REQUIRED=true")
	}

	if cfg.PageSize <= 0 {
		panic(fmt.Sprintf("❌ FATAL: LINKSTASH_PAGE_SIZE must be positive, got %d", cfg.PageSize))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

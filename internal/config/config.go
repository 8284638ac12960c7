package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the backend server configuration. Token TTL and clock skew are
// deliberately configurable: 30s/2s are untested against real NFC read
// latency in the field, so deployments can widen them without a rebuild.
type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/access.db"

	// Token issuance
	TokenTTL  time.Duration
	ClockSkew time.Duration

	// Admin surface
	AdminUsername     string
	AdminPassword     string // dev fallback, bcrypt-hashed at startup
	AdminPasswordHash string // bcrypt hash; takes precedence when set
	JWTSecret         string
	AdminSessionTTL   time.Duration

	// Retention
	NonceRetention     time.Duration // durable nonce mirror
	HeartbeatRetention time.Duration // pi liveness rows
	PruneInterval      time.Duration
}

func FromEnv() Config {
	addr := getenvDefault("ACCESS_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("ACCESS_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   getenvDefault("ACCESS_DB_PATH", "./data/access.db"),

		TokenTTL:  time.Duration(getenvInt("ACCESS_TOKEN_TTL_S", 30)) * time.Second,
		ClockSkew: time.Duration(getenvInt("ACCESS_CLOCK_SKEW_S", 2)) * time.Second,

		AdminUsername:     getenvDefault("ACCESS_ADMIN_USERNAME", "admin"),
		AdminPassword:     os.Getenv("ACCESS_ADMIN_PASSWORD"),
		AdminPasswordHash: os.Getenv("ACCESS_ADMIN_PASSWORD_HASH"),
		JWTSecret:         getenvDefault("ACCESS_JWT_SECRET", "dev-only-change-me"),
		AdminSessionTTL:   time.Duration(getenvInt("ACCESS_ADMIN_SESSION_TTL_MIN", 30)) * time.Minute,

		NonceRetention:     time.Duration(getenvInt("ACCESS_NONCE_RETENTION_HOURS", 24)) * time.Hour,
		HeartbeatRetention: time.Duration(getenvInt("ACCESS_HEARTBEAT_RETENTION_DAYS", 30)) * 24 * time.Hour,
		PruneInterval:      time.Duration(getenvInt("ACCESS_PRUNE_INTERVAL_HOURS", 6)) * time.Hour,
	}
}

// EdgeConfig configures the offline verifier daemon running on a door
// controller.
type EdgeConfig struct {
	PiID       string
	ListenAddr string // local presentation endpoint (NFC bridge posts here)

	BackendURL   string // empty = fully offline, config file only
	KeyCachePath string // cached {community, algo, public_key} tuples

	TokenTTL  time.Duration
	ClockSkew time.Duration

	SyncInterval      time.Duration // key cache refresh
	ReportInterval    time.Duration // event batch upload
	ReportBuffer      int           // outcomes held while offline
	HeartbeatInterval time.Duration
}

func EdgeFromEnv() EdgeConfig {
	return EdgeConfig{
		PiID:       getenvDefault("EDGE_PI_ID", "pi-dev"),
		ListenAddr: getenvDefault("EDGE_LISTEN_ADDR", "127.0.0.1:8090"),

		BackendURL:   os.Getenv("EDGE_BACKEND_URL"),
		KeyCachePath: getenvDefault("EDGE_KEY_CACHE_PATH", "./data/keys.yaml"),

		TokenTTL:  time.Duration(getenvInt("EDGE_TOKEN_TTL_S", 30)) * time.Second,
		ClockSkew: time.Duration(getenvInt("EDGE_CLOCK_SKEW_S", 2)) * time.Second,

		SyncInterval:      time.Duration(getenvInt("EDGE_SYNC_INTERVAL_S", 300)) * time.Second,
		ReportInterval:    time.Duration(getenvInt("EDGE_REPORT_INTERVAL_S", 15)) * time.Second,
		ReportBuffer:      getenvInt("EDGE_REPORT_BUFFER", 1024),
		HeartbeatInterval: time.Duration(getenvInt("EDGE_HEARTBEAT_INTERVAL_S", 60)) * time.Second,
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

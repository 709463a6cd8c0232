// Package config loads the service configuration from the environment
// into an explicit struct, so components receive their settings by
// injection rather than reading process state ad hoc.
package config

import (
	"fmt"
	"os"
)

// Store backends.
const (
	BackendREST  = "rest"
	BackendRedis = "redis"
)

// Config holds every recognized option.
type Config struct {
	ListenAddr string // address for the HTTP API

	StoreBackend   string // "rest" (hosted REST KV) or "redis" (direct)
	StoreRESTURL   string // base URL of the REST key-value API
	StoreRESTToken string // bearer token for the REST key-value API
	RedisAddr      string // host:port for the redis backend

	ResendAPIKey string // email API key; empty disables notifications
	EmailFrom    string // sender address for notifications

	SiteBaseURL string // public origin for access URLs; empty falls back to the request host

	NATSURL          string // event publisher; empty disables events
	AuditDatabaseURL string // postgres URL for the audit log; empty disables auditing
}

// Load reads the environment. Missing options keep their zero value or
// documented default; validation of required combinations is in Check.
func Load() Config {
	cfg := Config{
		ListenAddr:   ":8080",
		StoreBackend: BackendREST,
		RedisAddr:    "localhost:6379",
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.StoreBackend = v
	}
	cfg.StoreRESTURL = os.Getenv("KV_REST_API_URL")
	cfg.StoreRESTToken = os.Getenv("KV_REST_API_TOKEN")
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	cfg.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	cfg.EmailFrom = os.Getenv("EMAIL_FROM")
	cfg.SiteBaseURL = os.Getenv("SITE_BASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.AuditDatabaseURL = os.Getenv("AUDIT_DATABASE_URL")

	return cfg
}

// Check verifies that the selected store backend is fully configured.
func (c Config) Check() error {
	switch c.StoreBackend {
	case BackendREST:
		if c.StoreRESTURL == "" || c.StoreRESTToken == "" {
			return fmt.Errorf("config: rest store requires KV_REST_API_URL and KV_REST_API_TOKEN")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: redis store requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.StoreBackend)
	}
	if (c.ResendAPIKey == "") != (c.EmailFrom == "") {
		return fmt.Errorf("config: notifications require both RESEND_API_KEY and EMAIL_FROM")
	}
	return nil
}

// NotifyEnabled reports whether email notifications are configured.
func (c Config) NotifyEnabled() bool {
	return c.ResendAPIKey != "" && c.EmailFrom != ""
}

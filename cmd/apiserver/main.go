package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/ticketdrop/session-api/internal/albummeta"
	"github.com/ticketdrop/session-api/internal/api"
	"github.com/ticketdrop/session-api/internal/audit"
	"github.com/ticketdrop/session-api/internal/config"
	"github.com/ticketdrop/session-api/internal/events"
	"github.com/ticketdrop/session-api/internal/kv"
	"github.com/ticketdrop/session-api/internal/notify"
	"github.com/ticketdrop/session-api/internal/session"
)

func main() {
	cfg := config.Load()
	if err := cfg.Check(); err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	// --- Key-value store ---
	var store kv.Store
	var redisStore *kv.RedisStore
	switch cfg.StoreBackend {
	case config.BackendRedis:
		rs, err := kv.NewRedisStore(cfg.RedisAddr)
		if err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		redisStore = rs
		store = rs
	default:
		store = kv.NewRESTStore(cfg.StoreRESTURL, cfg.StoreRESTToken)
	}
	store = kv.Instrument(store)

	// --- Notifications (optional) ---
	var notifier session.Notifier
	if cfg.NotifyEnabled() {
		notifier = notify.NewMailer("", cfg.ResendAPIKey, cfg.EmailFrom)
	}

	// --- Events (optional) ---
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		natsConfig := events.DefaultConfig()
		natsConfig.URL = cfg.NATSURL
		p, err := events.NewPublisher(natsConfig)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		publisher = p
	}

	// --- Audit log (optional) ---
	var auditStore *audit.Store
	if cfg.AuditDatabaseURL != "" {
		if err := runMigrations(cfg.AuditDatabaseURL); err != nil {
			log.Fatalf("audit migrations failed: %v", err)
		}
		as, err := audit.Open(cfg.AuditDatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to audit database: %v", err)
		}
		auditStore = as
	}

	mgrConfig := session.ManagerConfig{
		Store:    store,
		Notifier: notifier,
		BaseURL:  cfg.SiteBaseURL,
	}
	if publisher != nil {
		mgrConfig.Events = publisher
	}
	if auditStore != nil {
		mgrConfig.Audit = auditStore
	}
	manager := session.NewManager(mgrConfig)

	var counter api.CreationCounter
	if auditStore != nil {
		counter = auditStore
	}

	resolver := albummeta.NewResolver("", "")
	server := api.NewServer(manager, resolver, counter)

	log.Printf("Ticketdrop session API starting")
	log.Printf("  listen_addr:   %s", cfg.ListenAddr)
	log.Printf("  store_backend: %s", cfg.StoreBackend)
	log.Printf("  site_base_url: %s", orUnset(cfg.SiteBaseURL))
	log.Printf("  notifications: %v", cfg.NotifyEnabled())
	log.Printf("  events:        %v", publisher != nil)
	log.Printf("  audit:         %v", auditStore != nil)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Printf("shutdown error: %v", err)
		}

		if publisher != nil {
			publisher.Close()
		}
		if auditStore != nil {
			if err := auditStore.Close(); err != nil {
				log.Printf("audit store close error: %v", err)
			}
		}
		if redisStore != nil {
			if err := redisStore.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("server stopped")
}

// runMigrations applies the audit schema migrations.
func runMigrations(databaseURL string) error {
	m, err := migrate.New("file://migrations", databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func orUnset(v string) string {
	if v == "" {
		return "(request host fallback)"
	}
	return v
}

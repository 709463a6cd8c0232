package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ticketdrop/session-api/internal/kv"
	"github.com/ticketdrop/session-api/internal/metrics"
)

// Notifier delivers the "your session is ready" email. Implementations
// are best-effort collaborators; the manager absorbs every failure.
type Notifier interface {
	Notify(ctx context.Context, email, name, url string) error
}

// EventPublisher announces a successful creation to interested services.
type EventPublisher interface {
	SessionCreated(ctx context.Context, id, createdAt string) error
}

// AuditLogger records a creation in the insert-only audit log.
type AuditLogger interface {
	RecordCreation(ctx context.Context, id, slug, createdAt string) error
}

// CreateInput is the validated surface of a create request.
type CreateInput struct {
	Name    string
	Email   string
	Consent bool
}

// CreateResult is returned to the caller of a successful create.
type CreateResult struct {
	ID  string
	URL string
}

// Manager orchestrates the session lifecycle: validate, allocate,
// persist, then fire the best-effort side effects. All durable state
// lives in the store; a Manager holds no per-request state.
type Manager struct {
	store     kv.Store
	allocator *Allocator

	// Best-effort collaborators; each may be nil when unconfigured.
	notifier Notifier
	events   EventPublisher
	audit    AuditLogger

	// baseURL is the configured public site origin. When empty, the
	// per-request fallback origin is used to build access URLs.
	baseURL string

	// sideEffectTimeout bounds each detached side-effect call.
	sideEffectTimeout time.Duration
}

// ManagerConfig carries the manager's injected dependencies.
type ManagerConfig struct {
	Store    kv.Store
	Notifier Notifier
	Events   EventPublisher
	Audit    AuditLogger
	BaseURL  string
}

// NewManager creates a lifecycle manager over the given store.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		store:             cfg.Store,
		allocator:         NewAllocator(cfg.Store),
		notifier:          cfg.Notifier,
		events:            cfg.Events,
		audit:             cfg.Audit,
		baseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		sideEffectTimeout: 10 * time.Second,
	}
}

// Create validates the input, allocates a unique id, persists the full
// record, and returns the id with its access URL. The operation is
// all-or-nothing: no id is considered allocated unless the record was
// durably written. Side effects (email, event, audit) are dispatched
// after the write commits and can never change the outcome.
//
// fallbackOrigin is used to build the access URL when no site base URL
// is configured; it is typically derived from the inbound request.
func (m *Manager) Create(ctx context.Context, in CreateInput, fallbackOrigin string) (*CreateResult, error) {
	if err := ValidateCreate(in.Name, in.Email, in.Consent); err != nil {
		return nil, err
	}

	id, err := m.allocator.Allocate(ctx, in.Name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	rec := Record{
		ID:        id,
		Name:      in.Name,
		Email:     in.Email,
		CreatedAt: now,
		ConsentAt: now,
		Progress:  0,
		Listened:  []string{},
		Skipped:   []string{},
		Notes:     map[string]string{},
		Ratings:   map[string]int{},
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("session: marshal record: %w", err)
	}
	if err := m.store.Set(ctx, Key(id), payload); err != nil {
		return nil, fmt.Errorf("session: persist record: %w", err)
	}
	metrics.SessionsCreatedTotal.Inc()

	url := m.accessURL(id, fallbackOrigin)
	go m.dispatchSideEffects(rec, url)

	return &CreateResult{ID: id, URL: url}, nil
}

// Read fetches a record by id and returns its redacted public view.
// Every non-private field comes back byte for byte as stored, order
// included, fields this version does not know about too.
func (m *Manager) Read(ctx context.Context, id string) (PublicView, error) {
	val, found, err := m.store.Get(ctx, Key(id))
	if err != nil {
		metrics.SessionReadsTotal.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("session: fetch record: %w", err)
	}
	if !found {
		metrics.SessionReadsTotal.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	}

	view, err := redactObject(val)
	if err != nil {
		metrics.SessionReadsTotal.WithLabelValues("corrupt").Inc()
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}

	metrics.SessionReadsTotal.WithLabelValues("ok").Inc()
	return view, nil
}

// accessURL builds the fully-qualified session URL.
func (m *Manager) accessURL(id, fallbackOrigin string) string {
	origin := m.baseURL
	if origin == "" {
		origin = strings.TrimRight(fallbackOrigin, "/")
	}
	return origin + "/session/" + id
}

// dispatchSideEffects runs the best-effort collaborators on a detached
// context so they survive the response being written. Failures are
// logged, counted, and discarded — never propagated.
func (m *Manager) dispatchSideEffects(rec Record, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.sideEffectTimeout)
	defer cancel()

	if m.notifier != nil {
		if err := m.notifier.Notify(ctx, rec.Email, rec.Name, url); err != nil {
			metrics.SideEffectFailuresTotal.WithLabelValues("notify").Inc()
			log.Printf("[session] notify failed for id=%s: %v", rec.ID, err)
		}
	}
	if m.events != nil {
		if err := m.events.SessionCreated(ctx, rec.ID, rec.CreatedAt); err != nil {
			metrics.SideEffectFailuresTotal.WithLabelValues("events").Inc()
			log.Printf("[session] event publish failed for id=%s: %v", rec.ID, err)
		}
	}
	if m.audit != nil {
		if err := m.audit.RecordCreation(ctx, rec.ID, Slugify(rec.Name), rec.CreatedAt); err != nil {
			metrics.SideEffectFailuresTotal.WithLabelValues("audit").Inc()
			log.Printf("[session] audit insert failed for id=%s: %v", rec.ID, err)
		}
	}
}

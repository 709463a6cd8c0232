// Package events publishes session lifecycle events over NATS for
// downstream consumers (analytics, cache warmers). Publication is a
// best-effort side effect of creation; callers absorb failures. Events
// carry the session id and timestamp, never the contact address.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// SubjectSessionCreated is the subject for creation events.
const SubjectSessionCreated = "session.created"

// SessionCreatedEvent is the wire shape of a creation event.
type SessionCreatedEvent struct {
	EventID   string `json:"event_id"`
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
}

// Config holds NATS connection settings.
type Config struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "ticketdrop-api",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// Publisher wraps the NATS connection for event publication.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS with the given config and returns a
// ready publisher. It returns an error if the initial connection fails.
func NewPublisher(config Config) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[events] disconnected: %v", err)
			} else {
				log.Printf("[events] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[events] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[events] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: nats connect: %w", err)
	}

	log.Printf("[events] connected to %s", nc.ConnectedUrl())
	return &Publisher{conn: nc}, nil
}

// SessionCreated publishes a creation event with a fresh event id.
func (p *Publisher) SessionCreated(ctx context.Context, id, createdAt string) error {
	event := SessionCreatedEvent{
		EventID:   uuid.NewString(),
		SessionID: id,
		CreatedAt: createdAt,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	if err := p.conn.Publish(SubjectSessionCreated, data); err != nil {
		return fmt.Errorf("events: publish %s: %w", SubjectSessionCreated, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		log.Printf("[events] connection drain: %v", err)
	}
	log.Printf("[events] publisher closed")
}

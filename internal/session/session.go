// Package session implements the session identity allocation and record
// lifecycle: validating input, deriving a human-readable but
// collision-resistant identifier, writing and reading the record through
// the key-value store, and enforcing the public/private field boundary
// on read.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
)

// KeyPrefix is the store key prefix for all session records.
const KeyPrefix = "session:"

// Key returns the store key for a session id.
func Key(id string) string {
	return KeyPrefix + id
}

// Record is the persisted session entity. Email is stored but excluded
// from every outward-facing read (see PublicView).
type Record struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	CreatedAt string            `json:"createdAt"`
	ConsentAt string            `json:"consentAt"`
	Progress  int               `json:"progress"`
	Listened  []string          `json:"listened"`
	Skipped   []string          `json:"skipped"`
	Notes     map[string]string `json:"notes"`
	Ratings   map[string]int    `json:"ratings"`
}

// PublicView is the redacted projection of a stored record: the stored
// JSON object minus the private fields, every kept field byte for byte
// as stored, order included. Fields written by newer versions survive a
// read-back unchanged.
type PublicView = json.RawMessage

// privateFields are removed from every PublicView.
var privateFields = []string{"email"}

var (
	// ErrAllocationExhausted reports that no free id was found within the
	// bounded number of attempts. With a 36^6 suffix space this signals a
	// store malfunction, not a crowded keyspace.
	ErrAllocationExhausted = errors.New("session: id allocation exhausted")

	// ErrNotFound reports that no record exists for the requested id.
	ErrNotFound = errors.New("session: not found")

	// ErrCorruptRecord reports a stored payload that does not parse into
	// a session record shape.
	ErrCorruptRecord = errors.New("session: corrupt record")
)

// ValidationError reports a rejected create input with a
// machine-checkable field and reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("session: invalid %s: %s", e.Field, e.Reason)
}

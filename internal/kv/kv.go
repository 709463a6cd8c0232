// Package kv provides the key-value store contract used for all durable
// session persistence, with two interchangeable backends: the hosted
// Upstash-style REST API and a direct Redis connection. Values are opaque
// byte payloads; whatever was written is returned byte-for-byte or
// reparses to the same structure.
package kv

import (
	"context"
	"fmt"
)

// Store is the two-verb contract over the external key-value service.
// Get reports found=false for an absent key. Neither method retries;
// retry policy, if any, belongs to the caller.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// UnavailableError reports a failed or misconfigured store call. It
// carries the upstream HTTP status (0 for transport-level failures) and
// a short detail string for diagnostics.
type UnavailableError struct {
	Op     string // "get" or "set"
	Status int    // upstream HTTP status, 0 if the call never completed
	Detail string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("kv: %s failed: upstream status %d: %s", e.Op, e.Status, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("kv: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("kv: %s failed: %s", e.Op, e.Detail)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

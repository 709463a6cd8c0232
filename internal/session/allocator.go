package session

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/ticketdrop/session-api/internal/kv"
	"github.com/ticketdrop/session-api/internal/metrics"
)

const (
	// SuffixLen is the length of the random id suffix.
	SuffixLen = 6

	// MaxAllocateAttempts bounds the collision retry loop.
	MaxAllocateAttempts = 5

	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Allocator produces unique session ids of the form <slug>-<suffix> by
// probing the store for each candidate. Uniqueness rests on the probe,
// not on atomic store semantics: two near-simultaneous allocations of
// the same candidate can both observe "absent". That race is accepted;
// the 36^6 suffix space keeps its probability negligible.
type Allocator struct {
	store kv.Store
}

// NewAllocator creates an allocator probing the given store.
func NewAllocator(store kv.Store) *Allocator {
	return &Allocator{store: store}
}

// Allocate derives a slug from displayName and returns the first
// <slug>-<suffix> candidate whose key is absent from the store. A fresh
// suffix is drawn each attempt. Returns ErrAllocationExhausted after
// MaxAllocateAttempts collisions, and the store's error if a probe fails.
func (a *Allocator) Allocate(ctx context.Context, displayName string) (string, error) {
	slug := Slugify(displayName)

	for attempt := 0; attempt < MaxAllocateAttempts; attempt++ {
		id := slug + "-" + randomSuffix()

		_, found, err := a.store.Get(ctx, Key(id))
		if err != nil {
			return "", fmt.Errorf("session: allocation probe: %w", err)
		}
		if !found {
			return id, nil
		}
		metrics.AllocationCollisionsTotal.Inc()
	}

	return "", ErrAllocationExhausted
}

// randomSuffix returns SuffixLen random lowercase alphanumerics.
func randomSuffix() string {
	buf := make([]byte, SuffixLen)
	for i := range buf {
		buf[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(buf)
}

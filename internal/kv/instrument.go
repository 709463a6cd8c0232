package kv

import (
	"context"
	"time"

	"github.com/ticketdrop/session-api/internal/metrics"
)

// InstrumentedStore wraps a Store and records per-call latency.
type InstrumentedStore struct {
	next Store
}

// Instrument wraps store with latency instrumentation.
func Instrument(store Store) *InstrumentedStore {
	return &InstrumentedStore{next: store}
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	val, found, err := s.next.Get(ctx, key)
	metrics.StoreCallDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())
	return val, found, err
}

func (s *InstrumentedStore) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.next.Set(ctx, key, value)
	metrics.StoreCallDuration.WithLabelValues("set").Observe(time.Since(start).Seconds())
	return err
}

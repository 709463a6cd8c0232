// Package stats aggregates load test measurements: client-side latency
// samples from the workers and, when a scraper is attached, server-side
// Prometheus counters scraped during the run.
package stats

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// phaseOrder fixes the report order for the lifecycle phases.
var phaseOrder = []string{"create", "read"}

// Collector aggregates latency samples by lifecycle phase. All methods
// are goroutine-safe.
type Collector struct {
	mu       sync.Mutex
	samples  map[string][]time.Duration
	errors   int
	sessions int
	started  time.Time

	scraper *Scraper
}

// NewCollector creates a Collector with the start time set to now.
func NewCollector() *Collector {
	return &Collector{
		samples: map[string][]time.Duration{},
		started: time.Now(),
	}
}

// AttachScraper includes the scraper's server-side metrics in Report.
func (c *Collector) AttachScraper(s *Scraper) {
	c.scraper = s
}

// Observe records one latency sample for the named phase.
func (c *Collector) Observe(phase string, d time.Duration) {
	c.mu.Lock()
	c.samples[phase] = append(c.samples[phase], d)
	c.mu.Unlock()
}

// AddSession increments the created-session counter.
func (c *Collector) AddSession() {
	c.mu.Lock()
	c.sessions++
	c.mu.Unlock()
}

// AddError increments the error counter.
func (c *Collector) AddError() {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
}

// SessionCount returns the current number of created sessions.
func (c *Collector) SessionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions
}

// ErrorCount returns the current number of recorded errors.
func (c *Collector) ErrorCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors
}

// Report prints the run summary: totals, throughput, per-phase latency
// percentiles, and the attached scraper's server metrics.
func (c *Collector) Report() {
	c.mu.Lock()
	elapsed := time.Since(c.started)

	fmt.Println("\n=== Load Test Results ===")
	fmt.Printf("Duration:   %s\n", elapsed.Round(time.Second))
	fmt.Printf("Sessions:   %d\n", c.sessions)
	fmt.Printf("Errors:     %d\n", c.errors)
	if c.sessions > 0 {
		fmt.Printf("Error rate: %.2f%%\n", float64(c.errors)/float64(c.sessions)*100)
		if secs := elapsed.Seconds(); secs > 0 {
			fmt.Printf("Throughput: %.1f sessions/s\n", float64(c.sessions)/secs)
		}
	}

	for _, phase := range phaseOrder {
		samples := c.samples[phase]
		if len(samples) == 0 {
			continue
		}
		fmt.Printf("\n--- %s latency ---\n", phase)
		printLatencySummary(samples)
	}
	c.mu.Unlock()

	if c.scraper != nil {
		c.scraper.Report()
	}
	fmt.Println()
}

// printLatencySummary sorts the samples in place and prints the average
// with p50/p95/p99/max.
func printLatencySummary(samples []time.Duration) {
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	var sum time.Duration
	for _, d := range samples {
		sum += d
	}
	avg := sum / time.Duration(len(samples))

	fmt.Printf("  avg: %v  p50: %v  p95: %v  p99: %v  max: %v  (n=%d)\n",
		avg.Round(time.Microsecond),
		percentile(samples, 0.50).Round(time.Microsecond),
		percentile(samples, 0.95).Round(time.Microsecond),
		percentile(samples, 0.99).Round(time.Microsecond),
		samples[len(samples)-1].Round(time.Microsecond),
		len(samples),
	)
}

// percentile returns the q-th percentile of sorted samples.
func percentile(sorted []time.Duration, q float64) time.Duration {
	idx := int(math.Ceil(float64(len(sorted))*q)) - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

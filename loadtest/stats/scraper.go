package stats

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// trackedCounters are the server-side counters included in the report.
// Labeled series (read outcomes, side-effect channels) are summed into
// one value per metric.
var trackedCounters = []struct {
	metric string
	label  string
}{
	{"ticketdrop_sessions_created_total", "Sessions Created"},
	{"ticketdrop_session_reads_total", "Session Reads"},
	{"ticketdrop_allocation_collisions_total", "Id Collisions"},
	{"ticketdrop_side_effect_failures_total", "Side-effect Failures"},
}

// Store call latency histogram, used to compute the server-side average.
const (
	storeSumMetric   = "ticketdrop_store_call_duration_seconds_sum"
	storeCountMetric = "ticketdrop_store_call_duration_seconds_count"
)

// snapshot holds the tracked metric values at one point in time.
type snapshot struct {
	taken  time.Time
	values map[string]float64
}

// Scraper periodically fetches the server's Prometheus endpoint during a
// load test and keeps snapshots for the final report, so client-side
// latencies can be read next to what the server counted.
type Scraper struct {
	metricsURL string
	interval   time.Duration

	mu        sync.Mutex
	snapshots []snapshot

	cancel context.CancelFunc
	done   chan struct{}
	client *http.Client
}

// NewScraper creates a Scraper for the given metrics endpoint.
func NewScraper(metricsURL string, interval time.Duration) *Scraper {
	return &Scraper{
		metricsURL: metricsURL,
		interval:   interval,
		client:     &http.Client{Timeout: 5 * time.Second},
		done:       make(chan struct{}),
	}
}

// Start takes an immediate snapshot and then scrapes at the configured
// interval until the context is cancelled or Stop is called.
func (s *Scraper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.scrapeOnce()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				// Final snapshot so the delta covers the whole run.
				s.scrapeOnce()
				return
			case <-ticker.C:
				s.scrapeOnce()
			}
		}
	}()
}

// Stop stops the background scraper and waits for it to finish.
func (s *Scraper) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Scraper) scrapeOnce() {
	snap, err := s.fetch()
	if err != nil {
		// The server may not be up yet; skip the sample.
		return
	}

	s.mu.Lock()
	s.snapshots = append(s.snapshots, snap)
	s.mu.Unlock()
}

// fetch downloads the metrics endpoint and accumulates the tracked
// series into a snapshot.
func (s *Scraper) fetch() (snapshot, error) {
	resp, err := s.client.Get(s.metricsURL)
	if err != nil {
		return snapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snapshot{}, fmt.Errorf("metrics endpoint returned %d", resp.StatusCode)
	}

	wanted := map[string]bool{storeSumMetric: true, storeCountMetric: true}
	for _, c := range trackedCounters {
		wanted[c.metric] = true
	}

	snap := snapshot{taken: time.Now(), values: map[string]float64{}}
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		name, value, ok := parseMetricLine(line)
		if ok && wanted[name] {
			snap.values[name] += value
		}
	}
	return snap, scanner.Err()
}

// parseMetricLine parses one Prometheus text exposition line into the
// metric name (labels stripped) and its value.
func parseMetricLine(line string) (name string, value float64, ok bool) {
	rest := line
	if open := strings.IndexByte(line, '{'); open != -1 {
		end := strings.LastIndexByte(line, '}')
		if end < open {
			return "", 0, false
		}
		name = line[:open]
		rest = line[end+1:]
	} else if sp := strings.IndexAny(line, " \t"); sp != -1 {
		name = line[:sp]
		rest = line[sp:]
	} else {
		return "", 0, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", 0, false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return "", 0, false
	}
	return name, v, true
}

// Report prints the delta of each tracked server counter across the run,
// plus the server-observed average store call latency.
func (s *Scraper) Report() {
	s.mu.Lock()
	snaps := make([]snapshot, len(s.snapshots))
	copy(snaps, s.snapshots)
	s.mu.Unlock()

	if len(snaps) == 0 {
		fmt.Println("\n--- Server Metrics (no data collected) ---")
		return
	}

	first := snaps[0]
	last := snaps[len(snaps)-1]

	fmt.Println("\n--- Server Metrics (Prometheus) ---")
	fmt.Printf("  %d snapshots over %s\n\n",
		len(snaps), last.taken.Sub(first.taken).Round(time.Second))

	fmt.Printf("  %-22s %10s %10s %10s\n", "Counter", "Initial", "Final", "Delta")
	for _, c := range trackedCounters {
		initial := first.values[c.metric]
		final := last.values[c.metric]
		fmt.Printf("  %-22s %10.0f %10.0f %10.0f\n", c.label, initial, final, final-initial)
	}

	deltaSum := last.values[storeSumMetric] - first.values[storeSumMetric]
	deltaCount := last.values[storeCountMetric] - first.values[storeCountMetric]
	fmt.Println()
	if deltaCount > 0 {
		fmt.Printf("  Store call avg: %.4fs  (%.0f calls)\n", deltaSum/deltaCount, deltaCount)
	} else {
		fmt.Println("  Store call avg: N/A  (no calls observed)")
	}
}

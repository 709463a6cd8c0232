package stats

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const exposition = `# HELP ticketdrop_sessions_created_total Total number of sessions created
# TYPE ticketdrop_sessions_created_total counter
ticketdrop_sessions_created_total 12
ticketdrop_session_reads_total{outcome="ok"} 30
ticketdrop_session_reads_total{outcome="not_found"} 4
ticketdrop_allocation_collisions_total 1
ticketdrop_store_call_duration_seconds_sum 1.5
ticketdrop_store_call_duration_seconds_count 50
ticketdrop_store_call_duration_seconds_bucket{op="get",le="+Inf"} 50
go_goroutines 17
`

func TestParseMetricLine(t *testing.T) {
	cases := []struct {
		line  string
		name  string
		value float64
		ok    bool
	}{
		{"ticketdrop_sessions_created_total 12", "ticketdrop_sessions_created_total", 12, true},
		{`ticketdrop_session_reads_total{outcome="ok"} 30`, "ticketdrop_session_reads_total", 30, true},
		{`metric{le="0.5",op="get"} 1.5`, "metric", 1.5, true},
		{"just_a_name", "", 0, false},
		{"name not-a-number", "", 0, false},
		{"", "", 0, false},
	}
	for _, tc := range cases {
		name, value, ok := parseMetricLine(tc.line)
		if ok != tc.ok {
			t.Errorf("parseMetricLine(%q) ok = %v, want %v", tc.line, ok, tc.ok)
			continue
		}
		if ok && (name != tc.name || value != tc.value) {
			t.Errorf("parseMetricLine(%q) = %q, %v", tc.line, name, value)
		}
	}
}

func TestScraperFetch_SumsLabeledSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(exposition))
	}))
	defer srv.Close()

	s := NewScraper(srv.URL, time.Second)
	snap, err := s.fetch()
	if err != nil {
		t.Fatalf("fetch() error: %v", err)
	}

	if got := snap.values["ticketdrop_sessions_created_total"]; got != 12 {
		t.Errorf("sessions created = %v, want 12", got)
	}
	if got := snap.values["ticketdrop_session_reads_total"]; got != 34 {
		t.Errorf("session reads = %v, want 34 (summed over outcomes)", got)
	}
	if got := snap.values[storeSumMetric]; got != 1.5 {
		t.Errorf("store sum = %v, want 1.5", got)
	}
	if got := snap.values[storeCountMetric]; got != 50 {
		t.Errorf("store count = %v, want 50", got)
	}
	if _, tracked := snap.values["go_goroutines"]; tracked {
		t.Error("untracked metric was recorded")
	}
}

func TestScraperFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewScraper(srv.URL, time.Second)
	if _, err := s.fetch(); err == nil {
		t.Error("expected an error for a failing metrics endpoint")
	}
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if got := percentile(sorted, 0.50); got != 5 {
		t.Errorf("p50 = %v, want 5", got)
	}
	if got := percentile(sorted, 0.95); got != 10 {
		t.Errorf("p95 = %v, want 10", got)
	}
	if got := percentile(sorted[:1], 0.99); got != 1 {
		t.Errorf("single-sample p99 = %v, want 1", got)
	}
}

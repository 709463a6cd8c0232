// Package main is the entry point for the session API load test binary.
// It drives the create/read lifecycle against a running server: each
// worker creates sessions and immediately reads them back a configurable
// number of times, reporting latency percentiles at the end.
//
// Usage:
//
//	loadtest -url http://localhost:8080 -sessions 1000 -concurrency 20
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ticketdrop/session-api/loadtest/stats"
)

func main() {
	url := flag.String("url", "http://localhost:8080", "API base URL")
	sessions := flag.Int("sessions", 100, "Number of sessions to create")
	concurrency := flag.Int("concurrency", 10, "Number of concurrent workers")
	readsPer := flag.Int("reads", 3, "Read-backs per created session")
	metricsURL := flag.String("metrics", "", "Metrics endpoint to scrape (default <url>/metrics)")
	flag.Parse()

	fmt.Printf("Load test: %d sessions against %s (concurrency=%d, reads=%d)\n",
		*sessions, *url, *concurrency, *readsPer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *metricsURL == "" {
		*metricsURL = *url + "/metrics"
	}
	scraper := stats.NewScraper(*metricsURL, 2*time.Second)
	scraper.Start(ctx)

	collector := stats.NewCollector()
	collector.AttachScraper(scraper)
	client := &http.Client{Timeout: 15 * time.Second}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				runLifecycle(ctx, client, *url, n, *readsPer, collector)
			}
		}()
	}

feed:
	for n := 0; n < *sessions; n++ {
		select {
		case jobs <- n:
		case <-ctx.Done():
			fmt.Println("\ninterrupted, draining workers...")
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	scraper.Stop()
	collector.Report()
	if collector.ErrorCount() > 0 {
		os.Exit(1)
	}
}

// runLifecycle creates one session and reads it back readsPer times.
func runLifecycle(ctx context.Context, client *http.Client, baseURL string, n, readsPer int, collector *stats.Collector) {
	body := fmt.Sprintf(`{"name":"load-tester-%d","email":"load-%d@test.invalid","consent":true}`, n, n)

	start := time.Now()
	id, err := createSession(ctx, client, baseURL, body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create %d: %v\n", n, err)
		collector.AddError()
		return
	}
	collector.Observe("create", time.Since(start))
	collector.AddSession()

	for i := 0; i < readsPer; i++ {
		start = time.Now()
		if err := readSession(ctx, client, baseURL, id); err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", id, err)
			collector.AddError()
			return
		}
		collector.Observe("read", time.Since(start))
	}
}

func createSession(ctx context.Context, client *http.Client, baseURL, body string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/sessions", bytes.NewReader([]byte(body)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, detail)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("response missing id")
	}
	return created.ID, nil
}

func readSession(ctx context.Context, client *http.Client, baseURL, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/sessions/"+id, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	var read struct {
		Session map[string]any `json:"session"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&read); err != nil {
		return err
	}
	if _, leaked := read.Session["email"]; leaked {
		return fmt.Errorf("response leaked the email field")
	}
	return nil
}

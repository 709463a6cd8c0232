package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RESTStore talks to an Upstash-style REST key-value API:
//
//	GET  <base>/get/<urlencoded-key>   -> {"result": <string-or-null-or-object>}
//	POST <base>/set/<urlencoded-key>   body = JSON value
//
// Both calls are bearer-token authenticated. The store may hand a written
// JSON document back either as its serialized string form or as a
// structured document; Get normalizes both to the original bytes.
type RESTStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewRESTStore creates a REST store client for the given base URL and
// bearer token.
func NewRESTStore(baseURL, token string) *RESTStore {
	return &RESTStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Get fetches a key. Absent keys report found=false with a nil error.
func (s *RESTStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	endpoint := s.baseURL + "/get/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, &UnavailableError{Op: "get", Detail: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, false, &UnavailableError{Op: "get", Detail: "transport", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, &UnavailableError{Op: "get", Status: resp.StatusCode, Detail: "read body", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, &UnavailableError{Op: "get", Status: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, false, &UnavailableError{Op: "get", Status: resp.StatusCode, Detail: "malformed response envelope", Err: err}
	}

	return normalizeResult(envelope.Result)
}

// normalizeResult maps the {"result": ...} payload to value bytes:
// null (or missing) means absent, a JSON string is unwrapped to the
// string's own bytes, and any other document is returned verbatim.
func normalizeResult(raw json.RawMessage) ([]byte, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false, nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, false, &UnavailableError{Op: "get", Detail: "malformed string result", Err: err}
		}
		return []byte(s), true, nil
	}
	return trimmed, true, nil
}

// Set writes a value under a key, sending the value as the request body.
func (s *RESTStore) Set(ctx context.Context, key string, value []byte) error {
	endpoint := s.baseURL + "/set/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(value))
	if err != nil {
		return &UnavailableError{Op: "set", Detail: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &UnavailableError{Op: "set", Detail: "transport", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &UnavailableError{Op: "set", Status: resp.StatusCode, Detail: strings.TrimSpace(string(body))}
	}

	// Drain so the connection can be reused.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("kv: drain set response: %w", err)
	}
	return nil
}

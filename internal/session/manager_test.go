package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory Store double with scripted failure modes.
type fakeStore struct {
	mu   sync.Mutex
	data map[string][]byte

	getCalls int
	setCalls int

	// existsForFirst makes the first N Get probes report "exists"
	// regardless of contents, to script allocation collisions.
	existsForFirst int

	getErr error
	setErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	if s.existsForFirst > 0 {
		s.existsForFirst--
		return []byte(`{}`), true, nil
	}
	val, ok := s.data[key]
	return val, ok, nil
}

func (s *fakeStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

// recordingNotifier records Notify calls and signals on a channel so
// tests can wait for the detached side-effect dispatch.
type recordingNotifier struct {
	mu     sync.Mutex
	calls  []string // "email|name|url"
	err    error
	called chan struct{}
}

func newRecordingNotifier(err error) *recordingNotifier {
	return &recordingNotifier{err: err, called: make(chan struct{}, 8)}
}

func (n *recordingNotifier) Notify(ctx context.Context, email, name, url string) error {
	n.mu.Lock()
	n.calls = append(n.calls, email+"|"+name+"|"+url)
	n.mu.Unlock()
	n.called <- struct{}{}
	return n.err
}

func (n *recordingNotifier) wait(t *testing.T) {
	t.Helper()
	select {
	case <-n.called:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not invoked")
	}
}

func newTestManager(store *fakeStore, notifier Notifier) *Manager {
	return NewManager(ManagerConfig{
		Store:    store,
		Notifier: notifier,
		BaseURL:  "https://ticketdrop.example",
	})
}

func TestCreate_HappyPath(t *testing.T) {
	store := newFakeStore()
	notifier := newRecordingNotifier(nil)
	mgr := newTestManager(store, notifier)
	ctx := context.Background()

	res, err := mgr.Create(ctx, CreateInput{Name: "DJ Bob!", Email: "bob@x.com", Consent: true}, "")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if !idPattern.MatchString(res.ID) {
		t.Errorf("id %q does not match the id format", res.ID)
	}
	if !strings.HasPrefix(res.ID, "dj-bob-") {
		t.Errorf("id = %q, want dj-bob-<suffix>", res.ID)
	}
	if want := "https://ticketdrop.example/session/" + res.ID; res.URL != want {
		t.Errorf("url = %q, want %q", res.URL, want)
	}

	// The stored record is complete: zero/empty values for every
	// mutable field, timestamps set, email present in storage.
	raw, ok := store.data[Key(res.ID)]
	if !ok {
		t.Fatal("record was not persisted")
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("stored payload does not parse: %v", err)
	}
	if rec.Email != "bob@x.com" {
		t.Errorf("stored email = %q", rec.Email)
	}
	if rec.Progress != 0 || rec.Listened == nil || rec.Skipped == nil || rec.Notes == nil || rec.Ratings == nil {
		t.Errorf("record not fully initialized: %+v", rec)
	}
	if rec.CreatedAt == "" || rec.CreatedAt != rec.ConsentAt {
		t.Errorf("timestamps: createdAt=%q consentAt=%q", rec.CreatedAt, rec.ConsentAt)
	}
	if _, err := time.Parse(time.RFC3339, rec.CreatedAt); err != nil {
		t.Errorf("createdAt is not RFC 3339: %v", err)
	}

	notifier.wait(t)
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.calls) != 1 || !strings.HasPrefix(notifier.calls[0], "bob@x.com|DJ Bob!|") {
		t.Errorf("unexpected notify calls: %v", notifier.calls)
	}
}

func TestCreate_ValidationRejectsWithoutStoreWrite(t *testing.T) {
	cases := []struct {
		name  string
		in    CreateInput
		field string
	}{
		{"missing name", CreateInput{Email: "a@b.com", Consent: true}, "name"},
		{"name too short", CreateInput{Name: "x", Email: "a@b.com", Consent: true}, "name"},
		{"name too long", CreateInput{Name: strings.Repeat("a", 33), Email: "a@b.com", Consent: true}, "name"},
		{"name without letters", CreateInput{Name: "!!!", Email: "a@b.com", Consent: true}, "name"},
		{"missing email", CreateInput{Name: "alice", Consent: true}, "email"},
		{"malformed email", CreateInput{Name: "alice", Email: "not-an-email", Consent: true}, "email"},
		{"email without tld", CreateInput{Name: "alice", Email: "a@b", Consent: true}, "email"},
		{"consent false", CreateInput{Name: "alice", Email: "a@b.com", Consent: false}, "consent"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			mgr := newTestManager(store, nil)

			_, err := mgr.Create(context.Background(), tc.in, "")
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tc.field {
				t.Errorf("field = %q, want %q", ve.Field, tc.field)
			}
			if store.setCalls != 0 {
				t.Errorf("validation failure must not write: %d set calls", store.setCalls)
			}
			if store.getCalls != 0 {
				t.Errorf("validation failure must not probe: %d get calls", store.getCalls)
			}
		})
	}
}

func TestCreate_StoreFailureAbortsAllOrNothing(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("kv set failed")
	notifier := newRecordingNotifier(nil)
	mgr := newTestManager(store, notifier)

	_, err := mgr.Create(context.Background(), CreateInput{Name: "alice", Email: "a@b.com", Consent: true}, "")
	if err == nil || !strings.Contains(err.Error(), "kv set failed") {
		t.Fatalf("expected persistence error, got %v", err)
	}

	// No notification after a failed write.
	select {
	case <-notifier.called:
		t.Error("notifier must not run when persistence fails")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCreate_NotifierFailureIsAbsorbed(t *testing.T) {
	store := newFakeStore()
	notifier := newRecordingNotifier(errors.New("email service unreachable"))
	mgr := newTestManager(store, notifier)

	res, err := mgr.Create(context.Background(), CreateInput{Name: "alice", Email: "a@b.com", Consent: true}, "")
	if err != nil {
		t.Fatalf("Create() must succeed despite notifier failure, got %v", err)
	}
	if res.ID == "" {
		t.Fatal("missing id")
	}
	notifier.wait(t)
}

func TestCreate_FallbackOriginWhenUnconfigured(t *testing.T) {
	store := newFakeStore()
	mgr := NewManager(ManagerConfig{Store: store})

	res, err := mgr.Create(context.Background(), CreateInput{Name: "alice", Email: "a@b.com", Consent: true}, "https://fallback.example/")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if want := "https://fallback.example/session/" + res.ID; res.URL != want {
		t.Errorf("url = %q, want %q", res.URL, want)
	}
}

func TestRead_RedactsEmail(t *testing.T) {
	store := newFakeStore()
	mgr := newTestManager(store, nil)
	ctx := context.Background()

	res, err := mgr.Create(ctx, CreateInput{Name: "DJ Bob!", Email: "a@b.com", Consent: true}, "")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	view, err := mgr.Read(ctx, res.ID)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}

	// String-search the view bytes for the address itself.
	if strings.Contains(string(view), "a@b.com") {
		t.Errorf("view leaks the email: %s", view)
	}

	var fields map[string]any
	if err := json.Unmarshal(view, &fields); err != nil {
		t.Fatalf("view does not parse: %v", err)
	}
	if _, ok := fields["email"]; ok {
		t.Error("public view must not contain the email field")
	}
	if fields["id"] != res.ID || fields["name"] != "DJ Bob!" {
		t.Errorf("unexpected view identity fields: %v", fields)
	}

	// All non-private fields survive with their creation-time values.
	for _, field := range []string{"id", "name", "createdAt", "consentAt", "progress", "listened", "skipped", "notes", "ratings"} {
		if _, ok := fields[field]; !ok {
			t.Errorf("public view missing field %q", field)
		}
	}
	if progress, ok := fields["progress"].(float64); !ok || progress != 0 {
		t.Errorf("progress = %v", fields["progress"])
	}
}

func TestRead_PreservesUnknownFields(t *testing.T) {
	store := newFakeStore()
	mgr := newTestManager(store, nil)
	store.data[Key("legacy-abc123")] = []byte(`{"id":"legacy-abc123","name":"legacy","email":"x@y.com","vibe":"immaculate"}`)

	view, err := mgr.Read(context.Background(), "legacy-abc123")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(view, &fields); err != nil {
		t.Fatalf("view does not parse: %v", err)
	}
	if fields["vibe"] != "immaculate" {
		t.Errorf("unknown field dropped: %s", view)
	}
	if _, ok := fields["email"]; ok {
		t.Error("email must be redacted from legacy records too")
	}
}

func TestRead_PreservesStoredFieldOrder(t *testing.T) {
	store := newFakeStore()
	mgr := newTestManager(store, nil)
	store.data[Key("weird-abc123")] = []byte(`{"name":"z","id":"weird-abc123","email":"x@y.com","createdAt":"2026-01-01T00:00:00Z"}`)

	view, err := mgr.Read(context.Background(), "weird-abc123")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	want := `{"name":"z","id":"weird-abc123","createdAt":"2026-01-01T00:00:00Z"}`
	if string(view) != want {
		t.Errorf("view = %s, want %s", view, want)
	}
}

func TestRead_Idempotent(t *testing.T) {
	store := newFakeStore()
	mgr := newTestManager(store, nil)
	ctx := context.Background()

	res, err := mgr.Create(ctx, CreateInput{Name: "alice", Email: "a@b.com", Consent: true}, "")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	first, err := mgr.Read(ctx, res.ID)
	if err != nil {
		t.Fatalf("first Read() error: %v", err)
	}
	second, err := mgr.Read(ctx, res.ID)
	if err != nil {
		t.Fatalf("second Read() error: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("reads differ:\n%s\n%s", first, second)
	}
}

func TestRead_NotFound(t *testing.T) {
	mgr := newTestManager(newFakeStore(), nil)

	_, err := mgr.Read(context.Background(), "does-not-exist")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRead_CorruptRecord(t *testing.T) {
	// A Redis-backed store can hand back any bytes a client managed to
	// write; payloads that are valid JSON but not an object are just as
	// corrupt as unparsable ones.
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{not json`},
		{"null", `null`},
		{"array", `[1,2]`},
		{"number", `42`},
		{"string", `"hello"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			store.data[Key("broken-abc123")] = []byte(tc.raw)
			mgr := newTestManager(store, nil)

			view, err := mgr.Read(context.Background(), "broken-abc123")
			if !errors.Is(err, ErrCorruptRecord) {
				t.Fatalf("expected ErrCorruptRecord, got err=%v view=%s", err, view)
			}
		})
	}
}

func TestRead_StoreErrorSurfaces(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("store down")
	mgr := newTestManager(store, nil)

	_, err := mgr.Read(context.Background(), "any-abc123")
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected a store error, got %v", err)
	}
}

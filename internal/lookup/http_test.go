package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/shepard/internal/model"
)

func noSleep(t *testing.T) {
	t.Helper()
	orig := retrySleepFunc
	retrySleepFunc = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { retrySleepFunc = orig })
}

func newTestIndex(t *testing.T, url string, robots bool) *HTTPIndex {
	t.Helper()
	h, err := NewHTTPIndex(model.IndexConfig{
		BaseURL:       url,
		APIKey:        "secret",
		Timeout:       5 * time.Second,
		MaxRetries:    2,
		RespectRobots: robots,
	}, nil)
	if err != nil {
		t.Fatalf("NewHTTPIndex failed: %v", err)
	}
	return h
}

func TestHTTPIndex_FindCitingPaginates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/documents/smith-v-jones/citing" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("cursor") {
		case "":
			_ = json.NewEncoder(w).Encode(page{
				Documents:  []model.CitationRecord{{ID: "a", Name: "A v. B", Confidence: 0.9}},
				NextCursor: "p2",
			})
		case "p2":
			_ = json.NewEncoder(w).Encode(page{
				Documents: []model.CitationRecord{{ID: "c", Name: "C v. D"}},
			})
		}
	}))
	defer server.Close()

	records, err := newTestIndex(t, server.URL, false).FindCiting(context.Background(), model.DocumentRef{ID: "smith-v-jones"})
	if err != nil {
		t.Fatalf("FindCiting failed: %v", err)
	}
	if len(records) != 2 || records[0].ID != "a" || records[1].ID != "c" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestHTTPIndex_ByCitation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/citations/cited" || r.URL.Query().Get("citation") != "123 F.3d 456" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"documents":[{"id":"x","name":"X v. Y"}]}`))
	}))
	defer server.Close()

	records, err := newTestIndex(t, server.URL, false).FindCited(context.Background(), model.DocumentRef{Citation: "123 F.3d 456"})
	if err != nil {
		t.Fatalf("FindCited failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "x" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestHTTPIndex_NotFoundIsZeroResults(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	records, err := newTestIndex(t, server.URL, false).FindCiting(context.Background(), model.DocumentRef{ID: "nobody"})
	if err != nil {
		t.Fatalf("expected no error for 404, got %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", records)
	}
}

func TestHTTPIndex_RetriesServerErrors(t *testing.T) {
	noSleep(t)

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"documents":[{"id":"a","name":"A v. B"}]}`))
	}))
	defer server.Close()

	records, err := newTestIndex(t, server.URL, false).FindCiting(context.Background(), model.DocumentRef{ID: "d"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestHTTPIndex_PersistentFailureIsUnavailable(t *testing.T) {
	noSleep(t)

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestIndex(t, server.URL, false).FindCiting(context.Background(), model.DocumentRef{ID: "d"})
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	var ue *UnavailableError
	if !errors.As(err, &ue) || ue.Op != "citing" || ue.Index != "http" {
		t.Errorf("unexpected error detail: %#v", err)
	}
	// One attempt plus MaxRetries
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestHTTPIndex_CancelDuringBackoff(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestIndex(t, server.URL, false).FindCiting(ctx, model.DocumentRef{ID: "d"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	// the first backoff is a full second
	if elapsed := time.Since(start); elapsed > 900*time.Millisecond {
		t.Errorf("backoff ignored cancellation, returned after %v", elapsed)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", got)
	}
}

func TestRetrySleepFunc_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := retrySleepFunc(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := retrySleepFunc(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("expected nil after timer fires, got %v", err)
	}
}

func TestHTTPIndex_ClientErrorNotRetried(t *testing.T) {
	noSleep(t)

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestIndex(t, server.URL, false).FindCiting(context.Background(), model.DocumentRef{ID: "d"})
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

func TestHTTPIndex_ConnectionRefusedIsUnavailable(t *testing.T) {
	noSleep(t)

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestIndex(t, url, false).FindCited(context.Background(), model.DocumentRef{ID: "d"})
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestHTTPIndex_RespectsRobots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /v1/documents/\n"))
			return
		}
		t.Errorf("disallowed path requested: %s", r.URL.Path)
	}))
	defer server.Close()

	_, err := newTestIndex(t, server.URL, true).FindCiting(context.Background(), model.DocumentRef{ID: "d"})
	if !errors.Is(err, ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if !errors.Is(err, errRobotsDisallowed) {
		t.Errorf("expected robots error, got %v", err)
	}
}

func TestHTTPIndex_HistoryAndDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/documents/a/history":
			_, _ = w.Write([]byte(`{"prior_history":[{"court":"N.D. Cal.","disposition":"affirmed"}],"subsequent_history":[],"related_cases":[],"final_disposition":"affirmed"}`))
		case "/v1/documents/a":
			_, _ = w.Write([]byte(`{"title":"A v. B","content_type":"case_law","citations":["1 F.3d 2"]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	h := newTestIndex(t, server.URL, false)
	ctx := context.Background()

	history, err := h.History(ctx, model.DocumentRef{ID: "a"})
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if history == nil || len(history.PriorHistory) != 1 || history.FinalDisposition != "affirmed" {
		t.Errorf("unexpected history: %+v", history)
	}

	missing, err := h.History(ctx, model.DocumentRef{ID: "b"})
	if err != nil || missing != nil {
		t.Errorf("expected nil history for 404, got %+v, %v", missing, err)
	}

	doc, err := h.Document(ctx, "a")
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if doc.ID != "a" || doc.Title != "A v. B" || doc.PrimaryCitation() != "1 F.3d 2" {
		t.Errorf("unexpected document: %+v", doc)
	}

	if _, err := h.Document(ctx, "b"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestNewHTTPIndex_InvalidBaseURL(t *testing.T) {
	for _, u := range []string{"", "ftp://index.example.com", "::bad"} {
		if _, err := NewHTTPIndex(model.IndexConfig{BaseURL: u}, nil); err == nil {
			t.Errorf("expected error for base URL %q", u)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&statusError{Code: 500}, true},
		{&statusError{Code: 503}, true},
		{&statusError{Code: 429}, true},
		{&statusError{Code: 404}, false},
		{&statusError{Code: 401}, false},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("read: connection reset by peer"), true},
		{errors.New("i/o timeout"), true},
		{errors.New("decode response: invalid character"), false},
		{context.Canceled, false},
		{context.DeadlineExceeded, false},
	}
	for _, tt := range tests {
		if got := isRetryable(tt.err); got != tt.want {
			t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestWithCursor(t *testing.T) {
	if got := withCursor("http://x/v1/documents/a/citing", "c 1"); !strings.HasSuffix(got, "?cursor=c+1") {
		t.Errorf("unexpected URL %s", got)
	}
	if got := withCursor("http://x/v1/citations/citing?citation=1", "c"); !strings.HasSuffix(got, "&cursor=c") {
		t.Errorf("unexpected URL %s", got)
	}
}

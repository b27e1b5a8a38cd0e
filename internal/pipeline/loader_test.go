package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/shepard/internal/model"
)

func testLoader() *Loader {
	return NewLoader(model.IndexConfig{Timeout: 5 * time.Second, UserAgent: "test-agent"}, 1<<20)
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("Expected User-Agent test-agent, got %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body><p>See Smith v. Jones, 123 F.3d 456 (9th Cir. 2022).</p><script>x()</script></body></html>")
	}))
	defer server.Close()

	doc, err := testLoader().Fetch(context.Background(), server.URL+"/opinions/Smith_v_Jones.html")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if doc.Content != "See Smith v. Jones, 123 F.3d 456 (9th Cir. 2022)." {
		t.Errorf("Unexpected content: %q", doc.Content)
	}
	if doc.Title != "Smith v Jones" {
		t.Errorf("Unexpected title: %q", doc.Title)
	}
	if doc.ID != "smith-v-jones" {
		t.Errorf("Unexpected id: %q", doc.ID)
	}
}

func TestFetch_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "plain text body")
	}))
	defer server.Close()
	noSleep(t)

	doc, err := testLoader().Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if doc.Content != "plain text body" {
		t.Errorf("Unexpected content: %q", doc.Content)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetch_PermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	noSleep(t)

	_, err := testLoader().Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	// 404 is not retryable
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts.Load())
	}
	if got := err.Error(); got != "unexpected status: 404 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
}

func TestFetch_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()
	noSleep(t)

	if _, err := testLoader().Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error")
	}
	if attempts.Load() != fetchMaxAttempts {
		t.Errorf("Expected %d attempts, got %d", fetchMaxAttempts, attempts.Load())
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "smith.yaml")
	writeTestFile(t, yamlPath, "id: smith\ntitle: Smith v. Jones\ncontent_type: case_law\ncitations:\n  - 123 F.3d 456\n")
	doc, err := LoadFile(yamlPath)
	if err != nil {
		t.Fatalf("LoadFile yaml: %v", err)
	}
	if doc.ID != "smith" || doc.Title != "Smith v. Jones" || doc.PrimaryCitation() != "123 F.3d 456" || doc.ContentType != model.ContentCaseLaw {
		t.Errorf("Unexpected document: %+v", doc)
	}

	jsonPath := filepath.Join(dir, "doe.json")
	writeTestFile(t, jsonPath, `{"title": "Doe v. Roe", "content_type": "brief"}`)
	doc, err = LoadFile(jsonPath)
	if err != nil {
		t.Fatalf("LoadFile json: %v", err)
	}
	if doc.ID != "doe" || doc.Title != "Doe v. Roe" {
		t.Errorf("Expected id from file name, got %+v", doc)
	}

	textPath := filepath.Join(dir, "Opening Brief.txt")
	writeTestFile(t, textPath, "Plaintiff relies on 42 U.S.C. § 1983.")
	doc, err = LoadFile(textPath)
	if err != nil {
		t.Fatalf("LoadFile text: %v", err)
	}
	if doc.ID != "opening-brief" || !strings.Contains(doc.Content, "§ 1983") {
		t.Errorf("Unexpected document: %+v", doc)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
	badPath := filepath.Join(dir, "bad.yaml")
	writeTestFile(t, badPath, "id: [unterminated")
	if _, err := LoadFile(badPath); err == nil {
		t.Error("Expected error for malformed yaml")
	}
}

func TestLoad_DispatchesOnScheme(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "fetched")
	}))
	defer server.Close()

	doc, err := testLoader().Load(context.Background(), server.URL+"/brief")
	if err != nil {
		t.Fatalf("Load url: %v", err)
	}
	if doc.Content != "fetched" {
		t.Errorf("Unexpected content: %q", doc.Content)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Smith v. Jones", "smith-v-jones"},
		{"  --Brief__2024-- ", "brief-2024"},
		{"", "document"},
		{"§§", "document"},
	}
	for _, tt := range tests {
		if got := slug(tt.in); got != tt.want {
			t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/shepard/internal/citation"
	"github.com/ppiankov/shepard/internal/model"
	"github.com/ppiankov/shepard/internal/util"
	"gopkg.in/yaml.v3"
)

const (
	defaultMaxBytes   = 2_000_000
	fetchMaxAttempts  = 3
	fetchInitialDelay = 500 * time.Millisecond
)

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// Loader turns a file path or URL into a document for analysis
type Loader struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewLoader creates a loader that fetches URLs with the index's HTTP settings
func NewLoader(cfg model.IndexConfig, maxBytes int64) *Loader {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Loader{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
	}
}

// Load reads a document from source. URLs are fetched and reduced to their
// visible text. .yaml, .yml and .json files hold a full document; any other
// file is taken as the document's content.
func (l *Loader) Load(ctx context.Context, source string) (model.Document, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.Fetch(ctx, source)
	}
	return LoadFile(source)
}

// LoadFile reads a document from a local file
func LoadFile(path string) (model.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Document{}, fmt.Errorf("read document: %w", err)
	}

	var doc model.Document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return model.Document{}, fmt.Errorf("parse document %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return model.Document{}, fmt.Errorf("parse document %s: %w", path, err)
		}
	default:
		text, err := citation.PlainText(string(data))
		if err != nil {
			return model.Document{}, fmt.Errorf("read document %s: %w", path, err)
		}
		doc.Content = text
	}

	if doc.ID == "" {
		doc.ID = slug(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
	return doc, nil
}

// Fetch retrieves a web page and returns its visible text as a document.
// Server errors and 429 are retried with exponential backoff.
func (l *Loader) Fetch(ctx context.Context, rawURL string) (model.Document, error) {
	delay := fetchInitialDelay
	var lastErr error
	for attempt := 1; attempt <= fetchMaxAttempts; attempt++ {
		body, finalURL, retryable, err := l.fetchOnce(ctx, rawURL)
		if err == nil {
			text, err := citation.PlainText(body)
			if err != nil {
				return model.Document{}, fmt.Errorf("fetch %s: %w", rawURL, err)
			}
			subject := extractSubject(finalURL)
			return model.Document{ID: slug(subject), Title: subject, Content: text}, nil
		}
		lastErr = err
		if !retryable || attempt == fetchMaxAttempts || ctx.Err() != nil {
			break
		}
		fetchSleepFunc(delay)
		delay *= 2
	}
	return model.Document{}, lastErr
}

func (l *Loader) fetchOnce(ctx context.Context, rawURL string) (body, finalURL string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", false, fmt.Errorf("create request: %w", err)
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", "", ctx.Err() == nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryable = resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", "", retryable, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes))
	if err != nil {
		return "", "", true, fmt.Errorf("read body: %w", err)
	}
	return string(data), resp.Request.URL.String(), false, nil
}

// extractSubject extracts a human-readable subject from the URL
func extractSubject(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	// De-slugify
	last = strings.ReplaceAll(last, "_", " ")
	last = strings.ReplaceAll(last, "-", " ")

	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}
	return last
}

// slug lowercases s and joins its words with hyphens, for ids and file names
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if len(out) > 100 {
		out = out[:100]
	}
	if out == "" {
		return "document"
	}
	return out
}

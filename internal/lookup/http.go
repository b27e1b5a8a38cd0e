package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/shepard/internal/model"
	"github.com/ppiankov/shepard/internal/util"
	"github.com/ppiankov/shepard/internal/worker"
	"go.uber.org/zap"
)

const (
	maxResponseBytes = 8 << 20
	maxPages         = 50
)

// retrySleepFunc waits between retries and returns early when ctx is done (injectable for tests)
var retrySleepFunc = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// errRobotsDisallowed is returned when robots.txt forbids an index path
var errRobotsDisallowed = errors.New("disallowed by robots.txt")

// statusError is a non-2xx response from the index
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// page is one response of a paginated citation query
type page struct {
	Documents  []model.CitationRecord `json:"documents"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

// HTTPIndex queries a JSON citation index over HTTP.
//
// Endpoints, relative to the base URL:
//
//	GET /v1/documents/{id}/citing     documents citing {id}
//	GET /v1/documents/{id}/cited      documents {id} cites
//	GET /v1/documents/{id}/history    procedural history
//	GET /v1/documents/{id}            the document itself
//	GET /v1/citations/{citing|cited}?citation=...   lookup by citation when the id is unknown
//
// Citation queries page with ?cursor= until next_cursor is empty.
type HTTPIndex struct {
	baseURL    string
	apiKey     string
	userAgent  string
	client     *http.Client
	limiter    *worker.Limiter
	robots     *util.RobotsChecker // nil unless robots.txt is respected
	maxRetries int
	logger     *zap.Logger
}

// NewHTTPIndex creates an HTTP index client from configuration
func NewHTTPIndex(cfg model.IndexConfig, logger *zap.Logger) (*HTTPIndex, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	h := &HTTPIndex{
		baseURL:    base.String(),
		apiKey:     cfg.APIKey,
		userAgent:  cfg.UserAgent,
		client:     client,
		limiter:    worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		maxRetries: cfg.MaxRetries,
		logger:     logger.Named("lookup.http"),
	}
	if h.userAgent == "" {
		h.userAgent = model.DefaultConfig().Index.UserAgent
	}
	if cfg.RespectRobots {
		h.robots = util.NewRobotsChecker(client, h.userAgent, timeout, time.Hour)
	}
	return h, nil
}

// FindCiting returns the documents citing ref
func (h *HTTPIndex) FindCiting(ctx context.Context, ref model.DocumentRef) ([]model.CitationRecord, error) {
	return h.find(ctx, "citing", ref)
}

// FindCited returns the documents ref cites
func (h *HTTPIndex) FindCited(ctx context.Context, ref model.DocumentRef) ([]model.CitationRecord, error) {
	return h.find(ctx, "cited", ref)
}

// History returns the procedural history of ref, or nil when the index has none
func (h *HTTPIndex) History(ctx context.Context, ref model.DocumentRef) (*model.CaseHistory, error) {
	if ref.ID == "" {
		return nil, nil
	}
	var history model.CaseHistory
	err := h.getJSON(ctx, h.documentURL(ref.ID, "history"), &history)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &UnavailableError{Index: "http", Op: "history", Err: err}
	}
	return &history, nil
}

// Document returns the document with the given id
func (h *HTTPIndex) Document(ctx context.Context, id string) (model.Document, error) {
	var doc model.Document
	err := h.getJSON(ctx, h.documentURL(id, ""), &doc)
	if isNotFound(err) {
		return model.Document{}, fmt.Errorf("%q: %w", id, ErrDocumentNotFound)
	}
	if err != nil {
		return model.Document{}, &UnavailableError{Index: "http", Op: "document", Err: err}
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return doc, nil
}

func (h *HTTPIndex) find(ctx context.Context, direction string, ref model.DocumentRef) ([]model.CitationRecord, error) {
	var endpoint string
	switch {
	case ref.ID != "":
		endpoint = h.documentURL(ref.ID, direction)
	case ref.Citation != "":
		endpoint = h.baseURL + "/v1/citations/" + direction + "?citation=" + url.QueryEscape(ref.Citation)
	default:
		return nil, &UnavailableError{Index: "http", Op: direction, Err: errors.New("document has neither id nor citation")}
	}

	records := []model.CitationRecord{}
	cursor := ""
	for i := 0; i < maxPages; i++ {
		var p page
		err := h.getJSON(ctx, withCursor(endpoint, cursor), &p)
		if isNotFound(err) {
			// Unknown document: nothing cites it as far as the index knows
			return records, nil
		}
		if err != nil {
			return nil, &UnavailableError{Index: "http", Op: direction, Err: err}
		}
		records = append(records, p.Documents...)
		if p.NextCursor == "" || p.NextCursor == cursor {
			return records, nil
		}
		cursor = p.NextCursor
	}

	h.logger.Warn("citation query truncated",
		zap.String("direction", direction),
		zap.String("document", ref.ID),
		zap.Int("pages", maxPages),
		zap.Int("records", len(records)))
	return records, nil
}

func (h *HTTPIndex) documentURL(id, suffix string) string {
	u := h.baseURL + "/v1/documents/" + url.PathEscape(id)
	if suffix != "" {
		u += "/" + suffix
	}
	return u
}

func withCursor(endpoint, cursor string) string {
	if cursor == "" {
		return endpoint
	}
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "cursor=" + url.QueryEscape(cursor)
}

// getJSON fetches rawURL into out, retrying transient failures with exponential backoff
func (h *HTTPIndex) getJSON(ctx context.Context, rawURL string, out any) error {
	var err error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			h.logger.Debug("retrying index request",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			if sleepErr := retrySleepFunc(ctx, backoff); sleepErr != nil {
				return sleepErr
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = h.getOnce(ctx, rawURL, out)
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return err
}

func (h *HTTPIndex) getOnce(ctx context.Context, rawURL string, out any) error {
	var crawlDelay time.Duration
	if h.robots != nil {
		allowed, delay, err := h.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return fmt.Errorf("check robots.txt: %w", err)
		}
		if !allowed {
			return errRobotsDisallowed
		}
		crawlDelay = delay
	}
	if err := h.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{Code: resp.StatusCode, Body: truncate(strings.TrimSpace(string(body)), 200)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// isRetryable reports whether err is a transient failure: 5xx, 429 or a flaky connection
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) && !isClientTimeout(err) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return isRetryableNetworkError(err.Error())
}

// isClientTimeout distinguishes the http.Client timeout from the caller's deadline
func isClientTimeout(err error) bool {
	return strings.Contains(err.Error(), "Client.Timeout")
}

// isRetryableNetworkError checks error strings for transient network failures
func isRetryableNetworkError(errMsg string) bool {
	s := strings.ToLower(errMsg)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

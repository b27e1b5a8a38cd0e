package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsChecker enforces robots.txt for public citation indexes.
// Policies are cached per host for ttl.
type RobotsChecker struct {
	mu         sync.RWMutex
	policies   map[string]robotsPolicy
	httpClient *http.Client
	userAgent  string
	agent      string // product token matched against robots groups
	ttl        time.Duration
}

type robotsPolicy struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

// NewRobotsChecker creates a checker that fetches robots.txt with client.
// A nil client gets a plain client with the given timeout.
func NewRobotsChecker(client *http.Client, userAgent string, timeout, ttl time.Duration) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RobotsChecker{
		policies:   make(map[string]robotsPolicy),
		httpClient: client,
		userAgent:  userAgent,
		agent:      NormalizeUserAgent(userAgent),
		ttl:        ttl,
	}
}

// CanFetch reports whether rawURL may be requested and the crawl delay to honor.
// An unreachable robots.txt allows everything.
func (r *RobotsChecker) CanFetch(ctx context.Context, rawURL string) (bool, time.Duration, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, 0, fmt.Errorf("parse URL: %w", err)
	}

	data, err := r.policy(ctx, parsed)
	if err != nil {
		return true, 0, nil
	}

	path := parsed.EscapedPath()
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	allowed := data.TestAgent(path, r.agent)

	var crawlDelay time.Duration
	if group := data.FindGroup(r.agent); group != nil {
		crawlDelay = group.CrawlDelay
	}
	return allowed, crawlDelay, nil
}

func (r *RobotsChecker) policy(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	p, ok := r.policies[u.Host]
	r.mu.RUnlock()
	if ok && time.Since(p.fetchedAt) < r.ttl {
		return p.data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.mu.Lock()
	r.policies[u.Host] = robotsPolicy{data: data, fetchedAt: time.Now()}
	r.mu.Unlock()
	return data, nil
}

// Reset drops all cached policies
func (r *RobotsChecker) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies = make(map[string]robotsPolicy)
}

// NormalizeUserAgent returns the product token of a User-Agent ("Shepard/0.1 (+url)" -> "Shepard")
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}

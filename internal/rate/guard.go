package rate

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	xrate "golang.org/x/time/rate"
)

// RateLimitError is returned instead of sending a request the budget does not
// allow.
type RateLimitError struct {
	Provider string
	Reason   string
	RetryAt  time.Time
}

func (e RateLimitError) Error() string {
	if e.RetryAt.IsZero() {
		return fmt.Sprintf("%s rate limited: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s rate limited: %s (retry at %s)", e.Provider, e.Reason, e.RetryAt.UTC().Format(time.RFC3339))
}

type Decision struct {
	Allowed bool
	Reason  string
	RetryAt time.Time
}

type cachedResponse struct {
	status  int
	header  http.Header
	body    []byte
	expires time.Time
}

// Guard spends a provider's budget. Local limiters cover each declared
// window; quota headers and 429 responses from the provider tighten them.
type Guard struct {
	decl     Declaration
	limiters map[Window]*xrate.Limiter

	mu        sync.Mutex
	remaining map[Window]int
	cooldown  time.Time
	cache     map[string]cachedResponse
}

// WrapHTTP returns a copy of base whose transport enforces decl.
func WrapHTTP(decl Declaration, base *http.Client) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	client := *base
	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	client.Transport = &roundTripper{base: transport, guard: newGuard(decl)}
	return &client
}

func newGuard(decl Declaration) *Guard {
	g := &Guard{
		decl:      decl,
		limiters:  make(map[Window]*xrate.Limiter),
		remaining: make(map[Window]int),
		cache:     make(map[string]cachedResponse),
	}
	for window, limit := range decl.Limits() {
		if limit <= 0 {
			continue
		}
		every := window.Duration() / time.Duration(limit)
		g.limiters[window] = xrate.NewLimiter(xrate.Every(every), limit)
	}
	return g
}

type roundTripper struct {
	base  http.RoundTripper
	guard *Guard
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	provider := rt.guard.decl.ProviderName()
	decision := rt.guard.ShouldCall(time.Now())
	if !decision.Allowed {
		blockedCounter.WithLabelValues(provider, decision.Reason).Inc()
		if cached := rt.guard.cached(req); cached != nil {
			return cached, nil
		}
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, RateLimitError{Provider: provider, Reason: decision.Reason, RetryAt: decision.RetryAt}
	}

	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}
	rt.guard.RecordResponse(resp.StatusCode, resp.Header)
	return rt.guard.store(req, resp)
}

// ShouldCall reserves one request in every window, or none of them.
func (g *Guard) ShouldCall(now time.Time) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.limiters) == 0 {
		return Decision{Reason: "disabled"}
	}
	if now.Before(g.cooldown) {
		return Decision{Reason: "cooldown", RetryAt: g.cooldown}
	}
	for window, remaining := range g.remaining {
		if remaining <= 0 {
			return Decision{Reason: "budget", RetryAt: now.Add(window.Duration())}
		}
	}

	reservations := make([]*xrate.Reservation, 0, len(g.limiters))
	for _, limiter := range g.limiters {
		r := limiter.ReserveN(now, 1)
		if delay := r.DelayFrom(now); !r.OK() || delay > 0 {
			r.CancelAt(now)
			for _, prior := range reservations {
				prior.CancelAt(now)
			}
			return Decision{Reason: "budget", RetryAt: now.Add(delay)}
		}
		reservations = append(reservations, r)
	}
	for window := range g.remaining {
		g.remaining[window]--
	}
	return Decision{Allowed: true}
}

// RecordResponse folds the provider's view of the budget into the guard.
func (g *Guard) RecordResponse(status int, headers http.Header) {
	provider := g.decl.ProviderName()
	responsesTotal.WithLabelValues(provider, strconv.Itoa(status)).Inc()
	cfg := g.decl.headers

	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if retryAfter, ok := headerInt(headers, cfg.RetryAfter); ok && retryAfter > 0 {
		g.cooldown = now.Add(time.Duration(retryAfter) * time.Second)
	} else if status == http.StatusTooManyRequests {
		g.cooldown = now.Add(g.decl.Cooldown())
	}
	if now.Before(g.cooldown) {
		retryAfterGauge.WithLabelValues(provider).Set(g.cooldown.Sub(now).Seconds())
	}

	for window, name := range map[Window]string{Minute: cfg.RemainingMinute, Day: cfg.RemainingDay} {
		if remaining, ok := headerInt(headers, name); ok && remaining >= 0 {
			g.remaining[window] = remaining
			remainingGauge.WithLabelValues(provider, window.String()).Set(float64(remaining))
		}
	}
}

func (g *Guard) cached(req *http.Request) *http.Response {
	if g.decl.cacheTTL <= 0 || req.Method != http.MethodGet {
		return nil
	}
	g.mu.Lock()
	entry, ok := g.cache[req.URL.String()]
	g.mu.Unlock()
	if !ok || time.Now().After(entry.expires) {
		return nil
	}
	return newResponse(req, entry.status, entry.header, entry.body)
}

// store keeps successful GET responses for replay while the budget is
// exhausted. Control requests are never replayed.
func (g *Guard) store(req *http.Request, resp *http.Response) (*http.Response, error) {
	if g.decl.cacheTTL <= 0 || req.Method != http.MethodGet || resp.StatusCode >= 300 {
		return resp, nil
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	g.mu.Lock()
	for key, entry := range g.cache {
		if now.After(entry.expires) {
			delete(g.cache, key)
		}
	}
	g.cache[req.URL.String()] = cachedResponse{
		status:  resp.StatusCode,
		header:  resp.Header.Clone(),
		body:    body,
		expires: now.Add(g.decl.cacheTTL),
	}
	entries := len(g.cache)
	g.mu.Unlock()
	cacheEntriesGauge.WithLabelValues(g.decl.ProviderName()).Set(float64(entries))

	return newResponse(req, resp.StatusCode, resp.Header, body), nil
}

func headerInt(h http.Header, key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	v, err := strconv.Atoi(h.Get(key))
	if err != nil {
		return 0, false
	}
	return v, true
}

func newResponse(req *http.Request, status int, header http.Header, body []byte) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:        header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

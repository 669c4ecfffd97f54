package middleware

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/plotinfo/internal/config"
	"github.com/turtacn/plotinfo/pkg/errors"
)

// plotAPIPrefix is the only surface that is rate limited. Health checks and the
// metrics endpoint are always served.
const plotAPIPrefix = "/api/v1/plots"

// EndpointClass groups plot API routes drawing from one request budget.
type EndpointClass string

const (
	// ClassLookup covers plot lookups, query relays and extract reads.
	ClassLookup EndpointClass = "lookup"
	// ClassDownload covers PDF downloads, which fetch and store a document.
	ClassDownload EndpointClass = "download"
)

// Classify returns the budget r draws from. ok is false for requests
// outside the plot API.
func Classify(r *http.Request) (class EndpointClass, ok bool) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	if path != plotAPIPrefix && !strings.HasPrefix(path, plotAPIPrefix+"/") {
		return "", false
	}
	if r.Method == http.MethodPost && strings.HasSuffix(path, "/pdf") {
		return ClassDownload, true
	}
	return ClassLookup, true
}

// limitResult is the outcome of one admission check.
type limitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// windowStore counts requests per key in a sliding window.
type windowStore struct {
	mu     sync.Mutex
	window time.Duration
	hits   map[string][]time.Time
	now    func() time.Time
}

func newWindowStore(window time.Duration) *windowStore {
	return &windowStore{window: window, hits: make(map[string][]time.Time), now: time.Now}
}

// prune drops hits older than the window. Must be called with s.mu held.
func (s *windowStore) prune(key string, now time.Time) []time.Time {
	hits := s.hits[key]
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	hits = hits[i:]
	if len(hits) == 0 {
		delete(s.hits, key)
		return nil
	}
	s.hits[key] = hits
	return hits
}

func (s *windowStore) allow(key string, limit int) limitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	hits := s.prune(key, now)
	res := limitResult{Limit: limit, ResetAt: now.Add(s.window)}
	if len(hits) > 0 {
		res.ResetAt = hits[0].Add(s.window)
	}
	if len(hits) >= limit {
		return res
	}
	hits = append(hits, now)
	s.hits[key] = hits
	res.Allowed = true
	res.Remaining = limit - len(hits)
	res.ResetAt = hits[0].Add(s.window)
	return res
}

// sweep forgets keys without hits in the window.
func (s *windowStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key := range s.hits {
		s.prune(key, now)
	}
}

func (s *windowStore) keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hits)
}

// clientAddress is the host part of RemoteAddr. The router's RealIP
// middleware has already replaced it with the forwarded client address.
func clientAddress(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimitMiddleware limits plot API requests per client address and
// endpoint class.
type RateLimitMiddleware struct {
	store  *windowStore
	limits map[EndpointClass]int
	stop   chan struct{}
	once   sync.Once
}

// NewRateLimitMiddleware creates the middleware and starts the sweeper that
// forgets idle clients. Call Stop to end it.
func NewRateLimitMiddleware(cfg config.RateLimitConfig) *RateLimitMiddleware {
	m := &RateLimitMiddleware{
		store: newWindowStore(cfg.Window),
		limits: map[EndpointClass]int{
			ClassLookup:   cfg.Lookups,
			ClassDownload: cfg.Downloads,
		},
		stop: make(chan struct{}),
	}
	go m.sweepLoop(cfg.Window)
	return m
}

func (m *RateLimitMiddleware) sweepLoop(every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.store.sweep()
		case <-m.stop:
			return
		}
	}
}

// Stop ends the sweeper. It is safe to call more than once.
func (m *RateLimitMiddleware) Stop() {
	m.once.Do(func() { close(m.stop) })
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class, ok := Classify(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		res := m.store.allow(string(class)+":"+clientAddress(r), m.limits[class])

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		if !res.Allowed {
			m.writeExceeded(w, class, res)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitExceededResponse follows the API error body with the wait added.
type limitExceededResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail"`
	RetryAfter int    `json:"retry_after"`
}

func (m *RateLimitMiddleware) writeExceeded(w http.ResponseWriter, class EndpointClass, res limitResult) {
	retry := int(math.Ceil(res.ResetAt.Sub(m.store.now()).Seconds()))
	if retry < 1 {
		retry = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(errors.HTTPStatusForCode(errors.ErrCodeTooManyRequests))
	_ = json.NewEncoder(w).Encode(limitExceededResponse{
		Code:       errors.ErrCodeTooManyRequests.String(),
		Message:    errors.DefaultMessageForCode(errors.ErrCodeTooManyRequests),
		Detail:     fmt.Sprintf("%s limit of %d per %s reached", class, res.Limit, m.store.window),
		RetryAfter: retry,
	})
}

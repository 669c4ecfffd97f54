package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/turtacn/plotinfo/internal/config"
)

// The plot API is read-only apart from the PDF download POST.
var (
	corsMethods = []string{http.MethodGet, http.MethodPost}
	corsHeaders = strings.Join([]string{"Accept", "Accept-Language", "Content-Type", "X-Request-ID"}, ", ")
	// Clients read the PDF filename and the rate limit state.
	corsExposed = strings.Join([]string{
		"Content-Disposition", "X-Request-ID", "Retry-After",
		"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
	}, ", ")
)

// originSet matches request origins against the configured list.
type originSet struct {
	any      bool
	exact    map[string]struct{}
	suffixes []string
}

func newOriginSet(origins []string) originSet {
	s := originSet{exact: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.ToLower(strings.TrimSpace(o))
		switch {
		case o == "":
		case o == "*":
			s.any = true
		case strings.HasPrefix(o, "*."):
			s.suffixes = append(s.suffixes, o[1:])
		default:
			s.exact[strings.TrimSuffix(o, "/")] = struct{}{}
		}
	}
	return s
}

func (s originSet) allows(origin string) bool {
	if s.any {
		return true
	}
	origin = strings.ToLower(origin)
	if _, ok := s.exact[origin]; ok {
		return true
	}
	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	for _, suffix := range s.suffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

func corsMethodAllowed(method string) bool {
	for _, m := range corsMethods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// CORSMiddleware lets browser map clients on the configured origins call the
// plot API. Requests are anonymous, so credentials are never allowed.
type CORSMiddleware struct {
	origins originSet
	maxAge  string
}

// NewCORSMiddleware builds the middleware from the server's CORS settings.
// An empty origin list disables cross-origin access.
func NewCORSMiddleware(cfg config.CORSConfig) *CORSMiddleware {
	m := &CORSMiddleware{origins: newOriginSet(cfg.AllowedOrigins)}
	if secs := int(cfg.MaxAge.Seconds()); secs > 0 {
		m.maxAge = strconv.Itoa(secs)
	}
	return m
}

// Handler answers preflights itself and decorates every other response.
// Requests from unknown origins pass through undecorated; the browser
// blocks them.
func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Add("Vary", "Origin")
		if !m.origins.allows(origin) {
			next.ServeHTTP(w, r)
			return
		}

		if m.origins.any {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}

		requested := r.Header.Get("Access-Control-Request-Method")
		if r.Method == http.MethodOptions && requested != "" {
			w.Header().Add("Vary", "Access-Control-Request-Method")
			if corsMethodAllowed(requested) {
				w.Header().Set("Access-Control-Allow-Methods", strings.Join(corsMethods, ", "))
				w.Header().Set("Access-Control-Allow-Headers", corsHeaders)
				if m.maxAge != "" {
					w.Header().Set("Access-Control-Max-Age", m.maxAge)
				}
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Access-Control-Expose-Headers", corsExposed)
		next.ServeHTTP(w, r)
	})
}

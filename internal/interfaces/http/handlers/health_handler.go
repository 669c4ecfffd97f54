package handlers

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	statusReady    = "ready"
	statusDegraded = "degraded"
	statusNotReady = "not_ready"

	dependencyUp   = "up"
	dependencyDown = "down"
)

const dependencyCheckTimeout = 3 * time.Second

// Dependency is a backend the plot API talks to. A failing required
// dependency takes the instance out of rotation; lookups keep working
// without an optional one, so it only degrades the report.
type Dependency struct {
	Name     string
	Required bool
	Check    func(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness endpoints.
type HealthHandler struct {
	deps    []Dependency
	version string
	startAt time.Time
}

// NewHealthHandler creates a HealthHandler checking deps.
func NewHealthHandler(version string, deps ...Dependency) *HealthHandler {
	return &HealthHandler{deps: deps, version: version, startAt: time.Now()}
}

// DependencyStatus is the outcome of one dependency check.
type DependencyStatus struct {
	Status   string `json:"status"`
	Required bool   `json:"required"`
	Latency  string `json:"latency"`
	Error    string `json:"error,omitempty"`
}

// HealthReport is the body of every health endpoint.
type HealthReport struct {
	Status       string                      `json:"status"`
	Version      string                      `json:"version,omitempty"`
	Uptime       string                      `json:"uptime,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

func (h *HealthHandler) uptime() string {
	return time.Since(h.startAt).Truncate(time.Second).String()
}

// Liveness handles GET /healthz without touching any dependency.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthReport{Status: "alive", Version: h.version, Uptime: h.uptime()})
}

// Readiness handles GET /readyz.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	report := h.check(r.Context())
	writeJSON(w, reportStatusCode(report), report)
}

// Detailed handles GET /healthz/detail. It reports like Readiness and adds
// the build version and uptime.
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	report := h.check(r.Context())
	report.Version = h.version
	report.Uptime = h.uptime()
	writeJSON(w, reportStatusCode(report), report)
}

func reportStatusCode(report HealthReport) int {
	if report.Status == statusNotReady {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// check runs every dependency check concurrently under one deadline.
func (h *HealthHandler) check(ctx context.Context) HealthReport {
	report := HealthReport{Status: statusReady}
	if len(h.deps) == 0 {
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, dependencyCheckTimeout)
	defer cancel()

	results := make([]DependencyStatus, len(h.deps))
	var g errgroup.Group
	for i, dep := range h.deps {
		i, dep := i, dep
		g.Go(func() error {
			start := time.Now()
			err := dep.Check(ctx)
			results[i] = DependencyStatus{
				Status:   dependencyUp,
				Required: dep.Required,
				Latency:  time.Since(start).Truncate(time.Microsecond).String(),
			}
			if err != nil {
				results[i].Status = dependencyDown
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Dependencies = make(map[string]DependencyStatus, len(h.deps))
	for i, dep := range h.deps {
		res := results[i]
		report.Dependencies[dep.Name] = res
		if res.Status == dependencyUp {
			continue
		}
		if res.Required {
			report.Status = statusNotReady
		} else if report.Status == statusReady {
			report.Status = statusDegraded
		}
	}
	return report
}

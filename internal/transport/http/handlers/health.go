package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadinessCheck probes one dependency. A nil return means ready.
type ReadinessCheck func(ctx context.Context) error

type readinessProbe struct {
	name  string
	check ReadinessCheck
}

// HealthHandler exposes liveness and readiness information.
type HealthHandler struct {
	startedAt    time.Time
	probes       []readinessProbe
	probeTimeout time.Duration
}

// HealthOption customizes the health handler.
type HealthOption func(*HealthHandler)

// WithReadinessCheck registers a named dependency probe for the readiness
// endpoint.
func WithReadinessCheck(name string, check ReadinessCheck) HealthOption {
	return func(h *HealthHandler) {
		if check != nil {
			h.probes = append(h.probes, readinessProbe{name: name, check: check})
		}
	}
}

// NewHealthHandler builds a new health handler instance.
func NewHealthHandler(opts ...HealthOption) *HealthHandler {
	h := &HealthHandler{
		startedAt:    time.Now().UTC(),
		probeTimeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Status handles GET /healthz requests.
func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		StartedAt: h.startedAt,
		Timestamp: time.Now().UTC(),
	})
}

// Readiness handles GET /readyz requests. Every registered probe runs; one
// failure degrades the whole response to 503 with per-check detail.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := make(map[string]string, len(h.probes))
	ready := true

	for _, probe := range h.probes {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.probeTimeout)
		err := probe.check(ctx)
		cancel()

		if err != nil {
			ready = false
			checks[probe.name] = err.Error()
			continue
		}
		checks[probe.name] = "ok"
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}

	c.JSON(status, ReadyResponse{
		Status:    state,
		Checks:    checks,
		Timestamp: time.Now().UTC(),
	})
}

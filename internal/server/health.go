package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	probeOK           = "ok"
	probeNotReady     = "not ready"
	probeShuttingDown = "shutting down"
)

// HealthChecker serves the Kubernetes liveness and readiness probes for
// the HTTP transport.
type HealthChecker struct {
	ready atomic.Bool

	sc      *ServerContext
	started time.Time
}

// NewHealthChecker creates a checker bound to the given server context.
// The server reports ready until SetReady(false) is called.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		sc:      sc,
		started: time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady flips the readiness state, typically around startup and
// graceful shutdown.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the server accepts traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) shuttingDown() bool {
	return h.sc != nil && h.sc.IsShutdown()
}

// probeResponse is the JSON body of every probe endpoint.
type probeResponse struct {
	Status     string            `json:"status"`
	Checks     map[string]string `json:"checks,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
	Enrichment string            `json:"enrichment,omitempty"`
}

func writeProbe(w http.ResponseWriter, status int, resp probeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// LivenessHandler answers /healthz. It only confirms the process is
// serving requests; restart decisions hang off this probe.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeProbe(w, http.StatusOK, probeResponse{Status: probeOK})
	})
}

// ReadinessHandler answers /readyz. It fails while the server is
// starting up or draining so the load balancer stops routing to it.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks := map[string]string{
			"ready":    probeOK,
			"shutdown": probeOK,
		}
		ok := true

		if !h.ready.Load() {
			checks["ready"] = probeNotReady
			ok = false
		}
		if h.shuttingDown() {
			checks["shutdown"] = probeShuttingDown
			ok = false
		}

		resp := probeResponse{Status: probeOK, Checks: checks}
		status := http.StatusOK
		if !ok {
			resp.Status = probeNotReady
			status = http.StatusServiceUnavailable
		}
		writeProbe(w, status, resp)
	})
}

// DetailedHealthHandler answers /healthz/detailed with uptime and the
// enrichment mode, for operators rather than probes.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := probeResponse{
			Status:     probeOK,
			Uptime:     time.Since(h.started).Truncate(time.Second).String(),
			Enrichment: "fallback",
		}
		if h.sc != nil && h.sc.Enricher() != nil {
			resp.Enrichment = "ai"
		}

		status := http.StatusOK
		switch {
		case !h.ready.Load():
			resp.Status = probeNotReady
			status = http.StatusServiceUnavailable
		case h.shuttingDown():
			resp.Status = probeShuttingDown
			status = http.StatusServiceUnavailable
		}
		writeProbe(w, status, resp)
	})
}

// RegisterHealthEndpoints mounts the probe handlers on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

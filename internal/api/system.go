package api

import (
	"net/http"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/bridges/lutron"
)

// handleHealth returns 200 while the hub is connected and every registered
// dependency is healthy, and 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.gateway.HealthCheck(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	checks := make(map[string]string, len(s.checks))
	for name, c := range s.checks {
		if err := c.HealthCheck(r.Context()); err != nil {
			s.logger.Warn("health check failed", "check", name, "error", err)
			checks[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"engine":  s.gateway.Health(),
		"checks":  checks,
		"clients": s.hub.ClientCount(),
	})
}

// statusResponse is the body of GET /status.
type statusResponse struct {
	State  lutron.ConnectionState `json:"state"`
	Report lutron.StatusReport    `json:"report"`
}

// handleStatus returns the connection state and last status report.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		State:  s.gateway.State(),
		Report: s.gateway.Status(),
	})
}

package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse is the body of the health endpoints. DB is only set by
// /api/health.
type HealthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db,omitempty"`
}

// GetHealth handles GET /healthz.
// It returns HTTP 200 with {"status":"ok"} when the server is running.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// GetAPIHealth handles GET /api/health. It pings the trip log database and
// reports "up" or "down"; the process itself is healthy either way.
func (s *Server) GetAPIHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", DB: "down"}
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err == nil {
			resp.DB = "up"
		} else {
			s.logger.WarnContext(r.Context(), "database ping failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

package api

import (
	"context"
	"net/http"
	"time"
)

const healthPingTimeout = 2 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	type healthResponse struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}

	if s.db == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Database: "unknown"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn(r.Context(), "health check: database unreachable", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "error", Database: "down"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Database: "up"})
}

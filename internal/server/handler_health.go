package server

import (
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Uptime     string `json:"uptime"`
	Runtime    string `json:"runtime"`
	Policy     string `json:"failure_policy"`
	StageOut   string `json:"stage_out"`
	ActiveRuns int64  `json:"active_runs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, healthResponse{
		Status:     "healthy",
		Version:    "0.1.0",
		GoVersion:  runtime.Version(),
		Uptime:     time.Since(s.startTime).Round(time.Second).String(),
		Runtime:    string(s.config.Runtime),
		Policy:     string(s.config.FailurePolicy),
		StageOut:   s.config.StageOut,
		ActiveRuns: s.active.Load(),
	})
}

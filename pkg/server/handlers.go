package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"conversa-hq/orbit/pkg/engine"
)

// maxRequestBody caps inbound chat request bodies at 256KB. Turns are short
// messages plus a handful of image URLs; anything larger is malformed.
const maxRequestBody = 256 << 10

// handleChat runs one chat turn through the engine.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := s.engine.Handle(r.Context(), &req)
	if err != nil {
		if errors.Is(err, engine.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		s.logger.Error("turn handling failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// handleHealthz is the liveness probe.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus returns the backend health snapshot and the monitor report.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"backends": s.engine.BackendStats(),
		"monitor":  s.engine.Report(),
	})
}

// handleResetBreaker forces a backend's breaker closed.
func (s *Server) handleResetBreaker(w http.ResponseWriter, r *http.Request) {
	backend := r.PathValue("backend")
	if backend == "" {
		writeError(w, http.StatusBadRequest, "backend is required")
		return
	}
	if _, ok := s.cfg.Backends[backend]; !ok {
		writeError(w, http.StatusNotFound, "unknown backend")
		return
	}

	s.engine.ResetBreaker(backend)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "backend": backend})
}

// withLogging logs each request with its status and duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready when the REST backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	if err := s.backend.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("backend unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	cacheStats := s.dashboard.CacheStats()
	data := map[string]any{
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"requests":       s.tracer.Metrics(),
		"rate_limit":     s.limiter.Metrics(),
		"security":       s.detector.Metrics(),
		"snapshot_cache": map[string]any{
			"hits":      cacheStats.Hits,
			"misses":    cacheStats.Misses,
			"evictions": cacheStats.Evictions,
			"size":      cacheStats.Size,
		},
		"websocket": map[string]any{
			"clients": s.hub.ClientCount(),
			"dropped": s.hub.Dropped(),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

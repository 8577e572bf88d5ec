// Package trace assigns request ids and records request timing.
package trace

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "granabox/internal/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// Metrics are the request counters exposed on /metrics.
type Metrics struct {
	TotalRequests     int64 `json:"total_requests"`
	InFlight          int64 `json:"in_flight"`
	ClientErrors      int64 `json:"client_errors"`
	ServerErrors      int64 `json:"server_errors"`
	AverageDurationUs int64 `json:"average_duration_us"`
}

// Middleware tags each request with an id, scopes a logger to it and logs
// its completion.
type Middleware struct {
	logger    *applog.Logger
	extractIP func(*http.Request) string

	total        atomic.Int64
	inFlight     atomic.Int64
	clientErrors atomic.Int64
	serverErrors atomic.Int64
	durationUs   atomic.Int64
}

func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = applog.Wrap(nil, applog.ComponentTrace)
	}
	return &Middleware{logger: logger, extractIP: extractIP}
}

// Handler wraps next.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.total.Add(1)
		m.inFlight.Add(1)
		defer m.inFlight.Add(-1)

		requestID := incomingID(r.Header.Get(HeaderRequestID))
		if requestID == "" {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		ctx := WithRequestID(r.Context(), requestID)
		ctx = applog.NewContext(ctx, m.logger.With(applog.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		rec := NewStatusRecorder(w)
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		m.durationUs.Add(elapsed.Microseconds())
		switch {
		case rec.Status() >= 500:
			m.serverErrors.Add(1)
		case rec.Status() >= 400:
			m.clientErrors.Add(1)
		}
		applog.LogHTTPEnd(ctx, r, rec.Status(), elapsed.Milliseconds(), clientIP)
	})
}

// incomingID accepts a caller supplied id when it looks sane.
func incomingID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > 64 {
		return ""
	}
	for _, c := range id {
		if !(c == '-' || c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return ""
		}
	}
	return id
}

// GenerateRequestID returns a new random request id.
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the request id, or "" outside a traced request.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// FromRequest is RequestID for callers that hold the request.
func FromRequest(r *http.Request) string {
	return RequestID(r.Context())
}

func (m *Middleware) Metrics() Metrics {
	total := m.total.Load()
	avg := int64(0)
	if total > 0 {
		avg = m.durationUs.Load() / total
	}
	return Metrics{
		TotalRequests:     total,
		InFlight:          m.inFlight.Load(),
		ClientErrors:      m.clientErrors.Load(),
		ServerErrors:      m.serverErrors.Load(),
		AverageDurationUs: avg,
	}
}

// StatusRecorder captures the status code written by a handler.
type StatusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (s *StatusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *StatusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Status returns the recorded status, 200 when none was written.
func (s *StatusRecorder) Status() int { return s.status }

// Unwrap lets http.ResponseController reach the underlying writer, which the
// websocket upgrade needs.
func (s *StatusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// Hijack hands the connection over, as websocket upgrades require.
func (s *StatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	s.wroteHeader = true
	return h.Hijack()
}

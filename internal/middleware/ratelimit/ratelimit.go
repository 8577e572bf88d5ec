// Package ratelimit limits requests per client over a one minute window.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

const window = time.Minute

// Config holds rate limiter configuration.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// Methods are the limited methods; empty means every method.
	Methods []string
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		Methods:           []string{http.MethodPost, http.MethodPut, http.MethodDelete},
	}
}

// Metrics for /metrics.
type Metrics struct {
	Rejected    int64 `json:"rejected"`
	ClientCount int64 `json:"client_count"`
}

type clientWindow struct {
	start    time.Time
	requests int
}

// Limiter counts requests per client in fixed windows.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	limit   int
	methods map[string]bool
	now     func() time.Time

	rejected atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts a limiter. Call Stop to end its cleanup loop.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	l := &Limiter{
		clients: make(map[string]*clientWindow),
		limit:   cfg.RequestsPerMinute,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	if len(cfg.Methods) > 0 {
		l.methods = make(map[string]bool, len(cfg.Methods))
		for _, m := range cfg.Methods {
			l.methods[m] = true
		}
	}
	go l.cleanupLoop(cfg.CleanupInterval)
	return l
}

// Allow records a request from client and reports whether it is within the limit.
func (l *Limiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cw, ok := l.clients[client]
	if !ok || now.Sub(cw.start) >= window {
		l.clients[client] = &clientWindow{start: now, requests: 1}
		return true
	}
	cw.requests++
	if cw.requests > l.limit {
		l.rejected.Add(1)
		return false
	}
	return true
}

// RetryAfter is how long client has to wait for its window to reset.
func (l *Limiter) RetryAfter(client string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	cw, ok := l.clients[client]
	if !ok {
		return 0
	}
	left := window - l.now().Sub(cw.start)
	if left < 0 {
		return 0
	}
	return left
}

func (l *Limiter) limits(method string) bool {
	return l.methods == nil || l.methods[method]
}

func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-l.stop:
			return
		}
	}
}

// Cleanup forgets clients whose window ended and returns how many were removed.
func (l *Limiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	removed := 0
	for client, cw := range l.clients {
		if now.Sub(cw.start) >= window {
			delete(l.clients, client)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) Metrics() Metrics {
	l.mu.Lock()
	clients := int64(len(l.clients))
	l.mu.Unlock()
	return Metrics{Rejected: l.rejected.Load(), ClientCount: clients}
}

// Middleware limits the configured methods per client. onLimit writes the
// rejection; a plain 429 is sent when it is nil.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.limits(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			client := extractIP(r)
			if !l.Allow(client) {
				secs := int(l.RetryAfter(client).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, limit int, methods ...string) (*Limiter, *time.Time) {
	t.Helper()
	l := NewLimiter(Config{RequestsPerMinute: limit, Methods: methods})
	t.Cleanup(l.Stop)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_Allow(t *testing.T) {
	l, now := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("fourth request should be rejected")
	}
	if !l.Allow("5.6.7.8") {
		t.Fatal("other clients have their own window")
	}

	*now = now.Add(time.Minute)
	if !l.Allow("1.2.3.4") {
		t.Fatal("window should reset after a minute")
	}
	if got := l.Metrics().Rejected; got != 1 {
		t.Errorf("rejected = %d, want 1", got)
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	l, now := newTestLimiter(t, 10)
	l.Allow("a")
	*now = now.Add(30 * time.Second)
	l.Allow("b")
	*now = now.Add(40 * time.Second)

	if removed := l.Cleanup(); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if got := l.Metrics().ClientCount; got != 1 {
		t.Errorf("clients = %d, want 1", got)
	}
}

func TestLimiter_Middleware(t *testing.T) {
	l, _ := newTestLimiter(t, 1, http.MethodPost)
	h := l.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodPost, http.StatusNoContent},
		{http.MethodPost, http.StatusTooManyRequests},
		{http.MethodGet, http.StatusNoContent},
		{http.MethodGet, http.StatusNoContent},
	}
	for i, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/", nil))
		if rec.Code != tt.want {
			t.Errorf("request %d (%s): status %d, want %d", i, tt.method, rec.Code, tt.want)
		}
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "61" {
			t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
		}
	}
}

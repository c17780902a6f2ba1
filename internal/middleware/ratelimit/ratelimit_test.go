package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeClock lets tests move the limiter's notion of now.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(t *testing.T, perWindow int) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(Config{RequestsPerMinute: perWindow})
	l.now = clock.now
	t.Cleanup(l.Stop)
	return l, clock
}

func TestAllowPerClient(t *testing.T) {
	l, _ := newTestLimiter(t, 2)

	for i, want := range []bool{true, true, false} {
		if got := l.Allow("10.0.0.1"); got != want {
			t.Errorf("request %d: Allow = %v, want %v", i+1, got, want)
		}
	}
	if !l.Allow("10.0.0.2") {
		t.Errorf("second client throttled")
	}

	m := l.GetMetrics()
	if m.TotalHits != 1 || m.ClientCount != 2 {
		t.Errorf("metrics = %+v, want 1 hit and 2 clients", m)
	}
}

func TestWindowIsNotExtendedByRejectedRequests(t *testing.T) {
	l, clock := newTestLimiter(t, 1)

	if !l.Allow("ip") {
		t.Fatal("first request rejected")
	}
	for range 5 {
		clock.advance(10 * time.Second)
		l.Allow("ip")
	}
	// 50s elapsed; the window opened at 0s and closes at 60s.
	clock.advance(10 * time.Second)
	if !l.Allow("ip") {
		t.Error("request after the window closed was rejected")
	}
}

func TestMiddlewareRetryAfter(t *testing.T) {
	l, clock := newTestLimiter(t, 1)

	h := l.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	serve := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		return rec
	}

	if rec := serve(); rec.Code != http.StatusNoContent {
		t.Fatalf("first request: code = %d", rec.Code)
	}
	clock.advance(45 * time.Second)
	rec := serve()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: code = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "15" {
		t.Errorf("Retry-After = %q, want 15", got)
	}
}

func TestForgetIdle(t *testing.T) {
	l, clock := newTestLimiter(t, 5)
	l.Allow("a")
	clock.advance(90 * time.Second)
	l.Allow("b")
	clock.advance(40 * time.Second)

	l.forgetIdle()
	if got := l.GetMetrics().ClientCount; got != 1 {
		t.Errorf("ClientCount = %d, want 1", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	l.Stop()
	l.Stop()
}

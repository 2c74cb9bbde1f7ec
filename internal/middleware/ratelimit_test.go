package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func (f *fakeLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = make(map[string]int64)
	}
	f.counts[key]++
	return f.counts[key], nil
}

func runLimited(t *testing.T, l Limiter, max int64) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RateLimitMiddleware(l, max, time.Minute)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec
}

func TestRateLimit_UnderLimit(t *testing.T) {
	l := &fakeLimiter{}
	for i := 0; i < 3; i++ {
		if rec := runLimited(t, l, 3); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestRateLimit_OverLimit(t *testing.T) {
	l := &fakeLimiter{}
	for i := 0; i < 3; i++ {
		runLimited(t, l, 3)
	}

	rec := runLimited(t, l, 3)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"too many requests"}` {
		t.Errorf("body = %s, want too many requests", body)
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	l := &fakeLimiter{err: errors.New("connection refused")}

	// The limiter being down must not take the login endpoint down with it.
	if rec := runLimited(t, l, 3); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when limiter is unavailable", rec.Code)
	}
}

package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

// clocked pins the bucket to a controllable clock starting with a full bucket.
func clocked(qps int, start time.Time) (*TokenBucket, *time.Time) {
	now := start
	tb := NewTokenBucket(qps)
	tb.now = func() time.Time { return now }
	return tb, &now
}

func TestTokenBucketRefillsContinuously(t *testing.T) {
	tb, now := clocked(2, time.Unix(1000, 0))

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	// half a second at 2 qps buys exactly one token
	*now = now.Add(500 * time.Millisecond)
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	// a long idle period never fills beyond the burst
	*now = now.Add(time.Hour)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())
}

func TestTokenBucketNoBurstAcrossSecondBoundary(t *testing.T) {
	tb, now := clocked(200, time.Unix(1000, 999_000_000))
	passed := 0
	for i := 0; i < 200; i++ {
		if tb.Allow() {
			passed++
		}
	}
	assert.Equal(t, 200, passed)

	*now = time.Unix(1001, 0)
	for i := 0; i < 200; i++ {
		if tb.Allow() {
			passed++
		}
	}
	assert.Equal(t, 200, passed)
}

func TestRateLimitMiddleware(t *testing.T) {
	tb, _ := clocked(1, time.Unix(5, 0))
	h := RateLimit(tb)(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	assert.NotNil(t, RateLimit(nil)(ok))
}

func TestAdminGuard(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	call := func(a *Admin, remote, token string) int {
		r := httptest.NewRequest("POST", "/api/reset", nil)
		r.RemoteAddr = remote
		if token != "" {
			r.Header.Set(AdminHeader, token)
		}
		rec := httptest.NewRecorder()
		a.Wrap(ok).ServeHTTP(rec, r)
		return rec.Code
	}

	open := NewAdmin("s3cret", nil, l)
	assert.Equal(t, http.StatusNoContent, call(open, "203.0.113.5:1234", "s3cret"))
	assert.Equal(t, http.StatusForbidden, call(open, "203.0.113.5:1234", "wrong"))
	assert.Equal(t, http.StatusForbidden, call(open, "203.0.113.5:1234", ""))

	locked := NewAdmin("s3cret", []string{"10.0.0.0/8", "::1", "bogus"}, l)
	assert.Equal(t, http.StatusNoContent, call(locked, "10.2.3.4:80", "s3cret"))
	assert.Equal(t, http.StatusNoContent, call(locked, "[::1]:80", "s3cret"))
	assert.Equal(t, http.StatusForbidden, call(locked, "192.168.1.1:80", "s3cret"))

	noToken := NewAdmin("", nil, l)
	assert.Equal(t, http.StatusForbidden, call(noToken, "10.2.3.4:80", ""))
}

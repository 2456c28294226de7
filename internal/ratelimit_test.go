package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientLimitersAllow(t *testing.T) {
	limiters := &clientLimiters{
		clients: make(map[string]*clientLimiter),
		limit:   1,
		burst:   1,
	}
	now := time.Now()

	if !limiters.allow("client", now) {
		t.Fatalf("expected first request to be allowed")
	}
	if limiters.allow("client", now) {
		t.Fatalf("expected second request to be rate limited")
	}
	if !limiters.allow("other", now) {
		t.Fatalf("expected other client to have its own bucket")
	}
	if !limiters.allow("client", now.Add(1100*time.Millisecond)) {
		t.Fatalf("expected request after refill to be allowed")
	}
}

func TestRateLimitHandlerUsesForwardedFor(t *testing.T) {
	handler := NewRateLimitHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), 1, 1, time.Minute)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/github", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1, 192.168.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes %v", codes)
	}
}

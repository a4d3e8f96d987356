package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimit_AllowsNormalTraffic(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(10, 5)) // 10 req/s, burst of 5
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	// First 5 requests should succeed (within burst)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}

func TestRateLimit_RejectsExcessiveTraffic(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(1, 2)) // 1 req/s, burst of 2
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	// Exhaust the burst
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}

	// Next request should be rate limited
	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", w.Code)
	}
}

func TestRateLimit_PerClientIsolation(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(1, 1)) // Very tight: 1 req/s, burst of 1
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	send := func(remoteAddr string) int {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("10.0.0.1:1234"); code != http.StatusOK {
		t.Errorf("client A first request: expected 200, got %d", code)
	}
	if code := send("10.0.0.1:5678"); code != http.StatusTooManyRequests {
		t.Errorf("client A second request: expected 429, got %d", code)
	}
	// Client B should still work (separate bucket)
	if code := send("10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("client B first request: expected 200, got %d", code)
	}
}

func TestRateLimit_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	router := gin.New()
	if err := router.SetTrustedProxies(nil); err != nil {
		t.Fatalf("setting trusted proxies: %v", err)
	}
	router.Use(RateLimit(1, 1))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	send := func(forwardedFor string) int {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("X-Forwarded-For", forwardedFor)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("203.0.113.1"); code != http.StatusOK {
		t.Errorf("first request: expected 200, got %d", code)
	}
	if code := send("203.0.113.2"); code != http.StatusTooManyRequests {
		t.Errorf("forged X-Forwarded-For: expected 429, got %d", code)
	}
}

func TestClientLimiters_EvictsIdleClients(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiters := newClientLimiters(1, 1)
	limiters.now = func() time.Time { return clock }

	for _, client := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		if !limiters.allow(client) {
			t.Errorf("expected first request from %s to pass", client)
		}
	}
	if n := limiters.size(); n != 3 {
		t.Fatalf("expected 3 buckets, got %d", n)
	}

	clock = clock.Add(limiters.idleTTL)
	if !limiters.allow("10.0.0.4") {
		t.Error("expected first request from new client to pass")
	}
	if n := limiters.size(); n != 1 {
		t.Errorf("expected idle buckets to be evicted, got %d buckets", n)
	}
}

func TestClientLimiters_KeepsActiveClients(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiters := newClientLimiters(1, 1)
	limiters.now = func() time.Time { return clock }

	limiters.allow("10.0.0.1")
	clock = clock.Add(limiters.idleTTL / 2)
	limiters.allow("10.0.0.2")
	clock = clock.Add(limiters.idleTTL / 2)

	// 10.0.0.1 is now idle for a full TTL, 10.0.0.2 only for half.
	limiters.allow("10.0.0.3")
	if n := limiters.size(); n != 2 {
		t.Errorf("expected 2 buckets after sweep, got %d", n)
	}
	limiters.mu.Lock()
	_, kept := limiters.entries["10.0.0.2"]
	_, stale := limiters.entries["10.0.0.1"]
	limiters.mu.Unlock()
	if !kept || stale {
		t.Errorf("expected only the idle client to be swept, active kept=%t idle kept=%t", kept, stale)
	}
}

func TestClientLimiters_IdleTTLCoversRefill(t *testing.T) {
	limiters := newClientLimiters(0.01, 20) // full refill takes 2000s
	if want := 2000 * time.Second; limiters.idleTTL < want {
		t.Errorf("expected idle TTL of at least %s, got %s", want, limiters.idleTTL)
	}
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(0, 0))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}

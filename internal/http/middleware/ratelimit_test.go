package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "203.0.113.9:12345"

	key := KeyByUserOrIP()
	if got := key(c); got != "ip:203.0.113.9" {
		t.Fatalf("anonymous key = %q", got)
	}
	c.Set(ctxKeyUserID, "u123")
	if got := key(c); got != "user:u123" {
		t.Fatalf("member key = %q", got)
	}
}

func TestRateLimiter_AllowAndSweep(t *testing.T) {
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 0, nil)
	rl.now = func() time.Time { return clock }

	if !rl.allow("a") || rl.allow("a") {
		t.Fatal("burst coerced to 1: first passes, second is limited")
	}
	clock = clock.Add(time.Second)
	if !rl.allow("a") {
		t.Fatal("token must refill after a second")
	}
	if !rl.allow("b") || rl.Len() != 2 {
		t.Fatalf("separate keys get separate buckets, len=%d", rl.Len())
	}

	clock = clock.Add(defaultIdleWindow)
	rl.allow("c")
	if rl.Len() != 1 {
		t.Fatalf("idle buckets must be swept, len=%d", rl.Len())
	}
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	cases := map[float64]string{10: "1", 1: "1", 0.5: "2", 0.001: "1000", 0: "1"}
	for rps, want := range cases {
		if got := NewRateLimiter(rps, 1, nil).retryAfter(); got != want {
			t.Fatalf("rps=%v: Retry-After = %q; want %q", rps, got, want)
		}
	}
}

func TestIsRateBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	if IsRateBypass(c) {
		t.Fatal("unset must read false")
	}
	c.Set(ctxKeyRateBypass, "yes")
	if IsRateBypass(c) {
		t.Fatal("non-bool must read false")
	}
	c.Set(ctxKeyRateBypass, true)
	if !IsRateBypass(c) {
		t.Fatal("want bypass")
	}
}

func TestRateLimiter_Handler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(0.5, 1, KeyByUserOrIP())
	before := testutil.ToFloat64(httpLimited.WithLabelValues("user"))

	r := gin.New()
	r.Use(RequestID(), Authenticate(nil))
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Replay") != "" {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	})
	r.Use(rl.Handler())
	r.POST("/rooms/:id/messages", func(c *gin.Context) { c.Status(http.StatusCreated) })

	send := func(uid string, replay bool) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/rooms/genel/messages", nil)
		req.Header.Set(HeaderUserID, uid)
		req.Header.Set(requestIDHeader, "rid-"+uid)
		if replay {
			req.Header.Set("X-Replay", "1")
		}
		r.ServeHTTP(w, req)
		return w
	}

	if send("alice", false).Code != http.StatusCreated || send("bob", false).Code != http.StatusCreated {
		t.Fatal("first send of each member must pass")
	}
	if w := send("alice", true); w.Code != http.StatusCreated {
		t.Fatalf("replay must not be charged, got %d", w.Code)
	}

	w := send("alice", false)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "2" {
		t.Fatalf("want 429 with Retry-After 2, got %d %q", w.Code, w.Header().Get("Retry-After"))
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["code"] != "rate_limited" || body["request_id"] != "rid-alice" {
		t.Fatalf("unexpected body: %v", body)
	}
	if got := testutil.ToFloat64(httpLimited.WithLabelValues("user")); got != before+1 {
		t.Fatalf("limited counter = %v; want %v", got, before+1)
	}
}

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/JonnyWalker81/trendy/engagement/internal/apierror"
	"github.com/JonnyWalker81/trendy/engagement/internal/logger"
	"github.com/JonnyWalker81/trendy/engagement/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLogger_AssignsAndEchoesRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewSlogLogger(logger.Config{Level: logger.LevelInfo, Format: "json", Output: &buf})

	r := gin.New()
	r.Use(Logger(log))
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = logger.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(RequestIDHeader)
	if generated == "" {
		t.Fatal("Expected a generated request id header")
	}
	if seen != generated {
		t.Errorf("Expected context request id %q, got %q", generated, seen)
	}
	if !strings.Contains(buf.String(), generated) {
		t.Errorf("Expected log line to carry request id, got %s", buf.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "client-id-1")
	w = serve(r, req)
	if got := w.Header().Get(RequestIDHeader); got != "client-id-1" {
		t.Errorf("Expected client request id to be kept, got %q", got)
	}

	forged := strings.Repeat("x", logger.MaxRequestIDLength+1)
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, forged)
	w = serve(r, req)
	if got := w.Header().Get(RequestIDHeader); got == forged || got == "" {
		t.Errorf("Expected an oversized request id to be replaced, got %q", got)
	}
	if strings.Contains(buf.String(), forged) {
		t.Error("Expected the oversized request id to stay out of the logs")
	}
}

func TestRequireUser(t *testing.T) {
	r := gin.New()
	r.Use(RequireUser())
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id")+"|"+logger.UserIDFromContext(c.Request.Context()))
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without user, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != apierror.ContentTypeProblemJSON {
		t.Errorf("Expected problem JSON, got %q", ct)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(UserIDHeader, "  user-7 ")
	w = serve(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Body.String() != "user-7|user-7" {
		t.Errorf("Expected user id in both contexts, got %q", w.Body.String())
	}
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{"allow all by default", nil, http.MethodGet, "https://a.test", http.StatusOK, "*"},
		{"explicit star", []string{"*"}, http.MethodGet, "https://a.test", http.StatusOK, "*"},
		{"exact match", []string{"https://app.example.com"}, http.MethodGet, "https://app.example.com", http.StatusOK, "https://app.example.com"},
		{"wildcard match", []string{"https://*.example.com"}, http.MethodGet, "https://preview.example.com", http.StatusOK, "https://preview.example.com"},
		{"disallowed simple request proceeds without header", []string{"https://app.example.com"}, http.MethodGet, "https://evil.test", http.StatusOK, ""},
		{"disallowed preflight", []string{"https://app.example.com"}, http.MethodOptions, "https://evil.test", http.StatusForbidden, ""},
		{"allowed preflight", []string{"https://app.example.com"}, http.MethodOptions, "https://app.example.com", http.StatusNoContent, "https://app.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(tt.allowed))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/x", nil)
			req.Header.Set("Origin", tt.origin)
			w := serve(r, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Expected allow-origin %q, got %q", tt.wantOrigin, got)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	for _, production := range []bool{false, true} {
		r := gin.New()
		r.Use(SecurityHeaders(production))
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
		if w.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Error("Expected nosniff header")
		}
		hsts := w.Header().Get("Strict-Transport-Security") != ""
		if hsts != production {
			t.Errorf("production=%v: unexpected HSTS presence %v", production, hsts)
		}
	}
}

func TestMetrics_RecordsRouteTemplate(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/v1/metrics/:section", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/metrics/streaks", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()

	if !strings.Contains(body, `route="/api/v1/metrics/:section"`) {
		t.Error("Expected route template label")
	}
	if !strings.Contains(body, `route="unmatched"`) {
		t.Error("Expected unmatched routes grouped")
	}
	if strings.Contains(body, "/nowhere") {
		t.Error("Expected raw paths to stay out of labels")
	}
	n, err := testutil.GatherAndCount(m.Registry(), "engagement_http_requests_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 request series, got %d", n)
	}
}

func setClock(rl *RateLimiter, now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.now = func() time.Time { return now }
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute, "test")
	defer limiter.Close()
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	setClock(limiter, start)

	r := gin.New()
	r.Use(RequireUser(), RateLimit(limiter))
	r.POST("/events", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	post := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/events", nil)
		req.Header.Set(UserIDHeader, user)
		return serve(r, req)
	}

	for i := 0; i < 2; i++ {
		if w := post("a"); w.Code != http.StatusAccepted {
			t.Fatalf("Request %d: expected 202, got %d", i, w.Code)
		}
	}

	w := post("a")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Expected Retry-After 60, got %q", got)
	}

	// other users have their own window
	if w := post("b"); w.Code != http.StatusAccepted {
		t.Errorf("Expected 202 for another user, got %d", w.Code)
	}

	setClock(limiter, start.Add(time.Minute))
	if w := post("a"); w.Code != http.StatusAccepted {
		t.Errorf("Expected 202 after the window reset, got %d", w.Code)
	}
}

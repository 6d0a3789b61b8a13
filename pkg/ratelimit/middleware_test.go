package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"busline/pkg/logger"

	"github.com/gin-gonic/gin"
)

func TestGetRateLimitType(t *testing.T) {
	cases := map[string]RateLimitType{
		"/health":                         RateLimitTypeHealth,
		"/api/v1/owner/reports/sales":     RateLimitTypeOwner,
		"/api/v1/reservations/:id/ticket": RateLimitTypeBookingCritical,
		"/api/v1/reservations/:id/accept": RateLimitTypeBookingCritical,
		"/api/v1/tickets/:id/cancel":      RateLimitTypeBookingCritical,
		"/api/v1/reservations/:id/reject": RateLimitTypeBooking,
		"/api/v1/tickets/:id":             RateLimitTypeBooking,
		"/api/v1/users/reservations":      RateLimitTypeBooking,
		"/api/v1/feed/riders/me":          RateLimitTypeUser,
		"/swagger/*any":                   RateLimitTypePublic,
		"/something/else":                 RateLimitTypeDefault,
	}
	for path, want := range cases {
		if got := getRateLimitType(path); got != want {
			t.Errorf("getRateLimitType(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	rl := NewRateLimiter(nil, &Config{Enabled: false, WindowDuration: time.Minute, BookingRequests: 5})

	res, err := rl.IsAllowed(context.Background(), "10.0.0.1", RateLimitTypeBooking)
	if err != nil {
		t.Fatalf("IsAllowed: %v", err)
	}
	if !res.Allowed || res.Limit != 5 || res.Remaining != 5 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestMiddlewareSetsHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(nil, &Config{Enabled: false, WindowDuration: time.Minute, HealthRequests: 300})
	r := gin.New()
	r.Use(Middleware(rl, logger.Discard()))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "300" {
		t.Fatalf("X-RateLimit-Limit = %q", got)
	}
}

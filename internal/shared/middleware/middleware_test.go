package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"busline/internal/shared/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	r := gin.New()
	r.Use(RequestID(), JWTAuthWithConfig(cfg))
	r.GET("/me", RequireRoles("RIDER"), func(c *gin.Context) {
		id, role, err := CurrentUser(c)
		if err != nil {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	userID := uuid.New()
	valid := jwt.MapClaims{
		"user_id": userID.String(),
		"role":    "RIDER",
		"type":    "access",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "missing token", want: http.StatusUnauthorized},
		{name: "bad scheme", header: "Token abc", want: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc", want: http.StatusUnauthorized},
		{name: "valid header", header: "Bearer " + signToken(t, valid), want: http.StatusOK},
		{name: "valid query", query: signToken(t, valid), want: http.StatusOK},
		{
			name:   "refresh token",
			header: "Bearer " + signToken(t, jwt.MapClaims{
				"user_id": userID.String(), "role": "RIDER", "type": "refresh",
			}),
			want: http.StatusUnauthorized,
		},
		{
			name:   "wrong role",
			header: "Bearer " + signToken(t, jwt.MapClaims{
				"user_id": userID.String(), "role": "OWNER", "type": "access",
			}),
			want: http.StatusForbidden,
		},
	}

	r := newEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
			if w.Header().Get(RequestIDHeader) == "" {
				t.Fatal("missing request id header")
			}
		})
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Body.String() != "abc-123" || w.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("request id not propagated: body=%q header=%q", w.Body.String(), w.Header().Get(RequestIDHeader))
	}
}

func TestIssueAccessToken(t *testing.T) {
	r := newEngine()
	userID := uuid.New()

	tests := []struct {
		name string
		role string
		ttl  time.Duration
		want int
	}{
		{name: "rider", role: "RIDER", ttl: time.Hour, want: http.StatusOK},
		{name: "wrong role", role: "OWNER", ttl: time.Hour, want: http.StatusForbidden},
		{name: "expired", role: "RIDER", ttl: -time.Minute, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := IssueAccessToken(testSecret, userID, tt.role, tt.ttl)
			if err != nil {
				t.Fatalf("IssueAccessToken: %v", err)
			}
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"busline/internal/shared/utils/response"
	"busline/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware applies the limit class of the matched route to each request
func Middleware(rateLimiter *RateLimiter, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.GetDefault()
	}
	return func(c *gin.Context) {
		clientIP := getClientIP(c)
		limitType := getRateLimitType(c.FullPath())

		result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, limitType)
		if err != nil {
			// A Redis outage must not take the booking API down with it.
			log.WithError(err).Warn("Rate limit check failed, allowing request")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetTime, 10))

		if !result.Allowed {
			log.LogRateLimitExceeded(c.Request.Context(), clientIP, c.FullPath())
			response.RespondJSON(c, "error", http.StatusTooManyRequests,
				"Rate limit exceeded", nil, map[string]interface{}{
					"limit":      result.Limit,
					"reset_time": result.ResetTime,
				})
			c.Abort()
			return
		}

		c.Next()
	}
}

func getRateLimitType(path string) RateLimitType {
	switch {
	case strings.HasPrefix(path, "/health"),
		strings.HasPrefix(path, "/ping"):
		return RateLimitTypeHealth

	case strings.Contains(path, "/owner/"):
		return RateLimitTypeOwner

	// Transitions that move seats or money
	case strings.HasSuffix(path, "/ticket"),
		strings.Contains(path, "/tickets/") && strings.HasSuffix(path, "/cancel"),
		strings.HasSuffix(path, "/accept"):
		return RateLimitTypeBookingCritical

	case strings.Contains(path, "/reservations"),
		strings.Contains(path, "/tickets"):
		return RateLimitTypeBooking

	case strings.Contains(path, "/users/"),
		strings.Contains(path, "/feed/"):
		return RateLimitTypeUser

	case strings.Contains(path, "/swagger"):
		return RateLimitTypePublic

	default:
		return RateLimitTypeDefault
	}
}

// getClientIP extracts the real client IP
func getClientIP(c *gin.Context) string {
	if xForwardedFor := c.GetHeader("X-Forwarded-For"); xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		if ip := strings.TrimSpace(ips[0]); net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xRealIP := c.GetHeader("X-Real-IP"); xRealIP != "" && net.ParseIP(xRealIP) != nil {
		return xRealIP
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return ip
}

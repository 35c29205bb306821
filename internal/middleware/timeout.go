package middleware

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medadvisor/advisor-api/internal/constants"
)

const maxRequestTimeout = 10 * time.Minute

// RequestTimeout bounds every request context. Callers may ask for a shorter or
// longer deadline with X-Request-Timeout ("30s" or plain seconds), capped at ten minutes.
func RequestTimeout(defaultTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		timeout := ParseTimeout(c.GetHeader(constants.HeaderRequestTimeout), defaultTimeout)

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ParseTimeout reads a header value, falling back to def when it is absent or invalid
func ParseTimeout(value string, def time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		secs, convErr := strconv.Atoi(value)
		if convErr != nil {
			return def
		}
		d = time.Duration(secs) * time.Second
	}

	if d <= 0 {
		return def
	}
	if d > maxRequestTimeout {
		return maxRequestTimeout
	}
	return d
}

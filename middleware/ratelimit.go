package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/opsdesk/opsdesk/credentials"
	"github.com/opsdesk/opsdesk/services/ratelimit"
	"github.com/opsdesk/opsdesk/utils"
)

// KeyFunc derives the rate-limit key for a request. The limiter itself is
// key-agnostic; composition happens here.
type KeyFunc func(r *http.Request) string

// IPKey builds "action:clientIP" keys for per-IP throttling of a named
// sensitive action.
func IPKey(action string) KeyFunc {
	return func(r *http.Request) string {
		return fmt.Sprintf("%s:%s", action, credentials.ClientIP(r))
	}
}

// SubjectKeyFunc builds "action:userID" keys for authenticated routes. Falls
// back to the client IP when no subject is in context.
func SubjectKeyFunc(action string) KeyFunc {
	return func(r *http.Request) string {
		if subject := GetSubjectFromContext(r.Context()); subject != nil {
			return fmt.Sprintf("%s:%s", action, subject.UserID.String())
		}
		return fmt.Sprintf("%s:%s", action, credentials.ClientIP(r))
	}
}

// RateLimit gates a route on limit calls per window for the derived key.
// Denied requests get a 429 with Retry-After; allowed requests carry
// X-RateLimit headers through.
func RateLimit(limiter *ratelimit.Limiter, keyFn KeyFunc, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := limiter.Allow(r.Context(), keyFn(r), limit, window)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				retrySecs := int(math.Ceil(result.RetryAfter.Seconds()))
				if retrySecs < 0 {
					retrySecs = 0
				}
				w.Header().Set("Retry-After", strconv.Itoa(retrySecs))
				_ = utils.WriteTooManyRequests(w, "", map[string]interface{}{
					"retry_after": retrySecs,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

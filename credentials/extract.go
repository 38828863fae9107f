// Package credentials pulls tokens and caller metadata out of incoming
// requests. It never validates anything; extraction and verification are
// separate concerns.
package credentials

import (
	"net/http"
	"strings"
)

// UnknownIP is the sentinel returned when no client IP can be determined.
const UnknownIP = "unknown"

// AccessToken extracts the access token from the Authorization header
// ("Bearer TOKEN") or the named cookie. The header takes precedence when both
// are present: an explicit header is a deliberate per-request credential,
// while the cookie is ambient browser state.
func AccessToken(r *http.Request, cookieName string) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// RefreshToken extracts the refresh token from its cookie. Refresh tokens are
// never read from headers: they must not be attachable to arbitrary
// cross-origin requests.
func RefreshToken(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// ClientIP returns a best-effort client IP for rate-limit keying: the first
// comma-separated X-Forwarded-For entry, falling back to X-Real-IP. Returns
// UnknownIP when neither header is usable; never errors.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
		if first != "" {
			return first
		}
	}
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		return rip
	}
	return UnknownIP
}

// bearerToken extracts the Bearer token from the Authorization header
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Package session manages the access/refresh cookie lifecycle:
// Anonymous -> Authenticated -> Refreshed -> Revoked.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/opsdesk/config"
	"github.com/opsdesk/opsdesk/identity"
	"github.com/opsdesk/opsdesk/services"
)

// TokenRefresher exchanges a refresh token for a new token pair. The refresh
// path deliberately trusts only the refresh token: an access token alone can
// never mint new tokens, so a stolen access token stays short-lived.
type TokenRefresher interface {
	RefreshTokenPair(ctx context.Context, refreshToken string) (identity.TokenPair, error)
}

// Manager issues, rotates, and clears the session cookie pair.
type Manager struct {
	tokens  TokenRefresher
	cookies config.CookieConfig
	logger  *zap.Logger
}

// NewManager creates a session manager.
func NewManager(tokens TokenRefresher, cookies config.CookieConfig, logger *zap.Logger) *Manager {
	return &Manager{
		tokens:  tokens,
		cookies: cookies,
		logger:  logger,
	}
}

// Establish sets both session cookies for a freshly issued pair. Used after
// login and password-reset completion. Cookie Max-Age tracks each token's own
// lifetime, falling back to the configured TTLs; the refresh cookie always
// outlives the access cookie and is scoped to the auth path so it never rides
// along on ordinary API requests.
func (m *Manager) Establish(w http.ResponseWriter, pair identity.TokenPair) {
	http.SetCookie(w, m.accessCookie(pair.AccessToken, m.maxAge(pair.AccessExpiresAt, m.cookies.AccessTTL)))
	http.SetCookie(w, m.refreshCookie(pair.RefreshToken, m.maxAge(pair.RefreshExpiresAt, m.cookies.RefreshTTL)))
}

// Refresh exchanges the refresh token for a new pair and replaces both
// cookies. The cookies are only written after a successful exchange, so the
// caller never observes a new access token paired with a stale refresh token.
// On failure the existing cookies are left untouched; clearing them is an
// explicit logout decision, not this method's.
func (m *Manager) Refresh(ctx context.Context, w http.ResponseWriter, refreshToken string) (identity.TokenPair, error) {
	pair, err := m.tokens.RefreshTokenPair(ctx, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidToken), errors.Is(err, identity.ErrTokenExpired):
			return identity.TokenPair{}, services.ErrInvalidRefresh
		case errors.Is(err, identity.ErrUnavailable):
			m.logger.Error("identity store unavailable during refresh", zap.Error(err))
			return identity.TokenPair{}, services.WrapError(services.ErrorTypeUnavailable, "identity store unavailable", err)
		default:
			return identity.TokenPair{}, services.WrapError(services.ErrorTypeInternal, "refresh failed", err)
		}
	}

	m.Establish(w, pair)
	return pair, nil
}

// Clear expires both cookies. Logout is the only legitimate path to the
// revoked terminal state.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.accessCookie("", -1))
	http.SetCookie(w, m.refreshCookie("", -1))
}

func (m *Manager) accessCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookies.AccessName,
		Value:    value,
		Path:     "/",
		Domain:   m.cookies.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (m *Manager) refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookies.RefreshName,
		Value:    value,
		Path:     m.cookies.RefreshPath,
		Domain:   m.cookies.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// maxAge converts an absolute expiry into a cookie Max-Age, preferring the
// token's own expiry over the configured fallback TTL.
func (m *Manager) maxAge(expiresAt time.Time, fallback time.Duration) int {
	ttl := fallback
	if !expiresAt.IsZero() {
		ttl = time.Until(expiresAt)
	}
	if ttl <= 0 {
		return -1
	}
	return int(ttl / time.Second)
}

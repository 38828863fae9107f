package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/opsdesk/opsdesk/config"
	"github.com/opsdesk/opsdesk/credentials"
	"github.com/opsdesk/opsdesk/gate"
	"github.com/opsdesk/opsdesk/identity"
	"github.com/opsdesk/opsdesk/services/session"
	"github.com/opsdesk/opsdesk/utils"
)

// TokenIssuer authenticates login credentials against the identity store.
type TokenIssuer interface {
	IssueTokenPair(ctx context.Context, creds identity.Credentials) (identity.TokenPair, error)
}

// AuthHandler handles the session lifecycle endpoints: login, refresh,
// logout, and the current-subject view.
type AuthHandler struct {
	issuer   TokenIssuer
	sessions *session.Manager
	gate     *gate.Gate
	cookies  config.CookieConfig
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(issuer TokenIssuer, sessions *session.Manager, g *gate.Gate, cookies config.CookieConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		issuer:   issuer,
		sessions: sessions,
		gate:     g,
		cookies:  cookies,
		logger:   logger,
	}
}

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// HandleLogin authenticates credentials with the identity store and
// establishes the session cookie pair.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		var verr *utils.ValidationError
		if errors.As(err, &verr) {
			_ = utils.WriteBadRequest(w, verr.Message, verr.Details())
			return
		}
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	pair, err := h.issuer.IssueTokenPair(r.Context(), identity.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			h.logger.Warn("login rejected", zap.String("email", req.Email))
			_ = utils.WriteUnauthorized(w, "Invalid credentials")
		case errors.Is(err, identity.ErrUnavailable):
			h.logger.Error("identity store unavailable during login", zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Authentication unavailable")
		default:
			h.logger.Error("login failed", zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
		}
		return
	}

	h.sessions.Establish(w, pair)
	h.logger.Info("session established", zap.String("email", req.Email))
	_ = utils.WriteOK(w, map[string]interface{}{
		"access_expires_at":  pair.AccessExpiresAt,
		"refresh_expires_at": pair.RefreshExpiresAt,
	})
}

// HandleRefresh rotates the session from the refresh cookie alone. The
// access token is neither required nor consulted: refresh is a separate
// trust boundary, so a stolen access token cannot mint new tokens. On
// failure the existing cookies are left in place; logout is the caller's
// explicit decision.
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := credentials.RefreshToken(r, h.cookies.RefreshName)
	if refreshToken == "" {
		_ = utils.WriteUnauthorized(w, "Missing refresh token")
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), w, refreshToken)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, map[string]interface{}{
		"access_expires_at":  pair.AccessExpiresAt,
		"refresh_expires_at": pair.RefreshExpiresAt,
	})
}

// HandleLogout clears both session cookies.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	utils.WriteNoContent(w)
}

// HandleMe returns the authenticated subject and its effective permission
// set for this request.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	subject, denial := h.gate.RequireUser(r)
	if denial != nil {
		denial.Write(w)
		return
	}

	effective := h.gate.Resolve(r.Context(), subject)
	_ = utils.WriteOK(w, map[string]interface{}{
		"subject":     subject,
		"permissions": effective,
	})
}

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/opsdesk/config"
	"github.com/opsdesk/opsdesk/gate"
	"github.com/opsdesk/opsdesk/identity"
	"github.com/opsdesk/opsdesk/models"
	"github.com/opsdesk/opsdesk/services/session"
)

type mockIssuer struct {
	mock.Mock
}

func (m *mockIssuer) IssueTokenPair(ctx context.Context, creds identity.Credentials) (identity.TokenPair, error) {
	args := m.Called(ctx, creds)
	return args.Get(0).(identity.TokenPair), args.Error(1)
}

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) RefreshTokenPair(ctx context.Context, refreshToken string) (identity.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(identity.TokenPair), args.Error(1)
}

type stubVerifier struct {
	subjectID uuid.UUID
}

func (s *stubVerifier) VerifyAccessToken(_ context.Context, token string) (uuid.UUID, error) {
	if token == "valid-token" {
		return s.subjectID, nil
	}
	return uuid.Nil, identity.ErrInvalidToken
}

type stubProfiles struct {
	profile *models.Profile
}

func (s *stubProfiles) GetBySubject(context.Context, uuid.UUID) (*models.Profile, error) {
	return s.profile, nil
}

type stubPolicies struct{}

func (stubPolicies) GetCompanyPolicy(context.Context, uuid.UUID) (models.CompanyPolicy, error) {
	return nil, nil
}

func testCookies() config.CookieConfig {
	return config.CookieConfig{
		AccessName:  "od_access",
		RefreshName: "od_refresh",
		RefreshPath: "/auth",
		Secure:      true,
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  7 * 24 * time.Hour,
	}
}

type handlerFixture struct {
	handler   *AuthHandler
	issuer    *mockIssuer
	refresher *mockRefresher
}

func newHandlerFixture(role models.Role) *handlerFixture {
	issuer := new(mockIssuer)
	refresher := new(mockRefresher)
	cookies := testCookies()
	logger := zap.NewNop()

	subjectID := uuid.New()
	g := gate.New(
		&stubVerifier{subjectID: subjectID},
		&stubProfiles{profile: &models.Profile{
			UserID:    subjectID,
			CompanyID: uuid.New(),
			Role:      role,
		}},
		stubPolicies{},
		cookies.AccessName,
		logger,
	)

	sessions := session.NewManager(refresher, cookies, logger)
	return &handlerFixture{
		handler:   NewAuthHandler(issuer, sessions, g, cookies, logger),
		issuer:    issuer,
		refresher: refresher,
	}
}

func freshPair() identity.TokenPair {
	return identity.TokenPair{
		AccessToken:      "new-access",
		RefreshToken:     "new-refresh",
		AccessExpiresAt:  time.Now().Add(15 * time.Minute),
		RefreshExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}
}

func TestHandleLogin(t *testing.T) {
	t.Run("valid credentials establish the session", func(t *testing.T) {
		f := newHandlerFixture(models.RoleManager)
		f.issuer.On("IssueTokenPair", mock.Anything, identity.Credentials{
			Email:    "ops@example.com",
			Password: "correct-horse",
		}).Return(freshPair(), nil)

		r := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"ops@example.com","password":"correct-horse"}`))
		rec := httptest.NewRecorder()

		f.handler.HandleLogin(rec, r)

		assert.Equal(t, http.StatusOK, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 2)
		f.issuer.AssertExpectations(t)
	})

	t.Run("malformed body yields 400", func(t *testing.T) {
		f := newHandlerFixture(models.RoleManager)

		r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
		rec := httptest.NewRecorder()

		f.handler.HandleLogin(rec, r)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.issuer.AssertNotCalled(t, "IssueTokenPair")
	})

	t.Run("invalid email yields 400 before the identity store is consulted", func(t *testing.T) {
		f := newHandlerFixture(models.RoleManager)

		r := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"not-an-email","password":"correct-horse"}`))
		rec := httptest.NewRecorder()

		f.handler.HandleLogin(rec, r)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.issuer.AssertNotCalled(t, "IssueTokenPair")
	})

	t.Run("rejected credentials yield 401 and no cookies", func(t *testing.T) {
		f := newHandlerFixture(models.RoleManager)
		f.issuer.On("IssueTokenPair", mock.Anything, mock.Anything).
			Return(identity.TokenPair{}, identity.ErrInvalidCredentials)

		r := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"ops@example.com","password":"wrong-horse"}`))
		rec := httptest.NewRecorder()

		f.handler.HandleLogin(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("identity store outage yields 401, not 500", func(t *testing.T) {
		f := newHandlerFixture(models.RoleManager)
		f.issuer.On("IssueTokenPair", mock.Anything, mock.Anything).
			Return(identity.TokenPair{}, identity.ErrUnavailable)

		r := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"ops@example.com","password":"correct-horse"}`))
		rec := httptest.NewRecorder()

		f.handler.HandleLogin(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHandleRefresh(t *testing.T) {
	t.Run("valid refresh cookie rotates the pair", func(t *testing.T) {
		f := newHandlerFixture(models.RoleManager)
		f.refresher.On("RefreshTokenPair", mock.Anything, "old-refresh").
			Return(freshPair(), nil)

		r := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		r.AddCookie(&http.Cookie{Name: "od_refresh", Value: "old-refresh"})
		rec := httptest.NewRecorder()

		f.handler.HandleRefresh(rec, r)

		assert.Equal(t, http.StatusOK, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 2)
	})

	t.Run("missing refresh cookie yields 401", func(t *testing.T) {
		f := newHandlerFixture(models.RoleManager)

		r := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		rec := httptest.NewRecorder()

		f.handler.HandleRefresh(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		f.refresher.AssertNotCalled(t, "RefreshTokenPair")
	})

	t.Run("access token alone cannot refresh", func(t *testing.T) {
		f := newHandlerFixture(models.RoleManager)

		r := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		r.Header.Set("Authorization", "Bearer valid-token")
		r.AddCookie(&http.Cookie{Name: "od_access", Value: "valid-token"})
		rec := httptest.NewRecorder()

		f.handler.HandleRefresh(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		f.refresher.AssertNotCalled(t, "RefreshTokenPair")
	})

	t.Run("rejected refresh token yields 401 and leaves cookies alone", func(t *testing.T) {
		f := newHandlerFixture(models.RoleManager)
		f.refresher.On("RefreshTokenPair", mock.Anything, "revoked").
			Return(identity.TokenPair{}, identity.ErrInvalidToken)

		r := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		r.AddCookie(&http.Cookie{Name: "od_refresh", Value: "revoked"})
		rec := httptest.NewRecorder()

		f.handler.HandleRefresh(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("identity store outage yields 401 and leaves cookies alone", func(t *testing.T) {
		f := newHandlerFixture(models.RoleManager)
		f.refresher.On("RefreshTokenPair", mock.Anything, "any").
			Return(identity.TokenPair{}, identity.ErrUnavailable)

		r := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		r.AddCookie(&http.Cookie{Name: "od_refresh", Value: "any"})
		rec := httptest.NewRecorder()

		f.handler.HandleRefresh(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	})
}

func TestHandleLogout(t *testing.T) {
	f := newHandlerFixture(models.RoleManager)

	r := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()

	f.handler.HandleLogout(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestHandleMe(t *testing.T) {
	t.Run("authenticated subject sees its permission set", func(t *testing.T) {
		f := newHandlerFixture(models.RoleTechnician)

		r := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		r.Header.Set("Authorization", "Bearer valid-token")
		rec := httptest.NewRecorder()

		f.handler.HandleMe(rec, r)

		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `"jobs.view":true`)
		assert.Contains(t, body, `"settings.manage":false`)
	})

	t.Run("unauthenticated request yields 401", func(t *testing.T) {
		f := newHandlerFixture(models.RoleTechnician)

		r := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		rec := httptest.NewRecorder()

		f.handler.HandleMe(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when the identity store rejects a token.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the identity store reports an expired token.
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidCredentials is returned when login credentials are rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnavailable is returned when the identity store cannot be reached or
	// answers with a server error. Callers must not treat this as a grant.
	ErrUnavailable = errors.New("identity store unavailable")
)

// TokenPair is an access/refresh token pair issued by the identity store.
// The pair is always replaced as a unit: a refresh never produces a new
// access token without also rotating the refresh token.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Credentials are the login credentials forwarded to the identity store.
// Password verification happens entirely inside the store.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Config holds configuration for the identity store client.
type Config struct {
	BaseURL     string
	ClientID    string
	HTTPTimeout time.Duration
}

// Client talks to the external identity store. The store owns credential
// verification, token signing, and refresh-token bookkeeping; this client
// only exchanges requests and maps responses onto the local error taxonomy.
type Client struct {
	baseURL    string
	clientID   string
	httpClient *http.Client
}

// NewClient creates a new identity store client.
func NewClient(cfg Config) *Client {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		clientID: cfg.ClientID,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	SubjectID string `json:"subject_id"`
	Expired   bool   `json:"expired,omitempty"`
}

// VerifyAccessToken exchanges a bearer token for the verified subject ID.
// A rejected token yields ErrInvalidToken or ErrTokenExpired; a store outage
// yields ErrUnavailable.
func (c *Client) VerifyAccessToken(ctx context.Context, token string) (uuid.UUID, error) {
	var out verifyResponse
	status, err := c.post(ctx, "/v1/token/verify", verifyRequest{Token: token}, &out)
	if err != nil {
		return uuid.Nil, err
	}
	switch {
	case status == http.StatusOK:
		sub, err := uuid.Parse(out.SubjectID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: malformed subject_id %q", ErrInvalidToken, out.SubjectID)
		}
		return sub, nil
	case status == http.StatusUnauthorized && out.Expired:
		return uuid.Nil, ErrTokenExpired
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return uuid.Nil, ErrInvalidToken
	default:
		return uuid.Nil, fmt.Errorf("%w: verify returned status %d", ErrUnavailable, status)
	}
}

type issueRequest struct {
	ClientID string `json:"client_id,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// IssueTokenPair authenticates credentials and returns a fresh token pair.
func (c *Client) IssueTokenPair(ctx context.Context, creds Credentials) (TokenPair, error) {
	var pair TokenPair
	status, err := c.post(ctx, "/v1/token", issueRequest{
		ClientID: c.clientID,
		Email:    creds.Email,
		Password: creds.Password,
	}, &pair)
	if err != nil {
		return TokenPair{}, err
	}
	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		fillExpiries(&pair)
		return pair, nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return TokenPair{}, ErrInvalidCredentials
	default:
		return TokenPair{}, fmt.Errorf("%w: issue returned status %d", ErrUnavailable, status)
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshTokenPair exchanges a refresh token for a new pair. The old pair is
// invalidated by the store on success; an expired, revoked, or garbage
// refresh token yields ErrInvalidToken and no new tokens.
func (c *Client) RefreshTokenPair(ctx context.Context, refreshToken string) (TokenPair, error) {
	var pair TokenPair
	status, err := c.post(ctx, "/v1/token/refresh", refreshRequest{RefreshToken: refreshToken}, &pair)
	if err != nil {
		return TokenPair{}, err
	}
	switch {
	case status == http.StatusOK:
		fillExpiries(&pair)
		return pair, nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return TokenPair{}, ErrInvalidToken
	default:
		return TokenPair{}, fmt.Errorf("%w: refresh returned status %d", ErrUnavailable, status)
	}
}

// post sends a JSON request and decodes the JSON response body into out.
// Transport-level failures map to ErrUnavailable; HTTP status handling is
// left to the caller.
func (c *Client) post(ctx context.Context, path string, in, out interface{}) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if out != nil {
		// Error responses may carry a diagnostic body of a different shape;
		// decode failures there are not interesting.
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}

// fillExpiries backfills missing expiry timestamps from the tokens' own exp
// claims so cookie lifetimes can track token lifetimes even when the store
// response omits explicit expiries.
func fillExpiries(pair *TokenPair) {
	if pair.AccessExpiresAt.IsZero() {
		if exp, err := TokenExpiry(pair.AccessToken); err == nil {
			pair.AccessExpiresAt = exp
		}
	}
	if pair.RefreshExpiresAt.IsZero() {
		if exp, err := TokenExpiry(pair.RefreshToken); err == nil {
			pair.RefreshExpiresAt = exp
		}
	}
}

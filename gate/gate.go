// Package gate is the composed authorization entry point every protected
// route passes through: it establishes caller identity from request
// credentials, resolves the effective permission set, and answers with either
// the resolved subject or a terminal HTTP response.
package gate

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opsdesk/opsdesk/credentials"
	"github.com/opsdesk/opsdesk/identity"
	"github.com/opsdesk/opsdesk/models"
	"github.com/opsdesk/opsdesk/repositories"
	"github.com/opsdesk/opsdesk/services/permissions"
	"github.com/opsdesk/opsdesk/utils"
)

// TokenVerifier exchanges an access token for a verified subject ID.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (uuid.UUID, error)
}

// Gate composes credential extraction, identity verification, and permission
// resolution. It is stateless per call: its only side effects are the
// verification and load calls to its collaborators.
type Gate struct {
	verifier   TokenVerifier
	profiles   repositories.ProfileRepository
	policies   repositories.PolicyRepository
	cookieName string
	logger     *zap.Logger
}

// New creates a Gate. cookieName is the access-token cookie consulted when no
// Authorization header is present.
func New(verifier TokenVerifier, profiles repositories.ProfileRepository, policies repositories.PolicyRepository, cookieName string, logger *zap.Logger) *Gate {
	return &Gate{
		verifier:   verifier,
		profiles:   profiles,
		policies:   policies,
		cookieName: cookieName,
		logger:     logger,
	}
}

// Denial is the terminal arm of the gate's result: a ready-to-send HTTP
// response the caller must return verbatim without further processing.
// Callers branch only on "denial or subject", never on error internals.
type Denial struct {
	Status int
	Body   utils.ErrorResponse
}

// Write sends the denial to the client.
func (d *Denial) Write(w http.ResponseWriter) {
	_ = utils.WriteJSON(w, d.Status, d.Body)
}

// Grant is the success arm of a permission-checked gate call: the resolved
// subject plus its effective permission map for this request.
type Grant struct {
	Subject     *models.Subject
	Permissions permissions.Effective
}

func unauthorized(message string) *Denial {
	if message == "" {
		message = "Authentication required"
	}
	return &Denial{
		Status: http.StatusUnauthorized,
		Body:   utils.ErrorResponse{Error: "unauthenticated", Message: message},
	}
}

func forbidden(message string) *Denial {
	if message == "" {
		message = "Access forbidden"
	}
	return &Denial{
		Status: http.StatusForbidden,
		Body:   utils.ErrorResponse{Error: "forbidden", Message: message},
	}
}

// RequireUser extracts and verifies the access token and loads the subject's
// profile. Missing, invalid, or expired tokens yield a 401 denial, as does an
// unreachable identity store: verification failures never degrade to a grant.
func (g *Gate) RequireUser(r *http.Request) (*models.Subject, *Denial) {
	ctx := r.Context()

	token := credentials.AccessToken(r, g.cookieName)
	if token == "" {
		return nil, unauthorized("Missing or invalid authorization")
	}

	subjectID, err := g.verifier.VerifyAccessToken(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrUnavailable) {
			g.logger.Error("identity store unavailable during verification", zap.Error(err))
		} else {
			g.logger.Warn("token verification failed", zap.Error(err))
		}
		return nil, unauthorized("Invalid or expired token")
	}

	profile, err := g.profiles.GetBySubject(ctx, subjectID)
	if err != nil {
		g.logger.Warn("failed to load subject profile",
			zap.String("subject_id", subjectID.String()),
			zap.Error(err))
		return nil, unauthorized("Invalid or expired token")
	}

	return &models.Subject{
		UserID:    profile.UserID,
		CompanyID: profile.CompanyID,
		Role:      profile.Role,
		Overrides: profile.Overrides,
	}, nil
}

// RequirePermission establishes identity, resolves the effective permission
// set, and checks the requested keys with any-of semantics: the caller is
// authorized when it holds at least one of them. A caller with none of the
// keys gets a 403 denial, not 401, because identity was established.
func (g *Gate) RequirePermission(r *http.Request, perms ...string) (*Grant, *Denial) {
	subject, denial := g.RequireUser(r)
	if denial != nil {
		return nil, denial
	}

	effective := g.resolve(r.Context(), subject)
	if !effective.HasAny(perms...) {
		g.logger.Warn("permission denied",
			zap.String("subject_id", subject.UserID.String()),
			zap.String("company_id", subject.CompanyID.String()),
			zap.Strings("required_any_of", perms))
		return nil, forbidden("Insufficient permissions")
	}

	return &Grant{Subject: subject, Permissions: effective}, nil
}

// RequireRole checks that the subject's role is one of roles and, when perm
// is non-empty, that the permission also resolved to granted. Both
// constraints must hold; role membership alone does not stand in for a
// missing permission.
func (g *Gate) RequireRole(r *http.Request, roles []models.Role, perm string) (*Grant, *Denial) {
	subject, denial := g.RequireUser(r)
	if denial != nil {
		return nil, denial
	}

	member := false
	for _, role := range roles {
		if subject.Role == role {
			member = true
			break
		}
	}
	if !member {
		g.logger.Warn("role denied",
			zap.String("subject_id", subject.UserID.String()),
			zap.String("role", string(subject.Role)))
		return nil, forbidden("Insufficient permissions")
	}

	effective := g.resolve(r.Context(), subject)
	if perm != "" && !effective.Has(perm) {
		g.logger.Warn("permission denied",
			zap.String("subject_id", subject.UserID.String()),
			zap.String("required", perm))
		return nil, forbidden("Insufficient permissions")
	}

	return &Grant{Subject: subject, Permissions: effective}, nil
}

// Resolve returns the effective permission set for an already-established
// subject, loading the tenant policy fresh for this request.
func (g *Gate) Resolve(ctx context.Context, subject *models.Subject) permissions.Effective {
	return g.resolve(ctx, subject)
}

// resolve loads the company policy and merges the three permission layers.
// A policy store failure falls back to the built-in role defaults: that
// mirrors the absent-policy semantics and can never grant beyond what the
// platform ships with.
func (g *Gate) resolve(ctx context.Context, subject *models.Subject) permissions.Effective {
	policy, err := g.policies.GetCompanyPolicy(ctx, subject.CompanyID)
	if err != nil {
		g.logger.Error("failed to load company policy, using role defaults",
			zap.String("company_id", subject.CompanyID.String()),
			zap.Error(err))
		policy = nil
	}
	return permissions.Resolve(subject.Role, policy, subject.Overrides)
}

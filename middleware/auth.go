// Package middleware adapts the gate and rate limiter to chi handler chains.
// Route trees compose these; handlers that need finer control call the gate
// directly and branch on its result.
package middleware

import (
	"net/http"

	"github.com/opsdesk/opsdesk/gate"
	"github.com/opsdesk/opsdesk/models"
)

// AuthMiddleware wraps the gate for use in router middleware chains.
type AuthMiddleware struct {
	gate *gate.Gate
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(g *gate.Gate) *AuthMiddleware {
	return &AuthMiddleware{gate: g}
}

// RequireAuth rejects requests without an established identity and stores
// the subject in the request context for downstream handlers.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, denial := m.gate.RequireUser(r)
		if denial != nil {
			denial.Write(w)
			return
		}

		ctx := WithSubject(r.Context(), subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission gates a route on any-of the given permission keys and
// stores both the subject and the resolved permission set in the context.
func (m *AuthMiddleware) RequirePermission(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			grant, denial := m.gate.RequirePermission(r, perms...)
			if denial != nil {
				denial.Write(w)
				return
			}

			ctx := WithSubject(r.Context(), grant.Subject)
			ctx = WithPermissions(ctx, grant.Permissions)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route on role membership, and on perm as well when it
// is non-empty.
func (m *AuthMiddleware) RequireRole(roles []models.Role, perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			grant, denial := m.gate.RequireRole(r, roles, perm)
			if denial != nil {
				denial.Write(w)
				return
			}

			ctx := WithSubject(r.Context(), grant.Subject)
			ctx = WithPermissions(ctx, grant.Permissions)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

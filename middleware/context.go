package middleware

import (
	"context"

	"github.com/opsdesk/opsdesk/models"
	"github.com/opsdesk/opsdesk/services/permissions"
)

// Context key type to avoid collisions
type contextKey string

const (
	// SubjectKey is the context key for the authenticated subject
	SubjectKey contextKey = "subject"

	// PermissionsKey is the context key for the resolved permission set
	PermissionsKey contextKey = "permissions"
)

// WithSubject adds the authenticated subject to the context
func WithSubject(ctx context.Context, subject *models.Subject) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// GetSubjectFromContext retrieves the authenticated subject from context
func GetSubjectFromContext(ctx context.Context) *models.Subject {
	if val := ctx.Value(SubjectKey); val != nil {
		if subject, ok := val.(*models.Subject); ok {
			return subject
		}
	}
	return nil
}

// WithPermissions adds the resolved permission set to the context
func WithPermissions(ctx context.Context, effective permissions.Effective) context.Context {
	return context.WithValue(ctx, PermissionsKey, effective)
}

// GetPermissionsFromContext retrieves the resolved permission set from context
func GetPermissionsFromContext(ctx context.Context) permissions.Effective {
	if val := ctx.Value(PermissionsKey); val != nil {
		if effective, ok := val.(permissions.Effective); ok {
			return effective
		}
	}
	return nil
}

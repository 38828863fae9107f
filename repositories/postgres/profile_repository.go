package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opsdesk/opsdesk/models"
)

// ProfileRepository loads user profiles from PostgreSQL.
type ProfileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *sql.DB, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{db: db, logger: logger}
}

// GetBySubject returns the stored profile for a verified subject ID.
// The overrides column is an optional JSONB document mapping permission key
// to boolean; a malformed document degrades to no overrides rather than an
// error, so a bad row can never reject the request by itself.
func (r *ProfileRepository) GetBySubject(ctx context.Context, subjectID uuid.UUID) (*models.Profile, error) {
	query := `
		SELECT user_id, company_id, role, permission_overrides
		FROM user_profiles
		WHERE user_id = $1
	`

	var (
		userID    uuid.UUID
		companyID uuid.UUID
		role      string
		overrides []byte
	)
	err := r.db.QueryRowContext(ctx, query, subjectID).Scan(&userID, &companyID, &role, &overrides)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	profile := &models.Profile{
		UserID:    userID,
		CompanyID: companyID,
		Role:      models.Role(role),
	}

	if len(overrides) > 0 {
		var parsed map[string]bool
		if err := json.Unmarshal(overrides, &parsed); err != nil {
			r.logger.Warn("malformed permission overrides, treating as absent",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		} else {
			profile.Overrides = parsed
		}
	}

	return profile, nil
}

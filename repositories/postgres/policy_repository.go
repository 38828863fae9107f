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

// PolicyRepository loads per-tenant permission policies from PostgreSQL.
type PolicyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPolicyRepository creates a new PolicyRepository.
func NewPolicyRepository(db *sql.DB, logger *zap.Logger) *PolicyRepository {
	return &PolicyRepository{db: db, logger: logger}
}

// GetCompanyPolicy returns the tenant's role policy document. A tenant
// without a policy row, or with a malformed document, yields a nil policy
// and nil error: the resolver then falls through to built-in role defaults,
// never to deny-all.
func (r *PolicyRepository) GetCompanyPolicy(ctx context.Context, companyID uuid.UUID) (models.CompanyPolicy, error) {
	query := `
		SELECT role_permissions
		FROM company_permission_policies
		WHERE company_id = $1
	`

	var doc []byte
	err := r.db.QueryRowContext(ctx, query, companyID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load company policy: %w", err)
	}

	if len(doc) == 0 {
		return nil, nil
	}

	var policy models.CompanyPolicy
	if err := json.Unmarshal(doc, &policy); err != nil {
		r.logger.Warn("malformed company policy, treating as absent",
			zap.String("company_id", companyID.String()),
			zap.Error(err))
		return nil, nil
	}
	return policy, nil
}

package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/opsdesk/models"
)

func TestPolicyRepository_GetCompanyPolicy(t *testing.T) {
	companyID := uuid.New()

	t.Run("policy document present", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPolicyRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT role_permissions").
			WithArgs(companyID).
			WillReturnRows(sqlmock.NewRows([]string{"role_permissions"}).
				AddRow([]byte(`{"technician":["jobs.view","jobs.edit"]}`)))

		policy, err := repo.GetCompanyPolicy(context.Background(), companyID)
		require.NoError(t, err)
		require.NotNil(t, policy)
		assert.Equal(t, []string{"jobs.view", "jobs.edit"}, policy[models.RoleTechnician])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no policy row yields nil policy without error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPolicyRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT role_permissions").
			WithArgs(companyID).
			WillReturnRows(sqlmock.NewRows([]string{"role_permissions"}))

		policy, err := repo.GetCompanyPolicy(context.Background(), companyID)
		require.NoError(t, err)
		assert.Nil(t, policy)
	})

	t.Run("malformed document degrades to nil policy", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPolicyRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT role_permissions").
			WithArgs(companyID).
			WillReturnRows(sqlmock.NewRows([]string{"role_permissions"}).
				AddRow([]byte(`[broken`)))

		policy, err := repo.GetCompanyPolicy(context.Background(), companyID)
		require.NoError(t, err)
		assert.Nil(t, policy)
	})

	t.Run("query failure surfaces", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewPolicyRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT role_permissions").
			WillReturnError(errors.New("connection refused"))

		_, err = repo.GetCompanyPolicy(context.Background(), companyID)
		assert.Error(t, err)
	})
}

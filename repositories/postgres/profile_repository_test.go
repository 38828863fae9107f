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

func TestProfileRepository_GetBySubject(t *testing.T) {
	subjectID := uuid.New()
	companyID := uuid.New()

	t.Run("profile with overrides", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewProfileRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT user_id, company_id, role, permission_overrides").
			WithArgs(subjectID).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "company_id", "role", "permission_overrides"}).
				AddRow(subjectID, companyID, "technician", []byte(`{"invoices.view":true}`)))

		profile, err := repo.GetBySubject(context.Background(), subjectID)
		require.NoError(t, err)
		assert.Equal(t, subjectID, profile.UserID)
		assert.Equal(t, companyID, profile.CompanyID)
		assert.Equal(t, models.RoleTechnician, profile.Role)
		assert.Equal(t, map[string]bool{"invoices.view": true}, profile.Overrides)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("profile without overrides", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewProfileRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT user_id, company_id, role, permission_overrides").
			WithArgs(subjectID).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "company_id", "role", "permission_overrides"}).
				AddRow(subjectID, companyID, "sales", nil))

		profile, err := repo.GetBySubject(context.Background(), subjectID)
		require.NoError(t, err)
		assert.Nil(t, profile.Overrides)
	})

	t.Run("malformed overrides degrade to absent", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewProfileRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT user_id, company_id, role, permission_overrides").
			WithArgs(subjectID).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "company_id", "role", "permission_overrides"}).
				AddRow(subjectID, companyID, "sales", []byte(`not json`)))

		profile, err := repo.GetBySubject(context.Background(), subjectID)
		require.NoError(t, err)
		assert.Nil(t, profile.Overrides)
	})

	t.Run("unknown subject yields ErrNotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewProfileRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT user_id, company_id, role, permission_overrides").
			WithArgs(subjectID).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "company_id", "role", "permission_overrides"}))

		_, err = repo.GetBySubject(context.Background(), subjectID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("query failure surfaces", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewProfileRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT user_id, company_id, role, permission_overrides").
			WillReturnError(errors.New("connection refused"))

		_, err = repo.GetBySubject(context.Background(), subjectID)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGStore_Incr(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPGStore(db)
	windowStart := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO rate_limit_counters").
		WithArgs("login:1.2.3.4", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count", "window_start"}).
			AddRow(3, windowStart))

	count, start, err := store.Incr(context.Background(), "login:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, windowStart, start)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStore_IncrError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPGStore(db)

	mock.ExpectQuery("INSERT INTO rate_limit_counters").
		WillReturnError(errors.New("connection refused"))

	_, _, err = store.Incr(context.Background(), "login:1.2.3.4", time.Minute)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStore_Cleanup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPGStore(db)
	cutoff := time.Now().Add(-time.Hour)

	mock.ExpectExec("DELETE FROM rate_limit_counters").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 42))

	removed, err := store.Cleanup(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(42), removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

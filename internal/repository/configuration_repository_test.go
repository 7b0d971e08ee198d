package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorgejloo/educativo-api/internal/models"
)

func newConfigurationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestConfigurationRepositoryGet(t *testing.T) {
	db, mock, cleanup := newConfigurationMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	rows := sqlmock.NewRows([]string{"key", "value", "description", "updated_by", "updated_at"}).
		AddRow("precio_semestre", "100000", nil, nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT key, value, description, updated_by, updated_at FROM configurations WHERE key = $1")).
		WithArgs("precio_semestre").
		WillReturnRows(rows)

	cfg, err := repo.Get(context.Background(), "precio_semestre")
	require.NoError(t, err)
	assert.Equal(t, "100000", cfg.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigurationRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newConfigurationMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	mock.ExpectQuery("SELECT key, value, description, updated_by, updated_at FROM configurations").
		WithArgs("unknown").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "unknown")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestConfigurationRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newConfigurationMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	mock.ExpectExec("INSERT INTO configurations").
		WithArgs("precio_semestre", "120000", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Upsert(context.Background(), &models.Configuration{Key: "precio_semestre", Value: "120000"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

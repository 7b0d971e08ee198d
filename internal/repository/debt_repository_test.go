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

func newDebtMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func debtRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "concept", "total_amount", "remaining_balance", "created_at"})
}

func TestApplyPaymentDecrementsBalance(t *testing.T) {
	db, mock, cleanup := newDebtMock(t)
	defer cleanup()
	repo := NewDebtRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, student_id, concept, total_amount, remaining_balance, created_at FROM debts WHERE id = $1 FOR UPDATE")).
		WithArgs("d1").
		WillReturnRows(debtRows().AddRow("d1", "s1", "Matrícula", 100000.0, 100000.0, time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE debts SET remaining_balance = $2 WHERE id = $1")).
		WithArgs("d1", 60000.0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO payments").
		WithArgs(sqlmock.AnyArg(), "d1", "s1", 40000.0, "cash", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	payment := &models.Payment{Amount: 40000, Method: "cash"}
	debt, err := repo.ApplyPayment(context.Background(), "d1", payment)
	require.NoError(t, err)
	assert.Equal(t, 60000.0, debt.RemainingBalance)
	assert.Equal(t, "s1", payment.StudentID)
	assert.NotEmpty(t, payment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPaymentExceedingBalanceRollsBack(t *testing.T) {
	db, mock, cleanup := newDebtMock(t)
	defer cleanup()
	repo := NewDebtRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("d1").
		WillReturnRows(debtRows().AddRow("d1", "s1", "Matrícula", 100000.0, 30000.0, time.Now()))
	mock.ExpectRollback()

	_, err := repo.ApplyPayment(context.Background(), "d1", &models.Payment{Amount: 30001, Method: "cash"})
	assert.ErrorIs(t, err, ErrExceedsBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPaymentSettledDebtRejectsAnyAmount(t *testing.T) {
	db, mock, cleanup := newDebtMock(t)
	defer cleanup()
	repo := NewDebtRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("d1").
		WillReturnRows(debtRows().AddRow("d1", "s1", "Matrícula", 100000.0, 0.0, time.Now()))
	mock.ExpectRollback()

	_, err := repo.ApplyPayment(context.Background(), "d1", &models.Payment{Amount: 1, Method: "cash"})
	assert.ErrorIs(t, err, ErrExceedsBalance)

	// An amount inside the rounding tolerance must be rejected too, or a
	// payment row would appear without decrementing the balance.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("d1").
		WillReturnRows(debtRows().AddRow("d1", "s1", "Matrícula", 100000.0, 0.0, time.Now()))
	mock.ExpectRollback()

	_, err = repo.ApplyPayment(context.Background(), "d1", &models.Payment{Amount: 0.005, Method: "cash"})
	assert.ErrorIs(t, err, ErrExceedsBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPaymentUnknownDebt(t *testing.T) {
	db, mock, cleanup := newDebtMock(t)
	defer cleanup()
	repo := NewDebtRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.ApplyPayment(context.Background(), "missing", &models.Payment{Amount: 10, Method: "cash"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOutstandingByStudentExcludesSettled(t *testing.T) {
	db, mock, cleanup := newDebtMock(t)
	defer cleanup()
	repo := NewDebtRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM debts WHERE student_id = $1 AND remaining_balance > 0 ORDER BY created_at DESC")).
		WithArgs("s1").
		WillReturnRows(debtRows().AddRow("d2", "s1", "Mensualidad", 50000.0, 20000.0, time.Now()))

	debts, err := repo.ListOutstandingByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, debts, 1)
	assert.Equal(t, "d2", debts[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

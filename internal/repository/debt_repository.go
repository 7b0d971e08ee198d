package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jorgejloo/educativo-api/internal/models"
)

// DebtRepository owns debts and the apply-payment transaction.
type DebtRepository struct {
	db *sqlx.DB
}

// NewDebtRepository constructs the repository.
func NewDebtRepository(db *sqlx.DB) *DebtRepository {
	return &DebtRepository{db: db}
}

// FindByID returns a debt by its ID.
func (r *DebtRepository) FindByID(ctx context.Context, id string) (*models.Debt, error) {
	const query = `SELECT id, student_id, concept, total_amount, remaining_balance, created_at FROM debts WHERE id = $1`
	var debt models.Debt
	if err := r.db.GetContext(ctx, &debt, query, id); err != nil {
		return nil, err
	}
	return &debt, nil
}

// ListOutstandingByStudent returns the student's open debts, most recently
// created first. Settled debts are excluded.
func (r *DebtRepository) ListOutstandingByStudent(ctx context.Context, studentID string) ([]models.Debt, error) {
	const query = `SELECT id, student_id, concept, total_amount, remaining_balance, created_at
        FROM debts WHERE student_id = $1 AND remaining_balance > 0 ORDER BY created_at DESC`
	var debts []models.Debt
	if err := r.db.SelectContext(ctx, &debts, query, studentID); err != nil {
		return nil, fmt.Errorf("list outstanding debts: %w", err)
	}
	return debts, nil
}

// Create persists a manually entered debt (an administrator charge outside
// the enrollment flow).
func (r *DebtRepository) Create(ctx context.Context, debt *models.Debt) error {
	if debt.ID == "" {
		debt.ID = uuid.NewString()
	}
	if debt.CreatedAt.IsZero() {
		debt.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO debts (id, student_id, concept, total_amount, remaining_balance, created_at)
        VALUES (:id, :student_id, :concept, :total_amount, :remaining_balance, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, debt); err != nil {
		return fmt.Errorf("create debt: %w", err)
	}
	return nil
}

// ApplyPayment decrements the debt's remaining balance and records the
// payment within one transaction. The debt row is locked for the duration
// so two concurrent payments cannot both validate against a stale balance.
// Returns the updated debt; sql.ErrNoRows when the debt does not exist and
// ErrExceedsBalance when the amount does not fit the remaining balance.
func (r *DebtRepository) ApplyPayment(ctx context.Context, debtID string, payment *models.Payment) (*models.Debt, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin payment tx: %w", err)
	}

	var debt models.Debt
	const selectQuery = `SELECT id, student_id, concept, total_amount, remaining_balance, created_at FROM debts WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &debt, selectQuery, debtID); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, err
	}

	if !debt.CanApply(payment.Amount) {
		tx.Rollback() //nolint:errcheck
		return nil, ErrExceedsBalance
	}
	debt.Apply(payment.Amount)

	const updateQuery = `UPDATE debts SET remaining_balance = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery, debt.ID, debt.RemainingBalance); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("update debt balance: %w", err)
	}

	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	payment.DebtID = debt.ID
	payment.StudentID = debt.StudentID
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	const insertQuery = `INSERT INTO payments (id, debt_id, student_id, amount, method, created_at)
        VALUES (:id, :debt_id, :student_id, :amount, :method, :created_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, payment); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit payment tx: %w", err)
	}
	return &debt, nil
}

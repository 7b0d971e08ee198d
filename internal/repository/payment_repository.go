package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jorgejloo/educativo-api/internal/models"
)

// PaymentRepository reads the append-only payment ledger. Payments are
// created exclusively through DebtRepository.ApplyPayment; there are no
// update or delete operations here on purpose.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentJoin = `FROM payments p
LEFT JOIN students s ON s.id = p.student_id
LEFT JOIN debts d ON d.id = p.debt_id`

const paymentColumns = `p.id, p.debt_id, p.student_id, p.amount, p.method, p.created_at,
        s.full_name AS student_name, s.document AS student_document, s.phone AS student_phone,
        d.concept AS debt_concept, d.remaining_balance`

func paymentFilterClause(filter models.PaymentFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("p.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.DebtID != "" {
		conditions = append(conditions, fmt.Sprintf("p.debt_id = $%d", len(args)+1))
		args = append(args, filter.DebtID)
	}
	if filter.Document != "" {
		conditions = append(conditions, fmt.Sprintf("s.document = $%d", len(args)+1))
		args = append(args, filter.Document)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns payments with student context, newest first.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	clause, args := paymentFilterClause(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s
        %s ORDER BY p.created_at DESC LIMIT %d OFFSET %d`, paymentColumns, paymentJoin+clause, size, offset)

	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", paymentJoin+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// ListAll returns every payment matching the filter, oldest first, without
// pagination. It backs the CSV export, which covers the whole ledger.
func (r *PaymentRepository) ListAll(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, error) {
	clause, args := paymentFilterClause(filter)

	query := fmt.Sprintf(`SELECT %s
        %s ORDER BY p.created_at ASC`, paymentColumns, paymentJoin+clause)

	var payments []models.PaymentDetail
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("list all payments: %w", err)
	}
	return payments, nil
}

// FindDetailByID returns one payment joined with the student and debt
// context needed to render its receipt.
func (r *PaymentRepository) FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	const query = `SELECT p.id, p.debt_id, p.student_id, p.amount, p.method, p.created_at,
        s.full_name AS student_name, s.document AS student_document, s.phone AS student_phone,
        d.concept AS debt_concept, d.remaining_balance
        FROM payments p
        LEFT JOIN students s ON s.id = p.student_id
        LEFT JOIN debts d ON d.id = p.debt_id
        WHERE p.id = $1`
	var detail models.PaymentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jorgejloo/educativo-api/internal/dto"
)

// StatsRepository aggregates ledger figures for the admin dashboard.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs the repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Summary computes the dashboard aggregates in one round trip.
func (r *StatsRepository) Summary(ctx context.Context) (*dto.DashboardSummary, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM students WHERE active = true) AS active_students,
        (SELECT COUNT(*) FROM enrollments) AS enrollments,
        (SELECT COUNT(*) FROM debts WHERE remaining_balance > 0) AS open_debts,
        (SELECT COALESCE(SUM(remaining_balance), 0) FROM debts) AS outstanding_total,
        (SELECT COALESCE(SUM(amount), 0) FROM payments) AS collected_total`
	var row struct {
		ActiveStudents   int     `db:"active_students"`
		Enrollments      int     `db:"enrollments"`
		OpenDebts        int     `db:"open_debts"`
		OutstandingTotal float64 `db:"outstanding_total"`
		CollectedTotal   float64 `db:"collected_total"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	return &dto.DashboardSummary{
		ActiveStudents:   row.ActiveStudents,
		Enrollments:      row.Enrollments,
		OpenDebts:        row.OpenDebts,
		OutstandingTotal: row.OutstandingTotal,
		CollectedTotal:   row.CollectedTotal,
	}, nil
}

package models

import "time"

// BalanceTolerance absorbs floating-point rounding from callers when a
// payment is validated against the remaining balance. It never permits a
// real overpayment.
const BalanceTolerance = 0.01

// Debt is an outstanding obligation tied to one student and one billable
// event. TotalAmount is fixed at creation; RemainingBalance only decreases,
// and only through payment application.
type Debt struct {
	ID               string    `db:"id" json:"id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	Concept          string    `db:"concept" json:"concept"`
	TotalAmount      float64   `db:"total_amount" json:"total_amount"`
	RemainingBalance float64   `db:"remaining_balance" json:"remaining_balance"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// DebtDetail enriches Debt with the owning student.
type DebtDetail struct {
	Debt
	StudentName     string `db:"student_name" json:"student_name"`
	StudentDocument string `db:"student_document" json:"student_document"`
}

// Settled reports whether the debt has been fully paid.
func (d *Debt) Settled() bool {
	return d.RemainingBalance <= 0
}

// CanApply reports whether amount fits within the remaining balance plus
// the rounding tolerance. A settled debt accepts nothing: the tolerance
// only absorbs rounding against a positive balance.
func (d *Debt) CanApply(amount float64) bool {
	if d.Settled() {
		return false
	}
	return amount <= d.RemainingBalance+BalanceTolerance
}

// Apply decrements the remaining balance by amount, clamped at zero, and
// returns the new balance. Callers must have validated with CanApply first.
func (d *Debt) Apply(amount float64) float64 {
	balance := d.RemainingBalance - amount
	if balance < 0 {
		balance = 0
	}
	d.RemainingBalance = balance
	return balance
}

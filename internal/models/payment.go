package models

import "time"

// Payment is an append-only ledger entry recording money applied to a debt.
// Payments are immutable once created.
type Payment struct {
	ID        string    `db:"id" json:"id"`
	DebtID    string    `db:"debt_id" json:"debt_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Amount    float64   `db:"amount" json:"amount"`
	Method    string    `db:"method" json:"method"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PaymentDetail joins a payment with its student and debt context, enough
// to render a receipt.
type PaymentDetail struct {
	Payment
	StudentName      string  `db:"student_name" json:"student_name"`
	StudentDocument  string  `db:"student_document" json:"student_document"`
	StudentPhone     string  `db:"student_phone" json:"student_phone"`
	DebtConcept      string  `db:"debt_concept" json:"debt_concept"`
	RemainingBalance float64 `db:"remaining_balance" json:"remaining_balance"`
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	StudentID string
	DebtID    string
	Document  string
	Page      int
	PageSize  int
}

package dto

import "github.com/jorgejloo/educativo-api/internal/models"

// EnrollResult is returned after a successful enrollment, carrying the debt
// when one was created alongside it.
type EnrollResult struct {
	Enrollment *models.EnrollmentDetail `json:"enrollment"`
	Debt       *models.Debt             `json:"debt,omitempty"`
}

// PaymentResult is returned after a payment is applied, with everything the
// caller needs for receipt generation.
type PaymentResult struct {
	Payment          *models.Payment `json:"payment"`
	RemainingBalance float64         `json:"remaining_balance"`
	ReceiptToken     string          `json:"receipt_token,omitempty"`
}

// OutstandingDebt is one row of a student's open-debt lookup.
type OutstandingDebt struct {
	DebtID           string  `json:"debt_id"`
	Concept          string  `json:"concept"`
	TotalAmount      float64 `json:"total_amount"`
	RemainingBalance float64 `json:"remaining_balance"`
}

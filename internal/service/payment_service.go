package service

import (
	"context"
	"database/sql"
	"errors"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jorgejloo/educativo-api/internal/dto"
	"github.com/jorgejloo/educativo-api/internal/models"
	"github.com/jorgejloo/educativo-api/internal/repository"
	appErrors "github.com/jorgejloo/educativo-api/pkg/errors"
)

type debtRepository interface {
	FindByID(ctx context.Context, id string) (*models.Debt, error)
	ListOutstandingByStudent(ctx context.Context, studentID string) ([]models.Debt, error)
	Create(ctx context.Context, debt *models.Debt) error
	ApplyPayment(ctx context.Context, debtID string, payment *models.Payment) (*models.Debt, error)
}

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error)
	FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByDocument(ctx context.Context, document string) (*models.Student, error)
}

type receiptIssuer interface {
	Issue(ctx context.Context, payment *models.PaymentDetail) (string, error)
}

// ApplyPaymentRequest records a payment against an open debt.
type ApplyPaymentRequest struct {
	DebtID string  `json:"debt_id" validate:"required"`
	Amount float64 `json:"amount"`
	Method string  `json:"method"`
}

// CreateDebtRequest registers a manual charge against a student.
type CreateDebtRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	Concept   string  `json:"concept" validate:"required"`
	Amount    float64 `json:"amount" validate:"required"`
}

// PaymentService applies payments, lists the ledger and answers the
// public outstanding-debt lookup.
type PaymentService struct {
	debts     debtRepository
	payments  paymentRepository
	students  studentReader
	receipts  receiptIssuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs PaymentService. receipts may be nil when
// receipt generation is disabled.
func NewPaymentService(debts debtRepository, payments paymentRepository, students studentReader, receipts receiptIssuer, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{debts: debts, payments: payments, students: students, receipts: receipts, validator: validate, logger: logger}
}

// ApplyPayment validates the amount, decrements the debt balance and
// records an immutable payment row, all within one transaction in the
// repository. On success it issues a signed receipt token when a
// receipt issuer is configured.
func (s *PaymentService) ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*dto.PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "debt and amount are required")
	}
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "")
	}

	method := req.Method
	if method == "" {
		method = "Efectivo"
	}
	payment := &models.Payment{Amount: req.Amount, Method: method}

	debt, err := s.debts.ApplyPayment(ctx, req.DebtID, payment)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "debt not found")
		case errors.Is(err, repository.ErrExceedsBalance):
			return nil, appErrors.Clone(appErrors.ErrExceedsBalance, "")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply payment")
		}
	}

	result := &dto.PaymentResult{Payment: payment, RemainingBalance: debt.RemainingBalance}

	if s.receipts != nil {
		detail, err := s.payments.FindDetailByID(ctx, payment.ID)
		if err != nil {
			s.logger.Warn("payment recorded but receipt context unavailable",
				zap.String("payment_id", payment.ID), zap.Error(err))
			return result, nil
		}
		token, err := s.receipts.Issue(ctx, detail)
		if err != nil {
			// The payment is committed; a failed receipt must not undo it.
			s.logger.Warn("payment recorded but receipt generation failed",
				zap.String("payment_id", payment.ID), zap.Error(err))
			return result, nil
		}
		result.ReceiptToken = token
	}

	s.logger.Info("payment applied",
		zap.String("payment_id", payment.ID),
		zap.String("debt_id", debt.ID),
		zap.Float64("amount", payment.Amount),
		zap.Float64("remaining_balance", debt.RemainingBalance))

	return result, nil
}

// CreateDebt registers a manual charge for a student.
func (s *PaymentService) CreateDebt(ctx context.Context, req CreateDebtRequest) (*models.Debt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "student, concept and amount are required")
	}
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidAmount, "")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	debt := &models.Debt{
		StudentID:        req.StudentID,
		Concept:          req.Concept,
		TotalAmount:      req.Amount,
		RemainingBalance: req.Amount,
	}
	if err := s.debts.Create(ctx, debt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create debt")
	}

	s.logger.Info("debt created", zap.String("debt_id", debt.ID), zap.Float64("amount", debt.TotalAmount))
	return debt, nil
}

// OutstandingByDocument is the public lookup: given a student document it
// returns the open debts, omitting settled ones.
func (s *PaymentService) OutstandingByDocument(ctx context.Context, document string) (*models.Student, []dto.OutstandingDebt, error) {
	if document == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "document is required")
	}

	student, err := s.students.FindByDocument(ctx, document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "no student registered with that document")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	debts, err := s.debts.ListOutstandingByStudent(ctx, student.ID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list debts")
	}

	outstanding := make([]dto.OutstandingDebt, 0, len(debts))
	for _, d := range debts {
		outstanding = append(outstanding, dto.OutstandingDebt{
			DebtID:           d.ID,
			Concept:          d.Concept,
			TotalAmount:      d.TotalAmount,
			RemainingBalance: d.RemainingBalance,
		})
	}
	return student, outstanding, nil
}

// GetDebt returns a single debt by ID.
func (s *PaymentService) GetDebt(ctx context.Context, id string) (*models.Debt, error) {
	debt, err := s.debts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "debt not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load debt")
	}
	return debt, nil
}

// List returns the payment ledger, newest first.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, *models.Pagination, error) {
	payments, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return payments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetPayment returns one payment with student and debt context.
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*models.PaymentDetail, error) {
	payment, err := s.payments.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}
	return payment, nil
}

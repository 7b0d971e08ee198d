package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorgejloo/educativo-api/internal/models"
	"github.com/jorgejloo/educativo-api/internal/repository"
	appErrors "github.com/jorgejloo/educativo-api/pkg/errors"
)

type mockDebtRepo struct {
	debts    map[string]*models.Debt
	payments []models.Payment
}

func (m *mockDebtRepo) FindByID(ctx context.Context, id string) (*models.Debt, error) {
	debt, ok := m.debts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *debt
	return &copied, nil
}

func (m *mockDebtRepo) ListOutstandingByStudent(ctx context.Context, studentID string) ([]models.Debt, error) {
	var result []models.Debt
	for _, d := range m.debts {
		if d.StudentID == studentID && !d.Settled() {
			result = append(result, *d)
		}
	}
	return result, nil
}

func (m *mockDebtRepo) Create(ctx context.Context, debt *models.Debt) error {
	if m.debts == nil {
		m.debts = make(map[string]*models.Debt)
	}
	debt.ID = uuid.NewString()
	copied := *debt
	m.debts[debt.ID] = &copied
	return nil
}

func (m *mockDebtRepo) ApplyPayment(ctx context.Context, debtID string, payment *models.Payment) (*models.Debt, error) {
	debt, ok := m.debts[debtID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if !debt.CanApply(payment.Amount) {
		return nil, repository.ErrExceedsBalance
	}
	debt.Apply(payment.Amount)
	payment.ID = uuid.NewString()
	payment.DebtID = debt.ID
	payment.StudentID = debt.StudentID
	m.payments = append(m.payments, *payment)
	copied := *debt
	return &copied, nil
}

type mockPaymentRepo struct {
	details map[string]models.PaymentDetail
}

func (m *mockPaymentRepo) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	var result []models.PaymentDetail
	for _, d := range m.details {
		result = append(result, d)
	}
	return result, len(result), nil
}

func (m *mockPaymentRepo) FindDetailByID(ctx context.Context, id string) (*models.PaymentDetail, error) {
	detail, ok := m.details[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &detail, nil
}

type mockStudentReader struct {
	students map[string]*models.Student
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for _, s := range m.students {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentReader) FindByDocument(ctx context.Context, document string) (*models.Student, error) {
	s, ok := m.students[document]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func newLedgerFixture(t *testing.T, total float64) (*PaymentService, *mockDebtRepo, string) {
	t.Helper()
	student := &models.Student{ID: uuid.NewString(), FullName: "Ana García", Document: "123", Active: true}
	debt := &models.Debt{
		ID:               uuid.NewString(),
		StudentID:        student.ID,
		Concept:          "Matrícula curso Matemáticas",
		TotalAmount:      total,
		RemainingBalance: total,
	}
	debts := &mockDebtRepo{debts: map[string]*models.Debt{debt.ID: debt}}
	students := &mockStudentReader{students: map[string]*models.Student{student.Document: student}}
	svc := NewPaymentService(debts, &mockPaymentRepo{}, students, nil, nil, nil)
	return svc, debts, debt.ID
}

func TestApplyPaymentDecrementsBalance(t *testing.T) {
	svc, debts, debtID := newLedgerFixture(t, 100000)

	result, err := svc.ApplyPayment(context.Background(), ApplyPaymentRequest{DebtID: debtID, Amount: 40000, Method: "Efectivo"})
	require.NoError(t, err)
	assert.Equal(t, 60000.0, result.RemainingBalance)
	assert.Equal(t, 40000.0, result.Payment.Amount)

	result, err = svc.ApplyPayment(context.Background(), ApplyPaymentRequest{DebtID: debtID, Amount: 60000})
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.RemainingBalance)
	assert.True(t, debts.debts[debtID].Settled())
	assert.Len(t, debts.payments, 2)
}

func TestApplyPaymentRejectsOverpayment(t *testing.T) {
	svc, debts, debtID := newLedgerFixture(t, 100000)

	_, err := svc.ApplyPayment(context.Background(), ApplyPaymentRequest{DebtID: debtID, Amount: 150000})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrExceedsBalance.Code, appErr.Code)

	// Nothing was recorded and the balance is untouched.
	assert.Empty(t, debts.payments)
	assert.Equal(t, 100000.0, debts.debts[debtID].RemainingBalance)
}

func TestApplyPaymentSettledDebtAcceptsNothing(t *testing.T) {
	svc, debts, debtID := newLedgerFixture(t, 50000)

	_, err := svc.ApplyPayment(context.Background(), ApplyPaymentRequest{DebtID: debtID, Amount: 50000})
	require.NoError(t, err)

	_, err = svc.ApplyPayment(context.Background(), ApplyPaymentRequest{DebtID: debtID, Amount: 1})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExceedsBalance.Code, appErrors.FromError(err).Code)

	// An amount inside the rounding tolerance is refused too; otherwise a
	// payment row would be recorded against a balance clamped at zero.
	_, err = svc.ApplyPayment(context.Background(), ApplyPaymentRequest{DebtID: debtID, Amount: 0.005})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrExceedsBalance.Code, appErrors.FromError(err).Code)

	var paid float64
	for _, p := range debts.payments {
		paid += p.Amount
	}
	assert.Equal(t, debts.debts[debtID].TotalAmount, paid)
}

func TestApplyPaymentRejectsInvalidAmounts(t *testing.T) {
	svc, _, debtID := newLedgerFixture(t, 100000)

	// Zero and negative amounts share the same error code.
	for _, amount := range []float64{0, -100} {
		_, err := svc.ApplyPayment(context.Background(), ApplyPaymentRequest{DebtID: debtID, Amount: amount})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrInvalidAmount.Code, appErrors.FromError(err).Code)
	}
}

func TestApplyPaymentUnknownDebt(t *testing.T) {
	svc, _, _ := newLedgerFixture(t, 100000)

	_, err := svc.ApplyPayment(context.Background(), ApplyPaymentRequest{DebtID: uuid.NewString(), Amount: 1000})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOutstandingByDocumentOmitsSettledDebts(t *testing.T) {
	svc, debts, debtID := newLedgerFixture(t, 100000)

	// A second debt that gets fully paid.
	settled := &models.Debt{
		ID:               uuid.NewString(),
		StudentID:        debts.debts[debtID].StudentID,
		Concept:          "Curso de verano",
		TotalAmount:      20000,
		RemainingBalance: 0,
	}
	debts.debts[settled.ID] = settled

	student, outstanding, err := svc.OutstandingByDocument(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "Ana García", student.FullName)
	require.Len(t, outstanding, 1)
	assert.Equal(t, debtID, outstanding[0].DebtID)
	assert.Equal(t, 100000.0, outstanding[0].RemainingBalance)
}

func TestOutstandingByDocumentUnknownStudent(t *testing.T) {
	svc, _, _ := newLedgerFixture(t, 100000)

	_, _, err := svc.OutstandingByDocument(context.Background(), "999")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateDebtRequiresExistingStudent(t *testing.T) {
	svc, _, _ := newLedgerFixture(t, 100000)

	_, err := svc.CreateDebt(context.Background(), CreateDebtRequest{StudentID: uuid.NewString(), Concept: "Mensualidad", Amount: 30000})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateDebtInitialBalanceEqualsTotal(t *testing.T) {
	svc, debts, debtID := newLedgerFixture(t, 100000)
	studentID := debts.debts[debtID].StudentID

	debt, err := svc.CreateDebt(context.Background(), CreateDebtRequest{StudentID: studentID, Concept: "Mensualidad", Amount: 30000})
	require.NoError(t, err)
	assert.Equal(t, debt.TotalAmount, debt.RemainingBalance)
	assert.Equal(t, 30000.0, debt.TotalAmount)
}

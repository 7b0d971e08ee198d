package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorgejloo/educativo-api/internal/dto"
	"github.com/jorgejloo/educativo-api/internal/models"
)

type mockStatsRepo struct {
	summary *dto.DashboardSummary
	calls   int
}

func (m *mockStatsRepo) Summary(ctx context.Context) (*dto.DashboardSummary, error) {
	m.calls++
	return m.summary, nil
}

type mockSummaryCache struct {
	entries map[string]dto.DashboardSummary
	getErr  error
}

func (m *mockSummaryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	cached, ok := m.entries[key]
	if !ok {
		return errors.New("cache miss")
	}
	*dest.(*dto.DashboardSummary) = cached
	return nil
}

func (m *mockSummaryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string]dto.DashboardSummary)
	}
	m.entries[key] = *value.(*dto.DashboardSummary)
	return nil
}

func (m *mockSummaryCache) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

type mockPaymentLister struct {
	payments   []models.PaymentDetail
	lastFilter models.PaymentFilter
}

func (m *mockPaymentLister) ListAll(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, error) {
	m.lastFilter = filter
	return m.payments, nil
}

func TestExportPaymentsCoversFullLedger(t *testing.T) {
	lister := &mockPaymentLister{}
	for i := 0; i < 25; i++ {
		lister.payments = append(lister.payments, models.PaymentDetail{
			Payment: models.Payment{
				ID:        fmt.Sprintf("p%02d", i),
				Amount:    1000,
				Method:    "Efectivo",
				CreatedAt: time.Date(2026, 8, 1, 10, i, 0, 0, time.UTC),
			},
			StudentName:     "Ana García",
			StudentDocument: "123",
			DebtConcept:     "Matrícula curso Matemáticas",
		})
	}
	svc := NewDashboardService(&mockStatsRepo{}, nil, lister, 0, nil)

	data, filename, err := svc.ExportPayments(context.Background(), models.PaymentFilter{PageSize: 5})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "pagos-"))

	// Header plus one row per payment, never truncated by pagination.
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Len(t, lines, 26)
	assert.Contains(t, lines[1], "p00")
	assert.Contains(t, lines[25], "p24")
	assert.Zero(t, lister.lastFilter.PageSize)
	assert.Zero(t, lister.lastFilter.Page)
}

func TestSummaryServedFromCache(t *testing.T) {
	stats := &mockStatsRepo{summary: &dto.DashboardSummary{ActiveStudents: 7, CollectedTotal: 120000}}
	cache := &mockSummaryCache{}
	svc := NewDashboardService(stats, cache, &mockPaymentLister{}, time.Minute, nil)

	first, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, first.ActiveStudents)

	_, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.calls)
}

func TestSummaryCacheFailureFallsBackToStore(t *testing.T) {
	stats := &mockStatsRepo{summary: &dto.DashboardSummary{OpenDebts: 3}}
	cache := &mockSummaryCache{getErr: errors.New("redis down")}
	svc := NewDashboardService(stats, cache, &mockPaymentLister{}, time.Minute, nil)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.OpenDebts)
}

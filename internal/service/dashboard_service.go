package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jorgejloo/educativo-api/internal/dto"
	"github.com/jorgejloo/educativo-api/internal/models"
	appErrors "github.com/jorgejloo/educativo-api/pkg/errors"
	"github.com/jorgejloo/educativo-api/pkg/export"
)

const dashboardCacheKey = "dashboard:summary"

type statsRepository interface {
	Summary(ctx context.Context) (*dto.DashboardSummary, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type paymentLister interface {
	ListAll(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, error)
}

// DashboardService aggregates the admin summary counters, caching them
// in Redis, and exports the payment ledger as CSV.
type DashboardService struct {
	stats    statsRepository
	cache    summaryCache
	payments paymentLister
	exporter *export.CSVExporter
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs DashboardService. cache may be nil to
// disable caching.
func NewDashboardService(stats statsRepository, cache summaryCache, payments paymentLister, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		stats:    stats,
		cache:    cache,
		payments: payments,
		exporter: export.NewCSVExporter(),
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Summary returns the dashboard counters, served from cache when fresh.
// Cache failures degrade to a direct database read.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardSummary, error) {
	if s.cache != nil {
		var cached dto.DashboardSummary
		if err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	summary, err := s.stats.Summary(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard summary")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard summary", zap.Error(err))
		}
	}
	return summary, nil
}

// Invalidate drops the cached summary. Called after ledger writes.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

// ExportPayments renders the full payment ledger as CSV, ignoring any
// pagination in the filter.
func (s *DashboardService) ExportPayments(ctx context.Context, filter models.PaymentFilter) ([]byte, string, error) {
	filter.Page = 0
	filter.PageSize = 0
	payments, err := s.payments.ListAll(ctx, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments for export")
	}

	dataset := export.Dataset{
		Headers: []string{"id", "fecha", "estudiante", "documento", "concepto", "metodo", "valor", "saldo"},
	}
	for _, p := range payments {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"id":         p.ID,
			"fecha":      p.CreatedAt.Format("2006-01-02 15:04:05"),
			"estudiante": p.StudentName,
			"documento":  p.StudentDocument,
			"concepto":   p.DebtConcept,
			"metodo":     p.Method,
			"valor":      strconv.FormatFloat(p.Amount, 'f', 2, 64),
			"saldo":      strconv.FormatFloat(p.RemainingBalance, 'f', 2, 64),
		})
	}

	data, err := s.exporter.Render(dataset)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	filename := fmt.Sprintf("pagos-%s.csv", time.Now().Format("20060102-150405"))
	return data, filename, nil
}

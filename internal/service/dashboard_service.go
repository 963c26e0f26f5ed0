package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/inventory-loan-api/internal/models"
	"github.com/noah-isme/inventory-loan-api/internal/repository"
	appErrors "github.com/noah-isme/inventory-loan-api/pkg/errors"
)

const (
	dashboardCacheKey    = "dashboard:summary"
	dashboardRecentLimit = 10
)

type itemCounter interface {
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
}

type loanCounter interface {
	CountOpen(ctx context.Context, now time.Time) (repository.OpenLoanCounts, error)
}

type qrCounter interface {
	CountUnassigned(ctx context.Context) (int, error)
}

type activityLister interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error)
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Items      itemCounter
	Loans      loanCounter
	QRCodes    qrCounter
	Activities activityLister
	Cache      *CacheService
	CacheTTL   time.Duration
	Logger     *zap.Logger
}

// DashboardService composes the inventory overview.
type DashboardService struct {
	items      itemCounter
	loans      loanCounter
	qrcodes    qrCounter
	activities activityLister
	cache      *CacheService
	ttl        time.Duration
	logger     *zap.Logger
	serviceOptions
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(params DashboardServiceParams, opts ...Option) *DashboardService {
	return &DashboardService{
		items:          params.Items,
		loans:          params.Loans,
		qrcodes:        params.QRCodes,
		activities:     params.Activities,
		cache:          params.Cache,
		ttl:            params.CacheTTL,
		logger:         defaultLogger(params.Logger),
		serviceOptions: applyOptions(opts),
	}
}

// Summary returns the cached overview when fresh, otherwise recomputes it.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, bool, error) {
	var cached models.DashboardSummary
	if s.cache.Get(ctx, dashboardCacheKey, &cached) {
		return &cached, true, nil
	}

	now := s.clock()
	counts, err := s.items.CountByStatus(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count items")
	}
	loans, err := s.loans.CountOpen(ctx, now)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count loans")
	}
	unassigned, err := s.qrcodes.CountUnassigned(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count qr codes")
	}
	recent, err := s.activities.List(ctx, models.ActivityFilter{Limit: dashboardRecentLimit})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent activity")
	}

	summary := &models.DashboardSummary{
		ItemsByStatus: map[string]int{
			string(models.ItemStatusAvailable):   0,
			string(models.ItemStatusLoaned):      0,
			string(models.ItemStatusMaintenance): 0,
		},
		ActiveLoans:      loans.Active,
		OverdueLoans:     loans.Overdue,
		UnassignedQR:     unassigned,
		RecentActivities: recent,
		GeneratedAt:      now,
	}
	for _, c := range counts {
		summary.ItemsByStatus[c.Status] = c.Count
		summary.TotalItems += c.Count
	}

	if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.ttl); err != nil {
		s.logger.Debug("dashboard summary not cached", zap.Error(err))
	}
	return summary, false, nil
}

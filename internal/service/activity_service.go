package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/inventory-loan-api/internal/dto"
	"github.com/noah-isme/inventory-loan-api/internal/models"
	appErrors "github.com/noah-isme/inventory-loan-api/pkg/errors"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

type activityStore interface {
	Create(ctx context.Context, activity *models.Activity) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error)
}

// ActivityService exposes the append-only activity log.
type ActivityService struct {
	repo      activityStore
	items     itemReader
	validator *validator.Validate
	logger    *zap.Logger
	serviceOptions
}

// NewActivityService constructs an ActivityService.
func NewActivityService(repo activityStore, items itemReader, validate *validator.Validate, logger *zap.Logger, opts ...Option) *ActivityService {
	return &ActivityService{
		repo:           repo,
		items:          items,
		validator:      defaultValidator(validate),
		logger:         defaultLogger(logger),
		serviceOptions: applyOptions(opts),
	}
}

// Append records an entry on its own. Entries belonging to a state change are written by the
// repository inside that change's transaction instead.
func (s *ActivityService) Append(ctx context.Context, entry models.Activity) (*models.Activity, error) {
	entry.Description = strings.TrimSpace(entry.Description)
	if entry.Type == "" || entry.Description == "" {
		return nil, appErrors.Validation("invalid activity", map[string]string{"type": "required", "description": "required"})
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock()
	}
	if err := s.repo.Create(ctx, &entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append activity")
	}
	s.invalidate(ctx, s.logger)
	return &entry, nil
}

// List returns the newest entries first.
func (s *ActivityService) List(ctx context.Context, query dto.ActivityQuery) ([]models.Activity, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationFailure(err, "invalid activity query")
	}
	filter := models.ActivityFilter{Type: models.ActivityType(query.Type), Limit: clampActivityLimit(query.Limit)}
	if query.ItemID > 0 {
		id := query.ItemID
		filter.ItemID = &id
	}
	return s.list(ctx, filter)
}

// ListByItem returns the history of one item, newest first.
func (s *ActivityService) ListByItem(ctx context.Context, itemID int64) ([]models.Activity, error) {
	if _, err := s.items.FindByID(ctx, itemID); err != nil {
		return nil, itemLookupError(err)
	}
	return s.list(ctx, models.ActivityFilter{ItemID: &itemID, Limit: maxActivityLimit})
}

func (s *ActivityService) list(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	activities, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	return activities, nil
}

func clampActivityLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultActivityLimit
	case limit > maxActivityLimit:
		return maxActivityLimit
	}
	return limit
}

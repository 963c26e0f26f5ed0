package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/inventory-loan-api/internal/dto"
	"github.com/noah-isme/inventory-loan-api/internal/models"
	"github.com/noah-isme/inventory-loan-api/internal/repository"
	appErrors "github.com/noah-isme/inventory-loan-api/pkg/errors"
	"github.com/noah-isme/inventory-loan-api/pkg/identifier"
)

type itemStore interface {
	Create(ctx context.Context, item *models.Item, activity *models.Activity) error
	FindByID(ctx context.Context, id int64) (*models.Item, error)
	FindByCode(ctx context.Context, code string) (*models.Item, error)
	List(ctx context.Context, filter models.ItemFilter) ([]models.Item, int, error)
	Update(ctx context.Context, item *models.Item, expected models.ItemStatus, activity *models.Activity) error
	Delete(ctx context.Context, id int64, activity *models.Activity) error
}

// ItemService manages the inventory item records.
type ItemService struct {
	repo      itemStore
	ids       *identifier.Generator
	validator *validator.Validate
	logger    *zap.Logger
	serviceOptions
}

// NewItemService creates an ItemService. ids generates item codes when the caller omits one.
func NewItemService(repo itemStore, ids *identifier.Generator, validate *validator.Validate, logger *zap.Logger, opts ...Option) *ItemService {
	if ids == nil {
		ids = identifier.NewGenerator("")
	}
	return &ItemService{
		repo:           repo,
		ids:            ids,
		validator:      defaultValidator(validate),
		logger:         defaultLogger(logger),
		serviceOptions: applyOptions(opts),
	}
}

// Create registers a new item with status available unless maintenance is requested.
func (s *ItemService) Create(ctx context.Context, req dto.CreateItemRequest) (*models.Item, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid item payload")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, appErrors.Validation("invalid item payload", map[string]string{"name": "required"})
	}

	itemID := strings.TrimSpace(req.ItemID)
	if itemID == "" {
		itemID = s.ids.Generate("")
	}
	status := req.Status
	if status == "" {
		status = models.ItemStatusAvailable
	}
	origin := req.Origin
	if origin == "" {
		origin = models.ItemOriginPurchased
	}

	now := s.clock()
	item := &models.Item{
		ItemID:      itemID,
		Name:        name,
		Description: trimmedPtr(req.Description),
		Location:    trimmedPtr(req.Location),
		PhotoURL:    trimmedPtr(req.PhotoURL),
		Origin:      origin,
		DonorName:   trimmedPtr(req.DonorName),
		Barcode:     trimmedPtr(req.Barcode),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	activity := &models.Activity{
		Type:        models.ActivityNew,
		Description: fmt.Sprintf("Item %q (%s) added", item.Name, item.ItemID),
		Metadata:    models.Metadata{"itemId": item.ItemID, "name": item.Name, "origin": string(item.Origin)},
		CreatedAt:   now,
	}

	if err := s.repo.Create(ctx, item, activity); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("item id %s already exists", itemID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create item")
	}

	s.invalidate(ctx, s.logger)
	s.logger.Info("item created", zap.Int64("id", item.ID), zap.String("item_id", item.ItemID))
	return item, nil
}

// Get fetches an item by its internal id.
func (s *ItemService) Get(ctx context.Context, id int64) (*models.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, itemLookupError(err)
	}
	return item, nil
}

// GetByCode resolves an item by itemId, QR code or barcode.
func (s *ItemService) GetByCode(ctx context.Context, code string) (*models.Item, error) {
	code = strings.TrimSpace(code)
	if !identifier.IsValid(code) {
		return nil, appErrors.Validation("code is required", map[string]string{"code": "required"})
	}
	item, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, itemLookupError(err)
	}
	return item, nil
}

// Lookup extracts an identifier from a raw scan payload and resolves the item.
func (s *ItemService) Lookup(ctx context.Context, payload string) (*models.Item, error) {
	code, ok := identifier.Extract(payload)
	if !ok {
		return nil, appErrors.Validation("unrecognised scan payload", map[string]string{"code": "format"})
	}
	return s.GetByCode(ctx, code)
}

// List returns a page of items and pagination metadata.
func (s *ItemService) List(ctx context.Context, query dto.ItemQuery) ([]models.Item, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationFailure(err, "invalid item query")
	}
	filter := models.ItemFilter{
		Status:   models.ItemStatus(query.Status),
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list items")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Update applies a partial edit. The loaned status is owned by the loan lifecycle and cannot be
// entered or left through an edit.
func (s *ItemService) Update(ctx context.Context, id int64, req dto.UpdateItemRequest) (*models.Item, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid item payload")
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, itemLookupError(err)
	}

	updated := *current
	var changes []string
	metadata := models.Metadata{}

	if req.ItemID != nil {
		next := strings.TrimSpace(*req.ItemID)
		if next == "" {
			return nil, appErrors.Validation("invalid item payload", map[string]string{"itemId": "required"})
		}
		if next != current.ItemID {
			updated.ItemID = next
			metadata["previousItemId"] = current.ItemID
			changes = append(changes, "itemId")
		}
	}
	if req.Name != nil {
		next := strings.TrimSpace(*req.Name)
		if next == "" {
			return nil, appErrors.Validation("invalid item payload", map[string]string{"name": "required"})
		}
		if next != current.Name {
			updated.Name = next
			changes = append(changes, "name")
		}
	}
	if req.Status != nil && *req.Status != current.Status {
		switch {
		case current.Status == models.ItemStatusLoaned:
			return nil, appErrors.Clone(appErrors.ErrItemOnLoan, "item is currently on loan; return the loan to change its status")
		case *req.Status == models.ItemStatusLoaned:
			return nil, appErrors.Clone(appErrors.ErrConflict, "items become loaned only by creating a loan")
		}
		metadata["previousStatus"] = string(current.Status)
		updated.Status = *req.Status
		changes = append(changes, "status")
	}
	if req.Origin != nil && *req.Origin != current.Origin {
		updated.Origin = *req.Origin
		changes = append(changes, "origin")
	}
	changes = applyText(&updated.Description, req.Description, "description", changes)
	changes = applyText(&updated.Location, req.Location, "location", changes)
	changes = applyText(&updated.PhotoURL, req.PhotoURL, "photoUrl", changes)
	changes = applyText(&updated.DonorName, req.DonorName, "donorName", changes)
	changes = applyText(&updated.Barcode, req.Barcode, "barcode", changes)

	if len(changes) == 0 {
		return current, nil
	}

	now := s.clock()
	updated.UpdatedAt = now
	metadata["itemId"] = updated.ItemID
	metadata["changes"] = changes
	activity := &models.Activity{
		ItemID:      &updated.ID,
		Type:        models.ActivityEdit,
		Description: fmt.Sprintf("Item %q (%s) updated: %s", updated.Name, updated.ItemID, strings.Join(changes, ", ")),
		Metadata:    metadata,
		CreatedAt:   now,
	}

	if err := s.repo.Update(ctx, &updated, current.Status, activity); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("item id %s already exists", updated.ItemID))
		case errors.Is(err, repository.ErrItemChanged):
			return nil, appErrors.Clone(appErrors.ErrConflict, "item status changed concurrently, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update item")
	}

	s.invalidate(ctx, s.logger)
	s.logger.Info("item updated", zap.Int64("id", updated.ID), zap.Strings("changes", changes))
	return &updated, nil
}

// Delete removes an item that is not on loan. The audit entry keeps its name and code.
func (s *ItemService) Delete(ctx context.Context, id int64) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return itemLookupError(err)
	}
	if current.Status == models.ItemStatusLoaned {
		return appErrors.Clone(appErrors.ErrItemOnLoan, "item is currently on loan")
	}

	activity := &models.Activity{
		Type:        models.ActivityDelete,
		Description: fmt.Sprintf("Item %q (%s) deleted", current.Name, current.ItemID),
		Metadata:    models.Metadata{"id": current.ID, "itemId": current.ItemID, "name": current.Name},
		CreatedAt:   s.clock(),
	}
	// The bound QR label is retired with the item and stays assigned.
	if current.QRCode != nil && *current.QRCode != "" {
		activity.Metadata["qrCodeId"] = *current.QRCode
	}
	if err := s.repo.Delete(ctx, id, activity); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "item not found")
		case errors.Is(err, repository.ErrItemOnLoan):
			return appErrors.Clone(appErrors.ErrItemOnLoan, "item is currently on loan")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete item")
	}

	s.invalidate(ctx, s.logger)
	s.logger.Info("item deleted", zap.Int64("id", id), zap.String("item_id", current.ItemID))
	return nil
}

func applyText(dst **string, value *string, field string, changes []string) []string {
	if value == nil {
		return changes
	}
	next := trimmedPtr(value)
	if equalPtr(*dst, next) {
		return changes
	}
	*dst = next
	return append(changes, field)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func itemLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "item not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
}

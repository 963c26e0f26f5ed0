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

type qrCodeStore interface {
	CreateBatch(ctx context.Context, codes []*models.QRCode, activity *models.Activity) error
	FindByCode(ctx context.Context, code string) (*models.QRCode, error)
	List(ctx context.Context, filter models.QRCodeFilter) ([]models.QRCode, error)
	Associate(ctx context.Context, qr *models.QRCode, activity *models.Activity) error
}

// QRCodeService generates QR code batches and binds each code to at most one item.
type QRCodeService struct {
	repo      qrCodeStore
	items     itemReader
	ids       *identifier.Generator
	validator *validator.Validate
	logger    *zap.Logger
	serviceOptions
}

// NewQRCodeService constructs a QRCodeService.
func NewQRCodeService(repo qrCodeStore, items itemReader, ids *identifier.Generator, validate *validator.Validate, logger *zap.Logger, opts ...Option) *QRCodeService {
	if ids == nil {
		ids = identifier.NewGenerator("QR")
	}
	return &QRCodeService{
		repo:           repo,
		items:          items,
		ids:            ids,
		validator:      defaultValidator(validate),
		logger:         defaultLogger(logger),
		serviceOptions: applyOptions(opts),
	}
}

// GenerateBatch creates quantity unassigned codes sharing prefix and a random batch token.
func (s *QRCodeService) GenerateBatch(ctx context.Context, req dto.GenerateQRCodesRequest) ([]models.QRCode, error) {
	req.Prefix = strings.TrimSpace(req.Prefix)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid qr code batch")
	}

	now := s.clock()
	description := trimmedPtr(req.Description)
	ids := s.ids.Batch(req.Prefix, req.Quantity)
	codes := make([]*models.QRCode, len(ids))
	for i, id := range ids {
		codes[i] = &models.QRCode{QRCodeID: id, Description: description, GeneratedAt: now}
	}
	activity := &models.Activity{
		Type:        models.ActivityQRGenerated,
		Description: fmt.Sprintf("%d QR codes generated with prefix %s", len(codes), req.Prefix),
		Metadata:    models.Metadata{"prefix": req.Prefix, "quantity": len(codes), "first": ids[0], "last": ids[len(ids)-1]},
		CreatedAt:   now,
	}

	if err := s.repo.CreateBatch(ctx, codes, activity); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "generated qr code collided, retry the batch")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate qr codes")
	}

	out := make([]models.QRCode, len(codes))
	for i, code := range codes {
		out[i] = *code
	}
	s.invalidate(ctx, s.logger)
	s.logger.Info("qr codes generated", zap.String("prefix", req.Prefix), zap.Int("quantity", len(out)))
	return out, nil
}

// Associate binds an unassigned code to an item. Codes are never reassigned.
func (s *QRCodeService) Associate(ctx context.Context, req dto.AssociateQRCodeRequest) (*models.QRCode, error) {
	req.QRCodeID = strings.TrimSpace(req.QRCodeID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid qr association")
	}

	qr, err := s.repo.FindByCode(ctx, req.QRCodeID)
	if err != nil {
		return nil, qrLookupError(err)
	}
	if qr.IsAssigned {
		return nil, appErrors.Clone(appErrors.ErrQRCodeAssigned, fmt.Sprintf("qr code %s is already assigned", qr.QRCodeID))
	}
	item, err := s.items.FindByID(ctx, req.ItemID)
	if err != nil {
		return nil, itemLookupError(err)
	}

	now := s.clock()
	qr.AssignedItemID = &item.ID
	qr.AssignedAt = &now
	activity := &models.Activity{
		ItemID:      &item.ID,
		Type:        models.ActivityQRAssociated,
		Description: fmt.Sprintf("QR code %s linked to %s", qr.QRCodeID, item.Name),
		Metadata:    models.Metadata{"qrCodeId": qr.QRCodeID, "itemId": item.ItemID},
		CreatedAt:   now,
	}
	if item.QRCode != nil {
		activity.Metadata["previousQrCode"] = *item.QRCode
	}

	if err := s.repo.Associate(ctx, qr, activity); err != nil {
		switch {
		case errors.Is(err, repository.ErrQRCodeAssigned):
			return nil, appErrors.Clone(appErrors.ErrQRCodeAssigned, fmt.Sprintf("qr code %s is already assigned", qr.QRCodeID))
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "qr code or item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to associate qr code")
	}
	qr.IsAssigned = true

	s.metrics.RecordQRAssignment()
	s.invalidate(ctx, s.logger)
	s.logger.Info("qr code associated", zap.String("qr_code_id", qr.QRCodeID), zap.Int64("item_id", item.ID))
	return qr, nil
}

// Get fetches a code by its identifier.
func (s *QRCodeService) Get(ctx context.Context, code string) (*models.QRCode, error) {
	qr, err := s.repo.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, qrLookupError(err)
	}
	return qr, nil
}

// List returns codes, optionally filtered by assignment.
func (s *QRCodeService) List(ctx context.Context, query dto.QRCodeQuery) ([]models.QRCode, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationFailure(err, "invalid qr code query")
	}
	codes, err := s.repo.List(ctx, models.QRCodeFilter{Assigned: query.Assigned, Limit: query.Limit, Offset: query.Offset})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list qr codes")
	}
	return codes, nil
}

// ListUnassigned returns every code still free for association.
func (s *QRCodeService) ListUnassigned(ctx context.Context) ([]models.QRCode, error) {
	assigned := false
	codes, err := s.repo.List(ctx, models.QRCodeFilter{Assigned: &assigned, Unbounded: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list qr codes")
	}
	return codes, nil
}

func qrLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "qr code not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qr code")
}

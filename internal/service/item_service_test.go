package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/inventory-loan-api/internal/dto"
	"github.com/noah-isme/inventory-loan-api/internal/models"
	"github.com/noah-isme/inventory-loan-api/internal/repository"
	appErrors "github.com/noah-isme/inventory-loan-api/pkg/errors"
	"github.com/noah-isme/inventory-loan-api/pkg/identifier"
)

var testNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestItemService(store *stubItemStore, opts ...Option) *ItemService {
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewItemService(store, identifier.NewGenerator("TOOL"), nil, nil, opts...)
}

func TestItemServiceCreateGeneratesIdentifier(t *testing.T) {
	store := newStubItemStore()
	cache := &recordingInvalidator{}
	svc := newTestItemService(store, WithCacheInvalidator(cache))

	item, err := svc.Create(context.Background(), dto.CreateItemRequest{Name: "  Ladder ", Origin: models.ItemOriginDonated, DonorName: strPtr("Rita")})
	require.NoError(t, err)

	assert.Equal(t, "Ladder", item.Name)
	assert.True(t, strings.HasPrefix(item.ItemID, "TOOL-"), item.ItemID)
	assert.Equal(t, models.ItemStatusAvailable, item.Status)
	assert.Equal(t, testNow, item.CreatedAt)
	require.Len(t, store.activities, 1)
	assert.Equal(t, models.ActivityNew, store.activities[0].Type)
	assert.Equal(t, item.ID, *store.activities[0].ItemID)
	assert.Equal(t, []string{DashboardCachePattern}, cache.patterns)
}

func TestItemServiceCreateValidation(t *testing.T) {
	svc := newTestItemService(newStubItemStore())

	_, err := svc.Create(context.Background(), dto.CreateItemRequest{Name: "", Status: models.ItemStatusLoaned})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "required", appErr.Details["name"])
	assert.Equal(t, "oneof", appErr.Details["status"])
}

func TestItemServiceCreateDuplicate(t *testing.T) {
	store := newStubItemStore()
	store.createErr = repository.ErrDuplicate
	svc := newTestItemService(store)

	_, err := svc.Create(context.Background(), dto.CreateItemRequest{ItemID: "TOOL-1", Name: "Saw"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestItemServiceUpdateRecordsPreviousItemID(t *testing.T) {
	store := newStubItemStore(&models.Item{ID: 1, ItemID: "TOOL-1", Name: "Saw", Status: models.ItemStatusAvailable})
	svc := newTestItemService(store)

	item, err := svc.Update(context.Background(), 1, dto.UpdateItemRequest{ItemID: strPtr("TOOL-9"), Location: strPtr("Shelf B")})
	require.NoError(t, err)
	assert.Equal(t, "TOOL-9", item.ItemID)
	assert.Equal(t, "Shelf B", *item.Location)
	assert.Equal(t, models.ItemStatusAvailable, store.expected)

	require.Len(t, store.activities, 1)
	edit := store.activities[0]
	assert.Equal(t, models.ActivityEdit, edit.Type)
	assert.Equal(t, "TOOL-1", edit.Metadata["previousItemId"])
	assert.Equal(t, []string{"itemId", "location"}, edit.Metadata["changes"])
}

func TestItemServiceUpdateProtectsLoanedStatus(t *testing.T) {
	store := newStubItemStore(
		&models.Item{ID: 1, ItemID: "TOOL-1", Name: "Saw", Status: models.ItemStatusLoaned},
		&models.Item{ID: 2, ItemID: "TOOL-2", Name: "Drill", Status: models.ItemStatusAvailable},
	)
	svc := newTestItemService(store)

	maintenance := models.ItemStatusMaintenance
	_, err := svc.Update(context.Background(), 1, dto.UpdateItemRequest{Status: &maintenance})
	assert.ErrorIs(t, err, appErrors.ErrItemOnLoan)

	loaned := models.ItemStatusLoaned
	_, err = svc.Update(context.Background(), 2, dto.UpdateItemRequest{Status: &loaned})
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Empty(t, store.activities)
}

func TestItemServiceUpdateNoChanges(t *testing.T) {
	store := newStubItemStore(&models.Item{ID: 1, ItemID: "TOOL-1", Name: "Saw", Status: models.ItemStatusAvailable})
	svc := newTestItemService(store)

	_, err := svc.Update(context.Background(), 1, dto.UpdateItemRequest{Name: strPtr("Saw")})
	require.NoError(t, err)
	assert.Empty(t, store.activities)
}

func TestItemServiceUpdateConcurrentChange(t *testing.T) {
	store := newStubItemStore(&models.Item{ID: 1, ItemID: "TOOL-1", Name: "Saw", Status: models.ItemStatusAvailable})
	store.updateErr = repository.ErrItemChanged
	svc := newTestItemService(store)

	_, err := svc.Update(context.Background(), 1, dto.UpdateItemRequest{Name: strPtr("Saw 2")})
	assert.True(t, appErrors.IsConflict(err))
}

func TestItemServiceDelete(t *testing.T) {
	store := newStubItemStore(
		&models.Item{ID: 1, ItemID: "TOOL-1", Name: "Saw", Status: models.ItemStatusLoaned},
		&models.Item{ID: 2, ItemID: "TOOL-2", Name: "Drill", Status: models.ItemStatusAvailable, QRCode: strPtr("QR-AB12-0007")},
	)
	svc := newTestItemService(store)

	err := svc.Delete(context.Background(), 1)
	assert.ErrorIs(t, err, appErrors.ErrItemOnLoan)

	err = svc.Delete(context.Background(), 404)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.Delete(context.Background(), 2))
	require.Len(t, store.activities, 1)
	assert.Nil(t, store.activities[0].ItemID)
	assert.Equal(t, "TOOL-2", store.activities[0].Metadata["itemId"])
	assert.Equal(t, "QR-AB12-0007", store.activities[0].Metadata["qrCodeId"])
	assert.Contains(t, store.activities[0].Description, "Drill")
}

func TestItemServiceDeleteRaceMapsOnLoan(t *testing.T) {
	store := newStubItemStore(&models.Item{ID: 1, ItemID: "TOOL-1", Name: "Saw", Status: models.ItemStatusAvailable})
	store.deleteErr = repository.ErrItemOnLoan
	svc := newTestItemService(store)

	err := svc.Delete(context.Background(), 1)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "ITEM_ON_LOAN", appErr.Code)
	assert.Equal(t, 400, appErr.Status)
}

func TestItemServiceLookup(t *testing.T) {
	store := newStubItemStore(&models.Item{ID: 1, ItemID: "TOOL-1", Name: "Saw", Status: models.ItemStatusAvailable})
	svc := newTestItemService(store)

	for _, payload := range []string{"TOOL-1", `{"id":"TOOL-1"}`, "https://inventory.example.org/items?id=TOOL-1"} {
		item, err := svc.Lookup(context.Background(), payload)
		require.NoError(t, err, payload)
		assert.Equal(t, int64(1), item.ID)
	}

	_, err := svc.Lookup(context.Background(), "not a code!")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Lookup(context.Background(), "TOOL-404")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

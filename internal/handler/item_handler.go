package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/inventory-loan-api/internal/dto"
	"github.com/noah-isme/inventory-loan-api/internal/models"
	appErrors "github.com/noah-isme/inventory-loan-api/pkg/errors"
	"github.com/noah-isme/inventory-loan-api/pkg/response"
)

type itemService interface {
	Create(ctx context.Context, req dto.CreateItemRequest) (*models.Item, error)
	Get(ctx context.Context, id int64) (*models.Item, error)
	Lookup(ctx context.Context, payload string) (*models.Item, error)
	List(ctx context.Context, query dto.ItemQuery) ([]models.Item, *models.Pagination, error)
	Update(ctx context.Context, id int64, req dto.UpdateItemRequest) (*models.Item, error)
	Delete(ctx context.Context, id int64) error
}

type itemHistory interface {
	ListByItem(ctx context.Context, itemID int64) ([]models.Activity, error)
}

type itemLoans interface {
	ListByItem(ctx context.Context, itemID int64) ([]models.Loan, error)
}

// ItemHandler exposes inventory item endpoints.
type ItemHandler struct {
	items      itemService
	activities itemHistory
	loans      itemLoans
}

// NewItemHandler constructs ItemHandler.
func NewItemHandler(items itemService, activities itemHistory, loans itemLoans) *ItemHandler {
	return &ItemHandler{items: items, activities: activities, loans: loans}
}

// List godoc
// @Summary List items
// @Tags Items
// @Produce json
// @Param status query string false "available, loaned or maintenance"
// @Param search query string false "Search name, item id or location"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /items [get]
func (h *ItemHandler) List(c *gin.Context) {
	var query dto.ItemQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	items, pagination, err := h.items.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get item detail
// @Tags Items
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /items/{id} [get]
func (h *ItemHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	item, err := h.items.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Lookup godoc
// @Summary Resolve a scanned code
// @Description Accepts a raw item id, QR code or barcode, a URL carrying ?id= or a JSON label payload.
// @Tags Items
// @Produce json
// @Param code query string true "Scanned payload"
// @Success 200 {object} response.Envelope
// @Router /items/lookup [get]
func (h *ItemHandler) Lookup(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.Error(c, appErrors.Validation("code is required", map[string]string{"code": "required"}))
		return
	}
	item, err := h.items.Lookup(c.Request.Context(), code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create item
// @Tags Items
// @Accept json
// @Produce json
// @Param payload body dto.CreateItemRequest true "Item payload"
// @Success 201 {object} response.Envelope
// @Router /items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	item, err := h.items.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update item
// @Tags Items
// @Accept json
// @Produce json
// @Param id path int true "Item ID"
// @Param payload body dto.UpdateItemRequest true "Item payload"
// @Success 200 {object} response.Envelope
// @Router /items/{id} [put]
func (h *ItemHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	item, err := h.items.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete item
// @Tags Items
// @Produce json
// @Param id path int true "Item ID"
// @Success 204
// @Failure 400 {object} response.Envelope "Item is currently on loan"
// @Router /items/{id} [delete]
func (h *ItemHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.items.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Activities godoc
// @Summary Item history
// @Tags Items
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /items/{id}/activities [get]
func (h *ItemHandler) Activities(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	activities, err := h.activities.ListByItem(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, nil)
}

// Loans godoc
// @Summary Item loan history
// @Tags Items
// @Produce json
// @Param id path int true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /items/{id}/loans [get]
func (h *ItemHandler) Loans(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	loans, err := h.loans.ListByItem(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loans, nil)
}

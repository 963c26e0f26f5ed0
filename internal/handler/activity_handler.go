package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/inventory-loan-api/internal/dto"
	"github.com/noah-isme/inventory-loan-api/internal/models"
	"github.com/noah-isme/inventory-loan-api/pkg/response"
)

type activityService interface {
	List(ctx context.Context, query dto.ActivityQuery) ([]models.Activity, error)
}

// ActivityHandler exposes the activity feed.
type ActivityHandler struct {
	activities activityService
}

// NewActivityHandler constructs ActivityHandler.
func NewActivityHandler(activities activityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// List godoc
// @Summary Recent activity
// @Tags Activities
// @Produce json
// @Param itemId query int false "Item ID"
// @Param type query string false "Activity type"
// @Param limit query int false "Limit (max 200)"
// @Success 200 {object} response.Envelope
// @Router /activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	var query dto.ActivityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	activities, err := h.activities.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, nil)
}

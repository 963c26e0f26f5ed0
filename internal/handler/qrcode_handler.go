package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/inventory-loan-api/internal/dto"
	"github.com/noah-isme/inventory-loan-api/internal/models"
	"github.com/noah-isme/inventory-loan-api/pkg/response"
)

type qrCodeService interface {
	GenerateBatch(ctx context.Context, req dto.GenerateQRCodesRequest) ([]models.QRCode, error)
	Associate(ctx context.Context, req dto.AssociateQRCodeRequest) (*models.QRCode, error)
	Get(ctx context.Context, code string) (*models.QRCode, error)
	List(ctx context.Context, query dto.QRCodeQuery) ([]models.QRCode, error)
	ListUnassigned(ctx context.Context) ([]models.QRCode, error)
}

// QRCodeHandler exposes the QR code registry.
type QRCodeHandler struct {
	qrcodes qrCodeService
}

// NewQRCodeHandler constructs QRCodeHandler.
func NewQRCodeHandler(qrcodes qrCodeService) *QRCodeHandler {
	return &QRCodeHandler{qrcodes: qrcodes}
}

// GenerateBatch godoc
// @Summary Generate QR codes
// @Tags QR Codes
// @Accept json
// @Produce json
// @Param payload body dto.GenerateQRCodesRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope "Quantity outside 1-100"
// @Router /qrcodes/batch [post]
func (h *QRCodeHandler) GenerateBatch(c *gin.Context) {
	var req dto.GenerateQRCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	codes, err := h.qrcodes.GenerateBatch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, codes)
}

// Associate godoc
// @Summary Bind a QR code to an item
// @Tags QR Codes
// @Accept json
// @Produce json
// @Param payload body dto.AssociateQRCodeRequest true "Association payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope "QR code already assigned"
// @Router /qrcodes/associate [post]
func (h *QRCodeHandler) Associate(c *gin.Context) {
	var req dto.AssociateQRCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	qr, err := h.qrcodes.Associate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, qr, nil)
}

// List godoc
// @Summary List QR codes
// @Tags QR Codes
// @Produce json
// @Param assigned query bool false "Filter by assignment"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /qrcodes [get]
func (h *QRCodeHandler) List(c *gin.Context) {
	var query dto.QRCodeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	codes, err := h.qrcodes.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, codes, nil)
}

// Unassigned godoc
// @Summary List unassigned QR codes
// @Tags QR Codes
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /qrcodes/unassigned [get]
func (h *QRCodeHandler) Unassigned(c *gin.Context) {
	codes, err := h.qrcodes.ListUnassigned(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, codes, nil)
}

// Get godoc
// @Summary Get QR code
// @Tags QR Codes
// @Produce json
// @Param code path string true "QR code identifier"
// @Success 200 {object} response.Envelope
// @Router /qrcodes/{code} [get]
func (h *QRCodeHandler) Get(c *gin.Context) {
	qr, err := h.qrcodes.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, qr, nil)
}

package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/inventory-loan-api/internal/dto"
	"github.com/noah-isme/inventory-loan-api/internal/models"
	"github.com/noah-isme/inventory-loan-api/internal/service"
	"github.com/noah-isme/inventory-loan-api/pkg/response"
)

type loanService interface {
	Create(ctx context.Context, req dto.CreateLoanRequest) (*models.Loan, error)
	Return(ctx context.Context, loanID int64, req dto.ReturnLoanRequest) (*models.Loan, error)
	BatchCreate(ctx context.Context, req dto.BatchCreateLoanRequest) (*dto.BatchLoanResult, error)
	BatchReturn(ctx context.Context, req dto.BatchReturnLoanRequest) (*dto.BatchLoanResult, error)
	Get(ctx context.Context, id int64) (*models.Loan, error)
	List(ctx context.Context, query dto.LoanQuery) ([]models.Loan, error)
	ListActive(ctx context.Context) ([]models.Loan, error)
	ListOverdue(ctx context.Context) ([]models.Loan, error)
	SyncOverdue(ctx context.Context) (int64, error)
}

type loanExporter interface {
	ExportLoans(ctx context.Context, format string, query dto.LoanQuery) (*service.ExportResult, error)
}

// LoanHandler exposes the loan lifecycle.
type LoanHandler struct {
	loans    loanService
	exporter loanExporter
}

// NewLoanHandler constructs LoanHandler.
func NewLoanHandler(loans loanService, exporter loanExporter) *LoanHandler {
	return &LoanHandler{loans: loans, exporter: exporter}
}

// Create godoc
// @Summary Lend an item
// @Tags Loans
// @Accept json
// @Produce json
// @Param payload body dto.CreateLoanRequest true "Loan payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope "Item not available for loan"
// @Router /loans [post]
func (h *LoanHandler) Create(c *gin.Context) {
	var req dto.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	loan, err := h.loans.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, loan)
}

// BatchCreate godoc
// @Summary Lend several items to one borrower
// @Tags Loans
// @Accept json
// @Produce json
// @Param payload body dto.BatchCreateLoanRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /loans/batch [post]
func (h *LoanHandler) BatchCreate(c *gin.Context) {
	var req dto.BatchCreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.loans.BatchCreate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Return godoc
// @Summary Return a loan
// @Tags Loans
// @Accept json
// @Produce json
// @Param id path int true "Loan ID"
// @Param payload body dto.ReturnLoanRequest false "Return details"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Loan already returned"
// @Router /loans/{id}/return [put]
func (h *LoanHandler) Return(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	// The body is optional; chunked requests report ContentLength -1 even when empty.
	var req dto.ReturnLoanRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(c, invalidPayload(err))
			return
		}
	}
	loan, err := h.loans.Return(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan, nil)
}

// BatchReturn godoc
// @Summary Return several loans
// @Tags Loans
// @Accept json
// @Produce json
// @Param payload body dto.BatchReturnLoanRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /loans/return/batch [post]
func (h *LoanHandler) BatchReturn(c *gin.Context) {
	var req dto.BatchReturnLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.loans.BatchReturn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List loans
// @Tags Loans
// @Produce json
// @Param itemId query int false "Item ID"
// @Param status query string false "active, overdue or returned"
// @Param borrower query string false "Borrower name contains"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /loans [get]
func (h *LoanHandler) List(c *gin.Context) {
	var query dto.LoanQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	loans, err := h.loans.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loans, nil)
}

// Get godoc
// @Summary Get loan detail
// @Tags Loans
// @Produce json
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Envelope
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	loan, err := h.loans.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loan, nil)
}

// Active godoc
// @Summary Open loans not yet due
// @Tags Loans
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /loans/active [get]
func (h *LoanHandler) Active(c *gin.Context) {
	loans, err := h.loans.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loans, nil)
}

// Overdue godoc
// @Summary Open loans past their due date
// @Tags Loans
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /loans/overdue [get]
func (h *LoanHandler) Overdue(c *gin.Context) {
	loans, err := h.loans.ListOverdue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, loans, nil)
}

// SyncOverdue godoc
// @Summary Persist overdue status
// @Tags Loans
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /loans/overdue/sync [post]
func (h *LoanHandler) SyncOverdue(c *gin.Context) {
	n, err := h.loans.SyncOverdue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"updated": n}, nil)
}

// Export godoc
// @Summary Export loans
// @Tags Loans
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "active, overdue or returned"
// @Success 200 {file} file
// @Router /loans/export [get]
func (h *LoanHandler) Export(c *gin.Context) {
	var query dto.LoanQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidQuery(err))
		return
	}
	result, err := h.exporter.ExportLoans(c.Request.Context(), c.Query("format"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}

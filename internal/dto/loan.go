package dto

import "github.com/noah-isme/inventory-loan-api/internal/models"

// CreateLoanRequest checks an item out. DueDate accepts RFC 3339 or YYYY-MM-DD.
type CreateLoanRequest struct {
	ItemID        int64   `json:"itemId" validate:"required,min=1"`
	BorrowerName  string  `json:"borrowerName" validate:"required,max=200"`
	BorrowerEmail *string `json:"borrowerEmail" validate:"omitempty,email"`
	BorrowerPhone *string `json:"borrowerPhone" validate:"omitempty,max=32"`
	DueDate       string  `json:"dueDate"`
	Notes         *string `json:"notes" validate:"omitempty,max=2000"`
}

// BatchCreateLoanRequest lends several items to one borrower.
type BatchCreateLoanRequest struct {
	ItemIDs       []int64 `json:"itemIds" validate:"required,min=1,max=100,dive,min=1"`
	BorrowerName  string  `json:"borrowerName" validate:"required,max=200"`
	BorrowerEmail *string `json:"borrowerEmail" validate:"omitempty,email"`
	BorrowerPhone *string `json:"borrowerPhone" validate:"omitempty,max=32"`
	DueDate       string  `json:"dueDate"`
	Notes         *string `json:"notes" validate:"omitempty,max=2000"`
}

// Entry expands the batch into the request for a single item.
func (r BatchCreateLoanRequest) Entry(itemID int64) CreateLoanRequest {
	return CreateLoanRequest{
		ItemID:        itemID,
		BorrowerName:  r.BorrowerName,
		BorrowerEmail: r.BorrowerEmail,
		BorrowerPhone: r.BorrowerPhone,
		DueDate:       r.DueDate,
		Notes:         r.Notes,
	}
}

// ReturnLoanRequest closes a loan. An empty ReturnDate means now.
type ReturnLoanRequest struct {
	ReturnDate string  `json:"returnDate"`
	Condition  *string `json:"condition" validate:"omitempty,max=500"`
}

// BatchReturnLoanRequest returns several loans with shared details.
type BatchReturnLoanRequest struct {
	LoanIDs    []int64 `json:"loanIds" validate:"required,min=1,max=100,dive,min=1"`
	ReturnDate string  `json:"returnDate"`
	Condition  *string `json:"condition" validate:"omitempty,max=500"`
}

// LoanQuery captures list query parameters.
type LoanQuery struct {
	ItemID   int64  `form:"itemId" validate:"omitempty,min=1"`
	Status   string `form:"status" validate:"omitempty,oneof=active overdue returned"`
	Borrower string `form:"borrower"`
	Limit    int    `form:"limit" validate:"omitempty,min=1,max=500"`
	Offset   int    `form:"offset" validate:"omitempty,min=0"`
}

// BatchError reports one failed entry of a batch. Exactly one of ItemID and LoanID is set.
type BatchError struct {
	Index   int    `json:"index"`
	ItemID  int64  `json:"itemId,omitempty"`
	LoanID  int64  `json:"loanId,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchLoanResult groups successes and failures of a batch operation.
type BatchLoanResult struct {
	Results []models.Loan `json:"results"`
	Errors  []BatchError  `json:"errors"`
}

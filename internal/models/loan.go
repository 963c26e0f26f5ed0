package models

import "time"

// LoanStatus enumerates the loan lifecycle states.
type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "active"
	LoanStatusOverdue  LoanStatus = "overdue"
	LoanStatusReturned LoanStatus = "returned"
)

// Open reports whether the status still holds the item.
func (s LoanStatus) Open() bool {
	return s == LoanStatusActive || s == LoanStatusOverdue
}

// Loan is a time-bounded custody transfer of one item to a borrower.
type Loan struct {
	ID              int64      `db:"id" json:"id"`
	ItemID          int64      `db:"item_id" json:"itemId"`
	BorrowerName    string     `db:"borrower_name" json:"borrowerName"`
	BorrowerEmail   *string    `db:"borrower_email" json:"borrowerEmail,omitempty"`
	BorrowerPhone   *string    `db:"borrower_phone" json:"borrowerPhone,omitempty"`
	LoanDate        time.Time  `db:"loan_date" json:"loanDate"`
	DueDate         time.Time  `db:"due_date" json:"dueDate"`
	ReturnDate      *time.Time `db:"return_date" json:"returnDate,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	ReturnCondition *string    `db:"return_condition" json:"returnCondition,omitempty"`
	Status          LoanStatus `db:"status" json:"status"`
	ItemCode        string     `db:"item_code" json:"itemCode,omitempty"`
	ItemName        string     `db:"item_name" json:"itemName,omitempty"`
}

// IsOverdue is the single overdue predicate: not returned and due strictly before now.
func (l *Loan) IsOverdue(now time.Time) bool {
	if l == nil || l.Status == LoanStatusReturned || l.ReturnDate != nil {
		return false
	}
	return l.DueDate.Before(now)
}

// EffectiveStatus returns the status a reader should see at now, whether or
// not the overdue transition has been persisted yet.
func (l *Loan) EffectiveStatus(now time.Time) LoanStatus {
	if l.Status == LoanStatusReturned {
		return LoanStatusReturned
	}
	if l.IsOverdue(now) {
		return LoanStatusOverdue
	}
	return LoanStatusActive
}

// LoanFilter constrains loan listing queries.
type LoanFilter struct {
	ItemID   int64
	Status   []LoanStatus
	Borrower string
	// OverdueAt selects open loans due before the instant, persisted or not.
	OverdueAt *time.Time
	// CurrentAt selects open loans not yet due at the instant.
	CurrentAt *time.Time
	Limit     int
	Offset    int
	// Unbounded returns every match and ignores Limit and Offset.
	Unbounded bool
}

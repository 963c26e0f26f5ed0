package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/inventory-loan-api/internal/dto"
	"github.com/noah-isme/inventory-loan-api/internal/models"
	"github.com/noah-isme/inventory-loan-api/internal/repository"
	appErrors "github.com/noah-isme/inventory-loan-api/pkg/errors"
)

// DefaultLoanDuration applies when neither the request nor the config supplies a due date.
const DefaultLoanDuration = 14 * 24 * time.Hour

const dateLayout = "2006-01-02"

type loanStore interface {
	Create(ctx context.Context, loan *models.Loan, activity *models.Activity) error
	Return(ctx context.Context, loan *models.Loan, activity *models.Activity) error
	FindByID(ctx context.Context, id int64) (*models.Loan, error)
	List(ctx context.Context, filter models.LoanFilter) ([]models.Loan, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
}

type itemReader interface {
	FindByID(ctx context.Context, id int64) (*models.Item, error)
}

// LoanService is the only writer of the available/loaned item transition.
type LoanService struct {
	loans           loanStore
	items           itemReader
	validator       *validator.Validate
	logger          *zap.Logger
	defaultDuration time.Duration
	serviceOptions
}

// NewLoanService constructs a LoanService. defaultDuration sets the due date of loans
// created without one.
func NewLoanService(loans loanStore, items itemReader, validate *validator.Validate, logger *zap.Logger, defaultDuration time.Duration, opts ...Option) *LoanService {
	if defaultDuration <= 0 {
		defaultDuration = DefaultLoanDuration
	}
	return &LoanService{
		loans:           loans,
		items:           items,
		validator:       defaultValidator(validate),
		logger:          defaultLogger(logger),
		defaultDuration: defaultDuration,
		serviceOptions:  applyOptions(opts),
	}
}

// Create lends an available item.
func (s *LoanService) Create(ctx context.Context, req dto.CreateLoanRequest) (*models.Loan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid loan payload")
	}
	borrower := strings.TrimSpace(req.BorrowerName)
	if borrower == "" {
		return nil, appErrors.Validation("invalid loan payload", map[string]string{"borrowerName": "required"})
	}

	item, err := s.items.FindByID(ctx, req.ItemID)
	if err != nil {
		return nil, itemLookupError(err)
	}
	if item.Status != models.ItemStatusAvailable {
		s.metrics.RecordLoanTransition(TransitionReject, 1)
		return nil, appErrors.Clone(appErrors.ErrItemUnavailable, "item not available for loan")
	}

	now := s.clock()
	due, err := s.dueDate(req.DueDate, now)
	if err != nil {
		return nil, err
	}

	loan := &models.Loan{
		ItemID:        item.ID,
		BorrowerName:  borrower,
		BorrowerEmail: trimmedPtr(req.BorrowerEmail),
		BorrowerPhone: trimmedPtr(req.BorrowerPhone),
		LoanDate:      now,
		DueDate:       due,
		Notes:         trimmedPtr(req.Notes),
		Status:        models.LoanStatusActive,
		ItemCode:      item.ItemID,
		ItemName:      item.Name,
	}
	activity := &models.Activity{
		ItemID:      &item.ID,
		Type:        models.ActivityLoan,
		Description: fmt.Sprintf("%s loaned to %s", item.Name, borrower),
		Metadata:    models.Metadata{"borrowerName": borrower, "dueDate": due.Format(time.RFC3339)},
		CreatedAt:   now,
	}

	if err := s.loans.Create(ctx, loan, activity); err != nil {
		switch {
		case errors.Is(err, repository.ErrItemUnavailable):
			s.metrics.RecordLoanTransition(TransitionReject, 1)
			return nil, appErrors.Clone(appErrors.ErrItemUnavailable, "item not available for loan")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create loan")
	}

	s.metrics.RecordLoanTransition(TransitionLoan, 1)
	s.invalidate(ctx, s.logger)
	s.logger.Info("loan created", zap.Int64("loan_id", loan.ID), zap.Int64("item_id", item.ID), zap.Time("due", due))
	return s.decorate(loan, now), nil
}

// Return closes an open loan and makes its item available again.
func (s *LoanService) Return(ctx context.Context, loanID int64, req dto.ReturnLoanRequest) (*models.Loan, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid return payload")
	}

	loan, err := s.loans.FindByID(ctx, loanID)
	if err != nil {
		return nil, loanLookupError(err)
	}
	if loan.Status == models.LoanStatusReturned {
		return nil, appErrors.Clone(appErrors.ErrLoanReturned, "loan already returned")
	}

	now := s.clock()
	returnDate := now
	if raw := strings.TrimSpace(req.ReturnDate); raw != "" {
		parsed, ok := parseTimestamp(raw, false)
		if !ok {
			return nil, appErrors.Validation("invalid return payload", map[string]string{"returnDate": "datetime"})
		}
		returnDate = parsed
	}

	loan.ReturnDate = &returnDate
	loan.ReturnCondition = trimmedPtr(req.Condition)
	metadata := models.Metadata{"borrowerName": loan.BorrowerName, "returnDate": returnDate.Format(time.RFC3339), "loanId": loan.ID}
	if loan.ReturnCondition != nil {
		metadata["condition"] = *loan.ReturnCondition
	}
	activity := &models.Activity{
		ItemID:      &loan.ItemID,
		Type:        models.ActivityReturn,
		Description: fmt.Sprintf("%s returned by %s", loan.ItemName, loan.BorrowerName),
		Metadata:    metadata,
		CreatedAt:   now,
	}

	if err := s.loans.Return(ctx, loan, activity); err != nil {
		switch {
		case errors.Is(err, repository.ErrLoanReturned):
			return nil, appErrors.Clone(appErrors.ErrLoanReturned, "loan already returned")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "loan not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to return loan")
	}
	loan.Status = models.LoanStatusReturned

	s.metrics.RecordLoanTransition(TransitionReturn, 1)
	s.invalidate(ctx, s.logger)
	s.logger.Info("loan returned", zap.Int64("loan_id", loan.ID), zap.Int64("item_id", loan.ItemID))
	return loan, nil
}

// BatchCreate lends every listed item independently; failures do not abort the batch.
func (s *LoanService) BatchCreate(ctx context.Context, req dto.BatchCreateLoanRequest) (*dto.BatchLoanResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid batch loan payload")
	}
	result := &dto.BatchLoanResult{Results: []models.Loan{}, Errors: []dto.BatchError{}}
	for i, itemID := range req.ItemIDs {
		loan, err := s.Create(ctx, req.Entry(itemID))
		if err != nil {
			appErr := appErrors.FromError(err)
			result.Errors = append(result.Errors, dto.BatchError{Index: i, ItemID: itemID, Code: appErr.Code, Message: appErr.Message})
			continue
		}
		result.Results = append(result.Results, *loan)
	}
	return result, nil
}

// BatchReturn returns every listed loan independently.
func (s *LoanService) BatchReturn(ctx context.Context, req dto.BatchReturnLoanRequest) (*dto.BatchLoanResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid batch return payload")
	}
	entry := dto.ReturnLoanRequest{ReturnDate: req.ReturnDate, Condition: req.Condition}
	result := &dto.BatchLoanResult{Results: []models.Loan{}, Errors: []dto.BatchError{}}
	for i, loanID := range req.LoanIDs {
		loan, err := s.Return(ctx, loanID, entry)
		if err != nil {
			appErr := appErrors.FromError(err)
			result.Errors = append(result.Errors, dto.BatchError{Index: i, LoanID: loanID, Code: appErr.Code, Message: appErr.Message})
			continue
		}
		result.Results = append(result.Results, *loan)
	}
	return result, nil
}

// Get returns a loan with its effective status.
func (s *LoanService) Get(ctx context.Context, id int64) (*models.Loan, error) {
	loan, err := s.loans.FindByID(ctx, id)
	if err != nil {
		return nil, loanLookupError(err)
	}
	return s.decorate(loan, s.clock()), nil
}

// List filters loans; the active and overdue statuses are evaluated against the clock.
func (s *LoanService) List(ctx context.Context, query dto.LoanQuery) ([]models.Loan, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, validationFailure(err, "invalid loan query")
	}
	now := s.clock()
	filter := models.LoanFilter{ItemID: query.ItemID, Borrower: query.Borrower, Limit: query.Limit, Offset: query.Offset}
	switch models.LoanStatus(query.Status) {
	case models.LoanStatusActive:
		filter.CurrentAt = &now
	case models.LoanStatusOverdue:
		filter.OverdueAt = &now
	case models.LoanStatusReturned:
		filter.Status = []models.LoanStatus{models.LoanStatusReturned}
	}
	return s.list(ctx, filter, now)
}

// ListActive returns open loans that are not yet due.
func (s *LoanService) ListActive(ctx context.Context) ([]models.Loan, error) {
	now := s.clock()
	return s.list(ctx, models.LoanFilter{CurrentAt: &now, Unbounded: true}, now)
}

// ListOverdue returns open loans past their due date, whether or not the sweep has persisted it.
func (s *LoanService) ListOverdue(ctx context.Context) ([]models.Loan, error) {
	now := s.clock()
	return s.list(ctx, models.LoanFilter{OverdueAt: &now, Unbounded: true}, now)
}

// ListByItem returns the loan history of an item.
func (s *LoanService) ListByItem(ctx context.Context, itemID int64) ([]models.Loan, error) {
	if _, err := s.items.FindByID(ctx, itemID); err != nil {
		return nil, itemLookupError(err)
	}
	return s.list(ctx, models.LoanFilter{ItemID: itemID, Unbounded: true}, s.clock())
}

// SyncOverdue persists the overdue status for loans already overdue by derivation.
func (s *LoanService) SyncOverdue(ctx context.Context) (int64, error) {
	n, err := s.loans.MarkOverdue(ctx, s.clock())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sync overdue loans")
	}
	if n > 0 {
		s.metrics.RecordLoanTransition(TransitionOverdue, int(n))
		s.invalidate(ctx, s.logger)
		s.logger.Info("overdue loans persisted", zap.Int64("count", n))
	}
	return n, nil
}

func (s *LoanService) list(ctx context.Context, filter models.LoanFilter, now time.Time) ([]models.Loan, error) {
	loans, err := s.loans.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list loans")
	}
	for i := range loans {
		loans[i].Status = loans[i].EffectiveStatus(now)
	}
	return loans, nil
}

func (s *LoanService) decorate(loan *models.Loan, now time.Time) *models.Loan {
	loan.Status = loan.EffectiveStatus(now)
	return loan
}

func (s *LoanService) dueDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.Add(s.defaultDuration), nil
	}
	due, ok := parseTimestamp(raw, true)
	if !ok {
		return time.Time{}, appErrors.Validation("invalid loan payload", map[string]string{"dueDate": "datetime"})
	}
	return due, nil
}

// parseTimestamp accepts RFC 3339 or a calendar date. A bare date resolves to the end of that
// day when endOfDay is set, otherwise to its start, both in UTC.
func parseTimestamp(raw string, endOfDay bool) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t.UTC(), true
}

func loanLookupError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "loan not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load loan")
}

package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/noah-isme/inventory-loan-api/internal/models"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{now: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type stubItemStore struct {
	items      map[int64]*models.Item
	createErr  error
	updateErr  error
	deleteErr  error
	created    []*models.Item
	activities []*models.Activity
	expected   models.ItemStatus
}

func newStubItemStore(items ...*models.Item) *stubItemStore {
	s := &stubItemStore{items: map[int64]*models.Item{}}
	for _, item := range items {
		s.items[item.ID] = item
	}
	return s
}

func (s *stubItemStore) Create(ctx context.Context, item *models.Item, activity *models.Activity) error {
	if s.createErr != nil {
		return s.createErr
	}
	item.ID = int64(len(s.items) + 1)
	s.items[item.ID] = item
	s.created = append(s.created, item)
	activity.ItemID = &item.ID
	s.activities = append(s.activities, activity)
	return nil
}

func (s *stubItemStore) FindByID(ctx context.Context, id int64) (*models.Item, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *item
	return &copy, nil
}

func (s *stubItemStore) FindByCode(ctx context.Context, code string) (*models.Item, error) {
	for _, item := range s.items {
		if item.ItemID == code || (item.QRCode != nil && *item.QRCode == code) {
			copy := *item
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubItemStore) List(ctx context.Context, filter models.ItemFilter) ([]models.Item, int, error) {
	out := []models.Item{}
	for _, item := range s.items {
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (s *stubItemStore) Update(ctx context.Context, item *models.Item, expected models.ItemStatus, activity *models.Activity) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.expected = expected
	copy := *item
	s.items[item.ID] = &copy
	s.activities = append(s.activities, activity)
	return nil
}

func (s *stubItemStore) Delete(ctx context.Context, id int64, activity *models.Activity) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.items, id)
	s.activities = append(s.activities, activity)
	return nil
}

type stubLoanStore struct {
	loans      map[int64]*models.Loan
	createErr  error
	returnErr  error
	listed     models.LoanFilter
	marked     int64
	activities []*models.Activity
}

func newStubLoanStore(loans ...*models.Loan) *stubLoanStore {
	s := &stubLoanStore{loans: map[int64]*models.Loan{}}
	for _, loan := range loans {
		s.loans[loan.ID] = loan
	}
	return s
}

func (s *stubLoanStore) Create(ctx context.Context, loan *models.Loan, activity *models.Activity) error {
	if s.createErr != nil {
		return s.createErr
	}
	loan.ID = int64(len(s.loans) + 1)
	copy := *loan
	s.loans[loan.ID] = &copy
	s.activities = append(s.activities, activity)
	return nil
}

func (s *stubLoanStore) Return(ctx context.Context, loan *models.Loan, activity *models.Activity) error {
	if s.returnErr != nil {
		return s.returnErr
	}
	copy := *loan
	copy.Status = models.LoanStatusReturned
	s.loans[loan.ID] = &copy
	s.activities = append(s.activities, activity)
	return nil
}

func (s *stubLoanStore) FindByID(ctx context.Context, id int64) (*models.Loan, error) {
	loan, ok := s.loans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *loan
	return &copy, nil
}

func (s *stubLoanStore) List(ctx context.Context, filter models.LoanFilter) ([]models.Loan, error) {
	s.listed = filter
	out := []models.Loan{}
	for id := int64(1); id <= int64(len(s.loans)); id++ {
		if loan, ok := s.loans[id]; ok {
			out = append(out, *loan)
		}
	}
	return out, nil
}

func (s *stubLoanStore) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	return s.marked, nil
}

type stubQRStore struct {
	codes        map[string]*models.QRCode
	batch        []*models.QRCode
	activity     *models.Activity
	associateErr error
}

func (s *stubQRStore) CreateBatch(ctx context.Context, codes []*models.QRCode, activity *models.Activity) error {
	s.batch = codes
	s.activity = activity
	return nil
}

func (s *stubQRStore) FindByCode(ctx context.Context, code string) (*models.QRCode, error) {
	qr, ok := s.codes[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *qr
	return &copy, nil
}

func (s *stubQRStore) List(ctx context.Context, filter models.QRCodeFilter) ([]models.QRCode, error) {
	out := []models.QRCode{}
	for _, qr := range s.codes {
		if filter.Assigned == nil || qr.IsAssigned == *filter.Assigned {
			out = append(out, *qr)
		}
	}
	return out, nil
}

func (s *stubQRStore) Associate(ctx context.Context, qr *models.QRCode, activity *models.Activity) error {
	if s.associateErr != nil {
		return s.associateErr
	}
	s.activity = activity
	return nil
}

type recordingInvalidator struct {
	patterns []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, pattern string) error {
	r.patterns = append(r.patterns, pattern)
	return nil
}

func strPtr(s string) *string { return &s }

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/inventory-loan-api/internal/models"
	appErrors "github.com/noah-isme/inventory-loan-api/pkg/errors"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

type liteErr int

func (e liteErr) Error() string { return fmt.Sprintf("sqlite error %d", int(e)) }
func (e liteErr) Code() int     { return int(e) }

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})))
	assert.True(t, isUniqueViolation(liteErr(2067)))
	assert.True(t, isUniqueViolation(liteErr(1555)))
	assert.False(t, isUniqueViolation(liteErr(787)))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.False(t, isUniqueViolation(nil))
}

func TestItemRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	item := &models.Item{ItemID: "ITEM-AB12-0001", Name: "Drill", Origin: models.ItemOriginDonated, Status: models.ItemStatusAvailable, CreatedAt: now, UpdatedAt: now}
	activity := &models.Activity{Type: models.ActivityNew, Description: "created", CreatedAt: now}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO items (item_id, name`)).
		WithArgs("ITEM-AB12-0001", "Drill", nil, nil, nil, models.ItemOriginDonated, nil, nil, nil, models.ItemStatusAvailable, now, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO activities (item_id, type, description, metadata, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING id`)).
		WithArgs(int64(7), models.ActivityNew, "created", nil, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), item, activity))
	assert.Equal(t, int64(7), item.ID)
	require.NotNil(t, activity.ItemID)
	assert.Equal(t, int64(7), *activity.ItemID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO items`)).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Item{ItemID: "X"}, &models.Activity{})
	assert.ErrorIs(t, err, ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositoryCreateUnavailable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLoanRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE items SET status = 'loaned', updated_at = $1 WHERE id = $2 AND status = 'available'`)).
		WithArgs(sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM items WHERE id = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Loan{ItemID: 3, LoanDate: time.Now()}, &models.Activity{})
	assert.ErrorIs(t, err, ErrItemUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositoryCreateMissingItem(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLoanRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE items SET status = 'loaned'`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM items`)).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Loan{ItemID: 99}, &models.Activity{})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositoryReturnAlreadyReturned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLoanRepository(db)

	returned := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE loans SET status = 'returned'`)).
		WithArgs(returned, nil, int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM loans WHERE id = $1`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectRollback()

	err := repo.Return(context.Background(), &models.Loan{ID: 5, ItemID: 2, ReturnDate: &returned}, &models.Activity{})
	assert.ErrorIs(t, err, ErrLoanReturned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoanRepositoryListBuildsFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLoanRepository(db)

	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE 1=1 AND l.item_id = $1 AND l.status IN ($2, $3) AND l.status IN ('active', 'overdue') AND l.due_date < $4 ORDER BY l.loan_date DESC, l.id DESC LIMIT $5 OFFSET $6`)).
		WithArgs(int64(4), models.LoanStatusActive, models.LoanStatusOverdue, cutoff, 50, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "item_id", "borrower_name", "loan_date", "due_date", "status", "item_code", "item_name"}).
			AddRow(1, 4, "Ana", cutoff.Add(-72*time.Hour), cutoff.Add(-time.Hour), "active", "ITEM-1", "Drill"))

	loans, err := repo.List(context.Background(), models.LoanFilter{
		ItemID:    4,
		Status:    []models.LoanStatus{models.LoanStatusActive, models.LoanStatusOverdue},
		OverdueAt: &cutoff,
	})
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, "Drill", loans[0].ItemName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQRCodeRepositoryListUnboundedSkipsLimit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQRCodeRepository(db)

	assigned := false
	mock.ExpectQuery(regexp.QuoteMeta(`FROM qr_codes WHERE 1=1 AND is_assigned = $1 ORDER BY generated_at DESC, id DESC`) + `$`).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "qr_code_id", "is_assigned"}).AddRow(1, "QR-1", false))

	codes, err := repo.List(context.Background(), models.QRCodeFilter{Assigned: &assigned, Limit: 5, Unbounded: true})
	require.NoError(t, err)
	require.Len(t, codes, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQRCodeRepositoryAssociateTaken(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewQRCodeRepository(db)

	itemID := int64(2)
	at := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE qr_codes SET is_assigned = $1, assigned_item_id = $2, assigned_at = $3 WHERE qr_code_id = $4 AND is_assigned = $5`)).
		WithArgs(true, &itemID, &at, "QR-AAAA-0001", false).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM qr_codes WHERE qr_code_id = $1`)).
		WithArgs("QR-AAAA-0001").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.Associate(context.Background(), &models.QRCode{QRCodeID: "QR-AAAA-0001", AssignedItemID: &itemID, AssignedAt: &at}, &models.Activity{})
	assert.ErrorIs(t, err, ErrQRCodeAssigned)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestItemRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewItemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, COUNT(*) AS count FROM items GROUP BY status`)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("available", 3).AddRow("loaned", 1))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.StatusCount{{Status: "available", Count: 3}, {Status: "loaned", Count: 1}}, counts)
}

func TestCacheRepositoryNilClient(t *testing.T) {
	repo := NewCacheRepository(nil, "inventory")
	var dest map[string]int
	assert.ErrorIs(t, repo.Get(context.Background(), "dashboard:summary", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "dashboard:summary", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "dashboard:*"))
	assert.Equal(t, "inventory:dashboard", repo.key("dashboard"))
}

func TestIsUniqueViolationPrimaryCode(t *testing.T) {
	err := fmt.Errorf("%w: UNIQUE constraint failed: items.item_id", liteCoded{code: 19})
	assert.True(t, isUniqueViolation(err))
	assert.False(t, isUniqueViolation(liteCoded{code: 19, msg: "FOREIGN KEY constraint failed"}))
}

type liteCoded struct {
	code int
	msg  string
}

func (e liteCoded) Error() string { return e.msg }
func (e liteCoded) Code() int     { return e.code }

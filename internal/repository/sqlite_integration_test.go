package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/inventory-loan-api/internal/models"
	"github.com/noah-isme/inventory-loan-api/pkg/config"
	"github.com/noah-isme/inventory-loan-api/pkg/database"
)

type sqliteRepos struct {
	db         *sqlx.DB
	items      *ItemRepository
	loans      *LoanRepository
	qrcodes    *QRCodeRepository
	activities *ActivityRepository
	users      *UserRepository
}

func newSQLiteRepos(t *testing.T) *sqliteRepos {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "inventory.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return &sqliteRepos{
		db:         db,
		items:      NewItemRepository(db),
		loans:      NewLoanRepository(db),
		qrcodes:    NewQRCodeRepository(db),
		activities: NewActivityRepository(db),
		users:      NewUserRepository(db),
	}
}

var baseTime = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func (r *sqliteRepos) seedItem(t *testing.T, code string) *models.Item {
	t.Helper()
	item := &models.Item{ItemID: code, Name: "Item " + code, Origin: models.ItemOriginPurchased, Status: models.ItemStatusAvailable, CreatedAt: baseTime, UpdatedAt: baseTime}
	require.NoError(t, r.items.Create(context.Background(), item, &models.Activity{Type: models.ActivityNew, Description: "created " + code, CreatedAt: baseTime}))
	return item
}

func newLoan(itemID int64, borrower string, due time.Time) *models.Loan {
	return &models.Loan{ItemID: itemID, BorrowerName: borrower, LoanDate: baseTime, DueDate: due, Status: models.LoanStatusActive}
}

func loanActivity(itemID int64) *models.Activity {
	return &models.Activity{ItemID: &itemID, Type: models.ActivityLoan, Description: "loaned", CreatedAt: baseTime.Add(time.Minute)}
}

func TestSQLiteLoanLifecycle(t *testing.T) {
	repos := newSQLiteRepos(t)
	ctx := context.Background()
	item := repos.seedItem(t, "ITEM-TEST-0001")

	loan := newLoan(item.ID, "Ana", baseTime.Add(14*24*time.Hour))
	require.NoError(t, repos.loans.Create(ctx, loan, loanActivity(item.ID)))
	require.NotZero(t, loan.ID)

	stored, err := repos.items.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusLoaned, stored.Status)

	err = repos.loans.Create(ctx, newLoan(item.ID, "Ben", baseTime.Add(time.Hour)), loanActivity(item.ID))
	assert.ErrorIs(t, err, ErrItemUnavailable)

	returned := baseTime.Add(2 * time.Hour)
	condition := "good"
	loan.ReturnDate = &returned
	loan.ReturnCondition = &condition
	require.NoError(t, repos.loans.Return(ctx, loan, &models.Activity{ItemID: &item.ID, Type: models.ActivityReturn, Description: "returned", CreatedAt: returned}))

	stored, err = repos.items.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemStatusAvailable, stored.Status)

	assert.ErrorIs(t, repos.loans.Return(ctx, loan, &models.Activity{CreatedAt: returned}), ErrLoanReturned)
	assert.ErrorIs(t, repos.loans.Return(ctx, &models.Loan{ID: 999, ReturnDate: &returned}, &models.Activity{CreatedAt: returned}), sql.ErrNoRows)

	got, err := repos.loans.FindByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusReturned, got.Status)
	require.NotNil(t, got.ReturnDate)
	assert.True(t, got.ReturnDate.Equal(returned))
	assert.Equal(t, "ITEM-TEST-0001", got.ItemCode)

	activities, err := repos.activities.List(ctx, models.ActivityFilter{ItemID: &item.ID})
	require.NoError(t, err)
	require.Len(t, activities, 3)
	assert.Equal(t, models.ActivityReturn, activities[0].Type)
	assert.Equal(t, models.ActivityLoan, activities[1].Type)
	assert.Equal(t, models.ActivityNew, activities[2].Type)
}

func TestSQLiteConcurrentLoansSingleWinner(t *testing.T) {
	repos := newSQLiteRepos(t)
	item := repos.seedItem(t, "ITEM-RACE-0001")

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := repos.loans.Create(context.Background(), newLoan(item.ID, fmt.Sprintf("borrower-%d", n), baseTime.Add(time.Hour)), loanActivity(item.ID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrItemUnavailable):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, writers-1, conflicts)

	open, err := repos.loans.List(context.Background(), models.LoanFilter{ItemID: item.ID, Status: []models.LoanStatus{models.LoanStatusActive, models.LoanStatusOverdue}})
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestSQLiteOpenLoanUniqueIndex(t *testing.T) {
	repos := newSQLiteRepos(t)
	item := repos.seedItem(t, "ITEM-UNIQ-0001")
	require.NoError(t, repos.loans.Create(context.Background(), newLoan(item.ID, "Ana", baseTime.Add(time.Hour)), loanActivity(item.ID)))

	// Bypass the status guard to prove the index alone refuses a second open loan.
	_, err := repos.db.Exec(`UPDATE items SET status = 'available' WHERE id = ?`, item.ID)
	require.NoError(t, err)
	err = repos.loans.Create(context.Background(), newLoan(item.ID, "Ben", baseTime.Add(time.Hour)), loanActivity(item.ID))
	assert.ErrorIs(t, err, ErrItemUnavailable)
}

func TestSQLiteConcurrentQRAssociation(t *testing.T) {
	repos := newSQLiteRepos(t)
	ctx := context.Background()

	desc := "labels"
	code := &models.QRCode{QRCodeID: "QR-RACE-0001", Description: &desc, GeneratedAt: baseTime}
	require.NoError(t, repos.qrcodes.CreateBatch(ctx, []*models.QRCode{code}, &models.Activity{Type: models.ActivityQRGenerated, Description: "generated", CreatedAt: baseTime}))

	const writers = 6
	items := make([]*models.Item, writers)
	for i := range items {
		items[i] = repos.seedItem(t, fmt.Sprintf("ITEM-QR-%04d", i+1))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, item := range items {
		wg.Add(1)
		go func(itemID int64) {
			defer wg.Done()
			at := baseTime.Add(time.Hour)
			err := repos.qrcodes.Associate(ctx, &models.QRCode{QRCodeID: code.QRCodeID, AssignedItemID: &itemID, AssignedAt: &at},
				&models.Activity{ItemID: &itemID, Type: models.ActivityQRAssociated, Description: "associated", CreatedAt: at})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if !errors.Is(err, ErrQRCodeAssigned) {
				t.Errorf("unexpected error: %v", err)
			}
		}(item.ID)
	}
	wg.Wait()
	assert.Equal(t, 1, successes)

	stored, err := repos.qrcodes.FindByCode(ctx, code.QRCodeID)
	require.NoError(t, err)
	assert.True(t, stored.IsAssigned)
	require.NotNil(t, stored.AssignedItemID)

	owner, err := repos.items.FindByCode(ctx, code.QRCodeID)
	require.NoError(t, err)
	assert.Equal(t, *stored.AssignedItemID, owner.ID)

	unassigned, err := repos.qrcodes.CountUnassigned(ctx)
	require.NoError(t, err)
	assert.Zero(t, unassigned)
}

func TestSQLiteDeleteGuard(t *testing.T) {
	repos := newSQLiteRepos(t)
	ctx := context.Background()
	item := repos.seedItem(t, "ITEM-DEL-0001")
	deleteActivity := func() *models.Activity {
		return &models.Activity{Type: models.ActivityDelete, Description: "deleted", Metadata: models.Metadata{"itemId": item.ItemID}, CreatedAt: baseTime.Add(3 * time.Hour)}
	}

	loan := newLoan(item.ID, "Ana", baseTime.Add(time.Hour))
	require.NoError(t, repos.loans.Create(ctx, loan, loanActivity(item.ID)))
	assert.ErrorIs(t, repos.items.Delete(ctx, item.ID, deleteActivity()), ErrItemOnLoan)

	returned := baseTime.Add(2 * time.Hour)
	loan.ReturnDate = &returned
	require.NoError(t, repos.loans.Return(ctx, loan, &models.Activity{ItemID: &item.ID, Type: models.ActivityReturn, Description: "returned", CreatedAt: returned}))

	require.NoError(t, repos.items.Delete(ctx, item.ID, deleteActivity()))
	_, err := repos.items.FindByID(ctx, item.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = repos.loans.FindByID(ctx, loan.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, repos.items.Delete(ctx, item.ID, deleteActivity()), sql.ErrNoRows)

	feed, err := repos.activities.List(ctx, models.ActivityFilter{Type: models.ActivityDelete})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Nil(t, feed[0].ItemID)
	assert.Equal(t, "ITEM-DEL-0001", feed[0].Metadata["itemId"])
}

func TestSQLiteOverdueQueries(t *testing.T) {
	repos := newSQLiteRepos(t)
	ctx := context.Background()
	now := baseTime.Add(48 * time.Hour)

	late := repos.seedItem(t, "ITEM-OVR-0001")
	onTime := repos.seedItem(t, "ITEM-OVR-0002")
	require.NoError(t, repos.loans.Create(ctx, newLoan(late.ID, "Ana", now.Add(-24*time.Hour)), loanActivity(late.ID)))
	require.NoError(t, repos.loans.Create(ctx, newLoan(onTime.ID, "Ben", now.Add(24*time.Hour)), loanActivity(onTime.ID)))

	counts, err := repos.loans.CountOpen(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, OpenLoanCounts{Active: 1, Overdue: 1}, counts)

	overdue, err := repos.loans.List(ctx, models.LoanFilter{OverdueAt: &now})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ItemID)

	current, err := repos.loans.List(ctx, models.LoanFilter{CurrentAt: &now})
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, onTime.ID, current[0].ItemID)

	n, err := repos.loans.MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	persisted, err := repos.loans.List(ctx, models.LoanFilter{Status: []models.LoanStatus{models.LoanStatusOverdue}})
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, late.ID, persisted[0].ItemID)

	n, err = repos.loans.MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteItemUpdateAndList(t *testing.T) {
	repos := newSQLiteRepos(t)
	ctx := context.Background()
	item := repos.seedItem(t, "ITEM-UPD-0001")
	other := repos.seedItem(t, "ITEM-UPD-0002")

	item.Name = "Cordless drill"
	item.Status = models.ItemStatusMaintenance
	item.UpdatedAt = baseTime.Add(time.Hour)
	require.NoError(t, repos.items.Update(ctx, item, models.ItemStatusAvailable, &models.Activity{ItemID: &item.ID, Type: models.ActivityEdit, Description: "edited", CreatedAt: item.UpdatedAt}))

	assert.ErrorIs(t, repos.items.Update(ctx, item, models.ItemStatusAvailable, &models.Activity{CreatedAt: item.UpdatedAt}), ErrItemChanged)

	other.ItemID = item.ItemID
	assert.ErrorIs(t, repos.items.Update(ctx, other, models.ItemStatusAvailable, &models.Activity{CreatedAt: item.UpdatedAt}), ErrDuplicate)

	missing := *item
	missing.ID = 404
	assert.ErrorIs(t, repos.items.Update(ctx, &missing, models.ItemStatusMaintenance, &models.Activity{CreatedAt: item.UpdatedAt}), sql.ErrNoRows)

	list, total, err := repos.items.List(ctx, models.ItemFilter{Search: "cordless"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, models.ItemStatusMaintenance, list[0].Status)

	list, total, err = repos.items.List(ctx, models.ItemFilter{Status: models.ItemStatusAvailable, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)

	dup := &models.Item{ItemID: "ITEM-UPD-0002", Name: "dup", Origin: models.ItemOriginOther, Status: models.ItemStatusAvailable, CreatedAt: baseTime, UpdatedAt: baseTime}
	assert.ErrorIs(t, repos.items.Create(ctx, dup, &models.Activity{CreatedAt: baseTime}), ErrDuplicate)

	counts, err := repos.items.CountByStatus(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.StatusCount{{Status: "available", Count: 1}, {Status: "maintenance", Count: 1}}, counts)
}

func TestSQLiteUsers(t *testing.T) {
	repos := newSQLiteRepos(t)
	ctx := context.Background()

	user := &models.User{Email: "admin@example.org", PasswordHash: "hash", FullName: "Admin", Role: models.RoleAdmin, Active: true, CreatedAt: baseTime}
	require.NoError(t, repos.users.Create(ctx, user))
	assert.NotZero(t, user.ID)
	assert.ErrorIs(t, repos.users.Create(ctx, &models.User{Email: user.Email, PasswordHash: "x", FullName: "x", Role: models.RoleStaff, CreatedAt: baseTime}), ErrDuplicate)

	found, err := repos.users.FindByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.True(t, found.Active)

	_, err = repos.users.FindByID(ctx, 42)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

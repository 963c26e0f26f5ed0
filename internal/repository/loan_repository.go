package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/inventory-loan-api/internal/models"
)

const loanSelect = `SELECT l.id, l.item_id, l.borrower_name, l.borrower_email, l.borrower_phone, l.loan_date, l.due_date,
l.return_date, l.notes, l.return_condition, l.status, i.item_id AS item_code, i.name AS item_name
FROM loans l
JOIN items i ON i.id = l.item_id`

// LoanRepository persists loans and drives the item status transitions that accompany them.
type LoanRepository struct {
	db *sqlx.DB
}

// NewLoanRepository constructs the repository.
func NewLoanRepository(db *sqlx.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// Create flips the item to loaned and records the loan. ErrItemUnavailable is returned when
// the item is no longer available at write time.
func (r *LoanRepository) Create(ctx context.Context, loan *models.Loan, activity *models.Activity) error {
	return withTx(ctx, r.db, "create loan", func(tx *sqlx.Tx) error {
		n, err := execAffected(ctx, tx, `UPDATE items SET status = 'loaned', updated_at = ? WHERE id = ? AND status = 'available'`,
			loan.LoanDate, loan.ItemID)
		if err != nil {
			return fmt.Errorf("reserve item: %w", err)
		}
		if n == 0 {
			if err := itemExists(ctx, tx, loan.ItemID); err != nil {
				return err
			}
			return ErrItemUnavailable
		}

		const insert = `INSERT INTO loans (item_id, borrower_name, borrower_email, borrower_phone, loan_date, due_date, notes, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		id, err := insertReturningID(ctx, tx, insert,
			loan.ItemID, loan.BorrowerName, loan.BorrowerEmail, loan.BorrowerPhone, loan.LoanDate, loan.DueDate, loan.Notes, loan.Status)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrItemUnavailable
			}
			return fmt.Errorf("insert loan: %w", err)
		}
		loan.ID = id

		if err := insertActivity(ctx, tx, activity); err != nil {
			return fmt.Errorf("insert loan activity: %w", err)
		}
		return nil
	})
}

// Return marks the loan returned and frees its item. ErrLoanReturned is returned when another
// writer already closed the loan.
func (r *LoanRepository) Return(ctx context.Context, loan *models.Loan, activity *models.Activity) error {
	return withTx(ctx, r.db, "return loan", func(tx *sqlx.Tx) error {
		n, err := execAffected(ctx, tx, `UPDATE loans SET status = 'returned', return_date = ?, return_condition = ? WHERE id = ? AND status <> 'returned'`,
			loan.ReturnDate, loan.ReturnCondition, loan.ID)
		if err != nil {
			return fmt.Errorf("close loan: %w", err)
		}
		if n == 0 {
			var found int64
			err := tx.GetContext(ctx, &found, tx.Rebind(`SELECT id FROM loans WHERE id = ?`), loan.ID)
			if errors.Is(err, sql.ErrNoRows) {
				return sql.ErrNoRows
			}
			if err != nil {
				return fmt.Errorf("check loan: %w", err)
			}
			return ErrLoanReturned
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE items SET status = 'available', updated_at = ? WHERE id = ?`), loan.ReturnDate, loan.ItemID); err != nil {
			return fmt.Errorf("release item: %w", err)
		}
		if err := insertActivity(ctx, tx, activity); err != nil {
			return fmt.Errorf("insert return activity: %w", err)
		}
		return nil
	})
}

// FindByID returns sql.ErrNoRows when the loan does not exist.
func (r *LoanRepository) FindByID(ctx context.Context, id int64) (*models.Loan, error) {
	var loan models.Loan
	if err := r.db.GetContext(ctx, &loan, r.db.Rebind(loanSelect+` WHERE l.id = ?`), id); err != nil {
		return nil, err
	}
	return &loan, nil
}

// List returns loans matching filter ordered by loan date, newest first.
func (r *LoanRepository) List(ctx context.Context, filter models.LoanFilter) ([]models.Loan, error) {
	var (
		query strings.Builder
		args  []interface{}
	)
	query.WriteString(loanSelect)
	query.WriteString(` WHERE 1=1`)
	if filter.ItemID > 0 {
		query.WriteString(` AND l.item_id = ?`)
		args = append(args, filter.ItemID)
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query.WriteString(` AND l.status IN (` + strings.Join(placeholders, ", ") + `)`)
	}
	if filter.OverdueAt != nil {
		query.WriteString(` AND l.status IN ('active', 'overdue') AND l.due_date < ?`)
		args = append(args, *filter.OverdueAt)
	}
	if filter.CurrentAt != nil {
		query.WriteString(` AND l.status IN ('active', 'overdue') AND l.due_date >= ?`)
		args = append(args, *filter.CurrentAt)
	}
	if borrower := strings.TrimSpace(filter.Borrower); borrower != "" {
		query.WriteString(` AND LOWER(l.borrower_name) LIKE ?`)
		args = append(args, "%"+strings.ToLower(borrower)+"%")
	}
	query.WriteString(` ORDER BY l.loan_date DESC, l.id DESC`)
	args = appendPage(&query, args, filter.Limit, filter.Offset, filter.Unbounded)

	loans := []models.Loan{}
	if err := r.db.SelectContext(ctx, &loans, r.db.Rebind(query.String()), args...); err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return loans, nil
}

// MarkOverdue persists the overdue status for active loans due before now.
func (r *LoanRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	n, err := execAffected(ctx, r.db, `UPDATE loans SET status = 'overdue' WHERE status = 'active' AND due_date < ?`, now)
	if err != nil {
		return 0, fmt.Errorf("mark overdue loans: %w", err)
	}
	return n, nil
}

// OpenLoanCounts splits open loans into those still in time and those overdue at now.
type OpenLoanCounts struct {
	Active  int `db:"active"`
	Overdue int `db:"overdue"`
}

// CountOpen counts open loans using the derived overdue rule.
func (r *LoanRepository) CountOpen(ctx context.Context, now time.Time) (OpenLoanCounts, error) {
	var counts OpenLoanCounts
	query := r.db.Rebind(`SELECT
	COALESCE(SUM(CASE WHEN due_date < ? THEN 0 ELSE 1 END), 0) AS active,
	COALESCE(SUM(CASE WHEN due_date < ? THEN 1 ELSE 0 END), 0) AS overdue
FROM loans
WHERE status IN ('active', 'overdue')`)
	if err := r.db.GetContext(ctx, &counts, query, now, now); err != nil {
		return OpenLoanCounts{}, fmt.Errorf("count open loans: %w", err)
	}
	return counts, nil
}

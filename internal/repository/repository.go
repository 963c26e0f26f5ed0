package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Sentinel errors surfaced by conditional writes. Services translate them.
var (
	ErrItemUnavailable = errors.New("item not available")
	ErrItemOnLoan      = errors.New("item is on loan")
	ErrItemChanged     = errors.New("item status changed concurrently")
	ErrLoanReturned    = errors.New("loan already returned")
	ErrQRCodeAssigned  = errors.New("qr code already assigned")
	ErrDuplicate       = errors.New("duplicate record")
)

const (
	pgUniqueViolation    = "23505"
	sqliteConstraint     = 19
	sqliteConstraintUniq = 2067
	sqliteConstraintPK   = 1555
	defaultListLimit     = 50
	maxListLimit         = 500
)

// withTx runs fn inside a transaction, committing only when fn returns nil.
func withTx(ctx context.Context, db *sqlx.DB, name string, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s transaction: %w", name, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

// insertReturningID executes an INSERT written with ? placeholders and returns the new id.
func insertReturningID(ctx context.Context, ext sqlx.ExtContext, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := ext.QueryRowxContext(ctx, ext.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// execAffected executes stmt and returns the number of affected rows.
func execAffected(ctx context.Context, ext sqlx.ExtContext, query string, args ...interface{}) (int64, error) {
	res, err := ext.ExecContext(ctx, ext.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type sqliteCoder interface {
	Code() int
}

// isUniqueViolation recognises unique constraint failures across lib/pq, pgx and SQLite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr sqliteCoder
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqliteConstraintUniq, sqliteConstraintPK:
			return true
		case sqliteConstraint:
			return strings.Contains(err.Error(), "UNIQUE constraint failed")
		}
		return false
	}
	return false
}

// appendPage finishes query with LIMIT/OFFSET unless the caller asked for every row.
func appendPage(query *strings.Builder, args []interface{}, limit, offset int, unbounded bool) []interface{} {
	if unbounded {
		return args
	}
	if offset < 0 {
		offset = 0
	}
	query.WriteString(` LIMIT ? OFFSET ?`)
	return append(args, clampLimit(limit), offset)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

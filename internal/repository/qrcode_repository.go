package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/inventory-loan-api/internal/models"
)

const qrColumns = `id, qr_code_id, description, generated_at, is_assigned, assigned_item_id, assigned_at`

// QRCodeRepository persists generated QR codes and their single assignment.
type QRCodeRepository struct {
	db *sqlx.DB
}

// NewQRCodeRepository constructs the repository.
func NewQRCodeRepository(db *sqlx.DB) *QRCodeRepository {
	return &QRCodeRepository{db: db}
}

// CreateBatch inserts every code and the generation activity in one transaction.
func (r *QRCodeRepository) CreateBatch(ctx context.Context, codes []*models.QRCode, activity *models.Activity) error {
	return withTx(ctx, r.db, "create qr batch", func(tx *sqlx.Tx) error {
		const query = `INSERT INTO qr_codes (qr_code_id, description, generated_at, is_assigned) VALUES (?, ?, ?, ?)`
		for _, code := range codes {
			id, err := insertReturningID(ctx, tx, query, code.QRCodeID, code.Description, code.GeneratedAt, false)
			if err != nil {
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: qr code %s", ErrDuplicate, code.QRCodeID)
				}
				return fmt.Errorf("insert qr code: %w", err)
			}
			code.ID = id
		}
		if err := insertActivity(ctx, tx, activity); err != nil {
			return fmt.Errorf("insert qr activity: %w", err)
		}
		return nil
	})
}

// FindByCode returns sql.ErrNoRows when code is unknown.
func (r *QRCodeRepository) FindByCode(ctx context.Context, code string) (*models.QRCode, error) {
	var qr models.QRCode
	if err := r.db.GetContext(ctx, &qr, r.db.Rebind(`SELECT `+qrColumns+` FROM qr_codes WHERE qr_code_id = ?`), code); err != nil {
		return nil, err
	}
	return &qr, nil
}

// List returns codes newest first, optionally filtered by assignment.
func (r *QRCodeRepository) List(ctx context.Context, filter models.QRCodeFilter) ([]models.QRCode, error) {
	var (
		query strings.Builder
		args  []interface{}
	)
	query.WriteString(`SELECT ` + qrColumns + ` FROM qr_codes WHERE 1=1`)
	if filter.Assigned != nil {
		query.WriteString(` AND is_assigned = ?`)
		args = append(args, *filter.Assigned)
	}
	query.WriteString(` ORDER BY generated_at DESC, id DESC`)
	args = appendPage(&query, args, filter.Limit, filter.Offset, filter.Unbounded)

	codes := []models.QRCode{}
	if err := r.db.SelectContext(ctx, &codes, r.db.Rebind(query.String()), args...); err != nil {
		return nil, fmt.Errorf("list qr codes: %w", err)
	}
	return codes, nil
}

// Associate assigns qr to an item exactly once. The conditional update makes the losing
// writer of a race observe ErrQRCodeAssigned.
func (r *QRCodeRepository) Associate(ctx context.Context, qr *models.QRCode, activity *models.Activity) error {
	return withTx(ctx, r.db, "associate qr code", func(tx *sqlx.Tx) error {
		n, err := execAffected(ctx, tx, `UPDATE qr_codes SET is_assigned = ?, assigned_item_id = ?, assigned_at = ? WHERE qr_code_id = ? AND is_assigned = ?`,
			true, qr.AssignedItemID, qr.AssignedAt, qr.QRCodeID, false)
		if err != nil {
			return fmt.Errorf("assign qr code: %w", err)
		}
		if n == 0 {
			var found int64
			err := tx.GetContext(ctx, &found, tx.Rebind(`SELECT id FROM qr_codes WHERE qr_code_id = ?`), qr.QRCodeID)
			if errors.Is(err, sql.ErrNoRows) {
				return sql.ErrNoRows
			}
			if err != nil {
				return fmt.Errorf("check qr code: %w", err)
			}
			return ErrQRCodeAssigned
		}

		if err := setQRCode(ctx, tx, *qr.AssignedItemID, qr.QRCodeID, *qr.AssignedAt); err != nil {
			return err
		}
		qr.IsAssigned = true

		if err := insertActivity(ctx, tx, activity); err != nil {
			return fmt.Errorf("insert association activity: %w", err)
		}
		return nil
	})
}

// CountUnassigned reports how many generated codes are still free.
func (r *QRCodeRepository) CountUnassigned(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM qr_codes WHERE is_assigned = ?`), false); err != nil {
		return 0, fmt.Errorf("count unassigned qr codes: %w", err)
	}
	return count, nil
}

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

const itemColumns = `id, item_id, name, description, location, photo_url, origin, donor_name, qr_code, barcode, status, created_at, updated_at`

// ItemRepository persists inventory items.
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository constructs the repository.
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts the item and its creation activity atomically.
func (r *ItemRepository) Create(ctx context.Context, item *models.Item, activity *models.Activity) error {
	return withTx(ctx, r.db, "create item", func(tx *sqlx.Tx) error {
		const query = `INSERT INTO items (item_id, name, description, location, photo_url, origin, donor_name, qr_code, barcode, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		id, err := insertReturningID(ctx, tx, query,
			item.ItemID, item.Name, item.Description, item.Location, item.PhotoURL, item.Origin,
			item.DonorName, item.QRCode, item.Barcode, item.Status, item.CreatedAt, item.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert item: %w", err)
		}
		item.ID = id

		activity.ItemID = &item.ID
		if err := insertActivity(ctx, tx, activity); err != nil {
			return fmt.Errorf("insert item activity: %w", err)
		}
		return nil
	})
}

// FindByID returns sql.ErrNoRows when the item does not exist.
func (r *ItemRepository) FindByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	query := r.db.Rebind(`SELECT ` + itemColumns + ` FROM items WHERE id = ?`)
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByCode resolves a scanned code against item_id first, then qr_code and barcode.
func (r *ItemRepository) FindByCode(ctx context.Context, code string) (*models.Item, error) {
	var item models.Item
	query := r.db.Rebind(`SELECT ` + itemColumns + ` FROM items
WHERE item_id = ? OR qr_code = ? OR barcode = ?
ORDER BY CASE WHEN item_id = ? THEN 0 WHEN qr_code = ? THEN 1 ELSE 2 END, id
LIMIT 1`)
	if err := r.db.GetContext(ctx, &item, query, code, code, code, code, code); err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns a page of items and the total number of matches.
func (r *ItemRepository) List(ctx context.Context, filter models.ItemFilter) ([]models.Item, int, error) {
	var (
		where strings.Builder
		args  []interface{}
	)
	where.WriteString(` WHERE 1=1`)
	if filter.Status != "" {
		where.WriteString(` AND status = ?`)
		args = append(args, filter.Status)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		where.WriteString(` AND (LOWER(name) LIKE ? OR LOWER(item_id) LIKE ? OR LOWER(COALESCE(location, '')) LIKE ?)`)
		args = append(args, pattern, pattern, pattern)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM items`+where.String()), args...); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	listArgs := append(append([]interface{}{}, args...), size, (page-1)*size)

	items := []models.Item{}
	query := r.db.Rebind(`SELECT ` + itemColumns + ` FROM items` + where.String() + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &items, query, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	return items, total, nil
}

// Update writes every mutable column provided the stored status still equals expected.
func (r *ItemRepository) Update(ctx context.Context, item *models.Item, expected models.ItemStatus, activity *models.Activity) error {
	return withTx(ctx, r.db, "update item", func(tx *sqlx.Tx) error {
		const query = `UPDATE items SET item_id = ?, name = ?, description = ?, location = ?, photo_url = ?, origin = ?,
donor_name = ?, barcode = ?, status = ?, updated_at = ?
WHERE id = ? AND status = ?`
		n, err := execAffected(ctx, tx, query,
			item.ItemID, item.Name, item.Description, item.Location, item.PhotoURL, item.Origin,
			item.DonorName, item.Barcode, item.Status, item.UpdatedAt, item.ID, expected,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("update item: %w", err)
		}
		if n == 0 {
			if err := itemExists(ctx, tx, item.ID); err != nil {
				return err
			}
			return ErrItemChanged
		}
		if err := insertActivity(ctx, tx, activity); err != nil {
			return fmt.Errorf("insert edit activity: %w", err)
		}
		return nil
	})
}

// Delete removes an item together with its returned loans. Items with an open loan are refused.
func (r *ItemRepository) Delete(ctx context.Context, id int64, activity *models.Activity) error {
	return withTx(ctx, r.db, "delete item", func(tx *sqlx.Tx) error {
		var open int
		countQuery := tx.Rebind(`SELECT COUNT(*) FROM loans WHERE item_id = ? AND status IN ('active', 'overdue')`)
		if err := tx.GetContext(ctx, &open, countQuery, id); err != nil {
			return fmt.Errorf("count open loans: %w", err)
		}
		if open > 0 {
			return ErrItemOnLoan
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM loans WHERE item_id = ? AND status = 'returned'`), id); err != nil {
			return fmt.Errorf("purge item loans: %w", err)
		}
		n, err := execAffected(ctx, tx, `DELETE FROM items WHERE id = ? AND status <> 'loaned'`, id)
		if err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		if n == 0 {
			if err := itemExists(ctx, tx, id); err != nil {
				return err
			}
			return ErrItemOnLoan
		}

		if err := insertActivity(ctx, tx, activity); err != nil {
			return fmt.Errorf("insert delete activity: %w", err)
		}
		return nil
	})
}

// CountByStatus groups the inventory by status.
func (r *ItemRepository) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	counts := []models.StatusCount{}
	const query = `SELECT status, COUNT(*) AS count FROM items GROUP BY status ORDER BY status`
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count items by status: %w", err)
	}
	return counts, nil
}

// setQRCode points the item at a freshly associated code.
func setQRCode(ctx context.Context, ext sqlx.ExtContext, itemID int64, code string, at time.Time) error {
	n, err := execAffected(ctx, ext, `UPDATE items SET qr_code = ?, updated_at = ? WHERE id = ?`, code, at, itemID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrQRCodeAssigned
		}
		return fmt.Errorf("set item qr code: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func itemExists(ctx context.Context, ext sqlx.ExtContext, id int64) error {
	var found int64
	err := sqlx.GetContext(ctx, ext, &found, ext.Rebind(`SELECT id FROM items WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("check item: %w", err)
	}
	return nil
}

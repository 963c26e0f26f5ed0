package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/inventory-loan-api/internal/models"
)

const activityColumns = `id, item_id, type, description, metadata, created_at`

// ActivityRepository reads and appends activity log entries.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends a single entry outside of any other write.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if err := insertActivity(ctx, r.db, activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	var (
		query strings.Builder
		args  []interface{}
	)
	query.WriteString(`SELECT ` + activityColumns + ` FROM activities WHERE 1=1`)
	if filter.ItemID != nil {
		query.WriteString(` AND item_id = ?`)
		args = append(args, *filter.ItemID)
	}
	if filter.Type != "" {
		query.WriteString(` AND type = ?`)
		args = append(args, filter.Type)
	}
	query.WriteString(` ORDER BY created_at DESC, id DESC LIMIT ?`)
	args = append(args, clampLimit(filter.Limit))

	activities := []models.Activity{}
	if err := r.db.SelectContext(ctx, &activities, r.db.Rebind(query.String()), args...); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// insertActivity writes the entry through ext so callers can include it in their transaction.
func insertActivity(ctx context.Context, ext sqlx.ExtContext, activity *models.Activity) error {
	const query = `INSERT INTO activities (item_id, type, description, metadata, created_at) VALUES (?, ?, ?, ?, ?)`
	id, err := insertReturningID(ctx, ext, query, activity.ItemID, activity.Type, activity.Description, activity.Metadata, activity.CreatedAt)
	if err != nil {
		return err
	}
	activity.ID = id
	return nil
}

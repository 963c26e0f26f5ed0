package models

import "time"

// QRCode is a pre-generated label identifier bound to at most one item.
type QRCode struct {
	ID             int64      `db:"id" json:"id"`
	QRCodeID       string     `db:"qr_code_id" json:"qrCodeId"`
	Description    *string    `db:"description" json:"description,omitempty"`
	GeneratedAt    time.Time  `db:"generated_at" json:"generatedAt"`
	IsAssigned     bool       `db:"is_assigned" json:"isAssigned"`
	AssignedItemID *int64     `db:"assigned_item_id" json:"assignedItemId,omitempty"`
	AssignedAt     *time.Time `db:"assigned_at" json:"assignedAt,omitempty"`
}

// QRCodeFilter constrains QR listing.
type QRCodeFilter struct {
	Assigned *bool
	Limit    int
	Offset   int
	// Unbounded returns every match and ignores Limit and Offset.
	Unbounded bool
}

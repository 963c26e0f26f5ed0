package models

import "time"

// ItemStatus captures the availability of an inventory item.
type ItemStatus string

const (
	ItemStatusAvailable   ItemStatus = "available"
	ItemStatusLoaned      ItemStatus = "loaned"
	ItemStatusMaintenance ItemStatus = "maintenance"
)

// Valid reports whether s is a known status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusAvailable, ItemStatusLoaned, ItemStatusMaintenance:
		return true
	}
	return false
}

// ItemOrigin records how the organisation acquired an item.
type ItemOrigin string

const (
	ItemOriginPurchased ItemOrigin = "purchased"
	ItemOriginDonated   ItemOrigin = "donated"
	ItemOriginOther     ItemOrigin = "other"
)

// Item is a trackable physical asset.
type Item struct {
	ID          int64      `db:"id" json:"id"`
	ItemID      string     `db:"item_id" json:"itemId"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description,omitempty"`
	Location    *string    `db:"location" json:"location,omitempty"`
	PhotoURL    *string    `db:"photo_url" json:"photoUrl,omitempty"`
	Origin      ItemOrigin `db:"origin" json:"origin"`
	DonorName   *string    `db:"donor_name" json:"donorName,omitempty"`
	QRCode      *string    `db:"qr_code" json:"qrCode,omitempty"`
	Barcode     *string    `db:"barcode" json:"barcode,omitempty"`
	Status      ItemStatus `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// ItemFilter constrains item listing queries.
type ItemFilter struct {
	Status   ItemStatus
	Search   string
	Page     int
	PageSize int
}

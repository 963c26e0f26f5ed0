package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ActivityType enumerates audited state transitions.
type ActivityType string

const (
	ActivityNew          ActivityType = "new"
	ActivityLoan         ActivityType = "loan"
	ActivityReturn       ActivityType = "return"
	ActivityEdit         ActivityType = "edit"
	ActivityDelete       ActivityType = "delete"
	ActivityQRGenerated  ActivityType = "qrGenerated"
	ActivityQRAssociated ActivityType = "qrAssociated"
)

// Metadata is an opaque key/value payload stored as JSON text.
type Metadata map[string]interface{}

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner for both text and byte columns.
func (m *Metadata) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("metadata: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}

// Activity is an immutable audit entry describing one transition.
type Activity struct {
	ID          int64        `db:"id" json:"id"`
	ItemID      *int64       `db:"item_id" json:"itemId,omitempty"`
	Type        ActivityType `db:"type" json:"type"`
	Description string       `db:"description" json:"description"`
	Metadata    Metadata     `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
}

// ActivityFilter constrains activity listing.
type ActivityFilter struct {
	ItemID *int64
	Type   ActivityType
	Limit  int
}

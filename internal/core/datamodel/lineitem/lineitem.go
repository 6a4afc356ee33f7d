package lineitem

import (
	"encoding/json"
	"time"
)

// Line item status is a supplier-side concern (accept/decline flows outside
// this service) and is independent of the booking's payment status.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusAccepted  = "accepted"
	StatusDeclined  = "declined"
)

// LineItem is one supplier commitment inside a booking.
type LineItem struct {
	ID           int64           `gorm:"primaryKey"`
	BookingID    int64           `gorm:"column:booking_id;not null;index"`
	SupplierID   int64           `gorm:"column:supplier_id;not null;index"`
	Category     string          `gorm:"column:category;not null"`
	QuotedPrice  int64           `gorm:"column:quoted_price;not null"`
	Message      string          `gorm:"column:message"`
	PackageID    string          `gorm:"column:package_id"`
	AddonDetails json.RawMessage `gorm:"column:addon_details;type:jsonb"`
	Status       string          `gorm:"column:status;default:pending"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
	UpdatedAt    time.Time       `gorm:"column:updated_at"`
}

func (LineItem) TableName() string {
	return "line_items"
}

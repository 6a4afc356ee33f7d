package booking

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Payment status values mirrored from gateway events. Status-only events may
// overwrite each other in any order; only "paid"/"partially_paid" are set by
// the settlement transaction itself.
const (
	PaymentStatusPending        = "pending"
	PaymentStatusProcessing     = "processing"
	PaymentStatusRequiresAction = "requires_action"
	PaymentStatusFailed         = "failed"
	PaymentStatusCanceled       = "canceled"
	PaymentStatusPaid           = "paid"
	PaymentStatusPartiallyPaid  = "partially_paid"
	PaymentStatusRefunded       = "refunded"
)

// CategoryEInvites is the ancillary digital-invite category. It never maps to
// a supplier commitment, so settlement planning and fan-out both skip it.
const CategoryEInvites = "einvites"

// PlanSlot is one selected service inside a booking's plan: the chosen
// supplier, package and agreed price for a category.
type PlanSlot struct {
	SupplierID  *int64          `json:"supplier_id"`
	PackageID   string          `json:"package_id"`
	Price       int64           `json:"price"`
	PackageData json.RawMessage `json:"package_data,omitempty"`
}

// Plan maps service category to the customer's selection.
type Plan map[string]PlanSlot

func (p Plan) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func (p *Plan) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*p = nil
			return nil
		}
		return json.Unmarshal(v, p)
	case string:
		if v == "" {
			*p = nil
			return nil
		}
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("unsupported type for plan column")
	}
}

type Addon struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity,omitempty"`
}

type Addons []Addon

func (a Addons) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func (a *Addons) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*a = nil
			return nil
		}
		return json.Unmarshal(v, a)
	case string:
		if v == "" {
			*a = nil
			return nil
		}
		return json.Unmarshal([]byte(v), a)
	default:
		return errors.New("unsupported type for addons column")
	}
}

// Booking is one customer's party. The settlement pipeline only ever updates
// payment fields and adds line items; it never deletes anything here.
type Booking struct {
	ID              int64      `gorm:"primaryKey"`
	CustomerName    string     `gorm:"column:customer_name"`
	CustomerEmail   string     `gorm:"column:customer_email"`
	CustomerPhone   *string    `gorm:"column:customer_phone"`
	PartyDate       *time.Time `gorm:"column:party_date"`
	PaymentIntentID *string    `gorm:"column:payment_intent_id;uniqueIndex"`
	PaymentStatus   string     `gorm:"column:payment_status;default:pending"`
	TotalPrice      int64      `gorm:"column:total_price;not null"`
	AmountPaid      int64      `gorm:"column:amount_paid;default:0"`
	RefundedAmount  int64      `gorm:"column:refunded_amount;default:0"`
	Plan            Plan       `gorm:"column:plan;type:jsonb"`
	Addons          Addons     `gorm:"column:addons;type:jsonb"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

// RemainingBalance is what the customer still owes after crediting amount.
func (b *Booking) RemainingBalance(amount int64) int64 {
	remaining := b.TotalPrice - b.AmountPaid - amount
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == PaymentStatusPaid
}

package settlement

import (
	"time"
)

// Record outcomes. An upgrade payment shares the same durable idempotency
// gate as a full settlement; the outcome records which flow wrote it.
const (
	OutcomeSettled = "settled"
	OutcomeUpgrade = "upgrade"
)

// Record is the idempotency marker for one gateway payment. The unique index
// on payment_id is the invariant the whole pipeline leans on: at most one
// record per payment identifier, written in the same transaction as the line
// items and booking update it accounts for.
type Record struct {
	ID          string    `gorm:"primaryKey"`
	PaymentID   string    `gorm:"column:payment_id;not null;uniqueIndex"`
	BookingID   int64     `gorm:"column:booking_id;not null;index"`
	TotalAmount int64     `gorm:"column:total_amount;not null"`
	Outcome     string    `gorm:"column:outcome;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (Record) TableName() string {
	return "settlement_records"
}

// Failure is the manual-reconciliation queue. When a verified event fails
// inside the pipeline but is acknowledged anyway (so the gateway does not
// retry forever against a deterministic bug), a row lands here for a human.
type Failure struct {
	ID        int64     `gorm:"primaryKey"`
	BookingID int64     `gorm:"column:booking_id;index"`
	PaymentID string    `gorm:"column:payment_id"`
	EventKind string    `gorm:"column:event_kind"`
	Detail    string    `gorm:"column:detail"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Failure) TableName() string {
	return "settlement_failures"
}

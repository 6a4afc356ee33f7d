package settlement

import (
	"fmt"
	"log/slog"

	"github.com/partybook/settlement-service/internal/core/datamodel/booking"
	"github.com/partybook/settlement-service/internal/core/datamodel/lineitem"
	settlementmodel "github.com/partybook/settlement-service/internal/core/datamodel/settlement"
)

type Outcome string

const (
	// OutcomeApplied means this call created the settlement record and every
	// side effect that goes with it.
	OutcomeApplied Outcome = "applied"
	// OutcomeAlreadyApplied means a record for this payment id already
	// existed; nothing was changed. Replays are expected, not errors.
	OutcomeAlreadyApplied Outcome = "already_applied"
)

// SettleParams are the inputs to the atomic settle operation.
type SettleParams struct {
	BookingID        int64
	PaymentID        string
	TotalAmount      int64
	RemainingBalance int64
	Plan             Plan
}

// Repository is the storage contract the settlement pipeline needs. The
// SettlePayment and RecordUpgrade operations must be atomic: either the
// settlement record and every dependent write commit together, or none do.
type Repository interface {
	GetBookingByID(id int64) (*booking.Booking, error)
	GetBookingByPaymentID(paymentID string) (*booking.Booking, error)
	LineItemsForBooking(bookingID int64) ([]*lineitem.LineItem, error)
	SettlePayment(params SettleParams) (applied bool, items []*lineitem.LineItem, err error)
	RecordUpgrade(bookingID int64, paymentID string, amount int64) (applied bool, err error)
	UpdatePaymentStatus(bookingID int64, status string) error
	MarkRefunded(paymentID string, amount int64) (*booking.Booking, error)
	RecordFailure(f *settlementmodel.Failure) error
}

// Executor applies a settlement plan exactly once per payment identifier.
// The settlement record is the sole idempotency gate; booking or payment
// status must never be used for that purpose because unrelated flows mutate
// them concurrently.
type Executor struct {
	repo   Repository
	logger *slog.Logger
}

func NewExecutor(repo Repository, logger *slog.Logger) *Executor {
	return &Executor{
		repo:   repo,
		logger: logger,
	}
}

// Execute runs the plan as a single atomic unit. A storage failure leaves no
// partial state and is surfaced transient so the gateway retries; retrying
// after a commit converges on OutcomeAlreadyApplied.
func (e *Executor) Execute(params SettleParams) (Outcome, []*lineitem.LineItem, error) {
	applied, items, err := e.repo.SettlePayment(params)
	if err != nil {
		e.logger.Error("settlement transaction failed",
			"error", err,
			"booking_id", params.BookingID,
			"payment_id", params.PaymentID)
		return "", nil, fmt.Errorf("settlement failed for payment %s: %w", params.PaymentID, err)
	}

	if !applied {
		e.logger.Info("settlement already applied, treating as replay",
			"booking_id", params.BookingID,
			"payment_id", params.PaymentID)
		return OutcomeAlreadyApplied, nil, nil
	}

	e.logger.Info("settlement applied",
		"booking_id", params.BookingID,
		"payment_id", params.PaymentID,
		"total_amount", params.TotalAmount,
		"line_items", len(items))

	return OutcomeApplied, items, nil
}

// ApplyUpgrade records an additional payment against an already-settled
// booking. Upgrades skip planning and fan-out but share the same durable
// idempotency gate, so a redelivered upgrade event cannot double-credit.
func (e *Executor) ApplyUpgrade(bookingID int64, paymentID string, amount int64) (Outcome, error) {
	applied, err := e.repo.RecordUpgrade(bookingID, paymentID, amount)
	if err != nil {
		e.logger.Error("upgrade payment failed",
			"error", err,
			"booking_id", bookingID,
			"payment_id", paymentID)
		return "", fmt.Errorf("upgrade failed for payment %s: %w", paymentID, err)
	}

	if !applied {
		e.logger.Info("upgrade already applied, treating as replay",
			"booking_id", bookingID,
			"payment_id", paymentID)
		return OutcomeAlreadyApplied, nil
	}

	e.logger.Info("upgrade payment applied",
		"booking_id", bookingID,
		"payment_id", paymentID,
		"amount", amount)

	return OutcomeApplied, nil
}

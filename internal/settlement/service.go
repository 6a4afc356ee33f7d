package settlement

import (
	"fmt"
	"log/slog"

	"github.com/partybook/settlement-service/internal/core/datamodel/booking"
	"github.com/partybook/settlement-service/internal/core/datamodel/lineitem"
	settlementmodel "github.com/partybook/settlement-service/internal/core/datamodel/settlement"
)

// Result is what a settle attempt hands back to whoever needs to fan out
// notifications: the outcome, the booking as it was read, and the line items
// the transaction created or updated (nil on replay).
type Result struct {
	Outcome Outcome
	Booking *booking.Booking
	Items   []*lineitem.LineItem
}

// Service glues planner and executor together and owns the narrow
// status-mirror operations. Both the primary webhook path and the
// reconciliation backup path settle through here, so the idempotency
// guarantee covers both entry points uniformly.
type Service struct {
	repo     Repository
	executor *Executor
	logger   *slog.Logger
}

func NewService(repo Repository, executor *Executor, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		executor: executor,
		logger:   logger,
	}
}

// SettleBooking plans and executes a full settlement for one payment.
func (s *Service) SettleBooking(bookingID int64, paymentID string, amount int64) (*Result, error) {
	b, err := s.repo.GetBookingByID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("booking lookup failed: %w", err)
	}

	existing, err := s.repo.LineItemsForBooking(bookingID)
	if err != nil {
		return nil, fmt.Errorf("line item lookup failed: %w", err)
	}

	plan := BuildPlan(b, existing)

	s.logger.Info("settlement plan built",
		"booking_id", bookingID,
		"payment_id", paymentID,
		"drafts", len(plan.Drafts),
		"updates", len(plan.UpdateIDs))

	outcome, items, err := s.executor.Execute(SettleParams{
		BookingID:        bookingID,
		PaymentID:        paymentID,
		TotalAmount:      amount,
		RemainingBalance: b.RemainingBalance(amount),
		Plan:             plan,
	})
	if err != nil {
		return nil, err
	}

	return &Result{Outcome: outcome, Booking: b, Items: items}, nil
}

func (s *Service) ApplyUpgrade(bookingID int64, paymentID string, amount int64) (Outcome, error) {
	return s.executor.ApplyUpgrade(bookingID, paymentID, amount)
}

func (s *Service) BookingByPaymentID(paymentID string) (*booking.Booking, error) {
	return s.repo.GetBookingByPaymentID(paymentID)
}

// UpdatePaymentStatus mirrors a status-only gateway event onto the booking.
// No settlement record is involved; these updates are safely repeatable.
func (s *Service) UpdatePaymentStatus(bookingID int64, status string) error {
	if err := s.repo.UpdatePaymentStatus(bookingID, status); err != nil {
		return fmt.Errorf("payment status update failed: %w", err)
	}

	s.logger.Info("payment status updated",
		"booking_id", bookingID,
		"status", status)
	return nil
}

// RecordRefund locates the booking by payment identifier and records the
// refunded status and amount.
func (s *Service) RecordRefund(paymentID string, amount int64) (*booking.Booking, error) {
	b, err := s.repo.MarkRefunded(paymentID, amount)
	if err != nil {
		return nil, fmt.Errorf("refund recording failed: %w", err)
	}

	s.logger.Info("refund recorded",
		"booking_id", b.ID,
		"payment_id", paymentID,
		"amount", amount)
	return b, nil
}

// RecordFailure queues a processing failure for manual reconciliation. Best
// effort: the caller is about to acknowledge the event regardless, so a
// failure here is logged, never propagated.
func (s *Service) RecordFailure(bookingID int64, paymentID, eventKind, detail string) {
	f := &settlementmodel.Failure{
		BookingID: bookingID,
		PaymentID: paymentID,
		EventKind: eventKind,
		Detail:    detail,
	}
	if err := s.repo.RecordFailure(f); err != nil {
		s.logger.Error("failed to record settlement failure",
			"error", err,
			"booking_id", bookingID,
			"payment_id", paymentID,
			"detail", detail)
	}
}

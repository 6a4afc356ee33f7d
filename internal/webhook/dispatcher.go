package webhook

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/partybook/settlement-service/internal"
	"github.com/partybook/settlement-service/internal/core/datamodel/booking"
	"github.com/partybook/settlement-service/internal/core/datamodel/lineitem"
	"github.com/partybook/settlement-service/internal/core/events"
	"github.com/partybook/settlement-service/internal/notification"
	"github.com/partybook/settlement-service/internal/settlement"
)

// SettlementAPI is what the dispatcher needs from the settlement service.
type SettlementAPI interface {
	SettleBooking(bookingID int64, paymentID string, amount int64) (*settlement.Result, error)
	ApplyUpgrade(bookingID int64, paymentID string, amount int64) (settlement.Outcome, error)
	UpdatePaymentStatus(bookingID int64, status string) error
	RecordRefund(paymentID string, amount int64) (*booking.Booking, error)
	RecordFailure(bookingID int64, paymentID, eventKind, detail string)
}

// ReconcilerAPI handles the backup confirmation signal.
type ReconcilerAPI interface {
	Reconcile(ctx context.Context, paymentID, methodFamily string) (settlement.ReconcileOutcome, *settlement.Result, error)
}

// FanoutAPI sends post-settlement notifications.
type FanoutAPI interface {
	Notify(ctx context.Context, b *booking.Booking, items []*lineitem.LineItem, pctx notification.PaymentContext) []notification.Outcome
}

// DispatchResult summarizes one handled event for the acknowledgement body.
type DispatchResult struct {
	Kind    EventKind `json:"kind"`
	Handled bool      `json:"handled"`
	Detail  string    `json:"detail,omitempty"`
}

// statusByKind maps status-only event kinds to the booking payment status
// they mirror.
var statusByKind = map[EventKind]string{
	KindPaymentFailed:         booking.PaymentStatusFailed,
	KindPaymentProcessing:     booking.PaymentStatusProcessing,
	KindPaymentRequiresAction: booking.PaymentStatusRequiresAction,
	KindPaymentCanceled:       booking.PaymentStatusCanceled,
}

// Dispatcher routes classified events to the settlement pipeline. The error
// it returns decides the webhook response: a transient error asks the
// gateway to redeliver, any other error is recorded as a failure and the
// delivery is acknowledged so the gateway stops retrying something a retry
// cannot fix.
type Dispatcher struct {
	settlement SettlementAPI
	reconciler ReconcilerAPI
	fanout     FanoutAPI
	bus        *events.EventBus
	logger     *slog.Logger
}

func NewDispatcher(settlementAPI SettlementAPI, reconciler ReconcilerAPI, fanout FanoutAPI, bus *events.EventBus, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		settlement: settlementAPI,
		reconciler: reconciler,
		fanout:     fanout,
		bus:        bus,
		logger:     logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event *ClassifiedEvent) (*DispatchResult, error) {
	logger := d.logger.With(
		"gateway_event_id", event.GatewayEventID,
		"kind", event.Kind,
		"payment_id", event.PaymentID)

	switch event.Kind {
	case KindUnhandled:
		logger.Info("ignoring unhandled event type")
		return &DispatchResult{Kind: event.Kind, Handled: false, Detail: "event type not handled"}, nil

	case KindPaymentSucceeded:
		return d.handleSucceeded(ctx, event, logger)

	case KindPaymentFailed, KindPaymentProcessing, KindPaymentRequiresAction, KindPaymentCanceled:
		return d.handleStatusChange(ctx, event, logger)

	case KindChargeRefunded:
		return d.handleRefund(ctx, event, logger)

	case KindChargeSucceededBackup:
		return d.handleBackup(ctx, event, logger)
	}

	return &DispatchResult{Kind: event.Kind, Handled: false}, nil
}

func (d *Dispatcher) handleSucceeded(ctx context.Context, event *ClassifiedEvent, logger *slog.Logger) (*DispatchResult, error) {
	if !event.BookingIDValid {
		logger.Error("succeeded payment has no usable booking correlation")
		d.settlement.RecordFailure(0, event.PaymentID, string(event.Kind), "missing or invalid booking id in event metadata")
		return nil, errors.NewValidationError(
			"payment event carries no usable booking id",
			errors.ErrCodeInvalidCorrelation)
	}

	if event.IsUpgrade {
		outcome, err := d.settlement.ApplyUpgrade(event.BookingID, event.PaymentID, event.Amount)
		if err != nil {
			return nil, d.recordUnlessTransient(event, err)
		}
		if outcome == settlement.OutcomeApplied {
			d.bus.Publish(ctx, events.NewBookingUpgradedEvent(event.BookingID, event.PaymentID, event.Amount))
		}
		return &DispatchResult{Kind: event.Kind, Handled: true, Detail: string(outcome)}, nil
	}

	result, err := d.settlement.SettleBooking(event.BookingID, event.PaymentID, event.Amount)
	if err != nil {
		return nil, d.recordUnlessTransient(event, err)
	}

	if result.Outcome == settlement.OutcomeApplied {
		d.fanout.Notify(ctx, result.Booking, result.Items, notification.PaymentContext{
			PaymentID: event.PaymentID,
			Amount:    event.Amount,
		})
		d.bus.Publish(ctx, events.NewBookingSettledEvent(
			event.BookingID, event.PaymentID, event.Amount, len(result.Items)))
	}

	return &DispatchResult{Kind: event.Kind, Handled: true, Detail: string(result.Outcome)}, nil
}

func (d *Dispatcher) handleStatusChange(ctx context.Context, event *ClassifiedEvent, logger *slog.Logger) (*DispatchResult, error) {
	if !event.BookingIDValid {
		// status mirrors are best effort; without correlation there is
		// nothing to update and nothing worth queueing
		logger.Warn("status event has no usable booking correlation, acknowledging")
		return &DispatchResult{Kind: event.Kind, Handled: false, Detail: "no booking correlation"}, nil
	}

	status := statusByKind[event.Kind]
	if err := d.settlement.UpdatePaymentStatus(event.BookingID, status); err != nil {
		return nil, d.recordUnlessTransient(event, err)
	}

	d.bus.Publish(ctx, events.NewPaymentStatusChangedEvent(event.BookingID, status))
	return &DispatchResult{Kind: event.Kind, Handled: true, Detail: status}, nil
}

func (d *Dispatcher) handleRefund(ctx context.Context, event *ClassifiedEvent, logger *slog.Logger) (*DispatchResult, error) {
	if event.PaymentID == "" {
		logger.Warn("refund event carries no payment intent reference, acknowledging")
		return &DispatchResult{Kind: event.Kind, Handled: false, Detail: "no payment reference"}, nil
	}

	b, err := d.settlement.RecordRefund(event.PaymentID, event.Amount)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.Type == errors.ErrorTypeNotFound {
			// refunds can arrive for payments this service never settled
			logger.Warn("refund for unknown payment, acknowledging", "error", err)
			return &DispatchResult{Kind: event.Kind, Handled: false, Detail: "payment not known"}, nil
		}
		return nil, d.recordUnlessTransient(event, err)
	}

	d.bus.Publish(ctx, events.NewPaymentStatusChangedEvent(b.ID, booking.PaymentStatusRefunded))
	return &DispatchResult{Kind: event.Kind, Handled: true, Detail: "refund recorded"}, nil
}

func (d *Dispatcher) handleBackup(ctx context.Context, event *ClassifiedEvent, logger *slog.Logger) (*DispatchResult, error) {
	if event.PaymentID == "" {
		logger.Warn("backup charge signal carries no payment intent reference, acknowledging")
		return &DispatchResult{Kind: event.Kind, Handled: false, Detail: "no payment reference"}, nil
	}

	outcome, result, err := d.reconciler.Reconcile(ctx, event.PaymentID, event.MethodFamily)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok && appErr.Type == errors.ErrorTypeNotFound {
			// the charge may belong to a payment flow this service does not
			// own; nothing to reconcile
			logger.Info("backup signal for unknown booking, acknowledging", "error", err)
			return &DispatchResult{Kind: event.Kind, Handled: false, Detail: "booking not known"}, nil
		}
		return nil, d.recordUnlessTransient(event, err)
	}

	if outcome == settlement.ReconcileSettled && result != nil && result.Outcome == settlement.OutcomeApplied {
		d.fanout.Notify(ctx, result.Booking, result.Items, notification.PaymentContext{
			PaymentID: event.PaymentID,
			Amount:    event.Amount,
		})
		d.bus.Publish(ctx, events.NewBookingSettledEvent(
			result.Booking.ID, event.PaymentID, event.Amount, len(result.Items)))
	}

	return &DispatchResult{Kind: event.Kind, Handled: true, Detail: string(outcome)}, nil
}

// recordUnlessTransient queues non-transient failures for manual
// reconciliation before handing the error back. Transient errors skip the
// queue because the gateway will redeliver and the next attempt may succeed.
func (d *Dispatcher) recordUnlessTransient(event *ClassifiedEvent, err error) error {
	if errors.IsTransient(err) {
		return err
	}
	d.settlement.RecordFailure(event.BookingID, event.PaymentID, string(event.Kind),
		fmt.Sprintf("dispatch failed: %v", err))
	return err
}

package settlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/partybook/settlement-service/internal/core/events"
)

// EventHandler is the in-process consumer of settlement events. It writes a
// structured audit line per event so money movements stay traceable even when
// no wider application component subscribes.
type EventHandler struct {
	logger *slog.Logger
}

func NewEventHandler(logger *slog.Logger) *EventHandler {
	return &EventHandler{
		logger: logger,
	}
}

func (h *EventHandler) HandleBookingSettled(ctx context.Context, event events.Event) error {
	settled, ok := event.(*events.BookingSettledEvent)
	if !ok {
		h.logger.Error("invalid event type for booking settled handler", "event_type", event.EventType())
		return fmt.Errorf("expected BookingSettledEvent, got %T", event)
	}

	h.logger.Info("audit: booking settled",
		"booking_id", settled.BookingID,
		"payment_id", settled.PaymentID,
		"total_amount", settled.TotalAmount,
		"line_items", settled.LineItems,
		"event_id", settled.EventID())
	return nil
}

func (h *EventHandler) HandleBookingUpgraded(ctx context.Context, event events.Event) error {
	upgraded, ok := event.(*events.BookingUpgradedEvent)
	if !ok {
		h.logger.Error("invalid event type for booking upgraded handler", "event_type", event.EventType())
		return fmt.Errorf("expected BookingUpgradedEvent, got %T", event)
	}

	h.logger.Info("audit: booking upgraded",
		"booking_id", upgraded.BookingID,
		"payment_id", upgraded.PaymentID,
		"amount", upgraded.Amount,
		"event_id", upgraded.EventID())
	return nil
}

func (h *EventHandler) HandlePaymentStatusChanged(ctx context.Context, event events.Event) error {
	changed, ok := event.(*events.PaymentStatusChangedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment status handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentStatusChangedEvent, got %T", event)
	}

	h.logger.Info("audit: payment status changed",
		"booking_id", changed.BookingID,
		"status", changed.Status,
		"event_id", changed.EventID())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeBookingSettled, h.HandleBookingSettled)
	eventBus.Subscribe(events.EventTypeBookingUpgraded, h.HandleBookingUpgraded)
	eventBus.Subscribe(events.EventTypePaymentStatusChanged, h.HandlePaymentStatusChanged)

	h.logger.Info("settlement event handlers registered",
		"handlers", []string{
			events.EventTypeBookingSettled,
			events.EventTypeBookingUpgraded,
			events.EventTypePaymentStatusChanged,
		})
}

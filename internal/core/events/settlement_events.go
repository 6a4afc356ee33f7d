package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeBookingSettled       = "booking.settled"
	EventTypeBookingUpgraded      = "booking.upgraded"
	EventTypePaymentStatusChanged = "booking.payment_status_changed"
)

// BookingSettledEvent is published after a first-time settlement commits.
// Replayed deliveries never publish it, so subscribers may treat it as
// effectively-once per payment.
type BookingSettledEvent struct {
	BaseEvent
	BookingID   int64  `json:"booking_id"`
	PaymentID   string `json:"payment_id"`
	TotalAmount int64  `json:"total_amount"`
	LineItems   int    `json:"line_items"`
}

func NewBookingSettledEvent(bookingID int64, paymentID string, totalAmount int64, lineItems int) *BookingSettledEvent {
	return &BookingSettledEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeBookingSettled,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"booking_id":   bookingID,
				"payment_id":   paymentID,
				"total_amount": totalAmount,
				"line_items":   lineItems,
			},
		},
		BookingID:   bookingID,
		PaymentID:   paymentID,
		TotalAmount: totalAmount,
		LineItems:   lineItems,
	}
}

type BookingUpgradedEvent struct {
	BaseEvent
	BookingID int64  `json:"booking_id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
}

func NewBookingUpgradedEvent(bookingID int64, paymentID string, amount int64) *BookingUpgradedEvent {
	return &BookingUpgradedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeBookingUpgraded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"booking_id": bookingID,
				"payment_id": paymentID,
				"amount":     amount,
			},
		},
		BookingID: bookingID,
		PaymentID: paymentID,
		Amount:    amount,
	}
}

type PaymentStatusChangedEvent struct {
	BaseEvent
	BookingID int64  `json:"booking_id"`
	Status    string `json:"status"`
}

func NewPaymentStatusChangedEvent(bookingID int64, status string) *PaymentStatusChangedEvent {
	return &PaymentStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentStatusChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"booking_id": bookingID,
				"status":     status,
			},
		},
		BookingID: bookingID,
		Status:    status,
	}
}

package webhook

import (
	"strconv"
	"time"

	"github.com/partybook/settlement-service/internal/settlement"
)

// EventKind is the pipeline's own vocabulary for gateway events. Everything
// downstream of classification branches on these, never on raw type strings.
type EventKind string

const (
	KindPaymentSucceeded      EventKind = "payment_succeeded"
	KindPaymentFailed         EventKind = "payment_failed"
	KindPaymentProcessing     EventKind = "payment_processing"
	KindPaymentRequiresAction EventKind = "payment_requires_action"
	KindPaymentCanceled       EventKind = "payment_canceled"
	KindChargeRefunded        EventKind = "charge_refunded"
	// KindChargeSucceededBackup is the lower-trust backup confirmation signal
	// for delayed payment methods. It never settles directly; it triggers
	// reconciliation against the gateway's authoritative state.
	KindChargeSucceededBackup EventKind = "charge_succeeded_backup"
	KindUnhandled             EventKind = "unhandled"
)

var kindByEventType = map[string]EventKind{
	"payment_intent.succeeded":       KindPaymentSucceeded,
	"payment_intent.payment_failed":  KindPaymentFailed,
	"payment_intent.processing":      KindPaymentProcessing,
	"payment_intent.requires_action": KindPaymentRequiresAction,
	"payment_intent.canceled":        KindPaymentCanceled,
	"charge.refunded":                KindChargeRefunded,
	"charge.succeeded":               KindChargeSucceededBackup,
}

// ClassifiedEvent is a verified delivery reduced to the facts the dispatcher
// acts on.
type ClassifiedEvent struct {
	Kind           EventKind
	GatewayEventID string

	BookingID      int64
	BookingIDValid bool

	PaymentID string
	Amount    int64
	Currency  string

	IsUpgrade       bool
	UpgradeCategory string

	MethodFamily   string
	BackupEligible bool

	ReceivedAt time.Time
}

// Classify maps a verified gateway event into the pipeline vocabulary and
// extracts the correlation metadata. Classification never fails: unknown
// types come back as KindUnhandled and a missing or mangled booking id comes
// back with BookingIDValid false, so the dispatcher decides what to do.
func Classify(verified *VerifiedEvent) *ClassifiedEvent {
	event := verified.Event
	object := event.Data.Object

	kind, ok := kindByEventType[event.Type]
	if !ok {
		kind = KindUnhandled
	}

	classified := &ClassifiedEvent{
		Kind:           kind,
		GatewayEventID: event.ID,
		Amount:         object.Amount,
		Currency:       object.Currency,
		ReceivedAt:     time.Now(),
	}

	// Charge events reference the payment intent they belong to; intent
	// events are identified by their own id.
	switch kind {
	case KindChargeRefunded, KindChargeSucceededBackup:
		classified.PaymentID = object.PaymentIntent
		classified.MethodFamily = object.PaymentMethodDetails.Type
	default:
		classified.PaymentID = object.ID
		if len(object.PaymentMethodTypes) > 0 {
			classified.MethodFamily = object.PaymentMethodTypes[0]
		}
	}
	classified.BackupEligible = settlement.IsAsyncMethodFamily(classified.MethodFamily)

	if raw, ok := object.Metadata["party_id"]; ok && raw != "" && raw != "unknown" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			classified.BookingID = id
			classified.BookingIDValid = true
		}
	}

	if object.Metadata["payment_type"] == "upgrade" {
		classified.IsUpgrade = true
		classified.UpgradeCategory = object.Metadata["category"]
	}

	return classified
}

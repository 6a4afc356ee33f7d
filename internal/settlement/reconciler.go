package settlement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/partybook/settlement-service/internal/paymentgateway"
)

type ReconcileOutcome string

const (
	// ReconcileSkipped: the primary path already settled, the payment method
	// is not eligible, or the gateway does not confirm success. Expected.
	ReconcileSkipped ReconcileOutcome = "skipped"
	// ReconcileSettled: the backup signal won the race and this call settled
	// the booking.
	ReconcileSettled ReconcileOutcome = "settled"
)

// asyncMethodFamilies are the delayed payment methods whose confirmation can
// arrive through the backup charge signal before, after, or racing the
// primary one.
var asyncMethodFamilies = map[string]bool{
	"bank_transfer": true,
	"bacs_debit":    true,
	"sepa_debit":    true,
	"sofort":        true,
	"boleto":        true,
	"oxxo":          true,
}

func IsAsyncMethodFamily(family string) bool {
	return asyncMethodFamilies[family]
}

// Reconciler handles the lower-trust backup confirmation signal. It never
// settles on the local event alone: the gateway is re-queried for the
// authoritative payment status first. Settlement itself goes through the
// same Service (and therefore the same idempotency gate) as the primary
// path, which is what makes the race between the two paths safe.
type Reconciler struct {
	service *Service
	gateway paymentgateway.API
	logger  *slog.Logger
}

func NewReconciler(service *Service, gateway paymentgateway.API, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		service: service,
		gateway: gateway,
		logger:  logger,
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, paymentID, methodFamily string) (ReconcileOutcome, *Result, error) {
	if !IsAsyncMethodFamily(methodFamily) {
		r.logger.Info("backup signal for non-async method, skipping",
			"payment_id", paymentID,
			"method_family", methodFamily)
		return ReconcileSkipped, nil, nil
	}

	b, err := r.service.BookingByPaymentID(paymentID)
	if err != nil {
		return "", nil, fmt.Errorf("reconcile booking lookup failed: %w", err)
	}

	if b.IsPaid() {
		// primary path won the race; nothing to do
		r.logger.Info("booking already settled by primary path",
			"booking_id", b.ID,
			"payment_id", paymentID)
		return ReconcileSkipped, nil, nil
	}

	payment, err := r.gateway.RetrievePayment(ctx, paymentID)
	if err != nil {
		return "", nil, fmt.Errorf("authoritative payment lookup failed: %w", err)
	}

	if !payment.Succeeded() {
		r.logger.Info("gateway does not confirm success, skipping backup settlement",
			"booking_id", b.ID,
			"payment_id", paymentID,
			"gateway_status", payment.Status)
		return ReconcileSkipped, nil, nil
	}

	result, err := r.service.SettleBooking(b.ID, paymentID, payment.Amount)
	if err != nil {
		return "", nil, err
	}

	r.logger.Info("backup path settled booking",
		"booking_id", b.ID,
		"payment_id", paymentID,
		"outcome", result.Outcome)

	return ReconcileSettled, result, nil
}

package settlement_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/partybook/settlement-service/internal/core/datamodel/booking"
	"github.com/partybook/settlement-service/internal/paymentgateway"
	"github.com/partybook/settlement-service/internal/settlement"
)

type mockGateway struct {
	payment *paymentgateway.Payment
	err     error
	calls   int
}

func (m *mockGateway) RetrievePayment(ctx context.Context, paymentID string) (*paymentgateway.Payment, error) {
	m.calls++
	return m.payment, m.err
}

var _ = Describe("Reconciler", func() {
	var (
		repo       *mockRepository
		gateway    *mockGateway
		reconciler *settlement.Reconciler
		ctx        context.Context
	)

	BeforeEach(func() {
		repo = newMockRepository()
		gateway = &mockGateway{}
		service := settlement.NewService(repo, settlement.NewExecutor(repo, testLogger), testLogger)
		reconciler = settlement.NewReconciler(service, gateway, testLogger)
		ctx = context.Background()
	})

	seedBooking := func(status string) *booking.Booking {
		sid := int64(3)
		b := &booking.Booking{
			ID:            42,
			PaymentStatus: status,
			TotalPrice:    45000,
			Plan: booking.Plan{
				"bounce_house": {SupplierID: &sid, Price: 25000},
			},
		}
		repo.bookings[42] = b
		repo.bookingsByPayment["pi_1"] = b
		return b
	}

	Context("non-async payment methods", func() {
		It("skips without touching storage or the gateway", func() {
			outcome, result, err := reconciler.Reconcile(ctx, "pi_1", "card")

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome).To(Equal(settlement.ReconcileSkipped))
			Expect(result).To(BeNil())
			Expect(gateway.calls).To(BeZero())
		})
	})

	Context("booking already settled by the primary path", func() {
		It("skips without querying the gateway", func() {
			seedBooking(booking.PaymentStatusPaid)

			outcome, _, err := reconciler.Reconcile(ctx, "pi_1", "bank_transfer")

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome).To(Equal(settlement.ReconcileSkipped))
			Expect(gateway.calls).To(BeZero())
		})
	})

	Context("gateway does not confirm success", func() {
		It("skips instead of settling on the local signal alone", func() {
			seedBooking(booking.PaymentStatusPending)
			gateway.payment = &paymentgateway.Payment{ID: "pi_1", Status: paymentgateway.StatusProcessing}

			outcome, _, err := reconciler.Reconcile(ctx, "pi_1", "bank_transfer")

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome).To(Equal(settlement.ReconcileSkipped))
			Expect(repo.settledPayments).To(BeEmpty())
		})
	})

	Context("gateway confirms a succeeded payment", func() {
		It("settles through the shared pipeline", func() {
			seedBooking(booking.PaymentStatusPending)
			gateway.payment = &paymentgateway.Payment{
				ID:     "pi_1",
				Status: paymentgateway.StatusSucceeded,
				Amount: 45000,
			}

			outcome, result, err := reconciler.Reconcile(ctx, "pi_1", "bank_transfer")

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome).To(Equal(settlement.ReconcileSettled))
			Expect(result.Outcome).To(Equal(settlement.OutcomeApplied))
			Expect(repo.settledPayments["pi_1"]).To(BeTrue())
		})

		It("converges on a replay when the primary path committed between the check and the settle", func() {
			seedBooking(booking.PaymentStatusPending)
			// simulate the primary path's settlement record landing first
			repo.settledPayments["pi_1"] = true
			gateway.payment = &paymentgateway.Payment{
				ID:     "pi_1",
				Status: paymentgateway.StatusSucceeded,
				Amount: 45000,
			}

			outcome, result, err := reconciler.Reconcile(ctx, "pi_1", "bank_transfer")

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome).To(Equal(settlement.ReconcileSettled))
			Expect(result.Outcome).To(Equal(settlement.OutcomeAlreadyApplied))
		})
	})

	Context("unknown payment", func() {
		It("propagates the lookup failure to the caller", func() {
			_, _, err := reconciler.Reconcile(ctx, "pi_missing", "bank_transfer")
			Expect(err).To(HaveOccurred())
		})
	})
})

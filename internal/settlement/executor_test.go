package settlement_test

import (
	"errors"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/partybook/settlement-service/internal"
	"github.com/partybook/settlement-service/internal/core/datamodel/booking"
	"github.com/partybook/settlement-service/internal/core/datamodel/lineitem"
	settlementmodel "github.com/partybook/settlement-service/internal/core/datamodel/settlement"
	"github.com/partybook/settlement-service/internal/settlement"
)

// Mock repository for testing
type mockRepository struct {
	bookings           map[int64]*booking.Booking
	bookingsByPayment  map[string]*booking.Booking
	lineItems          map[int64][]*lineitem.LineItem
	settledPayments    map[string]bool
	settleCalls        int
	settleErr          error
	upgradeErr         error
	statusUpdates      map[int64]string
	refunded           map[string]int64
	failures           []*settlementmodel.Failure
	lookupErr          error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		bookings:          make(map[int64]*booking.Booking),
		bookingsByPayment: make(map[string]*booking.Booking),
		lineItems:         make(map[int64][]*lineitem.LineItem),
		settledPayments:   make(map[string]bool),
		statusUpdates:     make(map[int64]string),
		refunded:          make(map[string]int64),
	}
}

func (m *mockRepository) GetBookingByID(id int64) (*booking.Booking, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	b, ok := m.bookings[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("booking not found", apperrors.ErrCodeBookingNotFound)
	}
	return b, nil
}

func (m *mockRepository) GetBookingByPaymentID(paymentID string) (*booking.Booking, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	b, ok := m.bookingsByPayment[paymentID]
	if !ok {
		return nil, apperrors.NewNotFoundError("booking not found", apperrors.ErrCodeBookingNotFound)
	}
	return b, nil
}

func (m *mockRepository) LineItemsForBooking(bookingID int64) ([]*lineitem.LineItem, error) {
	return m.lineItems[bookingID], nil
}

func (m *mockRepository) SettlePayment(params settlement.SettleParams) (bool, []*lineitem.LineItem, error) {
	m.settleCalls++
	if m.settleErr != nil {
		return false, nil, m.settleErr
	}
	if m.settledPayments[params.PaymentID] {
		return false, nil, nil
	}
	m.settledPayments[params.PaymentID] = true

	var items []*lineitem.LineItem
	for i, draft := range params.Plan.Drafts {
		items = append(items, &lineitem.LineItem{
			ID:          int64(i + 1),
			BookingID:   params.BookingID,
			SupplierID:  draft.SupplierID,
			Category:    draft.Category,
			QuotedPrice: draft.QuotedPrice,
			Status:      lineitem.StatusConfirmed,
		})
	}
	return true, items, nil
}

func (m *mockRepository) RecordUpgrade(bookingID int64, paymentID string, amount int64) (bool, error) {
	if m.upgradeErr != nil {
		return false, m.upgradeErr
	}
	if m.settledPayments[paymentID] {
		return false, nil
	}
	m.settledPayments[paymentID] = true
	return true, nil
}

func (m *mockRepository) UpdatePaymentStatus(bookingID int64, status string) error {
	m.statusUpdates[bookingID] = status
	return nil
}

func (m *mockRepository) MarkRefunded(paymentID string, amount int64) (*booking.Booking, error) {
	b, ok := m.bookingsByPayment[paymentID]
	if !ok {
		return nil, apperrors.NewNotFoundError("booking not found", apperrors.ErrCodeBookingNotFound)
	}
	m.refunded[paymentID] += amount
	b.PaymentStatus = booking.PaymentStatusRefunded
	return b, nil
}

func (m *mockRepository) RecordFailure(f *settlementmodel.Failure) error {
	m.failures = append(m.failures, f)
	return nil
}

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var _ = Describe("Executor", func() {
	var (
		repo     *mockRepository
		executor *settlement.Executor
	)

	BeforeEach(func() {
		repo = newMockRepository()
		executor = settlement.NewExecutor(repo, testLogger)
	})

	params := func() settlement.SettleParams {
		return settlement.SettleParams{
			BookingID:   42,
			PaymentID:   "pi_1",
			TotalAmount: 45000,
			Plan: settlement.Plan{
				Drafts: []settlement.LineItemDraft{
					{SupplierID: 3, Category: "bounce_house", QuotedPrice: 25000},
				},
			},
		}
	}

	Describe("Execute", func() {
		It("applies a first settlement and returns the created items", func() {
			outcome, items, err := executor.Execute(params())

			Expect(err).ToNot(HaveOccurred())
			Expect(outcome).To(Equal(settlement.OutcomeApplied))
			Expect(items).To(HaveLen(1))
			Expect(items[0].Status).To(Equal(lineitem.StatusConfirmed))
		})

		It("converges on already-applied for every repeat of the same payment", func() {
			_, _, err := executor.Execute(params())
			Expect(err).ToNot(HaveOccurred())

			for i := 0; i < 3; i++ {
				outcome, items, err := executor.Execute(params())
				Expect(err).ToNot(HaveOccurred())
				Expect(outcome).To(Equal(settlement.OutcomeAlreadyApplied))
				Expect(items).To(BeEmpty())
			}
			Expect(repo.settleCalls).To(Equal(4))
		})

		It("surfaces a storage failure without inventing an outcome", func() {
			repo.settleErr = apperrors.NewTransientError("storage unavailable", apperrors.ErrCodeStorageUnavailable, errors.New("conn refused"))

			outcome, _, err := executor.Execute(params())

			Expect(err).To(HaveOccurred())
			Expect(apperrors.IsTransient(err)).To(BeTrue())
			Expect(outcome).To(BeEmpty())
		})
	})

	Describe("ApplyUpgrade", func() {
		It("credits the upgrade once and treats repeats as replays", func() {
			outcome, err := executor.ApplyUpgrade(42, "pi_up", 5000)
			Expect(err).ToNot(HaveOccurred())
			Expect(outcome).To(Equal(settlement.OutcomeApplied))

			outcome, err = executor.ApplyUpgrade(42, "pi_up", 5000)
			Expect(err).ToNot(HaveOccurred())
			Expect(outcome).To(Equal(settlement.OutcomeAlreadyApplied))
		})

		It("shares the idempotency gate with full settlements", func() {
			_, _, err := executor.Execute(params())
			Expect(err).ToNot(HaveOccurred())

			outcome, err := executor.ApplyUpgrade(42, "pi_1", 5000)
			Expect(err).ToNot(HaveOccurred())
			Expect(outcome).To(Equal(settlement.OutcomeAlreadyApplied))
		})
	})
})

var _ = Describe("Service", func() {
	var (
		repo    *mockRepository
		service *settlement.Service
	)

	BeforeEach(func() {
		repo = newMockRepository()
		service = settlement.NewService(repo, settlement.NewExecutor(repo, testLogger), testLogger)
	})

	Describe("SettleBooking", func() {
		It("plans from the booking and settles", func() {
			sid := int64(3)
			repo.bookings[42] = &booking.Booking{
				ID:         42,
				TotalPrice: 45000,
				Plan: booking.Plan{
					"bounce_house": {SupplierID: &sid, Price: 25000},
				},
			}

			result, err := service.SettleBooking(42, "pi_1", 45000)

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Outcome).To(Equal(settlement.OutcomeApplied))
			Expect(result.Booking.ID).To(Equal(int64(42)))
			Expect(result.Items).To(HaveLen(1))
		})

		It("fails when the booking does not exist", func() {
			_, err := service.SettleBooking(404, "pi_1", 45000)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("RecordFailure", func() {
		It("queues the failure row", func() {
			service.RecordFailure(42, "pi_1", "payment_succeeded", "boom")

			Expect(repo.failures).To(HaveLen(1))
			Expect(repo.failures[0].PaymentID).To(Equal("pi_1"))
		})
	})
})

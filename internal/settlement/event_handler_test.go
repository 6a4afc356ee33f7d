package settlement_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/partybook/settlement-service/internal/core/events"
	"github.com/partybook/settlement-service/internal/settlement"
)

var _ = Describe("EventHandler", func() {
	var (
		handler *settlement.EventHandler
		bus     *events.EventBus
		ctx     context.Context
	)

	BeforeEach(func() {
		handler = settlement.NewEventHandler(testLogger)
		bus = events.NewEventBus(testLogger)
		handler.RegisterEventHandlers(bus)
		ctx = context.Background()
	})

	It("consumes every settlement event type published on the bus", func() {
		Expect(bus.PublishSync(ctx, events.NewBookingSettledEvent(42, "pi_1", 45000, 2))).To(Succeed())
		Expect(bus.PublishSync(ctx, events.NewBookingUpgradedEvent(42, "pi_up", 5000))).To(Succeed())
		Expect(bus.PublishSync(ctx, events.NewPaymentStatusChangedEvent(42, "processing"))).To(Succeed())
	})

	It("rejects an event of the wrong concrete type", func() {
		err := handler.HandleBookingSettled(ctx, events.NewBookingUpgradedEvent(42, "pi_up", 5000))
		Expect(err).To(HaveOccurred())
	})
})

package webhook_test

import (
	"encoding/json"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/partybook/settlement-service/internal/webhook"
)

func verifiedEvent(raw string) *webhook.VerifiedEvent {
	v := webhook.NewVerifier(testSecret, 5*time.Minute)
	header := signBody(testSecret, []byte(raw), time.Now())
	verified, err := v.Verify([]byte(raw), header)
	Expect(err).ToNot(HaveOccurred())
	return verified
}

var _ = Describe("Classify", func() {
	Context("payment intent events", func() {
		It("classifies a succeeded intent with full correlation metadata", func() {
			event := verifiedEvent(`{
				"id": "evt_10",
				"type": "payment_intent.succeeded",
				"data": {"object": {
					"id": "pi_10",
					"amount": 45000,
					"currency": "usd",
					"metadata": {"party_id": "42"},
					"payment_method_types": ["card"]
				}}
			}`)

			classified := webhook.Classify(event)

			Expect(classified.Kind).To(Equal(webhook.KindPaymentSucceeded))
			Expect(classified.GatewayEventID).To(Equal("evt_10"))
			Expect(classified.PaymentID).To(Equal("pi_10"))
			Expect(classified.Amount).To(Equal(int64(45000)))
			Expect(classified.BookingID).To(Equal(int64(42)))
			Expect(classified.BookingIDValid).To(BeTrue())
			Expect(classified.IsUpgrade).To(BeFalse())
			Expect(classified.MethodFamily).To(Equal("card"))
			Expect(classified.BackupEligible).To(BeFalse())
		})

		It("maps every status event type onto its kind", func() {
			cases := map[string]webhook.EventKind{
				"payment_intent.payment_failed":  webhook.KindPaymentFailed,
				"payment_intent.processing":      webhook.KindPaymentProcessing,
				"payment_intent.requires_action": webhook.KindPaymentRequiresAction,
				"payment_intent.canceled":        webhook.KindPaymentCanceled,
			}
			for eventType, kind := range cases {
				event := verifiedEvent(fmt.Sprintf(`{"id":"evt_x","type":"%s","data":{"object":{"id":"pi_x","metadata":{"party_id":"7"}}}}`, eventType))
				Expect(webhook.Classify(event).Kind).To(Equal(kind), eventType)
			}
		})

		It("flags an upgrade payment and carries the category", func() {
			event := verifiedEvent(`{
				"id": "evt_11",
				"type": "payment_intent.succeeded",
				"data": {"object": {
					"id": "pi_11",
					"amount": 5000,
					"metadata": {"party_id": "42", "payment_type": "upgrade", "category": "catering"}
				}}
			}`)

			classified := webhook.Classify(event)

			Expect(classified.IsUpgrade).To(BeTrue())
			Expect(classified.UpgradeCategory).To(Equal("catering"))
		})

		It("marks a delayed payment method as backup eligible", func() {
			event := verifiedEvent(`{
				"id": "evt_12",
				"type": "payment_intent.succeeded",
				"data": {"object": {
					"id": "pi_12",
					"metadata": {"party_id": "42"},
					"payment_method_types": ["bank_transfer"]
				}}
			}`)

			Expect(webhook.Classify(event).BackupEligible).To(BeTrue())
		})
	})

	Context("charge events", func() {
		It("takes the payment id from the payment intent reference", func() {
			event := verifiedEvent(`{
				"id": "evt_20",
				"type": "charge.succeeded",
				"data": {"object": {
					"id": "ch_20",
					"amount": 45000,
					"payment_intent": "pi_20",
					"payment_method_details": {"type": "bank_transfer"}
				}}
			}`)

			classified := webhook.Classify(event)

			Expect(classified.Kind).To(Equal(webhook.KindChargeSucceededBackup))
			Expect(classified.PaymentID).To(Equal("pi_20"))
			Expect(classified.MethodFamily).To(Equal("bank_transfer"))
			Expect(classified.BackupEligible).To(BeTrue())
		})

		It("classifies a refund", func() {
			event := verifiedEvent(`{
				"id": "evt_21",
				"type": "charge.refunded",
				"data": {"object": {"id": "ch_21", "amount": 45000, "payment_intent": "pi_21"}}
			}`)

			classified := webhook.Classify(event)

			Expect(classified.Kind).To(Equal(webhook.KindChargeRefunded))
			Expect(classified.PaymentID).To(Equal("pi_21"))
		})
	})

	Context("correlation metadata edge cases", func() {
		DescribeTable("invalid booking ids come back unusable, never zero-valued valid",
			func(metadata string) {
				raw := fmt.Sprintf(`{"id":"evt_m","type":"payment_intent.succeeded","data":{"object":{"id":"pi_m"%s}}}`, metadata)
				classified := webhook.Classify(verifiedEvent(raw))
				Expect(classified.BookingIDValid).To(BeFalse())
			},
			Entry("no metadata at all", ``),
			Entry("empty metadata", `,"metadata":{}`),
			Entry("placeholder value", `,"metadata":{"party_id":"unknown"}`),
			Entry("empty value", `,"metadata":{"party_id":""}`),
			Entry("non-numeric value", `,"metadata":{"party_id":"abc"}`),
			Entry("negative value", `,"metadata":{"party_id":"-3"}`),
		)
	})

	Context("unknown event types", func() {
		It("classifies as unhandled without failing", func() {
			event := verifiedEvent(`{"id":"evt_30","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)
			Expect(webhook.Classify(event).Kind).To(Equal(webhook.KindUnhandled))
		})
	})
})

var _ = Describe("classifier JSON tolerance", func() {
	It("ignores fields the pipeline does not read", func() {
		raw := `{"id":"evt_40","type":"payment_intent.succeeded","api_version":"2024-01-01","livemode":true,"data":{"object":{"id":"pi_40","metadata":{"party_id":"9"},"unknown_field":{"deep":1}}}}`
		var check map[string]json.RawMessage
		Expect(json.Unmarshal([]byte(raw), &check)).To(Succeed())

		classified := webhook.Classify(verifiedEvent(raw))
		Expect(classified.BookingID).To(Equal(int64(9)))
	})
})

package webhook_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/partybook/settlement-service/internal"
	"github.com/partybook/settlement-service/internal/core/datamodel/booking"
	"github.com/partybook/settlement-service/internal/core/events"
	"github.com/partybook/settlement-service/internal/settlement"
	"github.com/partybook/settlement-service/internal/webhook"
)

var _ = Describe("Handler", func() {
	var (
		settlementAPI *mockSettlementAPI
		handler       *webhook.Handler
	)

	testLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	BeforeEach(func() {
		settlementAPI = newMockSettlementAPI()
		verifier := webhook.NewVerifier(testSecret, 5*time.Minute)
		bus := events.NewEventBus(testLogger)
		dispatcher := webhook.NewDispatcher(settlementAPI, &mockReconciler{}, &mockFanout{}, bus, testLogger)
		handler = webhook.NewHandler(verifier, dispatcher, testLogger)
	})

	post := func(body []byte, signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment-gateway", bytes.NewReader(body))
		if signature != "" {
			req.Header.Set("Gateway-Signature", signature)
		}
		recorder := httptest.NewRecorder()
		handler.HandlePaymentGatewayWebhook(recorder, req)
		return recorder
	}

	validBody := []byte(`{
		"id": "evt_1",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_1", "amount": 45000, "metadata": {"party_id": "42"}}}
	}`)

	Context("with a valid signed delivery", func() {
		It("settles and acknowledges with the dispatch result", func() {
			settlementAPI.settleResult = &settlement.Result{
				Outcome: settlement.OutcomeApplied,
				Booking: &booking.Booking{ID: 42},
			}

			recorder := post(validBody, signBody(testSecret, validBody, time.Now()))

			Expect(recorder.Code).To(Equal(http.StatusOK))

			var resp struct {
				Received bool `json:"received"`
				Result   struct {
					Kind    string `json:"kind"`
					Handled bool   `json:"handled"`
				} `json:"result"`
			}
			Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Received).To(BeTrue())
			Expect(resp.Result.Handled).To(BeTrue())
			Expect(settlementAPI.settleCalls).To(Equal(1))
		})
	})

	Context("without a signature", func() {
		It("rejects with 401 and never dispatches", func() {
			recorder := post(validBody, "")

			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			Expect(settlementAPI.settleCalls).To(BeZero())
		})
	})

	Context("with a bad signature", func() {
		It("rejects with 401", func() {
			recorder := post(validBody, signBody("whsec_wrong", validBody, time.Now()))

			Expect(recorder.Code).To(Equal(http.StatusUnauthorized))
			Expect(settlementAPI.settleCalls).To(BeZero())
		})
	})

	Context("when the pipeline hits a transient failure", func() {
		It("answers 503 so the gateway redelivers", func() {
			settlementAPI.settleErr = apperrors.NewTransientError("storage unavailable", apperrors.ErrCodeStorageUnavailable, nil)

			recorder := post(validBody, signBody(testSecret, validBody, time.Now()))

			Expect(recorder.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Context("when the pipeline fails non-transiently", func() {
		It("acknowledges with 200 so the gateway stops retrying", func() {
			settlementAPI.settleErr = apperrors.NewInternalError("deterministic bug", nil)

			recorder := post(validBody, signBody(testSecret, validBody, time.Now()))

			Expect(recorder.Code).To(Equal(http.StatusOK))

			var resp struct {
				Received bool   `json:"received"`
				Detail   string `json:"detail"`
			}
			Expect(json.Unmarshal(recorder.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Received).To(BeTrue())
			Expect(resp.Detail).ToNot(BeEmpty())
			Expect(settlementAPI.failures).To(HaveLen(1))
		})
	})
})

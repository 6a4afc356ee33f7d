package webhook

import (
	"io"
	"log/slog"
	"net/http"

	errors "github.com/partybook/settlement-service/internal"
	"github.com/partybook/settlement-service/internal/transport"
	"github.com/partybook/settlement-service/pkg/logger"
)

const signatureHeader = "Gateway-Signature"

type ackResponse struct {
	Received bool            `json:"received"`
	Result   *DispatchResult `json:"result,omitempty"`
	Detail   string          `json:"detail,omitempty"`
}

// Handler is the webhook HTTP boundary: read raw bytes, verify, classify,
// dispatch, and answer with either an acknowledgement or a retry-me status.
type Handler struct {
	*transport.BaseHandler
	verifier   *Verifier
	dispatcher *Dispatcher
}

func NewHandler(verifier *Verifier, dispatcher *Dispatcher, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		verifier:    verifier,
		dispatcher:  dispatcher,
	}
}

// HandlePaymentGatewayWebhook godoc
// @Summary Receive a payment gateway webhook
// @Description Verifies the delivery signature, classifies the event and runs the settlement pipeline
// @Tags webhooks
// @Accept json
// @Produce json
// @Param Gateway-Signature header string true "HMAC signature header (t=<unix>,v1=<hex>)"
// @Success 200 {object} ackResponse
// @Failure 401 {object} errors.Response
// @Failure 503 {object} errors.Response
// @Router /webhooks/payment-gateway [post]
func (h *Handler) HandlePaymentGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read webhook body", "error", err)
		h.HandleError(w, errors.NewInternalError("failed to read request body", err))
		return
	}

	verified, err := h.verifier.Verify(body, r.Header.Get(signatureHeader))
	if err != nil {
		log.Warn("webhook verification failed", "error", err)
		h.HandleError(w, err)
		return
	}

	event := Classify(verified)
	log.Info("webhook event classified",
		"gateway_event_id", event.GatewayEventID,
		"kind", event.Kind,
		"payment_id", event.PaymentID,
		"booking_id", event.BookingID)

	result, err := h.dispatcher.Dispatch(ctx, event)
	if err != nil {
		if errors.IsTransient(err) {
			// nothing committed; ask the gateway to redeliver
			log.Warn("transient dispatch failure, requesting redelivery",
				"gateway_event_id", event.GatewayEventID,
				"error", err)
			h.HandleError(w, err)
			return
		}

		// a retry cannot fix this; the failure is queued for manual
		// reconciliation, so acknowledge to stop redelivery
		log.Error("dispatch failed, acknowledging delivery",
			"gateway_event_id", event.GatewayEventID,
			"error", err)
		h.WriteJSON(w, http.StatusOK, ackResponse{
			Received: true,
			Detail:   "event could not be processed and was queued for review",
		})
		return
	}

	h.WriteJSON(w, http.StatusOK, ackResponse{Received: true, Result: result})
}

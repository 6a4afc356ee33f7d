package webhook

import "encoding/json"

// gatewayEvent is the wire shape of a payment-gateway webhook delivery. Only
// the fields the pipeline reads are declared; everything else passes through
// untouched.
type gatewayEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                 string            `json:"id"`
			Amount             int64             `json:"amount"`
			Currency           string            `json:"currency"`
			Metadata           map[string]string `json:"metadata"`
			PaymentIntent      string            `json:"payment_intent"`
			PaymentMethodTypes []string          `json:"payment_method_types"`
			PaymentMethodDetails struct {
				Type string `json:"type"`
			} `json:"payment_method_details"`
		} `json:"object"`
	} `json:"data"`
}

// VerifiedEvent is a raw delivery that passed signature verification. The raw
// bytes are kept alongside the parsed form for logging and failure records.
type VerifiedEvent struct {
	Raw   json.RawMessage
	Event gatewayEvent
}

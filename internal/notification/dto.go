package notification

import (
	"github.com/partybook/settlement-service/internal/core/common/validation"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

const (
	TemplateSupplierBookingConfirmed = "supplier_booking_confirmed"
	TemplateCustomerBookingConfirmed = "customer_booking_confirmed"
)

// Job is one notification to one recipient over one channel.
type Job struct {
	Recipient string                 `json:"recipient"`
	Channel   string                 `json:"channel"`
	Template  string                 `json:"template"`
	Payload   map[string]interface{} `json:"payload"`
}

func (j *Job) Validate() error {
	validator := validation.NewValidator()

	validator.Field("recipient", j.Recipient).Required()
	validator.Field("channel", j.Channel).Required()
	validator.Field("template", j.Template).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Outcome statuses for one dispatched job.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Outcome reports what happened to one job. Failures here never affect the
// settlement they follow; they exist for operational visibility only.
type Outcome struct {
	Recipient string `json:"recipient"`
	Channel   string `json:"channel"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
}

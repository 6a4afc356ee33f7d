package notification

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/partybook/settlement-service/internal/core/datamodel/booking"
	"github.com/partybook/settlement-service/internal/core/datamodel/lineitem"
	"github.com/partybook/settlement-service/internal/core/datamodel/supplier"
)

// SupplierDirectory resolves supplier contact details at fan-out time.
type SupplierDirectory interface {
	GetSupplier(id int64) (*supplier.Supplier, error)
}

// PaymentContext carries the payment facts the templates need. Only full
// settlements fan out; upgrade payments never reach this package.
type PaymentContext struct {
	PaymentID string
	Amount    int64
}

// Fanout sends post-settlement notifications: one per reachable supplier
// channel, then exactly one to the customer. Every delivery is isolated; a
// failed job is recorded in its outcome and never propagated, because the
// settlement it announces has already committed.
type Fanout struct {
	suppliers       SupplierDirectory
	notifier        Notifier
	platformFeeRate float64
	logger          *slog.Logger
}

func NewFanout(suppliers SupplierDirectory, notifier Notifier, platformFeeRate float64, logger *slog.Logger) *Fanout {
	return &Fanout{
		suppliers:       suppliers,
		notifier:        notifier,
		platformFeeRate: platformFeeRate,
		logger:          logger,
	}
}

// Notify runs the full fan-out for one settled payment and reports per-job
// outcomes. It never returns an error.
func (f *Fanout) Notify(ctx context.Context, b *booking.Booking, items []*lineitem.LineItem, pctx PaymentContext) []Outcome {
	var outcomes []Outcome

	for _, item := range items {
		if item.Category == booking.CategoryEInvites {
			continue
		}
		outcomes = append(outcomes, f.notifySupplier(ctx, b, item, pctx)...)
	}

	outcomes = append(outcomes, f.notifyCustomer(ctx, b, items, pctx))

	f.logger.Info("notification fan-out complete",
		"booking_id", b.ID,
		"payment_id", pctx.PaymentID,
		"jobs", len(outcomes))
	return outcomes
}

func (f *Fanout) notifySupplier(ctx context.Context, b *booking.Booking, item *lineitem.LineItem, pctx PaymentContext) []Outcome {
	sup, err := f.suppliers.GetSupplier(item.SupplierID)
	if err != nil {
		f.logger.Error("supplier lookup failed during fan-out",
			"supplier_id", item.SupplierID,
			"booking_id", b.ID,
			"error", err)
		return []Outcome{{
			Recipient: fmt.Sprintf("supplier:%d", item.SupplierID),
			Status:    OutcomeFailed,
			Detail:    err.Error(),
		}}
	}

	channels := sup.Channels()
	if len(channels) == 0 {
		f.logger.Warn("supplier has no contact channels",
			"supplier_id", sup.ID,
			"booking_id", b.ID)
		return []Outcome{{
			Recipient: fmt.Sprintf("supplier:%d", sup.ID),
			Status:    OutcomeSkipped,
			Detail:    "no contact channels",
		}}
	}

	payload := map[string]interface{}{
		"supplier_name": sup.Name,
		"customer_name": b.CustomerName,
		"category":      item.Category,
		"package_id":    item.PackageID,
		"net_earning":   f.netEarning(item.QuotedPrice),
		"currency_unit": "minor",
	}
	if b.PartyDate != nil {
		payload["party_date"] = b.PartyDate.Format("2006-01-02")
	}

	var outcomes []Outcome
	for _, channel := range channels {
		recipient := f.recipientFor(sup, channel)
		job := &Job{
			Recipient: recipient,
			Channel:   channel,
			Template:  TemplateSupplierBookingConfirmed,
			Payload:   payload,
		}
		outcomes = append(outcomes, f.dispatch(ctx, job))
	}
	return outcomes
}

func (f *Fanout) notifyCustomer(ctx context.Context, b *booking.Booking, items []*lineitem.LineItem, pctx PaymentContext) Outcome {
	payload := map[string]interface{}{
		"customer_name": b.CustomerName,
		"amount_paid":   pctx.Amount,
		"currency_unit": "minor",
	}
	if b.PartyDate != nil {
		payload["party_date"] = b.PartyDate.Format("2006-01-02")
	}

	var services []string
	for _, item := range items {
		if item.Category == booking.CategoryEInvites {
			continue
		}
		services = append(services, item.Category)
	}
	payload["services"] = services

	if len(b.Addons) > 0 {
		var addons []string
		for _, addon := range b.Addons {
			addons = append(addons, addon.Name)
		}
		payload["addons"] = addons
	}

	job := &Job{
		Recipient: b.CustomerEmail,
		Channel:   ChannelEmail,
		Template:  TemplateCustomerBookingConfirmed,
		Payload:   payload,
	}
	return f.dispatch(ctx, job)
}

func (f *Fanout) dispatch(ctx context.Context, job *Job) Outcome {
	if err := f.notifier.Send(ctx, job); err != nil {
		f.logger.Error("notification delivery failed",
			"recipient", job.Recipient,
			"channel", job.Channel,
			"error", err)
		return Outcome{
			Recipient: job.Recipient,
			Channel:   job.Channel,
			Status:    OutcomeFailed,
			Detail:    err.Error(),
		}
	}
	return Outcome{
		Recipient: job.Recipient,
		Channel:   job.Channel,
		Status:    OutcomeSent,
	}
}

// netEarning is the supplier's share of the quoted price after the platform
// fee, rounded to the nearest minor unit.
func (f *Fanout) netEarning(quotedPrice int64) int64 {
	return int64(math.Round(float64(quotedPrice) * (1 - f.platformFeeRate)))
}

func (f *Fanout) recipientFor(sup *supplier.Supplier, channel string) string {
	switch channel {
	case ChannelEmail:
		return *sup.Email
	case ChannelSMS:
		return *sup.Phone
	}
	return ""
}

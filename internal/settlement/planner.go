package settlement

import (
	"encoding/json"
	"sort"

	"github.com/partybook/settlement-service/internal/core/datamodel/booking"
	"github.com/partybook/settlement-service/internal/core/datamodel/lineitem"
)

// ConfirmationMessage is the fixed note attached to every supplier line item
// when a payment settles.
const ConfirmationMessage = "Booking confirmed and paid. Please review the party details and confirm your availability."

// LineItemDraft is one supplier commitment the executor should create.
type LineItemDraft struct {
	SupplierID   int64
	Category     string
	Message      string
	QuotedPrice  int64
	PackageID    string
	AddonDetails json.RawMessage
}

// Plan describes what settlement should do to storage, without doing it.
// Exactly one of Drafts / UpdateIDs is populated.
type Plan struct {
	Drafts    []LineItemDraft
	UpdateIDs []int64
}

func (p Plan) IsUpdate() bool {
	return len(p.UpdateIDs) > 0
}

// BuildPlan derives the settlement plan for a booking. Pure: no I/O.
//
// When the booking already has line items (a prior partial flow created
// them), the plan updates those in place. Otherwise one draft is emitted per
// plan slot with a concrete supplier. Slots with a missing supplier id are
// skipped rather than failing the whole settlement: the rest of the booking
// still deserves to settle, and the gap surfaces through the supplier's own
// dashboard. The e-invites category is ancillary and never becomes a
// supplier commitment.
func BuildPlan(b *booking.Booking, existing []*lineitem.LineItem) Plan {
	if len(existing) > 0 {
		var ids []int64
		for _, item := range existing {
			if item.Category == booking.CategoryEInvites {
				continue
			}
			ids = append(ids, item.ID)
		}
		return Plan{UpdateIDs: ids}
	}

	categories := make([]string, 0, len(b.Plan))
	for category := range b.Plan {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var drafts []LineItemDraft
	for _, category := range categories {
		if category == booking.CategoryEInvites {
			continue
		}
		slot := b.Plan[category]
		if slot.SupplierID == nil || *slot.SupplierID == 0 {
			continue
		}
		drafts = append(drafts, LineItemDraft{
			SupplierID:   *slot.SupplierID,
			Category:     category,
			Message:      ConfirmationMessage,
			QuotedPrice:  slot.Price,
			PackageID:    slot.PackageID,
			AddonDetails: slot.PackageData,
		})
	}

	return Plan{Drafts: drafts}
}

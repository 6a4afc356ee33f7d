package postgres

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/partybook/settlement-service/internal"
	"github.com/partybook/settlement-service/internal/core/datamodel/booking"
	"github.com/partybook/settlement-service/internal/core/datamodel/lineitem"
	settlementmodel "github.com/partybook/settlement-service/internal/core/datamodel/settlement"
	"github.com/partybook/settlement-service/internal/core/datamodel/supplier"
	"github.com/partybook/settlement-service/internal/settlement"
)

// errDuplicateSettlement aborts the transaction when another writer created
// the settlement record first; the caller reports a replay, not an error.
var errDuplicateSettlement = errors.New("settlement record already exists")

type SettlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) *SettlementRepository {
	return &SettlementRepository{
		db: db,
	}
}

func (r *SettlementRepository) GetBookingByID(id int64) (*booking.Booking, error) {
	var b booking.Booking
	if err := r.db.First(&b, id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("booking %d", id), apperrors.ErrCodeBookingNotFound)
	}
	return &b, nil
}

func (r *SettlementRepository) GetBookingByPaymentID(paymentID string) (*booking.Booking, error) {
	var b booking.Booking
	if err := r.db.Where("payment_intent_id = ?", paymentID).First(&b).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("booking for payment %s", paymentID), apperrors.ErrCodeBookingNotFound)
	}
	return &b, nil
}

func (r *SettlementRepository) LineItemsForBooking(bookingID int64) ([]*lineitem.LineItem, error) {
	var items []*lineitem.LineItem
	err := r.db.Where("booking_id = ?", bookingID).Order("id").Find(&items).Error
	if err != nil {
		return nil, storageError(err)
	}
	return items, nil
}

// SettlePayment runs the whole settlement as one transaction. The record
// lookup inside the transaction is the idempotency gate; the unique index on
// payment_id backstops it when two transactions race past the lookup, in
// which case the loser rolls back everything and reports a replay.
func (r *SettlementRepository) SettlePayment(params settlement.SettleParams) (bool, []*lineitem.LineItem, error) {
	var items []*lineitem.LineItem

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing settlementmodel.Record
		err := tx.Where("payment_id = ?", params.PaymentID).First(&existing).Error
		if err == nil {
			return errDuplicateSettlement
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		for _, draft := range params.Plan.Drafts {
			item := &lineitem.LineItem{
				BookingID:    params.BookingID,
				SupplierID:   draft.SupplierID,
				Category:     draft.Category,
				QuotedPrice:  draft.QuotedPrice,
				Message:      draft.Message,
				PackageID:    draft.PackageID,
				AddonDetails: draft.AddonDetails,
				Status:       lineitem.StatusConfirmed,
			}
			if err := tx.Create(item).Error; err != nil {
				return err
			}
			items = append(items, item)
		}

		if len(params.Plan.UpdateIDs) > 0 {
			err := tx.Model(&lineitem.LineItem{}).
				Where("id IN ?", params.Plan.UpdateIDs).
				Updates(map[string]interface{}{
					"status":     lineitem.StatusConfirmed,
					"message":    settlement.ConfirmationMessage,
					"updated_at": time.Now(),
				}).Error
			if err != nil {
				return err
			}
			if err := tx.Where("id IN ?", params.Plan.UpdateIDs).Order("id").Find(&items).Error; err != nil {
				return err
			}
		}

		status := booking.PaymentStatusPaid
		if params.RemainingBalance > 0 {
			status = booking.PaymentStatusPartiallyPaid
		}

		err = tx.Model(&booking.Booking{}).
			Where("id = ?", params.BookingID).
			Updates(map[string]interface{}{
				"amount_paid":       gorm.Expr("amount_paid + ?", params.TotalAmount),
				"payment_status":    status,
				"payment_intent_id": params.PaymentID,
				"updated_at":        time.Now(),
			}).Error
		if err != nil {
			return err
		}

		record := &settlementmodel.Record{
			ID:          uuid.NewString(),
			PaymentID:   params.PaymentID,
			BookingID:   params.BookingID,
			TotalAmount: params.TotalAmount,
			Outcome:     settlementmodel.OutcomeSettled,
		}
		if err := tx.Create(record).Error; err != nil {
			if isDuplicateKey(err) {
				return errDuplicateSettlement
			}
			return err
		}

		return nil
	})

	if errors.Is(err, errDuplicateSettlement) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, storageError(err)
	}
	return true, items, nil
}

// RecordUpgrade credits an additional payment onto a booking, guarded by the
// same settlement-record gate as a full settlement.
func (r *SettlementRepository) RecordUpgrade(bookingID int64, paymentID string, amount int64) (bool, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing settlementmodel.Record
		err := tx.Where("payment_id = ?", paymentID).First(&existing).Error
		if err == nil {
			return errDuplicateSettlement
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err = tx.Model(&booking.Booking{}).
			Where("id = ?", bookingID).
			Updates(map[string]interface{}{
				"amount_paid": gorm.Expr("amount_paid + ?", amount),
				"updated_at":  time.Now(),
			}).Error
		if err != nil {
			return err
		}

		record := &settlementmodel.Record{
			ID:          uuid.NewString(),
			PaymentID:   paymentID,
			BookingID:   bookingID,
			TotalAmount: amount,
			Outcome:     settlementmodel.OutcomeUpgrade,
		}
		if err := tx.Create(record).Error; err != nil {
			if isDuplicateKey(err) {
				return errDuplicateSettlement
			}
			return err
		}

		return nil
	})

	if errors.Is(err, errDuplicateSettlement) {
		return false, nil
	}
	if err != nil {
		return false, storageError(err)
	}
	return true, nil
}

func (r *SettlementRepository) UpdatePaymentStatus(bookingID int64, status string) error {
	err := r.db.Model(&booking.Booking{}).
		Where("id = ?", bookingID).
		Updates(map[string]interface{}{
			"payment_status": status,
			"updated_at":     time.Now(),
		}).Error
	if err != nil {
		return storageError(err)
	}
	return nil
}

func (r *SettlementRepository) MarkRefunded(paymentID string, amount int64) (*booking.Booking, error) {
	var b booking.Booking
	if err := r.db.Where("payment_intent_id = ?", paymentID).First(&b).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("booking for payment %s", paymentID), apperrors.ErrCodeBookingNotFound)
	}

	err := r.db.Model(&booking.Booking{}).
		Where("id = ?", b.ID).
		Updates(map[string]interface{}{
			"payment_status":  booking.PaymentStatusRefunded,
			"refunded_amount": gorm.Expr("refunded_amount + ?", amount),
			"updated_at":      time.Now(),
		}).Error
	if err != nil {
		return nil, storageError(err)
	}

	b.PaymentStatus = booking.PaymentStatusRefunded
	b.RefundedAmount += amount
	return &b, nil
}

func (r *SettlementRepository) RecordFailure(f *settlementmodel.Failure) error {
	if err := r.db.Create(f).Error; err != nil {
		return storageError(err)
	}
	return nil
}

func (r *SettlementRepository) GetSupplier(id int64) (*supplier.Supplier, error) {
	var s supplier.Supplier
	if err := r.db.First(&s, id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("supplier %d", id), apperrors.ErrCodeSupplierNotFound)
	}
	return &s, nil
}

func translate(err error, what string, code apperrors.ErrorCode) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFoundError(what+" not found", code)
	}
	return storageError(err)
}

func storageError(err error) error {
	return apperrors.NewTransientError("storage unavailable", apperrors.ErrCodeStorageUnavailable, err)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

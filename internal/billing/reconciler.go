package billing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go-cargo-portal/internal/logger"
	"go-cargo-portal/internal/models"
	"go-cargo-portal/internal/outbox"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrInvalidAmount        = errors.New("payment amount must be greater than zero")
	ErrAmountExceedsBalance = errors.New("payment amount exceeds balance due")
	ErrCurrencyMismatch     = errors.New("payment currency does not match invoice currency")
)

// PaymentEvent is one payment application. Exactly one of InvoiceNumber or
// TrackingNumber locates the target; with a tracking number the most recent
// invoice on the package is used.
type PaymentEvent struct {
	InvoiceNumber  string
	TrackingNumber string
	Amount         float64
	Currency       string
	Method         string
	GatewayRef     string
	EnteredBy      uint
}

// ApplyOptions makes the overpayment rule explicit per call site. The admin
// manual path passes the configured flag; bulk and self-service always
// allow, matching long-standing portal behavior.
type ApplyOptions struct {
	AllowOverpayment bool
}

// Reconciler keeps invoice status and balance consistent with payment
// events. Concurrent applications of the same event are collapsed into one
// through singleflight, so a double-submitted capture cannot apply twice;
// distinct events racing for the same invoice serialize on a row lock
// inside the write transaction.
type Reconciler struct {
	db *gorm.DB
	sf singleflight.Group
}

func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{db: db}
}

// DeriveStatus is the pure status rule: status is a function of
// (total, amountPaid) plus the sticky overdue flag.
func DeriveStatus(total, amountPaid float64, wasOverdue bool) string {
	if total-amountPaid <= 0 {
		return "paid"
	}
	if wasOverdue {
		return "overdue"
	}
	if amountPaid <= 0 {
		return "sent"
	}
	return "partially_paid"
}

// ApplyPayment applies a payment event to its invoice and writes the
// ledger record. Guarantees after return:
//   - balanceDue == max(0, total - amountPaid)
//   - a given gatewayRef affects the balance at most once
func (r *Reconciler) ApplyPayment(ctx context.Context, ev PaymentEvent, opts ApplyOptions) (*models.Invoice, error) {
	if ev.Amount <= 0 || math.IsNaN(ev.Amount) {
		return nil, ErrInvalidAmount
	}

	key := fmt.Sprintf("apply_%s_%s_%s", ev.InvoiceNumber, ev.TrackingNumber, ev.GatewayRef)
	v, err, _ := r.sf.Do(key, func() (interface{}, error) {
		return r.apply(ctx, ev, opts)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Invoice), nil
}

func (r *Reconciler) apply(ctx context.Context, ev PaymentEvent, opts ApplyOptions) (*models.Invoice, error) {
	var (
		inv      *models.Invoice
		replayed bool
	)

	// Everything from locating the invoice to writing the ledger happens
	// against the row-locked invoice in one transaction. Two distinct
	// payments racing for the same invoice serialize here instead of
	// overwriting each other's balance, and the gatewayRef idempotency
	// check holds across processes, not just in-process via singleflight.
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = r.locateInvoice(tx, ev)
		if err != nil {
			return err
		}

		// Idempotency: a gateway reference that already produced a
		// captured ledger entry must not move the balance again.
		if ev.GatewayRef != "" {
			var applied int64
			if err := tx.Model(&models.Payment{}).
				Where("gateway_ref = ? AND status = ?", ev.GatewayRef, "captured").
				Count(&applied).Error; err != nil {
				return err
			}
			if applied > 0 {
				logger.L.Infow("duplicate gateway ref ignored",
					"gateway_ref", ev.GatewayRef, "invoice", inv.InvoiceNumber)
				replayed = true
				return nil
			}
		}

		if ev.Currency != "" && inv.Currency != "" && !strings.EqualFold(ev.Currency, inv.Currency) {
			return ErrCurrencyMismatch
		}

		if !opts.AllowOverpayment && ev.Amount > inv.BalanceDue {
			return ErrAmountExceedsBalance
		}

		wasOverdue := inv.Status == "overdue"
		inv.AmountPaid = round2(inv.AmountPaid + ev.Amount)
		inv.BalanceDue = round2(math.Max(0, inv.Total-inv.AmountPaid))
		inv.Status = DeriveStatus(inv.Total, inv.AmountPaid, wasOverdue)
		if err := tx.Save(inv).Error; err != nil {
			return err
		}

		ledger := r.ledgerRecord(ev, inv, "captured")
		return tx.Create(&ledger).Error
	})
	if err != nil {
		// The ledger still gets a record of the failed attempt (best
		// effort, for reporting); the caller gets the domain error.
		if errors.Is(err, ErrInvoiceNotFound) || errors.Is(err, ErrCurrencyMismatch) || errors.Is(err, ErrAmountExceedsBalance) {
			r.recordAttempt(ev, inv, "failed")
		}
		return nil, err
	}
	if replayed {
		return inv, nil
	}

	// Receipt email is fire-and-forget via the outbox; failure to enqueue
	// is logged and swallowed, it never blocks the payment response.
	if err := outbox.Enqueue(r.db, "payment_receipt", map[string]interface{}{
		"invoice_number": inv.InvoiceNumber,
		"amount":         ev.Amount,
		"currency":       inv.Currency,
		"method":         ev.Method,
		"balance_due":    inv.BalanceDue,
	}); err != nil {
		logger.L.Warnw("failed to enqueue payment receipt", "invoice", inv.InvoiceNumber, "err", err)
	}

	return inv, nil
}

// locateInvoice resolves the event target: direct invoice number, or the
// most recent invoice attached to a package. The invoice row comes back
// locked for update; callers must pass the write transaction.
func (r *Reconciler) locateInvoice(tx *gorm.DB, ev PaymentEvent) (*models.Invoice, error) {
	var inv models.Invoice

	if ev.InvoiceNumber != "" {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("invoice_number = ?", ev.InvoiceNumber).First(&inv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return &inv, err
	}

	if ev.TrackingNumber == "" {
		return nil, ErrInvoiceNotFound
	}

	var pkg models.Package
	if err := tx.Where("tracking_number = ?", ev.TrackingNumber).First(&pkg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}

	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("package_id = ?", pkg.ID).
		Order("created_at DESC, id DESC").
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvoiceNotFound
	}
	return &inv, err
}

func (r *Reconciler) ledgerRecord(ev PaymentEvent, inv *models.Invoice, status string) models.Payment {
	p := models.Payment{
		ReferenceID:    uuid.NewString(),
		TrackingNumber: ev.TrackingNumber,
		Amount:         ev.Amount,
		Currency:       ev.Currency,
		Method:         ev.Method,
		Status:         status,
		GatewayRef:     ev.GatewayRef,
		EnteredBy:      ev.EnteredBy,
	}
	if inv != nil {
		p.InvoiceID = &inv.ID
		p.PackageID = inv.PackageID
		if p.Currency == "" {
			p.Currency = inv.Currency
		}
	}
	return p
}

// recordAttempt writes a ledger row for a rejected application. Best
// effort: a ledger write failure is logged and never surfaces.
func (r *Reconciler) recordAttempt(ev PaymentEvent, inv *models.Invoice, status string) {
	ledger := r.ledgerRecord(ev, inv, status)
	if err := r.db.Create(&ledger).Error; err != nil {
		logger.L.Warnw("failed to record payment attempt",
			"tracking", ev.TrackingNumber, "invoice", ev.InvoiceNumber, "err", err)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go-cargo-portal/internal/database"
	"go-cargo-portal/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedInvoice(t *testing.T, db *gorm.DB, number string, total float64, status string) *models.Invoice {
	t.Helper()
	inv := &models.Invoice{
		InvoiceNumber: number,
		UserID:        1,
		Total:         total,
		BalanceDue:    total,
		Currency:      "USD",
		Status:        status,
		DueDate:       time.Now().AddDate(0, 0, 30),
	}
	if err := db.Create(inv).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return inv
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name       string
		total      float64
		paid       float64
		wasOverdue bool
		want       string
	}{
		{name: "untouched invoice stays sent", total: 100, paid: 0, want: "sent"},
		{name: "partial payment", total: 100, paid: 40, want: "partially_paid"},
		{name: "exact payment", total: 100, paid: 100, want: "paid"},
		{name: "overpayment still paid", total: 100, paid: 120, want: "paid"},
		{name: "overdue is sticky while balance remains", total: 100, paid: 40, wasOverdue: true, want: "overdue"},
		{name: "overdue with no payment yet", total: 100, paid: 0, wasOverdue: true, want: "overdue"},
		{name: "paying off clears overdue", total: 100, paid: 100, wasOverdue: true, want: "paid"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DeriveStatus(tc.total, tc.paid, tc.wasOverdue); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

// 100 total, pay 40 -> partially_paid/60, pay 60 -> paid/0, then a
// further 10 is rejected on the admin path.
func TestApplyPaymentLifecycle(t *testing.T) {
	db := testDB(t)
	r := NewReconciler(db)
	ctx := context.Background()
	seedInvoice(t, db, "INV-100", 100, "sent")

	strict := ApplyOptions{AllowOverpayment: false}

	inv, err := r.ApplyPayment(ctx, PaymentEvent{InvoiceNumber: "INV-100", Amount: 40, Currency: "USD", Method: "cash", GatewayRef: "pos-1"}, strict)
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if inv.Status != "partially_paid" || inv.BalanceDue != 60 {
		t.Fatalf("after 40: expected partially_paid/60, got %s/%v", inv.Status, inv.BalanceDue)
	}

	inv, err = r.ApplyPayment(ctx, PaymentEvent{InvoiceNumber: "INV-100", Amount: 60, Currency: "USD", Method: "cash", GatewayRef: "pos-2"}, strict)
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if inv.Status != "paid" || inv.BalanceDue != 0 {
		t.Fatalf("after 60: expected paid/0, got %s/%v", inv.Status, inv.BalanceDue)
	}

	_, err = r.ApplyPayment(ctx, PaymentEvent{InvoiceNumber: "INV-100", Amount: 10, Currency: "USD", Method: "cash", GatewayRef: "pos-3"}, strict)
	if !errors.Is(err, ErrAmountExceedsBalance) {
		t.Fatalf("third payment: expected ErrAmountExceedsBalance, got %v", err)
	}

	// Balance invariant survived all three events
	var stored models.Invoice
	if err := db.Where("invoice_number = ?", "INV-100").First(&stored).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.BalanceDue != 0 || stored.AmountPaid != 100 {
		t.Errorf("invariant broken: paid=%v balance=%v", stored.AmountPaid, stored.BalanceDue)
	}

	// The rejected attempt still left a failed ledger record
	var failed int64
	db.Model(&models.Payment{}).Where("status = ?", "failed").Count(&failed)
	if failed != 1 {
		t.Errorf("expected 1 failed ledger record, got %d", failed)
	}
}

func TestApplyPaymentOverpaymentAllowed(t *testing.T) {
	db := testDB(t)
	r := NewReconciler(db)
	seedInvoice(t, db, "INV-200", 50, "sent")

	inv, err := r.ApplyPayment(context.Background(),
		PaymentEvent{InvoiceNumber: "INV-200", Amount: 80, Currency: "USD", Method: "card", GatewayRef: "ch-1"},
		ApplyOptions{AllowOverpayment: true})
	if err != nil {
		t.Fatalf("overpayment should be allowed: %v", err)
	}
	if inv.Status != "paid" {
		t.Errorf("status: expected paid, got %q", inv.Status)
	}
	if inv.BalanceDue != 0 {
		t.Errorf("balance clamps at zero, got %v", inv.BalanceDue)
	}
	if inv.AmountPaid != 80 {
		t.Errorf("amount paid records the real sum, got %v", inv.AmountPaid)
	}
}

// Distinct payments landing at the same time must all reach the invoice:
// the balance serializes on the locked row, so no read-modify-write is
// lost and the invoice total matches the captured ledger sum.
func TestApplyPaymentConcurrentDistinctPayments(t *testing.T) {
	db := testDB(t)
	r := NewReconciler(db)
	seedInvoice(t, db, "INV-250", 80, "sent")

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := r.ApplyPayment(context.Background(), PaymentEvent{
				InvoiceNumber: "INV-250",
				Amount:        10,
				Currency:      "USD",
				Method:        "card",
				GatewayRef:    fmt.Sprintf("ch-concurrent-%d", n),
			}, ApplyOptions{AllowOverpayment: true})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent payment: %v", err)
		}
	}

	var inv models.Invoice
	if err := db.Where("invoice_number = ?", "INV-250").First(&inv).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if inv.AmountPaid != 80 || inv.BalanceDue != 0 {
		t.Errorf("lost update: paid=%v balance=%v, want 80/0", inv.AmountPaid, inv.BalanceDue)
	}
	if inv.Status != "paid" {
		t.Errorf("status: expected paid, got %q", inv.Status)
	}

	// Every captured ledger row is reflected in the invoice
	var ledgerSum float64
	db.Model(&models.Payment{}).
		Where("status = ?", "captured").
		Select("COALESCE(SUM(amount), 0)").
		Scan(&ledgerSum)
	if ledgerSum != inv.AmountPaid {
		t.Errorf("ledger sum %v does not match amount paid %v", ledgerSum, inv.AmountPaid)
	}
}

func TestApplyPaymentGatewayRefIdempotent(t *testing.T) {
	db := testDB(t)
	r := NewReconciler(db)
	seedInvoice(t, db, "INV-300", 100, "sent")
	ev := PaymentEvent{InvoiceNumber: "INV-300", Amount: 30, Currency: "USD", Method: "paypal", GatewayRef: "CAP-XYZ"}
	opts := ApplyOptions{AllowOverpayment: true}

	if _, err := r.ApplyPayment(context.Background(), ev, opts); err != nil {
		t.Fatalf("first application: %v", err)
	}
	inv, err := r.ApplyPayment(context.Background(), ev, opts)
	if err != nil {
		t.Fatalf("replayed application: %v", err)
	}
	if inv.AmountPaid != 30 || inv.BalanceDue != 70 {
		t.Errorf("replay must not move the balance: paid=%v balance=%v", inv.AmountPaid, inv.BalanceDue)
	}

	var captured int64
	db.Model(&models.Payment{}).Where("gateway_ref = ? AND status = ?", "CAP-XYZ", "captured").Count(&captured)
	if captured != 1 {
		t.Errorf("expected exactly 1 captured ledger record, got %d", captured)
	}
}

func TestApplyPaymentCurrencyMismatch(t *testing.T) {
	db := testDB(t)
	r := NewReconciler(db)
	seedInvoice(t, db, "INV-400", 100, "sent")

	_, err := r.ApplyPayment(context.Background(),
		PaymentEvent{InvoiceNumber: "INV-400", Amount: 30, Currency: "JMD", Method: "card"},
		ApplyOptions{AllowOverpayment: true})
	if !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}

	var inv models.Invoice
	db.Where("invoice_number = ?", "INV-400").First(&inv)
	if inv.AmountPaid != 0 {
		t.Errorf("mismatched currency must not touch the balance, paid=%v", inv.AmountPaid)
	}
}

func TestApplyPaymentByTrackingNumberUsesLatestInvoice(t *testing.T) {
	db := testDB(t)
	r := NewReconciler(db)

	pkg := models.Package{TrackingNumber: "TRK-500", UserID: 1, Status: "received"}
	if err := db.Create(&pkg).Error; err != nil {
		t.Fatalf("seed package: %v", err)
	}
	old := models.Invoice{InvoiceNumber: "INV-OLD", UserID: 1, PackageID: &pkg.ID, Total: 10, BalanceDue: 10, Currency: "USD", Status: "sent", CreatedAt: time.Now().Add(-time.Hour)}
	recent := models.Invoice{InvoiceNumber: "INV-NEW", UserID: 1, PackageID: &pkg.ID, Total: 40, BalanceDue: 40, Currency: "USD", Status: "sent", CreatedAt: time.Now()}
	if err := db.Create(&old).Error; err != nil {
		t.Fatalf("seed old invoice: %v", err)
	}
	if err := db.Create(&recent).Error; err != nil {
		t.Fatalf("seed recent invoice: %v", err)
	}

	inv, err := r.ApplyPayment(context.Background(),
		PaymentEvent{TrackingNumber: "TRK-500", Amount: 40, Currency: "USD", Method: "card"},
		ApplyOptions{AllowOverpayment: true})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if inv.InvoiceNumber != "INV-NEW" {
		t.Errorf("expected most recent invoice, got %s", inv.InvoiceNumber)
	}
}

func TestApplyPaymentErrors(t *testing.T) {
	db := testDB(t)
	r := NewReconciler(db)
	ctx := context.Background()
	opts := ApplyOptions{AllowOverpayment: true}

	if _, err := r.ApplyPayment(ctx, PaymentEvent{InvoiceNumber: "NOPE", Amount: 10}, opts); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("missing invoice: expected ErrInvoiceNotFound, got %v", err)
	}
	if _, err := r.ApplyPayment(ctx, PaymentEvent{TrackingNumber: "NOPE", Amount: 10}, opts); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("missing package: expected ErrInvoiceNotFound, got %v", err)
	}
	if _, err := r.ApplyPayment(ctx, PaymentEvent{InvoiceNumber: "X", Amount: 0}, opts); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if _, err := r.ApplyPayment(ctx, PaymentEvent{InvoiceNumber: "X", Amount: -5}, opts); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount: expected ErrInvalidAmount, got %v", err)
	}
}

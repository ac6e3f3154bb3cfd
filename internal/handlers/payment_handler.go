package handlers

import (
	"errors"
	"net/http"

	"go-cargo-portal/internal/billing"
	"go-cargo-portal/internal/database"
	"go-cargo-portal/internal/models"
	"go-cargo-portal/internal/payment"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// billingError maps reconciler errors onto HTTP responses.
func billingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, billing.ErrInvoiceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
	case errors.Is(err, billing.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be greater than zero"})
	case errors.Is(err, billing.ErrAmountExceedsBalance):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Amount exceeds balance due"})
	case errors.Is(err, billing.ErrCurrencyMismatch):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Currency does not match the invoice"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply payment"})
	}
}

// --- ADMIN ---

type ManualPaymentRequest struct {
	InvoiceNumber  string  `json:"invoice_number"`
	TrackingNumber string  `json:"tracking_number"`
	Amount         float64 `json:"amount" binding:"required"`
	Currency       string  `json:"currency"`
	Method         string  `json:"method" binding:"required"`
	GatewayRef     string  `json:"gateway_ref"`
}

// RecordManualPayment books a payment taken outside the portal (bank
// transfer, cash at counter). Whether it may exceed the balance due is a
// deployment setting.
func RecordManualPayment(c *gin.Context) {
	actorID := c.MustGet("userID").(uint)

	var req ManualPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if req.InvoiceNumber == "" && req.TrackingNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invoice_number or tracking_number is required"})
		return
	}

	ev := billing.PaymentEvent{
		InvoiceNumber:  req.InvoiceNumber,
		TrackingNumber: req.TrackingNumber,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Method:         req.Method,
		GatewayRef:     req.GatewayRef,
		EnteredBy:      actorID,
	}
	inv, err := reconcile.ApplyPayment(c.Request.Context(), ev, billing.ApplyOptions{
		AllowOverpayment: cfg.AllowOverpayment,
	})
	if err != nil {
		billingError(c, err)
		return
	}

	audit(actorID, "payment.manual", "invoice", inv.InvoiceNumber, req.Method)
	c.JSON(http.StatusOK, gin.H{
		"message": "Payment applied",
		"invoice": inv,
	})
}

type BulkPaymentRequest struct {
	Items  []billing.BulkItem `json:"items" binding:"required,min=1"`
	Method string             `json:"method"`
}

// RecordBulkPayment applies one payment per tracking number. Lines are
// independent: failures are reported per line and never roll back the
// lines that succeeded.
func RecordBulkPayment(c *gin.Context) {
	actorID := c.MustGet("userID").(uint)

	var req BulkPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	for i := range req.Items {
		if req.Items[i].Method == "" {
			req.Items[i].Method = req.Method
		}
	}

	results := reconcile.BulkApply(c.Request.Context(), req.Items, actorID)

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}

	audit(actorID, "payment.bulk", "invoice", "", "")
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"applied": len(results) - failed,
		"failed":  failed,
	})
}

// ListPayments returns the ledger for the back office, filterable by
// invoice or tracking number.
func ListPayments(c *gin.Context) {
	q := database.DB.Model(&models.Payment{})
	if tn := c.Query("tracking_number"); tn != "" {
		q = q.Where("tracking_number = ?", tn)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var payments []models.Payment
	if err := q.Order("created_at DESC").Limit(200).Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payments"})
		return
	}
	c.JSON(http.StatusOK, payments)
}

// --- CUSTOMER: CARD ---

type CardPaymentRequest struct {
	InvoiceNumber   string  `json:"invoice_number" binding:"required"`
	Amount          float64 `json:"amount" binding:"required"`
	PaymentMethodID string  `json:"payment_method_id" binding:"required"`
}

// PayInvoiceCard charges the customer's card and applies the capture to
// the invoice. The charge happens first; the invoice only moves once the
// capture is confirmed, and the capture's transaction id doubles as the
// idempotency guard against double-applying.
func PayInvoiceCard(c *gin.Context) {
	if stripeGW == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Card payments are not configured"})
		return
	}
	userID := c.MustGet("userID").(uint)

	var req CardPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	// Ownership check before any money moves
	var inv models.Invoice
	err := database.DB.Where("invoice_number = ? AND user_id = ?", req.InvoiceNumber, userID).
		First(&inv).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	result, err := stripeGW.ChargeCard(c.Request.Context(), payment.CardRequest{
		Amount:          req.Amount,
		Currency:        inv.Currency,
		PaymentMethodID: req.PaymentMethodID,
		ReferenceID:     uuid.NewString(),
		Description:     "Invoice " + inv.InvoiceNumber,
	})
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be greater than zero"})
		case errors.Is(err, payment.ErrDeclined):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": "Card was declined"})
		case errors.Is(err, payment.ErrProviderDown):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payment provider is unavailable, try again later"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": "Payment failed"})
		}
		return
	}

	ev := billing.PaymentEvent{
		InvoiceNumber: inv.InvoiceNumber,
		Amount:        result.Amount,
		Currency:      result.Currency,
		Method:        "card",
		GatewayRef:    result.TransactionID,
	}
	updated, err := reconcile.ApplyPayment(c.Request.Context(), ev, billing.ApplyOptions{AllowOverpayment: true})
	if err != nil {
		// The charge went through; surface the reconciliation failure
		// with the gateway ref so support can fix it by hand.
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":       "Charge succeeded but could not be applied, contact support",
			"gateway_ref": result.TransactionID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Payment successful",
		"gateway_ref": result.TransactionID,
		"invoice":     updated,
	})
}

// --- CUSTOMER: PAYPAL ---

type PayPalCreateRequest struct {
	InvoiceNumber string  `json:"invoice_number" binding:"required"`
	Amount        float64 `json:"amount" binding:"required"`
}

// CreatePayPalOrder opens a PayPal order for an invoice. The invoice is
// untouched until the capture call comes back confirmed.
func CreatePayPalOrder(c *gin.Context) {
	if paypalGW == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "PayPal payments are not configured"})
		return
	}
	userID := c.MustGet("userID").(uint)

	var req PayPalCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	var inv models.Invoice
	err := database.DB.Where("invoice_number = ? AND user_id = ?", req.InvoiceNumber, userID).
		First(&inv).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	orderID, err := paypalGW.CreateOrder(c.Request.Context(), req.Amount, inv.Currency, inv.InvoiceNumber)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be greater than zero"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create PayPal order"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id":       orderID,
		"invoice_number": inv.InvoiceNumber,
	})
}

type PayPalCaptureRequest struct {
	InvoiceNumber string `json:"invoice_number" binding:"required"`
	OrderID       string `json:"order_id" binding:"required"`
}

// CapturePayPalOrder captures an approved order and applies the result.
// A failed capture leaves the invoice exactly as it was.
func CapturePayPalOrder(c *gin.Context) {
	if paypalGW == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "PayPal payments are not configured"})
		return
	}
	userID := c.MustGet("userID").(uint)

	var req PayPalCaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	var inv models.Invoice
	err := database.DB.Where("invoice_number = ? AND user_id = ?", req.InvoiceNumber, userID).
		First(&inv).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	result, err := paypalGW.CaptureOrder(c.Request.Context(), req.OrderID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "PayPal capture failed"})
		return
	}

	ev := billing.PaymentEvent{
		InvoiceNumber: inv.InvoiceNumber,
		Amount:        result.Amount,
		Currency:      result.Currency,
		Method:        "paypal",
		GatewayRef:    result.TransactionID,
	}
	updated, err := reconcile.ApplyPayment(c.Request.Context(), ev, billing.ApplyOptions{AllowOverpayment: true})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":       "Capture succeeded but could not be applied, contact support",
			"gateway_ref": result.TransactionID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Payment successful",
		"gateway_ref": result.TransactionID,
		"invoice":     updated,
	})
}

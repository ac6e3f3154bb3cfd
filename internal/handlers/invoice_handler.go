package handlers

import (
	"net/http"
	"strings"
	"time"

	"go-cargo-portal/internal/billing"
	"go-cargo-portal/internal/database"
	"go-cargo-portal/internal/models"
	"go-cargo-portal/internal/outbox"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceItemRequest struct {
	Description string  `json:"description" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required"`
	UnitPrice   float64 `json:"unit_price"`
	TaxRate     float64 `json:"tax_rate"`
}

type InvoiceRequest struct {
	UserID         uint                 `json:"user_id" binding:"required"`
	TrackingNumber string               `json:"tracking_number"`
	Items          []InvoiceItemRequest `json:"items" binding:"required,min=1"`
	Discount       float64              `json:"discount"`
	Currency       string               `json:"currency"`
	DueInDays      int                  `json:"due_in_days"`
}

// newInvoiceNumber mints a unique human-readable invoice number, e.g.
// INV-20260831-1A2B3C4D.
func newInvoiceNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "INV-" + time.Now().Format("20060102") + "-" + suffix
}

// CreateInvoice issues an invoice, optionally attached to a package by
// tracking number. Line amounts and taxes are computed server-side; the
// client only sends quantities and unit prices.
func CreateInvoice(c *gin.Context) {
	var req InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	var packageID *uint
	if req.TrackingNumber != "" {
		var pkg models.Package
		if err := database.DB.Where("tracking_number = ?", req.TrackingNumber).First(&pkg).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Package not found"})
			return
		}
		packageID = &pkg.ID
	}

	items := make([]models.InvoiceItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, models.InvoiceItem{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxRate:     it.TaxRate,
		})
	}
	subtotal, taxTotal := billing.PriceItems(items)
	total := billing.GrandTotal(subtotal, taxTotal, req.Discount)

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	dueInDays := req.DueInDays
	if dueInDays <= 0 {
		dueInDays = 14
	}

	inv := models.Invoice{
		InvoiceNumber: newInvoiceNumber(),
		UserID:        req.UserID,
		PackageID:     packageID,
		Items:         items,
		Subtotal:      subtotal,
		TaxTotal:      taxTotal,
		Discount:      req.Discount,
		Total:         total,
		AmountPaid:    0,
		BalanceDue:    total,
		Currency:      currency,
		Status:        "sent",
		DueDate:       time.Now().AddDate(0, 0, dueInDays),
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&inv).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invoice"})
		return
	}

	// Notification goes through the outbox so a broker outage never
	// blocks invoicing
	_ = outbox.Enqueue(database.DB, "invoice_issued", map[string]interface{}{
		"invoice_number": inv.InvoiceNumber,
		"user_id":        inv.UserID,
		"total":          inv.Total,
		"currency":       inv.Currency,
		"due_date":       inv.DueDate,
	})

	c.JSON(http.StatusCreated, inv)
}

// ListInvoices is the back-office list, filterable by status and owner.
func ListInvoices(c *gin.Context) {
	q := database.DB.Model(&models.Invoice{})
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if userID := c.Query("user_id"); userID != "" {
		q = q.Where("user_id = ?", userID)
	}

	var invoices []models.Invoice
	if err := q.Order("created_at DESC").Limit(200).Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoices"})
		return
	}
	c.JSON(http.StatusOK, invoices)
}

// GetInvoice returns one invoice with its lines.
func GetInvoice(c *gin.Context) {
	number := c.Param("invoice_number")

	var inv models.Invoice
	err := database.DB.Preload("Items").
		Where("invoice_number = ?", number).First(&inv).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}
	c.JSON(http.StatusOK, inv)
}

// MarkInvoicesOverdue flips past-due open invoices to overdue. Run from
// the back office (or a cron hitting this endpoint) rather than on a
// timer inside the app.
func MarkInvoicesOverdue(c *gin.Context) {
	actorID := c.MustGet("userID").(uint)

	res := database.DB.Model(&models.Invoice{}).
		Where("status IN ? AND due_date < ?", []string{"sent", "partially_paid"}, time.Now()).
		Update("status", "overdue")
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update invoices"})
		return
	}

	audit(actorID, "invoice.mark_overdue", "invoice", "", "")
	c.JSON(http.StatusOK, gin.H{"message": "Overdue sweep complete", "updated": res.RowsAffected})
}

// --- CUSTOMER ---

// GetMyInvoices lists the calling customer's invoices.
func GetMyInvoices(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	var invoices []models.Invoice
	err := database.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&invoices).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoices"})
		return
	}
	c.JSON(http.StatusOK, invoices)
}

// GetMyInvoice returns one of the customer's own invoices with lines.
func GetMyInvoice(c *gin.Context) {
	userID := c.MustGet("userID").(uint)
	number := c.Param("invoice_number")

	var inv models.Invoice
	err := database.DB.Preload("Items").
		Where("invoice_number = ? AND user_id = ?", number, userID).
		First(&inv).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}
	c.JSON(http.StatusOK, inv)
}

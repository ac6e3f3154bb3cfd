package billing

import (
	"math"

	"go-cargo-portal/internal/models"
)

// PriceItems fills in the computed columns of each line item and returns
// (subtotal, taxTotal). Mutates the slice in place.
func PriceItems(items []models.InvoiceItem) (subtotal, taxTotal float64) {
	for i := range items {
		items[i].Amount = round2(items[i].Quantity * items[i].UnitPrice)
		items[i].Tax = round2(items[i].Amount * items[i].TaxRate)
		items[i].Total = round2(items[i].Amount + items[i].Tax)
		subtotal += items[i].Amount
		taxTotal += items[i].Tax
	}
	return round2(subtotal), round2(taxTotal)
}

// GrandTotal applies the discount, floored at zero.
func GrandTotal(subtotal, taxTotal, discount float64) float64 {
	return round2(math.Max(0, subtotal+taxTotal-discount))
}

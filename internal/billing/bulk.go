package billing

import (
	"context"

	"go-cargo-portal/internal/logger"
)

// BulkItem is one line of a multi-invoice payment.
type BulkItem struct {
	TrackingNumber string  `json:"tracking_number" binding:"required"`
	Amount         float64 `json:"amount" binding:"required"`
	Currency       string  `json:"currency"`
	Method         string  `json:"method"`
	GatewayRef     string  `json:"gateway_ref"`
}

// BulkResult reports the outcome for one line.
type BulkResult struct {
	TrackingNumber string `json:"tracking_number"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
}

// BulkApply processes each line independently, in order. There is no
// cross-item transaction: a failing line is reported in its slot while
// every other line commits. The result slice always has exactly one
// entry per input item.
func (r *Reconciler) BulkApply(ctx context.Context, items []BulkItem, enteredBy uint) []BulkResult {
	results := make([]BulkResult, 0, len(items))

	for _, item := range items {
		ev := PaymentEvent{
			TrackingNumber: item.TrackingNumber,
			Amount:         item.Amount,
			Currency:       item.Currency,
			Method:         item.Method,
			GatewayRef:     item.GatewayRef,
			EnteredBy:      enteredBy,
		}
		// Bulk has always tolerated overpayment; the admin-path flag
		// does not apply here.
		_, err := r.ApplyPayment(ctx, ev, ApplyOptions{AllowOverpayment: true})
		if err != nil {
			logger.L.Infow("bulk payment line failed",
				"tracking", item.TrackingNumber, "err", err)
			results = append(results, BulkResult{TrackingNumber: item.TrackingNumber, Error: err.Error()})
			continue
		}
		results = append(results, BulkResult{TrackingNumber: item.TrackingNumber, Success: true})
	}
	return results
}

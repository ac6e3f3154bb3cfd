package payment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/plutov/paypal/v4"
)

// PayPalGateway wraps the PayPal Orders v2 create/capture flow. Nothing
// here touches invoices: state only moves once a capture is confirmed.
type PayPalGateway struct {
	client *paypal.Client
}

// NewPayPalGateway builds a client for the configured environment
// ("live" selects the production API base, everything else sandbox).
func NewPayPalGateway(clientID, secret, env string) (*PayPalGateway, error) {
	base := paypal.APIBaseSandBox
	if env == "live" {
		base = paypal.APIBaseLive
	}
	c, err := paypal.NewClient(clientID, secret, base)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return &PayPalGateway{client: c}, nil
}

// CreateOrder opens a CAPTURE-intent order for the given amount. PayPal
// wants the amount as a 2-decimal string.
func (pg *PayPalGateway) CreateOrder(ctx context.Context, amount float64, currency, referenceID string) (string, error) {
	if amount <= 0 {
		return "", ErrInvalidAmount
	}

	units := []paypal.PurchaseUnitRequest{
		{
			ReferenceID: referenceID,
			Amount: &paypal.PurchaseUnitAmount{
				Currency: currency,
				Value:    fmt.Sprintf("%.2f", amount),
			},
		},
	}

	order, err := pg.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, nil)
	if err != nil {
		return "", fmt.Errorf("%w: create order: %v", ErrGateway, err)
	}
	return order.ID, nil
}

// CaptureOrder captures an approved order. A non-COMPLETED capture is a
// gateway error and the caller must not mutate any invoice state.
func (pg *PayPalGateway) CaptureOrder(ctx context.Context, orderID string) (*Result, error) {
	resp, err := pg.client.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, fmt.Errorf("%w: capture: %v", ErrGateway, err)
	}
	if resp.Status != "COMPLETED" {
		return nil, fmt.Errorf("%w: capture status %s", ErrGateway, resp.Status)
	}

	result := &Result{
		TransactionID: resp.ID,
		Status:        "captured",
	}

	// Pull the capture id and settled amount out of the first purchase
	// unit; the order id is only a fallback reference.
	if len(resp.PurchaseUnits) > 0 && resp.PurchaseUnits[0].Payments != nil &&
		len(resp.PurchaseUnits[0].Payments.Captures) > 0 {
		capture := resp.PurchaseUnits[0].Payments.Captures[0]
		result.TransactionID = capture.ID
		if capture.Amount != nil {
			result.Currency = capture.Amount.Currency
			if v, err := strconv.ParseFloat(capture.Amount.Value, 64); err == nil {
				result.Amount = v
			}
		}
	}
	return result, nil
}

package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// StripeGateway captures card payments through PaymentIntents.
type StripeGateway struct {
	client *client.API
}

func NewStripeGateway(apiKey string) *StripeGateway {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &StripeGateway{client: sc}
}

// CardRequest describes one direct card capture.
type CardRequest struct {
	Amount          float64 // invoice currency units
	Currency        string
	CustomerID      string
	PaymentMethodID string
	ReferenceID     string // idempotency key; protects against double-charging on retry
	Description     string
}

// ChargeCard executes a synchronous capture. Network success is not
// payment success: the intent status decides.
func (sg *StripeGateway) ChargeCard(ctx context.Context, req CardRequest) (*Result, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.PaymentMethodID == "" {
		return nil, fmt.Errorf("%w: missing payment method", ErrGateway)
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(int64(math.Round(req.Amount * 100))),
		Currency:      stripe.String(req.Currency),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		Description:   stripe.String(req.Description),
	}
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	}
	if req.ReferenceID != "" {
		params.IdempotencyKey = stripe.String(req.ReferenceID)
	}
	params.Context = ctx

	pi, err := sg.client.PaymentIntents.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("%w: intent status %s", ErrDeclined, pi.Status)
	}

	return &Result{
		TransactionID: pi.ID,
		Status:        "captured",
		Amount:        float64(pi.Amount) / 100,
		Currency:      string(pi.Currency),
	}, nil
}

// mapStripeError converts provider errors into domain errors so stripe-go
// types never leak into the billing layer.
func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Code {
		case stripe.ErrorCodeCardDeclined:
			return fmt.Errorf("%w: card declined", ErrDeclined)
		case stripe.ErrorCodeExpiredCard:
			return fmt.Errorf("%w: card has expired", ErrDeclined)
		case stripe.ErrorCodeBalanceInsufficient:
			return fmt.Errorf("%w: insufficient funds", ErrDeclined)
		}
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return ErrProviderDown
		}
	}
	return fmt.Errorf("%w: %v", ErrGateway, err)
}

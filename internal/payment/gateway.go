package payment

import "errors"

// Domain errors. Handlers map these onto HTTP statuses; the underlying
// provider error never leaks past this package.
var (
	ErrInvalidAmount = errors.New("charge amount must be greater than zero")
	ErrDeclined      = errors.New("payment was declined")
	ErrProviderDown  = errors.New("payment provider is unavailable")
	ErrGateway       = errors.New("payment gateway error")
)

// Result is the normalized outcome of a successful capture, whatever the
// source (card, PayPal, POS). The ledger only ever sees this shape.
type Result struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
}

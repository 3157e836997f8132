package donation

import (
	"encoding/json"
	"time"
)

const (
	ProviderStripe = "stripe"
	ProviderPayPal = "paypal"

	StatusCompleted = "completed"
)

// Donation is an append-only ledger row. PaymentID is the provider's
// checkout session or order id and is unique per provider payment.
type Donation struct {
	ID              int       `db:"id" json:"id"`
	Amount          int64     `db:"amount" json:"amount"`
	PaymentProvider string    `db:"payment_provider" json:"paymentProvider"`
	PaymentID       string    `db:"payment_id" json:"paymentId"`
	Status          string    `db:"status" json:"status"`
	Email           *string   `db:"email" json:"email,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// Amounts are whole currency units, as typed by the donor. A nil amount is
// treated like a zero one.
type StripeDonationRequest struct {
	Amount   *float64 `json:"amount" example:"25"`
	Embedded bool     `json:"embedded"`
}

type PayPalOrderRequest struct {
	Amount *float64 `json:"amount" example:"25"`
}

type CaptureRequest struct {
	OrderID string `json:"orderId" example:"5O190127TN364715T"`
}

type OrderResponse struct {
	OrderID string `json:"orderId" example:"5O190127TN364715T"`
}

type CaptureResponse struct {
	Success bool            `json:"success" example:"true"`
	Data    json.RawMessage `json:"data" swaggertype:"object"`
}

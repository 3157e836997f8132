package payment

import "time"

// Payment is one row of the member's billing history. Rows are written by
// the billing provider integration, never by the API.
type Payment struct {
	ID              int       `db:"id" json:"id"`
	MemberID        string    `db:"member_id" json:"memberId"`
	Amount          int64     `db:"amount" json:"amount"`
	Description     *string   `db:"description" json:"description,omitempty"`
	PaymentMethod   string    `db:"payment_method" json:"paymentMethod"`
	Status          string    `db:"status" json:"status"`
	PaymentProvider string    `db:"payment_provider" json:"paymentProvider"`
	TransactionID   *string   `db:"transaction_id" json:"transactionId,omitempty"`
	PaymentDate     time.Time `db:"payment_date" json:"paymentDate"`
}

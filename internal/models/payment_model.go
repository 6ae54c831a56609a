package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses. The aggregator only reads succeeded rows.
const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// Payment is a row of the per-user "payments" subcollection
// (users/{userId}/payments/{paymentId}). Rows are append-only and never
// mutated once written.
//
// Amount is a decimal rather than a float: seeded and billing-written
// documents carry numbers of varying Firestore types (integer, double, and
// occasionally a string), so the repository decodes the raw value through a
// single coercion step instead of DataTo.
type Payment struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"date"`
	Status    string          `json:"status"`
	PackageID string          `json:"packageId,omitempty"`
}

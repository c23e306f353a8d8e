package model

import "time"

// PaymentStatus is the state reported by the external payment provider.
type PaymentStatus string

const (
    PaymentPending    PaymentStatus = "pending"
    PaymentProcessing PaymentStatus = "processing"
    PaymentAccepted   PaymentStatus = "accepted"
    PaymentRejected   PaymentStatus = "rejected"
    PaymentCancelled  PaymentStatus = "cancelled"
)

// PaymentMethod is the instrument the customer pays with.
type PaymentMethod string

const (
    MethodCreditCard PaymentMethod = "credit_card"
    MethodDebitCard  PaymentMethod = "debit_card"
    MethodPayPal     PaymentMethod = "paypal"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
    switch m {
    case MethodCreditCard, MethodDebitCard, MethodPayPal:
        return true
    }
    return false
}

// Payment is the single payment attempt of a reservation.  Payments are
// never deleted.
//
// Fields:
//  ID              – primary key identifier.
//  ReservationID   – reservation being paid (unique).
//  Reference       – human readable reference handed to the provider.
//  AmountCents     – amount due in cents after discount.
//  DiscountPercent – percent applied, nil when no card was valid.
//  Method          – payment method.
//  Status          – provider status.
//  Version         – optimistic concurrency counter.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Payment struct {
    ID              uint64        `json:"id"`                         // payments.id
    ReservationID   uint64        `json:"reservation_id"`             // payments.reservation_id
    Reference       string        `json:"reference"`                  // payments.reference
    AmountCents     int64         `json:"amount_cents"`               // payments.amount_cents
    DiscountPercent *int          `json:"discount_percent,omitempty"` // payments.discount_percent (nullable)
    Method          PaymentMethod `json:"payment_method"`             // payments.method
    Status          PaymentStatus `json:"status"`                     // payments.status
    Version         uint32        `json:"-"`                          // payments.version
    CreatedAt       time.Time     `json:"created_at"`                 // payments.created_at
    UpdatedAt       time.Time     `json:"updated_at"`                 // payments.updated_at
}

// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

// Queue names.  Each event type has its own durable queue; publishers use
// the default exchange with the queue name as routing key.
const (
    PurchasedQueue = "booking.purchased"
    ReleasedQueue  = "booking.released"
)

// ReservationPurchasedEvent is published once a payment is accepted and its
// reservation becomes purchased.  It carries enough information for
// downstream consumers to log or notify without querying the database.
type ReservationPurchasedEvent struct {
    ReservationID uint64   `json:"reservation_id"`
    PaymentID     uint64   `json:"payment_id"`
    Reference     string   `json:"reference"`
    UserID        uint64   `json:"user_id"`
    ShowingID     uint64   `json:"showing_id"`
    Seats         []string `json:"seats"`
    AmountCents   int64    `json:"amount_cents"`
    PurchasedAt   string   `json:"purchased_at"`
}

// SeatsReleasedEvent is published whenever seats return to the pool:
// explicit cancellation, expiry or a rejected or cancelled payment.
type SeatsReleasedEvent struct {
    ReservationID uint64   `json:"reservation_id"`
    ShowingID     uint64   `json:"showing_id"`
    Seats         []string `json:"seats"`
    Reason        string   `json:"reason"`
    ReleasedAt    string   `json:"released_at"`
}

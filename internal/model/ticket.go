package model

// Ticket is the confirmation handed to a customer once a payment has been
// accepted.  It is assembled on demand and never stored.
type Ticket struct {
    PaymentID       uint64        `json:"payment_id"`
    Reference       string        `json:"reference"`
    ReservationID   uint64        `json:"reservation_id"`
    MovieTitle      string        `json:"movie_title"`
    Genres          []string      `json:"genres"`
    DurationMin     int           `json:"duration_min"`
    Date            string        `json:"date"`
    Time            string        `json:"time"`
    RoomName        string        `json:"room_name"`
    RoomPriceCents  int64         `json:"room_price_cents"`
    Seats           []string      `json:"seats"`
    AmountCents     int64         `json:"amount_cents"`
    DiscountPercent *int          `json:"discount_percent,omitempty"`
    Method          PaymentMethod `json:"payment_method"`
    Status          PaymentStatus `json:"status"`
}

package model

// SeatCategory classifies a seat within a room.
type SeatCategory string

const (
    SeatVIP     SeatCategory = "VIP"
    SeatRegular SeatCategory = "Regular"
)

// Seat is one bookable place of a showing.  A showing owns its seats by
// value and indexes them by name, so Name is unique within the showing.
//
// Fields:
//  Name       – seat label such as "A1", unique per showing.
//  Category   – VIP or Regular.
//  PriceCents – seat surcharge in cents (never negative).
//  Available  – true while no live or purchased reservation holds it.  This
//               flag is the only source of truth for bookability and is
//               written exclusively by the ledger's lock and release.
type Seat struct {
    Name       string       `json:"name"`       // showing_seats.name
    Category   SeatCategory `json:"category"`   // showing_seats.category
    PriceCents int64        `json:"price_cents"` // showing_seats.price_cents
    Available  bool         `json:"available"`  // showing_seats.available
}

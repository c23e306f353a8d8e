package model

import "time"

// Card is a membership credential granting a percentage discount until it
// expires.  The ledger treats it as read-only.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – owner of the card.
//  Name            – display name of the membership tier.
//  DiscountPercent – whole percent between 0 and 100.
//  IssuedAt        – when the card was issued.
//  ValidUntil      – the card is valid while now ≤ ValidUntil.
type Card struct {
    ID              uint64    // cards.id
    UserID          uint64    // cards.user_id
    Name            string    // cards.name
    DiscountPercent int       // cards.discount_percent
    IssuedAt        time.Time // cards.issued_at
    ValidUntil      time.Time // cards.valid_until
}

// ValidAt reports whether the card can be used at t.
func (c *Card) ValidAt(t time.Time) bool {
    return c != nil && !t.After(c.ValidUntil)
}

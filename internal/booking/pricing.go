package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/logging"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// Quote is the amount due for a seat selection.  Amounts are integer
// cents so that discounts never accumulate floating point drift.
type Quote struct {
	SubtotalCents   int64 `json:"subtotal_cents"`
	AmountCents     int64 `json:"amount_cents"`
	DiscountPercent *int  `json:"discount_percent,omitempty"`
}

// Pricer computes payment amounts from seat prices, the room base price
// and the customer's membership card.
type Pricer struct {
	cards repository.CardReader
	now   func() time.Time
}

// NewPricer returns a Pricer reading cards from cards.  A nil clock means
// time.Now.
func NewPricer(cards repository.CardReader, now func() time.Time) *Pricer {
	if now == nil {
		now = time.Now
	}
	return &Pricer{cards: cards, now: now}
}

// ComputeAmount sums the price of every named seat plus the room price once
// and applies the user's card discount when the card is still valid.
func (p *Pricer) ComputeAmount(ctx context.Context, sh *model.Showing, room *model.Room, names []string, userID uint64) (Quote, error) {
	total := room.PriceCents
	for _, n := range names {
		seat, ok := sh.Seat(n)
		if !ok {
			return Quote{}, fmt.Errorf("price seat %q: not part of showing %d", n, sh.ID)
		}
		total += seat.PriceCents
	}
	q := Quote{SubtotalCents: total, AmountCents: total}

	card, err := p.cards.FindByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return q, nil
	}
	if err != nil {
		return Quote{}, fmt.Errorf("find card: %w", err)
	}
	if !card.ValidAt(p.now()) {
		return q, nil
	}
	pct := card.DiscountPercent
	if pct < 0 || pct > 100 {
		logging.FromContext(ctx).WithFields(logrus.Fields{
			"user_id": userID, "card_id": card.ID, "discount_percent": pct,
		}).Warn("ignoring card with out of range discount")
		return q, nil
	}
	q.AmountCents = applyDiscount(total, pct)
	q.DiscountPercent = &pct
	return q, nil
}

// applyDiscount returns total reduced by pct percent, rounded half up to
// the cent.
func applyDiscount(total int64, pct int) int64 {
	return (total*int64(100-pct) + 50) / 100
}

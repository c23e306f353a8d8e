package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

type cardsFunc func(ctx context.Context, userID uint64) (*model.Card, error)

func (f cardsFunc) FindByUser(ctx context.Context, userID uint64) (*model.Card, error) {
	return f(ctx, userID)
}

func cardOf(c *model.Card) cardsFunc {
	return func(context.Context, uint64) (*model.Card, error) {
		if c == nil {
			return nil, repository.ErrNotFound
		}
		return c, nil
	}
}

var pricingShowing = &model.Showing{
	ID: 7,
	Seats: []model.Seat{
		{Name: "A1", PriceCents: 1250},
		{Name: "A2", PriceCents: 1500},
		{Name: "C1", PriceCents: 999},
	},
}

var pricingRoom = &model.Room{ID: 1, PriceCents: 500}

func TestComputeAmountWithoutCard(t *testing.T) {
	p := NewPricer(cardOf(nil), func() time.Time { return fixedNow })
	q, err := p.ComputeAmount(context.Background(), pricingShowing, pricingRoom, []string{"A1", "A2"}, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(3250), q.SubtotalCents)
	assert.Equal(t, int64(3250), q.AmountCents)
	assert.Nil(t, q.DiscountPercent)
}

func TestComputeAmountCardValidity(t *testing.T) {
	tests := []struct {
		name     string
		until    time.Time
		pct      int
		want     int64
		discount bool
	}{
		{"valid", fixedNow.Add(time.Hour), 10, 2925, true},
		{"expires now", fixedNow, 10, 2925, true},
		{"expired", fixedNow.Add(-time.Nanosecond), 10, 3250, false},
		{"full discount", fixedNow.Add(time.Hour), 100, 0, true},
		{"out of range", fixedNow.Add(time.Hour), 120, 3250, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := &model.Card{ID: 1, UserID: alice, DiscountPercent: tt.pct, ValidUntil: tt.until}
			p := NewPricer(cardOf(card), func() time.Time { return fixedNow })
			q, err := p.ComputeAmount(context.Background(), pricingShowing, pricingRoom, []string{"A1", "A2"}, alice)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.AmountCents)
			if tt.discount {
				require.NotNil(t, q.DiscountPercent)
				assert.Equal(t, tt.pct, *q.DiscountPercent)
			} else {
				assert.Nil(t, q.DiscountPercent)
			}
		})
	}
}

func TestComputeAmountUnknownSeat(t *testing.T) {
	p := NewPricer(cardOf(nil), nil)
	_, err := p.ComputeAmount(context.Background(), pricingShowing, pricingRoom, []string{"Z9"}, alice)
	require.Error(t, err)
}

func TestComputeAmountCardLookupFailure(t *testing.T) {
	boom := errors.New("db down")
	p := NewPricer(cardsFunc(func(context.Context, uint64) (*model.Card, error) { return nil, boom }), nil)
	_, err := p.ComputeAmount(context.Background(), pricingShowing, pricingRoom, []string{"A1"}, alice)
	require.ErrorIs(t, err, boom)
}

func TestApplyDiscountRoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(2925), applyDiscount(3250, 10))
	// 1499 * 0.85 = 1274.15
	assert.Equal(t, int64(1274), applyDiscount(1499, 15))
	// 999 * 0.5 = 499.5
	assert.Equal(t, int64(500), applyDiscount(999, 50))
	assert.Equal(t, int64(999), applyDiscount(999, 0))
}

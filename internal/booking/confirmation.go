package booking

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// GetConfirmation assembles the ticket of an accepted payment owned by
// userID.  It only reads.
func (l *Ledger) GetConfirmation(ctx context.Context, userID, paymentID uint64) (*model.Ticket, error) {
	const op = "get_confirmation"
	p, err := l.store.Payments().Get(ctx, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrPaymentNotFound, paymentID)
	}
	if err != nil {
		return nil, l.fail(ctx, op, err, "payment_id", paymentID)
	}
	r, err := l.store.Reservations().Get(ctx, p.ReservationID)
	if err != nil {
		return nil, l.fail(ctx, op, fmt.Errorf("load reservation %d: %w", p.ReservationID, err), "payment_id", paymentID)
	}
	if r.UserID != userID {
		return nil, fmt.Errorf("%w: %d", ErrPaymentNotFound, paymentID)
	}
	if p.Status != model.PaymentAccepted {
		return nil, fmt.Errorf("%w: payment %d is %s", ErrPaymentNotAccepted, p.ID, p.Status)
	}

	sh, err := l.store.Catalog().FindShowing(ctx, r.ShowingID)
	if err != nil {
		return nil, l.fail(ctx, op, fmt.Errorf("load showing %d: %w", r.ShowingID, err), "payment_id", paymentID)
	}
	var room *model.Room
	var movie *model.Movie
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if room, err = l.store.Catalog().FindRoom(gctx, sh.RoomID); err != nil {
			return fmt.Errorf("load room %d: %w", sh.RoomID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if movie, err = l.store.Catalog().FindMovie(gctx, sh.MovieID); err != nil {
			return fmt.Errorf("load movie %d: %w", sh.MovieID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, l.fail(ctx, op, err, "payment_id", paymentID, "showing_id", sh.ID)
	}

	return &model.Ticket{
		PaymentID:       p.ID,
		Reference:       p.Reference,
		ReservationID:   r.ID,
		MovieTitle:      movie.Title,
		Genres:          movie.Genres,
		DurationMin:     movie.DurationMin,
		Date:            sh.StartsAt.Format("2006-01-02"),
		Time:            sh.StartsAt.Format("15:04"),
		RoomName:        room.Name,
		RoomPriceCents:  room.PriceCents,
		Seats:           r.Seats,
		AmountCents:     p.AmountCents,
		DiscountPercent: p.DiscountPercent,
		Method:          p.Method,
		Status:          p.Status,
	}, nil
}

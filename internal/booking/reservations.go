package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// CreateRequest asks for a new reservation.
type CreateRequest struct {
	UserID    uint64
	ShowingID uint64
	Seats     []string
	Mode      model.ReservationMode
}

// CreateReservation validates the seat selection, locks the seats and
// stores a reservation that is pending (purchase mode) or reserved
// (reserve mode).
func (l *Ledger) CreateReservation(ctx context.Context, req CreateRequest) (*model.Reservation, error) {
	const op = "create_reservation"
	names, err := normalizeSeats(req.Seats)
	if err != nil {
		return nil, err
	}
	status, err := initialStatus(req.Mode)
	if err != nil {
		return nil, err
	}
	sh, err := l.findShowing(ctx, req.ShowingID)
	if err != nil {
		return nil, l.fail(ctx, op, err, "showing_id", req.ShowingID)
	}
	if bad := unavailableSeats(sh, names); len(bad) > 0 {
		return nil, &SeatError{Err: ErrSeatUnavailable, Seats: bad}
	}

	now := l.clock()
	res := &model.Reservation{
		UserID:    req.UserID,
		ShowingID: sh.ID,
		Seats:     names,
		Status:    status,
		History:   []model.StatusChange{{Status: status, At: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = l.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := lockSeats(ctx, tx, sh.ID, names); err != nil {
			return err
		}
		if err := tx.Reservations().Create(ctx, res); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, l.fail(ctx, op, err, "showing_id", req.ShowingID, "user_id", req.UserID)
	}
	return res, nil
}

// HoldReservation moves a pending reservation of userID to reserved so
// that a payment can be initiated for it.
func (l *Ledger) HoldReservation(ctx context.Context, userID, reservationID uint64) (*model.Reservation, error) {
	var res *model.Reservation
	err := l.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		r, err := lockOwnedReservation(ctx, tx, reservationID, &userID)
		if err != nil {
			return err
		}
		if r.Status != model.ReservationPending {
			return fmt.Errorf("%w: reservation %d is %s", ErrReservationNotPending, r.ID, r.Status)
		}
		if err := l.transition(ctx, tx, r, model.ReservationReserved, l.clock()); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, l.fail(ctx, "hold_reservation", err, "reservation_id", reservationID, "user_id", userID)
	}
	return res, nil
}

// CancelReservation cancels a pending or reserved reservation of userID
// that has no payment and returns its seats to the pool.
func (l *Ledger) CancelReservation(ctx context.Context, userID, reservationID uint64) (*model.Reservation, error) {
	return l.cancel(ctx, reservationID, &userID, "cancelled_by_user")
}

// cancel is shared by user cancellation and expiry.  owner nil skips the
// ownership check.
func (l *Ledger) cancel(ctx context.Context, reservationID uint64, owner *uint64, reason string) (*model.Reservation, error) {
	var res *model.Reservation
	err := l.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		r, err := lockOwnedReservation(ctx, tx, reservationID, owner)
		if err != nil {
			return err
		}
		if r.Status != model.ReservationPending && r.Status != model.ReservationReserved {
			return fmt.Errorf("%w: reservation %d is %s", ErrReservationNotFound, r.ID, r.Status)
		}
		paid, err := tx.Payments().ExistsForReservation(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("check payment: %w", err)
		}
		if paid {
			return fmt.Errorf("%w: reservation %d", ErrPaymentExists, r.ID)
		}
		if err := releaseSeats(ctx, tx, r.ShowingID, r.Seats); err != nil {
			return err
		}
		if err := l.transition(ctx, tx, r, model.ReservationCancelled, l.clock()); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, l.fail(ctx, "cancel_reservation", err, "reservation_id", reservationID)
	}
	l.publishReleased(ctx, res, reason, res.UpdatedAt)
	return res, nil
}

// GetReservation returns a reservation owned by userID.
func (l *Ledger) GetReservation(ctx context.Context, userID, reservationID uint64) (*model.Reservation, error) {
	r, err := l.store.Reservations().Get(ctx, reservationID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && r.UserID != userID) {
		return nil, fmt.Errorf("%w: %d", ErrReservationNotFound, reservationID)
	}
	if err != nil {
		return nil, l.fail(ctx, "get_reservation", err, "reservation_id", reservationID)
	}
	return r, nil
}

// ListReservations returns the reservations of userID, newest first.
func (l *Ledger) ListReservations(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	items, err := l.store.Reservations().ListByUser(ctx, userID)
	if err != nil {
		return nil, l.fail(ctx, "list_reservations", err, "user_id", userID)
	}
	return items, nil
}

// ListShowingReservations returns every reservation of a showing.
func (l *Ledger) ListShowingReservations(ctx context.Context, showingID uint64) ([]model.Reservation, error) {
	if _, err := l.findShowing(ctx, showingID); err != nil {
		return nil, l.fail(ctx, "list_showing_reservations", err, "showing_id", showingID)
	}
	items, err := l.store.Reservations().ListByShowing(ctx, showingID)
	if err != nil {
		return nil, l.fail(ctx, "list_showing_reservations", err, "showing_id", showingID)
	}
	return items, nil
}

// lockOwnedReservation loads and locks a reservation.  A reservation of
// another user is reported as missing.
func lockOwnedReservation(ctx context.Context, tx repository.Tx, id uint64, owner *uint64) (*model.Reservation, error) {
	r, err := tx.Reservations().GetForUpdate(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrReservationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load reservation: %w", err)
	}
	if owner != nil && r.UserID != *owner {
		return nil, fmt.Errorf("%w: %d", ErrReservationNotFound, id)
	}
	return r, nil
}

func (l *Ledger) publishReleased(ctx context.Context, r *model.Reservation, reason string, at time.Time) {
	l.publish(ctx, queue.ReleasedQueue, queue.SeatsReleasedEvent{
		ReservationID: r.ID,
		ShowingID:     r.ShowingID,
		Seats:         r.Seats,
		Reason:        reason,
		ReleasedAt:    at.Format(time.RFC3339),
	})
}

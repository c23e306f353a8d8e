package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/logging"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// InitiateRequest opens the payment of a reserved reservation.
type InitiateRequest struct {
	UserID        uint64
	ReservationID uint64
	Method        model.PaymentMethod
}

// InitiatePayment prices a reserved reservation and records a pending
// payment for it.  The reservation keeps its status; only the provider
// callback moves it on.
func (l *Ledger) InitiatePayment(ctx context.Context, req InitiateRequest) (*model.Payment, error) {
	const op = "initiate_payment"
	method := req.Method
	if method == "" {
		method = l.defaultMethod
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, method)
	}

	r, err := l.GetReservation(ctx, req.UserID, req.ReservationID)
	if err != nil {
		return nil, err
	}
	if r.Status != model.ReservationReserved {
		return nil, fmt.Errorf("%w: reservation %d is %s", ErrReservationNotReserved, r.ID, r.Status)
	}
	quote, err := l.quote(ctx, r)
	if err != nil {
		return nil, l.fail(ctx, op, err, "reservation_id", r.ID)
	}

	now := l.clock()
	p := &model.Payment{
		ReservationID:   r.ID,
		Reference:       l.newReference(now),
		AmountCents:     quote.AmountCents,
		DiscountPercent: quote.DiscountPercent,
		Method:          method,
		Status:          model.PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err = l.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		// re-validate under the row lock; a concurrent cancel may have won
		locked, err := lockOwnedReservation(ctx, tx, r.ID, &req.UserID)
		if err != nil {
			return err
		}
		if locked.Status != model.ReservationReserved {
			return fmt.Errorf("%w: reservation %d is %s", ErrReservationNotReserved, locked.ID, locked.Status)
		}
		exists, err := tx.Payments().ExistsForReservation(ctx, locked.ID)
		if err != nil {
			return fmt.Errorf("check payment: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: reservation %d", ErrPaymentAlreadyExists, locked.ID)
		}
		if err := tx.Payments().Create(ctx, p); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("%w: reservation %d", ErrPaymentAlreadyExists, locked.ID)
			}
			return fmt.Errorf("insert payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, l.fail(ctx, op, err, "reservation_id", r.ID, "user_id", req.UserID)
	}
	return p, nil
}

// Quote prices a reservation of userID without creating a payment.
func (l *Ledger) Quote(ctx context.Context, userID, reservationID uint64) (Quote, error) {
	r, err := l.GetReservation(ctx, userID, reservationID)
	if err != nil {
		return Quote{}, err
	}
	q, err := l.quote(ctx, r)
	if err != nil {
		return Quote{}, l.fail(ctx, "quote", err, "reservation_id", reservationID)
	}
	return q, nil
}

func (l *Ledger) quote(ctx context.Context, r *model.Reservation) (Quote, error) {
	sh, err := l.store.Catalog().FindShowing(ctx, r.ShowingID)
	if err != nil {
		return Quote{}, fmt.Errorf("find showing %d: %w", r.ShowingID, err)
	}
	room, err := l.store.Catalog().FindRoom(ctx, sh.RoomID)
	if err != nil {
		return Quote{}, fmt.Errorf("find room %d: %w", sh.RoomID, err)
	}
	return l.pricer.ComputeAmount(ctx, sh, room, r.Seats, r.UserID)
}

// StatusUpdate is a provider callback.
type StatusUpdate struct {
	PaymentID uint64
	Status    model.PaymentStatus
	Method    model.PaymentMethod
}

// PaymentResult is the state of a payment and its reservation after an
// update.
type PaymentResult struct {
	Payment     *model.Payment     `json:"payment"`
	Reservation *model.Reservation `json:"reservation"`
}

// UpdatePaymentStatus applies a provider status to a payment and drives the
// reservation accordingly: accepted purchases it, rejected and cancelled
// release its seats and close it, processing marks it processing.
// Repeating the current status is a no-op so that redelivered callbacks
// are harmless.
func (l *Ledger) UpdatePaymentStatus(ctx context.Context, upd StatusUpdate) (*PaymentResult, error) {
	const op = "update_payment_status"
	if _, ok := reservationStatusFor[upd.Status]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, upd.Status)
	}
	if upd.Method != "" && !upd.Method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, upd.Method)
	}

	for attempt := 0; ; attempt++ {
		res, changed, err := l.applyStatus(ctx, upd)
		if errors.Is(err, repository.ErrStaleVersion) {
			if attempt < l.retries {
				logging.FromContext(ctx).WithField("payment_id", upd.PaymentID).WithField("attempt", attempt+1).
					Debug("payment changed underneath, retrying")
				continue
			}
			err = fmt.Errorf("%w: payment %d", ErrConcurrentUpdate, upd.PaymentID)
		}
		if err != nil {
			return nil, l.fail(ctx, op, err, "payment_id", upd.PaymentID, "status", upd.Status)
		}
		if changed {
			l.afterStatusChange(ctx, res)
		}
		return res, nil
	}
}

// applyStatus runs one attempt of UpdatePaymentStatus.  The payment row
// lock serializes concurrent callbacks for the same payment.
func (l *Ledger) applyStatus(ctx context.Context, upd StatusUpdate) (*PaymentResult, bool, error) {
	var res *PaymentResult
	changed := false
	err := l.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		p, err := tx.Payments().GetForUpdate(ctx, upd.PaymentID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrPaymentNotFound, upd.PaymentID)
		}
		if err != nil {
			return fmt.Errorf("load payment: %w", err)
		}
		r, err := tx.Reservations().GetForUpdate(ctx, p.ReservationID)
		if err != nil {
			return fmt.Errorf("load reservation %d of payment %d: %w", p.ReservationID, p.ID, err)
		}
		res = &PaymentResult{Payment: p, Reservation: r}
		if p.Status == upd.Status {
			return nil
		}

		target := reservationStatusFor[upd.Status]
		if err := checkTransition(r.Status, target); err != nil {
			return err
		}
		now := l.clock()
		if releasesSeats(upd.Status) {
			if err := releaseSeats(ctx, tx, r.ShowingID, r.Seats); err != nil {
				return err
			}
		}
		if err := tx.Payments().UpdateStatus(ctx, p.ID, p.Version, upd.Status, upd.Method, now); err != nil {
			return err
		}
		p.Status = upd.Status
		if upd.Method != "" {
			p.Method = upd.Method
		}
		p.Version++
		p.UpdatedAt = now
		if err := l.transition(ctx, tx, r, target, now); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return res, changed, nil
}

func (l *Ledger) afterStatusChange(ctx context.Context, res *PaymentResult) {
	p, r := res.Payment, res.Reservation
	switch {
	case p.Status == model.PaymentAccepted:
		l.publish(ctx, queue.PurchasedQueue, queue.ReservationPurchasedEvent{
			ReservationID: r.ID,
			PaymentID:     p.ID,
			Reference:     p.Reference,
			UserID:        r.UserID,
			ShowingID:     r.ShowingID,
			Seats:         r.Seats,
			AmountCents:   p.AmountCents,
			PurchasedAt:   p.UpdatedAt.Format(time.RFC3339),
		})
	case releasesSeats(p.Status):
		l.publishReleased(ctx, r, "payment_"+string(p.Status), p.UpdatedAt)
	}
}

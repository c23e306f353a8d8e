package memory

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// tx operates directly on the store state; InTx holds the lock and keeps
// the snapshot used for rollback.
type tx struct{ st *state }

func (t *tx) Seats() repository.SeatWriter               { return seatWriter{t.st} }
func (t *tx) Reservations() repository.ReservationWriter { return reservationWriter{t.st} }
func (t *tx) Payments() repository.PaymentWriter         { return paymentWriter{t.st} }

type seatWriter struct{ st *state }

func (w seatWriter) Lock(_ context.Context, showingID uint64, names []string) ([]string, error) {
	sh, ok := w.st.showings[showingID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	idx := seatIndex(sh)
	var unavailable []string
	for _, n := range names {
		i, ok := idx[n]
		if !ok || !sh.Seats[i].Available {
			unavailable = append(unavailable, n)
		}
	}
	if len(unavailable) > 0 {
		return unavailable, nil
	}
	for _, n := range names {
		sh.Seats[idx[n]].Available = false
	}
	return nil, nil
}

func (w seatWriter) Release(_ context.Context, showingID uint64, names []string) error {
	sh, ok := w.st.showings[showingID]
	if !ok {
		return repository.ErrNotFound
	}
	idx := seatIndex(sh)
	for _, n := range names {
		if i, ok := idx[n]; ok {
			sh.Seats[i].Available = true
		}
	}
	return nil
}

func seatIndex(sh *model.Showing) map[string]int {
	idx := make(map[string]int, len(sh.Seats))
	for i, s := range sh.Seats {
		idx[s.Name] = i
	}
	return idx
}

type reservationWriter struct{ st *state }

func (w reservationWriter) Create(_ context.Context, r *model.Reservation) error {
	w.st.nextResID++
	r.ID = w.st.nextResID
	r.Version = 1
	if len(r.History) == 0 {
		r.History = []model.StatusChange{{Status: r.Status, At: r.CreatedAt}}
	}
	w.st.reservations[r.ID] = copyReservation(r)
	return nil
}

func (w reservationWriter) GetForUpdate(_ context.Context, id uint64) (*model.Reservation, error) {
	r, ok := w.st.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyReservation(r), nil
}

func (w reservationWriter) UpdateStatus(_ context.Context, id uint64, version uint32, status model.ReservationStatus, at time.Time) error {
	r, ok := w.st.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	if r.Version != version {
		return repository.ErrStaleVersion
	}
	r.Status = status
	r.History = append(r.History, model.StatusChange{Status: status, At: at})
	r.Version++
	r.UpdatedAt = at
	return nil
}

type paymentWriter struct{ st *state }

func (w paymentWriter) Create(_ context.Context, p *model.Payment) error {
	if _, dup := w.st.paymentOf[p.ReservationID]; dup {
		return repository.ErrDuplicate
	}
	w.st.nextPayID++
	p.ID = w.st.nextPayID
	p.Version = 1
	w.st.payments[p.ID] = copyPayment(p)
	w.st.paymentOf[p.ReservationID] = p.ID
	return nil
}

func (w paymentWriter) GetForUpdate(_ context.Context, id uint64) (*model.Payment, error) {
	p, ok := w.st.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyPayment(p), nil
}

func (w paymentWriter) ExistsForReservation(_ context.Context, reservationID uint64) (bool, error) {
	_, ok := w.st.paymentOf[reservationID]
	return ok, nil
}

func (w paymentWriter) UpdateStatus(_ context.Context, id uint64, version uint32, status model.PaymentStatus, method model.PaymentMethod, at time.Time) error {
	p, ok := w.st.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Version != version {
		return repository.ErrStaleVersion
	}
	p.Status = status
	if method != "" {
		p.Method = method
	}
	p.Version++
	p.UpdatedAt = at
	return nil
}

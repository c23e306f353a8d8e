// Package memory is an in-process implementation of the repository ports.
// Every transaction runs under one mutex and is undone from a snapshot
// when it fails, which gives the same all-or-nothing behaviour as the
// MySQL store.  It backs the test suites and the STORE=memory dev mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

type state struct {
	showings     map[uint64]*model.Showing
	rooms        map[uint64]model.Room
	movies       map[uint64]model.Movie
	cards        map[uint64]model.Card // keyed by user id
	reservations map[uint64]*model.Reservation
	payments     map[uint64]*model.Payment
	paymentOf    map[uint64]uint64 // reservation id -> payment id
	nextResID    uint64
	nextPayID    uint64
}

func (st *state) clone() state {
	cp := state{
		showings:     make(map[uint64]*model.Showing, len(st.showings)),
		rooms:        st.rooms,
		movies:       st.movies,
		cards:        st.cards,
		reservations: make(map[uint64]*model.Reservation, len(st.reservations)),
		payments:     make(map[uint64]*model.Payment, len(st.payments)),
		paymentOf:    make(map[uint64]uint64, len(st.paymentOf)),
		nextResID:    st.nextResID,
		nextPayID:    st.nextPayID,
	}
	for id, sh := range st.showings {
		cp.showings[id] = copyShowing(sh)
	}
	for id, r := range st.reservations {
		cp.reservations[id] = copyReservation(r)
	}
	for id, p := range st.payments {
		cp.payments[id] = copyPayment(p)
	}
	for k, v := range st.paymentOf {
		cp.paymentOf[k] = v
	}
	return cp
}

// Store keeps all ledger data in memory.  The zero value is not usable;
// call New.
type Store struct {
	mu sync.Mutex
	st state
}

// New returns an empty store.
func New() *Store {
	return &Store{st: state{
		showings:     map[uint64]*model.Showing{},
		rooms:        map[uint64]model.Room{},
		movies:       map[uint64]model.Movie{},
		cards:        map[uint64]model.Card{},
		reservations: map[uint64]*model.Reservation{},
		payments:     map[uint64]*model.Payment{},
		paymentOf:    map[uint64]uint64{},
	}}
}

// AddShowing registers a showing and its seats.  Catalog data is owned by
// an external service; these helpers stand in for it.
func (s *Store) AddShowing(sh model.Showing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.showings[sh.ID] = copyShowing(&sh)
}

// AddRoom registers a room.
func (s *Store) AddRoom(r model.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.rooms[r.ID] = r
}

// AddMovie registers a movie.
func (s *Store) AddMovie(m model.Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.movies[m.ID] = m
}

// AddCard registers the membership card of a user, replacing any earlier
// one.
func (s *Store) AddCard(c model.Card) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.cards[c.UserID] = c
}

func (s *Store) Catalog() repository.CatalogReader         { return catalogReader{s} }
func (s *Store) Cards() repository.CardReader              { return cardReader{s} }
func (s *Store) Reservations() repository.ReservationReader { return reservationReader{s} }
func (s *Store) Payments() repository.PaymentReader         { return paymentReader{s} }

// InTx serializes fn against every other transaction and read.  When fn
// fails the store is restored to the state it had before fn started.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := s.st.clone()
	if err := fn(ctx, &tx{st: &s.st}); err != nil {
		s.st = snap
		return err
	}
	return nil
}

type catalogReader struct{ s *Store }

func (r catalogReader) FindShowing(_ context.Context, id uint64) (*model.Showing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.st.showings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyShowing(sh), nil
}

func (r catalogReader) FindRoom(_ context.Context, id uint64) (*model.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	room, ok := r.s.st.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &room, nil
}

func (r catalogReader) FindMovie(_ context.Context, id uint64) (*model.Movie, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.st.movies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m.Genres = append([]string(nil), m.Genres...)
	return &m, nil
}

type cardReader struct{ s *Store }

func (r cardReader) FindByUser(_ context.Context, userID uint64) (*model.Card, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.st.cards[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

type reservationReader struct{ s *Store }

func (r reservationReader) Get(_ context.Context, id uint64) (*model.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.st.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyReservation(res), nil
}

func (r reservationReader) ListByUser(_ context.Context, userID uint64) ([]model.Reservation, error) {
	return r.list(func(res *model.Reservation) bool { return res.UserID == userID }, true), nil
}

func (r reservationReader) ListByShowing(_ context.Context, showingID uint64) ([]model.Reservation, error) {
	return r.list(func(res *model.Reservation) bool { return res.ShowingID == showingID }, false), nil
}

func (r reservationReader) list(keep func(*model.Reservation) bool, newestFirst bool) []model.Reservation {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Reservation{}
	for _, res := range r.s.st.reservations {
		if keep(res) {
			out = append(out, *copyReservation(res))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r reservationReader) ListStale(_ context.Context, before time.Time, limit int) ([]uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := []uint64{}
	for id, res := range r.s.st.reservations {
		if res.Status != model.ReservationPending && res.Status != model.ReservationReserved {
			continue
		}
		if _, paid := r.s.st.paymentOf[id]; paid {
			continue
		}
		if res.UpdatedAt.Before(before) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

type paymentReader struct{ s *Store }

func (r paymentReader) Get(_ context.Context, id uint64) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyPayment(p), nil
}

func copyShowing(sh *model.Showing) *model.Showing {
	cp := *sh
	cp.Seats = append([]model.Seat(nil), sh.Seats...)
	return &cp
}

func copyReservation(r *model.Reservation) *model.Reservation {
	cp := *r
	cp.Seats = append([]string(nil), r.Seats...)
	cp.History = append([]model.StatusChange(nil), r.History...)
	return &cp
}

func copyPayment(p *model.Payment) *model.Payment {
	cp := *p
	if p.DiscountPercent != nil {
		d := *p.DiscountPercent
		cp.DiscountPercent = &d
	}
	return &cp
}

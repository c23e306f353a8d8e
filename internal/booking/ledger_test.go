package booking

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/repository/memory"
)

const (
	showingID uint64 = 1
	alice     uint64 = 10
	bob       uint64 = 20
)

var fixedNow = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

type recordedEvent struct {
	queue string
	event any
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, queue string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{queue: queue, event: event})
	return nil
}

func (p *recordingPublisher) queues() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.queue)
	}
	return out
}

type fixture struct {
	store  *memory.Store
	ledger *Ledger
	events *recordingPublisher
	now    time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	st := memory.New()
	st.AddMovie(model.Movie{ID: 1, Title: "Arrival", Genres: []string{"Drama", "Sci-Fi"}, DurationMin: 116})
	st.AddRoom(model.Room{ID: 1, Name: "Sala 1", PriceCents: 500})
	st.AddShowing(model.Showing{
		ID: showingID, MovieID: 1, RoomID: 1,
		StartsAt: time.Date(2025, 3, 2, 20, 30, 0, 0, time.UTC),
		Seats: []model.Seat{
			{Name: "A1", Category: model.SeatRegular, PriceCents: 1250, Available: true},
			{Name: "A2", Category: model.SeatRegular, PriceCents: 1500, Available: true},
			{Name: "B3", Category: model.SeatVIP, PriceCents: 2000, Available: true},
			{Name: "B4", Category: model.SeatVIP, PriceCents: 2000, Available: true},
		},
	})
	f := &fixture{store: st, events: &recordingPublisher{}, now: fixedNow}
	base := []Option{WithClock(func() time.Time { return f.now }), WithPublisher(f.events)}
	f.ledger = New(st, append(base, opts...)...)
	return f
}

func (f *fixture) unavailable(t *testing.T) []string {
	t.Helper()
	sh, err := f.store.Catalog().FindShowing(context.Background(), showingID)
	require.NoError(t, err)
	var out []string
	for _, s := range sh.Seats {
		if !s.Available {
			out = append(out, s.Name)
		}
	}
	sort.Strings(out)
	return out
}

// heldSeats is the union of seats of every reservation that still holds
// them: active ones and purchases.
func (f *fixture) heldSeats(t *testing.T) []string {
	t.Helper()
	items, err := f.store.Reservations().ListByShowing(context.Background(), showingID)
	require.NoError(t, err)
	var out []string
	for _, r := range items {
		if r.Status.HoldsSeats() {
			out = append(out, r.Seats...)
		}
	}
	sort.Strings(out)
	return out
}

func (f *fixture) requireLockInvariant(t *testing.T) {
	t.Helper()
	require.Equal(t, f.heldSeats(t), f.unavailable(t))
}

func (f *fixture) reserve(t *testing.T, user uint64, seats ...string) *model.Reservation {
	t.Helper()
	r, err := f.ledger.CreateReservation(context.Background(), CreateRequest{
		UserID: user, ShowingID: showingID, Seats: seats, Mode: model.ModeReserve,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) pay(t *testing.T, user uint64, seats ...string) *model.Payment {
	t.Helper()
	r := f.reserve(t, user, seats...)
	p, err := f.ledger.InitiatePayment(context.Background(), InitiateRequest{UserID: user, ReservationID: r.ID})
	require.NoError(t, err)
	return p
}

func statuses(h []model.StatusChange) []model.ReservationStatus {
	out := make([]model.ReservationStatus, 0, len(h))
	for _, c := range h {
		out = append(out, c.Status)
	}
	return out
}

// staleStore makes the next n payment status writes fail with
// ErrStaleVersion.
type staleStore struct {
	repository.Store
	mu sync.Mutex
	n  int
}

func (s *staleStore) InTx(ctx context.Context, fn func(context.Context, repository.Tx) error) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, staleTx{Tx: tx, s: s})
	})
}

type staleTx struct {
	repository.Tx
	s *staleStore
}

func (t staleTx) Payments() repository.PaymentWriter {
	return stalePayments{PaymentWriter: t.Tx.Payments(), s: t.s}
}

type stalePayments struct {
	repository.PaymentWriter
	s *staleStore
}

func (p stalePayments) UpdateStatus(ctx context.Context, id uint64, version uint32, status model.PaymentStatus, method model.PaymentMethod, at time.Time) error {
	p.s.mu.Lock()
	if p.s.n > 0 {
		p.s.n--
		p.s.mu.Unlock()
		return repository.ErrStaleVersion
	}
	p.s.mu.Unlock()
	return p.PaymentWriter.UpdateStatus(ctx, id, version, status, method, at)
}

package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/iliyamo/cinema-ticketing/internal/logging"
)

// Sweeper cancels reservations that were left pending or reserved without
// a payment for longer than the configured TTL, returning their seats.
type Sweeper struct {
	ledger   *Ledger
	ttl      time.Duration
	interval time.Duration
	batch    int
	released func(ctx context.Context, showingID uint64)
	sched    gocron.Scheduler
}

// SweeperOption customises a Sweeper.
type SweeperOption func(*Sweeper)

// OnSeatsReleased registers fn to run once per showing whose seats a sweep
// handed back, after the cancellations have committed.  The seat map
// cache uses it to drop stale entries.
func OnSeatsReleased(fn func(ctx context.Context, showingID uint64)) SweeperOption {
	return func(s *Sweeper) { s.released = fn }
}

// NewSweeper returns a sweeper for l.  A ttl of zero or less disables
// expiry altogether; Start then does nothing.
func NewSweeper(l *Ledger, ttl, interval time.Duration, opts ...SweeperOption) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	s := &Sweeper{ledger: l, ttl: ttl, interval: interval, batch: 100}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enabled reports whether reservations expire at all.
func (s *Sweeper) Enabled() bool { return s.ttl > 0 }

// Sweep cancels one batch of stale reservations and returns how many were
// cancelled.  Reservations that moved on since they were listed are
// skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}
	log := logging.FromContext(ctx)
	cutoff := s.ledger.clock().Add(-s.ttl)
	ids, err := s.ledger.store.Reservations().ListStale(ctx, cutoff, s.batch)
	if err != nil {
		return 0, fmt.Errorf("list stale reservations: %w", err)
	}
	cancelled := 0
	var showings []uint64
	defer func() { s.notify(ctx, showings) }()
	for _, id := range ids {
		r, err := s.ledger.cancel(ctx, id, nil, "expired")
		switch {
		case err == nil:
			cancelled++
			if !slices.Contains(showings, r.ShowingID) {
				showings = append(showings, r.ShowingID)
			}
		case errors.Is(err, ErrPaymentExists), errors.Is(err, ErrReservationNotFound):
			log.WithField("reservation_id", id).Debug("stale reservation changed before expiry")
		default:
			return cancelled, err
		}
	}
	if cancelled > 0 {
		log.WithField("count", cancelled).Info("expired reservations cancelled")
	}
	return cancelled, nil
}

func (s *Sweeper) notify(ctx context.Context, showings []uint64) {
	if s.released == nil {
		return
	}
	for _, id := range showings {
		s.released(ctx, id)
	}
}

// Start schedules Sweep every interval until ctx is done or Stop is
// called.
func (s *Sweeper) Start(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return err
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if _, err := s.Sweep(ctx); err != nil {
				logging.FromContext(ctx).WithError(err).Error("reservation sweep failed")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return err
	}
	s.sched = sched
	sched.Start()
	logging.FromContext(ctx).WithField("ttl", s.ttl.String()).WithField("interval", s.interval.String()).
		Info("reservation sweeper started")
	return nil
}

// Stop shuts the scheduler down and waits for a running sweep.
func (s *Sweeper) Stop() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}

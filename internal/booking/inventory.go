package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// Availability is the answer of CheckAvailability.
type Availability struct {
	Available   bool     `json:"available"`
	Unavailable []string `json:"unavailable"`
}

// normalizeSeats trims the requested names and drops duplicates while
// keeping the request order.
func normalizeSeats(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, ErrEmptySeatSelection
	}
	return out, nil
}

// unavailableSeats returns the requested names that are unknown to the
// showing or currently taken.
func unavailableSeats(sh *model.Showing, names []string) []string {
	byName := make(map[string]bool, len(sh.Seats))
	for _, s := range sh.Seats {
		byName[s.Name] = s.Available
	}
	var out []string
	for _, n := range names {
		if !byName[n] {
			out = append(out, n)
		}
	}
	return out
}

// CheckAvailability reports which of the requested seats cannot be booked
// right now.  It never changes state.
func (l *Ledger) CheckAvailability(ctx context.Context, showingID uint64, names []string) (Availability, error) {
	names, err := normalizeSeats(names)
	if err != nil {
		return Availability{}, err
	}
	sh, err := l.findShowing(ctx, showingID)
	if err != nil {
		return Availability{}, l.fail(ctx, "check_availability", err, "showing_id", showingID)
	}
	bad := unavailableSeats(sh, names)
	if bad == nil {
		bad = []string{}
	}
	return Availability{Available: len(bad) == 0, Unavailable: bad}, nil
}

// SeatMap returns a showing with the current availability of every seat.
func (l *Ledger) SeatMap(ctx context.Context, showingID uint64) (*model.Showing, error) {
	sh, err := l.findShowing(ctx, showingID)
	if err != nil {
		return nil, l.fail(ctx, "seat_map", err, "showing_id", showingID)
	}
	return sh, nil
}

func (l *Ledger) findShowing(ctx context.Context, id uint64) (*model.Showing, error) {
	sh, err := l.store.Catalog().FindShowing(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrShowingNotFound, id)
	}
	return sh, err
}

// lockSeats flips the seats unavailable inside tx.  A conflict aborts the
// whole transaction, which undoes any lock taken earlier in it.
func lockSeats(ctx context.Context, tx repository.Tx, showingID uint64, names []string) error {
	taken, err := tx.Seats().Lock(ctx, showingID, names)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %d", ErrShowingNotFound, showingID)
	}
	if err != nil {
		return fmt.Errorf("lock seats: %w", err)
	}
	if len(taken) > 0 {
		return &SeatError{Err: ErrSeatConflict, Seats: taken}
	}
	return nil
}

func releaseSeats(ctx context.Context, tx repository.Tx, showingID uint64, names []string) error {
	if err := tx.Seats().Release(ctx, showingID, names); err != nil {
		return fmt.Errorf("release seats: %w", err)
	}
	return nil
}

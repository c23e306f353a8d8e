package repository

import (
    "context"
    "time"

    "github.com/iliyamo/cinema-ticketing/internal/model"
)

// CatalogReader exposes the read-only catalog lookups the ledger consumes.
type CatalogReader interface {
    // FindShowing returns a showing with its seats in order.
    FindShowing(ctx context.Context, id uint64) (*model.Showing, error)
    FindRoom(ctx context.Context, id uint64) (*model.Room, error)
    FindMovie(ctx context.Context, id uint64) (*model.Movie, error)
}

// CardReader looks up membership cards.
type CardReader interface {
    // FindByUser returns the most recently issued card of the user or
    // ErrNotFound when the user holds none.
    FindByUser(ctx context.Context, userID uint64) (*model.Card, error)
}

// ReservationReader serves non-locking reservation reads.
type ReservationReader interface {
    Get(ctx context.Context, id uint64) (*model.Reservation, error)
    ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
    ListByShowing(ctx context.Context, showingID uint64) ([]model.Reservation, error)
    // ListStale returns ids of pending or reserved reservations without a
    // payment whose last update happened before the cutoff.
    ListStale(ctx context.Context, before time.Time, limit int) ([]uint64, error)
}

// PaymentReader serves non-locking payment reads.
type PaymentReader interface {
    Get(ctx context.Context, id uint64) (*model.Payment, error)
}

// SeatWriter owns the availability flag of showing seats.  Both methods
// must be called inside a transaction.
type SeatWriter interface {
    // Lock marks every named seat unavailable with a single conditional
    // update.  When any seat is unknown or already unavailable nothing is
    // changed and the offending names are returned.
    Lock(ctx context.Context, showingID uint64, names []string) (unavailable []string, err error)
    // Release marks every named seat available.  Releasing an available
    // seat is a no-op.
    Release(ctx context.Context, showingID uint64, names []string) error
}

// ReservationWriter mutates reservations inside a transaction.
type ReservationWriter interface {
    // Create inserts r together with its seats and its first history
    // entry, filling in ID and Version.
    Create(ctx context.Context, r *model.Reservation) error
    // GetForUpdate loads a reservation and locks it until the transaction
    // ends.
    GetForUpdate(ctx context.Context, id uint64) (*model.Reservation, error)
    // UpdateStatus sets the status, appends a history entry and bumps the
    // version.  It fails with ErrStaleVersion when version differs.
    UpdateStatus(ctx context.Context, id uint64, version uint32, status model.ReservationStatus, at time.Time) error
}

// PaymentWriter mutates payments inside a transaction.
type PaymentWriter interface {
    // Create inserts p.  A second payment for the same reservation fails
    // with ErrDuplicate.
    Create(ctx context.Context, p *model.Payment) error
    GetForUpdate(ctx context.Context, id uint64) (*model.Payment, error)
    ExistsForReservation(ctx context.Context, reservationID uint64) (bool, error)
    // UpdateStatus stores the new status and method and bumps the version.
    // It fails with ErrStaleVersion when version differs.
    UpdateStatus(ctx context.Context, id uint64, version uint32, status model.PaymentStatus, method model.PaymentMethod, at time.Time) error
}

// Tx groups the writers bound to one transaction.
type Tx interface {
    Seats() SeatWriter
    Reservations() ReservationWriter
    Payments() PaymentWriter
}

// Store is the full storage port of the ledger.
type Store interface {
    Catalog() CatalogReader
    Cards() CardReader
    Reservations() ReservationReader
    Payments() PaymentReader
    // InTx runs fn inside a transaction.  The transaction commits when fn
    // returns nil and rolls back otherwise.  fn must only use tx for
    // storage access.
    InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

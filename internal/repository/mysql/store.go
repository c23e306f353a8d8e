// Package mysql implements the repository ports on top of database/sql and
// the go-sql-driver/mysql driver.  Each repository exposes plain methods
// for reads and *Tx methods that run on a caller owned transaction.
package mysql

import (
	"context"
	"database/sql"
	"errors"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles the MySQL repositories behind repository.Store.
type Store struct {
	db           *sql.DB
	catalog      *CatalogRepo
	cards        *CardRepo
	seats        *SeatRepo
	reservations *ReservationRepo
	payments     *PaymentRepo
}

// NewStore returns a Store bound to the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		catalog:      NewCatalogRepo(db),
		cards:        NewCardRepo(db),
		seats:        NewSeatRepo(db),
		reservations: NewReservationRepo(db),
		payments:     NewPaymentRepo(db),
	}
}

func (s *Store) Catalog() repository.CatalogReader         { return s.catalog }
func (s *Store) Cards() repository.CardReader              { return s.cards }
func (s *Store) Reservations() repository.ReservationReader { return s.reservations }
func (s *Store) Payments() repository.PaymentReader         { return s.payments }

// InTx begins a transaction, runs fn and commits when fn succeeds.  Any
// error from fn or from commit rolls the transaction back.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()
	if err := fn(ctx, &txStore{s: s, tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type txStore struct {
	s  *Store
	tx *sql.Tx
}

func (t *txStore) Seats() repository.SeatWriter               { return txSeats{t.s.seats, t.tx} }
func (t *txStore) Reservations() repository.ReservationWriter { return txReservations{t.s.reservations, t.tx} }
func (t *txStore) Payments() repository.PaymentWriter         { return txPayments{t.s.payments, t.tx} }

type txSeats struct {
	r  *SeatRepo
	tx *sql.Tx
}

func (t txSeats) Lock(ctx context.Context, showingID uint64, names []string) ([]string, error) {
	return t.r.LockTx(ctx, t.tx, showingID, names)
}

func (t txSeats) Release(ctx context.Context, showingID uint64, names []string) error {
	return t.r.ReleaseTx(ctx, t.tx, showingID, names)
}

// notFound maps sql.ErrNoRows to repository.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

// isDuplicate reports whether err is a MySQL unique key violation.
func isDuplicate(err error) bool {
	var me *gomysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}

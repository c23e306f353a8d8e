package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

const lockSelect = `SELECT name, available FROM showing_seats WHERE showing_id = \? AND name IN \(\?, \?\) FOR UPDATE`
const lockUpdate = `UPDATE showing_seats SET available = 0, version = version \+ 1\s+WHERE showing_id = \? AND available = 1 AND name IN \(\?, \?\)`

func TestLockMarksAllSeatsWithOneConditionalUpdate(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockSelect).
		WithArgs(7, "A1", "A2").
		WillReturnRows(sqlmock.NewRows([]string{"name", "available"}).AddRow("A1", true).AddRow("A2", true))
	mock.ExpectExec(lockUpdate).
		WithArgs(7, "A1", "A2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	var unavailable []string
	err := s.InTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		unavailable, err = tx.Seats().Lock(ctx, 7, []string{"A1", "A2"})
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, unavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockReportsTakenAndUnknownSeatsWithoutUpdating(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockSelect).
		WithArgs(7, "A2", "Z9").
		WillReturnRows(sqlmock.NewRows([]string{"name", "available"}).AddRow("A2", false))
	mock.ExpectRollback()

	errConflict := errors.New("conflict")
	var unavailable []string
	err := s.InTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		var err error
		unavailable, err = tx.Seats().Lock(ctx, 7, []string{"A2", "Z9"})
		if err != nil {
			return err
		}
		if len(unavailable) > 0 {
			return errConflict
		}
		return nil
	})
	require.ErrorIs(t, err, errConflict)
	assert.Equal(t, []string{"A2", "Z9"}, unavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockShortUpdateReportsWholeSet(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(lockSelect).
		WillReturnRows(sqlmock.NewRows([]string{"name", "available"}).AddRow("A1", true).AddRow("A2", true))
	mock.ExpectExec(lockUpdate).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	var unavailable []string
	err := s.InTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		unavailable, _ = tx.Seats().Lock(ctx, 7, []string{"A1", "A2"})
		return errors.New("rollback")
	})
	require.Error(t, err)
	assert.Equal(t, []string{"A1", "A2"}, unavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseOnlyTouchesUnavailableSeats(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE showing_seats SET available = 1, version = version \+ 1\s+WHERE showing_id = \? AND available = 0 AND name IN \(\?\)`).
		WithArgs(3, "B3").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := s.InTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Seats().Release(ctx, 3, []string{"B3"})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePaymentMapsUniqueViolation(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO payments`).
		WillReturnError(&gomysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	err := s.InTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Payments().Create(ctx, &model.Payment{
			ReservationID: 1, Reference: "PAY-1", AmountCents: 100,
			Method: model.MethodCreditCard, Status: model.PaymentPending,
			CreatedAt: now, UpdatedAt: now,
		})
	})
	require.ErrorIs(t, err, repository.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReservationStatusDetectsStaleVersion(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE reservations SET status = \?, version = version \+ 1, updated_at = \? WHERE id = \? AND version = \?`).
		WithArgs("cancelled", sqlmock.AnyArg(), 5, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Reservations().UpdateStatus(ctx, 5, 2, model.ReservationCancelled, time.Now())
	})
	require.ErrorIs(t, err, repository.ErrStaleVersion)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReservationStatusAppendsHistory(t *testing.T) {
	s, mock := newMock(t)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE reservations SET status`).
		WithArgs("purchased", at, 5, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO reservation_status_history`).
		WithArgs(5, "purchased", at).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	err := s.InTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Reservations().UpdateStatus(ctx, 5, 2, model.ReservationPurchased, at)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservationKeepsSeatOrder(t *testing.T) {
	s, mock := newMock(t)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO reservations`).
		WithArgs(10, 7, "pending", at, at).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(`INSERT INTO reservation_seats \(reservation_id, position, seat_name\) VALUES \(\?, \?, \?\),\(\?, \?, \?\)`).
		WithArgs(42, 0, "B4", 42, 1, "A1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO reservation_status_history`).
		WithArgs(42, "pending", at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	res := &model.Reservation{UserID: 10, ShowingID: 7, Seats: []string{"B4", "A1"}, Status: model.ReservationPending, CreatedAt: at, UpdatedAt: at}
	err := s.InTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.Reservations().Create(ctx, res)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), res.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReservationReadsSeatsInRequestOrder(t *testing.T) {
	s, mock := newMock(t)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, user_id, showing_id, status, version, created_at, updated_at FROM reservations WHERE id = \?`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "showing_id", "status", "version", "created_at", "updated_at"}).
			AddRow(42, 10, 7, "pending", 1, at, at))
	mock.ExpectQuery(`SELECT seat_name FROM reservation_seats WHERE reservation_id = \? ORDER BY position`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"seat_name"}).AddRow("B4").AddRow("A1"))
	mock.ExpectQuery(`SELECT status, changed_at FROM reservation_status_history`).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"status", "changed_at"}).AddRow("pending", at))

	r, err := s.Reservations().Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"B4", "A1"}, r.Seats)
	assert.Equal(t, model.ReservationPending, r.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindShowingNotFound(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, movie_id, room_id, starts_at FROM showings WHERE id = \?`).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id", "movie_id", "room_id", "starts_at"}))

	_, err := s.Catalog().FindShowing(context.Background(), 99)
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindShowingLoadsSeatsInOrder(t *testing.T) {
	s, mock := newMock(t)
	starts := time.Date(2025, 3, 1, 20, 30, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM showings WHERE id = \?`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "movie_id", "room_id", "starts_at"}).AddRow(1, 2, 3, starts))
	mock.ExpectQuery(`SELECT name, category, price_cents, available\s+FROM showing_seats`).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"name", "category", "price_cents", "available"}).
			AddRow("A1", "VIP", 1250, true).
			AddRow("A2", "Regular", 1500, false))

	sh, err := s.Catalog().FindShowing(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sh.RoomID)
	require.Len(t, sh.Seats, 2)
	assert.Equal(t, model.Seat{Name: "A1", Category: model.SeatVIP, PriceCents: 1250, Available: true}, sh.Seats[0])
	assert.False(t, sh.Seats[1].Available)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindMovieSplitsGenres(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, title, genres, duration_min FROM movies`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "genres", "duration_min"}).AddRow(4, "Arrival", "Drama, Sci-Fi", 116))

	m, err := s.Catalog().FindMovie(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"Drama", "Sci-Fi"}, m.Genres)
	assert.Equal(t, 116, m.DurationMin)
}

func TestListStaleSkipsPaidReservations(t *testing.T) {
	s, mock := newMock(t)
	cutoff := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`LEFT JOIN payments p ON p.reservation_id = r.id`).
		WithArgs(cutoff, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3).AddRow(8))

	ids, err := s.Reservations().ListStale(context.Background(), cutoff, 50)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 8}, ids)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// ReservationRepo stores reservations, their seat names and their status
// history.  All timestamps are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationCols = `id, user_id, showing_id, status, version, created_at, updated_at`

func scanReservation(sc interface{ Scan(...any) error }) (*model.Reservation, error) {
	var r model.Reservation
	if err := sc.Scan(&r.ID, &r.UserID, &r.ShowingID, &r.Status, &r.Version, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// load fills the seat names, in the order they were requested, and the
// history of r.
func (r *ReservationRepo) load(ctx context.Context, q queryer, res *model.Reservation) error {
	const seatQ = `SELECT seat_name FROM reservation_seats WHERE reservation_id = ? ORDER BY position`
	rows, err := q.QueryContext(ctx, seatQ, res.ID)
	if err != nil {
		return err
	}
	res.Seats = []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		res.Seats = append(res.Seats, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	const histQ = `SELECT status, changed_at FROM reservation_status_history WHERE reservation_id = ? ORDER BY id`
	hrows, err := q.QueryContext(ctx, histQ, res.ID)
	if err != nil {
		return err
	}
	defer hrows.Close()
	res.History = []model.StatusChange{}
	for hrows.Next() {
		var h model.StatusChange
		if err := hrows.Scan(&h.Status, &h.At); err != nil {
			return err
		}
		res.History = append(res.History, h)
	}
	return hrows.Err()
}

func (r *ReservationRepo) getOne(ctx context.Context, q queryer, query string, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	if err := r.load(ctx, q, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Get returns a reservation with its seats and history.
func (r *ReservationRepo) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.getOne(ctx, r.db, `SELECT `+reservationCols+` FROM reservations WHERE id = ?`, id)
}

// GetForUpdateTx is like Get but locks the reservation row until tx ends.
func (r *ReservationRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	return r.getOne(ctx, tx, `SELECT `+reservationCols+` FROM reservations WHERE id = ? FOR UPDATE`, id)
}

func (r *ReservationRepo) list(ctx context.Context, query string, arg uint64) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	var items []*model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		items = append(items, res)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]model.Reservation, 0, len(items))
	for _, res := range items {
		if err := r.load(ctx, r.db, res); err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, nil
}

// ListByUser returns the reservations of a user, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationCols+` FROM reservations WHERE user_id = ? ORDER BY id DESC`, userID)
}

// ListByShowing returns every reservation of a showing in creation order.
func (r *ReservationRepo) ListByShowing(ctx context.Context, showingID uint64) ([]model.Reservation, error) {
	return r.list(ctx, `SELECT `+reservationCols+` FROM reservations WHERE showing_id = ? ORDER BY id`, showingID)
}

// ListStale returns ids of unpaid pending or reserved reservations last
// touched before the cutoff.
func (r *ReservationRepo) ListStale(ctx context.Context, before time.Time, limit int) ([]uint64, error) {
	const q = `SELECT r.id
               FROM reservations r
               LEFT JOIN payments p ON p.reservation_id = r.id
               WHERE r.status IN ('pending', 'reserved') AND p.id IS NULL AND r.updated_at < ?
               ORDER BY r.id
               LIMIT ?`
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, q, before.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []uint64{}
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateTx inserts a reservation, its seat names and its first history
// entry.  The generated id and initial version are set on res.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, showing_id, status, version, created_at, updated_at) VALUES (?, ?, ?, 1, ?, ?)`
	result, err := tx.ExecContext(ctx, q, res.UserID, res.ShowingID, res.Status, res.CreatedAt.UTC(), res.UpdatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	res.Version = 1

	if len(res.Seats) > 0 {
		query := `INSERT INTO reservation_seats (reservation_id, position, seat_name) VALUES `
		args := make([]any, 0, len(res.Seats)*3)
		for i, name := range res.Seats {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?)"
			args = append(args, res.ID, i, name)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if len(res.History) == 0 {
		res.History = []model.StatusChange{{Status: res.Status, At: res.CreatedAt}}
	}
	for _, h := range res.History {
		if err := insertHistory(ctx, tx, res.ID, h); err != nil {
			return err
		}
	}
	return nil
}

// UpdateStatusTx moves a reservation to status and appends the matching
// history row.  version must equal the stored version.
func (r *ReservationRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, version uint32, status model.ReservationStatus, at time.Time) error {
	const q = `UPDATE reservations SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, status, at.UTC(), id, version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrStaleVersion
	}
	return insertHistory(ctx, tx, id, model.StatusChange{Status: status, At: at})
}

func insertHistory(ctx context.Context, tx *sql.Tx, reservationID uint64, h model.StatusChange) error {
	const q = `INSERT INTO reservation_status_history (reservation_id, status, changed_at) VALUES (?, ?, ?)`
	_, err := tx.ExecContext(ctx, q, reservationID, h.Status, h.At.UTC())
	return err
}

type txReservations struct {
	r  *ReservationRepo
	tx *sql.Tx
}

func (t txReservations) Create(ctx context.Context, res *model.Reservation) error {
	return t.r.CreateTx(ctx, t.tx, res)
}

func (t txReservations) GetForUpdate(ctx context.Context, id uint64) (*model.Reservation, error) {
	return t.r.GetForUpdateTx(ctx, t.tx, id)
}

func (t txReservations) UpdateStatus(ctx context.Context, id uint64, version uint32, status model.ReservationStatus, at time.Time) error {
	return t.r.UpdateStatusTx(ctx, t.tx, id, version, status, at)
}

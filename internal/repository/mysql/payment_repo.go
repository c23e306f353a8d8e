package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// PaymentRepo stores payments.  The unique key on reservation_id enforces
// the one payment per reservation rule at the database level.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentCols = `id, reservation_id, reference, amount_cents, discount_percent, method, status, version, created_at, updated_at`

func (r *PaymentRepo) getOne(ctx context.Context, q queryer, query string, id uint64) (*model.Payment, error) {
	var p model.Payment
	var discount sql.NullInt32
	err := q.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.ReservationID, &p.Reference, &p.AmountCents, &discount,
		&p.Method, &p.Status, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	if discount.Valid {
		d := int(discount.Int32)
		p.DiscountPercent = &d
	}
	return &p, nil
}

// Get returns a payment by id.
func (r *PaymentRepo) Get(ctx context.Context, id uint64) (*model.Payment, error) {
	return r.getOne(ctx, r.db, `SELECT `+paymentCols+` FROM payments WHERE id = ?`, id)
}

// GetForUpdateTx returns a payment and locks its row until tx ends.
func (r *PaymentRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Payment, error) {
	return r.getOne(ctx, tx, `SELECT `+paymentCols+` FROM payments WHERE id = ? FOR UPDATE`, id)
}

// ExistsForReservationTx reports whether a payment references the
// reservation.  The lookup locks the matching index range so that a
// concurrent insert for the same reservation waits for tx.
func (r *PaymentRepo) ExistsForReservationTx(ctx context.Context, tx *sql.Tx, reservationID uint64) (bool, error) {
	const q = `SELECT COUNT(*) FROM payments WHERE reservation_id = ? FOR UPDATE`
	var n int
	if err := tx.QueryRowContext(ctx, q, reservationID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateTx inserts a payment and sets its id and version.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	const q = `INSERT INTO payments (reservation_id, reference, amount_cents, discount_percent, method, status, version, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`
	var discount sql.NullInt32
	if p.DiscountPercent != nil {
		discount = sql.NullInt32{Int32: int32(*p.DiscountPercent), Valid: true}
	}
	res, err := tx.ExecContext(ctx, q, p.ReservationID, p.Reference, p.AmountCents, discount,
		p.Method, p.Status, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.Version = 1
	return nil
}

// UpdateStatusTx stores a new status and method.  An empty method keeps
// the stored one.
func (r *PaymentRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, version uint32, status model.PaymentStatus, method model.PaymentMethod, at time.Time) error {
	const q = `UPDATE payments
               SET status = ?, method = COALESCE(NULLIF(?, ''), method), version = version + 1, updated_at = ?
               WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, status, method, at.UTC(), id, version)
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
	return nil
}

type txPayments struct {
	r  *PaymentRepo
	tx *sql.Tx
}

func (t txPayments) Create(ctx context.Context, p *model.Payment) error {
	return t.r.CreateTx(ctx, t.tx, p)
}

func (t txPayments) GetForUpdate(ctx context.Context, id uint64) (*model.Payment, error) {
	return t.r.GetForUpdateTx(ctx, t.tx, id)
}

func (t txPayments) ExistsForReservation(ctx context.Context, reservationID uint64) (bool, error) {
	return t.r.ExistsForReservationTx(ctx, t.tx, reservationID)
}

func (t txPayments) UpdateStatus(ctx context.Context, id uint64, version uint32, status model.PaymentStatus, method model.PaymentMethod, at time.Time) error {
	return t.r.UpdateStatusTx(ctx, t.tx, id, version, status, method, at)
}

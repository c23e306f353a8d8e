package mysql

import (
	"context"
	"database/sql"
)

// SeatRepo flips the availability of showing seats.  It is the only
// writer of showing_seats.available.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a new SeatRepo bound to the given database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// LockTx marks the named seats of a showing unavailable.  The rows are
// locked first so that the reported conflicts are exact; the update
// itself only matches rows still flagged available, so a short row count
// means another transaction got there first.  On any conflict the
// conflicting names are returned and the caller must roll back.
func (r *SeatRepo) LockTx(ctx context.Context, tx *sql.Tx, showingID uint64, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(names)+1)
	args = append(args, showingID)
	for _, n := range names {
		args = append(args, n)
	}

	sel := `SELECT name, available FROM showing_seats WHERE showing_id = ? AND name IN (` + placeholders(len(names)) + `) FOR UPDATE`
	rows, err := tx.QueryContext(ctx, sel, args...)
	if err != nil {
		return nil, err
	}
	free := make(map[string]bool, len(names))
	for rows.Next() {
		var name string
		var available bool
		if err := rows.Scan(&name, &available); err != nil {
			rows.Close()
			return nil, err
		}
		free[name] = available
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var unavailable []string
	for _, n := range names {
		if !free[n] {
			unavailable = append(unavailable, n)
		}
	}
	if len(unavailable) > 0 {
		return unavailable, nil
	}

	upd := `UPDATE showing_seats SET available = 0, version = version + 1
            WHERE showing_id = ? AND available = 1 AND name IN (` + placeholders(len(names)) + `)`
	res, err := tx.ExecContext(ctx, upd, args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if int(n) != len(names) {
		// rows changed between the select and the update; the whole set is
		// reported because the update cannot tell which rows missed
		return append([]string(nil), names...), nil
	}
	return nil, nil
}

// ReleaseTx marks the named seats of a showing available again.  Seats
// that are already available are left untouched.
func (r *SeatRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, showingID uint64, names []string) error {
	if len(names) == 0 {
		return nil
	}
	args := make([]any, 0, len(names)+1)
	args = append(args, showingID)
	for _, n := range names {
		args = append(args, n)
	}
	q := `UPDATE showing_seats SET available = 1, version = version + 1
          WHERE showing_id = ? AND available = 0 AND name IN (` + placeholders(len(names)) + `)`
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

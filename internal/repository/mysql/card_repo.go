package mysql

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// CardRepo reads membership cards.
type CardRepo struct {
	db *sql.DB
}

// NewCardRepo returns a new CardRepo bound to the given database.
func NewCardRepo(db *sql.DB) *CardRepo { return &CardRepo{db: db} }

// FindByUser returns the most recently issued card of a user.
func (r *CardRepo) FindByUser(ctx context.Context, userID uint64) (*model.Card, error) {
	const q = `SELECT id, user_id, name, discount_percent, issued_at, valid_until
               FROM cards
               WHERE user_id = ?
               ORDER BY issued_at DESC, id DESC
               LIMIT 1`
	var c model.Card
	err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&c.ID, &c.UserID, &c.Name, &c.DiscountPercent, &c.IssuedAt, &c.ValidUntil,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

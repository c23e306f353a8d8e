package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// CatalogRepo reads movies, rooms and showings.  The catalog is managed by
// another service; the ledger never writes these tables except for the
// availability flag of showing seats (see SeatRepo).
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo returns a new CatalogRepo bound to the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// FindShowing loads a showing together with its seats ordered by position.
func (r *CatalogRepo) FindShowing(ctx context.Context, id uint64) (*model.Showing, error) {
	const q = `SELECT id, movie_id, room_id, starts_at FROM showings WHERE id = ?`
	var sh model.Showing
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&sh.ID, &sh.MovieID, &sh.RoomID, &sh.StartsAt); err != nil {
		return nil, notFound(err)
	}
	const seatQ = `SELECT name, category, price_cents, available
                   FROM showing_seats
                   WHERE showing_id = ?
                   ORDER BY position, id`
	rows, err := r.db.QueryContext(ctx, seatQ, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sh.Seats = []model.Seat{}
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.Name, &s.Category, &s.PriceCents, &s.Available); err != nil {
			return nil, err
		}
		sh.Seats = append(sh.Seats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sh, nil
}

// FindRoom returns a room by id.
func (r *CatalogRepo) FindRoom(ctx context.Context, id uint64) (*model.Room, error) {
	const q = `SELECT id, name, price_cents FROM rooms WHERE id = ?`
	var room model.Room
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&room.ID, &room.Name, &room.PriceCents); err != nil {
		return nil, notFound(err)
	}
	return &room, nil
}

// FindMovie returns a movie by id.  Genres are stored comma separated.
func (r *CatalogRepo) FindMovie(ctx context.Context, id uint64) (*model.Movie, error) {
	const q = `SELECT id, title, genres, duration_min FROM movies WHERE id = ?`
	var m model.Movie
	var genres string
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.Title, &genres, &m.DurationMin); err != nil {
		return nil, notFound(err)
	}
	m.Genres = []string{}
	for _, g := range strings.Split(genres, ",") {
		if g = strings.TrimSpace(g); g != "" {
			m.Genres = append(m.Genres, g)
		}
	}
	return &m, nil
}

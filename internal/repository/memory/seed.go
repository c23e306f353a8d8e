package memory

import (
	"fmt"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// SeedDemo fills s with a small catalog for local runs without MySQL: two
// movies in two rooms, four showings starting the day after now, each with
// a 5x8 seat grid whose back row is VIP, and a 10% membership card for
// user 1.
func (s *Store) SeedDemo(now time.Time) {
	s.AddMovie(model.Movie{ID: 1, Title: "Arrival", Genres: []string{"Drama", "Sci-Fi"}, DurationMin: 116})
	s.AddMovie(model.Movie{ID: 2, Title: "Paddington 2", Genres: []string{"Comedy", "Family"}, DurationMin: 103})
	s.AddRoom(model.Room{ID: 1, Name: "Sala 1", PriceCents: 500})
	s.AddRoom(model.Room{ID: 2, Name: "Sala 2", PriceCents: 300})

	day := now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	id := uint64(0)
	for _, movieID := range []uint64{1, 2} {
		for _, hour := range []int{18, 21} {
			id++
			s.AddShowing(model.Showing{
				ID:       id,
				MovieID:  movieID,
				RoomID:   movieID,
				StartsAt: day.Add(time.Duration(hour) * time.Hour),
				Seats:    demoSeats(5, 8),
			})
		}
	}
	s.AddCard(model.Card{
		ID: 1, UserID: 1, Name: "Club", DiscountPercent: 10,
		IssuedAt: now, ValidUntil: now.AddDate(1, 0, 0),
	})
}

func demoSeats(rows, cols int) []model.Seat {
	seats := make([]model.Seat, 0, rows*cols)
	for r := 0; r < rows; r++ {
		cat, price := model.SeatRegular, int64(800)
		if r == rows-1 {
			cat, price = model.SeatVIP, 1200
		}
		for c := 1; c <= cols; c++ {
			seats = append(seats, model.Seat{
				Name:       fmt.Sprintf("%c%d", 'A'+r, c),
				Category:   cat,
				PriceCents: price,
				Available:  true,
			})
		}
	}
	return seats
}

package model

import "time"

// Showing is a scheduled screening of a movie in a room.  Catalog
// management creates showings; the booking ledger only flips the
// availability of their seats.
//
// Fields:
//  ID       – primary key identifier.
//  MovieID  – movie being screened.
//  RoomID   – room in which the screening takes place.
//  StartsAt – scheduled date and time (UTC).
//  Seats    – ordered seat list of the showing.
type Showing struct {
    ID       uint64    `json:"id"`        // showings.id
    MovieID  uint64    `json:"movie_id"`  // showings.movie_id
    RoomID   uint64    `json:"room_id"`   // showings.room_id
    StartsAt time.Time `json:"starts_at"` // showings.starts_at
    Seats    []Seat    `json:"seats"`     // showing_seats rows ordered by position
}

// Seat returns the seat with the given name and whether it exists.
func (s *Showing) Seat(name string) (Seat, bool) {
    for _, st := range s.Seats {
        if st.Name == name {
            return st, true
        }
    }
    return Seat{}, false
}

// Room is the auditorium a showing runs in.  PriceCents is the base
// price added once to every booking regardless of the seat count.
type Room struct {
    ID         uint64 `json:"id"`          // rooms.id
    Name       string `json:"name"`        // rooms.name
    PriceCents int64  `json:"price_cents"` // rooms.price_cents
}

// Movie holds the catalog data printed on a ticket.
type Movie struct {
    ID          uint64   `json:"id"`           // movies.id
    Title       string   `json:"title"`        // movies.title
    Genres      []string `json:"genres"`       // movies.genres (comma separated in storage)
    DurationMin int      `json:"duration_min"` // movies.duration_min
}

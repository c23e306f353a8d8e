package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type seatMapResponse struct {
	ShowingID uint64       `json:"showing_id"`
	MovieID   uint64       `json:"movie_id"`
	RoomID    uint64       `json:"room_id"`
	StartsAt  string       `json:"starts_at"`
	Seats     []model.Seat `json:"seats"`
}

// SeatMap handles GET /v1/showings/:id/seats.  It lists every seat of the
// showing with its category, price and availability.  ?available=true
// keeps only bookable seats.
func (h *BookingHandler) SeatMap(c echo.Context) error {
	showingID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "showing")
	}
	sh, err := h.ledger.SeatMap(c.Request().Context(), showingID)
	if err != nil {
		return fail(c, err)
	}
	seats := sh.Seats
	if strings.EqualFold(c.QueryParam("available"), "true") {
		seats = make([]model.Seat, 0, len(sh.Seats))
		for _, s := range sh.Seats {
			if s.Available {
				seats = append(seats, s)
			}
		}
	}
	return c.JSON(http.StatusOK, seatMapResponse{
		ShowingID: sh.ID,
		MovieID:   sh.MovieID,
		RoomID:    sh.RoomID,
		StartsAt:  sh.StartsAt.UTC().Format("2006-01-02T15:04:05Z"),
		Seats:     seats,
	})
}

// CheckAvailability handles GET /v1/showings/:id/availability?seats=A1,A2.
// It never changes state.
func (h *BookingHandler) CheckAvailability(c echo.Context) error {
	showingID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "showing")
	}
	names := strings.Split(c.QueryParam("seats"), ",")
	av, err := h.ledger.CheckAvailability(c.Request().Context(), showingID, names)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, av)
}

// ListShowingReservations handles GET /v1/showings/:id/reservations for
// owners.
func (h *BookingHandler) ListShowingReservations(c echo.Context) error {
	showingID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "showing")
	}
	items, err := h.ledger.ListShowingReservations(c.Request().Context(), showingID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

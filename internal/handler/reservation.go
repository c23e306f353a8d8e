package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/booking"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type createReservationRequest struct {
	Seats []string `json:"seats" validate:"required,min=1,max=20,dive,required,max=16"`
	Mode  string   `json:"mode" validate:"required,oneof=purchase reserve"`
}

// CreateReservation handles POST /v1/showings/:id/reservations.  The body
// names the seats and the mode: "purchase" starts a pending reservation,
// "reserve" a reserved one.  Seats that are taken or unknown yield 409 with
// the offending names.
func (h *BookingHandler) CreateReservation(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	showingID, ok := pathID(c, "id")
	if !ok {
		return badID(c, "showing")
	}
	var req createReservationRequest
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	r, err := h.ledger.CreateReservation(c.Request().Context(), booking.CreateRequest{
		UserID:    userID,
		ShowingID: showingID,
		Seats:     req.Seats,
		Mode:      model.ReservationMode(req.Mode),
	})
	if err != nil {
		return fail(c, err)
	}
	h.seatsChanged(c, showingID)
	return c.JSON(http.StatusCreated, r)
}

// ListReservations handles GET /v1/my-reservations.
func (h *BookingHandler) ListReservations(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	items, err := h.ledger.ListReservations(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// GetReservation handles GET /v1/reservations/:id.
func (h *BookingHandler) GetReservation(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "reservation")
	}
	r, err := h.ledger.GetReservation(c.Request().Context(), userID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// HoldReservation handles POST /v1/reservations/:id/hold, moving a pending
// reservation to reserved.
func (h *BookingHandler) HoldReservation(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "reservation")
	}
	r, err := h.ledger.HoldReservation(c.Request().Context(), userID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// CancelReservation handles DELETE /v1/reservations/:id.  Only pending or
// reserved reservations without a payment can be cancelled.
func (h *BookingHandler) CancelReservation(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "reservation")
	}
	r, err := h.ledger.CancelReservation(c.Request().Context(), userID, id)
	if err != nil {
		return fail(c, err)
	}
	h.seatsChanged(c, r.ShowingID)
	return c.JSON(http.StatusOK, r)
}

// Quote handles GET /v1/reservations/:id/quote.
func (h *BookingHandler) Quote(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "reservation")
	}
	q, err := h.ledger.Quote(c.Request().Context(), userID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/booking"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type initiatePaymentRequest struct {
	Method string `json:"payment_method" validate:"omitempty,oneof=credit_card debit_card paypal"`
}

type paymentStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Method string `json:"payment_method" validate:"omitempty,oneof=credit_card debit_card paypal"`
}

// InitiatePayment handles POST /v1/reservations/:id/payments.  The body is
// optional; without a method the configured default is used.
func (h *BookingHandler) InitiatePayment(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "reservation")
	}
	var req initiatePaymentRequest
	if c.Request().ContentLength != 0 {
		if ok, err := bindValid(c, &req); !ok {
			return err
		}
	}
	p, err := h.ledger.InitiatePayment(c.Request().Context(), booking.InitiateRequest{
		UserID:        userID,
		ReservationID: id,
		Method:        model.PaymentMethod(req.Method),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// UpdatePaymentStatus handles PUT /v1/payments/:id/status, the provider
// callback.  Repeating the current status is harmless and returns the
// current state.
func (h *BookingHandler) UpdatePaymentStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "payment")
	}
	var req paymentStatusRequest
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	res, err := h.ledger.UpdatePaymentStatus(c.Request().Context(), booking.StatusUpdate{
		PaymentID: id,
		Status:    model.PaymentStatus(req.Status),
		Method:    model.PaymentMethod(req.Method),
	})
	if err != nil {
		return fail(c, err)
	}
	if !res.Reservation.Status.HoldsSeats() {
		h.seatsChanged(c, res.Reservation.ShowingID)
	}
	return c.JSON(http.StatusOK, res)
}

// GetConfirmation handles GET /v1/payments/:id/confirmation and returns
// the ticket of an accepted payment.
func (h *BookingHandler) GetConfirmation(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badID(c, "payment")
	}
	t, err := h.ledger.GetConfirmation(c.Request().Context(), userID, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

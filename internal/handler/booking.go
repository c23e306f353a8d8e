package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/booking"
	"github.com/iliyamo/cinema-ticketing/internal/logging"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Ledger is the part of the booking ledger the HTTP layer drives.
type Ledger interface {
	CheckAvailability(ctx context.Context, showingID uint64, names []string) (booking.Availability, error)
	SeatMap(ctx context.Context, showingID uint64) (*model.Showing, error)
	CreateReservation(ctx context.Context, req booking.CreateRequest) (*model.Reservation, error)
	HoldReservation(ctx context.Context, userID, reservationID uint64) (*model.Reservation, error)
	CancelReservation(ctx context.Context, userID, reservationID uint64) (*model.Reservation, error)
	GetReservation(ctx context.Context, userID, reservationID uint64) (*model.Reservation, error)
	ListReservations(ctx context.Context, userID uint64) ([]model.Reservation, error)
	ListShowingReservations(ctx context.Context, showingID uint64) ([]model.Reservation, error)
	Quote(ctx context.Context, userID, reservationID uint64) (booking.Quote, error)
	InitiatePayment(ctx context.Context, req booking.InitiateRequest) (*model.Payment, error)
	UpdatePaymentStatus(ctx context.Context, upd booking.StatusUpdate) (*booking.PaymentResult, error)
	GetConfirmation(ctx context.Context, userID, paymentID uint64) (*model.Ticket, error)
}

// SeatMapCache drops cached seat maps once seats change.
type SeatMapCache interface {
	Invalidate(ctx context.Context, path string) error
}

// BookingHandler exposes the booking ledger over HTTP.  All customer
// methods assume JWTAuth and RequireRole ran before them.
type BookingHandler struct {
	ledger Ledger
	cache  SeatMapCache
}

// NewBookingHandler returns a handler for ledger.  cache may be nil.
func NewBookingHandler(ledger Ledger, cache SeatMapCache) *BookingHandler {
	if ledger == nil {
		panic("nil ledger passed to NewBookingHandler")
	}
	return &BookingHandler{ledger: ledger, cache: cache}
}

// SeatMapPath is the public seat map route of a showing.
func SeatMapPath(showingID uint64) string {
	return fmt.Sprintf("/v1/showings/%d/seats", showingID)
}

// seatsChanged invalidates the cached seat map of a showing.  Failures only
// leave a stale entry until its TTL runs out.
func (h *BookingHandler) seatsChanged(c echo.Context, showingID uint64) {
	if h.cache == nil {
		return
	}
	ctx := c.Request().Context()
	if err := h.cache.Invalidate(ctx, SeatMapPath(showingID)); err != nil {
		logFor(c).WithError(err).WithField("showing_id", showingID).Warn("seat map cache invalidation failed")
	}
}

func logFor(c echo.Context) *logrus.Entry {
	return logging.FromContext(c.Request().Context())
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func badID(c echo.Context, what string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + what + " id"})
}

// bindValid binds the request body into dst and validates it.  On failure
// it writes the 400 itself and reports false.
func bindValid(c echo.Context, dst any) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "details": validationDetails(err)})
	}
	return true, nil
}

// fail writes the response for a ledger error.
func fail(c echo.Context, err error) error {
	switch booking.KindOf(err) {
	case booking.KindNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case booking.KindConflict:
		var se *booking.SeatError
		if errors.As(err, &se) {
			return c.JSON(http.StatusConflict, echo.Map{"error": se.Err.Error(), "seats": se.Seats})
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case booking.KindInvalidInput:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	// already logged by the ledger with its ids
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

package router

// This file registers the routes of non-customer roles: owners reviewing
// the reservations of a showing and the payment provider reporting payment
// outcomes.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
)

// RegisterOwnerReservations registers the OWNER routes under /v1.
func RegisterOwnerReservations(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleOwner),
	)
	g.GET("/showings/:id/reservations", h.ListShowingReservations)
}

// RegisterPayments registers the provider callback.  It requires a JWT
// carrying the PAYMENTS role.
func RegisterPayments(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1/payments",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RolePayments),
	)
	g.PUT("/:id/status", h.UpdatePaymentStatus)
}

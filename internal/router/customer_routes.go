package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.  All routes
// require a valid JWT and the CUSTOMER role.  limiter guards the endpoints
// that lock seats or open payments; a nil limiter leaves them unlimited.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter *middleware.RateLimiter) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleCustomer),
	)
	g.POST("/showings/:id/reservations", h.CreateReservation, limiter.PerShowing(), limiter.PerUser("booking"))
	g.GET("/my-reservations", h.ListReservations)
	g.GET("/reservations/:id", h.GetReservation)
	g.GET("/reservations/:id/quote", h.Quote)
	g.POST("/reservations/:id/hold", h.HoldReservation)
	g.DELETE("/reservations/:id", h.CancelReservation)
	g.POST("/reservations/:id/payments", h.InitiatePayment, limiter.PerUser("payment"))
	g.GET("/payments/:id/confirmation", h.GetConfirmation)
}

package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/middleware"
)

// RegisterRoutes installs the validator and request logging on e and
// registers the routes that need no authentication: the health check.
// db may be nil when no database backs the service.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.Validator = handler.NewRequestValidator()
	e.Use(middleware.RequestLogger())
	e.GET("/healthz", handler.Health(db))
}

// RegisterPublic registers the guest endpoints.  Seat maps are served
// through the response cache.
func RegisterPublic(e *echo.Echo, h *handler.BookingHandler, cache *middleware.ResponseCache) {
	e.GET("/v1/showings/:id/seats", h.SeatMap, cache.Middleware())
	e.GET("/v1/showings/:id/availability", h.CheckAvailability)
}

package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/logging"
)

// CorrelationHeader carries the id that ties a request to its log lines and
// the events it publishes.
const CorrelationHeader = "X-Correlation-ID"

// RequestLogger seeds a correlation id (from CorrelationHeader or a new
// uuid), stores a logrus entry carrying it in the request context and logs
// one line per request.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(CorrelationHeader)
			if id == "" {
				id = uuid.NewString()
			}
			entry := logrus.WithField(logging.CorrelationIDField, id)
			ctx := logging.ContextWithCorrelationID(req.Context(), id)
			c.SetRequest(req.WithContext(logging.ToContext(ctx, entry)))
			c.Response().Header().Set(CorrelationHeader, id)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := logrus.Fields{
				"method":     req.Method,
				"path":       c.Path(),
				"status":     c.Response().Status,
				"latency_ms": time.Since(start).Milliseconds(),
			}
			if uid, ok := UserID(c); ok {
				fields["user_id"] = uid
			}
			switch status := c.Response().Status; {
			case status >= 500:
				entry.WithFields(fields).WithError(err).Error("request failed")
			default:
				entry.WithFields(fields).Info("request")
			}
			return nil
		}
	}
}

// Package middleware provides echo middleware for the relay HTTP adapter.
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bnema/imagerelay/internal/logging"
)

// RequestLogger logs every request once it has been handled and attaches a
// request-scoped logger to the request context for downstream layers.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			res := c.Response()

			// Reuse the caller's X-Request-ID for tracing across hops.
			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			res.Header().Set(echo.HeaderXRequestID, requestID)

			reqLog := log.With().
				Str(logging.FieldRequestID, requestID).
				Logger()
			c.SetRequest(req.WithContext(logging.WithLogger(req.Context(), reqLog)))

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is known.
				c.Error(err)
			}

			event := reqLog.Info()
			if res.Status >= http.StatusInternalServerError {
				event = reqLog.Error()
			} else if res.Status >= http.StatusBadRequest {
				event = reqLog.Warn()
			}

			event.
				Str(logging.FieldLayer, "adapter").
				Str(logging.FieldAdapter, "http").
				Str(logging.FieldMethod, req.Method).
				Str(logging.FieldPath, req.URL.Path).
				Str("query", req.URL.RawQuery).
				Str(logging.FieldClientIP, c.RealIP()).
				Str("user_agent", req.UserAgent()).
				Int(logging.FieldStatus, res.Status).
				Int64("bytes", res.Size).
				Dur(logging.FieldDuration, time.Since(start)).
				Err(err).
				Msg("HTTP request")

			return nil
		}
	}
}

// PanicRecovery turns a panic in a handler into a 500 response.
func PanicRecovery(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					if r == http.ErrAbortHandler {
						panic(r)
					}
					log.Error().
						Str(logging.FieldLayer, "adapter").
						Str(logging.FieldAdapter, "http").
						Interface("panic", r).
						Str(logging.FieldMethod, c.Request().Method).
						Str(logging.FieldPath, c.Request().URL.Path).
						Msg("panic recovered")

					err = echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error").
						SetInternal(fmt.Errorf("panic: %v", r))
				}
			}()

			return next(c)
		}
	}
}

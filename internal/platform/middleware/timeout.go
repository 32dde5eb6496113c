package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dental/dental/internal/platform/apperr"
)

// RequestTimeout puts a deadline on the request context. Repositories pass
// that context to the database, so a slow query is cancelled and the
// request fails with 504.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 {
				return next(c)
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Response().Committed {
				return echo.NewHTTPError(http.StatusGatewayTimeout, apperr.Body{
					Kind:    apperr.KindInternal,
					Message: "request processing exceeded the allowed time limit",
				})
			}
			return err
		}
	}
}

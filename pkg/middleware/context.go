package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pioneerpictures/clover/pkg/context"
)

// HeaderActor identifies the reviewer or service account making the call.
const HeaderActor = "X-Actor"

// Context stamps every request with a request ID and the acting principal
// before the handlers run.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := context.SetRequestID(req.Context(), requestID)
			ctx = context.SetActor(ctx, req.Header.Get(HeaderActor))

			c.Response().Header().Set(echo.HeaderXRequestID, requestID)
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}

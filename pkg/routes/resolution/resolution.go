package resolution

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/resolve"
)

// Register registers ad-hoc resolution routes
func Register(g *echo.Group) {
	g.POST("", PreviewResolution)
}

// PreviewResolution scores a single record against the registry and returns
// the classification without persisting anything. Useful for coordinators
// checking a name before submitting a full batch.
func PreviewResolution(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CrewRecordMessage
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	ctx, runner, err := ectoinject.GetContext[*resolve.Runner](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	outcome, err := runner.Preview(ctx, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, outcome)
}

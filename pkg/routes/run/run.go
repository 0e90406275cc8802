package run

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	runrepo "github.com/pioneerpictures/clover/internal/repositories/run"
	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/resolve"
)

const defaultListLimit = 20

// Register registers resolution run routes
func Register(g *echo.Group) {
	g.GET("", ListRuns)
	g.GET("/:id", GetRun)
	g.POST("", CreateRun)
}

// ListRuns lists resolution runs, newest first
func ListRuns(c echo.Context) error {
	ctx := c.Request().Context()

	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	ctx, repo, err := ectoinject.GetContext[*runrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	runs, err := repo.List(ctx, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, runs)
}

// GetRun gets a run with its per-record resolutions
func GetRun(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*runrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resolutionRun, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	resolutions, err := repo.ListResolutions(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.RunSummary{
		Run:         *resolutionRun,
		Resolutions: resolutions,
	})
}

// CreateRun executes a resolution run over the submitted batch of records
func CreateRun(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateRunRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	for _, record := range req.Records {
		if record.Name == "" {
			return httperror.NewHTTPError(http.StatusBadRequest, "every record requires a name")
		}
	}

	ctx, runner, err := ectoinject.GetContext[*resolve.Runner](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	resolutionRun, err := runner.Execute(ctx, req.Records)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, resolutionRun)
}

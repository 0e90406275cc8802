package reviewqueue

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	reviewrepo "github.com/pioneerpictures/clover/internal/repositories/reviewqueue"
	"github.com/pioneerpictures/clover/pkg/context"
	"github.com/pioneerpictures/clover/pkg/events"
	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/review"
)

const defaultListLimit = 50

// Register registers review queue routes
func Register(g *echo.Group) {
	g.GET("", ListPendingItems)
	g.GET("/:id", GetItem)
	g.POST("/:id/approve", ApproveItem)
	g.POST("/:id/reject", RejectItem)
	g.POST("/:id/promote", PromoteItem)
}

// ListPendingItems lists pending review items, oldest first
func ListPendingItems(c echo.Context) error {
	ctx := c.Request().Context()

	kind := models.ReviewKind(c.QueryParam("kind"))
	if kind != "" && kind != models.ReviewKindPossible && kind != models.ReviewKindNewIdentity {
		return httperror.NewHTTPError(http.StatusBadRequest, "kind must be possible or new_identity")
	}

	limit := defaultListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return httperror.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	ctx, repo, err := ectoinject.GetContext[*reviewrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	items, err := repo.ListPending(ctx, kind, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, items)
}

// GetItem gets a review item by ID
func GetItem(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*reviewrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	item, err := repo.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, item)
}

// ApproveItem binds a possible-match record to the reviewer's chosen GCMID.
// The identity absorbs the record's name spelling and contacts.
func ApproveItem(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	var req models.ReviewDecisionRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.GCMID == nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "gcmid is required to approve a match")
	}

	ctx, service, err := ectoinject.GetContext[*review.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	record, err := service.Approve(ctx, id, *req.GCMID, context.GetActor(ctx))
	if err != nil {
		return err
	}

	// Downstream consumers heard record.review for this record; publish the
	// corrected verdict so they can bind it.
	if ctx, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil {
		outcome := models.Resolution{
			RunID:          record.RunID,
			RecordID:       record.ID,
			Classification: models.ClassificationConfirmed,
			GCMID:          req.GCMID,
		}
		if err := emitter.EmitResolution(ctx, *record, outcome); err != nil {
			if ctx, logger, logErr := ectoinject.GetContext[ectologger.Logger](ctx); logErr == nil {
				logger.WithContext(ctx).WithError(err).Warn("Failed to emit approval event")
			}
		}
	}

	return c.NoContent(http.StatusNoContent)
}

// RejectItem dismisses a review item without touching the registry
func RejectItem(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	ctx, service, err := ectoinject.GetContext[*review.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := service.Reject(ctx, id, context.GetActor(ctx)); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// PromoteItem enrolls a new-identity record as a fresh registry member
func PromoteItem(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")

	ctx, service, err := ectoinject.GetContext[*review.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := service.Promote(ctx, id, context.GetActor(ctx))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

package identity

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	identityrepo "github.com/pioneerpictures/clover/internal/repositories/identity"
	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/registry"
)

// Register registers identity routes
func Register(g *echo.Group) {
	g.GET("", ListIdentities)
	g.GET("/:gcmid", GetIdentity)
	g.POST("", CreateIdentity)
	g.PUT("/:gcmid", UpdateIdentity)
}

// ListIdentities lists every identity in the registry
func ListIdentities(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, repo, err := ectoinject.GetContext[*identityrepo.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	identities, err := repo.List(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, identities)
}

// GetIdentity gets an identity by GCMID, with its name variants and contacts
func GetIdentity(c echo.Context) error {
	ctx := c.Request().Context()

	gcmid, err := strconv.ParseInt(c.Param("gcmid"), 10, 64)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "gcmid must be an integer")
	}

	ctx, builder, err := ectoinject.GetContext[*registry.Builder](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	identity, err := builder.GetIdentity(ctx, gcmid)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, identity)
}

// CreateIdentity enrolls a new crew member into the registry
func CreateIdentity(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateIdentityRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.LastName == "" || req.FirstName == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "last_name and first_name are required")
	}

	ctx, builder, err := ectoinject.GetContext[*registry.Builder](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := builder.Enroll(ctx, req)
	if err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{"gcmid": created.GCMID}).Info("Enrolled identity")
	}

	return c.JSON(http.StatusCreated, created)
}

// UpdateIdentity enriches an existing identity with new attributes, contacts
// or a name alias
func UpdateIdentity(c echo.Context) error {
	ctx := c.Request().Context()

	gcmid, err := strconv.ParseInt(c.Param("gcmid"), 10, 64)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "gcmid must be an integer")
	}

	var req models.UpdateIdentityRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, builder, err := ectoinject.GetContext[*registry.Builder](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := builder.Enrich(ctx, gcmid, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

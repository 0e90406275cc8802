package identity

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/pioneerpictures/clover/pkg/database"
	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/tracing"
)

// Repository handles identity and name variant persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new identity repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new identity and returns it with its assigned GCMID
func (r *Repository) Create(ctx context.Context, identity models.Identity) (*models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "identity.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":    "Create",
		"last_name": identity.LastName,
	})

	now := time.Now().UTC()
	identity.CreatedAt = now
	identity.UpdatedAt = now

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("identities")
	sb.Cols("last_name", "first_name", "nickname", "title", "department", "created_at", "updated_at", "promoted_at")
	sb.Values(identity.LastName, identity.FirstName, identity.Nickname, identity.Title, identity.Department, identity.CreatedAt, identity.UpdatedAt, identity.PromotedAt)

	query, args := sb.Build()
	query += " RETURNING gcmid"

	if err := r.db.GetContext(ctx, &identity.GCMID, query, args...); err != nil {
		log.WithError(err).Error("Failed to create identity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create identity")
	}

	log.WithFields(map[string]any{"gcmid": identity.GCMID}).Info("Created identity")
	return &identity, nil
}

// Get fetches an identity by GCMID, including its name variants
func (r *Repository) Get(ctx context.Context, gcmid int64) (*models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "identity.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("gcmid", "last_name", "first_name", "nickname", "title", "department", "created_at", "updated_at", "promoted_at")
	sb.From("identities")
	sb.Where(sb.Equal("gcmid", gcmid))

	query, args := sb.Build()
	var identity models.Identity
	if err := r.db.GetContext(ctx, &identity, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "identity not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get identity")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get identity")
	}

	variants, err := r.ListVariants(ctx, gcmid)
	if err != nil {
		return nil, err
	}
	for _, variant := range variants {
		identity.NameVariants = append(identity.NameVariants, variant.Name)
	}

	return &identity, nil
}

// List returns every identity in the registry ordered by GCMID
func (r *Repository) List(ctx context.Context) ([]models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "identity.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("gcmid", "last_name", "first_name", "nickname", "title", "department", "created_at", "updated_at", "promoted_at")
	sb.From("identities")
	sb.OrderBy("gcmid")

	query, args := sb.Build()
	var identities []models.Identity
	if err := r.db.SelectContext(ctx, &identities, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list identities")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list identities")
	}

	return identities, nil
}

// Update enriches an identity's attributes. Empty values never clobber
// existing data.
func (r *Repository) Update(ctx context.Context, identity *models.Identity) error {
	ctx, span := tracing.StartSpan(ctx, "identity.Repository.Update")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "Update",
		"gcmid":  identity.GCMID,
	})

	identity.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("identities")
	assignments := []string{
		ub.Assign("updated_at", identity.UpdatedAt),
	}
	if identity.Nickname != "" {
		assignments = append(assignments, ub.Assign("nickname", identity.Nickname))
	}
	if identity.Title != "" {
		assignments = append(assignments, ub.Assign("title", identity.Title))
	}
	if identity.Department != "" {
		assignments = append(assignments, ub.Assign("department", identity.Department))
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal("gcmid", identity.GCMID))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to update identity")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update identity")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "identity not found")
	}

	log.Debug("Updated identity")
	return nil
}

// AddVariant records an observed full-name spelling for an identity. Known
// spellings are ignored.
func (r *Repository) AddVariant(ctx context.Context, variant models.NameVariant) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "identity.Repository.AddVariant")
	defer span.End()

	variant.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("name_variants")
	sb.Cols("gcmid", "name", "origin", "created_at")
	sb.Values(variant.GCMID, variant.Name, variant.Origin, variant.CreatedAt)

	query, args := sb.Build()
	query += " ON CONFLICT (gcmid, name) DO NOTHING"

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to add name variant")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to add name variant")
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ListVariants returns every observed name spelling for an identity
func (r *Repository) ListVariants(ctx context.Context, gcmid int64) ([]models.NameVariant, error) {
	ctx, span := tracing.StartSpan(ctx, "identity.Repository.ListVariants")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("gcmid", "name", "origin", "created_at")
	sb.From("name_variants")
	sb.Where(sb.Equal("gcmid", gcmid))
	sb.OrderBy("created_at")

	query, args := sb.Build()
	var variants []models.NameVariant
	if err := r.db.SelectContext(ctx, &variants, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list name variants")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list name variants")
	}

	return variants, nil
}

// ListAllVariants returns the full (gcmid, name) relation for snapshot loads
func (r *Repository) ListAllVariants(ctx context.Context) ([]models.NameVariant, error) {
	ctx, span := tracing.StartSpan(ctx, "identity.Repository.ListAllVariants")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("gcmid", "name", "origin", "created_at")
	sb.From("name_variants")
	sb.OrderBy("gcmid", "created_at")

	query, args := sb.Build()
	var variants []models.NameVariant
	if err := r.db.SelectContext(ctx, &variants, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list name variants")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list name variants")
	}

	return variants, nil
}

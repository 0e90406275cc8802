package contact

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/pioneerpictures/clover/pkg/database"
	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/tracing"
)

// Repository handles canonical email and phone persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new contact repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Add associates a canonical contact value with an identity. Duplicate
// values are ignored.
func (r *Repository) Add(ctx context.Context, contact models.Contact) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Add")
	defer span.End()

	contact.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("contacts")
	sb.Cols("gcmid", "kind", "value", "created_at")
	sb.Values(contact.GCMID, contact.Kind, contact.Value, contact.CreatedAt)

	query, args := sb.Build()
	query += " ON CONFLICT (gcmid, kind, value) DO NOTHING"

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"gcmid": contact.GCMID,
			"kind":  contact.Kind,
		}).Error("Failed to add contact")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to add contact")
	}

	return nil
}

// List returns the contacts of one kind for an identity
func (r *Repository) List(ctx context.Context, gcmid int64, kind models.ContactKind) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("value")
	sb.From("contacts")
	sb.Where(
		sb.Equal("gcmid", gcmid),
		sb.Equal("kind", kind),
	)
	sb.OrderBy("created_at")

	query, args := sb.Build()
	var values []string
	if err := r.db.SelectContext(ctx, &values, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list contacts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list contacts")
	}

	return values, nil
}

// ListAll returns the full contact relation for snapshot loads
func (r *Repository) ListAll(ctx context.Context) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.ListAll")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("gcmid", "kind", "value", "created_at")
	sb.From("contacts")
	sb.OrderBy("gcmid", "kind", "value")

	query, args := sb.Build()
	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list contacts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list contacts")
	}

	return contacts, nil
}

package nametoken

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/pioneerpictures/clover/pkg/database"
	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/tracing"
)

// Repository handles the (gcmid, token) relation behind the token index
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new name token repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Replace regenerates the token set for one identity. The old rows are
// deleted and the new set inserted in a single transaction so the index is
// never half rebuilt.
func (r *Repository) Replace(ctx context.Context, gcmid int64, tokens []string) error {
	ctx, span := tracing.StartSpan(ctx, "nametoken.Repository.Replace")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "Replace",
		"gcmid":  gcmid,
		"tokens": len(tokens),
	})

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("name_tokens")
	db.Where(db.Equal("gcmid", gcmid))

	query, args := db.Build()
	if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
		log.WithError(err).Error("Failed to clear name tokens")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to clear name tokens")
	}

	if len(tokens) > 0 {
		sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		sb.InsertInto("name_tokens")
		sb.Cols("gcmid", "token")
		for _, token := range tokens {
			sb.Values(gcmid, token)
		}

		query, args = sb.Build()
		query += " ON CONFLICT DO NOTHING"
		if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
			log.WithError(err).Error("Failed to insert name tokens")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert name tokens")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit name tokens")
	}

	log.Debug("Replaced name tokens")
	return nil
}

// ListAll returns the full token relation for snapshot loads
func (r *Repository) ListAll(ctx context.Context) ([]models.NameToken, error) {
	ctx, span := tracing.StartSpan(ctx, "nametoken.Repository.ListAll")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("gcmid", "token")
	sb.From("name_tokens")
	sb.OrderBy("gcmid", "token")

	query, args := sb.Build()
	var tokens []models.NameToken
	if err := r.db.SelectContext(ctx, &tokens, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list name tokens")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list name tokens")
	}

	return tokens, nil
}

// List returns the tokens indexed for one identity
func (r *Repository) List(ctx context.Context, gcmid int64) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "nametoken.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("token")
	sb.From("name_tokens")
	sb.Where(sb.Equal("gcmid", gcmid))
	sb.OrderBy("token")

	query, args := sb.Build()
	var tokens []string
	if err := r.db.SelectContext(ctx, &tokens, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list name tokens")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list name tokens")
	}

	return tokens, nil
}

package reviewqueue

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/pioneerpictures/clover/pkg/database"
	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/tracing"
)

// Repository handles the human review queues: possible matches awaiting
// adjudication and new-identity candidates awaiting enrollment.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new review queue repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type reviewItemRow struct {
	ID         string                                  `db:"id"`
	RunID      string                                  `db:"run_id"`
	RecordID   string                                  `db:"record_id"`
	Kind       models.ReviewKind                       `db:"kind"`
	Name       string                                  `db:"name"`
	Email      string                                  `db:"email"`
	Phone      string                                  `db:"phone"`
	Department string                                  `db:"department"`
	Candidates database.JSONB[[]models.MatchCandidate] `db:"candidates"`
	Status     models.ReviewStatus                     `db:"status"`
	DecidedBy  string                                  `db:"decided_by"`
	DecidedAt  *time.Time                              `db:"decided_at"`
	CreatedAt  time.Time                               `db:"created_at"`
}

func (row *reviewItemRow) toModel() models.ReviewItem {
	return models.ReviewItem{
		ID:         row.ID,
		RunID:      row.RunID,
		RecordID:   row.RecordID,
		Kind:       row.Kind,
		Name:       row.Name,
		Email:      row.Email,
		Phone:      row.Phone,
		Department: row.Department,
		Candidates: row.Candidates.Data,
		Status:     row.Status,
		DecidedBy:  row.DecidedBy,
		DecidedAt:  row.DecidedAt,
		CreatedAt:  row.CreatedAt,
	}
}

// Create queues a record for human review
func (r *Repository) Create(ctx context.Context, item models.ReviewItem) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.Create")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method": "Create",
		"run_id": item.RunID,
		"kind":   item.Kind,
	})

	item.ID = uuid.New().String()
	item.Status = models.ReviewStatusPending
	item.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("review_items")
	sb.Cols("id", "run_id", "record_id", "kind", "name", "email", "phone", "department", "candidates", "status", "created_at")
	sb.Values(item.ID, item.RunID, item.RecordID, item.Kind, item.Name, item.Email, item.Phone, item.Department,
		database.JSONB[[]models.MatchCandidate]{Data: item.Candidates}, item.Status, item.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("Failed to create review item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create review item")
	}

	log.WithFields(map[string]any{"review_item_id": item.ID}).Debug("Queued review item")
	return &item, nil
}

// Get fetches one review item by id
func (r *Repository) Get(ctx context.Context, id string) (*models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "run_id", "record_id", "kind", "name", "email", "phone", "department", "candidates", "status", "decided_by", "decided_at", "created_at")
	sb.From("review_items")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var row reviewItemRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "review item not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get review item")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get review item")
	}

	item := row.toModel()
	return &item, nil
}

// ListPending lists pending items of one kind, oldest first
func (r *Repository) ListPending(ctx context.Context, kind models.ReviewKind, limit int) ([]models.ReviewItem, error) {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.ListPending")
	defer span.End()

	if limit <= 0 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "run_id", "record_id", "kind", "name", "email", "phone", "department", "candidates", "status", "decided_by", "decided_at", "created_at")
	sb.From("review_items")
	sb.Where(sb.Equal("status", models.ReviewStatusPending))
	if kind != "" {
		sb.Where(sb.Equal("kind", kind))
	}
	sb.OrderBy("created_at").Asc()
	sb.Limit(limit)

	query, args := sb.Build()
	var rows []reviewItemRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list review items")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list review items")
	}

	items := make([]models.ReviewItem, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toModel())
	}
	return items, nil
}

// Decide marks a pending item with a reviewer decision. Already-decided
// items cannot be decided again.
func (r *Repository) Decide(ctx context.Context, id string, status models.ReviewStatus, decidedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "reviewqueue.Repository.Decide")
	defer span.End()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"method":         "Decide",
		"review_item_id": id,
		"status":         status,
	})

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("review_items")
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("decided_by", decidedBy),
		ub.Assign("decided_at", time.Now().UTC()),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("status", models.ReviewStatusPending),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to decide review item")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to decide review item")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return httperror.NewHTTPError(http.StatusConflict, "review item is not pending")
	}

	log.Info("Decided review item")
	return nil
}

package run

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

// Repository handles resolution run bookkeeping: the runs themselves, the
// records they consumed and the verdicts they produced.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new run repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create registers a new pending run
func (r *Repository) Create(ctx context.Context) (*models.ResolutionRun, error) {
	ctx, span := tracing.StartSpan(ctx, "run.Repository.Create")
	defer span.End()

	resolutionRun := models.ResolutionRun{
		ID:        uuid.New().String(),
		Status:    models.RunStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("resolution_runs")
	sb.Cols("id", "status", "created_at")
	sb.Values(resolutionRun.ID, resolutionRun.Status, resolutionRun.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create resolution run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create resolution run")
	}

	return &resolutionRun, nil
}

// Get fetches a run by id
func (r *Repository) Get(ctx context.Context, id string) (*models.ResolutionRun, error) {
	ctx, span := tracing.StartSpan(ctx, "run.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "status", "total_records", "confirmed_count", "possible_count", "new_count", "error", "started_at", "completed_at", "created_at")
	sb.From("resolution_runs")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var resolutionRun models.ResolutionRun
	if err := r.db.GetContext(ctx, &resolutionRun, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "run not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get resolution run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get resolution run")
	}

	return &resolutionRun, nil
}

// List returns recent runs, newest first
func (r *Repository) List(ctx context.Context, limit int) ([]models.ResolutionRun, error) {
	ctx, span := tracing.StartSpan(ctx, "run.Repository.List")
	defer span.End()

	if limit <= 0 {
		limit = 50
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "status", "total_records", "confirmed_count", "possible_count", "new_count", "error", "started_at", "completed_at", "created_at")
	sb.From("resolution_runs")
	sb.OrderBy("created_at").Desc()
	sb.Limit(limit)

	query, args := sb.Build()
	var runs []models.ResolutionRun
	if err := r.db.SelectContext(ctx, &runs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list resolution runs")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list resolution runs")
	}

	return runs, nil
}

// MarkRunning transitions a pending run to running
func (r *Repository) MarkRunning(ctx context.Context, id string, totalRecords int) error {
	ctx, span := tracing.StartSpan(ctx, "run.Repository.MarkRunning")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("resolution_runs")
	ub.Set(
		ub.Assign("status", models.RunStatusRunning),
		ub.Assign("total_records", totalRecords),
		ub.Assign("started_at", time.Now().UTC()),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("status", models.RunStatusPending),
	)

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark run running")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark run running")
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return httperror.NewHTTPError(http.StatusConflict, "run is not pending")
	}

	return nil
}

// MarkCompleted records the final counts for a finished run
func (r *Repository) MarkCompleted(ctx context.Context, id string, confirmed, possible, newIdentities int) error {
	ctx, span := tracing.StartSpan(ctx, "run.Repository.MarkCompleted")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("resolution_runs")
	ub.Set(
		ub.Assign("status", models.RunStatusCompleted),
		ub.Assign("confirmed_count", confirmed),
		ub.Assign("possible_count", possible),
		ub.Assign("new_count", newIdentities),
		ub.Assign("completed_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark run completed")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark run completed")
	}

	return nil
}

// MarkFailed records a run failure. Failed runs keep no partial results.
func (r *Repository) MarkFailed(ctx context.Context, id string, runErr string) error {
	ctx, span := tracing.StartSpan(ctx, "run.Repository.MarkFailed")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("resolution_runs")
	ub.Set(
		ub.Assign("status", models.RunStatusFailed),
		ub.Assign("error", runErr),
		ub.Assign("completed_at", time.Now().UTC()),
	)
	ub.Where(ub.Equal("id", id))

	query, args := ub.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark run failed")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark run failed")
	}

	return nil
}

// CreateRecords batch inserts the aligned records consumed by a run
func (r *Repository) CreateRecords(ctx context.Context, records []models.CrewRecord) error {
	ctx, span := tracing.StartSpan(ctx, "run.Repository.CreateRecords")
	defer span.End()

	if len(records) == 0 {
		return nil
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("crew_records")
	sb.Cols("id", "run_id", "origin", "source_id", "project", "name", "email", "phone", "department", "title", "payload", "created_at")
	for _, record := range records {
		sb.Values(record.ID, record.RunID, record.Origin, record.SourceID, record.Project, record.Name,
			record.Email, record.Phone, record.Department, record.Title, record.Payload, record.CreatedAt)
	}

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert crew records")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert crew records")
	}

	return nil
}

// CreateResolution persists one verdict
func (r *Repository) CreateResolution(ctx context.Context, resolution models.Resolution) error {
	ctx, span := tracing.StartSpan(ctx, "run.Repository.CreateResolution")
	defer span.End()

	resolution.ID = uuid.New().String()
	resolution.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("resolutions")
	sb.Cols("id", "run_id", "record_id", "classification", "gcmid", "candidates", "created_at")
	sb.Values(resolution.ID, resolution.RunID, resolution.RecordID, resolution.Classification, resolution.GCMID,
		database.JSONB[[]models.MatchCandidate]{Data: resolution.Candidates}, resolution.CreatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert resolution")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert resolution")
	}

	return nil
}

type resolutionRow struct {
	ID             string                                  `db:"id"`
	RunID          string                                  `db:"run_id"`
	RecordID       string                                  `db:"record_id"`
	Classification models.Classification                   `db:"classification"`
	GCMID          *int64                                  `db:"gcmid"`
	Candidates     database.JSONB[[]models.MatchCandidate] `db:"candidates"`
	CreatedAt      time.Time                               `db:"created_at"`
}

// ListResolutions returns every verdict for a run
func (r *Repository) ListResolutions(ctx context.Context, runID string) ([]models.Resolution, error) {
	ctx, span := tracing.StartSpan(ctx, "run.Repository.ListResolutions")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "run_id", "record_id", "classification", "gcmid", "candidates", "created_at")
	sb.From("resolutions")
	sb.Where(sb.Equal("run_id", runID))
	sb.OrderBy("created_at").Asc()

	query, args := sb.Build()
	var rows []resolutionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list resolutions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list resolutions")
	}

	resolutions := make([]models.Resolution, 0, len(rows))
	for _, row := range rows {
		resolutions = append(resolutions, models.Resolution{
			ID:             row.ID,
			RunID:          row.RunID,
			RecordID:       row.RecordID,
			Classification: row.Classification,
			GCMID:          row.GCMID,
			Candidates:     row.Candidates.Data,
			CreatedAt:      row.CreatedAt,
		})
	}
	return resolutions, nil
}

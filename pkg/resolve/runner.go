// Package resolve orchestrates batch resolution runs: aligning incoming
// records, scoring them against a registry snapshot and committing the
// verdicts.
package resolve

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"github.com/Gobusters/ectologger"

	appctx "github.com/pioneerpictures/clover/pkg/context"
	"github.com/pioneerpictures/clover/pkg/database"
	"github.com/pioneerpictures/clover/pkg/matching"
	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/normalize"
	"github.com/pioneerpictures/clover/pkg/registry"
	"github.com/pioneerpictures/clover/pkg/tracing"
)

// TxStarter opens the transaction a run's verdicts are committed under.
type TxStarter interface {
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error)
}

// RunStore is the run bookkeeping the runner writes through.
type RunStore interface {
	Create(ctx context.Context) (*models.ResolutionRun, error)
	Get(ctx context.Context, id string) (*models.ResolutionRun, error)
	MarkRunning(ctx context.Context, id string, totalRecords int) error
	MarkCompleted(ctx context.Context, id string, confirmed, possible, newIdentities int) error
	MarkFailed(ctx context.Context, id string, runErr string) error
	CreateRecords(ctx context.Context, records []models.CrewRecord) error
	CreateResolution(ctx context.Context, resolution models.Resolution) error
}

// ReviewStore queues records for human adjudication.
type ReviewStore interface {
	Create(ctx context.Context, item models.ReviewItem) (*models.ReviewItem, error)
}

// Enricher folds confirmed observations back into the registry after
// scoring has finished.
type Enricher interface {
	LoadSnapshot(ctx context.Context) (*registry.Snapshot, error)
	AlignRecords(runID string, messages []models.CrewRecordMessage) []models.CrewRecord
	ObserveConfirmed(ctx context.Context, gcmid int64, record models.CrewRecord) error
}

// EventSink publishes run outcomes.
type EventSink interface {
	EmitRunResolutions(ctx context.Context, records []models.CrewRecord, outcomes []models.Resolution) error
}

// Config tunes the runner.
type Config struct {
	WorkerCount        int
	ReviewQueueEnabled bool
}

// Runner executes resolution runs. Each run loads one immutable snapshot,
// scores every record against it, then commits the verdicts and enriches
// the registry in a separate phase, so scoring never observes its own
// writes.
type Runner struct {
	db      TxStarter
	engine  *matching.Engine
	builder Enricher
	runs    RunStore
	reviews ReviewStore
	events  EventSink
	logger  ectologger.Logger
	config  Config
}

func NewRunner(db TxStarter, engine *matching.Engine, builder Enricher, runs RunStore, reviews ReviewStore, events EventSink, logger ectologger.Logger, config Config) *Runner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	return &Runner{
		db:      db,
		engine:  engine,
		builder: builder,
		runs:    runs,
		reviews: reviews,
		events:  events,
		logger:  logger,
		config:  config,
	}
}

// Execute runs a full batch: align, score, classify, persist. The run either
// completes over its whole input set or is marked failed; classification
// results are only committed on success.
func (r *Runner) Execute(ctx context.Context, messages []models.CrewRecordMessage) (*models.ResolutionRun, error) {
	ctx, span := tracing.StartSpan(ctx, "resolve.Runner.Execute")
	defer span.End()

	resolutionRun, err := r.runs.Create(ctx)
	if err != nil {
		return nil, err
	}

	ctx = appctx.SetRunID(ctx, resolutionRun.ID)
	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":  resolutionRun.ID,
		"records": len(messages),
	})

	records := r.builder.AlignRecords(resolutionRun.ID, messages)
	if err := r.runs.MarkRunning(ctx, resolutionRun.ID, len(records)); err != nil {
		return nil, err
	}

	snapshot, err := r.builder.LoadSnapshot(ctx)
	if err != nil {
		log.WithError(err).Error("Run aborted: registry snapshot unavailable")
		_ = r.runs.MarkFailed(ctx, resolutionRun.ID, err.Error())
		return nil, err
	}

	outcomes := r.classifyAll(snapshot, records)

	if err := r.commit(ctx, resolutionRun.ID, records, outcomes); err != nil {
		log.WithError(err).Error("Run failed during commit")
		_ = r.runs.MarkFailed(ctx, resolutionRun.ID, err.Error())
		return nil, err
	}

	confirmed, possible, newIdentities := 0, 0, 0
	for _, outcome := range outcomes {
		switch outcome.Classification {
		case models.ClassificationConfirmed:
			confirmed++
		case models.ClassificationPossible:
			possible++
		default:
			newIdentities++
		}
	}

	if err := r.runs.MarkCompleted(ctx, resolutionRun.ID, confirmed, possible, newIdentities); err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{
		"confirmed": confirmed,
		"possible":  possible,
		"new":       newIdentities,
	}).Info("Resolution run completed")

	return r.runs.Get(ctx, resolutionRun.ID)
}

// Preview classifies one record against the current registry without
// persisting anything.
func (r *Runner) Preview(ctx context.Context, message models.CrewRecordMessage) (*matching.Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "resolve.Runner.Preview")
	defer span.End()

	snapshot, err := r.builder.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	query := matching.NewQuery(message.Name, message.Email, message.Phone, message.Department)
	outcome := r.engine.Classify(snapshot, query)
	return &outcome, nil
}

// classifyAll scores every record against the shared read-only snapshot.
// Scoring is pure, so records fan out across workers with no locking; the
// results slice is indexed per record so output order stays stable.
func (r *Runner) classifyAll(snapshot *registry.Snapshot, records []models.CrewRecord) []matching.Outcome {
	outcomes := make([]matching.Outcome, len(records))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < r.config.WorkerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				record := records[i]
				query := matching.NewQuery(record.Name, record.Email, record.Phone, record.Department)
				outcomes[i] = r.engine.Classify(snapshot, query)
			}
		}()
	}

	for i := range records {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// commit persists the run's verdicts inside one transaction: a run either
// lands whole or not at all, so a failure partway through record N never
// leaves earlier resolutions or registry writes behind.
func (r *Runner) commit(ctx context.Context, runID string, records []models.CrewRecord, outcomes []matching.Outcome) error {
	ctx, span := tracing.StartSpan(ctx, "resolve.Runner.commit")
	defer span.End()

	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := r.runs.CreateRecords(txCtx, records); err != nil {
		return err
	}

	// Several source rows can describe the same unknown person within one
	// run; only the first of each tuple is queued for enrollment.
	queuedNew := map[string]bool{}

	resolutions := make([]models.Resolution, 0, len(records))
	for i, record := range records {
		outcome := outcomes[i]

		resolution := models.Resolution{
			RunID:          runID,
			RecordID:       record.ID,
			Classification: outcome.Classification,
			GCMID:          outcome.GCMID,
			Candidates:     outcome.Candidates,
		}
		if err := r.runs.CreateResolution(txCtx, resolution); err != nil {
			return err
		}
		resolutions = append(resolutions, resolution)

		switch outcome.Classification {
		case models.ClassificationConfirmed:
			if err := r.builder.ObserveConfirmed(txCtx, *outcome.GCMID, record); err != nil {
				return err
			}
		case models.ClassificationPossible:
			if r.config.ReviewQueueEnabled {
				if err := r.queueReview(txCtx, runID, record, models.ReviewKindPossible, outcome.Candidates); err != nil {
					return err
				}
			}
		case models.ClassificationNewIdentity:
			if r.config.ReviewQueueEnabled {
				key := newIdentityKey(record)
				if !queuedNew[key] {
					queuedNew[key] = true
					if err := r.queueReview(txCtx, runID, record, models.ReviewKindNewIdentity, nil); err != nil {
						return err
					}
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if r.events != nil {
		if err := r.events.EmitRunResolutions(ctx, records, resolutions); err != nil {
			// Event emission is best effort; verdicts are already durable.
			r.logger.WithContext(ctx).WithError(err).Warn("Failed to publish run outcomes")
		}
	}

	return nil
}

// newIdentityKey collapses records describing the same unknown person onto
// one enrollment candidate per run.
func newIdentityKey(record models.CrewRecord) string {
	name := strings.Join(normalize.QueryTokens(record.Name), " ")
	return name + "|" + normalize.Department(record.Department) + "|" + normalize.Phone(record.Phone) + "|" + normalize.Email(record.Email)
}

func (r *Runner) queueReview(ctx context.Context, runID string, record models.CrewRecord, kind models.ReviewKind, candidates []models.MatchCandidate) error {
	_, err := r.reviews.Create(ctx, models.ReviewItem{
		RunID:      runID,
		RecordID:   record.ID,
		Kind:       kind,
		Name:       record.Name,
		Email:      record.Email,
		Phone:      record.Phone,
		Department: record.Department,
		Candidates: candidates,
	})
	return err
}

package resolve

import (
	"context"
	"database/sql"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pioneerpictures/clover/pkg/database"
	"github.com/pioneerpictures/clover/pkg/matching"
	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/registry"
)

type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (f *fakeTx) IsOpen() bool { return !f.committed && !f.rolledBack }

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if f.IsOpen() {
		f.rolledBack = true
	}
	return nil
}

func (f *fakeTx) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, nil
}

func (f *fakeTx) GetContext(context.Context, any, string, ...any) error { return nil }

func (f *fakeTx) SelectContext(context.Context, any, string, ...any) error { return nil }

type fakeTxSource struct {
	txs []*fakeTx
}

func (f *fakeTxSource) GetTx(ctx context.Context, _ *sql.TxOptions) (context.Context, database.Tx, error) {
	tx := &fakeTx{}
	f.txs = append(f.txs, tx)
	return ctx, tx, nil
}

type fakeRunStore struct {
	runs          map[string]*models.ResolutionRun
	records       []models.CrewRecord
	resolutions   []models.Resolution
	nextID        int
	resolutionErr error
	failResAt     int
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{runs: map[string]*models.ResolutionRun{}}
}

func (f *fakeRunStore) Create(context.Context) (*models.ResolutionRun, error) {
	f.nextID++
	run := &models.ResolutionRun{ID: string(rune('a' + f.nextID)), Status: models.RunStatusPending}
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeRunStore) Get(_ context.Context, id string) (*models.ResolutionRun, error) {
	run, ok := f.runs[id]
	if !ok {
		return nil, errors.New("run not found")
	}
	return run, nil
}

func (f *fakeRunStore) MarkRunning(_ context.Context, id string, totalRecords int) error {
	f.runs[id].Status = models.RunStatusRunning
	f.runs[id].TotalRecords = totalRecords
	return nil
}

func (f *fakeRunStore) MarkCompleted(_ context.Context, id string, confirmed, possible, newIdentities int) error {
	run := f.runs[id]
	run.Status = models.RunStatusCompleted
	run.ConfirmedCount = confirmed
	run.PossibleCount = possible
	run.NewCount = newIdentities
	return nil
}

func (f *fakeRunStore) MarkFailed(_ context.Context, id string, runErr string) error {
	f.runs[id].Status = models.RunStatusFailed
	f.runs[id].Error = runErr
	return nil
}

func (f *fakeRunStore) CreateRecords(_ context.Context, records []models.CrewRecord) error {
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeRunStore) CreateResolution(_ context.Context, resolution models.Resolution) error {
	if f.resolutionErr != nil && len(f.resolutions) == f.failResAt {
		return f.resolutionErr
	}
	f.resolutions = append(f.resolutions, resolution)
	return nil
}

type fakeReviewStore struct {
	items []models.ReviewItem
}

func (f *fakeReviewStore) Create(_ context.Context, item models.ReviewItem) (*models.ReviewItem, error) {
	f.items = append(f.items, item)
	return &item, nil
}

type fakeEnricher struct {
	snapshot    *registry.Snapshot
	snapshotErr error
	observed    []int64
}

func (f *fakeEnricher) LoadSnapshot(context.Context) (*registry.Snapshot, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return f.snapshot, nil
}

func (f *fakeEnricher) AlignRecords(runID string, messages []models.CrewRecordMessage) []models.CrewRecord {
	records := make([]models.CrewRecord, 0, len(messages))
	for i, message := range messages {
		records = append(records, models.CrewRecord{
			ID:         string(rune('r' + i)),
			RunID:      runID,
			Origin:     message.Origin,
			Name:       message.Name,
			Email:      message.Email,
			Phone:      message.Phone,
			Department: message.Department,
		})
	}
	return records
}

func (f *fakeEnricher) ObserveConfirmed(_ context.Context, gcmid int64, _ models.CrewRecord) error {
	f.observed = append(f.observed, gcmid)
	return nil
}

type fakeEventSink struct {
	emitted int
}

func (f *fakeEventSink) EmitRunResolutions(_ context.Context, _ []models.CrewRecord, outcomes []models.Resolution) error {
	f.emitted += len(outcomes)
	return nil
}

func runnerSnapshot(t *testing.T) *registry.Snapshot {
	t.Helper()
	snapshot, err := registry.NewSnapshot(registry.SnapshotInput{
		Tokens: map[int64][]string{
			100: {"kovacs", "janos"},
		},
		Emails:      map[int64][]string{100: {"janos@example.com"}},
		Phones:      map[int64][]string{100: {"36301112233"}},
		Departments: map[int64]string{100: "camera"},
		Names:       map[int64]string{100: "Kovács János"},
	})
	require.NoError(t, err)
	return snapshot
}

func newTestRunner(t *testing.T, enricher *fakeEnricher, runs *fakeRunStore, reviews *fakeReviewStore, events *fakeEventSink, cfg Config) (*Runner, *fakeTxSource) {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db := &fakeTxSource{}
	return NewRunner(db, matching.NewEngine(matching.DefaultConfig()), enricher, runs, reviews, events, logger, cfg), db
}

func TestExecuteClassifiesAndCommits(t *testing.T) {
	runs := newFakeRunStore()
	reviews := &fakeReviewStore{}
	events := &fakeEventSink{}
	enricher := &fakeEnricher{snapshot: runnerSnapshot(t)}

	runner, _ := newTestRunner(t, enricher, runs, reviews, events, Config{WorkerCount: 2, ReviewQueueEnabled: true})

	run, err := runner.Execute(context.Background(), []models.CrewRecordMessage{
		{Origin: models.RecordOriginBooking, Name: "Kovács János", Phone: "+36-30-111-2233"},
		{Origin: models.RecordOriginBooking, Name: "Kovács János"},
		{Origin: models.RecordOriginPhonebook, Name: "Teljesen Ismeretlen"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusCompleted, run.Status)
	assert.Equal(t, 3, run.TotalRecords)
	assert.Equal(t, 1, run.ConfirmedCount)
	assert.Equal(t, 1, run.PossibleCount)
	assert.Equal(t, 1, run.NewCount)

	// confirmed record enriched the registry
	assert.Equal(t, []int64{100}, enricher.observed)

	// the other two queued for review
	require.Len(t, reviews.items, 2)
	assert.Equal(t, models.ReviewKindPossible, reviews.items[0].Kind)
	assert.Equal(t, models.ReviewKindNewIdentity, reviews.items[1].Kind)

	assert.Len(t, runs.records, 3)
	assert.Len(t, runs.resolutions, 3)
	assert.Equal(t, 3, events.emitted)
}

func TestExecuteFailsWhenSnapshotUnavailable(t *testing.T) {
	runs := newFakeRunStore()
	enricher := &fakeEnricher{snapshotErr: errors.New("token relation unavailable")}

	runner, _ := newTestRunner(t, enricher, runs, &fakeReviewStore{}, &fakeEventSink{}, Config{WorkerCount: 1})

	_, err := runner.Execute(context.Background(), []models.CrewRecordMessage{
		{Origin: models.RecordOriginBooking, Name: "Kovács János"},
	})
	require.Error(t, err)

	// exactly one run exists and it is failed, not partially committed
	require.Len(t, runs.runs, 1)
	for _, run := range runs.runs {
		assert.Equal(t, models.RunStatusFailed, run.Status)
		assert.Contains(t, run.Error, "token relation unavailable")
	}
	assert.Empty(t, runs.resolutions)
}

func TestExecuteReviewQueueDisabled(t *testing.T) {
	runs := newFakeRunStore()
	reviews := &fakeReviewStore{}
	enricher := &fakeEnricher{snapshot: runnerSnapshot(t)}

	runner, _ := newTestRunner(t, enricher, runs, reviews, &fakeEventSink{}, Config{WorkerCount: 1, ReviewQueueEnabled: false})

	run, err := runner.Execute(context.Background(), []models.CrewRecordMessage{
		{Origin: models.RecordOriginBooking, Name: "Kovács János"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, run.PossibleCount)
	assert.Empty(t, reviews.items)
	assert.Len(t, runs.resolutions, 1)
}

func TestExecuteCommitsVerdictsInOneTransaction(t *testing.T) {
	runs := newFakeRunStore()
	enricher := &fakeEnricher{snapshot: runnerSnapshot(t)}

	runner, db := newTestRunner(t, enricher, runs, &fakeReviewStore{}, &fakeEventSink{}, Config{WorkerCount: 1, ReviewQueueEnabled: true})

	_, err := runner.Execute(context.Background(), []models.CrewRecordMessage{
		{Origin: models.RecordOriginBooking, Name: "Kovács János", Phone: "+36301112233"},
		{Origin: models.RecordOriginPhonebook, Name: "Teljesen Ismeretlen"},
	})
	require.NoError(t, err)

	require.Len(t, db.txs, 1)
	assert.True(t, db.txs[0].committed)
	assert.False(t, db.txs[0].rolledBack)
}

func TestExecuteRollsBackFailedCommit(t *testing.T) {
	runs := newFakeRunStore()
	runs.resolutionErr = errors.New("resolutions rejected")
	runs.failResAt = 1
	enricher := &fakeEnricher{snapshot: runnerSnapshot(t)}

	runner, db := newTestRunner(t, enricher, runs, &fakeReviewStore{}, &fakeEventSink{}, Config{WorkerCount: 1})

	_, err := runner.Execute(context.Background(), []models.CrewRecordMessage{
		{Origin: models.RecordOriginBooking, Name: "Kovács János", Phone: "+36301112233"},
		{Origin: models.RecordOriginBooking, Name: "Kovács János", Phone: "+36301112233"},
	})
	require.Error(t, err)

	// the write on the second record failed, so nothing stays committed
	require.Len(t, db.txs, 1)
	assert.True(t, db.txs[0].rolledBack)
	assert.False(t, db.txs[0].committed)

	for _, run := range runs.runs {
		assert.Equal(t, models.RunStatusFailed, run.Status)
	}
}

func TestExecuteQueuesOneEnrollmentPerPerson(t *testing.T) {
	runs := newFakeRunStore()
	reviews := &fakeReviewStore{}
	enricher := &fakeEnricher{snapshot: runnerSnapshot(t)}

	runner, _ := newTestRunner(t, enricher, runs, reviews, &fakeEventSink{}, Config{WorkerCount: 1, ReviewQueueEnabled: true})

	run, err := runner.Execute(context.Background(), []models.CrewRecordMessage{
		{Origin: models.RecordOriginBooking, Name: "Teljesen Ismeretlen", Email: "ti@example.com", Phone: "06301234567"},
		{Origin: models.RecordOriginPhonebook, Name: "Teljesen Ismeretlen", Email: "ti@example.com", Phone: "+36301234567"},
		{Origin: models.RecordOriginPhonebook, Name: "Masik Ismeretlen"},
	})
	require.NoError(t, err)

	// every record keeps its own verdict, but the same unknown person is
	// queued for enrollment once
	assert.Equal(t, 3, run.NewCount)
	assert.Len(t, runs.resolutions, 3)

	require.Len(t, reviews.items, 2)
	assert.Equal(t, "Teljesen Ismeretlen", reviews.items[0].Name)
	assert.Equal(t, "Masik Ismeretlen", reviews.items[1].Name)
}

func TestExecutePreservesRecordOrder(t *testing.T) {
	runs := newFakeRunStore()
	enricher := &fakeEnricher{snapshot: runnerSnapshot(t)}

	runner, _ := newTestRunner(t, enricher, runs, &fakeReviewStore{}, &fakeEventSink{}, Config{WorkerCount: 4, ReviewQueueEnabled: false})

	messages := []models.CrewRecordMessage{
		{Origin: models.RecordOriginBooking, Name: "Kovács János", Phone: "+36301112233"},
		{Origin: models.RecordOriginBooking, Name: "Ismeretlen Ember"},
		{Origin: models.RecordOriginBooking, Name: "Kovács János", Phone: "+36301112233"},
	}
	_, err := runner.Execute(context.Background(), messages)
	require.NoError(t, err)

	require.Len(t, runs.resolutions, 3)
	assert.Equal(t, models.ClassificationConfirmed, runs.resolutions[0].Classification)
	assert.Equal(t, models.ClassificationNewIdentity, runs.resolutions[1].Classification)
	assert.Equal(t, models.ClassificationConfirmed, runs.resolutions[2].Classification)
}

func TestPreview(t *testing.T) {
	enricher := &fakeEnricher{snapshot: runnerSnapshot(t)}
	runner, _ := newTestRunner(t, enricher, newFakeRunStore(), &fakeReviewStore{}, &fakeEventSink{}, Config{WorkerCount: 1})

	outcome, err := runner.Preview(context.Background(), models.CrewRecordMessage{
		Name:  "Kovács János",
		Phone: "06301112233",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ClassificationConfirmed, outcome.Classification)

	// nothing persisted by a preview
	enricher.snapshotErr = errors.New("gone")
	_, err = runner.Preview(context.Background(), models.CrewRecordMessage{Name: "x"})
	assert.Error(t, err)
}

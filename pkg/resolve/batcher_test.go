package resolve

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pioneerpictures/clover/pkg/models"
)

type fakeBatchRunner struct {
	batches  [][]models.CrewRecordMessage
	failures int
}

func (f *fakeBatchRunner) Execute(_ context.Context, messages []models.CrewRecordMessage) (*models.ResolutionRun, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("run failed")
	}
	f.batches = append(f.batches, messages)
	return &models.ResolutionRun{Status: models.RunStatusCompleted}, nil
}

func testBatcher(runner BatchRunner, size int) *Batcher {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewBatcher(runner, logger, size, 0)
}

func TestBatcherFlushesFullBuffer(t *testing.T) {
	runner := &fakeBatchRunner{}
	batcher := testBatcher(runner, 2)
	ctx := context.Background()

	require.NoError(t, batcher.Add(ctx, models.CrewRecordMessage{Name: "Kovács János"}))
	assert.Empty(t, runner.batches)

	require.NoError(t, batcher.Add(ctx, models.CrewRecordMessage{Name: "Szabó Anna"}))
	require.Len(t, runner.batches, 1)
	assert.Len(t, runner.batches[0], 2)
}

func TestBatcherRetainsFailedBatch(t *testing.T) {
	runner := &fakeBatchRunner{failures: 1}
	batcher := testBatcher(runner, 2)
	ctx := context.Background()

	require.NoError(t, batcher.Add(ctx, models.CrewRecordMessage{Name: "Kovács János"}))
	require.NoError(t, batcher.Add(ctx, models.CrewRecordMessage{Name: "Szabó Anna"}))

	// the failed run dropped nothing; the records are still buffered
	assert.Empty(t, runner.batches)
	assert.Len(t, batcher.pending, 2)

	// the next flush delivers the same records
	require.NoError(t, batcher.flush(ctx))
	require.Len(t, runner.batches, 1)
	assert.Equal(t, "Kovács János", runner.batches[0][0].Name)
	assert.Equal(t, "Szabó Anna", runner.batches[0][1].Name)
	assert.Empty(t, batcher.pending)
}

func TestBatcherRetainedBatchStaysInOrder(t *testing.T) {
	runner := &fakeBatchRunner{failures: 2}
	batcher := testBatcher(runner, 2)
	ctx := context.Background()

	require.NoError(t, batcher.Add(ctx, models.CrewRecordMessage{Name: "Kovács János"}))
	require.NoError(t, batcher.Add(ctx, models.CrewRecordMessage{Name: "Szabó Anna"}))
	require.NoError(t, batcher.Add(ctx, models.CrewRecordMessage{Name: "Tóth Gábor"}))

	// the retained batch sits in front of the record that arrived after it
	require.Len(t, batcher.pending, 3)
	assert.Equal(t, "Kovács János", batcher.pending[0].Name)
	assert.Equal(t, "Tóth Gábor", batcher.pending[2].Name)
}

func TestBatcherStopFlushesPending(t *testing.T) {
	runner := &fakeBatchRunner{}
	batcher := testBatcher(runner, 10)
	ctx := context.Background()

	require.NoError(t, batcher.Start(ctx))
	require.NoError(t, batcher.Add(ctx, models.CrewRecordMessage{Name: "Kovács János"}))

	require.NoError(t, batcher.Stop())
	require.Len(t, runner.batches, 1)
}

func TestBatcherStopReportsFailedFinalFlush(t *testing.T) {
	runner := &fakeBatchRunner{failures: 1}
	batcher := testBatcher(runner, 10)
	ctx := context.Background()

	require.NoError(t, batcher.Start(ctx))
	require.NoError(t, batcher.Add(ctx, models.CrewRecordMessage{Name: "Kovács János"}))

	assert.Error(t, batcher.Stop())
}

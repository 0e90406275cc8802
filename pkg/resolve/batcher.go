package resolve

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/pioneerpictures/clover/pkg/models"
)

const defaultFlushInterval = 5 * time.Second

// BatchRunner executes one resolution run over a batch of records.
type BatchRunner interface {
	Execute(ctx context.Context, messages []models.CrewRecordMessage) (*models.ResolutionRun, error)
}

// Batcher accumulates records arriving one at a time (the Kafka consumer)
// and submits them to the runner as batch runs, so streamed records get the
// same run bookkeeping as API-submitted batches. A batch whose run fails is
// put back and retried on the next flush; the consumer has already committed
// those offsets, so the buffer is the only copy.
type Batcher struct {
	runner   BatchRunner
	logger   ectologger.Logger
	size     int
	interval time.Duration

	mu      sync.Mutex
	pending []models.CrewRecordMessage

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBatcher(runner BatchRunner, logger ectologger.Logger, size int, interval time.Duration) *Batcher {
	if size <= 0 {
		size = 1
	}
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	return &Batcher{
		runner:   runner,
		logger:   logger,
		size:     size,
		interval: interval,
	}
}

// Start begins the periodic flush loop.
func (b *Batcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	b.wg.Add(1)
	go b.flushLoop(ctx)
	return nil
}

// Stop stops the loop and flushes whatever is pending. An error here means
// records are lost with the process; there is no later retry.
func (b *Batcher) Stop() error {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	return b.flush(context.Background())
}

// Add queues a record and returns nil: once buffered, the buffer is the
// record's only copy and a failed flush retains it, so the consumer can
// commit the offset. Propagating a flush error would redeliver messages the
// buffer already holds. A full buffer flushes immediately.
func (b *Batcher) Add(ctx context.Context, message models.CrewRecordMessage) error {
	b.mu.Lock()
	b.pending = append(b.pending, message)
	full := len(b.pending) >= b.size
	b.mu.Unlock()

	if full {
		_ = b.flush(ctx)
	}
	return nil
}

func (b *Batcher) flushLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = b.flush(ctx)
		}
	}
}

func (b *Batcher) flush(ctx context.Context) error {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if _, err := b.runner.Execute(ctx, batch); err != nil {
		// The failed run committed nothing; the records go back in front
		// of anything that arrived during the flush.
		b.mu.Lock()
		b.pending = append(batch, b.pending...)
		b.mu.Unlock()

		b.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"records": len(batch),
		}).Error("Batched resolution run failed; records retained for retry")
		return err
	}
	return nil
}

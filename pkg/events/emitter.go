// Package events publishes resolution outcomes for downstream consumers:
// the timesheet system picks up confirmed bindings, the back office watches
// the review queues.
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/pioneerpictures/clover/pkg/kafka"
	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/tracing"
)

// Emitter publishes resolution events to the output topic
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitResolution publishes one record's verdict
func (e *Emitter) EmitResolution(ctx context.Context, record models.CrewRecord, outcome models.Resolution) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitResolution")
	defer span.End()

	if e.producer == nil {
		return nil
	}

	event := &models.ResolutionEvent{
		RunID:          outcome.RunID,
		RecordID:       outcome.RecordID,
		Origin:         record.Origin,
		Name:           record.Name,
		Classification: outcome.Classification,
		GCMID:          outcome.GCMID,
		Candidates:     outcome.Candidates,
		Timestamp:      time.Now().UTC(),
	}

	return e.producer.PublishResolution(ctx, event)
}

// EmitRunResolutions publishes every verdict of a completed run in one batch
func (e *Emitter) EmitRunResolutions(ctx context.Context, records []models.CrewRecord, outcomes []models.Resolution) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRunResolutions")
	defer span.End()

	if e.producer == nil || len(outcomes) == 0 {
		return nil
	}

	recordsByID := make(map[string]models.CrewRecord, len(records))
	for _, record := range records {
		recordsByID[record.ID] = record
	}

	now := time.Now().UTC()
	events := make([]*models.ResolutionEvent, 0, len(outcomes))
	for _, outcome := range outcomes {
		record := recordsByID[outcome.RecordID]
		events = append(events, &models.ResolutionEvent{
			RunID:          outcome.RunID,
			RecordID:       outcome.RecordID,
			Origin:         record.Origin,
			Name:           record.Name,
			Classification: outcome.Classification,
			GCMID:          outcome.GCMID,
			Candidates:     outcome.Candidates,
			Timestamp:      now,
		})
	}

	if err := e.producer.PublishResolutions(ctx, events); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit run resolutions")
		return err
	}
	return nil
}

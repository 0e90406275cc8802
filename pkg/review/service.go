// Package review applies reviewer decisions to queued resolution verdicts:
// approving a possible match, rejecting an item or promoting a new identity.
package review

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/pioneerpictures/clover/pkg/database"
	"github.com/pioneerpictures/clover/pkg/models"
	"github.com/pioneerpictures/clover/pkg/tracing"
)

// Store is the review queue persistence decisions are claimed through.
type Store interface {
	Get(ctx context.Context, id string) (*models.ReviewItem, error)
	Decide(ctx context.Context, id string, status models.ReviewStatus, decidedBy string) error
}

// Registry receives the adjudicated outcome.
type Registry interface {
	ObserveConfirmed(ctx context.Context, gcmid int64, record models.CrewRecord) error
	Promote(ctx context.Context, item models.ReviewItem) (*models.Identity, error)
}

// TxStarter opens the transaction a decision and its registry write share.
type TxStarter interface {
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error)
}

// Service adjudicates review items. The pending row is claimed before the
// registry is touched and both writes share one transaction, so a decision
// that loses the pending-status race never mutates the registry.
type Service struct {
	db       TxStarter
	store    Store
	registry Registry
	logger   ectologger.Logger
}

func NewService(db TxStarter, store Store, registry Registry, logger ectologger.Logger) *Service {
	return &Service{
		db:       db,
		store:    store,
		registry: registry,
		logger:   logger,
	}
}

// Approve binds a possible-match item to the reviewer's chosen GCMID. The
// identity absorbs the record's name spelling and contacts. The returned
// record carries the run and record IDs for event emission.
func (s *Service) Approve(ctx context.Context, id string, gcmid int64, actor string) (*models.CrewRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Service.Approve")
	defer span.End()

	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Kind != models.ReviewKindPossible {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "only possible-match items can be approved")
	}

	txCtx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Claim the item first; a concurrent or repeated decision fails here,
	// before any registry write.
	if err := s.store.Decide(txCtx, id, models.ReviewStatusApproved, actor); err != nil {
		return nil, err
	}

	record := recordFromItem(item)
	if err := s.registry.ObserveConfirmed(txCtx, gcmid, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"id":    id,
		"gcmid": gcmid,
	}).Info("Approved review item")

	return &record, nil
}

// Reject dismisses a pending item without touching the registry.
func (s *Service) Reject(ctx context.Context, id string, actor string) error {
	ctx, span := tracing.StartSpan(ctx, "review.Service.Reject")
	defer span.End()

	return s.store.Decide(ctx, id, models.ReviewStatusRejected, actor)
}

// Promote enrolls a new-identity item as a fresh registry member.
func (s *Service) Promote(ctx context.Context, id string, actor string) (*models.Identity, error) {
	ctx, span := tracing.StartSpan(ctx, "review.Service.Promote")
	defer span.End()

	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Kind != models.ReviewKindNewIdentity {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "only new-identity items can be promoted")
	}

	txCtx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.store.Decide(txCtx, id, models.ReviewStatusPromoted, actor); err != nil {
		return nil, err
	}

	created, err := s.registry.Promote(txCtx, *item)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"id":    id,
		"gcmid": created.GCMID,
	}).Info("Promoted review item to new identity")

	return created, nil
}

func recordFromItem(item *models.ReviewItem) models.CrewRecord {
	return models.CrewRecord{
		ID:         item.RecordID,
		RunID:      item.RunID,
		Name:       item.Name,
		Email:      item.Email,
		Phone:      item.Phone,
		Department: item.Department,
	}
}

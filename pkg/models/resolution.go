package models

import (
	"time"
)

// Classification is the one-shot outcome of scoring a record against the
// registry. The three outcomes are mutually exclusive.
type Classification string

const (
	// ClassificationConfirmed binds the record to a GCMID automatically.
	ClassificationConfirmed Classification = "confirmed"
	// ClassificationPossible routes the record to human review with a
	// bounded candidate list.
	ClassificationPossible Classification = "possible"
	// ClassificationNewIdentity routes the record to the enrollment queue;
	// nothing in the registry scored above the floor.
	ClassificationNewIdentity Classification = "new_identity"
)

// MatchCandidate is a transient scoring result for one identity. Candidates
// with FinalScore <= 0 are discarded before ranking.
type MatchCandidate struct {
	GCMID           int64   `json:"gcmid"`
	Name            string  `json:"name,omitempty"`
	NameScore       float64 `json:"name_score"`
	EmailScore      float64 `json:"email_score"`
	PhoneScore      float64 `json:"phone_score"`
	DepartmentScore float64 `json:"department_score"`
	FinalScore      float64 `json:"final_score"`
}

// Resolution is the persisted verdict for one record in one run.
type Resolution struct {
	ID             string           `json:"id" db:"id"`
	RunID          string           `json:"run_id" db:"run_id"`
	RecordID       string           `json:"record_id" db:"record_id"`
	Classification Classification   `json:"classification" db:"classification"`
	GCMID          *int64           `json:"gcmid,omitempty" db:"gcmid"`
	Candidates     []MatchCandidate `json:"candidates,omitempty" db:"-"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}

// ReviewKind distinguishes the two human queues.
type ReviewKind string

const (
	// ReviewKindPossible holds records with plausible but uncorroborated
	// candidates.
	ReviewKindPossible ReviewKind = "possible"
	// ReviewKindNewIdentity holds records that matched nothing.
	ReviewKindNewIdentity ReviewKind = "new_identity"
)

// ReviewStatus tracks adjudication of a queue item. Items never transition
// automatically; only a reviewer decision moves them.
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
	ReviewStatusPromoted ReviewStatus = "promoted"
)

// ReviewItem is one record awaiting human adjudication, with the candidate
// scores that put it there.
type ReviewItem struct {
	ID         string           `json:"id" db:"id"`
	RunID      string           `json:"run_id" db:"run_id"`
	RecordID   string           `json:"record_id" db:"record_id"`
	Kind       ReviewKind       `json:"kind" db:"kind"`
	Name       string           `json:"name" db:"name"`
	Email      string           `json:"email,omitempty" db:"email"`
	Phone      string           `json:"phone,omitempty" db:"phone"`
	Department string           `json:"department,omitempty" db:"department"`
	Candidates []MatchCandidate `json:"candidates,omitempty" db:"-"`
	Status     ReviewStatus     `json:"status" db:"status"`
	DecidedBy  string           `json:"decided_by,omitempty" db:"decided_by"`
	DecidedAt  *time.Time       `json:"decided_at,omitempty" db:"decided_at"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

// ReviewDecisionRequest resolves a pending review item. Approving a possible
// match requires the chosen GCMID; promoting a new identity takes the
// enrollment fields from the queued record.
type ReviewDecisionRequest struct {
	GCMID *int64 `json:"gcmid,omitempty"`
}

// ResolutionEvent is the Kafka payload published for every resolved record.
type ResolutionEvent struct {
	RunID          string           `json:"run_id"`
	RecordID       string           `json:"record_id"`
	Origin         RecordOrigin     `json:"origin"`
	Name           string           `json:"name"`
	Classification Classification   `json:"classification"`
	GCMID          *int64           `json:"gcmid,omitempty"`
	Candidates     []MatchCandidate `json:"candidates,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// ResolutionEventType returns the topic event name for a classification.
func ResolutionEventType(c Classification) string {
	switch c {
	case ClassificationConfirmed:
		return "record.confirmed"
	case ClassificationPossible:
		return "record.review"
	default:
		return "record.new"
	}
}

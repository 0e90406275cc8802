package models

import (
	"time"
)

// RunStatus tracks the lifecycle of a resolution run. A run either completes
// over its whole input set or fails; partial results are never committed.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ResolutionRun is one batch pass of incoming records against an immutable
// registry snapshot.
type ResolutionRun struct {
	ID             string     `json:"id" db:"id"`
	Status         RunStatus  `json:"status" db:"status"`
	TotalRecords   int        `json:"total_records" db:"total_records"`
	ConfirmedCount int        `json:"confirmed_count" db:"confirmed_count"`
	PossibleCount  int        `json:"possible_count" db:"possible_count"`
	NewCount       int        `json:"new_count" db:"new_count"`
	Error          string     `json:"error,omitempty" db:"error"`
	StartedAt      *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// CreateRunRequest submits a batch of records for resolution.
type CreateRunRequest struct {
	Records []CrewRecordMessage `json:"records" validate:"required,min=1,dive"`
}

// RunSummary is the read model returned for a completed run.
type RunSummary struct {
	Run         ResolutionRun `json:"run"`
	Resolutions []Resolution  `json:"resolutions,omitempty"`
}

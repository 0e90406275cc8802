package models

import (
	"encoding/json"
	"time"
)

// RecordOrigin identifies which upstream source produced an incoming record.
type RecordOrigin string

const (
	// RecordOriginBooking is the structured external booking API.
	RecordOriginBooking RecordOrigin = "booking"
	// RecordOriginPhonebook is the legacy phonebook spreadsheet.
	RecordOriginPhonebook RecordOrigin = "phonebook"
	// RecordOriginHistorical is the historical production archive.
	RecordOriginHistorical RecordOrigin = "historical"
)

// CrewRecord is one row from an upstream source awaiting resolution. Records
// are ephemeral per run: they are consumed by the engine and either bound to
// a GCMID or routed to a review queue.
type CrewRecord struct {
	ID         string          `json:"id" db:"id"`
	RunID      string          `json:"run_id" db:"run_id"`
	Origin     RecordOrigin    `json:"origin" db:"origin" validate:"required,oneof=booking phonebook historical"`
	SourceID   string          `json:"source_id,omitempty" db:"source_id"`
	Project    string          `json:"project,omitempty" db:"project"`
	Name       string          `json:"name" db:"name" validate:"required"`
	Email      string          `json:"email,omitempty" db:"email"`
	Phone      string          `json:"phone,omitempty" db:"phone"`
	Department string          `json:"department,omitempty" db:"department"`
	Title      string          `json:"title,omitempty" db:"title"`
	Payload    json.RawMessage `json:"payload,omitempty" db:"payload"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// JoinKey is the per-record composite key used to align the same person
// across source schemas within one project context.
func (r *CrewRecord) JoinKey() string {
	return r.SourceID + "--" + r.Project
}

// CrewRecordMessage is the Kafka payload for a record published by the
// booking pipeline.
type CrewRecordMessage struct {
	Origin     RecordOrigin    `json:"origin"`
	SourceID   string          `json:"source_id,omitempty"`
	Project    string          `json:"project,omitempty"`
	Name       string          `json:"name"`
	Email      string          `json:"email,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	Department string          `json:"department,omitempty"`
	Title      string          `json:"title,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

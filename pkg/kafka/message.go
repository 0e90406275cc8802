package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pioneerpictures/clover/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	CrewRecord *models.CrewRecordMessage
}

// ParseCrewRecord parses the message value as a crew record from the booking
// pipeline. A record without a name is rejected; there is nothing to score.
func (m *IncomingMessage) ParseCrewRecord() error {
	var record models.CrewRecordMessage
	if err := json.Unmarshal(m.Value, &record); err != nil {
		return err
	}
	if record.Name == "" {
		return fmt.Errorf("crew record message has no name")
	}
	if record.Origin == "" {
		record.Origin = models.RecordOrigin(m.Headers["origin"])
	}
	m.CrewRecord = &record
	return nil
}

// GetOrigin returns the record's source, falling back to the message header
func (m *IncomingMessage) GetOrigin() models.RecordOrigin {
	if m.CrewRecord != nil && m.CrewRecord.Origin != "" {
		return m.CrewRecord.Origin
	}
	return models.RecordOrigin(m.Headers["origin"])
}

// GetSourceID returns a unique source identifier for the record
func (m *IncomingMessage) GetSourceID() string {
	if m.CrewRecord != nil && m.CrewRecord.SourceID != "" {
		return m.CrewRecord.SourceID
	}
	return m.Key
}

package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ExportRequestMessage asks the worker to export one year's period grid.
// It carries only the year; the worker recomputes the summaries itself.
type ExportRequestMessage struct {
	Year        int       `json:"year"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewExportRequestMessage(year int) *ExportRequestMessage {
	return &ExportRequestMessage{
		Year:        year,
		RequestedAt: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportRequestMessageFromJSON decodes a message and rejects one without a year.
func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Year <= 0 {
		return nil, fmt.Errorf("export request without year")
	}
	return &msg, nil
}

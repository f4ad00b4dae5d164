// Package notify publishes data-change events so downstream dashboard
// components can refresh without polling.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/runsheet-systems/runsheet-data/internal/ingest"
)

// Subjects for data-change events.
const (
	SubjectBatchApplied = "runsheet.data.batch.applied"
	SubjectReset        = "runsheet.data.reset"
)

// BatchAppliedEvent announces a completed batch upload.
type BatchAppliedEvent struct {
	BatchID         string         `json:"batch_id"`
	OperationalTime string         `json:"operational_time"`
	RecordCount     int            `json:"record_count"`
	Breakdown       map[string]int `json:"breakdown"`
	Timestamp       time.Time      `json:"timestamp"`
}

// ResetEvent announces a completed baseline reset.
type ResetEvent struct {
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits events over NATS. A nil Publisher is valid and drops every
// event, so callers never branch on whether messaging is configured.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to the NATS server at url.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

// PublishBatchApplied announces a batch whose report carried applied records.
func (p *Publisher) PublishBatchApplied(report *ingest.Report) error {
	if p == nil {
		return nil
	}
	breakdown := make(map[string]int, len(report.Breakdown))
	for domain, n := range report.Breakdown {
		breakdown[domain.String()] = n
	}
	return p.publish(SubjectBatchApplied, BatchAppliedEvent{
		BatchID:         report.BatchID,
		OperationalTime: report.OperationalTime,
		RecordCount:     report.Total,
		Breakdown:       breakdown,
		Timestamp:       time.Now().UTC(),
	})
}

// PublishReset announces a completed reset.
func (p *Publisher) PublishReset(state string) error {
	if p == nil {
		return nil
	}
	return p.publish(SubjectReset, ResetEvent{State: state, Timestamp: time.Now().UTC()})
}

// Close drains the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}

func (p *Publisher) publish(subject string, event interface{}) error {
	bytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	if err := p.conn.Publish(subject, bytes); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

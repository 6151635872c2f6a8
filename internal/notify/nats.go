package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"example.com/eligibility/internal/pipeline"
)

const (
	runStream      = "ELIGIBILITY_RUNS"
	runSubjectBase = "eligibility.runs"
)

// JetStreamPublisher is the subset of nats.JetStreamContext the publisher
// uses. Tests substitute their own implementation.
type JetStreamPublisher interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// RunEvent is the message published for each finished pipeline run.
type RunEvent struct {
	EventID       string    `json:"event_id"`
	LoadRunID     string    `json:"load_run_id"`
	Status        string    `json:"status"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	RowsIngested  int       `json:"rows_ingested"`
	RowsSkipped   int       `json:"rows_skipped"`
	VendorsFailed int       `json:"vendors_failed"`
	Error         string    `json:"error,omitempty"`
}

// NATSPublisher publishes run completion events to JetStream. Subjects
// are eligibility.runs.<status>, so consumers can subscribe to failures
// only.
type NATSPublisher struct {
	js JetStreamPublisher
}

// NewNATSPublisher creates a publisher over an existing JetStream context.
func NewNATSPublisher(js JetStreamPublisher) *NATSPublisher {
	return &NATSPublisher{js: js}
}

// NotifyRun publishes one RunEvent for the finished run.
func (p *NATSPublisher) NotifyRun(ctx context.Context, report *pipeline.RunReport) error {
	event := RunEvent{
		EventID:    uuid.New().String(),
		LoadRunID:  report.LoadRunID,
		Status:     report.Status,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Error:      report.Error,
	}
	if s := report.Ingestion; s != nil {
		event.RowsIngested = s.TotalIngested
		event.RowsSkipped = s.TotalSkipped
		event.VendorsFailed = s.VendorsFailed
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run event for %s: %w", report.LoadRunID, err)
	}

	if err := p.ensureStream(); err != nil {
		return err
	}

	subject := fmt.Sprintf("%s.%s", runSubjectBase, report.Status)
	pubAck, err := p.js.Publish(subject, payload, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to publish run event for %s to %s: %w", report.LoadRunID, subject, err)
	}
	log.Printf("Published run event %s for run %s to %s (stream %s, seq %d)",
		event.EventID, report.LoadRunID, subject, pubAck.Stream, pubAck.Sequence)
	return nil
}

// ensureStream creates the run event stream when it does not exist yet.
func (p *NATSPublisher) ensureStream() error {
	if _, err := p.js.StreamInfo(runStream); err == nil {
		return nil
	}
	log.Printf("Stream %s not found, attempting to create it...", runStream)
	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:     runStream,
		Subjects: []string{runSubjectBase + ".>"},
		Storage:  nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create NATS stream %s: %w", runStream, err)
	}
	log.Printf("Successfully created NATS stream %s", runStream)
	return nil
}

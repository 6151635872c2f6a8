package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"example.com/eligibility/internal/manifest"
	"example.com/eligibility/internal/silver"
	"example.com/eligibility/internal/staging"
	"example.com/eligibility/internal/vendorcfg"
	"example.com/eligibility/internal/warehouse"
)

// RunNotifier receives the report of a finished pipeline run. Notifier
// errors are logged, never propagated: a failed notification must not
// change the outcome of the run itself.
type RunNotifier interface {
	NotifyRun(ctx context.Context, report *RunReport) error
}

const notifyTimeout = 10 * time.Second

// Options carries the filesystem and concurrency settings for pipeline
// executions.
type Options struct {
	InputDir  string
	OutputDir string
	Workers   int
}

// Service executes full pipeline runs: manifest, ingestion, silver
// normalization, then verification. Every execution is recorded in the
// run history as it progresses.
type Service struct {
	registry  *vendorcfg.Registry
	store     *warehouse.Store
	rules     *silver.Rules
	history   *History
	opts      Options
	notifiers []RunNotifier
}

// NewService wires a pipeline service over a vendor registry, a warehouse
// store and the silver rule set.
func NewService(registry *vendorcfg.Registry, store *warehouse.Store, rules *silver.Rules, opts Options) *Service {
	return &Service{
		registry: registry,
		store:    store,
		rules:    rules,
		history:  NewHistory(),
		opts:     opts,
	}
}

// AddNotifier registers a notifier for run completions. Not safe to call
// once runs have started.
func (s *Service) AddNotifier(n RunNotifier) {
	s.notifiers = append(s.notifiers, n)
}

// History exposes the run report registry for read access.
func (s *Service) History() *History {
	return s.history
}

// Launch starts a full pipeline run in the background and returns its run
// id immediately. The run is detached from the caller's context: it keeps
// going after the triggering request returns.
func (s *Service) Launch() string {
	runID := staging.NewRunID()
	go func() {
		if _, err := s.Execute(context.Background(), runID); err != nil {
			log.Printf("Pipeline run %s failed: %v", runID, err)
		}
	}()
	return runID
}

// Verify re-runs the consistency checks for a run's persisted rows.
func (s *Service) Verify(ctx context.Context, runID string) (*warehouse.RunVerification, error) {
	return s.store.VerifyRun(ctx, runID)
}

// Execute runs every pipeline stage for one run id and returns the full
// report. The report is always returned, also on failure; the error
// reports the first stage problem.
func (s *Service) Execute(ctx context.Context, runID string) (*RunReport, error) {
	timer := prometheus.NewTimer(runDurationMetric)
	defer timer.ObserveDuration()

	report := &RunReport{
		LoadRunID: runID,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.history.Put(report)
	log.Printf("Pipeline run %s started with %d vendors", runID, s.registry.Len())

	// 1. Manifest: record what is about to be ingested.
	m := manifest.Build(runID, s.opts.InputDir, s.registry.Specs())
	if _, err := m.Write(s.opts.OutputDir); err != nil {
		return s.fail(report, "manifest", err)
	}
	report.Manifest = m
	s.history.Put(report)
	if failed := m.FailedFiles(); len(failed) > 0 {
		log.Printf("Run %s: manifest flagged %d unreadable files, their vendors will fail during ingestion",
			runID, len(failed))
	}

	// 2. Ingestion. Vendor failures do not stop the run: the remaining
	// stages operate on whatever rows were persisted.
	orch := NewOrchestrator(s.registry, s.store, s.opts.InputDir, s.opts.Workers)
	summary, ingestErr := orch.Run(ctx, runID)
	report.Ingestion = summary
	s.history.Put(report)

	// 3. Silver normalization over the persisted rows.
	silverRes, err := silver.NewService(s.store, s.rules).Run(ctx, runID)
	if err != nil {
		return s.fail(report, "silver", err)
	}
	report.Silver = silverRes
	s.history.Put(report)

	// 4. Verification of the canonical/payload pairing.
	verification, err := s.store.VerifyRun(ctx, runID)
	if err != nil {
		return s.fail(report, "verify", err)
	}
	report.Verification = verification

	report.FinishedAt = time.Now().UTC()
	switch {
	case ingestErr != nil:
		report.Status = StatusFailed
		report.Error = ingestErr.Error()
	case !verification.Clean():
		report.Status = StatusFailed
		report.Error = fmt.Sprintf("verification found inconsistencies for run %s", runID)
	default:
		report.Status = StatusSucceeded
	}
	s.history.Put(report)
	runsMetric.WithLabelValues(report.Status).Inc()
	s.notify(report)

	log.Printf("Pipeline run %s finished with status %s in %s",
		runID, report.Status, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	if report.Status == StatusFailed {
		if ingestErr != nil {
			return report, ingestErr
		}
		return report, fmt.Errorf("run %s failed verification", runID)
	}
	return report, nil
}

func (s *Service) fail(report *RunReport, stage string, err error) (*RunReport, error) {
	report.Status = StatusFailed
	report.Error = fmt.Sprintf("%s: %v", stage, err)
	report.FinishedAt = time.Now().UTC()
	s.history.Put(report)
	runsMetric.WithLabelValues(StatusFailed).Inc()
	s.notify(report)
	return report, fmt.Errorf("%s stage failed for run %s: %w", stage, report.LoadRunID, err)
}

func (s *Service) notify(report *RunReport) {
	for _, n := range s.notifiers {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		if err := n.NotifyRun(ctx, report); err != nil {
			log.Printf("Run %s notification error: %v", report.LoadRunID, err)
		}
		cancel()
	}
}

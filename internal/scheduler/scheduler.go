package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"example.com/eligibility/internal/pipeline"
	"example.com/eligibility/internal/staging"
)

// RunExecutor starts one full pipeline run and blocks until it finishes.
// The pipeline service implements it.
type RunExecutor interface {
	Execute(ctx context.Context, runID string) (*pipeline.RunReport, error)
}

// Scheduler triggers full pipeline runs on a cron expression. Jobs run
// synchronously inside the cron entry, so an overlapping tick is skipped
// rather than starting a second concurrent run.
type Scheduler struct {
	cronRunner *cron.Cron
	executor   RunExecutor
	spec       string
}

// New creates a scheduler for the given cron expression (six fields, with
// seconds).
func New(executor RunExecutor, cronSpec string) *Scheduler {
	return &Scheduler{
		executor: executor,
		spec:     cronSpec,
		cronRunner: cron.New(
			cron.WithSeconds(),
			cron.WithChain(
				cron.SkipIfStillRunning(cron.DefaultLogger),
				cron.Recover(cron.DefaultLogger),
			),
		),
	}
}

// Start registers the pipeline job and starts the cron runner. Start is
// non-blocking.
func (s *Scheduler) Start() error {
	entryID, err := s.cronRunner.AddFunc(s.spec, s.runPipeline)
	if err != nil {
		return fmt.Errorf("failed to schedule pipeline with cron '%s': %w", s.spec, err)
	}
	s.cronRunner.Start()
	log.Printf("Scheduler started: pipeline runs on cron '%s' (entry %d)", s.spec, entryID)
	return nil
}

func (s *Scheduler) runPipeline() {
	runID := staging.NewRunID()
	log.Printf("Scheduled pipeline run %s starting", runID)
	if _, err := s.executor.Execute(context.Background(), runID); err != nil {
		log.Printf("Scheduled pipeline run %s failed: %v", runID, err)
		return
	}
	log.Printf("Scheduled pipeline run %s finished", runID)
}

// Stop shuts the cron runner down, waiting for a running job to complete.
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler... waiting for jobs to complete.")
	ctx := s.cronRunner.Stop()
	select {
	case <-ctx.Done():
		log.Println("Scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		log.Println("Scheduler shutdown timed out with a job still running.")
	}
}

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"example.com/eligibility/internal/source"
	"example.com/eligibility/internal/staging"
	"example.com/eligibility/internal/vendorcfg"
)

// RecordWriter persists one canonical/payload pair atomically. The
// warehouse store implements it; tests substitute their own.
type RecordWriter interface {
	WritePair(ctx context.Context, can *staging.CanonicalRecord, pay *staging.RawPayloadRecord) error
}

// Orchestrator runs the ingestion stage across all registered vendors.
// Vendors fail independently: one aborted extract never stops the others,
// and rows persisted before an abort are kept.
type Orchestrator struct {
	registry *vendorcfg.Registry
	writer   RecordWriter
	inputDir string
	workers  int
}

// NewOrchestrator wires an ingestion orchestrator. workers bounds how many
// vendor extracts are processed concurrently; values below 1 mean serial.
func NewOrchestrator(registry *vendorcfg.Registry, writer RecordWriter, inputDir string, workers int) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		registry: registry,
		writer:   writer,
		inputDir: inputDir,
		workers:  workers,
	}
}

// Run ingests every registered vendor extract under the given run id and
// returns the per-vendor summary. The summary is always returned; the
// error is non-nil when at least one vendor failed.
func (o *Orchestrator) Run(ctx context.Context, runID string) (*RunSummary, error) {
	specs := o.registry.Specs()
	summary := &RunSummary{
		LoadRunID: runID,
		StartedAt: time.Now().UTC(),
		Vendors:   make([]VendorResult, len(specs)),
	}
	log.Printf("Starting ingestion for run %s: %d vendors, %d workers", runID, len(specs), o.workers)

	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, spec := range specs {
		g.Go(func() error {
			summary.Vendors[i] = o.ingestVendor(ctx, runID, spec)
			return nil
		})
	}
	// Goroutines report through the summary slice, never through errors,
	// so Wait cannot fail and no vendor cancels its siblings.
	_ = g.Wait()

	summary.FinishedAt = time.Now().UTC()
	for i := range summary.Vendors {
		v := &summary.Vendors[i]
		summary.TotalRead += v.RowsRead
		summary.TotalIngested += v.RowsIngested
		summary.TotalSkipped += v.RowsSkipped
		if v.Failed {
			summary.VendorsFailed++
		}
	}

	log.Printf("Ingestion for run %s finished: %d read, %d ingested, %d skipped, %d vendors failed",
		runID, summary.TotalRead, summary.TotalIngested, summary.TotalSkipped, summary.VendorsFailed)
	if summary.VendorsFailed > 0 {
		return summary, fmt.Errorf("run %s: %d of %d vendors failed", runID, summary.VendorsFailed, len(specs))
	}
	return summary, nil
}

func (o *Orchestrator) ingestVendor(ctx context.Context, runID string, spec *vendorcfg.Spec) VendorResult {
	res := VendorResult{SourceVendor: spec.SourceVendor, SourceFile: spec.File}

	mapper, err := staging.NewMapper(spec)
	if err != nil {
		return failVendor(res, err)
	}

	path := filepath.Join(o.inputDir, spec.File)
	reader, err := source.Open(path, spec.ReaderOptions())
	if err != nil {
		return failVendor(res, err)
	}
	defer reader.Close()

	for {
		if err := ctx.Err(); err != nil {
			return failVendor(res, err)
		}
		rec, ordinal, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return failVendor(res, fmt.Errorf("reading %s: %w", spec.File, err))
		}
		res.RowsRead++

		fields, err := mapper.Map(rec)
		if err != nil {
			var unmappable *staging.UnmappableRecordError
			if errors.As(err, &unmappable) {
				res.RowsSkipped++
				res.Skips = append(res.Skips, RowSkip{SourceRow: ordinal, Reason: err.Error()})
				rowsSkippedMetric.WithLabelValues(spec.SourceVendor).Inc()
				log.Printf("Run %s vendor %s row %d skipped: %v", runID, spec.SourceVendor, ordinal, err)
				continue
			}
			return failVendor(res, err)
		}

		rawJSON, err := json.Marshal(rec.Raw())
		if err != nil {
			res.RowsSkipped++
			res.Skips = append(res.Skips, RowSkip{
				SourceRow: ordinal,
				Reason:    fmt.Sprintf("raw payload not serializable: %v", err),
			})
			rowsSkippedMetric.WithLabelValues(spec.SourceVendor).Inc()
			continue
		}

		lin := staging.Lineage{
			LoadRunID:    runID,
			SourceVendor: spec.SourceVendor,
			SourceFile:   spec.File,
			SourceRow:    ordinal,
		}
		can, pay := staging.Tag(lin, time.Now().UTC(), *fields, rawJSON)
		if err := o.writer.WritePair(ctx, can, pay); err != nil {
			return failVendor(res, err)
		}
		res.RowsIngested++
		rowsIngestedMetric.WithLabelValues(spec.SourceVendor).Inc()
	}

	log.Printf("Vendor %s complete: %d read, %d ingested, %d skipped",
		spec.SourceVendor, res.RowsRead, res.RowsIngested, res.RowsSkipped)
	return res
}

func failVendor(res VendorResult, err error) VendorResult {
	res.Failed = true
	res.Err = err
	res.Error = err.Error()
	vendorFailuresMetric.WithLabelValues(res.SourceVendor).Inc()
	log.Printf("Vendor %s aborted after %d ingested rows: %v", res.SourceVendor, res.RowsIngested, err)
	return res
}

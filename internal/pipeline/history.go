package pipeline

import (
	"sort"
	"sync"
)

// History is an in-memory registry of run reports keyed by run id. Put
// stores a snapshot of the report, so a run can keep updating its report
// object while readers see consistent copies.
type History struct {
	mu   sync.RWMutex
	runs map[string]RunReport
}

// NewHistory creates an empty run history.
func NewHistory() *History {
	return &History{runs: make(map[string]RunReport)}
}

// Put records the current state of a report, replacing any previous
// snapshot for the same run id.
func (h *History) Put(report *RunReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs[report.LoadRunID] = *report
}

// Get returns a copy of the report for one run.
func (h *History) Get(runID string) (*RunReport, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	report, ok := h.runs[runID]
	if !ok {
		return nil, false
	}
	return &report, true
}

// List returns copies of all known reports, newest first.
func (h *History) List() []*RunReport {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*RunReport, 0, len(h.runs))
	for id := range h.runs {
		report := h.runs[id]
		out = append(out, &report)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].LoadRunID > out[j].LoadRunID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// Len reports how many runs the history holds.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.runs)
}

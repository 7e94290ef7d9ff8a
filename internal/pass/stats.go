package pass

import (
	"github.com/segmentio/ksuid"
)

// Stats accumulates the aggregate counters spec.md section 6 asks a pass
// driver to report across every function in a run.
type Stats struct {
	RunID string

	mu                  statsMutex
	FunctionsProcessed  int
	FunctionsChanged    int
	ValuesFoldedTotal   int
	BranchesFoldedTotal int
	BlocksPrunedTotal   int
	RollbacksTotal      int
	Warnings            int
	Errors              int
}

// NewStats mints a fresh Stats with a unique, lexically sortable RunID
// (ksuid embeds a timestamp, so run history sorts the same whether you
// sort by RunID or by wall-clock time).
func NewStats() *Stats {
	return &Stats{RunID: ksuid.New().String()}
}

func (s *Stats) recordFunction(outcome PassOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FunctionsProcessed++
	if outcome.Changed {
		s.FunctionsChanged++
	}
	s.ValuesFoldedTotal += outcome.ValuesFolded
	s.BranchesFoldedTotal += outcome.BranchesFolded
	s.BlocksPrunedTotal += outcome.BlocksPruned
	if outcome.RolledBack {
		s.RollbacksTotal++
	}
	s.Warnings += len(outcome.Warnings)
	s.Errors += len(outcome.Errors)
}

package storage

import (
	"context"
	"time"
)

// RunLogger adapts a RunStore to the pipeline's run logging hook.
type RunLogger struct {
	store RunStore
}

// NewRunLogger creates a run logger backed by the given store.
func NewRunLogger(store RunStore) *RunLogger {
	return &RunLogger{store: store}
}

// LogRun records one completed attribution run.
func (l *RunLogger) LogRun(ctx context.Context, question string, queryCount, candidateCount int, coverageRate float64, elapsed time.Duration) error {
	return l.store.Insert(ctx, &RunRecord{
		Question:       question,
		QueryCount:     queryCount,
		CandidateCount: candidateCount,
		CoverageRate:   coverageRate,
		ElapsedMs:      elapsed.Milliseconds(),
	})
}

package storage

import "time"

// RunRecord is one completed attribution run in the database.
type RunRecord struct {
	ID             string  // UUID
	Question       string  // The user question the run answered
	QueryCount     int     // Number of query variants retrieved
	CandidateCount int     // Candidate pool size after reranking
	CoverageRate   float64 // Reference coverage in percent
	ElapsedMs      int64   // Wall-clock duration of the run
	CreatedAt      time.Time
}

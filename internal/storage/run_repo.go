package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_run_store.go -package=mocks litcite/internal/storage RunStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// RunStore defines the interface for run log storage operations.
type RunStore interface {
	// Insert stores a new run record. A missing ID is generated.
	Insert(ctx context.Context, run *RunRecord) error
	// GetByID gets a run by its ID. Returns nil and ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*RunRecord, error)
	// ListRecent returns the most recent runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]RunRecord, error)
}

// RunRepo provides methods for run log operations.
// It implements the RunStore interface.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a new RunRepo.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Insert stores a new run record, generating a UUID when the caller did not
// set one.
func (r *RunRepo) Insert(ctx context.Context, run *RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, question, query_count, candidate_count, coverage_rate, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		run.ID, run.Question, run.QueryCount, run.CandidateCount, run.CoverageRate, run.ElapsedMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// GetByID gets a run by its ID.
// Returns nil and ErrNotFound if not found.
func (r *RunRepo) GetByID(ctx context.Context, id string) (*RunRecord, error) {
	var run RunRecord
	var createdAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, question, query_count, candidate_count, coverage_rate, elapsed_ms, created_at FROM runs WHERE id = ?",
		id,
	).Scan(&run.ID, &run.Question, &run.QueryCount, &run.CandidateCount, &run.CoverageRate, &run.ElapsedMs, &createdAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	run.CreatedAt, err = parseTimestamp(createdAtStr)
	if err != nil {
		return nil, err
	}

	return &run, nil
}

// ListRecent returns the most recent runs, newest first.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, question, query_count, candidate_count, coverage_rate, elapsed_ms, created_at FROM runs ORDER BY created_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		var createdAtStr string
		if err := rows.Scan(&run.ID, &run.Question, &run.QueryCount, &run.CandidateCount, &run.CoverageRate, &run.ElapsedMs, &createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.CreatedAt, err = parseTimestamp(createdAtStr)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// parseTimestamp parses a SQLite DATETIME string.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err == nil {
		return t, nil
	}
	// Try alternative format (SQLite might use different format)
	t, err = time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse created_at timestamp: %w", err)
	}
	return t, nil
}

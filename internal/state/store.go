// Package state records audit runs in a SQLite database so that results can
// be compared across exports.
//
// History is optional. The audit itself never reads from the store.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/leadaudit/pkg/audit"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded audit.
type Run struct {
	ID           string     `json:"id"`
	Input        string     `json:"input"`
	Output       string     `json:"output"`
	Status       RunStatus  `json:"status"`
	PassScore    int        `json:"pass_score"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Total        int        `json:"total"`
	Passed       int        `json:"passed"`
	Failed       int        `json:"failed"`
	AverageScore float64    `json:"average_score"`
	Error        string     `json:"error,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// RuleFailure is the number of records of a run that failed one rule.
type RuleFailure struct {
	Position int    `json:"position"`
	Rule     string `json:"rule"`
	Count    int    `json:"count"`
}

// Store persists audit runs.
type Store interface {
	// CreateRun starts a run record in the running state.
	CreateRun(ctx context.Context, input, output string, passScore int) (*Run, error)
	// CompleteRun stores the summary of a finished run.
	CompleteRun(ctx context.Context, id string, summary audit.Summary) error
	// FailRun marks a run as failed with the given cause.
	FailRun(ctx context.Context, id string, cause error) error
	// GetRun returns a run by ID or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	// RuleFailures returns the per-rule failure counts of a run in rule order.
	RuleFailures(ctx context.Context, runID string) ([]RuleFailure, error)
	// Close releases the database.
	Close() error
}

package model

import (
	"database/sql"
	"time"
)

// Execution status values used when the config does not override them.
const (
	RunStatusStarted   = "STARTED"
	RunStatusCompleted = "COMPLETED"
)

// Run is one row of test_execution_reports.
type Run struct {
	ID        int64        `json:"id" db:"id"`
	RunID     string       `json:"run_id" db:"run_id"`
	Name      string       `json:"name" db:"name"`
	StartedAt time.Time    `json:"started_at" db:"execution_start_time"`
	EndedAt   sql.NullTime `json:"ended_at" db:"execution_end_time"`
	Status    string       `json:"status" db:"execution_status"`
}

// Finished reports whether an end time has been recorded.
func (r Run) Finished() bool {
	return r.EndedAt.Valid
}

// Duration returns the elapsed time of a finished run, or zero.
func (r Run) Duration() time.Duration {
	if !r.EndedAt.Valid {
		return 0
	}
	return r.EndedAt.Time.Sub(r.StartedAt)
}

package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableRunStatus mirrors the CP-SAT-style engine's solver status, plus
// the pending/running states a background job passes through before a
// solve completes.
type TimetableRunStatus string

const (
	TimetableRunPending    TimetableRunStatus = "PENDING"
	TimetableRunRunning    TimetableRunStatus = "RUNNING"
	TimetableRunSuccess    TimetableRunStatus = "SUCCESS"
	TimetableRunNoSolution TimetableRunStatus = "NO_SOLUTION"
	TimetableRunFailed     TimetableRunStatus = "FAILED"
)

// TimetableRun persists one solve request/result pair, versioned per
// school/term.
type TimetableRun struct {
	ID          string             `db:"id" json:"id"`
	SchoolID    string             `db:"school_id" json:"schoolId"`
	TermID      string             `db:"term_id" json:"termId"`
	Version     int                `db:"version" json:"version"`
	Status      TimetableRunStatus `db:"status" json:"status"`
	Instance    types.JSONText     `db:"instance" json:"instance"`
	Report      types.JSONText     `db:"report" json:"report,omitempty"`
	Error       *string            `db:"error" json:"error,omitempty"`
	Fingerprint string             `db:"fingerprint" json:"fingerprint"`
	CreatedAt   time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updatedAt"`
}

// SubjectParallelLimit is one row of the settings-owned per-subject
// simultaneous-class cap table.
type SubjectParallelLimit struct {
	ID        string `db:"id" json:"id"`
	SchoolID  string `db:"school_id" json:"schoolId"`
	SubjectID string `db:"subject_id" json:"subjectId"`
	Limit     int    `db:"max_parallel" json:"maxParallel"`
}

// PreferBlockSubject is one row of the settings-owned per-subject
// block-scheduling bonus override table.
type PreferBlockSubject struct {
	ID        string `db:"id" json:"id"`
	SchoolID  string `db:"school_id" json:"schoolId"`
	SubjectID string `db:"subject_id" json:"subjectId"`
	Weight    int    `db:"weight" json:"weight"`
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// TimetableRunRepository persists versioned timetable solve runs, numbered
// per school/term. Persistence plays the "relational store" the core
// treats as an external collaborator: it never reads timetable semantics,
// only stores the Instance that was solved and the Report that came back.
type TimetableRunRepository struct {
	db *sqlx.DB
}

// NewTimetableRunRepository constructs the repository.
func NewTimetableRunRepository(db *sqlx.DB) *TimetableRunRepository {
	return &TimetableRunRepository{db: db}
}

func (r *TimetableRunRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a run assigning the next version for the
// school/term tuple.
func (r *TimetableRunRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error {
	if run == nil {
		return fmt.Errorf("timetable run payload is nil")
	}
	if run.SchoolID == "" || run.TermID == "" {
		return fmt.Errorf("school_id and term_id are required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = models.TimetableRunPending
	}
	if len(run.Report) == 0 {
		run.Report = types.JSONText(`{}`)
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM timetable_runs WHERE school_id = $1 AND term_id = $2`
	if err := sqlx.GetContext(ctx, target, &run.Version, nextVersionQuery, run.SchoolID, run.TermID); err != nil {
		return fmt.Errorf("compute next timetable run version: %w", err)
	}

	const insertQuery = `
INSERT INTO timetable_runs (id, school_id, term_id, version, status, instance, report, error, fingerprint, created_at, updated_at)
VALUES (:id, :school_id, :term_id, :version, :status, :instance, :report, :error, :fingerprint, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, run); err != nil {
		return fmt.Errorf("insert timetable run: %w", err)
	}
	return nil
}

// UpdateResult records a completed (or failed) solve outcome.
func (r *TimetableRunRepository) UpdateResult(ctx context.Context, id string, status models.TimetableRunStatus, report types.JSONText, solveErr *string) error {
	const query = `UPDATE timetable_runs SET status = $1, report = $2, error = $3, updated_at = $4 WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, status, report, solveErr, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update timetable run result: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("timetable run rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID loads a run by its identifier.
func (r *TimetableRunRepository) FindByID(ctx context.Context, id string) (*models.TimetableRun, error) {
	const query = `SELECT id, school_id, term_id, version, status, instance, report, error, fingerprint, created_at, updated_at FROM timetable_runs WHERE id = $1`
	var run models.TimetableRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListByTermSchool returns every run version for a school/term tuple.
func (r *TimetableRunRepository) ListByTermSchool(ctx context.Context, schoolID, termID string) ([]models.TimetableRun, error) {
	const query = `SELECT id, school_id, term_id, version, status, instance, report, error, fingerprint, created_at, updated_at
FROM timetable_runs WHERE school_id = $1 AND term_id = $2 ORDER BY version DESC`
	var runs []models.TimetableRun
	if err := r.db.SelectContext(ctx, &runs, query, schoolID, termID); err != nil {
		return nil, fmt.Errorf("list timetable runs: %w", err)
	}
	return runs, nil
}

// FindByFingerprint looks up the most recent successful run matching a
// canonical-instance fingerprint, used as the persisted fallback when the
// Redis fingerprint cache (pkg/cache) has already expired.
func (r *TimetableRunRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*models.TimetableRun, error) {
	const query = `SELECT id, school_id, term_id, version, status, instance, report, error, fingerprint, created_at, updated_at
FROM timetable_runs WHERE fingerprint = $1 AND status = $2 ORDER BY created_at DESC LIMIT 1`
	var run models.TimetableRun
	if err := r.db.GetContext(ctx, &run, query, fingerprint, models.TimetableRunSuccess); err != nil {
		return nil, err
	}
	return &run, nil
}

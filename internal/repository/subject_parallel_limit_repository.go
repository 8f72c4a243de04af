package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// SubjectParallelLimitRepository persists the per-school, per-subject
// simultaneous-class cap a Settings admin surface edits independently of
// the rest of Instance assembly (original_source/AsyncCompute.py's
// `SubjectParallelLimits` table).
type SubjectParallelLimitRepository struct {
	db *sqlx.DB
}

// NewSubjectParallelLimitRepository constructs the repository.
func NewSubjectParallelLimitRepository(db *sqlx.DB) *SubjectParallelLimitRepository {
	return &SubjectParallelLimitRepository{db: db}
}

// ListBySchool returns every configured limit for a school.
func (r *SubjectParallelLimitRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.SubjectParallelLimit, error) {
	const query = `SELECT id, school_id, subject_id, max_parallel FROM subject_parallel_limits WHERE school_id = $1`
	var limits []models.SubjectParallelLimit
	if err := r.db.SelectContext(ctx, &limits, query, schoolID); err != nil {
		return nil, fmt.Errorf("list subject parallel limits: %w", err)
	}
	return limits, nil
}

// Upsert creates or updates one subject's limit for a school.
func (r *SubjectParallelLimitRepository) Upsert(ctx context.Context, limit *models.SubjectParallelLimit) error {
	if limit.ID == "" {
		limit.ID = uuid.NewString()
	}
	const query = `INSERT INTO subject_parallel_limits (id, school_id, subject_id, max_parallel)
		VALUES (:id, :school_id, :subject_id, :max_parallel)
		ON CONFLICT (school_id, subject_id) DO UPDATE
		SET max_parallel = EXCLUDED.max_parallel`
	if _, err := r.db.NamedExecContext(ctx, query, limit); err != nil {
		return fmt.Errorf("upsert subject parallel limit: %w", err)
	}
	return nil
}

// Delete removes a school's limit override for one subject.
func (r *SubjectParallelLimitRepository) Delete(ctx context.Context, schoolID, subjectID string) error {
	const query = `DELETE FROM subject_parallel_limits WHERE school_id = $1 AND subject_id = $2`
	if _, err := r.db.ExecContext(ctx, query, schoolID, subjectID); err != nil {
		return fmt.Errorf("delete subject parallel limit: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// PreferBlockSubjectRepository persists the per-school, per-subject
// block-scheduling bonus override a Settings admin surface edits
// independently of the rest of Instance assembly (original_source/
// AsyncCompute.py's `PreferBlockSubjects` table).
type PreferBlockSubjectRepository struct {
	db *sqlx.DB
}

// NewPreferBlockSubjectRepository constructs the repository.
func NewPreferBlockSubjectRepository(db *sqlx.DB) *PreferBlockSubjectRepository {
	return &PreferBlockSubjectRepository{db: db}
}

// ListBySchool returns every configured override for a school.
func (r *PreferBlockSubjectRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.PreferBlockSubject, error) {
	const query = `SELECT id, school_id, subject_id, weight FROM prefer_block_subjects WHERE school_id = $1`
	var rows []models.PreferBlockSubject
	if err := r.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, fmt.Errorf("list prefer block subjects: %w", err)
	}
	return rows, nil
}

// Upsert creates or updates one subject's block-scheduling weight for a school.
func (r *PreferBlockSubjectRepository) Upsert(ctx context.Context, row *models.PreferBlockSubject) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	const query = `INSERT INTO prefer_block_subjects (id, school_id, subject_id, weight)
		VALUES (:id, :school_id, :subject_id, :weight)
		ON CONFLICT (school_id, subject_id) DO UPDATE
		SET weight = EXCLUDED.weight`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert prefer block subject: %w", err)
	}
	return nil
}

// Delete removes a school's override for one subject.
func (r *PreferBlockSubjectRepository) Delete(ctx context.Context, schoolID, subjectID string) error {
	const query = `DELETE FROM prefer_block_subjects WHERE school_id = $1 AND subject_id = $2`
	if _, err := r.db.ExecContext(ctx, query, schoolID, subjectID); err != nil {
		return fmt.Errorf("delete prefer block subject: %w", err)
	}
	return nil
}

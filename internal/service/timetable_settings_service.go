package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/models"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
)

type subjectParallelLimitStore interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.SubjectParallelLimit, error)
	Upsert(ctx context.Context, limit *models.SubjectParallelLimit) error
	Delete(ctx context.Context, schoolID, subjectID string) error
}

type preferBlockSubjectStore interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.PreferBlockSubject, error)
	Upsert(ctx context.Context, row *models.PreferBlockSubject) error
	Delete(ctx context.Context, schoolID, subjectID string) error
}

// TimetableSettingsService edits the per-school SubjectParallelLimits and
// PreferBlockSubjects tables independently of assembling a full Instance,
// the same separation the original Settings admin surface draws.
type TimetableSettingsService struct {
	limits    subjectParallelLimitStore
	preferred preferBlockSubjectStore
	logger    *zap.Logger
}

// NewTimetableSettingsService wires the settings service.
func NewTimetableSettingsService(limits subjectParallelLimitStore, preferred preferBlockSubjectStore, logger *zap.Logger) *TimetableSettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableSettingsService{limits: limits, preferred: preferred, logger: logger}
}

// ListParallelLimits returns every configured limit for a school.
func (s *TimetableSettingsService) ListParallelLimits(ctx context.Context, schoolID string) ([]models.SubjectParallelLimit, error) {
	rows, err := s.limits.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject parallel limits")
	}
	return rows, nil
}

// UpsertParallelLimit creates or updates a school's per-subject limit.
func (s *TimetableSettingsService) UpsertParallelLimit(ctx context.Context, schoolID string, req dto.SubjectParallelLimitRequest) error {
	row := &models.SubjectParallelLimit{SchoolID: schoolID, SubjectID: req.SubjectID, Limit: req.MaxParallel}
	if err := s.limits.Upsert(ctx, row); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert subject parallel limit")
	}
	return nil
}

// DeleteParallelLimit removes a school's per-subject limit override.
func (s *TimetableSettingsService) DeleteParallelLimit(ctx context.Context, schoolID, subjectID string) error {
	if err := s.limits.Delete(ctx, schoolID, subjectID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject parallel limit")
	}
	return nil
}

// ListPreferBlockSubjects returns every configured block-scheduling weight
// override for a school.
func (s *TimetableSettingsService) ListPreferBlockSubjects(ctx context.Context, schoolID string) ([]models.PreferBlockSubject, error) {
	rows, err := s.preferred.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list prefer block subjects")
	}
	return rows, nil
}

// UpsertPreferBlockSubject creates or updates a school's per-subject
// block-scheduling bonus override.
func (s *TimetableSettingsService) UpsertPreferBlockSubject(ctx context.Context, schoolID string, req dto.PreferBlockSubjectRequest) error {
	row := &models.PreferBlockSubject{SchoolID: schoolID, SubjectID: req.SubjectID, Weight: req.Weight}
	if err := s.preferred.Upsert(ctx, row); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert prefer block subject")
	}
	return nil
}

// DeletePreferBlockSubject removes a school's override for one subject.
func (s *TimetableSettingsService) DeletePreferBlockSubject(ctx context.Context, schoolID, subjectID string) error {
	if err := s.preferred.Delete(ctx, schoolID, subjectID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete prefer block subject")
	}
	return nil
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/models"
)

type parallelLimitStoreStub struct {
	rows []models.SubjectParallelLimit
}

func (s *parallelLimitStoreStub) ListBySchool(ctx context.Context, schoolID string) ([]models.SubjectParallelLimit, error) {
	return s.rows, nil
}

func (s *parallelLimitStoreStub) Upsert(ctx context.Context, limit *models.SubjectParallelLimit) error {
	s.rows = append(s.rows, *limit)
	return nil
}

func (s *parallelLimitStoreStub) Delete(ctx context.Context, schoolID, subjectID string) error {
	out := s.rows[:0]
	for _, r := range s.rows {
		if r.SubjectID != subjectID {
			out = append(out, r)
		}
	}
	s.rows = out
	return nil
}

type preferBlockStoreStub struct {
	rows []models.PreferBlockSubject
}

func (s *preferBlockStoreStub) ListBySchool(ctx context.Context, schoolID string) ([]models.PreferBlockSubject, error) {
	return s.rows, nil
}

func (s *preferBlockStoreStub) Upsert(ctx context.Context, row *models.PreferBlockSubject) error {
	s.rows = append(s.rows, *row)
	return nil
}

func (s *preferBlockStoreStub) Delete(ctx context.Context, schoolID, subjectID string) error {
	out := s.rows[:0]
	for _, r := range s.rows {
		if r.SubjectID != subjectID {
			out = append(out, r)
		}
	}
	s.rows = out
	return nil
}

func TestTimetableSettingsServiceUpsertAndListParallelLimit(t *testing.T) {
	limits := &parallelLimitStoreStub{}
	svc := NewTimetableSettingsService(limits, &preferBlockStoreStub{}, zap.NewNop())

	err := svc.UpsertParallelLimit(context.Background(), "school-1", dto.SubjectParallelLimitRequest{SubjectID: "pe", MaxParallel: 2})
	require.NoError(t, err)

	rows, err := svc.ListParallelLimits(context.Background(), "school-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "pe", rows[0].SubjectID)
	assert.Equal(t, 2, rows[0].Limit)
}

func TestTimetableSettingsServiceDeleteParallelLimit(t *testing.T) {
	limits := &parallelLimitStoreStub{rows: []models.SubjectParallelLimit{{SubjectID: "pe", Limit: 1}}}
	svc := NewTimetableSettingsService(limits, &preferBlockStoreStub{}, zap.NewNop())

	require.NoError(t, svc.DeleteParallelLimit(context.Background(), "school-1", "pe"))
	rows, err := svc.ListParallelLimits(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTimetableSettingsServiceUpsertAndListPreferBlockSubject(t *testing.T) {
	preferred := &preferBlockStoreStub{}
	svc := NewTimetableSettingsService(&parallelLimitStoreStub{}, preferred, zap.NewNop())

	err := svc.UpsertPreferBlockSubject(context.Background(), "school-1", dto.PreferBlockSubjectRequest{SubjectID: "math", Weight: 8})
	require.NoError(t, err)

	rows, err := svc.ListPreferBlockSubjects(context.Background(), "school-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 8, rows[0].Weight)
}

func TestTimetableSettingsServiceDeletePreferBlockSubject(t *testing.T) {
	preferred := &preferBlockStoreStub{rows: []models.PreferBlockSubject{{SubjectID: "math", Weight: 3}}}
	svc := NewTimetableSettingsService(&parallelLimitStoreStub{}, preferred, zap.NewNop())

	require.NoError(t, svc.DeletePreferBlockSubject(context.Background(), "school-1", "math"))
	rows, err := svc.ListPreferBlockSubjects(context.Background(), "school-1")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

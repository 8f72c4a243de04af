package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
	"github.com/noah-isme/sma-adp-api/pkg/export"
	"github.com/noah-isme/sma-adp-api/pkg/jobs"
)

type timetableRunStore interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error
	UpdateResult(ctx context.Context, id string, status models.TimetableRunStatus, report types.JSONText, solveErr *string) error
	FindByID(ctx context.Context, id string) (*models.TimetableRun, error)
	ListByTermSchool(ctx context.Context, schoolID, termID string) ([]models.TimetableRun, error)
	FindByFingerprint(ctx context.Context, fingerprint string) (*models.TimetableRun, error)
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type solveMetricsRecorder interface {
	ObserveSolve(status string, duration time.Duration)
}

// TimetableRunConfig governs solver defaults and fingerprint cache lifetime.
type TimetableRunConfig struct {
	CacheTTL time.Duration
	Solver   timetable.SolverConfig
}

// TimetableRunService enqueues CP-SAT-style timetable solves and serves
// their persisted status/result, short-circuiting on a Redis-backed
// fingerprint cache when an identical Instance was already solved.
type TimetableRunService struct {
	runs     timetableRunStore
	cache    timetableCache
	queue    jobDispatcher
	solver   timetable.SolverConfig
	cacheTTL time.Duration
	logger   *zap.Logger
	metrics  solveMetricsRecorder
}

// NewTimetableRunService wires the run service.
func NewTimetableRunService(runs timetableRunStore, cache timetableCache, queue jobDispatcher, metrics solveMetricsRecorder, logger *zap.Logger, cfg TimetableRunConfig) *TimetableRunService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	def := timetable.DefaultSolverConfig()
	if cfg.Solver.Workers <= 0 {
		cfg.Solver.Workers = def.Workers
	}
	if cfg.Solver.MaxSolveSeconds <= 0 {
		cfg.Solver.MaxSolveSeconds = def.MaxSolveSeconds
	}
	return &TimetableRunService{
		runs:     runs,
		cache:    cache,
		queue:    queue,
		solver:   cfg.Solver,
		cacheTTL: cfg.CacheTTL,
		logger:   logger,
		metrics:  metrics,
	}
}

// CreateRun validates an Instance, serves a cached result for an identical
// fingerprint when one exists, or persists a pending run and enqueues it.
func (s *TimetableRunService) CreateRun(ctx context.Context, req dto.CreateTimetableRunRequest) (*dto.TimetableRunResponse, error) {
	inst := toInstance(req.Instance)
	if err := timetable.Validate(&inst); err != nil {
		var ve *timetable.ValidationError
		if errors.As(err, &ve) {
			return nil, ve.AsAppError()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instance")
	}

	instanceJSON, err := json.Marshal(inst)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to marshal instance")
	}
	fingerprint := fingerprintInstance(instanceJSON)

	if cached, ok := s.lookupCached(ctx, fingerprint); ok {
		return cached, nil
	}

	run := &models.TimetableRun{
		SchoolID:    req.SchoolID,
		TermID:      req.TermID,
		Status:      models.TimetableRunPending,
		Instance:    types.JSONText(instanceJSON),
		Fingerprint: fingerprint,
	}
	if err := s.runs.CreateVersioned(ctx, nil, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable run")
	}

	if err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: "timetable_solve"}); err != nil {
		msg := err.Error()
		_ = s.runs.UpdateResult(ctx, run.ID, models.TimetableRunFailed, types.JSONText(`{}`), &msg)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue timetable solve")
	}

	return &dto.TimetableRunResponse{ID: run.ID, Status: string(run.Status), Version: run.Version}, nil
}

// GetRun returns a run's current status, and its report once solved.
func (s *TimetableRunService) GetRun(ctx context.Context, id string) (*dto.TimetableRunResponse, error) {
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable run")
	}
	return toRunResponse(run), nil
}

// ListRuns returns every run version for a school/term tuple, newest first.
func (s *TimetableRunService) ListRuns(ctx context.Context, schoolID, termID string) ([]dto.TimetableRunResponse, error) {
	runs, err := s.runs.ListByTermSchool(ctx, schoolID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable runs")
	}
	out := make([]dto.TimetableRunResponse, 0, len(runs))
	for i := range runs {
		out = append(out, *toRunResponse(&runs[i]))
	}
	return out, nil
}

// ExportClass renders a completed run's class grid as CSV or PDF bytes.
func (s *TimetableRunService) ExportClass(ctx context.Context, id, class, format string) ([]byte, error) {
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable run")
	}
	if run.Status != models.TimetableRunSuccess {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "timetable run has no solved result to export")
	}

	var inst timetable.Instance
	if err := json.Unmarshal(run.Instance, &inst); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode run instance")
	}
	var report timetable.Report
	if err := json.Unmarshal(run.Report, &report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode run report")
	}

	dataset, err := export.ClassTimetableDataset(&report, class, inst.HoursPerDay)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	if format == "pdf" {
		bytes, err := export.NewPDFExporter().Render(dataset, class+" timetable")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return bytes, nil
	}
	bytes, err := export.NewCSVExporter().Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return bytes, nil
}

func (s *TimetableRunService) lookupCached(ctx context.Context, fingerprint string) (*dto.TimetableRunResponse, bool) {
	cacheKey := "timetable:fingerprint:" + fingerprint

	if s.cache != nil {
		var cached dto.TimetableRunResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, true
		}
	}

	if s.runs == nil {
		return nil, false
	}
	run, err := s.runs.FindByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, false
	}
	resp := toRunResponse(run)
	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, resp, s.cacheTTL)
	}
	return resp, true
}

func fingerprintInstance(instanceJSON []byte) string {
	sum := sha256.Sum256(instanceJSON)
	return hex.EncodeToString(sum[:])
}

// TimetableSolveWorker bridges queue jobs to the Validator/Builder/Solver/
// Extractor pipeline, persisting the outcome back onto the run row.
type TimetableSolveWorker struct {
	runs    timetableRunStore
	solver  timetable.SolverConfig
	metrics solveMetricsRecorder
	logger  *zap.Logger
}

// NewTimetableSolveWorker constructs a worker.
func NewTimetableSolveWorker(runs timetableRunStore, cfg timetable.SolverConfig, metrics solveMetricsRecorder, logger *zap.Logger) *TimetableSolveWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableSolveWorker{runs: runs, solver: cfg, metrics: metrics, logger: logger}
}

// Handle runs one queued solve to completion.
func (w *TimetableSolveWorker) Handle(ctx context.Context, job jobs.Job) error {
	run, err := w.runs.FindByID(ctx, job.ID)
	if err != nil {
		return err
	}

	if err := w.runs.UpdateResult(ctx, run.ID, models.TimetableRunRunning, types.JSONText(`{}`), nil); err != nil {
		w.logger.Sugar().Warnw("failed to mark timetable run running", "run_id", run.ID, "error", err)
	}

	var inst timetable.Instance
	if err := json.Unmarshal(run.Instance, &inst); err != nil {
		msg := err.Error()
		_ = w.runs.UpdateResult(ctx, run.ID, models.TimetableRunFailed, types.JSONText(`{}`), &msg)
		return err
	}

	start := time.Now()
	report, solveErr := timetable.Solve(ctx, &inst, w.solver, w.logger)
	elapsed := time.Since(start)

	if solveErr != nil {
		appErr := appErrors.FromError(solveErr)
		if w.metrics != nil {
			w.metrics.ObserveSolve("error", elapsed)
		}
		msg := appErr.Message
		_ = w.runs.UpdateResult(ctx, run.ID, models.TimetableRunFailed, types.JSONText(`{}`), &msg)
		return solveErr
	}

	status := models.TimetableRunSuccess
	if report.Status == timetable.StatusNoSolution {
		status = models.TimetableRunNoSolution
	}
	if w.metrics != nil {
		w.metrics.ObserveSolve(report.Status, elapsed)
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		msg := err.Error()
		_ = w.runs.UpdateResult(ctx, run.ID, models.TimetableRunFailed, types.JSONText(`{}`), &msg)
		return err
	}
	if err := w.runs.UpdateResult(ctx, run.ID, status, types.JSONText(reportJSON), nil); err != nil {
		w.logger.Sugar().Warnw("failed to persist timetable run result", "run_id", run.ID, "error", err)
		return err
	}
	return nil
}

func toInstance(in dto.InstanceInput) timetable.Instance {
	teachers := make([]timetable.Teacher, 0, len(in.Teachers))
	for _, t := range in.Teachers {
		teachers = append(teachers, timetable.Teacher{
			ID:                t.ID,
			Name:              t.Name,
			MaxWeeklyHours:    t.MaxWeeklyHours,
			QualifiedSubjects: t.QualifiedSubjects,
		})
	}

	var policyKind timetable.BreakPolicyKind
	if in.Settings.BreakPolicy.Kind == "fixed_global" {
		policyKind = timetable.BreakFixedGlobal
	} else {
		policyKind = timetable.BreakSlidingWindow
	}

	return timetable.Instance{
		Classes:             in.Classes,
		Subjects:            in.Subjects,
		HoursPerDay:         in.HoursPerDay,
		Teachers:            teachers,
		ClassHours:          in.ClassHours,
		ParallelLimits:      in.ParallelLimits,
		PreferBlockSubjects: in.PreferBlockSubjects,
		Settings: timetable.Settings{
			PreferEarlyHours:         in.Settings.PreferEarlyHours,
			AllowBlockScheduling:     in.Settings.AllowBlockScheduling,
			MaxHoursPerDayPerSubject: in.Settings.MaxHoursPerDayPerSubject,
			BreakPolicy: timetable.BreakPolicy{
				Kind:                policyKind,
				MaxConsecutiveHours: in.Settings.BreakPolicy.MaxConsecutiveHours,
				BreakWindowStart:    in.Settings.BreakPolicy.BreakWindowStart,
				BreakWindowEnd:      in.Settings.BreakPolicy.BreakWindowEnd,
				GlobalBreak:         in.Settings.BreakPolicy.GlobalBreak,
			},
			WeightBlock:     in.Settings.WeightBlock,
			WeightTimeOfDay: in.Settings.WeightTimeOfDay,
			MaxSolveSeconds: in.Settings.MaxSolveSeconds,
		},
	}
}

func toRunResponse(run *models.TimetableRun) *dto.TimetableRunResponse {
	resp := &dto.TimetableRunResponse{
		ID:      run.ID,
		Status:  string(run.Status),
		Version: run.Version,
	}
	if run.Error != nil && *run.Error != "" {
		resp.Error = *run.Error
	}
	if run.Status == models.TimetableRunSuccess || run.Status == models.TimetableRunNoSolution {
		var report timetable.Report
		if err := json.Unmarshal(run.Report, &report); err == nil && report.Status != "" {
			resp.Report = &dto.TimetableReport{
				Status:   report.Status,
				Classes:  report.Classes,
				Teachers: report.Teachers,
			}
		}
	}
	return resp
}

package timetable

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/cpsat"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
)

// SolverConfig tunes the underlying engine invocation. Workers defaults to
// 3 (the original script's num_search_workers) but must be set to 1 for
// deterministic replay: the engine's parallel restarts race for the first
// or best incumbent, so worker interleaving makes tie-breaking between
// equivalent optima unstable across runs.
type SolverConfig struct {
	MaxSolveSeconds int
	Workers         int
}

// DefaultSolverConfig mirrors the source's hard-coded defaults.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{MaxSolveSeconds: 10, Workers: 3}
}

// Solve runs the full Validator → Model Builder → Solver Driver → Solution
// Extractor pipeline for one Instance. It never retries; every error is
// terminal for the caller.
func Solve(ctx context.Context, inst *Instance, cfg SolverConfig, logger *zap.Logger) (*Report, error) {
	if err := Validate(inst); err != nil {
		if ve, ok := err.(*ValidationError); ok {
			return nil, ve.AsAppError()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instance")
	}

	bm, err := Build(inst)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "model build failed")
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultSolverConfig().Workers
	}
	maxSeconds := cfg.MaxSolveSeconds
	if maxSeconds <= 0 {
		maxSeconds = inst.Settings.MaxSolveSeconds
	}
	if maxSeconds <= 0 {
		maxSeconds = DefaultSolverConfig().MaxSolveSeconds
	}

	start := time.Now()
	result := cpsat.Solve(ctx, bm.M, cpsat.SolverConfig{
		MaxTime:       time.Duration(maxSeconds) * time.Second,
		SearchWorkers: workers,
	})
	elapsed := time.Since(start)

	if logger != nil {
		logger.Sugar().Infow("timetable solve finished",
			"status", result.Status.String(),
			"elapsed", elapsed,
			"objective", result.ObjectiveValue,
			"workers", workers,
		)
	}

	switch result.Status {
	case cpsat.StatusOptimal, cpsat.StatusFeasible:
		report := Extract(bm, result.Solution)
		return report, nil
	case cpsat.StatusInfeasible:
		return &Report{Status: StatusNoSolution}, nil
	case cpsat.StatusSolverError:
		return nil, appErrors.Wrap(result.Err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "solver error")
	default:
		return nil, appErrors.Clone(appErrors.ErrInternal, "unrecognized solver status")
	}
}

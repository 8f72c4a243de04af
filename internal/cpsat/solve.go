package cpsat

import (
	"context"
	"errors"
	"time"

	mk "github.com/gitrdm/gokanlogic/pkg/minikanren"
)

// Status mirrors the subset of cp_model's CpSolverStatus this engine can
// produce.
type Status int

const (
	// StatusOptimal means the search space was exhausted (or the known
	// upper/lower bound matched the incumbent) before the time budget ran
	// out; the returned solution maximizes the objective.
	StatusOptimal Status = iota
	// StatusFeasible means at least one solution was found but the time
	// budget (or node limit) expired before the search could prove
	// optimality.
	StatusFeasible
	// StatusInfeasible means the search space was fully explored and no
	// assignment satisfies every hard constraint (or the budget expired
	// before any feasible assignment was ever found).
	StatusInfeasible
	// StatusSolverError means the model failed to build or gokando's solver
	// returned an error unrelated to the time/node budget.
	StatusSolverError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusSolverError:
		return "SOLVER_ERROR"
	default:
		return "UNKNOWN"
	}
}

// SolverConfig tunes the search: a wall-clock budget and a parallel worker
// count, handed straight through to gokando's
// WithTimeLimit/WithParallelWorkers, mirroring cp_model.CpSolver's
// max_time_in_seconds/num_search_workers parameters. RandomSeed is kept for
// callers that built a config before a seed mattered; gokando's
// branch-and-bound search is already deterministic for a fixed model and
// worker count, so it isn't threaded any further.
type SolverConfig struct {
	MaxTime       time.Duration
	SearchWorkers int
	RandomSeed    int64
}

// DefaultSolverConfig returns the engine's baseline tuning: a ten second
// budget and three parallel workers, matching the original script's
// num_search_workers.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{MaxTime: 10 * time.Second, SearchWorkers: 3, RandomSeed: 1}
}

// Solution is a read-only view over one complete, constraint-satisfying
// assignment.
type Solution struct {
	values map[int]int
}

// Value returns the resolved value of v.
func (s Solution) Value(v *IntVar) int { return s.values[v.id] }

// BoolValue returns the resolved value of b as a bool.
func (s Solution) BoolValue(b BoolVar) bool { return s.values[b.v.id] != 0 }

// Result is the outcome of Solve.
type Result struct {
	Status         Status
	Solution       Solution
	ObjectiveValue int
	Err            error
}

// Solve lowers m onto a gokando finite-domain model and runs
// Solver.SolveOptimalWithOptions over it within cfg's time budget, using
// cfg.SearchWorkers parallel workers. Models with no declared objective are
// routed through the same optimize-driven call with a constant dummy
// objective, so there is a single code path for every model shape.
func Solve(ctx context.Context, m *Model, cfg SolverConfig) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Status: StatusSolverError, Err: asError(r)}
		}
	}()

	l, obj, err := lowerModel(m)
	if err != nil {
		return Result{Status: StatusSolverError, Err: err}
	}

	workers := cfg.SearchWorkers
	if workers < 1 {
		workers = 1
	}
	deadline := cfg.MaxTime
	if deadline <= 0 {
		deadline = DefaultSolverConfig().MaxTime
	}

	solver := mk.NewSolver(l.gm)
	values, _, err := solver.SolveOptimalWithOptions(ctx, obj, false,
		mk.WithTimeLimit(deadline),
		mk.WithParallelWorkers(workers),
	)

	switch {
	case values == nil && err == nil:
		return Result{Status: StatusInfeasible}
	case values == nil && err != nil:
		if isBudgetErr(err) {
			return Result{Status: StatusInfeasible, Err: err}
		}
		return Result{Status: StatusSolverError, Err: err}
	}

	sol := Solution{values: make(map[int]int, len(m.vars))}
	for _, v := range m.vars {
		gv := l.gokandoVar(v)
		sol.values[v.id] = values[gv.ID()] + l.offset[v.id]
	}

	status := StatusOptimal
	if err != nil {
		if !isBudgetErr(err) {
			return Result{Status: StatusSolverError, Solution: sol, Err: err}
		}
		status = StatusFeasible
	}
	return Result{Status: status, Solution: sol, ObjectiveValue: evalObjective(m, sol)}
}

func isBudgetErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.Is(err, mk.ErrSearchLimitReached)
}

func evalObjective(m *Model, sol Solution) int {
	total := 0
	for _, term := range m.objective {
		total += term.weight * sol.values[term.v.id]
	}
	return total
}

func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &panicError{v: r}
}

type panicError struct{ v any }

func (e *panicError) Error() string {
	return "cpsat: solver panic recovered"
}

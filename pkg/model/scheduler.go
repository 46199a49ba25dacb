package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/limaJavier/coursetabling/pkg/milp"
	"go.uber.org/zap"
)

type Stats struct {
	Blocks      map[DurationClass]int
	Variables   int
	Constraints int
	BuildTime   time.Duration
	SolveTime   time.Duration
	Objective   float64
}

type Scheduler interface {
	// Builds the model, solves it once and returns the verified assignment
	Build(
		ctx context.Context,
		modelInput ModelInput,
	) (assignment Assignment, stats Stats, err error)

	Verify(
		assignment Assignment,
		modelInput ModelInput,
	) error
}

type milpScheduler struct {
	solver  milp.Solver
	options Options
	logger  *zap.Logger
}

func NewScheduler(solver milp.Solver, options Options, logger *zap.Logger) Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &milpScheduler{
		solver:  solver,
		options: options,
		logger:  logger,
	}
}

func (scheduler *milpScheduler) Build(ctx context.Context, modelInput ModelInput) (Assignment, Stats, error) {
	stats := Stats{}
	start := time.Now()

	//** Generate blocks
	blocks := GenerateBlocks(modelInput.Grid, scheduler.options.SplitAtDayBoundary)
	stats.Blocks = blocks.CountByClass()
	scheduler.logger.Info("blocks generated",
		zap.Int("short", stats.Blocks[Short]),
		zap.Int("medium", stats.Blocks[Medium]),
		zap.Int("long", stats.Blocks[Long]),
	)

	//** Presolve
	if scheduler.options.Presolve {
		if err := diagnose(modelInput, blocks); err != nil {
			return nil, stats, err
		}
	}

	//** Build model
	problem, err := buildModel(modelInput, blocks, scheduler.options)
	if err != nil {
		return nil, stats, err
	}
	stats.Variables = len(problem.Model.Variables)
	stats.Constraints = len(problem.Model.Constraints)
	stats.BuildTime = time.Since(start)
	scheduler.logger.Info("model built",
		zap.Int("variables", stats.Variables),
		zap.Int("constraints", stats.Constraints),
		zap.Duration("elapsed", stats.BuildTime),
	)

	//** Solve once
	if scheduler.options.SolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, scheduler.options.SolveTimeout)
		defer cancel()
	}
	start = time.Now()
	solution, err := scheduler.solver.Solve(ctx, problem.Model)
	stats.SolveTime = time.Since(start)
	if err != nil {
		return nil, stats, fmt.Errorf("solver failed: %w", err)
	}
	scheduler.logger.Info("model solved",
		zap.Stringer("status", solution.Status),
		zap.Float64("objective", solution.Objective),
		zap.Duration("elapsed", stats.SolveTime),
	)

	switch solution.Status {
	case milp.Timeout:
		return nil, stats, SolveTimeoutError{Budget: scheduler.options.SolveTimeout}
	case milp.Infeasible:
		return nil, stats, InfeasibleModelError{Reason: "the solver proved the model infeasible"}
	}
	stats.Objective = solution.Objective

	if violations := problem.Model.Violations(solution.Values, 1e-5); len(violations) > 0 {
		return nil, stats, fmt.Errorf("solver returned an assignment violating the model: %v", strings.Join(violations, "; "))
	}

	//** Decode and verify
	assignment := problem.Decode(solution)
	if err := scheduler.Verify(assignment, modelInput); err != nil {
		return nil, stats, fmt.Errorf("assignment failed verification: %w", err)
	}
	return assignment, stats, nil
}

func (scheduler *milpScheduler) Verify(assignment Assignment, modelInput ModelInput) error {
	return verify(assignment, modelInput)
}

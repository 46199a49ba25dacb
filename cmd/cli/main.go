package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/limaJavier/coursetabling/pkg/config"
	"github.com/limaJavier/coursetabling/pkg/logger"
	"github.com/limaJavier/coursetabling/pkg/metrics"
	"github.com/limaJavier/coursetabling/pkg/milp"
	"github.com/limaJavier/coursetabling/pkg/model"
)

const usage = "usage: cli <occupancy.csv> <courses.csv> <preferences.csv> <rooms.csv> <output.csv>"

type arguments struct {
	occupancy   string
	courses     string
	preferences string
	rooms       string
	output      string
}

func main() {
	if len(os.Args) != 6 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	args := arguments{
		occupancy:   os.Args[1],
		courses:     os.Args[2],
		preferences: os.Args[3],
		rooms:       os.Args[4],
		output:      os.Args[5],
	}

	configPath, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	l, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot build logger: %v\n", err)
		os.Exit(1)
	}
	defer l.Sync()
	l, runID := logger.WithRun(l)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l, runID, args); err != nil {
		l.Error("scheduling failed", zap.Error(err))
		l.Sync()
		stop()
		os.Exit(1)
	}
}

// run schedules the courses and writes the committed grid to args.output; the side outputs named
// in the configuration are written along the way, the metrics textfile even when the run fails
func run(ctx context.Context, cfg *config.Config, l *zap.Logger, runID string, args arguments) (err error) {
	runMetrics := metrics.New(runID, cfg.Solver.Name)
	if cfg.Output.MetricsFile != "" {
		defer func() {
			runMetrics.SetOutcome(outcome(err))
			if writeErr := runMetrics.WriteTextfile(cfg.Output.MetricsFile); writeErr != nil {
				l.Warn("cannot write metrics", zap.String("file", cfg.Output.MetricsFile), zap.Error(writeErr))
			}
		}()
	}

	l.Info("reading input",
		zap.String("occupancy", args.occupancy),
		zap.String("courses", args.courses),
		zap.String("preferences", args.preferences),
		zap.String("rooms", args.rooms),
	)
	input, err := model.InputFromCSV(args.occupancy, args.courses, args.preferences, args.rooms)
	if err != nil {
		return fmt.Errorf("cannot read input: %w", err)
	}
	l.Info("input read",
		zap.Int("slots", input.Grid.Len()),
		zap.Int("rooms", len(input.Grid.Rooms())),
		zap.Int("courses", len(input.Courses)),
		zap.Int("programs", len(input.Programs)),
	)

	solver, err := milp.NewSolver(cfg.Solver.Name, cfg.Solver.Paths, l)
	if err != nil {
		return err
	}
	scheduler := model.NewScheduler(solver, cfg.ModelOptions(), l)

	assignment, stats, err := scheduler.Build(ctx, input)
	runMetrics.Record(stats, assignment)
	if err != nil {
		return err
	}

	committed, err := model.Commit(input.Grid, assignment)
	if err != nil {
		return err
	}
	if err := model.WriteOccupancy(args.output, committed); err != nil {
		return err
	}
	if cfg.Output.SessionsFile != "" {
		if err := model.WriteSessions(cfg.Output.SessionsFile, assignment, input.Grid); err != nil {
			return err
		}
	}

	l.Info("schedule written",
		zap.String("output", args.output),
		zap.Int("sessions", len(assignment)),
		zap.Float64("objective", stats.Objective),
	)
	fmt.Printf("Variables: %v\n", stats.Variables)
	fmt.Printf("Constraints: %v\n", stats.Constraints)
	fmt.Printf("Objective: %v\n", stats.Objective)
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeScheduled
	case errors.As(err, &model.InfeasibleModelError{}):
		return metrics.OutcomeInfeasible
	case errors.As(err, &model.SolveTimeoutError{}):
		return metrics.OutcomeTimeout
	}
	return metrics.OutcomeFailed
}

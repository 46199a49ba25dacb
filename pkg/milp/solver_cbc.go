package milp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type cbcSolver struct {
	path   string
	logger *zap.Logger
}

func NewCbcSolver(path string, logger *zap.Logger) Solver {
	return &cbcSolver{path: path, logger: logger}
}

func (solver *cbcSolver) Solve(ctx context.Context, model *Model) (Solution, error) {
	if err := model.Validate(); err != nil {
		return Solution{}, err
	} else if !emptyRowsHold(model) {
		return Solution{Status: Infeasible}, nil
	}

	dir, lpFile, err := writeLPFile(model)
	if err != nil {
		return Solution{}, err
	}
	defer os.RemoveAll(dir)
	solutionFile := filepath.Join(dir, "solution.txt")

	args := []string{lpFile}
	if seconds := timeLimitSeconds(ctx); seconds > 0 {
		args = append(args, "-sec", strconv.Itoa(seconds))
	}
	args = append(args, "-solve", "-solu", solutionFile)

	result, err := runSolver(ctx, solver.logger, solver.path, args...)
	if err != nil {
		return Solution{}, err
	} else if result.interrupted {
		return Solution{Status: Timeout}, nil
	} else if result.exitCode != 0 {
		return Solution{}, fmt.Errorf("an error occurred during cbc execution (exit code %v): %v", result.exitCode, result.stderr)
	}

	output, err := os.ReadFile(solutionFile)
	if err != nil {
		return Solution{}, fmt.Errorf("cbc did not produce a solution file: %w: %v", err, result.stdout)
	}
	return parseCbcSolution(string(output), model)
}

// Parses the file written by "-solu". The first line carries the status; the remaining lines are
// "<index> <name> <value> <reduced cost>", optionally prefixed by "**" for infeasible columns.
// Only non-zero columns are listed
func parseCbcSolution(output string, model *Model) (Solution, error) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return Solution{}, fmt.Errorf("empty cbc solution")
	}

	header := strings.ToLower(lines[0])
	switch {
	case strings.HasPrefix(header, "optimal"):
	case strings.Contains(header, "infeasible"):
		return Solution{Status: Infeasible}, nil
	case strings.Contains(header, "stopped on time"):
		// An incumbent found before the limit is not proven optimal
		return Solution{Status: Timeout}, nil
	default:
		return Solution{}, fmt.Errorf("unexpected cbc status: %v", lines[0])
	}

	values := make([]float64, len(model.Variables))
	for _, line := range lines[1:] {
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "**"))
		if len(fields) < 3 {
			continue
		}
		variable, err := parseVarName(fields[1], len(model.Variables))
		if err != nil {
			return Solution{}, err
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return Solution{}, fmt.Errorf("invalid value for %v in cbc solution: %w", fields[1], err)
		}
		values[variable] = value
	}

	return Solution{Status: Optimal, Objective: model.Evaluate(values), Values: values}, nil
}

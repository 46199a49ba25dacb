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

type highsSolver struct {
	path   string
	logger *zap.Logger
}

func NewHighsSolver(path string, logger *zap.Logger) Solver {
	return &highsSolver{path: path, logger: logger}
}

func (solver *highsSolver) Solve(ctx context.Context, model *Model) (Solution, error) {
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
	solutionFile := filepath.Join(dir, "solution.sol")

	args := []string{"--model_file", lpFile, "--solution_file", solutionFile}
	if seconds := timeLimitSeconds(ctx); seconds > 0 {
		args = append(args, "--time_limit", strconv.Itoa(seconds))
	}

	result, err := runSolver(ctx, solver.logger, solver.path, args...)
	if err != nil {
		return Solution{}, err
	} else if result.interrupted {
		return Solution{Status: Timeout}, nil
	} else if result.exitCode != 0 {
		return Solution{}, fmt.Errorf("an error occurred during highs execution (exit code %v): %v", result.exitCode, result.stderr)
	}

	output, err := os.ReadFile(solutionFile)
	if err != nil {
		return Solution{}, fmt.Errorf("highs did not produce a solution file: %w: %v", err, result.stdout)
	}
	return parseHighsSolution(string(output), model)
}

// Parses a HiGHS raw solution file: a "Model status" section followed by the primal column values
// listed after "# Columns <n>"
func parseHighsSolution(output string, model *Model) (Solution, error) {
	lines := strings.Split(output, "\n")

	status := ""
	for i, line := range lines {
		if strings.TrimSpace(line) == "Model status" && i+1 < len(lines) {
			status = strings.TrimSpace(lines[i+1])
			break
		} else if value, ok := strings.CutPrefix(strings.TrimSpace(line), "Model status:"); ok {
			status = strings.TrimSpace(value)
			break
		}
	}

	switch strings.ToLower(status) {
	case "optimal":
	case "infeasible", "primal infeasible or unbounded":
		return Solution{Status: Infeasible}, nil
	case "time limit reached":
		return Solution{Status: Timeout}, nil
	case "":
		return Solution{}, fmt.Errorf("highs solution has no model status")
	default:
		return Solution{}, fmt.Errorf("unexpected highs status: %v", status)
	}

	values := make([]float64, len(model.Variables))
	inColumns := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# Columns") {
			inColumns = true
			continue
		}
		if !inColumns {
			continue
		}
		if strings.HasPrefix(line, "#") || line == "" {
			break
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return Solution{}, fmt.Errorf("malformed highs column line: %v", line)
		}
		variable, err := parseVarName(fields[0], len(model.Variables))
		if err != nil {
			return Solution{}, err
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Solution{}, fmt.Errorf("invalid value for %v in highs solution: %w", fields[0], err)
		}
		values[variable] = value
	}

	return Solution{Status: Optimal, Objective: model.Evaluate(values), Values: values}, nil
}

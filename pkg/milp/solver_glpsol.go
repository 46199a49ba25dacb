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

type glpsolSolver struct {
	path   string
	logger *zap.Logger
}

func NewGlpsolSolver(path string, logger *zap.Logger) Solver {
	return &glpsolSolver{path: path, logger: logger}
}

func (solver *glpsolSolver) Solve(ctx context.Context, model *Model) (Solution, error) {
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
	reportFile := filepath.Join(dir, "report.txt")

	args := []string{"--lp", lpFile, "-o", reportFile}
	if seconds := timeLimitSeconds(ctx); seconds > 0 {
		args = append(args, "--tmlim", strconv.Itoa(seconds))
	}

	result, err := runSolver(ctx, solver.logger, solver.path, args...)
	if err != nil {
		return Solution{}, err
	} else if result.interrupted {
		return Solution{Status: Timeout}, nil
	} else if result.exitCode != 0 {
		return Solution{}, fmt.Errorf("an error occurred during glpsol execution (exit code %v): %v", result.exitCode, result.stderr)
	}

	output, err := os.ReadFile(reportFile)
	if err != nil {
		return Solution{}, fmt.Errorf("glpsol did not produce a report: %w: %v", err, result.stdout)
	}
	return parseGlpsolReport(string(output), model)
}

// Parses the printable report written by "-o". The status appears on the "Status:" line and the
// column activities in the table that follows the "Column name" header
func parseGlpsolReport(output string, model *Model) (Solution, error) {
	lines := strings.Split(output, "\n")

	status := ""
	for _, line := range lines {
		if value, ok := strings.CutPrefix(strings.TrimSpace(line), "Status:"); ok {
			status = strings.TrimSpace(value)
			break
		}
	}

	switch status {
	case "INTEGER OPTIMAL", "OPTIMAL":
	case "INTEGER EMPTY", "INFEASIBLE (FINAL)", "INTEGER UNDEFINED":
		return Solution{Status: Infeasible}, nil
	case "INTEGER NON-OPTIMAL":
		return Solution{Status: Timeout}, nil
	case "":
		return Solution{}, fmt.Errorf("glpsol report has no status")
	default:
		return Solution{}, fmt.Errorf("unexpected glpsol status: %v", status)
	}

	values := make([]float64, len(model.Variables))
	inColumns := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(trimmed, "Column name") {
			inColumns = true
			continue
		}
		if !inColumns || strings.HasPrefix(trimmed, "---") {
			continue
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "Integer feasibility") || strings.HasPrefix(trimmed, "Karush") {
			break
		}

		// "<no> <name> [*] <activity> <lower> <upper>"; long names push the rest onto the next line
		fields := strings.Fields(trimmed)
		if len(fields) < 3 {
			continue
		}
		variable, err := parseVarName(fields[1], len(model.Variables))
		if err != nil {
			return Solution{}, err
		}
		activity := fields[2]
		if activity == "*" && len(fields) > 3 {
			activity = fields[3]
		}
		value, err := strconv.ParseFloat(activity, 64)
		if err != nil {
			return Solution{}, fmt.Errorf("invalid activity for %v in glpsol report: %w", fields[1], err)
		}
		values[variable] = value
	}

	return Solution{Status: Optimal, Objective: model.Evaluate(values), Values: values}, nil
}

package milp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	NativeSolverName = "native"
	CbcSolverName    = "cbc"
	HighsSolverName  = "highs"
	GlpsolSolverName = "glpsol"
)

var SolverNames = []string{NativeSolverName, CbcSolverName, HighsSolverName, GlpsolSolverName}

// NewSolver resolves a solver by name. Executable paths for the external solvers are looked up in
// paths and fall back to the solver's name, which is then resolved through PATH
func NewSolver(name string, paths map[string]string, logger *zap.Logger) (Solver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	executable := func() string {
		if path, ok := paths[name]; ok && path != "" {
			return path
		}
		return name
	}

	switch name {
	case NativeSolverName:
		return NewNativeSolver(logger), nil
	case CbcSolverName:
		return NewCbcSolver(executable(), logger), nil
	case HighsSolverName:
		return NewHighsSolver(executable(), logger), nil
	case GlpsolSolverName:
		return NewGlpsolSolver(executable(), logger), nil
	}
	return nil, fmt.Errorf("unknown solver \"%v\" (expected one of %v)", name, SolverNames)
}

// Creates a scratch directory holding the model in LP format. The caller removes the directory
func writeLPFile(model *Model) (dir string, lpFile string, err error) {
	dir, err = os.MkdirTemp("", "coursetabling-*")
	if err != nil {
		return "", "", fmt.Errorf("failed to create temporary directory: %w", err)
	}

	lpFile = filepath.Join(dir, "model.lp")
	if err := os.WriteFile(lpFile, []byte(model.ToLP()), 0o644); err != nil {
		os.RemoveAll(dir)
		return "", "", fmt.Errorf("failed to write LP file: %w", err)
	}
	return dir, lpFile, nil
}

// Whole seconds left before the context deadline (at least one); zero when there is no deadline
func timeLimitSeconds(ctx context.Context) int {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return max(1, int(math.Ceil(time.Until(deadline).Seconds())))
}

type execResult struct {
	stdout   string
	stderr   string
	exitCode int
	// The context expired while the process was running
	interrupted bool
}

func runSolver(ctx context.Context, logger *zap.Logger, path string, args ...string) (execResult, error) {
	cmd := exec.CommandContext(ctx, path, args...)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	logger.Debug("solver process finished", zap.String("path", path), zap.Strings("args", args), zap.Duration("elapsed", time.Since(start)))

	result := execResult{stdout: stdOut.String(), stderr: stderr.String()}
	if cmd.ProcessState != nil {
		result.exitCode = cmd.ProcessState.ExitCode()
	}
	if ctx.Err() != nil {
		result.interrupted = true
		return result, nil
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return result, fmt.Errorf("cannot execute %v: %w", path, err)
	}
	return result, nil
}

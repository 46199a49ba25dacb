package milp

import (
	"context"
	"fmt"
)

type Status int

const (
	Optimal Status = iota
	Infeasible
	Timeout
)

func (status Status) String() string {
	switch status {
	case Optimal:
		return "OPTIMAL"
	case Infeasible:
		return "INFEASIBLE"
	case Timeout:
		return "TIMEOUT"
	}
	return fmt.Sprintf("Status(%d)", int(status))
}

// Solution holds one value per model variable when Status is Optimal; Values is nil otherwise
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
}

func (solution Solution) True(variable Var) bool {
	return solution.Values != nil && solution.Values[variable] > 0.5
}

type Solver interface {
	// Solves the model once. Infeasibility and an exhausted time budget are reported through the
	// solution status; the error is reserved for failures of the solver itself
	Solve(ctx context.Context, model *Model) (Solution, error)
}

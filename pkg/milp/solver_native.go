package milp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	integralityTolerance = 1e-6
	feasibilityTolerance = 1e-7
	simplexTolerance     = 1e-10
	progressInterval     = 1000
)

var errUnbounded = errors.New("the linear relaxation is unbounded")

type nativeSolver struct {
	logger *zap.Logger
	relax  func(cost []float64, rows []Constraint, node bounds) (relaxation, error)
}

// NewNativeSolver returns an in-process depth-first branch-and-bound solver whose linear
// relaxations are solved by gonum's simplex. It is meant for small and medium models
func NewNativeSolver(logger *zap.Logger) Solver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &nativeSolver{logger: logger, relax: solveRelaxation}
}

type bounds struct {
	lower []float64
	upper []float64
}

func (b bounds) clone() bounds {
	return bounds{lower: slices.Clone(b.lower), upper: slices.Clone(b.upper)}
}

type relaxation struct {
	infeasible bool
	value      float64
	values     []float64
}

type relaxationResult struct {
	relaxation relaxation
	err        error
}

func (solver *nativeSolver) Solve(ctx context.Context, model *Model) (Solution, error) {
	if err := model.Validate(); err != nil {
		return Solution{}, err
	}

	//** Minimize internally
	sign := 1.0
	if model.Maximize {
		sign = -1.0
	}
	cost := make([]float64, len(model.Variables))
	for _, term := range model.Objective {
		cost[term.Var] += sign * term.Coef
	}

	//** Presolve
	rows, root, feasible := presolve(model)
	if !feasible {
		return Solution{Status: Infeasible}, nil
	}

	//** Branch and bound
	stack := []bounds{root}
	bestValue := math.Inf(1)
	var best []float64
	explored := 0

	for len(stack) > 0 {
		if ctx.Err() != nil {
			solver.logger.Info("branch and bound interrupted", zap.Int("nodes", explored), zap.Bool("incumbent", best != nil))
			return Solution{Status: Timeout}, nil
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		explored++
		if explored%progressInterval == 0 {
			solver.logger.Debug("branch and bound progress", zap.Int("nodes", explored), zap.Int("open", len(stack)), zap.Float64("incumbent", sign*bestValue))
		}

		current, finished, err := solver.relaxNode(ctx, cost, rows, node)
		if !finished {
			solver.logger.Info("branch and bound interrupted during a relaxation", zap.Int("nodes", explored), zap.Bool("incumbent", best != nil))
			return Solution{Status: Timeout}, nil
		} else if err != nil {
			return Solution{}, fmt.Errorf("node %v: %w", explored, err)
		}
		if current.infeasible || current.value >= bestValue-feasibilityTolerance {
			continue
		}

		branch := mostFractional(model, current.values)
		if branch < 0 {
			bestValue, best = current.value, current.values
			continue
		}

		value := current.values[branch]
		down, up := node.clone(), node.clone()
		down.upper[branch] = math.Floor(value)
		up.lower[branch] = math.Ceil(value)

		// The side closer to the relaxation is explored first, so it is pushed last
		if value-math.Floor(value) < 0.5 {
			stack = append(stack, up, down)
		} else {
			stack = append(stack, down, up)
		}
	}

	solver.logger.Debug("branch and bound finished", zap.Int("nodes", explored), zap.Bool("feasible", best != nil))
	if best == nil {
		return Solution{Status: Infeasible}, nil
	}

	for i, variable := range model.Variables {
		if variable.Kind != Continuous {
			best[i] = math.Round(best[i])
		}
	}
	return Solution{
		Status:    Optimal,
		Objective: model.Evaluate(best),
		Values:    best,
	}, nil
}

// Solves the node's relaxation aside so that an expiring context is noticed while the simplex is
// still pivoting. An abandoned simplex runs to completion in the background and its result is dropped
func (solver *nativeSolver) relaxNode(ctx context.Context, cost []float64, rows []Constraint, node bounds) (relaxation, bool, error) {
	done := make(chan relaxationResult, 1)
	go func() {
		current, err := solver.relax(cost, rows, node)
		done <- relaxationResult{relaxation: current, err: err}
	}()

	select {
	case <-ctx.Done():
		return relaxation{}, false, nil
	case result := <-done:
		return result.relaxation, true, result.err
	}
}

// Finds the integer variable whose relaxed value is farthest from an integer; -1 if all are integral
func mostFractional(model *Model, values []float64) int {
	branch, distance := -1, integralityTolerance
	for i, variable := range model.Variables {
		if variable.Kind == Continuous {
			continue
		}
		fraction := values[i] - math.Floor(values[i])
		if d := math.Min(fraction, 1-fraction); d > distance {
			branch, distance = i, d
		}
	}
	return branch
}

// Merges repeated variables per row and turns single-variable rows into variable bounds
func presolve(model *Model) (rows []Constraint, root bounds, feasible bool) {
	root = bounds{
		lower: make([]float64, len(model.Variables)),
		upper: make([]float64, len(model.Variables)),
	}
	for i, variable := range model.Variables {
		root.lower[i], root.upper[i] = variable.Lower, variable.Upper
	}

	rows = make([]Constraint, 0, len(model.Constraints))
	for _, constraint := range model.Constraints {
		merged := make(map[Var]float64)
		order := make([]Var, 0, len(constraint.Terms))
		for _, term := range constraint.Terms {
			if _, ok := merged[term.Var]; !ok {
				order = append(order, term.Var)
			}
			merged[term.Var] += term.Coef
		}
		terms := make(Expr, 0, len(order))
		for _, variable := range order {
			if merged[variable] != 0 {
				terms = append(terms, Term{Var: variable, Coef: merged[variable]})
			}
		}

		switch len(terms) {
		case 0:
			if !holds(0, constraint.Sense, constraint.Rhs) {
				return nil, root, false
			}
		case 1:
			tighten(model, root, terms[0], constraint.Sense, constraint.Rhs)
		default:
			rows = append(rows, Constraint{Name: constraint.Name, Terms: terms, Sense: constraint.Sense, Rhs: constraint.Rhs})
		}
	}

	for i := range model.Variables {
		if root.lower[i] > root.upper[i]+feasibilityTolerance {
			return nil, root, false
		}
	}
	return rows, root, true
}

func tighten(model *Model, root bounds, term Term, sense Sense, rhs float64) {
	limit := rhs / term.Coef
	if term.Coef < 0 {
		switch sense {
		case LessEq:
			sense = GreaterEq
		case GreaterEq:
			sense = LessEq
		}
	}

	upper, lower := limit, limit
	if model.Variables[term.Var].Kind != Continuous {
		upper = math.Floor(limit + integralityTolerance)
		lower = math.Ceil(limit - integralityTolerance)
	}
	if sense == LessEq || sense == Equal {
		root.upper[term.Var] = math.Min(root.upper[term.Var], upper)
	}
	if sense == GreaterEq || sense == Equal {
		root.lower[term.Var] = math.Max(root.lower[term.Var], lower)
	}
}

func holds(lhs float64, sense Sense, rhs float64) bool {
	switch sense {
	case LessEq:
		return lhs <= rhs+feasibilityTolerance
	case GreaterEq:
		return lhs >= rhs-feasibilityTolerance
	default:
		return math.Abs(lhs-rhs) <= feasibilityTolerance
	}
}

type standardRow struct {
	coefs map[int]float64
	slack bool // <= row; equalities carry no slack
	rhs   float64
}

// Upper bound each column inherits from the rows alone. Columns are non-negative, so a row whose
// coefficients are all positive (or an equality whose coefficients are all negative) caps every
// column in it at rhs/coef
func impliedCaps(rows []standardRow, columns int) []float64 {
	caps := make([]float64, columns)
	for col := range caps {
		caps[col] = math.Inf(1)
	}

	for _, row := range rows {
		positive, negative := true, true
		for _, coef := range row.coefs {
			positive = positive && coef > 0
			negative = negative && coef < 0
		}
		if !positive && !(negative && !row.slack) {
			continue
		}
		for col, coef := range row.coefs {
			caps[col] = math.Min(caps[col], row.rhs/coef)
		}
	}
	return caps
}

// Solves the linear relaxation under the node's bounds. Each variable is shifted by its lower bound
// (x = lower + y, y >= 0), finite upper bounds the rows do not already imply become rows and the
// problem is brought to the standard form min c'y s.t. Ay = b, y >= 0 expected by lp.Simplex
func solveRelaxation(cost []float64, rows []Constraint, node bounds) (relaxation, error) {
	variables := len(cost)
	for i := range variables {
		if node.lower[i] > node.upper[i]+feasibilityTolerance {
			return relaxation{infeasible: true}, nil
		}
	}

	//** Select free columns
	column := make([]int, variables)
	free := make([]int, 0, variables)
	for i := range variables {
		column[i] = -1
		if node.upper[i]-node.lower[i] > feasibilityTolerance {
			column[i] = len(free)
			free = append(free, i)
		}
	}

	//** Shift rows
	standard := make([]standardRow, 0, len(rows)+len(free))
	appears := make([]bool, len(free))

	for _, row := range rows {
		rhs := row.Rhs
		coefs := make(map[int]float64)
		for _, term := range row.Terms {
			rhs -= term.Coef * node.lower[term.Var]
			if col := column[term.Var]; col >= 0 {
				coefs[col] += term.Coef
			}
		}
		for col, coef := range coefs {
			if coef == 0 {
				delete(coefs, col)
			}
		}
		if len(coefs) == 0 {
			if !holds(0, row.Sense, rhs) {
				return relaxation{infeasible: true}, nil
			}
			continue
		}

		if row.Sense == GreaterEq {
			for col := range coefs {
				coefs[col] = -coefs[col]
			}
			rhs = -rhs
		}
		for col := range coefs {
			appears[col] = true
		}
		standard = append(standard, standardRow{coefs: coefs, slack: row.Sense != Equal, rhs: rhs})
	}

	// Packing rows already keep binaries within [0, 1], so most bounds add no row
	caps := impliedCaps(standard, len(free))
	for col, i := range free {
		if width := node.upper[i] - node.lower[i]; !math.IsInf(width, 1) && width < caps[col]-feasibilityTolerance {
			standard = append(standard, standardRow{coefs: map[int]float64{col: 1}, slack: true, rhs: width})
			appears[col] = true
		}
	}

	//** Columns appearing in no row stay at their lower bound unless they improve the objective forever
	values := slices.Clone(node.lower)
	active := make([]int, len(free))
	columns := 0
	for col, i := range free {
		active[col] = -1
		if appears[col] {
			active[col] = columns
			columns++
		} else if cost[i] < 0 {
			return relaxation{}, errUnbounded
		}
	}

	if len(standard) > 0 {
		structural := columns
		for _, row := range standard {
			if row.slack {
				columns++
			}
		}
		if len(standard) > columns {
			return relaxation{}, fmt.Errorf("relaxation has %v rows but only %v columns", len(standard), columns)
		}

		c := make([]float64, columns)
		for col, i := range free {
			if active[col] >= 0 {
				c[active[col]] = cost[i]
			}
		}
		A := mat.NewDense(len(standard), columns, nil)
		b := make([]float64, len(standard))
		slack := structural
		for r, row := range standard {
			direction := 1.0
			if row.rhs < 0 {
				direction = -1.0
			}
			for col, coef := range row.coefs {
				A.Set(r, active[col], direction*coef)
			}
			if row.slack {
				A.Set(r, slack, direction)
				slack++
			}
			b[r] = direction * row.rhs
		}

		_, y, err := lp.Simplex(c, A, b, simplexTolerance, nil)
		if errors.Is(err, lp.ErrInfeasible) {
			return relaxation{infeasible: true}, nil
		} else if errors.Is(err, lp.ErrUnbounded) {
			return relaxation{}, errUnbounded
		} else if err != nil {
			return relaxation{}, fmt.Errorf("simplex failed: %w", err)
		}

		for col, i := range free {
			if active[col] >= 0 {
				values[i] = node.lower[i] + y[active[col]]
			}
		}
	}

	value := 0.0
	for i, coef := range cost {
		value += coef * values[i]
	}
	return relaxation{value: value, values: values}, nil
}

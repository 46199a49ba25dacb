package milp

import (
	"fmt"
	"math"
)

type VarKind int

const (
	Binary VarKind = iota
	Integer
	Continuous
)

type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (sense Sense) String() string {
	switch sense {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	default:
		return "="
	}
}

// Var is the position of a variable inside its model
type Var int

type Term struct {
	Var  Var
	Coef float64
}

type Expr []Term

type Variable struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64 // math.Inf(1) when unbounded
}

type Constraint struct {
	Name  string
	Terms Expr
	Sense Sense
	Rhs   float64
}

// Model is a linear program over binary, integer and continuous variables.
// Every variable is non-negative.
type Model struct {
	Name        string
	Maximize    bool
	Variables   []Variable
	Objective   Expr
	Constraints []Constraint
}

func NewModel(name string, maximize bool) *Model {
	return &Model{
		Name:     name,
		Maximize: maximize,
	}
}

func (model *Model) AddBinary(name string) Var {
	model.Variables = append(model.Variables, Variable{Name: name, Kind: Binary, Lower: 0, Upper: 1})
	return Var(len(model.Variables) - 1)
}

func (model *Model) AddInteger(name string, lower, upper float64) Var {
	model.Variables = append(model.Variables, Variable{Name: name, Kind: Integer, Lower: lower, Upper: upper})
	return Var(len(model.Variables) - 1)
}

func (model *Model) AddContinuous(name string, lower, upper float64) Var {
	model.Variables = append(model.Variables, Variable{Name: name, Kind: Continuous, Lower: lower, Upper: upper})
	return Var(len(model.Variables) - 1)
}

func (model *Model) AddConstraint(name string, terms Expr, sense Sense, rhs float64) {
	model.Constraints = append(model.Constraints, Constraint{
		Name:  name,
		Terms: terms,
		Sense: sense,
		Rhs:   rhs,
	})
}

func (model *Model) SetObjective(terms Expr) {
	model.Objective = terms
}

func (model *Model) Validate() error {
	for i, variable := range model.Variables {
		if variable.Lower < 0 || math.IsInf(variable.Lower, 0) || math.IsNaN(variable.Lower) {
			return fmt.Errorf("variable %v (%v) must have a finite non-negative lower bound: %v", i, variable.Name, variable.Lower)
		}
		if variable.Upper < variable.Lower {
			return fmt.Errorf("variable %v (%v) has an empty domain [%v, %v]", i, variable.Name, variable.Lower, variable.Upper)
		}
	}

	checkExpr := func(owner string, terms Expr) error {
		for _, term := range terms {
			if term.Var < 0 || int(term.Var) >= len(model.Variables) {
				return fmt.Errorf("%v references unknown variable %v", owner, term.Var)
			}
			if math.IsNaN(term.Coef) || math.IsInf(term.Coef, 0) {
				return fmt.Errorf("%v has a non-finite coefficient on %v", owner, model.Variables[term.Var].Name)
			}
		}
		return nil
	}

	if err := checkExpr("objective", model.Objective); err != nil {
		return err
	}
	for i, constraint := range model.Constraints {
		if err := checkExpr(fmt.Sprintf("constraint %v (%v)", i, constraint.Name), constraint.Terms); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate returns the objective value of the given assignment
func (model *Model) Evaluate(values []float64) float64 {
	return evaluate(model.Objective, values)
}

// Violations lists every constraint or bound the assignment breaks beyond tolerance
func (model *Model) Violations(values []float64, tolerance float64) []string {
	violations := make([]string, 0)

	for i, variable := range model.Variables {
		value := values[i]
		if value < variable.Lower-tolerance || value > variable.Upper+tolerance {
			violations = append(violations, fmt.Sprintf("%v = %v outside [%v, %v]", variable.Name, value, variable.Lower, variable.Upper))
		}
		if variable.Kind != Continuous && math.Abs(value-math.Round(value)) > tolerance {
			violations = append(violations, fmt.Sprintf("%v = %v is not integral", variable.Name, value))
		}
	}

	for _, constraint := range model.Constraints {
		lhs := evaluate(constraint.Terms, values)
		satisfied := true
		switch constraint.Sense {
		case LessEq:
			satisfied = lhs <= constraint.Rhs+tolerance
		case GreaterEq:
			satisfied = lhs >= constraint.Rhs-tolerance
		case Equal:
			satisfied = math.Abs(lhs-constraint.Rhs) <= tolerance
		}
		if !satisfied {
			violations = append(violations, fmt.Sprintf("%v: %v %v %v", constraint.Name, lhs, constraint.Sense, constraint.Rhs))
		}
	}

	return violations
}

func evaluate(terms Expr, values []float64) float64 {
	total := 0.0
	for _, term := range terms {
		total += term.Coef * values[term.Var]
	}
	return total
}

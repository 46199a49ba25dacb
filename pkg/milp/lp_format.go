package milp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

const termsPerLine = 8

// ToLP renders the model in CPLEX LP format. Variables and rows get positional names (v<i>, c<i>)
// so that any identifier used by the caller is safe to feed to an external solver
func (model *Model) ToLP() string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "\\ Problem: %v\n", strings.ReplaceAll(model.Name, "\n", " "))
	if model.Maximize {
		builder.WriteString("Maximize\n")
	} else {
		builder.WriteString("Minimize\n")
	}

	builder.WriteString(" obj:")
	objective := lo.Filter(model.Objective, func(term Term, _ int) bool { return term.Coef != 0 })
	if len(objective) == 0 && len(model.Variables) > 0 {
		objective = Expr{{Var: 0, Coef: 0}} // LP readers reject an empty objective
	}
	writeTerms(&builder, objective)
	builder.WriteString("\n")

	builder.WriteString("Subject To\n")
	for i, constraint := range model.Constraints {
		terms := lo.Filter(constraint.Terms, func(term Term, _ int) bool { return term.Coef != 0 })
		if len(terms) == 0 {
			continue
		}
		fmt.Fprintf(&builder, " c%d:", i)
		writeTerms(&builder, terms)
		fmt.Fprintf(&builder, " %v %v\n", constraint.Sense, formatNumber(constraint.Rhs))
	}

	builder.WriteString("Bounds\n")
	for i, variable := range model.Variables {
		if variable.Kind == Binary {
			continue
		}
		if math.IsInf(variable.Upper, 1) {
			fmt.Fprintf(&builder, " v%d >= %v\n", i, formatNumber(variable.Lower))
		} else {
			fmt.Fprintf(&builder, " %v <= v%d <= %v\n", formatNumber(variable.Lower), i, formatNumber(variable.Upper))
		}
	}

	writeSection := func(header string, kind VarKind) {
		indices := make([]string, 0)
		for i, variable := range model.Variables {
			if variable.Kind == kind {
				indices = append(indices, fmt.Sprintf("v%d", i))
			}
		}
		if len(indices) == 0 {
			return
		}
		builder.WriteString(header + "\n")
		for _, chunk := range lo.Chunk(indices, termsPerLine) {
			builder.WriteString(" " + strings.Join(chunk, " ") + "\n")
		}
	}
	writeSection("Binary", Binary)
	writeSection("General", Integer)

	builder.WriteString("End\n")
	return builder.String()
}

// Rows whose coefficients are all zero are left out of the LP file; the ones that cannot hold
// (0 = 3, say) make the model infeasible before any solver runs
func emptyRowsHold(model *Model) bool {
	for _, constraint := range model.Constraints {
		if lo.EveryBy(constraint.Terms, func(term Term) bool { return term.Coef == 0 }) && !holds(0, constraint.Sense, constraint.Rhs) {
			return false
		}
	}
	return true
}

func writeTerms(builder *strings.Builder, terms Expr) {
	for i, term := range terms {
		if i > 0 && i%termsPerLine == 0 {
			builder.WriteString("\n   ")
		}
		sign := "+"
		coef := term.Coef
		if coef < 0 {
			sign = "-"
			coef = -coef
		}
		fmt.Fprintf(builder, " %v %v v%d", sign, formatNumber(coef), term.Var)
	}
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// Maps an LP column name back to its variable position
func parseVarName(name string, variables int) (Var, error) {
	if !strings.HasPrefix(name, "v") {
		return 0, fmt.Errorf("unexpected column name in solver output: %v", name)
	}
	index, err := strconv.Atoi(name[1:])
	if err != nil || index < 0 || index >= variables {
		return 0, fmt.Errorf("unexpected column name in solver output: %v", name)
	}
	return Var(index), nil
}

package model

import (
	"fmt"

	"github.com/limaJavier/coursetabling/pkg/milp"
	"github.com/samber/lo"
)

type loadVariables struct {
	maxMorning,
	minMorning,
	maxEvening,
	minEvening milp.Var
}

type constraintState struct {
	input   ModelInput
	blocks  *BlockSet
	buckets []Bucket
	indexer indexer
	loads   *loadVariables // nil when there are no programs
}

// Terms x[course, block] for every course and block given
func (state constraintState) terms(courses []int, blocks []int) milp.Expr {
	terms := make(milp.Expr, 0, len(courses)*len(blocks))
	for _, course := range courses {
		for _, block := range blocks {
			terms = append(terms, milp.Term{Var: state.indexer.Index(course, block), Coef: 1})
		}
	}
	return terms
}

func (state constraintState) allCourses() []int {
	return lo.Range(len(state.input.Courses))
}

// Σ hours(class) · x[j, z] = hours(j)
func coverageConstraints(state constraintState) []milp.Constraint {
	constraints := make([]milp.Constraint, 0, len(state.input.Courses))
	for course, info := range state.input.Courses {
		terms := make(milp.Expr, 0, state.blocks.Len())
		for block, value := range state.blocks.Blocks {
			terms = append(terms, milp.Term{Var: state.indexer.Index(course, block), Coef: value.Class.Hours()})
		}
		constraints = append(constraints, milp.Constraint{
			Name:  fmt.Sprintf("coverage[%v]", info.Id),
			Terms: terms,
			Sense: milp.Equal,
			Rhs:   info.Hours,
		})
	}
	return constraints
}

// reg(j) · x[j, z] <= capacity(room(z)); rows with reg(j) = 0 always hold and are left out
func capacityConstraints(state constraintState) []milp.Constraint {
	constraints := make([]milp.Constraint, 0)
	for course, info := range state.input.Courses {
		if info.Registration == 0 {
			continue
		}
		for block, value := range state.blocks.Blocks {
			constraints = append(constraints, milp.Constraint{
				Name:  fmt.Sprintf("capacity[%v,%v]", info.Id, block),
				Terms: milp.Expr{{Var: state.indexer.Index(course, block), Coef: float64(info.Registration)}},
				Sense: milp.LessEq,
				Rhs:   float64(state.input.Capacities[value.Room]),
			})
		}
	}
	return constraints
}

// For every block of the class, at most one session among the blocks of its room (any class) starting
// within its span. Any two overlapping blocks of a room share the row of the earlier one. Without
// courses the rows are empty and left out
func roomOverlapConstraints(class DurationClass) func(state constraintState) []milp.Constraint {
	return func(state constraintState) []milp.Constraint {
		constraints := make([]milp.Constraint, 0)
		courses := state.allCourses()
		for block, value := range state.blocks.Blocks {
			if value.Class != class {
				continue
			}
			terms := state.terms(courses, state.blocks.RoomWindow(value))
			if len(terms) == 0 {
				continue
			}
			constraints = append(constraints, milp.Constraint{
				Name:  fmt.Sprintf("room-overlap[%v,%v]", class, block),
				Terms: terms,
				Sense: milp.LessEq,
				Rhs:   1,
			})
		}
		return constraints
	}
}

// Per program: minMorning <= Σ morning sessions <= maxMorning, and the same for the evening
func balanceConstraints(state constraintState) []milp.Constraint {
	if state.loads == nil {
		return nil
	}

	morning, evening := make([]int, 0), make([]int, 0)
	for block, value := range state.blocks.Blocks {
		switch state.buckets[value.Start] {
		case Morning:
			morning = append(morning, block)
		case Evening:
			evening = append(evening, block)
		}
	}

	constraints := make([]milp.Constraint, 0, 4*len(state.input.Programs))
	for _, program := range state.input.Programs {
		courses := state.input.ProgramCourses[program]
		morningTerms := state.terms(courses, morning)
		eveningTerms := state.terms(courses, evening)

		bound := func(name string, terms milp.Expr, load milp.Var, sense milp.Sense) milp.Constraint {
			return milp.Constraint{
				Name:  fmt.Sprintf("%v[%v]", name, program),
				Terms: append(terms[:len(terms):len(terms)], milp.Term{Var: load, Coef: -1}),
				Sense: sense,
				Rhs:   0,
			}
		}
		constraints = append(constraints,
			bound("max-morning", morningTerms, state.loads.maxMorning, milp.LessEq),
			bound("min-morning", morningTerms, state.loads.minMorning, milp.GreaterEq),
			bound("max-evening", eveningTerms, state.loads.maxEvening, milp.LessEq),
			bound("min-evening", eveningTerms, state.loads.minEvening, milp.GreaterEq),
		)
	}
	return constraints
}

// Per program and for every start of a block of the class: at most one core session among the
// blocks of that class, in any room, starting within [start, start + slots(class))
func coreOverlapConstraints(class DurationClass) func(state constraintState) []milp.Constraint {
	return func(state constraintState) []milp.Constraint {
		constraints := make([]milp.Constraint, 0)
		for _, program := range state.input.Programs {
			core := lo.Filter(state.input.ProgramCourses[program], func(course int, _ int) bool {
				return state.input.Courses[course].Core
			})
			if len(core) == 0 {
				continue
			}

			for _, key := range state.blocks.starts {
				if key.class != class {
					continue
				}
				constraints = append(constraints, milp.Constraint{
					Name:  fmt.Sprintf("core-overlap[%v,%v,%v]", program, class, key.start),
					Terms: state.terms(core, state.blocks.ClassWindow(class, key.start)),
					Sense: milp.LessEq,
					Rhs:   1,
				})
			}
		}
		return constraints
	}
}

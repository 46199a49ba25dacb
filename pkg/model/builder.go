package model

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/limaJavier/coursetabling/pkg/milp"
)

type Options struct {
	// Leading slots of each weekday counted as Morning
	MorningSlots int
	// Trailing slots of each weekday counted as Evening
	EveningSlots       int
	SplitAtDayBoundary bool
	// Run the infeasibility diagnostics before building the model
	Presolve     bool
	SolveTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		MorningSlots: 4,
		EveningSlots: 4,
		Presolve:     true,
		SolveTimeout: 10 * time.Minute,
	}
}

// Session is a course taking one block in the block's room
type Session struct {
	Course Course
	Room   string
	Block  Block
}

type Assignment []Session

// Problem is a built model plus what is needed to read its solutions back
type Problem struct {
	Model   *milp.Model
	Blocks  *BlockSet
	Buckets []Bucket

	input   ModelInput
	indexer indexer
}

// BuildModel derives blocks and preference scores from the input and assembles the variables, the
// objective and every constraint family
func BuildModel(input ModelInput, options Options) (*Problem, error) {
	return buildModel(input, GenerateBlocks(input.Grid, options.SplitAtDayBoundary), options)
}

func buildModel(input ModelInput, blocks *BlockSet, options Options) (*Problem, error) {
	//** Derive scores
	buckets := ClassifySlots(input.Grid, options.MorningSlots, options.EveningSlots)
	scores, err := ScorePreferences(input.Courses, buckets, blocks, input.Survey)
	if err != nil {
		return nil, err
	}

	//** Variables
	model := milp.NewModel("coursetabling", true)
	indexer := newIndexer(len(input.Courses), blocks.Len())
	objective := make(milp.Expr, 0, indexer.Len()+4)

	rooms := input.Grid.Rooms()
	for course, info := range input.Courses {
		for block, value := range blocks.Blocks {
			variable := model.AddBinary(fmt.Sprintf("x[%v,%v,%v,%v]", info.Id, rooms[value.Room], value.Class, input.Grid.Label(value.Start)))
			if variable != indexer.Index(course, block) {
				log.Panicf("variable %v does not match its index %v", variable, indexer.Index(course, block))
			}

			emptySeats := input.Capacities[value.Room] - info.Registration
			objective = append(objective, milp.Term{
				Var:  variable,
				Coef: scores.Score(course, value.Start) - float64(emptySeats),
			})
		}
	}

	var loads *loadVariables
	if len(input.Programs) > 0 {
		loads = &loadVariables{
			maxMorning: model.AddContinuous("maxMorningLoad", 0, math.Inf(1)),
			minMorning: model.AddContinuous("minMorningLoad", 0, math.Inf(1)),
			maxEvening: model.AddContinuous("maxEveningLoad", 0, math.Inf(1)),
			minEvening: model.AddContinuous("minEveningLoad", 0, math.Inf(1)),
		}
		objective = append(objective,
			milp.Term{Var: loads.maxMorning, Coef: -1},
			milp.Term{Var: loads.minMorning, Coef: 1},
			milp.Term{Var: loads.maxEvening, Coef: -1},
			milp.Term{Var: loads.minEvening, Coef: 1},
		)
	}
	model.SetObjective(objective)

	//** Constraints
	constraints := []func(state constraintState) []milp.Constraint{
		coverageConstraints,
		capacityConstraints,
		roomOverlapConstraints(Short),
		roomOverlapConstraints(Medium),
		roomOverlapConstraints(Long),
		balanceConstraints,
		coreOverlapConstraints(Short),
		coreOverlapConstraints(Medium),
		coreOverlapConstraints(Long),
	}

	state := constraintState{
		input:   input,
		blocks:  blocks,
		buckets: buckets,
		indexer: indexer,
		loads:   loads,
	}
	for _, constraint := range constraints {
		model.Constraints = append(model.Constraints, constraint(state)...)
	}

	return &Problem{
		Model:   model,
		Blocks:  blocks,
		Buckets: buckets,
		input:   input,
		indexer: indexer,
	}, nil
}

// Decode returns the sessions whose variable is true in the solution, course by course
func (problem *Problem) Decode(solution milp.Solution) Assignment {
	assignment := make(Assignment, 0)
	if solution.Values == nil {
		return assignment
	}

	rooms := problem.input.Grid.Rooms()
	for variable := range problem.indexer.Len() {
		if !solution.True(milp.Var(variable)) {
			continue
		}
		course, block := problem.indexer.Attributes(milp.Var(variable))
		value := problem.Blocks.Blocks[block]
		assignment = append(assignment, Session{
			Course: problem.input.Courses[course],
			Room:   rooms[value.Room],
			Block:  value,
		})
	}
	return assignment
}

// Variable returns the decision variable of course (position in the input) at block
func (problem *Problem) Variable(course, block int) milp.Var {
	return problem.indexer.Index(course, block)
}

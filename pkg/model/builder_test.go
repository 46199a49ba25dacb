package model

import (
	"strings"
	"testing"

	"github.com/limaJavier/coursetabling/pkg/milp"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constraintsNamed(model *milp.Model, prefix string) []milp.Constraint {
	return lo.Filter(model.Constraints, func(constraint milp.Constraint, _ int) bool {
		return strings.HasPrefix(constraint.Name, prefix+"[")
	})
}

func TestVariablesMatchBlockRoom(t *testing.T) {
	//** Arrange
	input := propertyInput(t)

	//** Act
	problem, err := BuildModel(input, DefaultOptions())

	//** Assert
	require.NoError(t, err)
	// One variable per (course, block) plus the four load variables: no (room, course, block)
	// triple with a foreign room exists
	assert.Len(t, problem.Model.Variables, len(input.Courses)*problem.Blocks.Len()+4)
	for course, info := range input.Courses {
		for block, value := range problem.Blocks.Blocks {
			variable := problem.Model.Variables[problem.Variable(course, block)]
			assert.Equal(t, milp.Binary, variable.Kind)
			assert.True(t, strings.HasPrefix(variable.Name, "x["+info.Id+","+input.Grid.Rooms()[value.Room]+","), variable.Name)
		}
	}

	// Every solution decodes to sessions whose room is the block's room
	values := make([]float64, len(problem.Model.Variables))
	for i := range problem.indexer.Len() {
		values[i] = 1
	}
	for _, session := range problem.Decode(milp.Solution{Status: milp.Optimal, Values: values}) {
		assert.Equal(t, input.Grid.Rooms()[session.Block.Room], session.Room)
	}
}

func TestObjective(t *testing.T) {
	//** Arrange
	grid := newTestGrid(t, []string{"R1"}, dayLabels("M", 8, 10), nil)
	courses := []Course{{Id: "CS101", Program: "P", Hours: 1.5, Registration: 12}}
	input, err := ProcessRawInput(RawModelInput{
		Grid:    grid,
		Courses: courses,
		Rooms:   []Room{{Id: "R1", Capacity: 20}},
		Preferences: []Preference{
			{Course: "CS101", Bucket: Morning, Average: 5},
			{Course: "CS101", Bucket: Afternoon, Average: 3},
			{Course: "CS101", Bucket: Evening, Average: 1},
		},
	})
	require.NoError(t, err)

	//** Act
	problem, err := BuildModel(input, DefaultOptions())
	require.NoError(t, err)

	//** Assert
	coefficients := make(map[milp.Var]float64)
	for _, term := range problem.Model.Objective {
		coefficients[term.Var] += term.Coef
	}
	for block, value := range problem.Blocks.Blocks {
		expected := map[Bucket]float64{Morning: 5, Afternoon: 3, Evening: 1}[problem.Buckets[value.Start]] - (20 - 12)
		assert.Equal(t, expected, coefficients[problem.Variable(0, block)])
	}

	// -(max - min) for both loads
	loads := problem.Model.Variables[problem.indexer.Len():]
	require.Len(t, loads, 4)
	base := milp.Var(problem.indexer.Len())
	assert.Equal(t, -1.0, coefficients[base])
	assert.Equal(t, 1.0, coefficients[base+1])
	assert.Equal(t, -1.0, coefficients[base+2])
	assert.Equal(t, 1.0, coefficients[base+3])
	for _, variable := range loads {
		assert.Equal(t, milp.Continuous, variable.Kind)
	}
}

func TestConstraintFamilies(t *testing.T) {
	//** Arrange
	input := propertyInput(t)

	//** Act
	problem, err := BuildModel(input, DefaultOptions())
	require.NoError(t, err)
	model, blocks := problem.Model, problem.Blocks

	t.Run("Coverage", func(t *testing.T) {
		coverage := constraintsNamed(model, "coverage")
		require.Len(t, coverage, len(input.Courses))
		for course, constraint := range coverage {
			assert.Equal(t, milp.Equal, constraint.Sense)
			assert.Equal(t, input.Courses[course].Hours, constraint.Rhs)
			assert.Len(t, constraint.Terms, blocks.Len())
			for _, term := range constraint.Terms {
				_, block := problem.indexer.Attributes(term.Var)
				assert.Equal(t, blocks.Blocks[block].Class.Hours(), term.Coef)
			}
		}
	})

	t.Run("Capacity", func(t *testing.T) {
		capacity := constraintsNamed(model, "capacity")
		assert.Len(t, capacity, len(input.Courses)*blocks.Len())
		for _, constraint := range capacity {
			require.Len(t, constraint.Terms, 1)
			course, block := problem.indexer.Attributes(constraint.Terms[0].Var)
			assert.Equal(t, float64(input.Courses[course].Registration), constraint.Terms[0].Coef)
			assert.Equal(t, float64(input.Capacities[blocks.Blocks[block].Room]), constraint.Rhs)
			assert.Equal(t, milp.LessEq, constraint.Sense)
		}
	})

	t.Run("Room overlap covers every overlapping pair", func(t *testing.T) {
		rows := constraintsNamed(model, "room-overlap")
		assert.Len(t, rows, blocks.Len())

		for i, first := range blocks.Blocks {
			for j, second := range blocks.Blocks {
				if first.Room != second.Room || !first.Overlaps(second) {
					continue
				}
				// Some row holds both blocks for any pair of courses
				shared := lo.SomeBy(rows, func(row milp.Constraint) bool {
					return lo.SomeBy(row.Terms, func(term milp.Term) bool { return term.Var == problem.Variable(0, i) }) &&
						lo.SomeBy(row.Terms, func(term milp.Term) bool { return term.Var == problem.Variable(2, j) })
				})
				assert.True(t, shared, "blocks %+v and %+v", first, second)
			}
		}

		for _, row := range rows {
			assert.Equal(t, 1.0, row.Rhs)
			for _, term := range row.Terms {
				_, block := problem.indexer.Attributes(term.Var)
				_, anchor := problem.indexer.Attributes(row.Terms[0].Var)
				assert.Equal(t, blocks.Blocks[anchor].Room, blocks.Blocks[block].Room)
			}
		}
	})

	t.Run("Balance", func(t *testing.T) {
		for _, prefix := range []string{"max-morning", "min-morning", "max-evening", "min-evening"} {
			rows := constraintsNamed(model, prefix)
			assert.Len(t, rows, len(input.Programs), prefix)
			for _, row := range rows {
				last := row.Terms[len(row.Terms)-1]
				assert.Equal(t, -1.0, last.Coef)
				assert.GreaterOrEqual(t, int(last.Var), problem.indexer.Len())
				for _, term := range row.Terms[:len(row.Terms)-1] {
					_, block := problem.indexer.Attributes(term.Var)
					bucket := problem.Buckets[blocks.Blocks[block].Start]
					if strings.HasSuffix(prefix, "morning") {
						assert.Equal(t, Morning, bucket)
					} else {
						assert.Equal(t, Evening, bucket)
					}
				}
			}
		}
	})

	t.Run("Core overlap only involves core courses of one class", func(t *testing.T) {
		rows := constraintsNamed(model, "core-overlap")
		assert.NotEmpty(t, rows)
		for _, row := range rows {
			classes := make(map[DurationClass]bool)
			for _, term := range row.Terms {
				course, block := problem.indexer.Attributes(term.Var)
				assert.True(t, input.Courses[course].Core)
				assert.Equal(t, "P", input.Courses[course].Program)
				classes[blocks.Blocks[block].Class] = true
			}
			assert.Len(t, classes, 1)
		}
	})
}

func TestNoProgramsNoLoads(t *testing.T) {
	grid := newTestGrid(t, []string{"R1"}, dayLabels("M", 8, 6), nil)
	input := newTestInput(t, grid, nil, 10)

	problem, err := BuildModel(input, DefaultOptions())

	require.NoError(t, err)
	assert.Empty(t, problem.Model.Variables)
	assert.Empty(t, problem.Model.Constraints)
}

func TestMissingPreferenceAbortsBuild(t *testing.T) {
	grid := newTestGrid(t, []string{"R1"}, dayLabels("M", 8, 6), nil)
	input := newTestInput(t, grid, []Course{{Id: "CS101", Program: "P", Hours: 3}}, 10)
	delete(input.Survey["CS101"], Morning)

	_, err := BuildModel(input, DefaultOptions())

	assert.ErrorAs(t, err, &MissingPreferenceError{})
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepresentable(t *testing.T) {
	cases := map[float64]bool{
		0:    true,
		1:    false,
		1.5:  true,
		2:    true,
		2.5:  false,
		3:    true,
		3.5:  true,
		4.5:  true,
		5:    true,
		1.25: false,
		7.5:  true,
	}

	for hours, expected := range cases {
		assert.Equal(t, expected, representable(hours), "hours %v", hours)
	}
}

func TestDiagnose(t *testing.T) {
	t.Run("Feasible input passes", func(t *testing.T) {
		input := propertyInput(t)

		assert.NoError(t, diagnose(input, GenerateBlocks(input.Grid, false)))
	})

	t.Run("Course without a large enough room", func(t *testing.T) {
		grid := newTestGrid(t, []string{"R1", "R2"}, dayLabels("M", 8, 6), map[[2]int]string{{0, 1}: "X"})
		courses := []Course{
			{Id: "CS101", Program: "P", Hours: 1.5, Registration: 60},
			{Id: "CS102", Program: "P", Hours: 0, Registration: 60},
		}
		input := newTestInput(t, grid, courses, 30, 40)

		err := diagnose(input, GenerateBlocks(grid, false))

		var infeasible InfeasibleModelError
		require.ErrorAs(t, err, &infeasible)
		assert.Equal(t, []string{"CS101"}, infeasible.Courses)
	})

	t.Run("Core courses outnumber start positions", func(t *testing.T) {
		// Four free slots leave two short starts and one medium start
		grid := newTestGrid(t, []string{"R1", "R2"}, dayLabels("M", 8, 4), nil)
		courses := []Course{
			{Id: "CS101", Program: "P", Hours: 1.5, Core: true},
			{Id: "CS102", Program: "P", Hours: 1.5, Core: true},
			{Id: "CS103", Program: "P", Hours: 2, Core: true},
			{Id: "CS104", Program: "P", Hours: 1.5, Core: true},
			{Id: "MA201", Program: "Q", Hours: 1.5, Core: true},
		}
		input := newTestInput(t, grid, courses, 30, 30)

		err := diagnose(input, GenerateBlocks(grid, false))

		var infeasible InfeasibleModelError
		require.ErrorAs(t, err, &infeasible)
		assert.Len(t, infeasible.Courses, 1)
		assert.Contains(t, infeasible.Reason, `"P"`)
	})
}

func TestMatchCorePositions(t *testing.T) {
	grid := newTestGrid(t, []string{"R1", "R2"}, dayLabels("M", 8, 4), nil)
	blocks := GenerateBlocks(grid, false)
	capacities := []int{10, 100}
	registrations := []int{50, 50, 5}
	fits := func(course, block int) bool {
		return capacities[blocks.Blocks[block].Room] >= registrations[course]
	}

	unmatched, err := matchCorePositions([]int{0, 1, 2}, blocks, fits)

	require.NoError(t, err)
	assert.Empty(t, unmatched)
}

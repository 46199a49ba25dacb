package model

import (
	"fmt"
	"math"

	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

// Half-hour lengths of the duration classes
var classHalfHours = lo.Map(DurationClasses, func(class DurationClass, _ int) int { return class.Slots() })

// diagnose detects, before any solving, infeasibilities that can be explained course by course:
// courses without a room large enough, hours no combination of blocks adds up to, and core courses
// of a program competing for fewer (class, start) positions than there are courses
func diagnose(input ModelInput, blocks *BlockSet) error {
	//** Fitting rooms
	fits := func(course int, block int) bool {
		return input.Capacities[blocks.Blocks[block].Room] >= input.Courses[course].Registration
	}

	unplaceable := make([]string, 0)
	for course, info := range input.Courses {
		if info.Hours == 0 {
			continue
		}
		if !lo.SomeBy(lo.Range(blocks.Len()), func(block int) bool { return fits(course, block) }) {
			unplaceable = append(unplaceable, info.Id)
		}
	}
	if len(unplaceable) > 0 {
		return InfeasibleModelError{Reason: "no free block in a room large enough for", Courses: unplaceable}
	}

	//** Representable hours
	unrepresentable := lo.FilterMap(input.Courses, func(course Course, _ int) (string, bool) {
		return course.Id, !representable(course.Hours)
	})
	if len(unrepresentable) > 0 {
		return InfeasibleModelError{Reason: "weekly hours are not a sum of 1.5, 2 and 3 hour sessions for", Courses: unrepresentable}
	}

	//** Core courses of each program need pairwise distinct (class, start) positions
	for _, program := range input.Programs {
		core := lo.Filter(input.ProgramCourses[program], func(course int, _ int) bool {
			return input.Courses[course].Core && input.Courses[course].Hours > 0
		})
		if len(core) < 2 {
			continue
		}

		unmatched, err := matchCorePositions(core, blocks, fits)
		if err != nil {
			return err
		}
		if len(unmatched) > 0 {
			return InfeasibleModelError{
				Reason:  fmt.Sprintf("core courses of program %q cannot all start at distinct times", program),
				Courses: lo.Map(unmatched, func(course int, _ int) string { return input.Courses[course].Id }),
			}
		}
	}

	return nil
}

// Whether hours is a non-negative integer combination of 1.5, 2 and 3
func representable(hours float64) bool {
	halfHours := hours * 2
	if math.Abs(halfHours-math.Round(halfHours)) > 1e-9 {
		return false
	}
	target := int(math.Round(halfHours))

	reachable := make([]bool, target+1)
	reachable[0] = true
	for value := 1; value <= target; value++ {
		reachable[value] = lo.SomeBy(classHalfHours, func(length int) bool {
			return value >= length && reachable[value-length]
		})
	}
	return reachable[target]
}

// Two core sessions of a program may never start at the same (class, start), so every core course
// needs its own position. Returns the courses left out of a largest matching
func matchCorePositions(core []int, blocks *BlockSet, fits func(course, block int) bool) ([]int, error) {
	neighbors := func(courseAny any, positionAny any) (bool, error) {
		course := courseAny.(int)
		position := positionAny.(classStart)

		return lo.SomeBy(blocks.AtClassStart(position.class, position.start), func(block int) bool {
			return fits(course, block)
		}), nil
	}

	coursesAny := lo.Map(core, func(course int, _ int) any { return course })
	positionsAny := lo.Map(blocks.starts, func(position classStart, _ int) any { return position })

	graph, err := bipartitegraph.NewBipartiteGraph(coursesAny, positionsAny, neighbors)
	if err != nil {
		return nil, err
	}

	matching := graph.LargestMatching()
	if len(matching) == len(core) {
		return nil, nil
	}

	matched := make(map[int]bool, len(matching))
	for _, edge := range matching {
		matched[core[edge.Node1]] = true
	}
	return lo.Filter(core, func(course int, _ int) bool { return !matched[course] }), nil
}

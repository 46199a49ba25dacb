package model

import (
	"fmt"
	"math"

	"github.com/samber/lo"
)

const hoursTolerance = 1e-6

// verify checks an assignment against the input: every block lies on free cells of its own room,
// rooms fit the predicted registration, no cell is booked twice, each course gets exactly its weekly
// hours and core sessions of a program never overlap within a duration class
func verify(assignment Assignment, input ModelInput) error {
	grid := input.Grid
	courses := lo.SliceToMap(input.Courses, func(course Course) (string, Course) { return course.Id, course })

	booked := make(map[roomStart]string)
	hours := make(map[string]float64)
	for _, session := range assignment {
		block := session.Block
		course, ok := courses[session.Course.Id]
		if !ok {
			return fmt.Errorf("session of unknown course %q", session.Course.Id)
		}

		// Block placement and room match
		if !grid.inRange(block.Room, block.Start) || !grid.inRange(block.Room, block.End()-1) {
			return InvalidBlockError{Block: block, Reason: "outside the grid"}
		}
		if room := grid.Rooms()[block.Room]; session.Room != room {
			return fmt.Errorf("course %q is assigned to room %q but its block belongs to room %q", course.Id, session.Room, room)
		}

		// Capacity
		if capacity := input.Capacities[block.Room]; capacity < course.Registration {
			return fmt.Errorf("course %q expects %v students but room %q seats %v", course.Id, course.Registration, session.Room, capacity)
		}

		// Free cells, no double booking
		for slot := block.Start; slot < block.End(); slot++ {
			if !grid.IsFree(block.Room, slot) {
				return fmt.Errorf("course %q is placed on occupied cell %v/%v", course.Id, session.Room, grid.Label(slot))
			}
			key := roomStart{room: block.Room, start: slot}
			if other, ok := booked[key]; ok {
				return fmt.Errorf("courses %q and %q share cell %v/%v", other, course.Id, session.Room, grid.Label(slot))
			}
			booked[key] = course.Id
		}

		hours[course.Id] += block.Class.Hours()
	}

	// Coverage
	for _, course := range input.Courses {
		if math.Abs(hours[course.Id]-course.Hours) > hoursTolerance {
			return fmt.Errorf("course %q is scheduled for %v hours instead of %v", course.Id, hours[course.Id], course.Hours)
		}
	}

	// Core separation
	for _, program := range input.Programs {
		core := lo.Filter(assignment, func(session Session, _ int) bool {
			return session.Course.Program == program && courses[session.Course.Id].Core
		})
		for i := range core {
			for j := i + 1; j < len(core); j++ {
				first, second := core[i].Block, core[j].Block
				if first.Class == second.Class && first.Overlaps(second) {
					return fmt.Errorf("core courses %q and %q of program %q overlap at %v", core[i].Course.Id, core[j].Course.Id, program, grid.Label(max(first.Start, second.Start)))
				}
			}
		}
	}

	return nil
}

package model

import "strings"

// Commit writes every session onto a copy of grid, filling each slot of the block with the course id.
// The input grid is left untouched. A cell claimed twice by the assignment, or already holding
// something else, fails with OverwriteConflictError; a cell already holding the same course id is
// kept, so committing an assignment onto its own result changes nothing
func Commit(grid *Grid, assignment Assignment) (*Grid, error) {
	committed := grid.Clone()
	written := make(map[roomStart]string)

	for _, session := range assignment {
		block := session.Block
		if !grid.inRange(block.Room, block.Start) || !grid.inRange(block.Room, block.End()-1) {
			return nil, InvalidBlockError{Block: block, Reason: "outside the grid"}
		}
		room := grid.Rooms()[block.Room]
		if session.Room != "" && session.Room != room {
			return nil, InvalidBlockError{Block: block, Reason: "block belongs to room " + room + ", not " + session.Room}
		}

		for slot := block.Start; slot < block.End(); slot++ {
			key := roomStart{room: block.Room, start: slot}
			conflict := OverwriteConflictError{
				Room:     room,
				Slot:     slot,
				Label:    grid.Label(slot),
				Incoming: session.Course.Id,
			}

			if previous, ok := written[key]; ok {
				conflict.Existing = previous
				return nil, conflict
			}
			if cell := grid.Cell(block.Room, slot); !isFreeCell(cell) && strings.TrimSpace(cell) != session.Course.Id {
				conflict.Existing = cell
				return nil, conflict
			}

			written[key] = session.Course.Id
			committed.cells[slot][block.Room] = session.Course.Id
		}
	}

	return committed, nil
}

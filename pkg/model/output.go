package model

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
)

// WriteOccupancy serialises the grid in the layout it was read from, free cells as 0. The table is
// written next to path and renamed into place, so a failed write leaves no partial file
func WriteOccupancy(path string, grid *Grid) error {
	return writeAtomically(path, func(file *os.File) error {
		writer := csv.NewWriter(file)

		header := append([]string{grid.indexHeader, "Time"}, grid.Rooms()...)
		if err := writer.Write(header); err != nil {
			return err
		}
		for _, slot := range grid.Slots() {
			row := make([]string, 0, len(header))
			row = append(row, grid.index[slot], grid.rawLabels[slot])
			for room := range grid.Rooms() {
				cell := grid.Cell(room, slot)
				if isFreeCell(cell) {
					cell = "0"
				}
				row = append(row, cell)
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}

		writer.Flush()
		return writer.Error()
	})
}

type sessionRow struct {
	Course  string  `csv:"course"`
	Program string  `csv:"program"`
	Room    string  `csv:"room"`
	Class   string  `csv:"class"`
	Start   string  `csv:"start"`
	End     string  `csv:"end"`
	Day     string  `csv:"day"`
	Hours   float64 `csv:"hours"`
}

// WriteSessions lists one row per scheduled session
func WriteSessions(path string, assignment Assignment, grid *Grid) error {
	rows := lo.Map(assignment, func(session Session, _ int) sessionRow {
		block := session.Block
		start := grid.Label(block.Start)
		last := grid.Label(block.End() - 1)
		return sessionRow{
			Course:  session.Course.Id,
			Program: session.Course.Program,
			Room:    session.Room,
			Class:   block.Class.String(),
			Start:   start.String(),
			End:     last.Day + strconv.FormatFloat(last.Time+0.5, 'f', 1, 64),
			Day:     start.Day,
			Hours:   block.Class.Hours(),
		}
	})

	return writeAtomically(path, func(file *os.File) error {
		return gocsv.MarshalFile(&rows, file)
	})
}

func writeAtomically(path string, write func(file *os.File) error) error {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("cannot create temporary file for %v: %w", path, err)
	}
	defer os.Remove(file.Name())

	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("cannot write %v: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("cannot write %v: %w", path, err)
	}
	if err := os.Chmod(file.Name(), 0o644); err != nil {
		return fmt.Errorf("cannot write %v: %w", path, err)
	}
	if err := os.Rename(file.Name(), path); err != nil {
		return fmt.Errorf("cannot move %v into place: %w", path, err)
	}
	return nil
}

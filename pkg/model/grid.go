package model

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Slot is the ordinal position of a 30-minute row inside the weekly grid
type Slot int

// SlotLabel is the decoded form of a time label such as "M8.0" or "Th21.5"
type SlotLabel struct {
	Day  string  // Canonical day code: M, T, W, Th, F, Sa, Su
	Time float64 // Hour of the day, half hours as .5
}

func (label SlotLabel) String() string {
	return label.Day + strconv.FormatFloat(label.Time, 'f', 1, 64)
}

func (label SlotLabel) Weekday() bool {
	return label.Day != "Sa" && label.Day != "Su"
}

var dayCodes = map[string]string{
	"m": "M", "mon": "M", "monday": "M",
	"t": "T", "tu": "T", "tue": "T", "tues": "T", "tuesday": "T",
	"w": "W", "wed": "W", "wednesday": "W",
	"th": "Th", "thu": "Th", "thur": "Th", "thurs": "Th", "thursday": "Th",
	"f": "F", "fri": "F", "friday": "F",
	"sa": "Sa", "sat": "Sa", "saturday": "Sa",
	"su": "Su", "sun": "Su", "sunday": "Su",
}

// ParseSlotLabel accepts compact labels ("M8.0", "Th21.5") as well as "Monday 8:00" / "Tue 13:30"
func ParseSlotLabel(raw string) (SlotLabel, error) {
	text := strings.TrimSpace(raw)
	split := strings.IndexFunc(text, func(r rune) bool { return !unicode.IsLetter(r) })
	if split <= 0 {
		return SlotLabel{}, fmt.Errorf("invalid time label %q", raw)
	}

	day, ok := dayCodes[strings.ToLower(text[:split])]
	if !ok {
		return SlotLabel{}, fmt.Errorf("invalid day in time label %q", raw)
	}

	clock := strings.TrimSpace(text[split:])
	var hours float64
	if hour, minutes, found := strings.Cut(clock, ":"); found {
		h, errHour := strconv.Atoi(hour)
		m, errMinutes := strconv.Atoi(minutes)
		if errHour != nil || errMinutes != nil || m < 0 || m >= 60 {
			return SlotLabel{}, fmt.Errorf("invalid time in time label %q", raw)
		}
		hours = float64(h) + float64(m)/60
	} else {
		value, err := strconv.ParseFloat(clock, 64)
		if err != nil {
			return SlotLabel{}, fmt.Errorf("invalid time in time label %q", raw)
		}
		hours = value
	}
	if hours < 0 || hours >= 24 {
		return SlotLabel{}, fmt.Errorf("time out of range in time label %q", raw)
	}

	return SlotLabel{Day: day, Time: hours}, nil
}

// Grid is the room × slot occupancy matrix. Cells hold the raw table value: free cells are empty,
// NaN or numerically zero, anything else is an occupation (a fixed commitment or a course id)
type Grid struct {
	indexHeader string
	index       []string // Original index column, kept for output
	rawLabels   []string
	labels      []SlotLabel
	rooms       []string
	roomIndex   map[string]int
	cells       [][]string // [slot][room]
}

// NewGrid builds a grid from rows in slot order. Labels must be unique; cells[slot] must have one
// value per room
func NewGrid(rooms []string, labels []string, cells [][]string) (*Grid, error) {
	if len(cells) != len(labels) {
		return nil, fmt.Errorf("grid has %v labels but %v rows", len(labels), len(cells))
	}

	roomIndex := make(map[string]int, len(rooms))
	for i, room := range rooms {
		if room == "" {
			return nil, fmt.Errorf("room column %v has no identifier", i)
		}
		if _, ok := roomIndex[room]; ok {
			return nil, fmt.Errorf("room %q appears more than once in the occupancy table", room)
		}
		roomIndex[room] = i
	}

	parsed := make([]SlotLabel, len(labels))
	seen := make(map[SlotLabel]int, len(labels))
	for slot, raw := range labels {
		label, err := ParseSlotLabel(raw)
		if err != nil {
			return nil, fmt.Errorf("row %v: %w", slot, err)
		}
		if previous, ok := seen[label]; ok {
			return nil, fmt.Errorf("rows %v and %v share the time label %v", previous, slot, label)
		}
		seen[label] = slot
		parsed[slot] = label
	}

	grid := &Grid{
		index:     make([]string, len(labels)),
		rawLabels: slices.Clone(labels),
		labels:    parsed,
		rooms:     slices.Clone(rooms),
		roomIndex: roomIndex,
		cells:     make([][]string, len(cells)),
	}
	for slot, row := range cells {
		if len(row) != len(rooms) {
			return nil, fmt.Errorf("row %v has %v cells for %v rooms", slot, len(row), len(rooms))
		}
		grid.cells[slot] = slices.Clone(row)
		grid.index[slot] = strconv.Itoa(slot)
	}
	return grid, nil
}

// Keeps the index column of the source table so it can be written back unchanged
func (grid *Grid) setIndex(header string, index []string) error {
	if len(index) != len(grid.labels) {
		return fmt.Errorf("index column has %v values for %v rows", len(index), len(grid.labels))
	}
	grid.indexHeader = header
	grid.index = slices.Clone(index)
	return nil
}

func (grid *Grid) Rooms() []string {
	return grid.rooms
}

func (grid *Grid) RoomIndex(room string) (int, bool) {
	index, ok := grid.roomIndex[room]
	return index, ok
}

// Slots returns every slot in grid order
func (grid *Grid) Slots() []Slot {
	slots := make([]Slot, len(grid.labels))
	for i := range slots {
		slots[i] = Slot(i)
	}
	return slots
}

func (grid *Grid) Len() int {
	return len(grid.labels)
}

func (grid *Grid) Label(slot Slot) SlotLabel {
	return grid.labels[slot]
}

func (grid *Grid) SlotFor(day string, time float64) (Slot, bool) {
	code, ok := dayCodes[strings.ToLower(day)]
	if !ok {
		return 0, false
	}
	target := SlotLabel{Day: code, Time: time}
	index := slices.Index(grid.labels, target)
	return Slot(index), index >= 0
}

func (grid *Grid) Cell(room int, slot Slot) string {
	return grid.cells[slot][room]
}

func (grid *Grid) IsFree(room int, slot Slot) bool {
	return isFreeCell(grid.cells[slot][room])
}

func (grid *Grid) inRange(room int, slot Slot) bool {
	return room >= 0 && room < len(grid.rooms) && slot >= 0 && int(slot) < len(grid.labels)
}

// Clone returns a deep copy; grids are never shared between the build and commit phases
func (grid *Grid) Clone() *Grid {
	clone := *grid
	clone.index = slices.Clone(grid.index)
	clone.rawLabels = slices.Clone(grid.rawLabels)
	clone.labels = slices.Clone(grid.labels)
	clone.rooms = slices.Clone(grid.rooms)
	clone.cells = make([][]string, len(grid.cells))
	for slot, row := range grid.cells {
		clone.cells[slot] = slices.Clone(row)
	}
	return &clone
}

func (grid *Grid) Equal(other *Grid) bool {
	if len(grid.cells) != len(other.cells) || !slices.Equal(grid.rooms, other.rooms) || !slices.Equal(grid.labels, other.labels) {
		return false
	}
	for slot := range grid.cells {
		if !slices.Equal(grid.cells[slot], other.cells[slot]) {
			return false
		}
	}
	return true
}

func isFreeCell(cell string) bool {
	cell = strings.TrimSpace(cell)
	if cell == "" || strings.EqualFold(cell, "nan") {
		return true
	}
	value, err := strconv.ParseFloat(cell, 64)
	return err == nil && value == 0
}

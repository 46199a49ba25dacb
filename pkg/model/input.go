package model

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
)

type Course struct {
	Id           string
	Program      string
	Hours        float64 // Required weekly contact hours
	Registration int     // Predicted registration count
	Core         bool
}

type Room struct {
	Id       string
	Capacity int
}

type Preference struct {
	Course  string
	Bucket  Bucket
	Average float64
}

type RawModelInput struct {
	Grid        *Grid
	Courses     []Course
	Rooms       []Room
	Preferences []Preference
}

type ModelInput struct {
	Grid       *Grid
	Courses    []Course
	Capacities []int // Indexed like grid.Rooms()
	Programs   []string
	// Positions in Courses of each program's courses
	ProgramCourses map[string][]int
	Survey         map[string]map[Bucket]float64
}

func ProcessRawInput(rawInput RawModelInput) (ModelInput, error) {
	if rawInput.Grid == nil {
		return ModelInput{}, errors.New("missing occupancy grid")
	}

	//** Courses
	if duplicates := lo.FindDuplicatesBy(rawInput.Courses, func(course Course) string { return course.Id }); len(duplicates) > 0 {
		return ModelInput{}, fmt.Errorf("course %q appears more than once", duplicates[0].Id)
	}
	for _, course := range rawInput.Courses {
		if course.Hours < 0 || course.Registration < 0 {
			return ModelInput{}, fmt.Errorf("course %q has negative hours or registration", course.Id)
		}
	}

	//** Rooms
	capacities := make(map[string]int, len(rawInput.Rooms))
	for _, room := range rawInput.Rooms {
		if _, ok := capacities[room.Id]; ok {
			return ModelInput{}, fmt.Errorf("room %q appears more than once", room.Id)
		}
		if room.Capacity < 0 {
			return ModelInput{}, fmt.Errorf("room %q has a negative capacity", room.Id)
		}
		capacities[room.Id] = room.Capacity
	}
	gridCapacities := make([]int, len(rawInput.Grid.Rooms()))
	for i, room := range rawInput.Grid.Rooms() {
		capacity, ok := capacities[room]
		if !ok {
			return ModelInput{}, fmt.Errorf("room %q of the occupancy table has no capacity", room)
		}
		gridCapacities[i] = capacity
	}

	//** Programs
	programs := lo.Uniq(lo.Map(rawInput.Courses, func(course Course, _ int) string { return course.Program }))
	programCourses := make(map[string][]int, len(programs))
	for i, course := range rawInput.Courses {
		programCourses[course.Program] = append(programCourses[course.Program], i)
	}

	//** Survey
	survey := make(map[string]map[Bucket]float64)
	for _, preference := range rawInput.Preferences {
		if _, ok := survey[preference.Course]; !ok {
			survey[preference.Course] = make(map[Bucket]float64)
		}
		if _, ok := survey[preference.Course][preference.Bucket]; ok {
			return ModelInput{}, fmt.Errorf("course %q has more than one %v preference", preference.Course, preference.Bucket)
		}
		survey[preference.Course][preference.Bucket] = preference.Average
	}

	return ModelInput{
		Grid:           rawInput.Grid,
		Courses:        slices.Clone(rawInput.Courses),
		Capacities:     gridCapacities,
		Programs:       programs,
		ProgramCourses: programCourses,
		Survey:         survey,
	}, nil
}

var validate = validator.New()

type courseRow struct {
	Course       string  `csv:"course" validate:"required"`
	Program      string  `csv:"program" validate:"required"`
	Hours        float64 `csv:"hours_per_week" validate:"gte=0"`
	Registration float64 `csv:"pred_reg_count" validate:"gte=0"`
	Core         int     `csv:"core" validate:"oneof=0 1"`
}

type preferenceRow struct {
	Course  string  `csv:"course_code" validate:"required"`
	Time    string  `csv:"time" validate:"oneof=Morning Afternoon Evening"`
	Average float64 `csv:"avg_pref"`
}

type roomRow struct {
	Room string  `csv:"room" validate:"required"`
	Size float64 `csv:"Size" validate:"gte=0"`
}

// InputFromCSV reads the occupancy, course, preference and room tables
func InputFromCSV(occupancyFile, coursesFile, preferencesFile, roomsFile string) (ModelInput, error) {
	grid, err := ReadOccupancy(occupancyFile)
	if err != nil {
		return ModelInput{}, err
	}

	courseRows, err := readTable[courseRow](coursesFile, "", "course", "program", "hours_per_week", "pred_reg_count", "core")
	if err != nil {
		return ModelInput{}, err
	}
	courses := make([]Course, 0, len(courseRows))
	for _, row := range courseRows {
		if row.Registration != math.Trunc(row.Registration) {
			return ModelInput{}, fmt.Errorf("%v: course %q has a fractional registration count %v", coursesFile, row.Course, row.Registration)
		}
		courses = append(courses, Course{
			Id:           strings.TrimSpace(row.Course),
			Program:      strings.TrimSpace(row.Program),
			Hours:        row.Hours,
			Registration: int(row.Registration),
			Core:         row.Core == 1,
		})
	}

	preferenceRows, err := readTable[preferenceRow](preferencesFile, "", "course_code", "time", "avg_pref")
	if err != nil {
		return ModelInput{}, err
	}
	preferences := make([]Preference, 0, len(preferenceRows))
	for _, row := range preferenceRows {
		bucket, err := ParseBucket(row.Time)
		if err != nil {
			return ModelInput{}, fmt.Errorf("%v: %w", preferencesFile, err)
		}
		preferences = append(preferences, Preference{Course: strings.TrimSpace(row.Course), Bucket: bucket, Average: row.Average})
	}

	// The room identifier column has no fixed header
	roomRows, err := readTable[roomRow](roomsFile, "room", "room", "Size")
	if err != nil {
		return ModelInput{}, err
	}
	rooms := make([]Room, 0, len(roomRows))
	for _, row := range roomRows {
		if row.Size != math.Trunc(row.Size) {
			return ModelInput{}, fmt.Errorf("%v: room %q has a fractional size %v", roomsFile, row.Room, row.Size)
		}
		rooms = append(rooms, Room{Id: strings.TrimSpace(row.Room), Capacity: int(row.Size)})
	}

	return ProcessRawInput(RawModelInput{
		Grid:        grid,
		Courses:     courses,
		Rooms:       rooms,
		Preferences: preferences,
	})
}

// headerReader feeds gocsv, normalising the header row (trimmed, optionally renaming the first
// column) and checking the required columns are present
type headerReader struct {
	reader   *csv.Reader
	first    string
	required []string
	header   bool
}

func (reader *headerReader) Read() ([]string, error) {
	record, err := reader.reader.Read()
	if err != nil || reader.header {
		return record, err
	}
	reader.header = true
	return reader.normalise(record)
}

func (reader *headerReader) ReadAll() ([][]string, error) {
	records := make([][]string, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		} else if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}

func (reader *headerReader) normalise(header []string) ([]string, error) {
	header = lo.Map(header, func(column string, _ int) string {
		return strings.TrimSpace(strings.TrimPrefix(column, "\ufeff"))
	})
	if reader.first != "" && len(header) > 0 {
		header[0] = reader.first
	}
	for _, column := range reader.required {
		if !slices.Contains(header, column) {
			return nil, fmt.Errorf("missing column %q", column)
		}
	}
	return header, nil
}

func readTable[T any](path string, first string, required ...string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %v: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows := make([]T, 0)
	if err := gocsv.UnmarshalCSV(&headerReader{reader: reader, first: first, required: required}, &rows); err != nil {
		return nil, fmt.Errorf("cannot parse %v: %w", path, err)
	}

	for i, row := range rows {
		if err := validate.Struct(row); err != nil {
			return nil, fmt.Errorf("%v row %v: %w", path, i+2, err)
		}
	}
	return rows, nil
}

// ReadOccupancy parses a table whose header is "<index>,Time,<room>..." and whose rows are the
// slots in weekly order
func ReadOccupancy(path string) (*Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %v: %w", path, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cannot parse %v: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%v is empty", path)
	}

	header := lo.Map(records[0], func(column string, _ int) string {
		return strings.TrimSpace(strings.TrimPrefix(column, "\ufeff"))
	})
	if len(header) < 2 || !strings.EqualFold(header[1], "Time") {
		return nil, fmt.Errorf("%v: expected the header <index>,Time,<rooms...>", path)
	}

	rows := records[1:]
	index := lo.Map(rows, func(row []string, _ int) string { return row[0] })
	labels := lo.Map(rows, func(row []string, _ int) string { return row[1] })
	cells := lo.Map(rows, func(row []string, _ int) []string { return row[2:] })

	grid, err := NewGrid(header[2:], labels, cells)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	if err := grid.setIndex(header[0], index); err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return grid, nil
}

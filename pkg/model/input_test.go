package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type csvFiles struct {
	occupancy, courses, preferences, rooms string
}

const (
	occupancyTable = ",Time,R1,R2\n" +
		"0,M8.0,0,0\n" +
		"1,M8.5,0,BIO100\n" +
		"2,M9.0,nan,BIO100\n" +
		"3,M9.5,0.0,0\n"
	coursesTable = "course,program,hours_per_week,pred_reg_count,core\n" +
		"CS101,P,1.5,30,1\n" +
		"MA201,Q,2,40.0,0\n"
	preferencesTable = "\ufeffcourse_code,time,avg_pref\n" +
		"CS101,Morning,4.5\n" +
		"CS101,Afternoon,3\n" +
		"CS101,Evening,1\n" +
		"MA201,Morning,2\n" +
		"MA201,Afternoon,2.5\n" +
		"MA201,Evening,3\n"
	roomsTable = "Unnamed: 0,Size\n" +
		"R1,35\n" +
		"R2,50\n" +
		"R3,10\n"
)

func writeTables(t *testing.T, occupancy, courses, preferences, rooms string) csvFiles {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	return csvFiles{
		occupancy:   write("occupancy.csv", occupancy),
		courses:     write("courses.csv", courses),
		preferences: write("preferences.csv", preferences),
		rooms:       write("rooms.csv", rooms),
	}
}

func readTables(files csvFiles) (ModelInput, error) {
	return InputFromCSV(files.occupancy, files.courses, files.preferences, files.rooms)
}

func TestInputFromCSV(t *testing.T) {
	t.Run("Well formed tables", func(t *testing.T) {
		//** Arrange
		files := writeTables(t, occupancyTable, coursesTable, preferencesTable, roomsTable)

		//** Act
		input, err := readTables(files)

		//** Assert
		require.NoError(t, err)
		assert.Equal(t, []Course{
			{Id: "CS101", Program: "P", Hours: 1.5, Registration: 30, Core: true},
			{Id: "MA201", Program: "Q", Hours: 2, Registration: 40},
		}, input.Courses)
		assert.Equal(t, []int{35, 50}, input.Capacities)
		assert.Equal(t, []string{"P", "Q"}, input.Programs)
		assert.Equal(t, map[string][]int{"P": {0}, "Q": {1}}, input.ProgramCourses)
		assert.Equal(t, 4.5, input.Survey["CS101"][Morning])
		assert.Equal(t, 3.0, input.Survey["MA201"][Evening])

		assert.Equal(t, []string{"R1", "R2"}, input.Grid.Rooms())
		assert.True(t, input.Grid.IsFree(0, 2))
		assert.False(t, input.Grid.IsFree(1, 1))
		assert.Equal(t, SlotLabel{Day: "M", Time: 9.5}, input.Grid.Label(3))
	})

	cases := []struct {
		name    string
		files   [4]string
		message string
	}{
		{
			name:    "Missing column",
			files:   [4]string{occupancyTable, "course,program,hours_per_week,pred_reg_count\nCS101,P,1.5,30\n", preferencesTable, roomsTable},
			message: `missing column "core"`,
		},
		{
			name:    "Core flag out of range",
			files:   [4]string{occupancyTable, "course,program,hours_per_week,pred_reg_count,core\nCS101,P,1.5,30,2\n", preferencesTable, roomsTable},
			message: "row 2",
		},
		{
			name:    "Fractional registration",
			files:   [4]string{occupancyTable, "course,program,hours_per_week,pred_reg_count,core\nCS101,P,1.5,30.5,1\n", preferencesTable, roomsTable},
			message: "fractional registration",
		},
		{
			name:    "Unknown time of day",
			files:   [4]string{occupancyTable, coursesTable, "course_code,time,avg_pref\nCS101,Night,1\n", roomsTable},
			message: "oneof",
		},
		{
			name:    "Room without capacity",
			files:   [4]string{occupancyTable, coursesTable, preferencesTable, ",Size\nR1,35\n"},
			message: `room "R2"`,
		},
		{
			name:    "Occupancy without a time column",
			files:   [4]string{",Slot,R1\n0,M8.0,0\n", coursesTable, preferencesTable, roomsTable},
			message: "<index>,Time",
		},
		{
			name:    "Duplicated time label",
			files:   [4]string{",Time,R1\n0,M8.0,0\n1,Monday 8:00,0\n", coursesTable, preferencesTable, roomsTable},
			message: "share the time label",
		},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			files := writeTables(t, testCase.files[0], testCase.files[1], testCase.files[2], testCase.files[3])

			_, err := readTables(files)

			assert.ErrorContains(t, err, testCase.message)
		})
	}

	t.Run("Missing file", func(t *testing.T) {
		files := writeTables(t, occupancyTable, coursesTable, preferencesTable, roomsTable)
		files.rooms = filepath.Join(t.TempDir(), "absent.csv")

		_, err := readTables(files)

		assert.ErrorContains(t, err, "absent.csv")
	})
}

func TestWriteOccupancy(t *testing.T) {
	//** Arrange
	files := writeTables(t, occupancyTable, coursesTable, preferencesTable, roomsTable)
	input, err := readTables(files)
	require.NoError(t, err)
	committed, err := Commit(input.Grid, Assignment{
		{Course: input.Courses[0], Room: "R1", Block: Block{Class: Short, Room: 0, Start: 0}},
	})
	require.NoError(t, err)
	output := filepath.Join(t.TempDir(), "occupancy_out.csv")

	//** Act
	require.NoError(t, WriteOccupancy(output, committed))

	//** Assert
	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, ",Time,R1,R2\n"+
		"0,M8.0,CS101,0\n"+
		"1,M8.5,CS101,BIO100\n"+
		"2,M9.0,CS101,BIO100\n"+
		"3,M9.5,0,0\n", string(content))

	reread, err := ReadOccupancy(output)
	require.NoError(t, err)
	for room := range committed.Rooms() {
		for _, slot := range committed.Slots() {
			assert.Equal(t, committed.IsFree(room, slot), reread.IsFree(room, slot))
			if !committed.IsFree(room, slot) {
				assert.Equal(t, committed.Cell(room, slot), reread.Cell(room, slot))
			}
		}
	}

	info, err := os.Stat(output)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	// No temporary file is left behind
	entries, err := os.ReadDir(filepath.Dir(output))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteSessions(t *testing.T) {
	grid := newTestGrid(t, []string{"R1"}, dayLabels("T", 8, 8), nil)
	assignment := Assignment{
		{Course: Course{Id: "CS101", Program: "P"}, Room: "R1", Block: Block{Class: Long, Room: 0, Start: 2}},
	}
	output := filepath.Join(t.TempDir(), "sessions.csv")

	require.NoError(t, WriteSessions(output, assignment, grid))

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	assert.Equal(t, []string{
		"course,program,room,class,start,end,day,hours",
		"CS101,P,R1,long,T9.0,T12.0,T,3",
	}, lines)
}

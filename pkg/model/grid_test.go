package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlotLabel(t *testing.T) {
	cases := []struct {
		raw      string
		expected SlotLabel
	}{
		{"M8.0", SlotLabel{Day: "M", Time: 8}},
		{"Th21.5", SlotLabel{Day: "Th", Time: 21.5}},
		{"T13.5", SlotLabel{Day: "T", Time: 13.5}},
		{"Monday 8:00", SlotLabel{Day: "M", Time: 8}},
		{"Thu 9:30", SlotLabel{Day: "Th", Time: 9.5}},
		{" F20.0 ", SlotLabel{Day: "F", Time: 20}},
		{"Sat 10:00", SlotLabel{Day: "Sa", Time: 10}},
	}

	for _, testCase := range cases {
		label, err := ParseSlotLabel(testCase.raw)
		require.NoError(t, err, testCase.raw)
		assert.Equal(t, testCase.expected, label, testCase.raw)
	}

	for _, raw := range []string{"", "8.0", "X8.0", "M", "M25.0", "M8:75"} {
		_, err := ParseSlotLabel(raw)
		assert.Error(t, err, raw)
	}
}

func TestSlotLabelString(t *testing.T) {
	assert.Equal(t, "Th21.5", SlotLabel{Day: "Th", Time: 21.5}.String())
	assert.Equal(t, "M8.0", SlotLabel{Day: "M", Time: 8}.String())
}

func TestNewGrid(t *testing.T) {
	t.Run("Rejects duplicated labels", func(t *testing.T) {
		_, err := NewGrid([]string{"R1"}, []string{"M8.0", "Monday 8:00"}, [][]string{{"0"}, {"0"}})
		assert.ErrorContains(t, err, "share the time label")
	})

	t.Run("Rejects duplicated rooms", func(t *testing.T) {
		_, err := NewGrid([]string{"R1", "R1"}, []string{"M8.0"}, [][]string{{"0", "0"}})
		assert.Error(t, err)
	})

	t.Run("Rejects ragged rows", func(t *testing.T) {
		_, err := NewGrid([]string{"R1", "R2"}, []string{"M8.0"}, [][]string{{"0"}})
		assert.Error(t, err)
	})
}

func TestGridQueries(t *testing.T) {
	//** Arrange
	grid, err := NewGrid(
		[]string{"R1", "R2"},
		[]string{"M8.0", "M8.5", "M9.0", "T8.0"},
		[][]string{
			{"", "NaN"},
			{"0.0", "BIO100"},
			{"1", "nan"},
			{"0", " 0 "},
		},
	)
	require.NoError(t, err)

	//** Assert
	assert.Equal(t, []Slot{0, 1, 2, 3}, grid.Slots())
	assert.True(t, grid.IsFree(0, 0))
	assert.True(t, grid.IsFree(1, 0))
	assert.True(t, grid.IsFree(0, 1))
	assert.False(t, grid.IsFree(1, 1))
	assert.False(t, grid.IsFree(0, 2))
	assert.True(t, grid.IsFree(1, 2))
	assert.True(t, grid.IsFree(1, 3))

	slot, ok := grid.SlotFor("Tuesday", 8)
	assert.True(t, ok)
	assert.Equal(t, Slot(3), slot)
	_, ok = grid.SlotFor("W", 8)
	assert.False(t, ok)

	room, ok := grid.RoomIndex("R2")
	assert.True(t, ok)
	assert.Equal(t, 1, room)
	assert.Equal(t, SlotLabel{Day: "M", Time: 8.5}, grid.Label(1))
}

func TestGridClone(t *testing.T) {
	grid := newTestGrid(t, []string{"R1"}, dayLabels("M", 8, 3), nil)

	clone := grid.Clone()
	clone.cells[1][0] = "CS101"

	assert.True(t, grid.IsFree(0, 1))
	assert.False(t, clone.IsFree(0, 1))
	assert.False(t, grid.Equal(clone))
	assert.True(t, grid.Equal(grid.Clone()))
}

package model

import (
	"context"
	"fmt"
	"testing"

	"github.com/limaJavier/coursetabling/pkg/milp"
	"github.com/stretchr/testify/require"
)

// Consecutive half-hour labels of one day starting at from
func dayLabels(day string, from float64, count int) []string {
	labels := make([]string, count)
	for i := range count {
		labels[i] = SlotLabel{Day: day, Time: from + float64(i)/2}.String()
	}
	return labels
}

// Builds a grid whose cells are free except the (slot, room) pairs of occupied
func newTestGrid(t *testing.T, rooms []string, labels []string, occupied map[[2]int]string) *Grid {
	t.Helper()
	cells := make([][]string, len(labels))
	for slot := range labels {
		cells[slot] = make([]string, len(rooms))
		for room := range rooms {
			cells[slot][room] = "0"
			if value, ok := occupied[[2]int{slot, room}]; ok {
				cells[slot][room] = value
			}
		}
	}
	grid, err := NewGrid(rooms, labels, cells)
	require.NoError(t, err)
	return grid
}

// Every course gets the same average for every bucket
func uniformPreferences(courses []Course, value float64) []Preference {
	preferences := make([]Preference, 0, len(courses)*len(Buckets))
	for _, course := range courses {
		for _, bucket := range Buckets {
			preferences = append(preferences, Preference{Course: course.Id, Bucket: bucket, Average: value})
		}
	}
	return preferences
}

func newTestInput(t *testing.T, grid *Grid, courses []Course, capacities ...int) ModelInput {
	t.Helper()
	rooms := make([]Room, len(grid.Rooms()))
	for i, room := range grid.Rooms() {
		rooms[i] = Room{Id: room, Capacity: capacities[i]}
	}
	input, err := ProcessRawInput(RawModelInput{
		Grid:        grid,
		Courses:     courses,
		Rooms:       rooms,
		Preferences: uniformPreferences(courses, 1),
	})
	require.NoError(t, err)
	return input
}

// Two rooms over one morning; two core courses of program P and a regular course of program Q
func propertyInput(t *testing.T) ModelInput {
	t.Helper()
	grid := newTestGrid(t, []string{"R1", "R2"}, dayLabels("M", 8, 10), map[[2]int]string{
		{4, 0}: "X",
	})
	courses := []Course{
		{Id: "CS101", Program: "P", Hours: 3, Registration: 30, Core: true},
		{Id: "CS102", Program: "P", Hours: 1.5, Registration: 20, Core: true},
		{Id: "MA201", Program: "Q", Hours: 2, Registration: 40},
	}
	return newTestInput(t, grid, courses, 35, 50)
}

type fakeSolver struct {
	calls    int
	solution milp.Solution
}

func (solver *fakeSolver) Solve(ctx context.Context, model *milp.Model) (milp.Solution, error) {
	solver.calls++
	return solver.solution, nil
}

func sessionKey(session Session) string {
	return fmt.Sprintf("%v@%v/%v/%v", session.Course.Id, session.Room, session.Block.Class, session.Block.Start)
}

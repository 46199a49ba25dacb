package model

import (
	"fmt"
	"strings"
	"time"
)

type MissingPreferenceError struct {
	Course string
	Bucket Bucket
}

func (err MissingPreferenceError) Error() string {
	return fmt.Sprintf("course %q has no %v preference average", err.Course, err.Bucket)
}

// InvalidBlockError reports a block that does not fit the grid it is applied to
type InvalidBlockError struct {
	Block  Block
	Reason string
}

func (err InvalidBlockError) Error() string {
	return fmt.Sprintf("invalid %v block at room %v, slot %v: %v", err.Block.Class, err.Block.Room, err.Block.Start, err.Reason)
}

type InfeasibleModelError struct {
	Reason  string
	Courses []string
}

func (err InfeasibleModelError) Error() string {
	if len(err.Courses) == 0 {
		return "infeasible model: " + err.Reason
	}
	return fmt.Sprintf("infeasible model: %v: %v", err.Reason, strings.Join(err.Courses, ", "))
}

type SolveTimeoutError struct {
	Budget time.Duration
}

func (err SolveTimeoutError) Error() string {
	return fmt.Sprintf("solver did not finish within %v", err.Budget)
}

// OverwriteConflictError means two sessions claim the same cell, or a session claims an occupied
// one. It always points at a defect in model construction
type OverwriteConflictError struct {
	Room     string
	Slot     Slot
	Label    SlotLabel
	Existing string
	Incoming string
}

func (err OverwriteConflictError) Error() string {
	return fmt.Sprintf("cell %v/%v (slot %v) already holds %q, cannot write %q", err.Room, err.Label, err.Slot, err.Existing, err.Incoming)
}

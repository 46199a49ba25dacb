package model

import (
	"fmt"
	"strings"
)

type Bucket int

const (
	Morning Bucket = iota
	Afternoon
	Evening
)

var Buckets = []Bucket{Morning, Afternoon, Evening}

func (bucket Bucket) String() string {
	switch bucket {
	case Morning:
		return "Morning"
	case Afternoon:
		return "Afternoon"
	case Evening:
		return "Evening"
	}
	return fmt.Sprintf("Bucket(%d)", int(bucket))
}

func ParseBucket(value string) (Bucket, error) {
	for _, bucket := range Buckets {
		if strings.EqualFold(strings.TrimSpace(value), bucket.String()) {
			return bucket, nil
		}
	}
	return 0, fmt.Errorf("unknown time of day %q (expected Morning, Afternoon or Evening)", value)
}

// ClassifySlots assigns a bucket to every slot. On weekdays the first morningSlots slots of the day
// are Morning and the last eveningSlots are Evening, Morning taking precedence when both apply.
// Every other slot, weekends included, is Afternoon
func ClassifySlots(grid *Grid, morningSlots, eveningSlots int) []Bucket {
	buckets := make([]Bucket, grid.Len())
	for i := range buckets {
		buckets[i] = Afternoon
	}

	// Slots of a day are those sharing its label's day, in grid order
	days := make(map[string][]Slot)
	order := make([]string, 0)
	for _, slot := range grid.Slots() {
		day := grid.Label(slot).Day
		if _, ok := days[day]; !ok {
			order = append(order, day)
		}
		days[day] = append(days[day], slot)
	}

	for _, day := range order {
		slots := days[day]
		if !(SlotLabel{Day: day}).Weekday() {
			continue
		}
		for i := len(slots) - min(eveningSlots, len(slots)); i < len(slots); i++ {
			buckets[slots[i]] = Evening
		}
		for i := range min(morningSlots, len(slots)) {
			buckets[slots[i]] = Morning
		}
	}
	return buckets
}

// Scores holds the preference of every course for starting at every slot
type Scores struct {
	values [][]float64 // [course][slot]
}

func (scores *Scores) Score(course int, slot Slot) float64 {
	return scores.values[course][slot]
}

// ScorePreferences looks up, for each course and slot, the course's survey average for the slot's
// bucket. Only buckets in which some block starts are required; a course lacking one of them fails
// with MissingPreferenceError
func ScorePreferences(courses []Course, buckets []Bucket, blocks *BlockSet, survey map[string]map[Bucket]float64) (*Scores, error) {
	needed := make(map[Bucket]bool)
	for _, block := range blocks.Blocks {
		needed[buckets[block.Start]] = true
	}

	scores := &Scores{values: make([][]float64, len(courses))}
	for i, course := range courses {
		averages := survey[course.Id]
		for _, bucket := range Buckets {
			if _, ok := averages[bucket]; needed[bucket] && !ok {
				return nil, MissingPreferenceError{Course: course.Id, Bucket: bucket}
			}
		}

		scores.values[i] = make([]float64, len(buckets))
		for slot, bucket := range buckets {
			scores.values[i][slot] = averages[bucket]
		}
	}
	return scores, nil
}

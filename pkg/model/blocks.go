package model

import "fmt"

type DurationClass int

const (
	Short DurationClass = iota
	Medium
	Long
)

var DurationClasses = []DurationClass{Short, Medium, Long}

// Number of consecutive 30-minute slots spanned by the class
func (class DurationClass) Slots() int {
	switch class {
	case Short:
		return 3
	case Medium:
		return 4
	case Long:
		return 6
	}
	panic(fmt.Sprintf("unknown duration class %d", int(class)))
}

func (class DurationClass) Hours() float64 {
	return float64(class.Slots()) / 2
}

func (class DurationClass) String() string {
	switch class {
	case Short:
		return "short"
	case Medium:
		return "medium"
	case Long:
		return "long"
	}
	return fmt.Sprintf("DurationClass(%d)", int(class))
}

// Block is a candidate reservation: Class.Slots() consecutive slots of one room starting at Start
type Block struct {
	Class DurationClass
	Room  int
	Start Slot
}

// End is the first slot after the block
func (block Block) End() Slot {
	return block.Start + Slot(block.Class.Slots())
}

func (block Block) Overlaps(other Block) bool {
	return block.Start < other.End() && other.Start < block.End()
}

type classStart struct {
	class DurationClass
	start Slot
}

type roomStart struct {
	room  int
	start Slot
}

// BlockSet is the candidate block universe together with the lookups the constraint families need
type BlockSet struct {
	Blocks []Block

	byRoomStart  map[roomStart][]int
	byClassStart map[classStart][]int
	starts       []classStart // Distinct (class, start) keys in generation order
}

// GenerateBlocks emits every block whose span lies inside the grid and is free. The free run length
// of every (room, slot) is computed once backwards, so each class is derived in a single forward pass.
// With splitAtDayBoundary runs end where the day changes, so no block spans two days
func GenerateBlocks(grid *Grid, splitAtDayBoundary bool) *BlockSet {
	rooms, slots := len(grid.Rooms()), grid.Len()

	//** Free run lengths
	runs := make([][]int, rooms)
	for room := range rooms {
		runs[room] = make([]int, slots+1)
		for slot := slots - 1; slot >= 0; slot-- {
			if !grid.IsFree(room, Slot(slot)) {
				continue
			}
			next := runs[room][slot+1]
			if splitAtDayBoundary && slot+1 < slots && grid.Label(Slot(slot)).Day != grid.Label(Slot(slot+1)).Day {
				next = 0
			}
			runs[room][slot] = 1 + next
		}
	}

	//** Blocks
	set := &BlockSet{
		Blocks:       make([]Block, 0),
		byRoomStart:  make(map[roomStart][]int),
		byClassStart: make(map[classStart][]int),
		starts:       make([]classStart, 0),
	}
	for _, class := range DurationClasses {
		for slot := range slots {
			for room := range rooms {
				if runs[room][slot] < class.Slots() {
					continue
				}
				set.add(Block{Class: class, Room: room, Start: Slot(slot)})
			}
		}
	}
	return set
}

func (set *BlockSet) add(block Block) {
	index := len(set.Blocks)
	set.Blocks = append(set.Blocks, block)

	keyRoom := roomStart{room: block.Room, start: block.Start}
	set.byRoomStart[keyRoom] = append(set.byRoomStart[keyRoom], index)

	keyClass := classStart{class: block.Class, start: block.Start}
	if _, ok := set.byClassStart[keyClass]; !ok {
		set.starts = append(set.starts, keyClass)
	}
	set.byClassStart[keyClass] = append(set.byClassStart[keyClass], index)
}

func (set *BlockSet) Len() int {
	return len(set.Blocks)
}

// AtRoomStart returns the indices of every block (any class) of the room starting at start
func (set *BlockSet) AtRoomStart(room int, start Slot) []int {
	return set.byRoomStart[roomStart{room: room, start: start}]
}

// AtClassStart returns the indices of every block of the class starting at start, across rooms
func (set *BlockSet) AtClassStart(class DurationClass, start Slot) []int {
	return set.byClassStart[classStart{class: class, start: start}]
}

// RoomWindow lists the blocks of any class in block's room that start inside its span
func (set *BlockSet) RoomWindow(block Block) []int {
	window := make([]int, 0)
	for start := block.Start; start < block.End(); start++ {
		window = append(window, set.AtRoomStart(block.Room, start)...)
	}
	return window
}

// ClassWindow lists the blocks of class, in any room, starting inside [start, start + class.Slots())
func (set *BlockSet) ClassWindow(class DurationClass, start Slot) []int {
	window := make([]int, 0)
	for offset := range class.Slots() {
		window = append(window, set.AtClassStart(class, start+Slot(offset))...)
	}
	return window
}

func (set *BlockSet) CountByClass() map[DurationClass]int {
	counts := make(map[DurationClass]int, len(DurationClasses))
	for _, block := range set.Blocks {
		counts[block.Class]++
	}
	return counts
}

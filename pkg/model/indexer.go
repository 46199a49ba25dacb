package model

import "github.com/limaJavier/coursetabling/pkg/milp"

// indexer maps a (course, block) pair to its decision variable and back. Assignment variables occupy
// the first courses × blocks positions of the model; the room comes from the block itself
type indexer interface {
	// Returns the variable deciding whether course starts a session at block
	Index(course, block int) milp.Var
	// Returns the (course, block) pair of an assignment variable
	Attributes(variable milp.Var) (course int, block int)
	// Total number of assignment variables
	Len() int
}

func newIndexer(courses, blocks int) indexer {
	return &indexerImplementation{
		courses: courses,
		blocks:  blocks,
	}
}

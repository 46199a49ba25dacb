package model

import (
	"slices"
	"testing"

	"github.com/limaJavier/coursetabling/pkg/milp"
	"github.com/stretchr/testify/assert"
)

func TestIndexAndAttributes(t *testing.T) {
	// Arrange
	scenarios := [][2]int{
		{1, 1},
		{3, 7},
		{20, 5},
		{7, 130},
	}

	for _, scenario := range scenarios {
		courses, blocks := scenario[0], scenario[1]

		// Act
		indexer := newIndexer(courses, blocks)

		indices := make([]milp.Var, 0, courses*blocks)
		for course := range courses {
			for block := range blocks {
				indices = append(indices, indexer.Index(course, block))
			}
		}

		// Assert
		assert.Equal(t, courses*blocks, indexer.Len())
		// Course-major order leaves no gaps
		assert.True(t, slices.IsSorted(indices))
		assert.Equal(t, milp.Var(0), indices[0])
		assert.Equal(t, milp.Var(indexer.Len()-1), indices[len(indices)-1])

		for _, index := range indices {
			course, block := indexer.Attributes(index)
			assert.Equal(t, index, indexer.Index(course, block))
			assert.Less(t, course, courses)
			assert.Less(t, block, blocks)
		}
	}
}

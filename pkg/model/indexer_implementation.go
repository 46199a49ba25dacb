package model

import "github.com/limaJavier/coursetabling/pkg/milp"

type indexerImplementation struct {
	courses int
	blocks  int
}

func (indexer *indexerImplementation) Index(course, block int) milp.Var {
	return milp.Var(course*indexer.blocks + block)
}

func (indexer *indexerImplementation) Attributes(variable milp.Var) (course, block int) {
	index := int(variable)
	block = index % indexer.blocks
	course = index / indexer.blocks
	return course, block
}

func (indexer *indexerImplementation) Len() int {
	return indexer.courses * indexer.blocks
}

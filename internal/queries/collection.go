package queries

import (
	"cmp"
	"iter"
	"slices"
)

// Queries is the ordered, read-only query list of one pipeline.
type Queries struct {
	pipeline string
	items    []QueryDefinition
}

func newQueries(pipeline string, items []QueryDefinition) Queries {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b QueryDefinition) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return Queries{pipeline: pipeline, items: sorted}
}

// Pipeline is the name the queries were registered under.
func (q Queries) Pipeline() string { return q.pipeline }

func (q Queries) Len() int { return len(q.items) }

// At returns the i-th query in order. It panics when i is out of range.
func (q Queries) At(i int) QueryDefinition { return q.items[i] }

// All iterates the queries in order.
func (q Queries) All() iter.Seq2[int, QueryDefinition] {
	return func(yield func(int, QueryDefinition) bool) {
		for i, item := range q.items {
			if !yield(i, item) {
				return
			}
		}
	}
}

// Slice returns a copy of the ordered queries.
func (q Queries) Slice() []QueryDefinition {
	return slices.Clone(q.items)
}

package lego

import "slices"

// Plan is an execution plan: one bucket of operators per priority, each in
// the order the operators were given.
type Plan struct {
	buckets [PriorityLevels][]Op
}

// NewPlan buckets ops by priority.
func NewPlan(ops ...Op) *Plan {
	p := &Plan{}
	for _, op := range ops {
		p.buckets[op.priority] = append(p.buckets[op.priority], op)
	}
	return p
}

// Buckets returns a copy of the plan's buckets indexed by priority. Buckets
// without operators are empty.
func (p *Plan) Buckets() [][]Op {
	result := make([][]Op, len(p.buckets))
	for i, b := range p.buckets {
		result[i] = slices.Clone(b)
	}
	return result
}

// Len returns the number of operators in the plan.
func (p *Plan) Len() int {
	n := 0
	for _, b := range p.buckets {
		n += len(b)
	}
	return n
}

// Execute runs the plan against a copy of collection. collection and its
// records are never modified.
func (p *Plan) Execute(collection Collection) (Collection, error) {
	entries := newEntries(collection)
	for _, bucket := range p.buckets {
		for _, op := range bucket {
			var err error
			entries, err = op.run(entries)
			if err != nil {
				return nil, err
			}
		}
	}
	return collectionOf(entries), nil
}

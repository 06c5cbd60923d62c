package lego

import (
	"maps"
	"slices"
	"strings"
)

const (
	OpFilterIn = OpKind(iota)
	OpSortBy
	OpSelect
	OpFormat
	OpLimit
	OpOr
	OpAnd
)

type OpKind uint8

func (k OpKind) String() string {
	switch k {
	case OpFilterIn:
		return "filterIn"
	case OpSortBy:
		return "sortBy"
	case OpSelect:
		return "select"
	case OpFormat:
		return "format"
	case OpLimit:
		return "limit"
	case OpOr:
		return "or"
	case OpAnd:
		return "and"
	}
	return "unknown"
}

// Priority is the stage an operator runs in. Lower priorities run first.
type Priority uint8

const (
	PriorityFilter = Priority(0)
	PrioritySort   = Priority(1)
	PrioritySelect = Priority(2)
	PriorityFinal  = Priority(3)

	// PriorityLevels is the number of distinct priorities, and so the
	// number of buckets in every plan.
	PriorityLevels = 4
)

var opPriorities = [...]Priority{
	OpFilterIn: PriorityFilter,
	OpOr:       PriorityFilter,
	OpAnd:      PriorityFilter,
	OpSortBy:   PrioritySort,
	OpSelect:   PrioritySelect,
	OpFormat:   PriorityFinal,
	OpLimit:    PriorityFinal,
}

type transform func(entries []entry) ([]entry, error)

// Op is an operator descriptor. Ops are immutable and may be shared between
// queries and goroutines.
type Op struct {
	kind     OpKind
	priority Priority
	apply    transform
}

func newOp(kind OpKind, apply transform) Op {
	return Op{
		kind:     kind,
		priority: opPriorities[kind],
		apply:    apply,
	}
}

func (o Op) Kind() OpKind {
	return o.kind
}

func (o Op) Priority() Priority {
	return o.priority
}

func (o Op) run(entries []entry) ([]entry, error) {
	if o.apply == nil {
		return entries, nil
	}
	return o.apply(entries)
}

// Select keeps only the given fields in every record. Fields absent from a
// record are ignored. Several selects in one query narrow cumulatively.
func Select(fields ...string) Op {
	keep := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		keep[f] = struct{}{}
	}
	return newOp(OpSelect, func(entries []entry) ([]entry, error) {
		result := make([]entry, len(entries))
		for i, e := range entries {
			selected := make(Record, len(keep))
			for f, v := range e.record {
				if _, ok := keep[f]; ok {
					selected[f] = v
				}
			}
			result[i] = entry{id: e.id, record: selected}
		}
		return result, nil
	})
}

// FilterIn keeps the records whose field equals one of values.
func FilterIn(field string, values ...any) Op {
	values = slices.Clone(values)
	return newOp(OpFilterIn, func(entries []entry) ([]entry, error) {
		result := make([]entry, 0, len(entries))
		for _, e := range entries {
			v, ok := e.record[field]
			if !ok {
				continue
			}
			if slices.ContainsFunc(values, func(allowed any) bool {
				return equalValues(v, allowed)
			}) {
				result = append(result, e)
			}
		}
		return result, nil
	})
}

type Order string

const (
	Asc  = Order("asc")
	Desc = Order("desc")
)

// ParseOrder converts "asc" or "desc" (any case) to an Order.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(s)) {
	case Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	}
	return "", ErrInvalidOrder(s)
}

// SortBy stably orders records by field. Equal keys keep their relative
// order. Records missing the field, or holding a value with no order, go
// last in both directions.
func SortBy(field string, order Order) Op {
	return newOp(OpSortBy, func(entries []entry) ([]entry, error) {
		type keyed struct {
			entry
			key sortKey
		}
		ks := make([]keyed, len(entries))
		for i, e := range entries {
			ks[i] = keyed{entry: e, key: sortKeyOf(e.record.Get(field))}
		}
		slices.SortStableFunc(ks, func(a, b keyed) int {
			return a.key.compare(b.key, order)
		})
		result := make([]entry, len(ks))
		for i, k := range ks {
			result[i] = k.entry
		}
		return result, nil
	})
}

// Formatter converts a single field value.
type Formatter func(value any) (any, error)

// Format applies formatter to field on every record that has it. A
// formatter error stops the query and is returned as is.
func Format(field string, formatter Formatter) Op {
	return newOp(OpFormat, func(entries []entry) ([]entry, error) {
		result := make([]entry, len(entries))
		for i, e := range entries {
			v, ok := e.record[field]
			if !ok {
				result[i] = e
				continue
			}
			formatted, err := formatter(v)
			if err != nil {
				return nil, err
			}
			r := maps.Clone(e.record)
			r[field] = formatted
			result[i] = entry{id: e.id, record: r}
		}
		return result, nil
	})
}

// FormatValue is Format for formatters that cannot fail.
func FormatValue(field string, formatter func(value any) any) Op {
	return Format(field, func(value any) (any, error) {
		return formatter(value), nil
	})
}

// Limit keeps the first count records. A non-positive count keeps none.
func Limit(count int) Op {
	return newOp(OpLimit, func(entries []entry) ([]entry, error) {
		if count <= 0 {
			return []entry{}, nil
		}
		if count >= len(entries) {
			return entries, nil
		}
		return slices.Clone(entries[:count]), nil
	})
}

// Or keeps the records kept by at least one of filters. Every filter sees
// the same input and the result keeps input order.
func Or(filters ...Op) Op {
	filters = slices.Clone(filters)
	return newOp(OpOr, func(entries []entry) ([]entry, error) {
		kept := make(map[int]struct{}, len(entries))
		for _, f := range filters {
			matched, err := f.run(slices.Clone(entries))
			if err != nil {
				return nil, err
			}
			for _, e := range matched {
				kept[e.id] = struct{}{}
			}
		}
		result := make([]entry, 0, len(kept))
		for _, e := range entries {
			if _, ok := kept[e.id]; ok {
				result = append(result, e)
			}
		}
		return result, nil
	})
}

// And keeps the records kept by every one of filters, applying them in
// order.
func And(filters ...Op) Op {
	filters = slices.Clone(filters)
	return newOp(OpAnd, func(entries []entry) ([]entry, error) {
		var err error
		for _, f := range filters {
			entries, err = f.run(entries)
			if err != nil {
				return nil, err
			}
		}
		return entries, nil
	})
}

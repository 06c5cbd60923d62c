package lego

import (
	"maps"
	"slices"
)

// Record is a single element of a collection: a mapping from field name to value.
type Record map[string]any

// Collection is an ordered sequence of records.
type Collection []Record

// Clone returns a copy of c with every record copied. Field values are
// shared with the original.
func (c Collection) Clone() Collection {
	result := make(Collection, len(c))
	for i, r := range c {
		result[i] = maps.Clone(r)
		if result[i] == nil {
			result[i] = Record{}
		}
	}
	return result
}

// Keys returns every field name used by at least one record of c, in the
// order they are first seen. Fields within a single record are visited in
// sorted order so the result is deterministic.
func (c Collection) Keys() []string {
	seen := make(map[string]struct{})
	keys := make([]string, 0)
	for _, r := range c {
		for _, k := range r.sortedKeys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	return keys
}

func (r Record) sortedKeys() []string {
	return slices.Sorted(maps.Keys(r))
}

// Get returns the value of field and whether the record has it.
func (r Record) Get(field string) (any, bool) {
	v, ok := r[field]
	return v, ok
}

// entry is a working record tagged with its position in the query input.
// The id is the identity used by Or to deduplicate.
type entry struct {
	id     int
	record Record
}

func newEntries(c Collection) []entry {
	entries := make([]entry, len(c))
	for i, r := range c.Clone() {
		entries[i] = entry{id: i, record: r}
	}
	return entries
}

func collectionOf(entries []entry) Collection {
	result := make(Collection, len(entries))
	for i, e := range entries {
		result[i] = e.record
	}
	return result
}

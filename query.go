package lego

// Query runs ops against collection and returns the resulting collection.
// Ops run by priority (filters, then sorts, then selects, then formats and
// limits) regardless of the order they are passed in; ops of equal priority
// run in the order given. The only error Query returns is one produced by a
// Formatter.
func Query(collection Collection, ops ...Op) (Collection, error) {
	return NewPlan(ops...).Execute(collection)
}

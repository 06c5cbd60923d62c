package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/longlodw/lego"
)

// operatorFlags holds the raw operator flags of a legoq invocation.
type operatorFlags struct {
	selects []string
	filters []string
	ors     []string
	sorts   []string
	formats []string
	limit   int
}

func (f operatorFlags) ops() ([]lego.Op, error) {
	var ops []lego.Op
	if len(f.selects) > 0 {
		ops = append(ops, lego.Select(f.selects...))
	}
	for _, s := range f.filters {
		op, err := parseFilter(s)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	for _, s := range f.ors {
		op, err := parseOr(s)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	for _, s := range f.sorts {
		op, err := parseSort(s)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	for _, s := range f.formats {
		op, err := parseFormat(s)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if f.limit >= 0 {
		ops = append(ops, lego.Limit(f.limit))
	}
	return ops, nil
}

// parseFilter parses "field=v1,v2".
func parseFilter(s string) (lego.Op, error) {
	field, raw, ok := strings.Cut(s, "=")
	if !ok || field == "" {
		return lego.Op{}, fmt.Errorf("invalid filter %q, want field=value[,value...]", s)
	}
	var values []any
	for _, v := range strings.Split(raw, ",") {
		values = append(values, parseValue(v))
	}
	return lego.FilterIn(field, values...), nil
}

// parseOr parses "field=v1,v2|field2=v3" into a union of filters.
func parseOr(s string) (lego.Op, error) {
	var filters []lego.Op
	for _, part := range strings.Split(s, "|") {
		op, err := parseFilter(part)
		if err != nil {
			return lego.Op{}, err
		}
		filters = append(filters, op)
	}
	return lego.Or(filters...), nil
}

// parseSort parses "field" or "field:asc|desc".
func parseSort(s string) (lego.Op, error) {
	field, rawOrder, hasOrder := strings.Cut(s, ":")
	if field == "" {
		return lego.Op{}, fmt.Errorf("invalid sort %q, want field[:asc|desc]", s)
	}
	order := lego.Asc
	if hasOrder {
		var err error
		if order, err = lego.ParseOrder(rawOrder); err != nil {
			return lego.Op{}, err
		}
	}
	return lego.SortBy(field, order), nil
}

var formatters = map[string]lego.Formatter{
	"upper":  stringFormatter(strings.ToUpper),
	"lower":  stringFormatter(strings.ToLower),
	"trim":   stringFormatter(strings.TrimSpace),
	"string": formatString,
}

func formatString(v any) (any, error) {
	return fmt.Sprint(v), nil
}

func stringFormatter(fn func(string) string) lego.Formatter {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("cannot format %v: %T is not a string", v, v)
		}
		return fn(s), nil
	}
}

// parseFormat parses "field:formatter".
func parseFormat(s string) (lego.Op, error) {
	field, name, ok := strings.Cut(s, ":")
	if !ok || field == "" {
		return lego.Op{}, fmt.Errorf("invalid format %q, want field:formatter", s)
	}
	formatter, ok := formatters[name]
	if !ok {
		return lego.Op{}, fmt.Errorf("unknown formatter %q", name)
	}
	return lego.Format(field, formatter), nil
}

// parseValue reads a flag value as a JSON literal, falling back to the raw
// string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

package lego

import (
	"bytes"
	"math"
	"reflect"

	"rsc.io/ordered"
)

// sortKey is the order-preserving encoding of a field value. A nil raw
// means the value cannot be compared.
type sortKey struct {
	raw []byte
}

func sortKeyOf(v any, ok bool) sortKey {
	if !ok || v == nil {
		return sortKey{}
	}
	if f, isNum := toFloat(v); isNum {
		return sortKey{raw: ordered.Encode(f)}
	}
	if !ordered.CanEncode(v) {
		return sortKey{}
	}
	return sortKey{raw: ordered.Encode(v)}
}

// compare orders two keys in the given direction. Keys that cannot be
// compared are equal to each other and come after every comparable key,
// whatever the direction.
func (k sortKey) compare(other sortKey, order Order) int {
	switch {
	case k.raw == nil && other.raw == nil:
		return 0
	case k.raw == nil:
		return 1
	case other.raw == nil:
		return -1
	}
	if order == Desc {
		return bytes.Compare(other.raw, k.raw)
	}
	return bytes.Compare(k.raw, other.raw)
}

// toFloat widens every Go numeric type to float64 so that an int and a
// float64 holding the same number sort together.
func toFloat(v any) (float64, bool) {
	n, ok := numberOf(v)
	if !ok {
		return 0, false
	}
	switch n.kind {
	case signedNumber:
		return float64(n.i), true
	case unsignedNumber:
		return float64(n.u), true
	}
	return n.f, true
}

type numberKind uint8

const (
	signedNumber numberKind = iota
	unsignedNumber
	floatNumber
)

// number holds a Go numeric value without losing integer precision.
type number struct {
	kind numberKind
	i    int64
	u    uint64
	f    float64
}

func numberOf(v any) (number, bool) {
	switch n := v.(type) {
	case int:
		return number{kind: signedNumber, i: int64(n)}, true
	case int8:
		return number{kind: signedNumber, i: int64(n)}, true
	case int16:
		return number{kind: signedNumber, i: int64(n)}, true
	case int32:
		return number{kind: signedNumber, i: int64(n)}, true
	case int64:
		return number{kind: signedNumber, i: n}, true
	case uint:
		return number{kind: unsignedNumber, u: uint64(n)}, true
	case uint8:
		return number{kind: unsignedNumber, u: uint64(n)}, true
	case uint16:
		return number{kind: unsignedNumber, u: uint64(n)}, true
	case uint32:
		return number{kind: unsignedNumber, u: uint64(n)}, true
	case uint64:
		return number{kind: unsignedNumber, u: n}, true
	case float32:
		return number{kind: floatNumber, f: float64(n)}, true
	case float64:
		return number{kind: floatNumber, f: n}, true
	}
	return number{}, false
}

func (n number) equal(m number) bool {
	switch {
	case n.kind == m.kind:
		switch n.kind {
		case signedNumber:
			return n.i == m.i
		case unsignedNumber:
			return n.u == m.u
		}
		return n.f == m.f
	case n.kind == floatNumber:
		return m.holds(n.f)
	case m.kind == floatNumber:
		return n.holds(m.f)
	case n.kind == signedNumber:
		return n.i >= 0 && uint64(n.i) == m.u
	}
	return m.i >= 0 && uint64(m.i) == n.u
}

// holds reports whether the integer n is exactly f.
func (n number) holds(f float64) bool {
	if f != math.Trunc(f) {
		return false
	}
	if n.kind == signedNumber {
		return f >= math.MinInt64 && f < math.MaxInt64 && int64(f) == n.i
	}
	return f >= 0 && f < math.MaxUint64 && uint64(f) == n.u
}

// equalValues reports whether a and b are the same value. Numbers of any Go
// numeric type are equal when they hold the same number; every other pair
// must share its dynamic type. Strings never equal numbers.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, ok := numberOf(a); ok {
		nb, ok := numberOf(b)
		return ok && na.equal(nb)
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

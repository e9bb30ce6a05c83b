// Package ordering computes the sort key shared by tree traversal and
// navigation so that both always agree on sibling order.
package ordering

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// OrderValue is a page order. It holds an integer when the configured
// value coerces to one, otherwise the raw text.
type OrderValue struct {
	Int   int
	Text  string
	IsInt bool
}

// IntOrder returns an integer order value.
func IntOrder(n int) OrderValue { return OrderValue{Int: n, IsInt: true} }

// OrderOf coerces a raw metadata order value. Empty values and the
// literal "_0" map to integer zero.
func OrderOf(v any) OrderValue {
	if v == nil {
		return IntOrder(0)
	}
	if s, ok := v.(string); ok && (s == "" || s == "_0") {
		return IntOrder(0)
	}
	if n, ok := TryInt(v, 0); ok {
		return IntOrder(n)
	}
	if s, ok := v.(string); ok {
		return OrderValue{Text: s}
	}
	return OrderValue{Text: fmt.Sprint(v)}
}

// String renders the order for dumps and logs.
func (o OrderValue) String() string {
	if o.IsInt {
		return strconv.Itoa(o.Int)
	}
	return o.Text
}

// Compare orders integers numerically and before any textual order;
// textual orders compare lexically.
func (o OrderValue) Compare(other OrderValue) int {
	switch {
	case o.IsInt && other.IsInt:
		return cmp.Compare(o.Int, other.Int)
	case o.IsInt:
		return -1
	case other.IsInt:
		return 1
	default:
		return strings.Compare(o.Text, other.Text)
	}
}

// Key is the sibling sort key: explicit order first, then the numeric value
// of the path segment, then its string form.
type Key struct {
	Order   OrderValue
	PathInt int
	PathStr string
}

// KeyOf builds the key for a node with the given order and path segment.
// A segment that is not an integer contributes 0 to PathInt.
func KeyOf(order OrderValue, pathPart fmt.Stringer) Key {
	s := ""
	if pathPart != nil {
		s = pathPart.String()
	}
	n, _ := TryInt(s, 0)
	return Key{Order: order, PathInt: n, PathStr: s}
}

// Compare compares two keys lexicographically.
func (k Key) Compare(other Key) int {
	if c := k.Order.Compare(other.Order); c != 0 {
		return c
	}
	if c := cmp.Compare(k.PathInt, other.PathInt); c != 0 {
		return c
	}
	return strings.Compare(k.PathStr, other.PathStr)
}

// Less reports whether a sorts before b.
func Less(a, b Key) bool { return a.Compare(b) < 0 }

// TryInt coerces v to an integer. Integer kinds convert directly, floats only
// when integral, strings when they parse cleanly after trimming. On failure
// it returns def and false.
func TryInt(v any, def int) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int8:
		return int(x), true
	case int16:
		return int(x), true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case uint:
		return int(x), true
	case uint8:
		return int(x), true
	case uint16:
		return int(x), true
	case uint32:
		return int(x), true
	case uint64:
		return int(x), true
	case float32:
		return floatInt(float64(x), def)
	case float64:
		return floatInt(x, def)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return def, false
		}
		return n, true
	case fmt.Stringer:
		return TryInt(x.String(), def)
	default:
		return def, false
	}
}

func floatInt(f float64, def int) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return def, false
	}
	return int(f), true
}

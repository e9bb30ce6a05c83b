package pagetree

import (
	"fmt"
	"strconv"

	"git.home.luguber.info/inful/seriesgen/internal/content"
	"git.home.luguber.info/inful/seriesgen/internal/ordering"
)

// Segment is one path component: an integer or a string. Segments are
// comparable and used directly as child map keys.
type Segment struct {
	num   int
	str   string
	isInt bool
}

// IntSegment returns an integer segment.
func IntSegment(n int) Segment { return Segment{num: n, isInt: true} }

// StrSegment returns a string segment without coercion.
func StrSegment(s string) Segment { return Segment{str: s} }

// IsInt reports whether the segment is an integer.
func (s Segment) IsInt() bool { return s.isInt }

// Int returns the integer value of an integer segment.
func (s Segment) Int() (int, bool) { return s.num, s.isInt }

// String is the segment's directory name and URL component.
func (s Segment) String() string {
	if s.isInt {
		return strconv.Itoa(s.num)
	}
	return s.str
}

// zeroSegment is the escape for a literal zero level.
const zeroSegment = "_0"

// NormalizePath turns raw hierarchy values into segments. Absent, empty and
// numeric-zero values are dropped, "_0" becomes 0 and values that parse
// cleanly as integers become integer segments. Segment values are already
// normalized and pass through unchanged, so the operation is idempotent.
func NormalizePath(values []any) []Segment {
	out := make([]Segment, 0, len(values))
	for _, v := range values {
		if seg, ok := v.(Segment); ok {
			out = append(out, seg)
			continue
		}
		if dropped(v) {
			continue
		}
		if s, ok := v.(string); ok && s == zeroSegment {
			out = append(out, IntSegment(0))
			continue
		}
		out = append(out, coerce(v))
	}
	return out
}

// ComputePath reads the hierarchy fields from meta and appends the explicit
// path override, if any, as a final segment.
func ComputePath(meta content.Meta, hierarchy []string) []Segment {
	values := make([]any, len(hierarchy))
	for i, field := range hierarchy {
		values[i] = meta[field]
	}
	path := NormalizePath(values)
	if override := meta.Path(); override != "" {
		path = append(path, coerce(override))
	}
	return path
}

func dropped(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case float32:
		return x == 0
	case float64:
		return x == 0
	default:
		n, ok := ordering.TryInt(v, 0)
		return ok && n == 0
	}
}

func coerce(v any) Segment {
	if b, ok := v.(bool); ok && b {
		return IntSegment(1)
	}
	if n, ok := ordering.TryInt(v, 0); ok {
		return IntSegment(n)
	}
	switch x := v.(type) {
	case string:
		return StrSegment(x)
	case float64:
		return StrSegment(strconv.FormatFloat(x, 'f', -1, 64))
	case float32:
		return StrSegment(strconv.FormatFloat(float64(x), 'f', -1, 32))
	default:
		return StrSegment(fmt.Sprint(v))
	}
}

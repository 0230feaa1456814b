package webvi

import (
	"fmt"
	"math"

	"github.com/srg/blevi/internal/refnum"
)

// Args are the positional arguments of an invocation.
type Args []any

// ArgError reports a missing argument or one of the wrong type.
type ArgError struct {
	Index int
	Want  string
	Got   any
}

func (e *ArgError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("argument %d: expected %s, got nothing", e.Index, e.Want)
	}
	return fmt.Sprintf("argument %d: expected %s, got %v (%T)", e.Index, e.Want, e.Got, e.Got)
}

func (a Args) at(i int) any {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

// Optional reports whether argument i is absent.
func (a Args) Optional(i int) bool {
	return a.at(i) == nil
}

// Refnum returns argument i as a refnum. Host numbers arrive as integers or
// float64; fractional or negative numbers are rejected.
func (a Args) Refnum(i int) (refnum.Refnum, error) {
	v := a.at(i)
	switch n := v.(type) {
	case refnum.Refnum:
		return n, nil
	case float64:
		if n >= 0 && n <= math.MaxUint32 && n == math.Trunc(n) {
			return refnum.Refnum(n), nil
		}
	default:
		if u, ok := toUint32(v); ok {
			return refnum.Refnum(u), nil
		}
	}
	return refnum.Invalid, &ArgError{Index: i, Want: "refnum", Got: v}
}

// String returns argument i as a string.
func (a Args) String(i int) (string, error) {
	v := a.at(i)
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", &ArgError{Index: i, Want: "string", Got: v}
}

// OptionalString returns argument i as a string, or "" when it is absent.
func (a Args) OptionalString(i int) (string, error) {
	if a.Optional(i) {
		return "", nil
	}
	return a.String(i)
}

// Bytes returns argument i as a byte array.
func (a Args) Bytes(i int) ([]byte, error) {
	v := a.at(i)
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return nil, &ArgError{Index: i, Want: "Uint8Array", Got: v}
}

// Uint32 returns argument i as an unsigned 32-bit number.
func (a Args) Uint32(i int) (uint32, error) {
	v := a.at(i)
	if f, ok := v.(float64); ok {
		if f >= 0 && f <= math.MaxUint32 && f == math.Trunc(f) {
			return uint32(f), nil
		}
	} else if u, ok := toUint32(v); ok {
		return u, nil
	}
	return 0, &ArgError{Index: i, Want: "unsigned 32-bit number", Got: v}
}

func toUint32(v any) (uint32, bool) {
	var n int64
	switch x := v.(type) {
	case int:
		n = int64(x)
	case int8:
		n = int64(x)
	case int16:
		n = int64(x)
	case int32:
		n = int64(x)
	case int64:
		n = x
	case uint:
		if uint64(x) > math.MaxUint32 {
			return 0, false
		}
		return uint32(x), true
	case uint8:
		return uint32(x), true
	case uint16:
		return uint32(x), true
	case uint32:
		return x, true
	case uint64:
		if x > math.MaxUint32 {
			return 0, false
		}
		return uint32(x), true
	default:
		return 0, false
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, false
	}
	return uint32(n), true
}

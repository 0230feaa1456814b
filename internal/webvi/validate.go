package webvi

import (
	"fmt"

	"github.com/srg/blevi/internal/refnum"
)

// ReturnTypeError reports a value the JSLI cannot marshal back to the host.
type ReturnTypeError struct {
	Value any
}

func (e *ReturnTypeError) Error() string {
	return fmt.Sprintf("Return value is not a type supported by the JSLI. Returned value: %v (%T)", e.Value, e.Value)
}

// ValidateReturnType accepts the value kinds a WebVI can receive: void (nil),
// booleans, strings, numbers, refnums and fixed-width integer arrays.
func ValidateReturnType(v any) error {
	switch v.(type) {
	case nil, bool, string:
		return nil
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return nil
	case refnum.Refnum:
		return nil
	case []uint8, []uint16, []uint32, []int8, []int16, []int32:
		return nil
	default:
		return &ReturnTypeError{Value: v}
	}
}

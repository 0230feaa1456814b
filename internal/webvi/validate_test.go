package webvi

import (
	"testing"

	"github.com/srg/blevi/internal/refnum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReturnType(t *testing.T) {
	accepted := []any{
		nil, true, "text", 42, int64(-1), uint32(7), 3.5,
		refnum.Refnum(1),
		[]uint8{1, 2}, []uint16{1}, []uint32{1}, []int8{-1}, []int16{-1}, []int32{-1},
	}
	for _, v := range accepted {
		assert.NoError(t, ValidateReturnType(v), "%T should be accepted", v)
	}

	rejected := []any{
		struct{}{}, map[string]any{}, []string{"a"}, []int64{1}, []float64{1}, &struct{}{},
	}
	for _, v := range rejected {
		assert.Error(t, ValidateReturnType(v), "%T should be rejected", v)
	}
}

func TestArgs(t *testing.T) {
	args := Args{refnum.Refnum(3), float64(4), "battery_service", []byte{0x00, 0xff}, -1, 1.5}

	r, err := args.Refnum(0)
	require.NoError(t, err)
	assert.Equal(t, refnum.Refnum(3), r)

	r, err = args.Refnum(1)
	require.NoError(t, err)
	assert.Equal(t, refnum.Refnum(4), r)

	s, err := args.String(2)
	require.NoError(t, err)
	assert.Equal(t, "battery_service", s)

	b, err := args.Bytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xff}, b)

	_, err = args.Refnum(4)
	var argErr *ArgError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, 4, argErr.Index)

	_, err = args.Uint32(5)
	assert.Error(t, err)

	_, err = args.String(0)
	assert.Error(t, err)

	_, err = args.Bytes(10)
	require.ErrorAs(t, err, &argErr)
	assert.Contains(t, err.Error(), "got nothing")

	opt, err := args.OptionalString(10)
	require.NoError(t, err)
	assert.Empty(t, opt)
}

package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameUUID(t *testing.T) {
	tests := []struct {
		a, b string
		same bool
	}{
		{"180f", "0x180F", true},
		{"0000180f-0000-1000-8000-00805f9b34fb", "180F", true},
		{"0000-2902-0000-1000-8000-00805f9b34fb", "2902", true},
		{"6e400001-b5a3-f393-e0a9-e50e24dcca9e", "6E400001B5A3F393E0A9E50E24DCCA9E", true},
		{"180f", "180d", false},
		{"aa00180f-0000-1000-8000-00805f9b34fb", "180f", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+"~"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.same, SameUUID(tt.a, tt.b))
		})
	}
}

func TestCanonicalUUID(t *testing.T) {
	tests := []struct {
		name     string
		alias    int64
		expected string
	}{
		{"16-bit alias", 0x180F, "0000180f-0000-1000-8000-00805f9b34fb"},
		{"zero", 0, "00000000-0000-1000-8000-00805f9b34fb"},
		{"32-bit alias", 0x12345678, "12345678-0000-1000-8000-00805f9b34fb"},
		{"largest alias", MaxUUIDAlias, "ffffffff-0000-1000-8000-00805f9b34fb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalUUID(tt.alias)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCanonicalUUIDOutOfRange(t *testing.T) {
	for _, alias := range []int64{-1, MaxUUIDAlias + 1} {
		_, err := CanonicalUUID(alias)
		assert.Error(t, err, "alias %d", alias)
	}
}

func TestResolveUUIDs(t *testing.T) {
	svc, err := ResolveServiceUUID("battery_service")
	require.NoError(t, err)
	assert.Equal(t, "0000180f-0000-1000-8000-00805f9b34fb", svc)

	char, err := ResolveCharacteristicUUID("0x2A19")
	require.NoError(t, err)
	assert.Equal(t, "00002a19-0000-1000-8000-00805f9b34fb", char)

	_, err = ResolveServiceUUID("battery_level")
	assert.Error(t, err, "characteristic names are not service names")
}

func TestShortenUUID(t *testing.T) {
	assert.Equal(t, "180f", ShortenUUID("180f"))
	assert.Equal(t, "6e400001", ShortenUUID("6e400001-b5a3-f393-e0a9-e50e24dcca9e"))
}

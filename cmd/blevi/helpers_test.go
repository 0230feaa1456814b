package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/srg/blevi/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWriteData_HexFormats(t *testing.T) {
	// GOAL: Verify hex data parsing handles various input formats correctly
	//
	// TEST SCENARIO: Parse hex with different separators → decoded bytes → matches expected output

	defer func(orig bool) { writeHex = orig }(writeHex)
	writeHex = true

	tests := []struct {
		name     string
		input    string
		expected []byte
	}{
		{"simple hex", "0102", []byte{0x01, 0x02}},
		{"hex with spaces", "01 02 03", []byte{0x01, 0x02, 0x03}},
		{"hex with colons", "01:02:03", []byte{0x01, 0x02, 0x03}},
		{"hex with dashes", "ff-00-ab", []byte{0xff, 0x00, 0xab}},
		{"0x prefixes", "0x01 0x02", []byte{0x01, 0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := parseWriteData(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, data)
		})
	}

	_, err := parseWriteData("0g")
	assert.ErrorContains(t, err, "invalid hex data")
}

func TestParseWriteData_Text(t *testing.T) {
	defer func(orig bool) { writeHex = orig }(writeHex)
	writeHex = false

	data, err := parseWriteData("hi 01")
	require.NoError(t, err)
	assert.Equal(t, []byte("hi 01"), data)
}

func TestTargetRequestOptions(t *testing.T) {
	// GOAL: Verify the generated requestDevice options parse and filter on service and name
	//
	// TEST SCENARIO: service + namePrefix → one filter with both; explicit --options wins

	opts, err := target{service: "battery_service", namePrefix: "Batt"}.requestOptions()
	require.NoError(t, err)

	var decoded struct {
		Filters []map[string]any `json:"filters"`
	}
	require.NoError(t, json.Unmarshal([]byte(opts), &decoded))
	require.Len(t, decoded.Filters, 1)
	assert.Equal(t, []any{"battery_service"}, decoded.Filters[0]["services"])
	assert.Equal(t, "Batt", decoded.Filters[0]["namePrefix"])
	assert.NotContains(t, decoded.Filters[0], "name")

	parsed, err := device.ParseRequestDeviceOptions(opts)
	require.NoError(t, err)
	assert.True(t, parsed.Matches("Battery Sensor", []string{"180f"}))
	assert.False(t, parsed.Matches("Sensor", []string{"180f"}))

	explicit := `{"acceptAllDevices":true}`
	opts, err = target{service: "battery_service", name: "x", options: explicit}.requestOptions()
	require.NoError(t, err)
	assert.Equal(t, explicit, opts)
}

func TestFormatUserError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"unsupported", fmt.Errorf("wrapped: %w", device.ErrUnsupported), "try --simulate"},
		{"bluetooth off", device.ErrBluetoothOff, "enable the adapter"},
		{"no device", device.ErrNoDevice, "advertising and in range"},
		{"not permitted", fmt.Errorf("read: %w", device.ErrNotPermitted), "check the characteristic properties"},
		{"not connected", fmt.Errorf("x: %w", &device.ConnectionError{State: device.NotConnected, Msg: "gone"}), "device disconnected"},
		{"not found", fmt.Errorf("failed to get service: %w", &device.NotFoundError{Resource: "service", UUIDs: []string{"180f"}}), `service "180f" not found`},
		{"plain", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, FormatUserError(tt.err), tt.contains)
		})
	}
}

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "v1.2.3", formatVersion("1.2.3"))
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "", formatVersion(""))
}

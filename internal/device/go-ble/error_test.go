package goble

import (
	"errors"
	"testing"

	"github.com/srg/blevi/internal/device"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"darwin powered off", errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?"), device.ErrBluetoothOff},
		{"turned off", errors.New("Bluetooth is turned OFF"), device.ErrBluetoothOff},
		{"not connected", errors.New("device not connected"), device.ErrNotConnected},
		{"disconnected", errors.New("peripheral disconnected"), device.ErrNotConnected},
		{"already connected", errors.New("device already connected"), device.ErrAlreadyConnected},
		{"not initialized", errors.New("connection is not initialized"), device.ErrNotInitialized},
		{"att not permitted", errors.New("ATT error: write not permitted"), device.ErrNotPermitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeError(tt.in)
			assert.ErrorIs(t, got, tt.want)
			assert.Contains(t, got.Error(), tt.in.Error(), "original message must be preserved")
		})
	}
}

func TestNormalizeErrorPassThrough(t *testing.T) {
	assert.NoError(t, NormalizeError(nil))

	other := errors.New("ATT request timed out")
	assert.Same(t, other, NormalizeError(other))
}

package main

import (
	"errors"
	"fmt"

	"github.com/srg/blevi/internal/device"
	"github.com/srg/blevi/internal/dom"
	"github.com/srg/blevi/internal/refnum"
	"github.com/srg/blevi/internal/webvi"
)

// FormatUserError turns an error chain into the one-line message printed by
// main. Known errors get a hint; everything else prints as is.
func FormatUserError(err error) string {
	var (
		notFound *device.NotFoundError
		optsErr  *device.OptionsError
		kindErr  *refnum.KindError
		argErr   *webvi.ArgError
		selErr   *dom.SelectorError
	)

	switch {
	case errors.Is(err, device.ErrUnsupported):
		return fmt.Sprintf("%v (is the Bluetooth adapter present? try --simulate)", err)
	case errors.Is(err, device.ErrBluetoothOff):
		return "bluetooth is turned off: enable the adapter and retry"
	case errors.Is(err, device.ErrNoDevice):
		return fmt.Sprintf("%v (is the device advertising and in range?)", err)
	case errors.Is(err, device.ErrNotPermitted):
		return fmt.Sprintf("%v (check the characteristic properties)", err)
	case errors.Is(err, device.ErrNotConnected):
		return "device disconnected"
	case errors.As(err, &notFound):
		return notFound.Error()
	case errors.As(err, &optsErr):
		return optsErr.Error()
	case errors.As(err, &kindErr):
		return kindErr.Error()
	case errors.As(err, &argErr):
		return argErr.Error()
	case errors.As(err, &selErr):
		return selErr.Error()
	default:
		return err.Error()
	}
}

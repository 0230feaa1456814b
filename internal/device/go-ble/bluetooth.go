// Package goble implements the device interfaces on top of github.com/go-ble/ble.
package goble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/blevi/internal/device"
	"github.com/srg/blevi/pkg/config"
)

// Bluetooth is a device.Bluetooth backed by the host adapter. The adapter is
// created on first use and shared by every device it returns.
type Bluetooth struct {
	cfg    *config.Config
	logger *logrus.Logger

	mu         sync.Mutex
	adapter    Adapter
	adapterErr error
}

// NewBluetooth creates a go-ble backed Bluetooth stack.
func NewBluetooth(cfg *config.Config, logger *logrus.Logger) *Bluetooth {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Bluetooth{
		cfg:    cfg,
		logger: logger,
	}
}

// Available reports whether the host adapter could be opened.
func (bt *Bluetooth) Available() bool {
	_, err := bt.getAdapter()
	return err == nil
}

func (bt *Bluetooth) getAdapter() (Adapter, error) {
	bt.mu.Lock()
	defer bt.mu.Unlock()

	if bt.adapter != nil || bt.adapterErr != nil {
		return bt.adapter, bt.adapterErr
	}

	bt.adapter, bt.adapterErr = AdapterFactory()
	if bt.adapterErr != nil {
		bt.logger.WithError(bt.adapterErr).Warn("Bluetooth adapter unavailable")
	}
	return bt.adapter, bt.adapterErr
}

// RequestDevice scans for up to Config.ScanTimeout and returns the first
// advertising device that matches opts. No match within the timeout yields
// device.ErrNoDevice.
func (bt *Bluetooth) RequestDevice(ctx context.Context, opts *device.RequestDeviceOptions) (device.Device, error) {
	adapter, err := bt.getAdapter()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrUnsupported, err)
	}

	scanCtx, cancel := context.WithTimeout(ctx, bt.cfg.ScanTimeout)
	defer cancel()

	var (
		once  sync.Once
		found *Device
	)
	handler := func(adv Advertisement) {
		services := advertisedServices(adv)
		if !opts.Matches(adv.LocalName(), services) {
			return
		}
		once.Do(func() {
			found = newDevice(bt, adv.Addr().String(), adv.LocalName(), opts)
			cancel()
		})
	}

	bt.logger.WithField("timeout", bt.cfg.ScanTimeout).Debug("Scanning for a matching device...")
	scanErr := NormalizeError(adapter.Scan(scanCtx, false, handler))

	// the scan goroutine may still be delivering; once.Do orders the read
	once.Do(func() {})
	if found != nil {
		bt.logger.WithFields(logrus.Fields{
			"address": found.ID(),
			"name":    found.Name(),
		}).Info("Found matching device")
		return found, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if scanErr != nil && !errors.Is(scanErr, context.DeadlineExceeded) && !errors.Is(scanErr, context.Canceled) {
		return nil, fmt.Errorf("scan failed: %w", scanErr)
	}
	return nil, device.ErrNoDevice
}

func advertisedServices(adv Advertisement) []string {
	uuids := adv.Services()
	out := make([]string, 0, len(uuids))
	for _, u := range uuids {
		out = append(out, u.String())
	}
	return out
}

var _ device.Bluetooth = (*Bluetooth)(nil)

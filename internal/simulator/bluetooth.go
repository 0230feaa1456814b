// Package simulator provides an in-memory Bluetooth stack: peripherals with
// services and characteristics that can be requested, connected, read,
// written and made to notify, plus error injection for every operation.
package simulator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/srg/blevi/internal/device"
)

// Bluetooth is a simulated device.Bluetooth. RequestDevice grants the first
// peripheral, in registration order, that matches the request filters.
type Bluetooth struct {
	mu          sync.RWMutex
	peripherals []*Peripheral
	available   atomic.Bool
	requests    atomic.Int32
	faults      faults
	logger      *logrus.Logger
}

var _ device.Bluetooth = (*Bluetooth)(nil)

// New creates an available Bluetooth stack with the given peripherals.
func New(logger *logrus.Logger, peripherals ...*Peripheral) *Bluetooth {
	if logger == nil {
		logger = logrus.New()
	}
	bt := &Bluetooth{logger: logger}
	bt.available.Store(true)
	for _, p := range peripherals {
		bt.Add(p)
	}
	return bt
}

// Add makes p discoverable.
func (bt *Bluetooth) Add(p *Peripheral) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	p.shared = &bt.faults
	bt.peripherals = append(bt.peripherals, p)
}

// Peripherals returns the registered peripherals.
func (bt *Bluetooth) Peripherals() []*Peripheral {
	bt.mu.RLock()
	defer bt.mu.RUnlock()
	return append([]*Peripheral(nil), bt.peripherals...)
}

// SetAvailable toggles whether the stack reports itself as supported.
func (bt *Bluetooth) SetAvailable(available bool) {
	bt.available.Store(available)
}

func (bt *Bluetooth) Available() bool {
	return bt.available.Load()
}

// FailNext makes the next call of op on any peripheral fail with err.
func (bt *Bluetooth) FailNext(op Op, err error) {
	bt.faults.push(op, err)
}

// RequestDeviceCalls returns how many times RequestDevice was called.
func (bt *Bluetooth) RequestDeviceCalls() int {
	return int(bt.requests.Load())
}

func (bt *Bluetooth) RequestDevice(ctx context.Context, opts *device.RequestDeviceOptions) (device.Device, error) {
	bt.requests.Add(1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !bt.Available() {
		return nil, device.ErrUnsupported
	}
	if err := bt.faults.take(OpRequestDevice); err != nil {
		return nil, err
	}

	for _, p := range bt.Peripherals() {
		if opts.Matches(p.name, p.ServiceUUIDs()) {
			bt.logger.WithFields(logrus.Fields{
				"device": p.id,
				"name":   p.name,
			}).Debug("Simulated device granted")
			return newDevice(p, opts), nil
		}
	}
	return nil, device.ErrNoDevice
}

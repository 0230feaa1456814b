package simulator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/srg/blevi/internal/device"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Peripheral is a simulated BLE peripheral. All its methods are safe for
// concurrent use.
type Peripheral struct {
	id       string
	name     string
	services *orderedmap.OrderedMap[string, *service]
	logger   *logrus.Logger

	connected atomic.Bool
	connects  atomic.Int32

	faults faults
	shared *faults
}

// ID returns the device id.
func (p *Peripheral) ID() string { return p.id }

// Name returns the advertised name.
func (p *Peripheral) Name() string { return p.name }

// Connected reports whether a GATT connection is up.
func (p *Peripheral) Connected() bool { return p.connected.Load() }

// ConnectCalls returns how many times a connection was established.
func (p *Peripheral) ConnectCalls() int { return int(p.connects.Load()) }

// ServiceUUIDs returns the canonical UUIDs of the advertised services in
// declaration order.
func (p *Peripheral) ServiceUUIDs() []string {
	out := make([]string, 0, p.services.Len())
	for pair := p.services.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.uuid)
	}
	return out
}

// FailNext makes the next call of op on this peripheral fail with err.
func (p *Peripheral) FailNext(op Op, err error) {
	p.faults.push(op, err)
}

func (p *Peripheral) fault(op Op) error {
	if err := p.faults.take(op); err != nil {
		return err
	}
	if p.shared != nil {
		return p.shared.take(op)
	}
	return nil
}

// Notify stores data as the characteristic value and delivers it to the
// value-changed listeners if notifications are started. It reports whether
// the value was delivered.
func (p *Peripheral) Notify(serviceUUID, charUUID string, data []byte) (bool, error) {
	c, err := p.lookup(serviceUUID, charUUID)
	if err != nil {
		return false, err
	}
	return c.emit(data), nil
}

// Value returns the current value of a characteristic.
func (p *Peripheral) Value(serviceUUID, charUUID string) ([]byte, error) {
	c, err := p.lookup(serviceUUID, charUUID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.value...), nil
}

// Notifying reports whether notifications are started on a characteristic.
func (p *Peripheral) Notifying(serviceUUID, charUUID string) bool {
	c, err := p.lookup(serviceUUID, charUUID)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notifying
}

// Disconnect drops the link from the peripheral side.
func (p *Peripheral) Disconnect() {
	if !p.connected.Swap(false) {
		return
	}
	for s := p.services.Oldest(); s != nil; s = s.Next() {
		for c := s.Value.characteristics.Oldest(); c != nil; c = c.Next() {
			c.Value.mu.Lock()
			c.Value.notifying = false
			c.Value.mu.Unlock()
		}
	}
	p.logger.WithField("device", p.id).Debug("Simulated peripheral disconnected")
}

func (p *Peripheral) lookup(serviceUUID, charUUID string) (*characteristic, error) {
	svc, ok := p.services.Get(device.NormalizeUUID(serviceUUID))
	if !ok {
		return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{serviceUUID}}
	}
	c, ok := svc.characteristics.Get(device.NormalizeUUID(charUUID))
	if !ok {
		return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{serviceUUID, charUUID}}
	}
	return c, nil
}

// simDevice is the device.Device handed out by RequestDevice.
type simDevice struct {
	p      *Peripheral
	server *gattServer
}

func newDevice(p *Peripheral, opts *device.RequestDeviceOptions) *simDevice {
	return &simDevice{p: p, server: &gattServer{p: p, opts: opts}}
}

func (d *simDevice) ID() string              { return d.p.id }
func (d *simDevice) Name() string            { return d.p.name }
func (d *simDevice) GATT() device.GATTServer { return d.server }
func (d *simDevice) Peripheral() *Peripheral { return d.p }

type gattServer struct {
	p    *Peripheral
	opts *device.RequestDeviceOptions
}

func (g *gattServer) Connected() bool { return g.p.connected.Load() }

func (g *gattServer) Connect(ctx context.Context) (device.GATTServer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := g.p.fault(OpConnect); err != nil {
		return nil, err
	}
	if !g.p.connected.Swap(true) {
		g.p.connects.Add(1)
		g.p.logger.WithField("device", g.p.id).Debug("Simulated peripheral connected")
	}
	return g, nil
}

func (g *gattServer) Disconnect() {
	g.p.Disconnect()
}

func (g *gattServer) GetPrimaryService(ctx context.Context, uuid string) (device.Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !g.Connected() {
		return nil, device.ErrNotConnected
	}
	if err := g.p.fault(OpGetPrimaryService); err != nil {
		return nil, err
	}
	if g.opts != nil && !g.opts.Allows(uuid) {
		return nil, fmt.Errorf("origin is not allowed to access service %s: %w", uuid, device.ErrNotPermitted)
	}

	svc, ok := g.p.services.Get(device.NormalizeUUID(uuid))
	if !ok {
		return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{uuid}}
	}
	return svc, nil
}

type service struct {
	uuid            string
	peripheral      *Peripheral
	characteristics *orderedmap.OrderedMap[string, *characteristic]
}

func (s *service) UUID() string { return s.uuid }

func (s *service) GetCharacteristic(ctx context.Context, uuid string) (device.Characteristic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.peripheral.Connected() {
		return nil, device.ErrNotConnected
	}
	if err := s.peripheral.fault(OpGetCharacteristic); err != nil {
		return nil, err
	}

	c, ok := s.characteristics.Get(device.NormalizeUUID(uuid))
	if !ok {
		return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{s.uuid, uuid}}
	}
	return c, nil
}

type characteristic struct {
	uuid       string
	props      device.Property
	peripheral *Peripheral

	mu           sync.Mutex
	value        []byte
	notifying    bool
	listeners    *orderedmap.OrderedMap[uint64, func([]byte)]
	nextListener uint64
}

func (c *characteristic) UUID() string                { return c.uuid }
func (c *characteristic) Properties() device.Property { return c.props }

func (c *characteristic) precheck(ctx context.Context, op Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.peripheral.Connected() {
		return device.ErrNotConnected
	}
	return c.peripheral.fault(op)
}

func (c *characteristic) ReadValue(ctx context.Context) ([]byte, error) {
	if err := c.precheck(ctx, OpReadValue); err != nil {
		return nil, err
	}
	if !c.props.Has(device.PropRead) {
		return nil, fmt.Errorf("characteristic %s does not support read: %w", c.uuid, device.ErrNotPermitted)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.value...), nil
}

func (c *characteristic) WriteValue(ctx context.Context, data []byte) error {
	if err := c.precheck(ctx, OpWriteValue); err != nil {
		return err
	}
	if c.props&(device.PropWrite|device.PropWriteWithoutResponse) == 0 {
		return fmt.Errorf("characteristic %s does not support write: %w", c.uuid, device.ErrNotPermitted)
	}

	c.mu.Lock()
	c.value = append([]byte(nil), data...)
	c.mu.Unlock()

	c.peripheral.logger.WithFields(logrus.Fields{
		"characteristic": c.uuid,
		"bytes":          len(data),
	}).Debug("Simulated characteristic written")
	return nil
}

func (c *characteristic) StartNotifications(ctx context.Context) error {
	if err := c.precheck(ctx, OpStartNotifications); err != nil {
		return err
	}
	if !c.props.CanNotify() {
		return fmt.Errorf("characteristic %s does not support notifications: %w", c.uuid, device.ErrNotPermitted)
	}

	c.mu.Lock()
	c.notifying = true
	c.mu.Unlock()
	return nil
}

func (c *characteristic) StopNotifications(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.peripheral.fault(OpStopNotifications); err != nil {
		return err
	}

	c.mu.Lock()
	c.notifying = false
	c.mu.Unlock()
	return nil
}

func (c *characteristic) AddValueChangedListener(fn func([]byte)) func() {
	c.mu.Lock()
	c.nextListener++
	id := c.nextListener
	c.listeners.Set(id, fn)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		c.listeners.Delete(id)
		c.mu.Unlock()
	}
}

// emit updates the value and fans it out to listeners outside the lock.
func (c *characteristic) emit(data []byte) bool {
	c.mu.Lock()
	c.value = append([]byte(nil), data...)
	if !c.notifying {
		c.mu.Unlock()
		return false
	}
	snapshot := make([]func([]byte), 0, c.listeners.Len())
	for pair := c.listeners.Oldest(); pair != nil; pair = pair.Next() {
		snapshot = append(snapshot, pair.Value)
	}
	c.mu.Unlock()

	for _, fn := range snapshot {
		fn(append([]byte(nil), data...))
	}
	return true
}

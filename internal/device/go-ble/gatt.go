package goble

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blevi/internal/device"
	"github.com/srg/blevi/internal/groutine"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Device is a peripheral found by RequestDevice.
type Device struct {
	address string
	name    string
	server  *gattServer
}

func newDevice(bt *Bluetooth, address, name string, opts *device.RequestDeviceOptions) *Device {
	d := &Device{address: address, name: name}
	d.server = &gattServer{
		bt:      bt,
		address: address,
		opts:    opts,
		logger:  bt.logger,
	}
	return d
}

func (d *Device) ID() string              { return d.address }
func (d *Device) Name() string            { return d.name }
func (d *Device) GATT() device.GATTServer { return d.server }

// gattServer owns the go-ble client of one device. Services and
// characteristics handed out keep working across reconnects: they look up
// the live ble handles on every operation.
type gattServer struct {
	bt      *Bluetooth
	address string
	opts    *device.RequestDeviceOptions
	logger  *logrus.Logger

	mu       sync.RWMutex
	client   Client
	profile  *orderedmap.OrderedMap[string, *ble.Service]
	linkDone chan struct{}
}

func (s *gattServer) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

// Connect dials the device within Config.ConnectTimeout and discovers its profile.
func (s *gattServer) Connect(ctx context.Context) (device.GATTServer, error) {
	if s.Connected() {
		return s, nil
	}

	adapter, err := s.bt.getAdapter()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", device.ErrUnsupported, err)
	}

	connCtx, cancel := context.WithTimeout(ctx, s.bt.cfg.ConnectTimeout)
	defer cancel()

	s.logger.WithFields(logrus.Fields{
		"address": s.address,
		"timeout": s.bt.cfg.ConnectTimeout,
	}).Info("Connecting to BLE device...")

	client, err := adapter.Dial(connCtx, ble.NewAddr(s.address))
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"address": s.address,
			"error":   err,
		}).Error("Failed to dial BLE device")
		return nil, fmt.Errorf("failed to connect to device with address \"%s\": %w", s.address, NormalizeError(err))
	}

	s.logger.WithField("address", s.address).Debug("Discovering services and characteristics...")
	p, err := client.DiscoverProfile(true)
	if err != nil {
		if cancelErr := client.CancelConnection(); cancelErr != nil {
			s.logger.WithField("cancel_error", cancelErr).Warn("Failed to cancel connection during profile discovery failure")
		}
		return nil, fmt.Errorf("failed to discover profile: %w", NormalizeError(err))
	}

	profile := orderedmap.New[string, *ble.Service]()
	for _, svc := range p.Services {
		profile.Set(device.NormalizeUUID(svc.UUID.String()), svc)
	}

	s.mu.Lock()
	if s.client != nil {
		// lost a race with a concurrent Connect
		s.mu.Unlock()
		if cancelErr := client.CancelConnection(); cancelErr != nil {
			s.logger.WithField("cancel_error", cancelErr).Debug("Failed to cancel duplicate connection")
		}
		return s, nil
	}
	s.client = client
	s.profile = profile
	s.linkDone = make(chan struct{})
	linkDone := s.linkDone
	s.mu.Unlock()

	if n, ok := client.(disconnectNotifier); ok {
		groutine.Go(context.Background(), "ble-connection-monitor", func(context.Context) {
			select {
			case <-n.Disconnected():
				s.logger.WithField("address", s.address).Warn("Device reported disconnection")
				s.drop(client)
			case <-linkDone:
			}
		})
	}

	s.logger.WithFields(logrus.Fields{
		"address":  s.address,
		"services": profile.Len(),
	}).Info("BLE device connected successfully")
	return s, nil
}

// Disconnect cancels the connection. It is a no-op when not connected.
func (s *gattServer) Disconnect() {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		s.logger.Debug("Disconnect called but already disconnected")
		return
	}

	if s.drop(client) {
		if err := NormalizeError(client.CancelConnection()); err != nil {
			s.logger.WithError(err).Warn("Failed to cancel BLE connection")
		}
	}
}

// drop forgets client if it is still the current one.
func (s *gattServer) drop(client Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != client {
		return false
	}
	s.client = nil
	s.profile = nil
	close(s.linkDone)
	s.linkDone = nil
	return true
}

func (s *gattServer) GetPrimaryService(ctx context.Context, uuid string) (device.Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.opts.Allows(uuid) {
		return nil, fmt.Errorf("%w: service %s is not listed in the requestDevice filters or optionalServices", device.ErrNotPermitted, uuid)
	}
	if _, err := s.lookupService(uuid); err != nil {
		return nil, err
	}
	return &service{server: s, uuid: uuid}, nil
}

func (s *gattServer) lookupService(uuid string) (*ble.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, device.ErrNotConnected
	}
	svc, ok := s.profile.Get(device.NormalizeUUID(uuid))
	if !ok {
		return nil, &device.NotFoundError{Resource: "service", UUIDs: []string{uuid}}
	}
	return svc, nil
}

// lookup returns the live client and ble handle of a characteristic.
func (s *gattServer) lookup(serviceUUID, charUUID string) (Client, *ble.Characteristic, error) {
	svc, err := s.lookupService(serviceUUID)
	if err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return nil, nil, device.ErrNotConnected
	}

	want := device.NormalizeUUID(charUUID)
	for _, c := range svc.Characteristics {
		if device.NormalizeUUID(c.UUID.String()) == want {
			return client, c, nil
		}
	}
	return nil, nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{serviceUUID, charUUID}}
}

var _ device.Device = (*Device)(nil)

package goble

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blevi/internal/device"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type service struct {
	server *gattServer
	uuid   string
}

func (s *service) UUID() string { return s.uuid }

func (s *service) GetCharacteristic(ctx context.Context, uuid string) (device.Characteristic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, c, err := s.server.lookup(s.uuid, uuid)
	if err != nil {
		return nil, err
	}
	return &characteristic{
		server:      s.server,
		serviceUUID: s.uuid,
		uuid:        uuid,
		props:       properties(c.Property),
		listeners:   orderedmap.New[uint64, func([]byte)](),
		logger:      s.server.logger,
	}, nil
}

type characteristic struct {
	server      *gattServer
	serviceUUID string
	uuid        string
	props       device.Property
	logger      *logrus.Logger

	mu        sync.Mutex
	listeners *orderedmap.OrderedMap[uint64, func([]byte)]
	nextID    uint64
}

func (c *characteristic) UUID() string                { return c.uuid }
func (c *characteristic) Properties() device.Property { return c.props }

type readResult struct {
	data []byte
	err  error
}

// call runs a blocking go-ble request and gives up when ctx is done. The
// request itself cannot be cancelled and finishes in the background.
func call(ctx context.Context, fn func() ([]byte, error)) ([]byte, error) {
	resultCh := make(chan readResult, 1)
	go func() {
		data, err := fn()
		resultCh <- readResult{data: data, err: err}
	}()

	select {
	case result := <-resultCh:
		return result.data, NormalizeError(result.err)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *characteristic) ReadValue(ctx context.Context) ([]byte, error) {
	if !c.props.Has(device.PropRead) {
		return nil, fmt.Errorf("%w: characteristic %s does not support read", device.ErrNotPermitted, c.uuid)
	}
	client, bc, err := c.server.lookup(c.serviceUUID, c.uuid)
	if err != nil {
		return nil, err
	}

	data, err := call(ctx, func() ([]byte, error) {
		return client.ReadCharacteristic(bc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read characteristic %s: %w", c.uuid, err)
	}
	return data, nil
}

func (c *characteristic) WriteValue(ctx context.Context, data []byte) error {
	var noRsp bool
	switch {
	case c.props.Has(device.PropWrite):
	case c.props.Has(device.PropWriteWithoutResponse):
		noRsp = true
	default:
		return fmt.Errorf("%w: characteristic %s does not support write", device.ErrNotPermitted, c.uuid)
	}

	client, bc, err := c.server.lookup(c.serviceUUID, c.uuid)
	if err != nil {
		return err
	}

	_, err = call(ctx, func() ([]byte, error) {
		return nil, client.WriteCharacteristic(bc, data, noRsp)
	})
	if err != nil {
		return fmt.Errorf("failed to write characteristic %s: %w", c.uuid, err)
	}
	return nil
}

// indicate selects indications for characteristics that cannot notify.
func (c *characteristic) indicate() bool {
	return !c.props.Has(device.PropNotify) && c.props.Has(device.PropIndicate)
}

func (c *characteristic) StartNotifications(ctx context.Context) error {
	if !c.props.CanNotify() {
		return fmt.Errorf("%w: characteristic %s does not support notifications", device.ErrNotPermitted, c.uuid)
	}
	client, bc, err := c.server.lookup(c.serviceUUID, c.uuid)
	if err != nil {
		return err
	}

	_, err = call(ctx, func() ([]byte, error) {
		return nil, client.Subscribe(bc, c.indicate(), c.dispatch)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to characteristic %s: %w", c.uuid, err)
	}

	c.logger.WithFields(logrus.Fields{
		"service":        c.serviceUUID,
		"characteristic": c.uuid,
	}).Debug("Subscribed to characteristic")
	return nil
}

func (c *characteristic) StopNotifications(ctx context.Context) error {
	client, bc, err := c.server.lookup(c.serviceUUID, c.uuid)
	if err != nil {
		return err
	}

	_, err = call(ctx, func() ([]byte, error) {
		return nil, client.Unsubscribe(bc, c.indicate())
	})
	if err != nil {
		return fmt.Errorf("failed to unsubscribe from characteristic %s: %w", c.uuid, err)
	}
	return nil
}

func (c *characteristic) AddValueChangedListener(fn func(value []byte)) (remove func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners.Set(id, fn)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		c.listeners.Delete(id)
		c.mu.Unlock()
	}
}

// dispatch is the go-ble notification handler. go-ble reuses its buffer, so
// every listener gets a copy.
func (c *characteristic) dispatch(data []byte) {
	c.mu.Lock()
	fns := make([]func([]byte), 0, c.listeners.Len())
	for pair := c.listeners.Oldest(); pair != nil; pair = pair.Next() {
		fns = append(fns, pair.Value)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(append([]byte(nil), data...))
	}
}

// properties converts go-ble property bits.
func properties(p ble.Property) device.Property {
	var out device.Property
	for _, m := range []struct {
		from ble.Property
		to   device.Property
	}{
		{ble.CharBroadcast, device.PropBroadcast},
		{ble.CharRead, device.PropRead},
		{ble.CharWriteNR, device.PropWriteWithoutResponse},
		{ble.CharWrite, device.PropWrite},
		{ble.CharNotify, device.PropNotify},
		{ble.CharIndicate, device.PropIndicate},
	} {
		if p&m.from != 0 {
			out |= m.to
		}
	}
	return out
}

var (
	_ device.Service        = (*service)(nil)
	_ device.Characteristic = (*characteristic)(nil)
)

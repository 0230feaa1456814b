package goble

import (
	"context"

	"github.com/go-ble/ble"
)

// DeviceFactory creates ble.Device instances (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking as device.DeviceFactory
var DeviceFactory = newPlatformDevice

// AdapterFactory opens the Adapter a Bluetooth scans and dials with (can be overridden in tests)
var AdapterFactory = NewAdapter

// Advertisement is the part of ble.Advertisement a device request looks at.
type Advertisement interface {
	LocalName() string
	Services() []ble.UUID
	Addr() ble.Addr
}

// Client is the part of ble.Client the GATT server uses.
type Client interface {
	DiscoverProfile(force bool) (*ble.Profile, error)
	ReadCharacteristic(c *ble.Characteristic) ([]byte, error)
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	Unsubscribe(c *ble.Characteristic, ind bool) error
	CancelConnection() error
}

// Adapter is a host Bluetooth controller able to scan and dial.
type Adapter interface {
	Scan(ctx context.Context, allowDup bool, h func(Advertisement)) error
	Dial(ctx context.Context, addr ble.Addr) (Client, error)
}

// bleAdapter narrows a ble.Device to an Adapter.
type bleAdapter struct {
	dev ble.Device
}

// NewAdapter creates an Adapter over the platform device returned by DeviceFactory.
func NewAdapter() (Adapter, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, NormalizeError(err)
	}
	return &bleAdapter{dev: dev}, nil
}

func (a *bleAdapter) Scan(ctx context.Context, allowDup bool, h func(Advertisement)) error {
	return a.dev.Scan(ctx, allowDup, func(adv ble.Advertisement) {
		h(adv)
	})
}

func (a *bleAdapter) Dial(ctx context.Context, addr ble.Addr) (Client, error) {
	client, err := a.dev.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// disconnectNotifier is implemented by clients that report link loss (darwin).
type disconnectNotifier interface {
	Disconnected() <-chan struct{}
}

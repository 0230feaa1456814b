// Package mocks holds testify mocks of the go-ble backend seams.
package mocks

import (
	"context"

	"github.com/go-ble/ble"
	goble "github.com/srg/blevi/internal/device/go-ble"
	"github.com/stretchr/testify/mock"
)

// MockAdapter is a mock of goble.Adapter.
type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Scan(ctx context.Context, allowDup bool, h func(goble.Advertisement)) error {
	args := m.Called(ctx, allowDup, h)
	return args.Error(0)
}

func (m *MockAdapter) Dial(ctx context.Context, addr ble.Addr) (goble.Client, error) {
	args := m.Called(ctx, addr)
	client, _ := args.Get(0).(goble.Client)
	return client, args.Error(1)
}

// MockClient is a mock of goble.Client.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) DiscoverProfile(force bool) (*ble.Profile, error) {
	args := m.Called(force)
	profile, _ := args.Get(0).(*ble.Profile)
	return profile, args.Error(1)
}

func (m *MockClient) ReadCharacteristic(c *ble.Characteristic) ([]byte, error) {
	args := m.Called(c)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockClient) WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error {
	args := m.Called(c, value, noRsp)
	return args.Error(0)
}

func (m *MockClient) Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error {
	args := m.Called(c, ind, h)
	return args.Error(0)
}

func (m *MockClient) Unsubscribe(c *ble.Characteristic, ind bool) error {
	args := m.Called(c, ind)
	return args.Error(0)
}

func (m *MockClient) CancelConnection() error {
	args := m.Called()
	return args.Error(0)
}

// MockAdvertisement is a mock of goble.Advertisement.
type MockAdvertisement struct {
	mock.Mock
}

func (m *MockAdvertisement) LocalName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockAdvertisement) Services() []ble.UUID {
	args := m.Called()
	uuids, _ := args.Get(0).([]ble.UUID)
	return uuids
}

func (m *MockAdvertisement) Addr() ble.Addr {
	args := m.Called()
	addr, _ := args.Get(0).(ble.Addr)
	return addr
}

var (
	_ goble.Adapter       = (*MockAdapter)(nil)
	_ goble.Client        = (*MockClient)(nil)
	_ goble.Advertisement = (*MockAdvertisement)(nil)
)

package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	blelib "github.com/go-ble/ble"
	"github.com/srg/blevi/internal/device"
	goble "github.com/srg/blevi/internal/device/go-ble"
	"github.com/srg/blevi/internal/testutils/mocks"
	"github.com/stretchr/testify/mock"
)

// CharacteristicConfig represents a BLE characteristic configuration for mocking
type CharacteristicConfig struct {
	UUID       string `json:"uuid"`
	Properties string `json:"properties,omitempty"` // e.g., "read,write,notify"
	Value      []byte `json:"value,omitempty"`
}

// ServiceConfig represents a BLE service configuration for mocking
type ServiceConfig struct {
	UUID            string                 `json:"uuid"`
	Characteristics []CharacteristicConfig `json:"characteristics,omitempty"`
}

// DeviceProfileConfig represents the advertised identity and GATT profile of a mocked peripheral
type DeviceProfileConfig struct {
	Name     string          `json:"name,omitempty"`
	Address  string          `json:"address,omitempty"`
	Services []ServiceConfig `json:"services"`
}

// DefaultPeripheralAddress is the address of a mocked peripheral unless configured otherwise.
const DefaultPeripheralAddress = "AA:BB:CC:DD:EE:FF"

// PeripheralDeviceBuilder builds a mocked goble.Adapter that advertises one
// peripheral and serves its profile once dialed.
type PeripheralDeviceBuilder struct {
	profile            DeviceProfileConfig
	scanAdvertisements []goble.Advertisement

	dialErr      error
	discoverErr  error
	subscribeErr error
}

// NewPeripheralDeviceBuilder creates a new peripheral device builder
func NewPeripheralDeviceBuilder() *PeripheralDeviceBuilder {
	return &PeripheralDeviceBuilder{
		profile: DeviceProfileConfig{
			Address:  DefaultPeripheralAddress,
			Services: []ServiceConfig{},
		},
	}
}

// WithName sets the advertised local name
func (b *PeripheralDeviceBuilder) WithName(name string) *PeripheralDeviceBuilder {
	b.profile.Name = name
	return b
}

// WithAddress sets the advertised address
func (b *PeripheralDeviceBuilder) WithAddress(addr string) *PeripheralDeviceBuilder {
	b.profile.Address = addr
	return b
}

// WithService adds a service to the device profile
func (b *PeripheralDeviceBuilder) WithService(uuid string) *PeripheralDeviceBuilder {
	b.profile.Services = append(b.profile.Services, ServiceConfig{
		UUID:            uuid,
		Characteristics: []CharacteristicConfig{},
	})
	return b
}

// WithCharacteristic adds a characteristic to the last added service
func (b *PeripheralDeviceBuilder) WithCharacteristic(uuid, properties string, value []byte) *PeripheralDeviceBuilder {
	if len(b.profile.Services) == 0 {
		panic("WithCharacteristic: no service added yet, call WithService first")
	}

	lastServiceIdx := len(b.profile.Services) - 1
	b.profile.Services[lastServiceIdx].Characteristics = append(
		b.profile.Services[lastServiceIdx].Characteristics, CharacteristicConfig{
			UUID:       uuid,
			Properties: properties,
			Value:      value,
		})
	return b
}

// FromJSON fills the device profile from JSON
func (b *PeripheralDeviceBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *PeripheralDeviceBuilder {
	jsonStr := fmt.Sprintf(jsonStrFmt, args...)

	var config DeviceProfileConfig
	if err := json.Unmarshal([]byte(jsonStr), &config); err != nil {
		panic(fmt.Sprintf("PeripheralDeviceBuilder.FromJSON: failed to unmarshal: %v", err))
	}
	if config.Address == "" {
		config.Address = DefaultPeripheralAddress
	}

	b.profile = config
	return b
}

// WithScanAdvertisements adds advertisements of other devices, delivered before the peripheral's own.
func (b *PeripheralDeviceBuilder) WithScanAdvertisements(ads ...goble.Advertisement) *PeripheralDeviceBuilder {
	b.scanAdvertisements = append(b.scanAdvertisements, ads...)
	return b
}

// WithDialError makes Dial fail with err
func (b *PeripheralDeviceBuilder) WithDialError(err error) *PeripheralDeviceBuilder {
	b.dialErr = err
	return b
}

// WithDiscoverError makes DiscoverProfile fail with err
func (b *PeripheralDeviceBuilder) WithDiscoverError(err error) *PeripheralDeviceBuilder {
	b.discoverErr = err
	return b
}

// WithSubscribeError makes Subscribe fail with err
func (b *PeripheralDeviceBuilder) WithSubscribeError(err error) *PeripheralDeviceBuilder {
	b.subscribeErr = err
	return b
}

// parseCharacteristicProperties converts property string to ble.Property flags
func parseCharacteristicProperties(props string) blelib.Property {
	if props == "" {
		return blelib.CharRead | blelib.CharWrite | blelib.CharNotify // default
	}

	p, err := device.ParseProperties(props)
	if err != nil {
		panic(fmt.Sprintf("PeripheralDeviceBuilder: %v", err))
	}

	var property blelib.Property
	for _, m := range []struct {
		from device.Property
		to   blelib.Property
	}{
		{device.PropBroadcast, blelib.CharBroadcast},
		{device.PropRead, blelib.CharRead},
		{device.PropWriteWithoutResponse, blelib.CharWriteNR},
		{device.PropWrite, blelib.CharWrite},
		{device.PropNotify, blelib.CharNotify},
		{device.PropIndicate, blelib.CharIndicate},
	} {
		if p.Has(m.from) {
			property |= m.to
		}
	}
	return property
}

// MockPeripheral is the result of PeripheralDeviceBuilder.Build.
type MockPeripheral struct {
	Adapter       *mocks.MockAdapter
	Client        *mocks.MockClient
	Advertisement *mocks.MockAdvertisement
	Profile       *blelib.Profile

	mu       sync.Mutex
	handlers map[*blelib.Characteristic]blelib.NotificationHandler
}

// Characteristic returns the profile entry of a characteristic by UUID, or nil.
func (p *MockPeripheral) Characteristic(uuid string) *blelib.Characteristic {
	for _, svc := range p.Profile.Services {
		for _, c := range svc.Characteristics {
			if device.SameUUID(c.UUID.String(), uuid) {
				return c
			}
		}
	}
	return nil
}

// Notify delivers data to the subscription handler of a characteristic.
// It returns false when the characteristic has no active subscription.
func (p *MockPeripheral) Notify(uuid string, data []byte) bool {
	c := p.Characteristic(uuid)
	if c == nil {
		return false
	}

	p.mu.Lock()
	h, ok := p.handlers[c]
	p.mu.Unlock()
	if !ok {
		return false
	}
	h(data)
	return true
}

// Subscribed reports whether a characteristic has an active subscription.
func (p *MockPeripheral) Subscribed(uuid string) bool {
	c := p.Characteristic(uuid)
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.handlers[c]
	return ok
}

// Build creates the mocked adapter, client and advertisement for the configured profile
func (b *PeripheralDeviceBuilder) Build() *MockPeripheral {
	p := &MockPeripheral{
		Adapter:  &mocks.MockAdapter{},
		Client:   &mocks.MockClient{},
		handlers: make(map[*blelib.Characteristic]blelib.NotificationHandler),
	}

	var bleServices []*blelib.Service
	var advertised []string
	for _, svcConfig := range b.profile.Services {
		bleService := &blelib.Service{
			UUID: blelib.MustParse(svcConfig.UUID),
		}
		advertised = append(advertised, svcConfig.UUID)

		for _, charConfig := range svcConfig.Characteristics {
			bleService.Characteristics = append(bleService.Characteristics, &blelib.Characteristic{
				UUID:     blelib.MustParse(charConfig.UUID),
				Property: parseCharacteristicProperties(charConfig.Properties),
				Value:    charConfig.Value,
			})
		}
		bleServices = append(bleServices, bleService)
	}
	p.Profile = &blelib.Profile{Services: bleServices}

	p.Advertisement = NewAdvertisementBuilder().
		WithName(b.profile.Name).
		WithAddress(b.profile.Address).
		WithServices(advertised...).
		Build()
	ads := append(append([]goble.Advertisement(nil), b.scanAdvertisements...), p.Advertisement)

	// Scan delivers every advertisement and then blocks like a real scan
	p.Adapter.On("Scan", mock.Anything, false, mock.Anything).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		handler := args.Get(2).(func(goble.Advertisement))
		for _, adv := range ads {
			if ctx.Err() != nil {
				return
			}
			handler(adv)
		}
		<-ctx.Done()
	}).Return(nil).Maybe()

	if b.dialErr != nil {
		p.Adapter.On("Dial", mock.Anything, mock.Anything).Return(nil, b.dialErr).Maybe()
	} else {
		p.Adapter.On("Dial", mock.Anything, mock.Anything).Return(p.Client, nil).Maybe()
	}

	p.Client.On("DiscoverProfile", true).Return(p.Profile, b.discoverErr).Maybe()
	p.Client.On("CancelConnection").Return(nil).Maybe()

	for _, svc := range bleServices {
		for _, char := range svc.Characteristics {
			c := char
			if b.subscribeErr != nil {
				p.Client.On("Subscribe", c, mock.Anything, mock.Anything).Return(b.subscribeErr).Maybe()
			} else {
				p.Client.On("Subscribe", c, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
					p.mu.Lock()
					p.handlers[c] = args.Get(2).(blelib.NotificationHandler)
					p.mu.Unlock()
				}).Return(nil).Maybe()
			}
			p.Client.On("Unsubscribe", c, mock.Anything).Run(func(mock.Arguments) {
				p.mu.Lock()
				delete(p.handlers, c)
				p.mu.Unlock()
			}).Return(nil).Maybe()
			p.Client.On("WriteCharacteristic", c, mock.Anything, mock.Anything).Return(nil).Maybe()

			if c.Property&blelib.CharRead != 0 {
				p.Client.On("ReadCharacteristic", c).Return(c.Value, nil).Maybe()
			} else {
				p.Client.On("ReadCharacteristic", c).Return(nil, fmt.Errorf("characteristic does not support read")).Maybe()
			}
		}
	}

	return p
}

// GetServices returns the configured services
func (b *PeripheralDeviceBuilder) GetServices() []ServiceConfig {
	return b.profile.Services
}

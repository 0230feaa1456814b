package testutils

import (
	"encoding/json"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/srg/blevi/internal/testutils/mocks"
)

// AdvertisementBuilder builds mocked BLE advertisements for testing.
// It provides a fluent API for configuring mock goble.Advertisement instances.
type AdvertisementBuilder struct {
	name     string
	address  string
	services []string
}

// NewAdvertisementBuilder creates a new AdvertisementBuilder.
func NewAdvertisementBuilder() *AdvertisementBuilder {
	return &AdvertisementBuilder{}
}

// WithName sets the local name for the advertisement.
func (b *AdvertisementBuilder) WithName(name string) *AdvertisementBuilder {
	b.name = name
	return b
}

// WithAddress sets the device address for the advertisement.
func (b *AdvertisementBuilder) WithAddress(addr string) *AdvertisementBuilder {
	b.address = addr
	return b
}

// WithServices adds service UUIDs to the advertisement.
// UUIDs can be in short form (e.g., "180D") or full form.
func (b *AdvertisementBuilder) WithServices(uuids ...string) *AdvertisementBuilder {
	b.services = append(b.services, uuids...)
	return b
}

// FromJSON fills builder fields from a JSON string with format support.
// Panics on invalid JSON as this is intended for test data setup.
func (b *AdvertisementBuilder) FromJSON(jsonStrFmt string, args ...interface{}) *AdvertisementBuilder {
	jsonStr := fmt.Sprintf(jsonStrFmt, args...)

	var data struct {
		Name     string   `json:"name"`
		Address  string   `json:"address"`
		Services []string `json:"services"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &data); err != nil {
		panic(fmt.Sprintf("AdvertisementBuilder.FromJSON: failed to unmarshal: %v", err))
	}

	b.name = data.Name
	b.address = data.Address
	b.services = data.Services
	return b
}

// Build creates a MockAdvertisement. Each accessor may be called any number of times.
func (b *AdvertisementBuilder) Build() *mocks.MockAdvertisement {
	adv := &mocks.MockAdvertisement{}

	uuids := make([]ble.UUID, 0, len(b.services))
	for _, s := range b.services {
		uuids = append(uuids, ble.MustParse(s))
	}

	adv.On("LocalName").Return(b.name).Maybe()
	adv.On("Addr").Return(ble.NewAddr(b.address)).Maybe()
	adv.On("Services").Return(uuids).Maybe()
	return adv
}

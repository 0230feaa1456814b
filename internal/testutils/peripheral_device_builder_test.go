package testutils

import (
	"context"
	"testing"
	"time"

	blelib "github.com/go-ble/ble"
	goble "github.com/srg/blevi/internal/device/go-ble"
	"github.com/stretchr/testify/suite"
)

// PeripheralDeviceBuilderTestSuite tests PeripheralDeviceBuilder functionality
type PeripheralDeviceBuilderTestSuite struct {
	suite.Suite
}

func TestPeripheralDeviceBuilderTestSuite(t *testing.T) {
	suite.Run(t, new(PeripheralDeviceBuilderTestSuite))
}

func (s *PeripheralDeviceBuilderTestSuite) TestProfileFromJSON() {
	// GOAL: Verify FromJSON produces the ble profile, properties and default address
	//
	// TEST SCENARIO: one service with two characteristics → matching ble.Profile served by DiscoverProfile

	p := NewPeripheralDeviceBuilder().FromJSON(`
	{
		"name": "PLAYBULB CANDLE",
		"services": [
			{
				"uuid": "FF02",
				"characteristics": [
					{ "uuid": "FFFC", "properties": "write,writeWithoutResponse" },
					{ "uuid": "FFFB", "value": [1, 2] }
				]
			}
		]
	}`).Build()

	client, err := p.Adapter.Dial(context.Background(), blelib.NewAddr(DefaultPeripheralAddress))
	s.Require().NoError(err)
	profile, err := client.DiscoverProfile(true)
	s.Require().NoError(err)

	s.Require().Len(profile.Services, 1)
	s.Equal("ff02", profile.Services[0].UUID.String())
	s.Require().Len(profile.Services[0].Characteristics, 2)

	color := p.Characteristic("fffc")
	s.Require().NotNil(color)
	s.Equal(blelib.CharWrite|blelib.CharWriteNR, color.Property)

	effect := p.Characteristic("FFFB")
	s.Require().NotNil(effect)
	s.Equal(blelib.CharRead|blelib.CharWrite|blelib.CharNotify, effect.Property, "default properties")

	value, err := client.ReadCharacteristic(effect)
	s.Require().NoError(err)
	s.Equal([]byte{1, 2}, value)

	s.Equal("PLAYBULB CANDLE", p.Advertisement.LocalName())
	s.Equal(DefaultPeripheralAddress, p.Advertisement.Addr().String())
}

func (s *PeripheralDeviceBuilderTestSuite) TestScanDeliversAdvertisementsInOrder() {
	// GOAL: Verify Scan hands out extra advertisements before the peripheral's own and blocks until cancelled
	//
	// TEST SCENARIO: one extra advertisement → handler sees "Other" then "Battery"; Scan returns after ctx timeout

	other := NewAdvertisementBuilder().WithName("Other").WithAddress("11:22:33:44:55:66").Build()
	p := NewPeripheralDeviceBuilder().
		WithName("Battery").
		WithService("180F").
		WithCharacteristic("2A19", "read,notify", []byte{50}).
		WithScanAdvertisements(other).
		Build()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var names []string
	err := p.Adapter.Scan(ctx, false, func(adv goble.Advertisement) {
		names = append(names, adv.LocalName())
	})
	s.Require().NoError(err)
	s.Equal([]string{"Other", "Battery"}, names)
	s.Error(ctx.Err())
}

func (s *PeripheralDeviceBuilderTestSuite) TestNotifyRequiresSubscription() {
	// GOAL: Verify Notify only reaches subscribed characteristics
	//
	// TEST SCENARIO: Notify before Subscribe → false; after Subscribe → handler receives data; after Unsubscribe → false

	p := NewPeripheralDeviceBuilder().
		WithService("180D").
		WithCharacteristic("2A37", "notify", nil).
		Build()
	hrm := p.Characteristic("2A37")

	s.False(p.Notify("2A37", []byte{1}))

	var got []byte
	s.Require().NoError(p.Client.Subscribe(hrm, false, func(data []byte) { got = data }))
	s.True(p.Subscribed("2A37"))
	s.True(p.Notify("2A37", []byte{72}))
	s.Equal([]byte{72}, got)

	s.Require().NoError(p.Client.Unsubscribe(hrm, false))
	s.False(p.Notify("2A37", []byte{73}))
}

func (s *PeripheralDeviceBuilderTestSuite) TestWithCharacteristicRequiresService() {
	s.Panics(func() {
		NewPeripheralDeviceBuilder().WithCharacteristic("2A19", "read", nil)
	})
}

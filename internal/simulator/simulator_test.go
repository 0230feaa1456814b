package simulator

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/srg/blevi/internal/device"
	"github.com/stretchr/testify/suite"
)

const (
	batteryService = "0000180f-0000-1000-8000-00805f9b34fb"
	batteryLevel   = "00002a19-0000-1000-8000-00805f9b34fb"
	candleService  = "0000ff02-0000-1000-8000-00805f9b34fb"
	candleColor    = "0000fffc-0000-1000-8000-00805f9b34fb"
)

type SimulatorTestSuite struct {
	suite.Suite
	bt      *Bluetooth
	battery *Peripheral
	candle  *Peripheral
	ctx     context.Context
}

func (suite *SimulatorTestSuite) SetupTest() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	suite.battery = NewPeripheralBuilder().
		WithID("battery-1").
		WithName("Battery").
		WithLogger(logger).
		WithService("battery_service").
		WithCharacteristic("battery_level", "read,notify", []byte{0x64}).
		Build()

	suite.candle = NewPeripheralBuilder().
		WithLogger(logger).
		FromJSON(`{
			"id": "candle-1",
			"name": "PLAYBULB CANDLE",
			"services": [
				{"uuid": "0xff02", "characteristics": [
					{"uuid": "fffc", "properties": "write,writeWithoutResponse"}
				]}
			]
		}`).
		Build()

	suite.bt = New(logger, suite.battery, suite.candle)
	suite.ctx = context.Background()
}

func (suite *SimulatorTestSuite) request(json string) device.Device {
	opts, err := device.ParseRequestDeviceOptions(json)
	suite.Require().NoError(err)
	dev, err := suite.bt.RequestDevice(suite.ctx, opts)
	suite.Require().NoError(err)
	return dev
}

func (suite *SimulatorTestSuite) TestRequestDeviceMatchesFilters() {
	dev := suite.request(`{"filters":[{"services":["battery_service"]}]}`)
	suite.Equal("battery-1", dev.ID())
	suite.Equal("Battery", dev.Name())

	dev = suite.request(`{"filters":[{"namePrefix":"PLAYBULB"}]}`)
	suite.Equal("candle-1", dev.ID())

	dev = suite.request(`{"acceptAllDevices":true}`)
	suite.Equal("battery-1", dev.ID())

	opts, err := device.ParseRequestDeviceOptions(`{"filters":[{"name":"nobody"}]}`)
	suite.Require().NoError(err)
	_, err = suite.bt.RequestDevice(suite.ctx, opts)
	suite.ErrorIs(err, device.ErrNoDevice)

	suite.Equal(4, suite.bt.RequestDeviceCalls())
}

func (suite *SimulatorTestSuite) TestRequestDeviceUnavailable() {
	suite.bt.SetAvailable(false)
	suite.False(suite.bt.Available())

	opts, err := device.ParseRequestDeviceOptions(`{"acceptAllDevices":true}`)
	suite.Require().NoError(err)
	_, err = suite.bt.RequestDevice(suite.ctx, opts)
	suite.ErrorIs(err, device.ErrUnsupported)
}

func (suite *SimulatorTestSuite) TestGATTFlow() {
	// GOAL: Verify connect → service → characteristic → read/write on the simulated stack
	//
	// TEST SCENARIO: Request battery device → connect → read level → write rejected (read,notify only)

	dev := suite.request(`{"filters":[{"services":["battery_service"]}]}`)

	server, err := dev.GATT().Connect(suite.ctx)
	suite.Require().NoError(err)
	suite.True(server.Connected())
	suite.Equal(1, suite.battery.ConnectCalls())

	svc, err := server.GetPrimaryService(suite.ctx, batteryService)
	suite.Require().NoError(err)
	suite.Equal(batteryService, svc.UUID())

	char, err := svc.GetCharacteristic(suite.ctx, batteryLevel)
	suite.Require().NoError(err)
	suite.Equal(device.PropRead|device.PropNotify, char.Properties())

	value, err := char.ReadValue(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal([]byte{0x64}, value)

	err = char.WriteValue(suite.ctx, []byte{0x01})
	suite.ErrorIs(err, device.ErrNotPermitted)

	_, err = svc.GetCharacteristic(suite.ctx, candleColor)
	var nfErr *device.NotFoundError
	suite.ErrorAs(err, &nfErr)
}

func (suite *SimulatorTestSuite) TestServiceAccessRestrictedToRequestedServices() {
	dev := suite.request(`{"filters":[{"name":"PLAYBULB CANDLE"}]}`)
	server, err := dev.GATT().Connect(suite.ctx)
	suite.Require().NoError(err)

	_, err = server.GetPrimaryService(suite.ctx, candleService)
	suite.ErrorIs(err, device.ErrNotPermitted)

	dev = suite.request(`{"filters":[{"name":"PLAYBULB CANDLE"}],"optionalServices":[65282]}`)
	server, err = dev.GATT().Connect(suite.ctx)
	suite.Require().NoError(err)

	svc, err := server.GetPrimaryService(suite.ctx, candleService)
	suite.Require().NoError(err)
	char, err := svc.GetCharacteristic(suite.ctx, candleColor)
	suite.Require().NoError(err)
	suite.Require().NoError(char.WriteValue(suite.ctx, []byte{0x00, 0xff, 0x00, 0x00}))

	value, err := suite.candle.Value(candleService, candleColor)
	suite.Require().NoError(err)
	suite.Equal([]byte{0x00, 0xff, 0x00, 0x00}, value)
}

func (suite *SimulatorTestSuite) TestOperationsRequireConnection() {
	dev := suite.request(`{"filters":[{"services":["battery_service"]}]}`)
	server, err := dev.GATT().Connect(suite.ctx)
	suite.Require().NoError(err)
	svc, err := server.GetPrimaryService(suite.ctx, batteryService)
	suite.Require().NoError(err)
	char, err := svc.GetCharacteristic(suite.ctx, batteryLevel)
	suite.Require().NoError(err)

	server.Disconnect()
	server.Disconnect()
	suite.False(server.Connected())

	_, err = char.ReadValue(suite.ctx)
	suite.True(device.IsConnectionState(err, device.NotConnected))
	_, err = server.GetPrimaryService(suite.ctx, batteryService)
	suite.ErrorIs(err, device.ErrNotConnected)
}

func (suite *SimulatorTestSuite) TestNotifications() {
	dev := suite.request(`{"filters":[{"services":["battery_service"]}]}`)
	server, err := dev.GATT().Connect(suite.ctx)
	suite.Require().NoError(err)
	svc, err := server.GetPrimaryService(suite.ctx, batteryService)
	suite.Require().NoError(err)
	char, err := svc.GetCharacteristic(suite.ctx, batteryLevel)
	suite.Require().NoError(err)

	var got [][]byte
	remove := char.AddValueChangedListener(func(v []byte) { got = append(got, v) })

	delivered, err := suite.battery.Notify(batteryService, batteryLevel, []byte{1})
	suite.Require().NoError(err)
	suite.False(delivered, "nothing is delivered before notifications start")

	suite.Require().NoError(char.StartNotifications(suite.ctx))
	suite.True(suite.battery.Notifying(batteryService, batteryLevel))

	_, _ = suite.battery.Notify(batteryService, batteryLevel, []byte{2})
	_, _ = suite.battery.Notify(batteryService, batteryLevel, []byte{3})
	remove()
	_, _ = suite.battery.Notify(batteryService, batteryLevel, []byte{4})

	suite.Equal([][]byte{{2}, {3}}, got)

	suite.Require().NoError(char.StopNotifications(suite.ctx))
	suite.False(suite.battery.Notifying(batteryService, batteryLevel))

	_, err = suite.battery.Notify(batteryService, "0x2a00", []byte{1})
	suite.Error(err)
}

func (suite *SimulatorTestSuite) TestFailNext() {
	boom := errors.New("GATT operation failed for unknown reason")

	suite.bt.FailNext(OpConnect, boom)
	dev := suite.request(`{"filters":[{"services":["battery_service"]}]}`)

	_, err := dev.GATT().Connect(suite.ctx)
	suite.ErrorIs(err, boom)

	server, err := dev.GATT().Connect(suite.ctx)
	suite.Require().NoError(err, "injected failures are consumed once")

	suite.battery.FailNext(OpGetPrimaryService, boom)
	_, err = server.GetPrimaryService(suite.ctx, batteryService)
	suite.ErrorIs(err, boom)

	suite.bt.FailNext(OpRequestDevice, device.ErrUserCancelled)
	opts, err := device.ParseRequestDeviceOptions(`{"acceptAllDevices":true}`)
	suite.Require().NoError(err)
	_, err = suite.bt.RequestDevice(suite.ctx, opts)
	suite.ErrorIs(err, device.ErrUserCancelled)
}

func (suite *SimulatorTestSuite) TestBuildRejectsUnknownNames() {
	suite.Panics(func() {
		NewPeripheralBuilder().WithService("not_a_service").Build()
	})
	suite.Panics(func() {
		NewPeripheralBuilder().WithCharacteristic("battery_level", "", nil)
	})
}

func (suite *SimulatorTestSuite) TestParsePeripheralConfigs() {
	configs, err := ParsePeripheralConfigs(`[
		{"id": "a", "name": "A", "services": [{"uuid": "battery_service"}]},
		{"name": "B", "services": []}
	]`)
	suite.Require().NoError(err)
	suite.Require().Len(configs, 2)
	suite.Equal("a", configs[0].ID)
	suite.Equal("battery_service", configs[0].Services[0].UUID)

	p, err := NewPeripheral(configs[1], nil)
	suite.Require().NoError(err)
	suite.Equal("sim-B", p.ID())

	_, err = ParsePeripheralConfigs(`{"id": "not an array"}`)
	suite.Error(err)
}

func TestSimulatorTestSuite(t *testing.T) {
	suite.Run(t, new(SimulatorTestSuite))
}

package testutils

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blevi/internal/dom"
	"github.com/srg/blevi/internal/refnum"
	"github.com/srg/blevi/internal/simulator"
	"github.com/srg/blevi/internal/webvi"
	"github.com/srg/blevi/pkg/config"
	"github.com/srg/blevi/webbluetooth"
	"github.com/stretchr/testify/suite"
)

// Selectors of the buttons every suite document contains.
const (
	BatteryConnectSelector  = "#battery_connect"
	PlaybulbConnectSelector = "#playbulb_connect"
)

// BluetoothSuite provides a reusable test suite with a simulated Bluetooth
// stack, a page document and a webbluetooth.API registered with a WebVI
// simulator.
//
// Basic usage (battery peripheral and PLAYBULB candle by default):
//
//	type ReadSuite struct {
//	    testutils.BluetoothSuite
//	}
//
//	func TestReadSuite(t *testing.T) {
//	    suite.Run(t, new(ReadSuite))
//	}
//
// Custom peripherals:
//
//	func (s *HeartRateSuite) SetupTest() {
//	    s.WithPeripheral().
//	        WithName("HRM").
//	        WithService("heart_rate").
//	        WithCharacteristic("heart_rate_measurement", "notify", nil)
//
//	    s.BluetoothSuite.SetupTest() // Call parent last to apply configuration
//	}
type BluetoothSuite struct {
	suite.Suite

	Helper      *TestHelper
	Logger      *logrus.Logger
	TestTimeout time.Duration

	// Peripheral configuration, consumed by SetupTest
	PeripheralBuilders []*simulator.PeripheralBuilder

	Bluetooth   *simulator.Bluetooth
	Peripherals []*simulator.Peripheral
	Document    *dom.Document
	Config      *config.Config
	API         *webbluetooth.API
	Sim         *webvi.Simulator
}

// SetupSuite runs once before all tests in the suite.
func (s *BluetoothSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.TestTimeout = 5 * time.Second
}

// SetupTest builds a fresh stack before each test.
func (s *BluetoothSuite) SetupTest() {
	if len(s.PeripheralBuilders) == 0 {
		s.PeripheralBuilders = defaultPeripheralBuilders()
	}

	s.Peripherals = nil
	for _, b := range s.PeripheralBuilders {
		s.Peripherals = append(s.Peripherals, b.WithLogger(s.Logger).Build())
	}

	s.Bluetooth = simulator.New(s.Logger, s.Peripherals...)
	s.Document = dom.NewDocument(
		dom.NewElement("button", "battery_connect", "connect"),
		dom.NewElement("button", "playbulb_connect", "connect"),
		dom.NewElement("input", "battery_result", ""),
	)
	if s.Config == nil {
		s.Config = config.DefaultConfig()
	}

	s.API = webbluetooth.New(s.Bluetooth, webbluetooth.Options{
		Document: s.Document,
		Config:   s.Config,
		Logger:   s.Logger,
	})
	s.Sim = webvi.NewSimulator(s.Logger)
	s.API.Register(s.Sim)
}

// TearDownTest resets per-test configuration.
func (s *BluetoothSuite) TearDownTest() {
	s.PeripheralBuilders = nil
	s.Config = nil
}

// WithPeripheral adds a peripheral builder; call before BluetoothSuite.SetupTest.
func (s *BluetoothSuite) WithPeripheral() *simulator.PeripheralBuilder {
	b := simulator.NewPeripheralBuilder()
	s.PeripheralBuilders = append(s.PeripheralBuilders, b)
	return b
}

// Invoke calls a webbluetooth operation through the WebVI simulator.
func (s *BluetoothSuite) Invoke(op string, args ...any) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.TestTimeout)
	defer cancel()
	return s.Sim.Invoke(ctx, webbluetooth.FuncName(op), args...)
}

// MustInvoke is Invoke that fails the test on error.
func (s *BluetoothSuite) MustInvoke(op string, args ...any) any {
	v, err := s.Invoke(op, args...)
	s.Require().NoError(err, "%s failed", op)
	return v
}

// MustInvokeRefnum is MustInvoke for operations completing with a refnum.
func (s *BluetoothSuite) MustInvokeRefnum(op string, args ...any) refnum.Refnum {
	v := s.MustInvoke(op, args...)
	ref, ok := v.(refnum.Refnum)
	s.Require().True(ok, "%s returned %T, expected a refnum", op, v)
	return ref
}

// RequestDevice invokes requestDevice and clicks the gating button once it is armed.
func (s *BluetoothSuite) RequestDevice(optionsJSON, selector string) (any, error) {
	el, err := s.Document.QuerySelectorOne(selector)
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), s.TestTimeout)
	defer cancel()
	go DispatchWhenArmed(ctx, el, dom.DefaultEvent)

	return s.Sim.Invoke(ctx, webbluetooth.FuncName(webbluetooth.OpRequestDevice), optionsJSON, selector, dom.DefaultEvent)
}

// Handles holds the refnums of a fully opened characteristic.
type Handles struct {
	Device         refnum.Refnum
	Server         refnum.Refnum
	Service        refnum.Refnum
	Characteristic refnum.Refnum
}

// OpenCharacteristic walks requestDevice → connect → service → characteristic.
func (s *BluetoothSuite) OpenCharacteristic(optionsJSON, selector, serviceName, characteristicName string) Handles {
	v, err := s.RequestDevice(optionsJSON, selector)
	s.Require().NoError(err)

	var h Handles
	var ok bool
	h.Device, ok = v.(refnum.Refnum)
	s.Require().True(ok, "requestDevice returned %T", v)

	h.Server = s.MustInvokeRefnum(webbluetooth.OpGattServerConnect, h.Device)
	h.Service = s.MustInvokeRefnum(webbluetooth.OpGetPrimaryService, h.Server, serviceName)
	h.Characteristic = s.MustInvokeRefnum(webbluetooth.OpGetCharacteristic, h.Service, characteristicName)
	return h
}

// OpenBatteryLevel opens the battery_level characteristic of the default battery peripheral.
func (s *BluetoothSuite) OpenBatteryLevel() Handles {
	return s.OpenCharacteristic(`{"filters":[{"services":["battery_service"]}]}`, BatteryConnectSelector, "battery_service", "battery_level")
}

// defaultPeripheralBuilders returns a battery peripheral with Battery Level
// set to 50% and a PLAYBULB candle with its vendor color characteristic.
func defaultPeripheralBuilders() []*simulator.PeripheralBuilder {
	return []*simulator.PeripheralBuilder{
		simulator.NewPeripheralBuilder().
			FromJSON(`
			{
				"id": "battery-1",
				"name": "Battery Sensor",
				"services": [
					{
						"uuid": "180F",
						"characteristics": [
							{ "uuid": "2A19", "properties": "read,notify", "value": [50] }
						]
					}
				]
			}`),
		simulator.NewPeripheralBuilder().
			FromJSON(`
			{
				"id": "candle-1",
				"name": "PLAYBULB CANDLE",
				"services": [
					{
						"uuid": "FF02",
						"characteristics": [
							{ "uuid": "FFFC", "properties": "write,writeWithoutResponse", "value": [0, 0, 0, 0] },
							{ "uuid": "FFFB", "properties": "read,write" }
						]
					}
				]
			}`),
	}
}

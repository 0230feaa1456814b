package testutils

import (
	"time"

	"github.com/sirupsen/logrus"
	goble "github.com/srg/blevi/internal/device/go-ble"
	"github.com/srg/blevi/pkg/config"
	"github.com/stretchr/testify/suite"
)

// MockBLEPeripheralSuite provides a reusable test suite with mock BLE peripheral support.
//
// The suite automatically handles adapter factory lifecycle management and provides
// a fluent API for configuring the mocked peripheral with services and characteristics.
//
// Basic usage (automatic setup with default battery service):
//
//	type SimpleSuite struct {
//	    testutils.MockBLEPeripheralSuite
//	}
//
//	func TestSimpleSuite(t *testing.T) {
//	    suite.Run(t, new(SimpleSuite))
//	}
//
// Custom device profile usage:
//
//	func (s *HeartRateSuite) SetupTest() {
//	    // Configure custom peripheral with Heart Rate service first
//	    s.WithPeripheral().
//	        WithName("HRM").
//	        WithService("180D"). // Heart Rate Service
//	        WithCharacteristic("2A37", "read,notify", []byte{80}) // 80 BPM
//
//	    s.MockBLEPeripheralSuite.SetupTest() // Call parent last to apply configuration
//	}
type MockBLEPeripheralSuite struct {
	suite.Suite

	// Core test utilities
	Helper *TestHelper    // Test helper with logging and assertions
	Logger *logrus.Logger // Structured logger for test output

	// Adapter factory management
	OriginalAdapterFactory func() (goble.Adapter, error) // Backup of the original factory
	TestTimeout            time.Duration                 // Default timeout for BLE operations

	// Mock peripheral configuration
	PeripheralBuilder *PeripheralDeviceBuilder // Builder for configuring mock devices

	Peripheral *MockPeripheral
	Config     *config.Config
	Bluetooth  *goble.Bluetooth
}

// SetupSuite initializes the test suite.
// Called once before all tests in the suite.
func (s *MockBLEPeripheralSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.TestTimeout = 5 * time.Second

	// Save the original adapter factory for restoration
	s.OriginalAdapterFactory = goble.AdapterFactory

	s.T().Cleanup(func() {
		if s.OriginalAdapterFactory != nil {
			goble.AdapterFactory = s.OriginalAdapterFactory
			s.Logger.Debug("Adapter factory restored via t.Cleanup")
		}
	})
}

// SetupTest builds the mocked peripheral and a Bluetooth stack dialing it.
// Called before each test method.
func (s *MockBLEPeripheralSuite) SetupTest() {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = createDefaultPeripheralBuilder()
	}
	s.Peripheral = s.PeripheralBuilder.Build()

	goble.AdapterFactory = func() (goble.Adapter, error) {
		return s.Peripheral.Adapter, nil
	}

	if s.Config == nil {
		s.Config = config.DefaultConfig()
		// unmatched requests give up quickly
		s.Config.ScanTimeout = 100 * time.Millisecond
		s.Config.ConnectTimeout = time.Second
	}
	s.Bluetooth = goble.NewBluetooth(s.Config, s.Logger)

	s.Logger.Debug("Test setup completed - ready for execution")
}

// TearDownTest restores the adapter factory and resets the configuration.
// Called after each test method.
func (s *MockBLEPeripheralSuite) TearDownTest() {
	// Restore the adapter factory to prevent leaking mocks into subsequent tests
	if s.OriginalAdapterFactory != nil {
		goble.AdapterFactory = s.OriginalAdapterFactory
	}

	s.PeripheralBuilder = nil
	s.Config = nil
}

// WithPeripheral returns the peripheral builder for fluent configuration.
// Use this method to configure custom device profiles in the test setup.
func (s *MockBLEPeripheralSuite) WithPeripheral() *PeripheralDeviceBuilder {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = NewPeripheralDeviceBuilder()
	}
	return s.PeripheralBuilder
}

// createDefaultPeripheralBuilder creates a mock peripheral named "Battery Sensor"
// with Battery Service (180F) and Battery Level characteristic (2A19) set to 50%.
func createDefaultPeripheralBuilder() *PeripheralDeviceBuilder {
	return NewPeripheralDeviceBuilder().
		FromJSON(`
		{
			"name": "Battery Sensor",
			"services": [
				{
					"uuid": "180F",
					"characteristics": [
						{ "uuid": "2A19", "properties": "read,notify", "value": [50] }
					]
				}
			]
		}`)
}

// Package device defines the Bluetooth capability surface the bridge talks to:
// the navigator.bluetooth analog, devices, GATT servers, services and
// characteristics.
//
// This package holds only interfaces, request options and errors. Concrete
// stacks live elsewhere:
//   - device/go-ble wraps github.com/go-ble/ble for real hardware
//   - simulator provides an in-memory peripheral for tests and demos
//
// UUIDs crossing these interfaces are always in canonical 128-bit form
// (lowercase, dashed); ResolveServiceUUID and ResolveCharacteristicUUID get
// there from names, aliases or raw strings.
package device

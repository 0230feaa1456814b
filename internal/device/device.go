package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents an error when a GATT resource is not found
type NotFoundError struct {
	Resource string   // "device", "service", "characteristic"
	UUIDs    []string // One or more UUIDs (e.g., [serviceUUID] or [serviceUUID, charUUID])
}

func (e *NotFoundError) Error() string {
	if len(e.UUIDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.UUIDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	}
	// Characteristic in service: report the innermost UUID and its parent
	return fmt.Sprintf("%s %q not found in service %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], e.UUIDs[0])
}

// ConnectionState represents the specific kind of connection state failure
type ConnectionState string

const (
	NotConnected     ConnectionState = "not_connected"
	AlreadyConnected ConnectionState = "already_connected"
	NotInitialized   ConnectionState = "not_initialized"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotConnected     = &ConnectionError{State: NotConnected}
	ErrAlreadyConnected = &ConnectionError{State: AlreadyConnected}
	ErrNotInitialized   = &ConnectionError{State: NotInitialized}
)

// Operation errors
var (
	ErrTimeout       = errors.New("timeout")
	ErrUnsupported   = errors.New("Web Bluetooth is not supported by this browser")
	ErrBluetoothOff  = errors.New("bluetooth is turned off")
	ErrUserCancelled = errors.New("user cancelled the requestDevice() chooser")
	ErrNoDevice      = errors.New("no device matched the requestDevice() filters")
	ErrNotPermitted  = errors.New("GATT operation not permitted")
)

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}

// Bluetooth is the entry point of a Bluetooth stack: the navigator.bluetooth
// analog. Implementations must be safe for concurrent use.
type Bluetooth interface {
	// Available reports whether the stack can be used at all.
	Available() bool
	// RequestDevice picks one device matching opts.
	RequestDevice(ctx context.Context, opts *RequestDeviceOptions) (Device, error)
}

// Device is a remote peripheral selected by RequestDevice.
type Device interface {
	ID() string
	Name() string
	GATT() GATTServer
}

// GATTServer is the GATT client endpoint of a Device.
type GATTServer interface {
	Connected() bool
	// Connect returns the server itself once the link is up.
	Connect(ctx context.Context) (GATTServer, error)
	// Disconnect is synchronous and never fails; disconnecting twice is harmless.
	Disconnect()
	// GetPrimaryService looks up a service by canonical UUID.
	GetPrimaryService(ctx context.Context, uuid string) (Service, error)
}

// Service is a primary GATT service.
type Service interface {
	UUID() string
	// GetCharacteristic looks up a characteristic by canonical UUID.
	GetCharacteristic(ctx context.Context, uuid string) (Characteristic, error)
}

// Characteristic is a remote GATT characteristic.
type Characteristic interface {
	UUID() string
	Properties() Property
	ReadValue(ctx context.Context) ([]byte, error)
	WriteValue(ctx context.Context, data []byte) error
	StartNotifications(ctx context.Context) error
	StopNotifications(ctx context.Context) error
	// AddValueChangedListener registers fn for characteristicvaluechanged
	// events and returns the function that removes it. fn receives its own
	// copy of the value.
	AddValueChangedListener(fn func(value []byte)) (remove func())
}

// Property is a bit set of GATT characteristic properties
type Property uint8

const (
	PropBroadcast Property = 1 << iota
	PropRead
	PropWriteWithoutResponse
	PropWrite
	PropNotify
	PropIndicate
)

// Has reports whether every bit of p2 is set in p.
func (p Property) Has(p2 Property) bool {
	return p&p2 == p2
}

// CanNotify reports whether the characteristic supports notify or indicate.
func (p Property) CanNotify() bool {
	return p&(PropNotify|PropIndicate) != 0
}

// String renders the properties as a comma-separated list
func (p Property) String() string {
	names := make([]string, 0, 6)
	for _, e := range []struct {
		bit  Property
		name string
	}{
		{PropBroadcast, "broadcast"},
		{PropRead, "read"},
		{PropWriteWithoutResponse, "writeWithoutResponse"},
		{PropWrite, "write"},
		{PropNotify, "notify"},
		{PropIndicate, "indicate"},
	} {
		if p.Has(e.bit) {
			names = append(names, e.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseProperties parses "read,write,notify" style property lists.
func ParseProperties(s string) (Property, error) {
	var p Property
	for _, part := range strings.Split(s, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "":
		case "broadcast":
			p |= PropBroadcast
		case "read":
			p |= PropRead
		case "writewithoutresponse", "write-without-response":
			p |= PropWriteWithoutResponse
		case "write":
			p |= PropWrite
		case "notify":
			p |= PropNotify
		case "indicate":
			p |= PropIndicate
		default:
			return 0, fmt.Errorf("unknown characteristic property %q", part)
		}
	}
	return p, nil
}

package refnum

import (
	"fmt"

	"github.com/srg/blevi/internal/device"
	"github.com/srg/blevi/internal/notify"
)

// Kind names the capability variant stored behind a refnum.
type Kind string

const (
	KindDevice         Kind = "device"
	KindGATTServer     Kind = "gattServer"
	KindService        Kind = "service"
	KindCharacteristic Kind = "characteristic"
	KindNotification   Kind = "notificationBuffer"
)

// Capability is the closed set of objects a Registry can hold. The unexported
// method keeps the set limited to the variants declared in this package.
type Capability interface {
	Kind() Kind
	capability()
}

// DeviceRef wraps a device returned by a device request.
type DeviceRef struct{ Device device.Device }

// GATTServerRef wraps a connected GATT server.
type GATTServerRef struct{ Server device.GATTServer }

// ServiceRef wraps a primary service.
type ServiceRef struct{ Service device.Service }

// CharacteristicRef wraps a characteristic.
type CharacteristicRef struct{ Characteristic device.Characteristic }

// NotificationRef wraps a characteristic notification buffer.
type NotificationRef struct{ Buffer *notify.Buffer }

func (DeviceRef) Kind() Kind         { return KindDevice }
func (GATTServerRef) Kind() Kind     { return KindGATTServer }
func (ServiceRef) Kind() Kind        { return KindService }
func (CharacteristicRef) Kind() Kind { return KindCharacteristic }
func (NotificationRef) Kind() Kind   { return KindNotification }

func (DeviceRef) capability()         {}
func (GATTServerRef) capability()     {}
func (ServiceRef) capability()        {}
func (CharacteristicRef) capability() {}
func (NotificationRef) capability()   {}

// KindError reports a refnum that does not resolve to the capability kind an
// operation expects, including refnums that do not resolve at all.
type KindError struct {
	Op     string
	Want   Kind
	Refnum Refnum
	Got    string
}

func (e *KindError) Error() string {
	return fmt.Sprintf("Expected %s to be invoked with a %sRefnum, instead got: %s", e.Op, e.Want, e.Got)
}

func (r *Registry) kindError(op string, want Kind, ref Refnum) error {
	return &KindError{Op: op, Want: want, Refnum: ref, Got: r.describe(ref)}
}

// ResolveDevice resolves ref as a device on behalf of op.
func (r *Registry) ResolveDevice(op string, ref Refnum) (device.Device, error) {
	c, _ := r.Resolve(ref)
	switch v := c.(type) {
	case DeviceRef:
		return v.Device, nil
	case GATTServerRef, ServiceRef, CharacteristicRef, NotificationRef, nil:
		return nil, r.kindError(op, KindDevice, ref)
	default:
		panic(fmt.Sprintf("refnum: unhandled capability %T", c))
	}
}

// ResolveGATTServer resolves ref as a GATT server on behalf of op.
func (r *Registry) ResolveGATTServer(op string, ref Refnum) (device.GATTServer, error) {
	c, _ := r.Resolve(ref)
	switch v := c.(type) {
	case GATTServerRef:
		return v.Server, nil
	case DeviceRef, ServiceRef, CharacteristicRef, NotificationRef, nil:
		return nil, r.kindError(op, KindGATTServer, ref)
	default:
		panic(fmt.Sprintf("refnum: unhandled capability %T", c))
	}
}

// ResolveService resolves ref as a primary service on behalf of op.
func (r *Registry) ResolveService(op string, ref Refnum) (device.Service, error) {
	c, _ := r.Resolve(ref)
	switch v := c.(type) {
	case ServiceRef:
		return v.Service, nil
	case DeviceRef, GATTServerRef, CharacteristicRef, NotificationRef, nil:
		return nil, r.kindError(op, KindService, ref)
	default:
		panic(fmt.Sprintf("refnum: unhandled capability %T", c))
	}
}

// ResolveCharacteristic resolves ref as a characteristic on behalf of op.
func (r *Registry) ResolveCharacteristic(op string, ref Refnum) (device.Characteristic, error) {
	c, _ := r.Resolve(ref)
	switch v := c.(type) {
	case CharacteristicRef:
		return v.Characteristic, nil
	case DeviceRef, GATTServerRef, ServiceRef, NotificationRef, nil:
		return nil, r.kindError(op, KindCharacteristic, ref)
	default:
		panic(fmt.Sprintf("refnum: unhandled capability %T", c))
	}
}

// ResolveNotification resolves ref as a notification buffer on behalf of op.
func (r *Registry) ResolveNotification(op string, ref Refnum) (*notify.Buffer, error) {
	c, _ := r.Resolve(ref)
	switch v := c.(type) {
	case NotificationRef:
		return v.Buffer, nil
	case DeviceRef, GATTServerRef, ServiceRef, CharacteristicRef, nil:
		return nil, r.kindError(op, KindNotification, ref)
	default:
		panic(fmt.Sprintf("refnum: unhandled capability %T", c))
	}
}

package webbluetooth

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/srg/blevi/internal/device"
	"github.com/srg/blevi/internal/dom"
	"github.com/srg/blevi/internal/notify"
	"github.com/srg/blevi/internal/refnum"
	"github.com/srg/blevi/internal/webvi"
)

// Operation names as seen by the host.
const (
	OpCanonicalUUID                   = "canonicalUUID"
	OpRequestDevice                   = "requestDevice"
	OpGattServerConnect               = "gattServerConnect"
	OpGattServerDisconnect            = "gattServerDisconnect"
	OpGetPrimaryService               = "getPrimaryService"
	OpGetCharacteristic               = "getCharacteristic"
	OpReadValue                       = "readValue"
	OpWriteValue                      = "writeValue"
	OpStartCharacteristicNotification = "startCharacteristicNotification"
	OpReadCharacteristicNotification  = "readCharacteristicNotification"
	OpStopCharacteristicNotification  = "stopCharacteristicNotification"
	OpCloseRefnum                     = "closeRefnum"
)

// CanonicalUUID converts a 16-bit or 32-bit alias into its 128-bit UUID.
func (a *API) CanonicalUUID(alias int64) (string, error) {
	if err := a.supported(); err != nil {
		return "", err
	}
	return device.CanonicalUUID(alias)
}

// RequestDevice arms a one-shot listener for eventName on the single element
// matching selector. When the event fires, the Bluetooth stack is asked for a
// device matching optionsJSON and the completion receives its refnum. Later
// occurrences of the event are ignored. An empty eventName selects the
// configured default event.
func (a *API) RequestDevice(ctx context.Context, optionsJSON, selector, eventName string, jsapi webvi.JSAPI) error {
	if err := a.supported(); err != nil {
		return err
	}

	opts, err := device.ParseRequestDeviceOptions(optionsJSON)
	if err != nil {
		return err
	}

	el, err := a.doc.QuerySelectorOne(selector)
	if err != nil {
		return err
	}

	if eventName == "" {
		eventName = a.cfg.DefaultEvent
	}
	if eventName == "" {
		eventName = dom.DefaultEvent
	}

	done := jsapi.GetCompletionCallback()
	a.logger.WithFields(logrus.Fields{
		"selector": selector,
		"event":    eventName,
	}).Debug("Device request waiting for user gesture")

	dom.Once(el, eventName, func() {
		a.complete(ctx, OpRequestDevice, done, func(ctx context.Context) (any, error) {
			dev, err := a.bt.RequestDevice(ctx, opts)
			if err != nil {
				return nil, err
			}
			ref := a.refs.Create(refnum.DeviceRef{Device: dev})
			a.logger.WithFields(logrus.Fields{
				"device": dev.ID(),
				"name":   dev.Name(),
				"refnum": ref,
			}).Info("Device selected")
			return ref, nil
		})
	})
	return nil
}

// GattServerConnect connects the GATT server of a device refnum and completes
// with a GATT server refnum.
func (a *API) GattServerConnect(ctx context.Context, deviceRef refnum.Refnum, jsapi webvi.JSAPI) error {
	dev, err := a.refs.ResolveDevice(OpGattServerConnect, deviceRef)
	if err != nil {
		return err
	}

	a.async(ctx, OpGattServerConnect, jsapi, func(ctx context.Context) (any, error) {
		server, err := dev.GATT().Connect(ctx)
		if err != nil {
			return nil, err
		}
		return a.refs.Create(refnum.GATTServerRef{Server: server}), nil
	})
	return nil
}

// GattServerDisconnect disconnects the GATT server of a device refnum. Refnums
// of services and characteristics obtained through it stay allocated; using
// them fails until the device is connected again.
func (a *API) GattServerDisconnect(deviceRef refnum.Refnum) error {
	dev, err := a.refs.ResolveDevice(OpGattServerDisconnect, deviceRef)
	if err != nil {
		return err
	}

	dev.GATT().Disconnect()
	a.logger.WithField("device", dev.ID()).Info("GATT server disconnected")
	return nil
}

// GetPrimaryService looks up a service by GATT name, alias or UUID and
// completes with a service refnum.
func (a *API) GetPrimaryService(ctx context.Context, serverRef refnum.Refnum, serviceName string, jsapi webvi.JSAPI) error {
	server, err := a.refs.ResolveGATTServer(OpGetPrimaryService, serverRef)
	if err != nil {
		return err
	}
	uuid, err := device.ResolveServiceUUID(serviceName)
	if err != nil {
		return err
	}

	a.async(ctx, OpGetPrimaryService, jsapi, func(ctx context.Context) (any, error) {
		svc, err := server.GetPrimaryService(ctx, uuid)
		if err != nil {
			return nil, err
		}
		return a.refs.Create(refnum.ServiceRef{Service: svc}), nil
	})
	return nil
}

// GetCharacteristic looks up a characteristic by GATT name, alias or UUID and
// completes with a characteristic refnum.
func (a *API) GetCharacteristic(ctx context.Context, serviceRef refnum.Refnum, characteristicName string, jsapi webvi.JSAPI) error {
	svc, err := a.refs.ResolveService(OpGetCharacteristic, serviceRef)
	if err != nil {
		return err
	}
	uuid, err := device.ResolveCharacteristicUUID(characteristicName)
	if err != nil {
		return err
	}

	a.async(ctx, OpGetCharacteristic, jsapi, func(ctx context.Context) (any, error) {
		char, err := svc.GetCharacteristic(ctx, uuid)
		if err != nil {
			return nil, err
		}
		return a.refs.Create(refnum.CharacteristicRef{Characteristic: char}), nil
	})
	return nil
}

// ReadValue reads a characteristic and completes with its bytes.
func (a *API) ReadValue(ctx context.Context, charRef refnum.Refnum, jsapi webvi.JSAPI) error {
	char, err := a.refs.ResolveCharacteristic(OpReadValue, charRef)
	if err != nil {
		return err
	}

	a.async(ctx, OpReadValue, jsapi, func(ctx context.Context) (any, error) {
		value, err := char.ReadValue(ctx)
		if err != nil {
			return nil, err
		}
		if value == nil {
			value = []byte{}
		}
		return value, nil
	})
	return nil
}

// WriteValue writes value to a characteristic and completes with no value.
func (a *API) WriteValue(ctx context.Context, charRef refnum.Refnum, value []byte, jsapi webvi.JSAPI) error {
	char, err := a.refs.ResolveCharacteristic(OpWriteValue, charRef)
	if err != nil {
		return err
	}
	data := append([]byte(nil), value...)

	a.async(ctx, OpWriteValue, jsapi, func(ctx context.Context) (any, error) {
		return nil, char.WriteValue(ctx, data)
	})
	return nil
}

// StartCharacteristicNotification enables notifications and completes with
// the refnum of a notification buffer collecting them.
func (a *API) StartCharacteristicNotification(ctx context.Context, charRef refnum.Refnum, jsapi webvi.JSAPI) error {
	char, err := a.refs.ResolveCharacteristic(OpStartCharacteristicNotification, charRef)
	if err != nil {
		return err
	}

	a.async(ctx, OpStartCharacteristicNotification, jsapi, func(ctx context.Context) (any, error) {
		if err := char.StartNotifications(ctx); err != nil {
			return nil, err
		}
		buf := notify.New(char, notify.Options{
			QueueLimit: a.cfg.NotificationQueueLimit,
			Logger:     a.logger,
		})
		return a.refs.Create(refnum.NotificationRef{Buffer: buf}), nil
	})
	return nil
}

// ReadCharacteristicNotification completes with the next notification of a
// buffer, waiting for one if none is queued.
func (a *API) ReadCharacteristicNotification(bufRef refnum.Refnum, jsapi webvi.JSAPI) error {
	buf, err := a.refs.ResolveNotification(OpReadCharacteristicNotification, bufRef)
	if err != nil {
		return err
	}

	done := jsapi.GetCompletionCallback()
	buf.Read(func(value []byte, err error) {
		if err != nil {
			done(nil, err)
			return
		}
		done(value, nil)
	})
	return nil
}

// StopCharacteristicNotification stops a notification buffer: pending and
// later reads fail and queued values are discarded. The buffer is torn down
// even when the characteristic rejects the stop request, in which case the
// completion receives that error. Stopping a stopped buffer completes
// successfully. The refnum stays allocated until CloseRefnum.
func (a *API) StopCharacteristicNotification(ctx context.Context, bufRef refnum.Refnum, jsapi webvi.JSAPI) error {
	buf, err := a.refs.ResolveNotification(OpStopCharacteristicNotification, bufRef)
	if err != nil {
		return err
	}

	a.async(ctx, OpStopCharacteristicNotification, jsapi, func(ctx context.Context) (any, error) {
		return nil, buf.Stop(ctx)
	})
	return nil
}

// CloseRefnum releases a refnum of any kind. Closing a notification buffer
// refnum stops the buffer first. Unknown or closed refnums are ignored.
func (a *API) CloseRefnum(ctx context.Context, ref refnum.Refnum) {
	if c, ok := a.refs.Resolve(ref); ok {
		if n, isBuf := c.(refnum.NotificationRef); isBuf {
			if err := n.Buffer.Stop(ctx); err != nil {
				a.logger.WithError(err).WithField("refnum", ref).Warn("Failed to stop notifications while closing refnum")
			}
		}
	}
	a.refs.Close(ref)
}

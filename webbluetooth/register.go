package webbluetooth

import (
	"context"

	"github.com/srg/blevi/internal/webvi"
)

// Namespace prefixes every function name registered with a webvi.Simulator.
const Namespace = "webvi_web_bluetooth"

// FuncName returns the host-visible name of op, e.g. "webvi_web_bluetooth.readValue".
func FuncName(op string) string {
	return Namespace + "." + op
}

// Register binds every operation of a to sim under Namespace.
func (a *API) Register(sim *webvi.Simulator) {
	for op, fn := range a.functions() {
		sim.Register(FuncName(op), fn)
	}
}

// functions adapts the typed operations to positional JSLI arguments.
func (a *API) functions() map[string]webvi.Func {
	return map[string]webvi.Func{
		OpCanonicalUUID: func(_ context.Context, args webvi.Args, _ webvi.JSAPI) (any, error) {
			alias, err := args.Uint32(0)
			if err != nil {
				return nil, err
			}
			return a.CanonicalUUID(int64(alias))
		},

		OpRequestDevice: func(ctx context.Context, args webvi.Args, jsapi webvi.JSAPI) (any, error) {
			optionsJSON, err := args.String(0)
			if err != nil {
				return nil, err
			}
			selector, err := args.String(1)
			if err != nil {
				return nil, err
			}
			eventName, err := args.OptionalString(2)
			if err != nil {
				return nil, err
			}
			return nil, a.RequestDevice(ctx, optionsJSON, selector, eventName, jsapi)
		},

		OpGattServerConnect: func(ctx context.Context, args webvi.Args, jsapi webvi.JSAPI) (any, error) {
			ref, err := args.Refnum(0)
			if err != nil {
				return nil, err
			}
			return nil, a.GattServerConnect(ctx, ref, jsapi)
		},

		OpGattServerDisconnect: func(_ context.Context, args webvi.Args, _ webvi.JSAPI) (any, error) {
			ref, err := args.Refnum(0)
			if err != nil {
				return nil, err
			}
			return nil, a.GattServerDisconnect(ref)
		},

		OpGetPrimaryService: func(ctx context.Context, args webvi.Args, jsapi webvi.JSAPI) (any, error) {
			ref, err := args.Refnum(0)
			if err != nil {
				return nil, err
			}
			name, err := args.String(1)
			if err != nil {
				return nil, err
			}
			return nil, a.GetPrimaryService(ctx, ref, name, jsapi)
		},

		OpGetCharacteristic: func(ctx context.Context, args webvi.Args, jsapi webvi.JSAPI) (any, error) {
			ref, err := args.Refnum(0)
			if err != nil {
				return nil, err
			}
			name, err := args.String(1)
			if err != nil {
				return nil, err
			}
			return nil, a.GetCharacteristic(ctx, ref, name, jsapi)
		},

		OpReadValue: func(ctx context.Context, args webvi.Args, jsapi webvi.JSAPI) (any, error) {
			ref, err := args.Refnum(0)
			if err != nil {
				return nil, err
			}
			return nil, a.ReadValue(ctx, ref, jsapi)
		},

		OpWriteValue: func(ctx context.Context, args webvi.Args, jsapi webvi.JSAPI) (any, error) {
			ref, err := args.Refnum(0)
			if err != nil {
				return nil, err
			}
			value, err := args.Bytes(1)
			if err != nil {
				return nil, err
			}
			return nil, a.WriteValue(ctx, ref, value, jsapi)
		},

		OpStartCharacteristicNotification: func(ctx context.Context, args webvi.Args, jsapi webvi.JSAPI) (any, error) {
			ref, err := args.Refnum(0)
			if err != nil {
				return nil, err
			}
			return nil, a.StartCharacteristicNotification(ctx, ref, jsapi)
		},

		OpReadCharacteristicNotification: func(_ context.Context, args webvi.Args, jsapi webvi.JSAPI) (any, error) {
			ref, err := args.Refnum(0)
			if err != nil {
				return nil, err
			}
			return nil, a.ReadCharacteristicNotification(ref, jsapi)
		},

		OpStopCharacteristicNotification: func(ctx context.Context, args webvi.Args, jsapi webvi.JSAPI) (any, error) {
			ref, err := args.Refnum(0)
			if err != nil {
				return nil, err
			}
			return nil, a.StopCharacteristicNotification(ctx, ref, jsapi)
		},

		OpCloseRefnum: func(ctx context.Context, args webvi.Args, _ webvi.JSAPI) (any, error) {
			ref, err := args.Refnum(0)
			if err != nil {
				return nil, err
			}
			a.CloseRefnum(ctx, ref)
			return nil, nil
		},
	}
}

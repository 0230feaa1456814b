// Package webbluetooth exposes a Web-Bluetooth-shaped API to a WebVI host.
//
// The host only holds refnums: every device, GATT server, service,
// characteristic and notification buffer produced by an operation is stored
// in a refnum.Registry and the caller receives its refnum. Operations that
// reach the Bluetooth stack complete through the host's one-shot completion
// callback; argument and refnum validation failures are returned directly and
// never retrieve the callback.
package webbluetooth

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/srg/blevi/internal/device"
	"github.com/srg/blevi/internal/dom"
	"github.com/srg/blevi/internal/groutine"
	"github.com/srg/blevi/internal/refnum"
	"github.com/srg/blevi/internal/webvi"
	"github.com/srg/blevi/pkg/config"
)

// Options configures an API. Zero values are replaced with defaults.
type Options struct {
	// Document hosts the elements device requests are gated on.
	Document *dom.Document
	// Registry is shared with other APIs when set; a private one is created otherwise.
	Registry *refnum.Registry
	Config   *config.Config
	Logger   *logrus.Logger
}

// API is the bridge between refnum-holding callers and a device.Bluetooth.
// It is safe for concurrent use.
type API struct {
	bt     device.Bluetooth
	doc    *dom.Document
	refs   *refnum.Registry
	cfg    *config.Config
	logger *logrus.Logger

	seq atomic.Uint64
}

// New creates an API over bt. A nil bt behaves like a browser without Web
// Bluetooth support.
func New(bt device.Bluetooth, opts Options) *API {
	a := &API{
		bt:     bt,
		doc:    opts.Document,
		refs:   opts.Registry,
		cfg:    opts.Config,
		logger: opts.Logger,
	}
	if a.logger == nil {
		a.logger = logrus.New()
	}
	if a.cfg == nil {
		a.cfg = config.DefaultConfig()
	}
	if a.doc == nil {
		a.doc = dom.NewDocument()
	}
	if a.refs == nil {
		a.refs = refnum.New(a.logger)
	}
	return a
}

// Registry returns the refnum table backing the API.
func (a *API) Registry() *refnum.Registry {
	return a.refs
}

// Document returns the document device requests are gated on.
func (a *API) Document() *dom.Document {
	return a.doc
}

func (a *API) supported() error {
	if a.bt == nil || !a.bt.Available() {
		return device.ErrUnsupported
	}
	return nil
}

// async retrieves the completion callback and runs fn on a named goroutine.
func (a *API) async(ctx context.Context, op string, jsapi webvi.JSAPI, fn func(ctx context.Context) (any, error)) {
	a.complete(ctx, op, jsapi.GetCompletionCallback(), fn)
}

// complete runs fn on a named goroutine and reports its outcome through done
// exactly once, including when fn panics.
func (a *API) complete(ctx context.Context, op string, done webvi.CompletionCallback, fn func(ctx context.Context) (any, error)) {
	name := fmt.Sprintf("%s-%d", op, a.seq.Add(1))
	log := a.logger.WithField("op", op)

	groutine.GoRecover(ctx, name, func(ctx context.Context) {
		value, err := fn(ctx)
		if err != nil {
			log.WithError(err).Debug("Operation failed")
			done(nil, err)
			return
		}
		log.WithField("result", value).Debug("Operation completed")
		done(value, nil)
	}, func(perr *groutine.PanicError) {
		log.WithError(perr).Error("Operation panicked")
		done(nil, perr)
	})
}

// Package webvi models the WebVI JavaScript Library Interface (JSLI) call
// convention: a host invokes a named function with positional arguments and a
// JSAPI handle. The function either returns its result synchronously or
// retrieves the one-shot completion callback and finishes later.
package webvi

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrCallbackAlreadyRetrieved is reported when a function retrieves the
// completion callback more than once during a single invocation.
var ErrCallbackAlreadyRetrieved = errors.New("completion callback already retrieved for this JSLI instance")

// CompletionCallback completes an asynchronous call with either a value or an
// error. Only the first invocation is delivered.
type CompletionCallback func(value any, err error)

// JSAPI is handed to every invoked function.
type JSAPI interface {
	// GetCompletionCallback switches the call to asynchronous completion.
	GetCompletionCallback() CompletionCallback
}

type completion struct {
	value any
	err   error
}

// jsapi is the JSAPI of a single invocation.
type jsapi struct {
	name   string
	logger *logrus.Logger

	mu        sync.Mutex
	retrieved bool
	misused   bool

	once sync.Once
	done chan completion
}

func newJSAPI(name string, logger *logrus.Logger) *jsapi {
	return &jsapi{
		name:   name,
		logger: logger,
		done:   make(chan completion, 1),
	}
}

func (j *jsapi) GetCompletionCallback() CompletionCallback {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.retrieved {
		j.misused = true
		j.logger.WithField("function", j.name).Error("Completion callback retrieved twice")
		return func(any, error) {}
	}
	j.retrieved = true

	return func(value any, err error) {
		delivered := false
		j.once.Do(func() {
			j.done <- completion{value: value, err: err}
			delivered = true
		})
		if !delivered {
			j.logger.WithFields(logrus.Fields{
				"function": j.name,
				"value":    value,
				"error":    err,
			}).Warn("Completion callback invoked more than once, result dropped")
		}
	}
}

// state reports whether the callback was retrieved and whether it was
// retrieved more than once.
func (j *jsapi) state() (retrieved, misused bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.retrieved, j.misused
}

package webvi

import (
	"context"
	"fmt"
	"strings"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
)

// Func is a function callable through the JSLI. A Func that retrieves the
// completion callback from api completes asynchronously and its synchronous
// value is ignored; a returned error always fails the call immediately.
type Func func(ctx context.Context, args Args, api JSAPI) (any, error)

// FunctionNotFoundError reports an Invoke of an unregistered name.
type FunctionNotFoundError struct {
	Name string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("could not find function and context for function named: %s", e.Name)
}

// Simulator invokes registered functions the way a WebVI does. It is safe for
// concurrent use.
type Simulator struct {
	funcs  *hashmap.Map[string, Func]
	logger *logrus.Logger
}

// NewSimulator creates a Simulator with no registered functions.
func NewSimulator(logger *logrus.Logger) *Simulator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Simulator{
		funcs:  hashmap.New[string, Func](),
		logger: logger,
	}
}

// Register binds fn to a dotted name such as "webvi_web_bluetooth.readValue".
// Registering a name twice replaces the previous function.
func (s *Simulator) Register(name string, fn Func) {
	s.funcs.Set(name, fn)
}

// Names returns the registered function names.
func (s *Simulator) Names() []string {
	names := make([]string, 0, s.funcs.Len())
	s.funcs.Range(func(name string, _ Func) bool {
		names = append(names, name)
		return true
	})
	return names
}

// Invoke calls the function registered under name. Synchronous results are
// validated and returned directly. When the function retrieved its completion
// callback, Invoke waits for the completion or for ctx to be done; the latter
// only abandons the wait, it does not cancel the operation.
func (s *Simulator) Invoke(ctx context.Context, name string, args ...any) (any, error) {
	fn, ok := s.funcs.Get(name)
	if !ok {
		return nil, &FunctionNotFoundError{Name: name}
	}

	log := s.logger.WithField("function", shortName(name))
	log.WithField("args", len(args)).Debug("Invoking JSLI function")

	api := newJSAPI(name, s.logger)
	value, err := fn(ctx, Args(args), api)
	if err != nil {
		log.WithError(err).Debug("JSLI function failed synchronously")
		return nil, err
	}

	retrieved, misused := api.state()
	if misused {
		return nil, ErrCallbackAlreadyRetrieved
	}

	if !retrieved {
		if err := ValidateReturnType(value); err != nil {
			return nil, err
		}
		return value, nil
	}

	select {
	case c := <-api.done:
		if c.err != nil {
			log.WithError(c.err).Debug("JSLI function completed with error")
			return nil, c.err
		}
		if err := ValidateReturnType(c.value); err != nil {
			return nil, err
		}
		return c.value, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func shortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Package groutine starts named goroutines. The name is attached as a pprof
// label and carried in the context, so profiles and log lines can tell
// concurrent completions apart.
package groutine

import (
	"context"
	"fmt"
	"runtime/pprof"
)

type ctxKey string

const goroutineNameKey ctxKey = "goroutine_name"

// Go starts fn on a goroutine labelled name.
// Example usage:
//
//	groutine.Go(ctx, "readValue-42", func(ctx context.Context) {
//	    // work
//	})
//
// If parentCtx is nil, context.Background() is used.
func Go(parentCtx context.Context, name string, fn func(ctx context.Context)) {
	GoRecover(parentCtx, name, fn, nil)
}

// GoRecover is Go with a panic handler. When fn panics, onPanic receives the
// recovered value wrapped in a *PanicError and the goroutine exits normally.
// A nil onPanic lets the panic propagate.
func GoRecover(parentCtx context.Context, name string, fn func(ctx context.Context), onPanic func(err *PanicError)) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	labels := pprof.Labels("goroutine_name", name)

	go pprof.Do(parentCtx, labels, func(ctx context.Context) {
		ctx = context.WithValue(ctx, goroutineNameKey, name)
		if onPanic != nil {
			defer func() {
				if r := recover(); r != nil {
					onPanic(&PanicError{Name: name, Value: r})
				}
			}()
		}
		fn(ctx)
	})
}

// PanicError describes a panic recovered by GoRecover.
type PanicError struct {
	Name  string
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("goroutine %s panicked: %v", e.Name, e.Value)
}

// GetName retrieves the goroutine name from the context.
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(goroutineNameKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

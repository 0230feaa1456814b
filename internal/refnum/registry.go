// Package refnum provides the reference-number table that lets a host runtime
// hold opaque integer handles to live Bluetooth objects it cannot reference
// directly.
//
// A Registry is a flat namespace shared by every capability kind. Refnums are
// allocated from a monotonic counter starting at 1 and are never reused for the
// lifetime of the Registry; 0 is reserved as the invalid refnum. The Registry
// does not enforce kinds itself: each call site resolves with the typed helper
// that matches the operation and receives a *KindError when the host passed the
// wrong refnum.
package refnum

import (
	"fmt"
	"sync/atomic"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
)

// Refnum is an opaque handle to a capability stored in a Registry.
type Refnum uint32

// Invalid is never allocated by a Registry.
const Invalid Refnum = 0

// Registry maps refnums to live capabilities. It is safe for concurrent use.
type Registry struct {
	entries *hashmap.Map[Refnum, Capability]
	next    atomic.Uint32
	logger  *logrus.Logger
}

// New creates an empty Registry whose first allocated refnum is 1.
func New(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		entries: hashmap.New[Refnum, Capability](),
		logger:  logger,
	}
}

// Create registers c and returns its freshly allocated refnum. It never fails.
func (r *Registry) Create(c Capability) Refnum {
	ref := Refnum(r.next.Add(1))
	r.entries.Set(ref, c)

	r.logger.WithFields(logrus.Fields{
		"refnum": ref,
		"kind":   c.Kind(),
	}).Debug("Refnum created")

	return ref
}

// Resolve returns the capability registered under ref. The boolean is false
// when ref was never allocated or has already been closed.
func (r *Registry) Resolve(ref Refnum) (Capability, bool) {
	if ref == Invalid {
		return nil, false
	}
	return r.entries.Get(ref)
}

// Close releases ref. Closing an unknown or already closed refnum is a no-op.
func (r *Registry) Close(ref Refnum) {
	if r.entries.Del(ref) {
		r.logger.WithField("refnum", ref).Debug("Refnum closed")
	}
}

// Len returns the number of live refnums.
func (r *Registry) Len() int {
	return r.entries.Len()
}

// describe renders whatever ref resolves to for error messages.
func (r *Registry) describe(ref Refnum) string {
	c, ok := r.Resolve(ref)
	if !ok {
		return fmt.Sprintf("refnum %d (not found)", ref)
	}
	return fmt.Sprintf("refnum %d (%s)", ref, c.Kind())
}

// Package notify turns characteristic value-changed events into a pull-based
// read interface with at most one outstanding reader.
//
// A Buffer is created after the characteristic confirmed that notifications
// are enabled. Values arriving while a reader waits are handed to that reader
// directly; otherwise they are queued in arrival order. Stop tears the buffer
// down: it detaches from the characteristic, asks it to stop notifying, fails
// the waiting reader and discards whatever is still queued.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	list "github.com/bahlo/generic-list-go"
	"github.com/sirupsen/logrus"
	"github.com/srg/blevi/internal/device"
)

var (
	// ErrReadInProgress is reported to a reader that arrives while another read is pending.
	ErrReadInProgress = errors.New("an active characteristic notification read is already being performed for this characteristic")

	// ErrNotificationsStopped is reported to the pending reader on Stop and to every later reader.
	ErrNotificationsStopped = errors.New("characteristic notifications stopped")
)

// ReadCallback receives the outcome of a single Read: either a value or an error.
type ReadCallback func(value []byte, err error)

// Options configures a Buffer.
type Options struct {
	// QueueLimit bounds the number of queued values; 0 means unbounded.
	// When the limit is reached the oldest value is dropped.
	QueueLimit int
	Logger     *logrus.Logger
}

// Buffer is the push-to-pull adapter for one characteristic. It is safe for
// concurrent use; callbacks are always invoked without internal locks held.
type Buffer struct {
	mu             sync.Mutex
	characteristic device.Characteristic
	removeListener func()
	queue          *list.List[[]byte]
	pending        ReadCallback
	stopped        bool

	limit   int
	dropped uint64
	logger  *logrus.Logger
}

// New attaches a Buffer to char's value-changed events.
func New(char device.Characteristic, opts Options) *Buffer {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}

	b := &Buffer{
		characteristic: char,
		queue:          list.New[[]byte](),
		limit:          opts.QueueLimit,
		logger:         logger,
	}
	b.removeListener = char.AddValueChangedListener(b.handleValue)

	logger.WithFields(logrus.Fields{
		"characteristic": char.UUID(),
		"queue_limit":    opts.QueueLimit,
	}).Debug("Notification buffer started")

	return b
}

// handleValue is the characteristicvaluechanged listener.
func (b *Buffer) handleValue(value []byte) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}

	if reader := b.pending; reader != nil {
		b.pending = nil
		b.mu.Unlock()
		reader(value, nil)
		return
	}

	b.queue.PushBack(value)
	if b.limit > 0 && b.queue.Len() > b.limit {
		b.queue.Remove(b.queue.Front())
		b.dropped++
		b.logger.WithFields(logrus.Fields{
			"queue_limit": b.limit,
			"dropped":     b.dropped,
		}).Warn("Notification queue full, dropped oldest value")
	}
	b.mu.Unlock()
}

// Read delivers the next value to cb. A queued value is delivered
// immediately; otherwise cb becomes the pending reader and is completed by the
// next event or by Stop. A Read issued while another one is pending fails
// with ErrReadInProgress and leaves the pending reader untouched.
func (b *Buffer) Read(cb ReadCallback) {
	b.mu.Lock()

	if b.stopped {
		b.mu.Unlock()
		cb(nil, ErrNotificationsStopped)
		return
	}

	if b.pending != nil {
		b.mu.Unlock()
		cb(nil, ErrReadInProgress)
		return
	}

	if front := b.queue.Front(); front != nil {
		value := b.queue.Remove(front)
		b.mu.Unlock()
		cb(value, nil)
		return
	}

	b.pending = cb
	b.mu.Unlock()
}

// Stop detaches the buffer from its characteristic, asks the characteristic to
// stop notifying, fails a pending reader with ErrNotificationsStopped and
// discards queued values. The buffer is torn down even when the
// characteristic rejects the stop request; that error is returned. Stopping a
// stopped buffer is a no-op.
func (b *Buffer) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return nil
	}
	b.stopped = true

	char := b.characteristic
	remove := b.removeListener
	reader := b.pending
	discarded := b.queue.Len()

	b.characteristic = nil
	b.removeListener = nil
	b.pending = nil
	b.queue.Init()
	b.mu.Unlock()

	remove()
	stopErr := char.StopNotifications(ctx)

	if reader != nil {
		reader(nil, ErrNotificationsStopped)
	}

	b.logger.WithFields(logrus.Fields{
		"characteristic":  char.UUID(),
		"discarded":       discarded,
		"pending_aborted": reader != nil,
	}).Debug("Notification buffer stopped")

	if stopErr != nil {
		return fmt.Errorf("failed to stop notifications on characteristic %s: %w", char.UUID(), stopErr)
	}
	return nil
}

// Len returns the number of queued values.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Len()
}

// Dropped returns how many values were discarded because of QueueLimit.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Pending reports whether a reader is waiting.
func (b *Buffer) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending != nil
}

// Stopped reports whether Stop has been called.
func (b *Buffer) Stopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped
}

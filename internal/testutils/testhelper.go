package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/blevi/internal/dom"
)

type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
}

// NewTestHelper creates a test helper with a debug logger.
func NewTestHelper(t *testing.T) *TestHelper {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	return &TestHelper{
		T:      t,
		Logger: logger,
	}
}

// DispatchWhenArmed fires event on el as soon as a listener for it is
// registered, emulating a user who clicks after the page armed the button.
// It gives up when ctx is done.
func DispatchWhenArmed(ctx context.Context, el *dom.Element, event string) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		if el.ListenerCount(event) > 0 {
			el.Dispatch(event)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

package dom

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDocument() *Document {
	return NewDocument(
		NewElement("button", "battery_connect", "connect primary"),
		NewElement("button", "playbulb_connect", "connect"),
		NewElement("input", "battery_result", ""),
		NewElement("DIV", "", "panel"),
	)
}

func TestQuerySelectorAll(t *testing.T) {
	doc := newTestDocument()

	tests := []struct {
		selector string
		expected int
	}{
		{"#battery_connect", 1},
		{"button#battery_connect", 1},
		{"input#battery_connect", 0},
		{".connect", 2},
		{"button.primary", 1},
		{"button", 2},
		{"div", 1},
		{"#missing", 0},
		{"", 0},
		{"div > button", 0},
		{"#", 0},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			assert.Len(t, doc.QuerySelectorAll(tt.selector), tt.expected)
		})
	}
}

func TestQuerySelectorOne(t *testing.T) {
	doc := newTestDocument()

	el, err := doc.QuerySelectorOne("#battery_connect")
	require.NoError(t, err)
	assert.Equal(t, "battery_connect", el.ID)

	_, err = doc.QuerySelectorOne(".connect")
	var selErr *SelectorError
	require.True(t, errors.As(err, &selErr))
	assert.Equal(t, 2, selErr.Found)
	assert.Equal(t, "Exactly one element must match the provided selector: .connect. Instead found the following number: 2.", err.Error())

	_, err = doc.QuerySelectorOne("#nope")
	require.True(t, errors.As(err, &selErr))
	assert.Equal(t, 0, selErr.Found)
}

func TestEventListeners(t *testing.T) {
	el := NewElement("button", "b", "")

	var order []string
	first := el.AddEventListener("click", func(string) { order = append(order, "first") })
	el.AddEventListener("click", func(string) { order = append(order, "second") })
	el.AddEventListener("keydown", func(string) { order = append(order, "key") })

	assert.Equal(t, 2, el.Dispatch("click"))
	assert.Equal(t, []string{"first", "second"}, order)

	el.RemoveEventListener("click", first)
	el.RemoveEventListener("click", 999)
	order = nil
	assert.Equal(t, 1, el.Dispatch("click"))
	assert.Equal(t, []string{"second"}, order)
	assert.Equal(t, 0, el.Dispatch("mouseover"))
}

func TestDocumentDispatch(t *testing.T) {
	doc := newTestDocument()
	el, err := doc.QuerySelectorOne("#playbulb_connect")
	require.NoError(t, err)

	fired := 0
	el.AddEventListener("click", func(string) { fired++ })

	require.NoError(t, doc.Dispatch("#playbulb_connect", "click"))
	assert.Equal(t, 1, fired)
	assert.Error(t, doc.Dispatch("button", "click"))
}

func TestOnceFiresExactlyOnce(t *testing.T) {
	// GOAL: Verify the gesture gate runs its action once however often the event fires
	//
	// TEST SCENARIO: Arm gate → dispatch click 5 times → action ran once, listener removed

	el := NewElement("button", "connect", "")
	calls := 0
	Once(el, "click", func() { calls++ })
	assert.Equal(t, 1, el.ListenerCount("click"))

	for i := 0; i < 5; i++ {
		el.Dispatch("click")
	}

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, el.ListenerCount("click"))
}

func TestOnceConcurrentDispatch(t *testing.T) {
	el := NewElement("button", "connect", "")
	var calls atomic.Int32
	Once(el, "", func() { calls.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			el.Dispatch(DefaultEvent)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestOnceCancel(t *testing.T) {
	el := NewElement("button", "connect", "")
	calls := 0
	cancel := Once(el, "click", func() { calls++ })

	cancel()
	el.Dispatch("click")

	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, el.ListenerCount("click"))
}

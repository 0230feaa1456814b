// Package dom is a minimal in-memory document used to gate device requests
// behind a user gesture: elements are looked up by selector and events are
// dispatched to their listeners.
package dom

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// DefaultEvent is the activation event used when none is given.
const DefaultEvent = "click"

// ListenerID identifies a registered event listener.
type ListenerID uint64

// Listener handles a dispatched event.
type Listener func(event string)

// Element is a node with a tag, an optional id and a set of classes.
type Element struct {
	Tag     string
	ID      string
	Classes []string

	mu        sync.Mutex
	listeners map[string]*orderedmap.OrderedMap[ListenerID, Listener]
	nextID    atomic.Uint64
}

// NewElement creates an element. Classes are given as a space separated list.
func NewElement(tag, id, classes string) *Element {
	return &Element{
		Tag:     strings.ToLower(tag),
		ID:      id,
		Classes: strings.Fields(classes),
	}
}

// AddEventListener registers fn for event and returns its id.
func (e *Element) AddEventListener(event string, fn Listener) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listeners == nil {
		e.listeners = make(map[string]*orderedmap.OrderedMap[ListenerID, Listener])
	}
	l, ok := e.listeners[event]
	if !ok {
		l = orderedmap.New[ListenerID, Listener]()
		e.listeners[event] = l
	}

	id := ListenerID(e.nextID.Add(1))
	l.Set(id, fn)
	return id
}

// RemoveEventListener unregisters a listener. Unknown ids are ignored.
func (e *Element) RemoveEventListener(event string, id ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if l, ok := e.listeners[event]; ok {
		l.Delete(id)
	}
}

// ListenerCount returns the number of listeners registered for event.
func (e *Element) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if l, ok := e.listeners[event]; ok {
		return l.Len()
	}
	return 0
}

// Dispatch calls the listeners of event in registration order and returns how
// many were called. Listeners may add or remove listeners while running.
func (e *Element) Dispatch(event string) int {
	e.mu.Lock()
	var snapshot []Listener
	if l, ok := e.listeners[event]; ok {
		for pair := l.Oldest(); pair != nil; pair = pair.Next() {
			snapshot = append(snapshot, pair.Value)
		}
	}
	e.mu.Unlock()

	for _, fn := range snapshot {
		fn(event)
	}
	return len(snapshot)
}

func (e *Element) hasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// SelectorError reports a selector that does not identify exactly one element.
type SelectorError struct {
	Selector string
	Found    int
}

func (e *SelectorError) Error() string {
	return fmt.Sprintf("Exactly one element must match the provided selector: %s. Instead found the following number: %d.", e.Selector, e.Found)
}

// Document holds elements in insertion order.
type Document struct {
	mu       sync.RWMutex
	elements []*Element
}

// NewDocument creates a document containing elements.
func NewDocument(elements ...*Element) *Document {
	return &Document{elements: elements}
}

// Append adds an element and returns it.
func (d *Document) Append(el *Element) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements = append(d.elements, el)
	return el
}

// QuerySelectorAll returns every element matching selector. Supported forms
// are "tag", "#id", ".class", "tag#id" and "tag.class"; an invalid selector
// matches nothing.
func (d *Document) QuerySelectorAll(selector string) []*Element {
	sel, ok := parseSelector(selector)
	if !ok {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*Element
	for _, el := range d.elements {
		if sel.matches(el) {
			out = append(out, el)
		}
	}
	return out
}

// QuerySelectorOne returns the single element matching selector or a
// *SelectorError.
func (d *Document) QuerySelectorOne(selector string) (*Element, error) {
	matches := d.QuerySelectorAll(selector)
	if len(matches) != 1 {
		return nil, &SelectorError{Selector: selector, Found: len(matches)}
	}
	return matches[0], nil
}

// Dispatch fires event on the single element matching selector.
func (d *Document) Dispatch(selector, event string) error {
	el, err := d.QuerySelectorOne(selector)
	if err != nil {
		return err
	}
	el.Dispatch(event)
	return nil
}

type selector struct {
	tag   string
	id    string
	class string
}

func parseSelector(s string) (selector, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " >+~[]:,*") {
		return selector{}, false
	}

	var sel selector
	switch i := strings.IndexAny(s, "#."); {
	case i < 0:
		sel.tag = strings.ToLower(s)
	case s[i] == '#':
		sel.tag, sel.id = strings.ToLower(s[:i]), s[i+1:]
		if sel.id == "" || strings.ContainsAny(sel.id, "#.") {
			return selector{}, false
		}
	default:
		sel.tag, sel.class = strings.ToLower(s[:i]), s[i+1:]
		if sel.class == "" || strings.ContainsAny(sel.class, "#.") {
			return selector{}, false
		}
	}
	return sel, true
}

func (s selector) matches(el *Element) bool {
	if s.tag != "" && s.tag != el.Tag {
		return false
	}
	if s.id != "" && s.id != el.ID {
		return false
	}
	if s.class != "" && !el.hasClass(s.class) {
		return false
	}
	return true
}

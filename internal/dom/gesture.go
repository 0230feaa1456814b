package dom

import "sync"

// Once registers a listener that runs fn on the first dispatch of event and
// removes itself before doing so, so fn runs at most once no matter how often
// or how concurrently the event fires. The returned cancel func disarms the
// gate without running fn.
func Once(el *Element, event string, fn func()) (cancel func()) {
	if event == "" {
		event = DefaultEvent
	}

	var (
		once sync.Once
		id   ListenerID
		mu   sync.Mutex
	)

	disarm := func() {
		mu.Lock()
		el.RemoveEventListener(event, id)
		mu.Unlock()
	}

	mu.Lock()
	id = el.AddEventListener(event, func(string) {
		once.Do(func() {
			disarm()
			fn()
		})
	})
	mu.Unlock()

	return func() {
		once.Do(disarm)
	}
}

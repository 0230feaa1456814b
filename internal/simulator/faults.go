package simulator

import "sync"

// Op names a simulated operation that can be made to fail.
type Op string

const (
	OpRequestDevice      Op = "requestDevice"
	OpConnect            Op = "connect"
	OpGetPrimaryService  Op = "getPrimaryService"
	OpGetCharacteristic  Op = "getCharacteristic"
	OpReadValue          Op = "readValue"
	OpWriteValue         Op = "writeValue"
	OpStartNotifications Op = "startNotifications"
	OpStopNotifications  Op = "stopNotifications"
)

// faults queues injected errors per operation.
type faults struct {
	mu      sync.Mutex
	pending map[Op][]error
}

func (f *faults) push(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		f.pending = make(map[Op][]error)
	}
	f.pending[op] = append(f.pending[op], err)
}

func (f *faults) take(op Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.pending[op]
	if len(q) == 0 {
		return nil
	}
	err := q[0]
	f.pending[op] = q[1:]
	return err
}

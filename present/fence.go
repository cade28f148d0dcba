package present

// Fence is a one-shot synchronization point.
type Fence interface {
	Triggered() bool

	// OnTrigger arranges for f to be called once the fence has been
	// triggered. If it already has been, f is called immediately.
	OnTrigger(f func())

	Trigger()
}

// SimpleFence is a Fence that is triggered by calling Trigger. Its
// zero value is an untriggered fence. Callbacks run on the goroutine
// that calls Trigger.
type SimpleFence struct {
	triggered bool
	waiters   []func()
}

func (f *SimpleFence) Triggered() bool {
	return f.triggered
}

func (f *SimpleFence) OnTrigger(cb func()) {
	if f.triggered {
		cb()
		return
	}
	f.waiters = append(f.waiters, cb)
}

func (f *SimpleFence) Trigger() {
	if f.triggered {
		return
	}
	f.triggered = true

	waiters := f.waiters
	f.waiters = nil
	for _, cb := range waiters {
		cb()
	}
}

// Reset makes f untriggered again.
func (f *SimpleFence) Reset() {
	f.triggered = false
}

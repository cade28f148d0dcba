// Package ev implements the event queue that carries work from a
// connection's reader goroutine to the goroutine that owns the
// connection state.
package ev

import "deedles.dev/xsync/cq"

type Queue = cq.BulkQueue[func() error, *Events]

func NewQueue() *Queue {
	return cq.New(func(v []func() error) *Events {
		return &Events{
			events: v,
		}
	})
}

// Events represents a series of events pulled from a Queue in one
// batch.
type Events struct {
	events []func() error
}

// Flush runs every event in the batch, collecting their errors.
func Flush(queue *Events) (errs []error) {
	for _, ev := range queue.events {
		err := ev()
		if err != nil {
			errs = append(errs, err)
		}
	}
	queue.events = nil
	return errs
}

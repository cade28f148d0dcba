package wl

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"deedles.dev/xwl/internal/debug"
	"deedles.dev/xwl/internal/ev"
	"deedles.dev/xwl/internal/objstore"
	"deedles.dev/xwl/wire"
)

// object holds the state shared by every protocol object.
type object struct {
	id      uint32
	display *Display
}

func (obj *object) ID() uint32 {
	return obj.id
}

func (obj *object) SetID(id uint32) {
	obj.id = id
}

func (obj *object) Delete() {}

// Display is the client's connection to a Wayland compositor. Events
// read from the socket and requests made by the client are both
// placed into a single queue which is only processed when Flush or
// RoundTrip is called, so every listener runs on the goroutine that
// calls those methods.
type Display struct {
	Error func(id, code uint32, msg string)

	object
	done     chan struct{}
	close    sync.Once
	conn     *wire.Conn
	store    *objstore.Store
	registry *Registry
	queue    *ev.Queue
}

func DialDisplay() (*Display, error) {
	c, err := wire.Dial()
	if err != nil {
		return nil, err
	}
	return ConnectDisplay(c), nil
}

func ConnectDisplay(c *wire.Conn) *Display {
	display := Display{
		done:  make(chan struct{}),
		conn:  c,
		store: objstore.New(1),
		queue: ev.NewQueue(),
	}
	display.display = &display
	display.store.Add(&display)

	go display.listen()

	return &display
}

func (display *Display) listen() {
	for {
		msg, err := display.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			select {
			case <-display.done:
			case display.queue.Add() <- func() error { return fmt.Errorf("read message: %w", err) }:
			}
			return
		}

		select {
		case <-display.done:
			return
		case display.queue.Add() <- func() error { return display.store.Dispatch(msg) }:
		}
	}
}

func (display *Display) Close() error {
	display.close.Do(func() { close(display.done) })
	display.queue.Stop()
	return display.conn.Close()
}

func (display *Display) Interface() string {
	return DisplayInterface
}

func (display *Display) MethodName(op uint16) string {
	return eventName([]string{"error", "delete_id"}, op)
}

// AddObject registers obj with the connection, assigning it a new ID.
func (display *Display) AddObject(obj wire.Object) {
	display.store.Add(obj)
}

func (display *Display) Enqueue(msg *wire.MessageBuilder) {
	display.queue.Add() <- func() error {
		debug.Printf(" -> %v", msg)
		return msg.Build(display.conn)
	}
}

// Flush processes everything that is currently in the queue, sending
// enqueued requests and dispatching received events. It does not
// block waiting for new events.
func (display *Display) Flush() error {
	select {
	case events := <-display.queue.Get():
		return errors.Join(ev.Flush(events)...)
	default:
		return nil
	}
}

// RoundTrip processes the queue until the compositor has handled
// every request made before the call.
func (display *Display) RoundTrip() error {
	done := make(chan struct{})
	display.Sync(func(uint32) { close(done) })

	var errs []error
	for {
		select {
		case <-done:
			return errors.Join(errs...)

		case <-display.done:
			return errors.Join(append(errs, net.ErrClosed)...)

		case events := <-display.queue.Get():
			errs = append(errs, ev.Flush(events)...)
			if len(errs) > 0 {
				return errors.Join(errs...)
			}
		}
	}
}

// Sync asks the compositor to call done once it has processed every
// request sent before this one.
func (display *Display) Sync(done func(uint32)) *Callback {
	callback := Callback{Done: done}
	callback.display = display
	display.AddObject(&callback)

	msg := wire.NewMessage(display, displaySyncOp, "sync", &callback)
	msg.WriteObject(&callback)
	display.Enqueue(msg)

	return &callback
}

func (display *Display) GetRegistry() *Registry {
	if display.registry != nil {
		return display.registry
	}

	registry := Registry{globals: make(map[uint32]Interface)}
	registry.display = display
	display.AddObject(&registry)

	msg := wire.NewMessage(display, displayGetRegistryOp, "get_registry", &registry)
	msg.WriteObject(&registry)
	display.Enqueue(msg)

	display.registry = &registry
	return &registry
}

func (display *Display) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case displayErrorEvent:
		id := msg.ReadUint()
		code := msg.ReadUint()
		message := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		if display.Error != nil {
			display.Error(id, code, message)
		}
		return DisplayError{ObjectID: id, Code: code, Message: message}

	case displayDeleteIDEvent:
		id := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		display.store.Delete(id)
		return nil

	default:
		return unknownEvent(display, msg.Op())
	}
}

// DisplayError is a fatal protocol error reported by the compositor.
type DisplayError struct {
	ObjectID uint32
	Code     uint32
	Message  string
}

func (err DisplayError) Error() string {
	return fmt.Sprintf("protocol error on object %v: code %v: %v", err.ObjectID, err.Code, err.Message)
}

package wl

import "deedles.dev/xwl/wire"

// Callback is a one-shot notification. The compositor retires its ID
// as soon as Done has been delivered.
type Callback struct {
	Done func(data uint32)

	object
}

func (c *Callback) Interface() string {
	return CallbackInterface
}

func (c *Callback) MethodName(op uint16) string {
	return eventName([]string{"done"}, op)
}

// Destroy stops c from delivering its event. wl_callback has no
// destructor request, so nothing is sent to the compositor.
func (c *Callback) Destroy() {
	c.Done = nil
}

func (c *Callback) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case callbackDoneEvent:
		data := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		if c.Done != nil {
			c.Done(data)
		}
		return nil

	default:
		return unknownEvent(c, msg.Op())
	}
}

package wl

import "deedles.dev/xwl/wire"

type Buffer struct {
	// Release is called when the compositor no longer reads from the
	// buffer's storage.
	Release func()

	object
}

func (buf *Buffer) Interface() string {
	return BufferInterface
}

func (buf *Buffer) MethodName(op uint16) string {
	return eventName([]string{"release"}, op)
}

func (buf *Buffer) Destroy() {
	buf.Release = nil
	buf.display.Enqueue(wire.NewMessage(buf, bufferDestroyOp, "destroy"))
}

func (buf *Buffer) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case bufferReleaseEvent:
		if buf.Release != nil {
			buf.Release()
		}
		return nil

	default:
		return unknownEvent(buf, msg.Op())
	}
}

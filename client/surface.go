package wl

import "deedles.dev/xwl/wire"

type Surface struct {
	Enter func(output uint32)
	Leave func(output uint32)

	object
}

func (s *Surface) Interface() string {
	return SurfaceInterface
}

func (s *Surface) MethodName(op uint16) string {
	return eventName([]string{"enter", "leave"}, op)
}

func (s *Surface) Destroy() {
	s.display.Enqueue(wire.NewMessage(s, surfaceDestroyOp, "destroy"))
}

// Attach sets buf as the pending content of the surface. A nil buf
// unmaps the surface on the next commit.
func (s *Surface) Attach(buf *Buffer, x, y int32) {
	msg := wire.NewMessage(s, surfaceAttachOp, "attach", buf, x, y)
	msg.WriteObject(buf)
	msg.WriteInt(x)
	msg.WriteInt(y)
	s.display.Enqueue(msg)
}

func (s *Surface) Damage(x, y, width, height int32) {
	msg := wire.NewMessage(s, surfaceDamageOp, "damage", x, y, width, height)
	msg.WriteInt(x)
	msg.WriteInt(y)
	msg.WriteInt(width)
	msg.WriteInt(height)
	s.display.Enqueue(msg)
}

// DamageBuffer is like Damage, but in buffer coordinates. It needs
// version 4 of wl_compositor.
func (s *Surface) DamageBuffer(x, y, width, height int32) {
	msg := wire.NewMessage(s, surfaceDamageBufferOp, "damage_buffer", x, y, width, height)
	msg.WriteInt(x)
	msg.WriteInt(y)
	msg.WriteInt(width)
	msg.WriteInt(height)
	s.display.Enqueue(msg)
}

// Frame requests a callback that will be called once when it is a
// good time to draw a new frame.
func (s *Surface) Frame() *Callback {
	callback := Callback{object: object{display: s.display}}
	s.display.AddObject(&callback)

	msg := wire.NewMessage(s, surfaceFrameOp, "frame", &callback)
	msg.WriteObject(&callback)
	s.display.Enqueue(msg)

	return &callback
}

func (s *Surface) Commit() {
	s.display.Enqueue(wire.NewMessage(s, surfaceCommitOp, "commit"))
}

func (s *Surface) Dispatch(msg *wire.MessageBuffer) error {
	switch msg.Op() {
	case surfaceEnterEvent, surfaceLeaveEvent:
		output := msg.ReadUint()
		if err := msg.Err(); err != nil {
			return err
		}
		f := s.Enter
		if msg.Op() == surfaceLeaveEvent {
			f = s.Leave
		}
		if f != nil {
			f(output)
		}
		return nil

	default:
		return unknownEvent(s, msg.Op())
	}
}

package wl

import "deedles.dev/xwl/wire"

type Compositor struct {
	object
}

// BindCompositor binds the wl_compositor global with the given name,
// using at most CompositorVersion.
func BindCompositor(display *Display, name, version uint32) *Compositor {
	compositor := Compositor{object: object{display: display}}
	display.GetRegistry().Bind(name, CompositorInterface, min(version, CompositorVersion), &compositor)
	return &compositor
}

func (c *Compositor) Interface() string {
	return CompositorInterface
}

func (c *Compositor) MethodName(op uint16) string {
	return "unknown"
}

func (c *Compositor) Dispatch(msg *wire.MessageBuffer) error {
	return unknownEvent(c, msg.Op())
}

func (c *Compositor) CreateSurface() *Surface {
	s := Surface{object: object{display: c.display}}
	c.display.AddObject(&s)

	msg := wire.NewMessage(c, compositorCreateSurfaceOp, "create_surface", &s)
	msg.WriteObject(&s)
	c.display.Enqueue(msg)

	return &s
}

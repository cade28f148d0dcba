package xwl

import (
	"deedles.dev/xwl/dix"
	"deedles.dev/xwl/region"
)

// Window binds a dix window to the compositor surface that shows it.
type Window struct {
	screen  *Screen
	window  *dix.Window
	surface Surface

	// frame is the outstanding frame callback, if any. There is never
	// more than one.
	frame       FrameCallback
	frameTasks  []taskID
	bufferTasks []taskID

	damage  region.Region
	damaged bool

	// attached is the buffer attached since the last commit.
	attached *Buffer
}

func (xw *Window) Window() *dix.Window {
	return xw.window
}

func (xw *Window) armFrame() {
	xw.frame = xw.surface.Frame(xw.frameDone)
}

func (xw *Window) commit() {
	if xw.attached != nil {
		xw.attached.busy = true
		xw.attached = nil
	}
	xw.surface.Commit()
}

func (xw *Window) frameDone(time uint32) {
	if xw.frame == nil {
		return
	}
	xw.armFrame()

	if len(xw.frameTasks) == 0 {
		return
	}

	// Tasks added while these run wait for the next frame.
	tasks := xw.frameTasks
	xw.frameTasks = nil
	xw.screen.runFrameTasks(tasks, 0, time)

	if (len(xw.frameTasks) > 0) && (xw.frame != nil) {
		xw.commit()
	}
}

// buffer returns the buffer bound to the window's current pixmap,
// creating and attaching one if there isn't one yet. It returns nil if
// that fails.
func (xw *Window) buffer() *Buffer {
	p := xw.window.Pixmap()
	if p == nil {
		return nil
	}
	if b := xw.screen.buffers[p]; b != nil {
		return b
	}

	xw.attach(p)
	return xw.screen.buffers[p]
}

// attach attaches p to the surface, creating its buffer if needed. The
// pixmap is kept alive until the compositor has seen the attach.
func (xw *Window) attach(p *dix.Pixmap) {
	s := xw.screen

	b := s.buffers[p]
	if b == nil {
		h, err := s.factory.CreateBuffer(p)
		if err != nil {
			log().Warn("failed to create buffer", "window", xw.window.ID(), "pixmap", p.ID(), "err", err)
			return
		}
		b = s.attachBuffer(p, h)
	}

	xw.surface.Attach(b.handle)
	xw.surface.Damage(p.Bounds())
	xw.attached = b

	p.Ref()
	s.transport.Sync(p.Unref)
}

func (xw *Window) addDamage(r region.Region) {
	xw.damage = xw.damage.Union(r)
	if !xw.damaged && !xw.damage.Empty() {
		xw.damaged = true
		xw.screen.damaged = append(xw.screen.damaged, xw)
	}
}

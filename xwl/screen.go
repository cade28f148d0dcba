package xwl

import (
	"fmt"

	"deedles.dev/xwl/dix"
	"deedles.dev/xwl/region"
	"golang.org/x/exp/slices"
)

// Screen presents a dix.Screen through a compositor. It installs
// itself as the screen's hooks, and every method must be called on the
// goroutine that modifies the dix.Screen.
type Screen struct {
	dix        *dix.Screen
	opts       Options
	transport  Transport
	compositor Compositor
	factory    BufferFactory

	windows    map[*dix.Window]*Window
	windowList []*Window
	damaged    []*Window

	buffers    map[*dix.Pixmap]*Buffer
	bufferList []*Buffer

	tasks taskArena
}

func NewScreen(ds *dix.Screen, t Transport, c Compositor, f BufferFactory, opts Options) *Screen {
	s := Screen{
		dix:        ds,
		opts:       opts,
		transport:  t,
		compositor: c,
		factory:    f,
		windows:    make(map[*dix.Window]*Window),
		buffers:    make(map[*dix.Pixmap]*Buffer),
	}
	ds.SetHooks(&s)

	if !opts.Rootless {
		s.RealizeWindow(ds.Root())
	}

	return &s
}

// Window returns the binding for w, or nil if w has no surface.
func (s *Screen) Window(w *dix.Window) *Window {
	return s.windows[w]
}

// Buffer returns the binding for p, or nil if p has no buffer.
func (s *Screen) Buffer(p *dix.Pixmap) *Buffer {
	return s.buffers[p]
}

func (s *Screen) RealizeWindow(w *dix.Window) {
	if s.opts.Rootless {
		if w.Redirect() != dix.RedirectManual {
			return
		}
	} else if w.Parent() != nil {
		return
	}

	if s.windows[w] != nil {
		return
	}

	surface, err := s.compositor.CreateSurface()
	if err != nil {
		log().Warn("failed to create surface", "window", w.ID(), "err", err)
		return
	}

	xw := Window{
		screen:  s,
		window:  w,
		surface: surface,
	}
	s.windows[w] = &xw
	s.windowList = append(s.windowList, &xw)

	if p := w.Pixmap(); p != nil {
		xw.attach(p)
		xw.addDamage(region.Rect(p.Bounds()))
	}
}

func (s *Screen) UnrealizeWindow(w *dix.Window) {
	xw := s.windows[w]
	if xw == nil {
		return
	}

	if p := w.Pixmap(); p != nil {
		s.waitReleaseToDestroy(p)
	}

	s.teardown(xw)
}

// teardown destroys xw's surface and runs all of its tasks early.
func (s *Screen) teardown(xw *Window) {
	delete(s.windows, xw.window)
	s.windowList = slices.DeleteFunc(s.windowList, func(v *Window) bool { return v == xw })
	s.damaged = slices.DeleteFunc(s.damaged, func(v *Window) bool { return v == xw })
	xw.damaged = false

	if xw.frame != nil {
		xw.frame.Destroy()
		xw.frame = nil
	}
	xw.surface.Destroy()

	frames := xw.frameTasks
	xw.frameTasks = nil
	s.runFrameTasks(frames, dix.FlagObjectDestruction|dix.FlagWindowUnrealize, 0)

	buffers := xw.bufferTasks
	xw.bufferTasks = nil
	for _, id := range buffers {
		if b := s.tasks.tasks[id].buf; b != nil {
			b.tasks = removeTask(b.tasks, id)
		}
	}
	s.runBufferTasks(buffers, dix.FlagWindowUnrealize)
}

func (s *Screen) SetWindowPixmap(w *dix.Window, p *dix.Pixmap) {
	if s.windows[w] == nil {
		return
	}

	old := w.Pixmap()
	if (old != nil) && (old != p) {
		s.waitReleaseToDestroy(old)
	}
}

func (s *Screen) Damage(w *dix.Window, r region.Region) {
	if xw := s.windows[w]; xw != nil {
		xw.addDamage(r)
	}
}

// VisibleParent returns the window whose surface shows w, or nil if w
// is not on any surface.
func (s *Screen) VisibleParent(w *dix.Window) *dix.Window {
	root := s.dix.Root()

	cur := w
	for (cur.Redirect() != dix.RedirectManual) && (cur.Parent() != nil) && (cur.Parent().Parent() != nil) {
		cur = cur.Parent()
	}
	bound := s.windows[cur] != nil

	if s.opts.Rootless {
		if (cur == root) || (cur.Parent() != root) || (cur.Redirect() != dix.RedirectManual) || !bound {
			return nil
		}
		return cur
	}

	if (cur != root) || !bound {
		return nil
	}
	return root
}

// PostDamage commits the accumulated damage of every window. A window
// whose buffer cannot be created keeps its damage for the next call.
func (s *Screen) PostDamage() {
	var retry []*Window
	for _, xw := range s.damaged {
		b := xw.buffer()
		if b == nil {
			retry = append(retry, xw)
			continue
		}

		for _, r := range xw.damage.Rects() {
			xw.surface.Damage(r)
		}
		xw.surface.Attach(b.handle)
		xw.attached = b
		xw.commit()

		xw.damage = region.Region{}
		xw.damaged = false
	}
	s.damaged = retry
}

// BlockHandler dispatches pending compositor events, commits damage,
// and sends the resulting requests. It should be called whenever the
// host is about to wait for more work. Errors wrap ErrTransport.
func (s *Screen) BlockHandler() error {
	err := s.transport.Flush()
	if err != nil {
		return fmt.Errorf("%w: dispatch events: %w", ErrTransport, err)
	}

	s.PostDamage()

	err = s.transport.Flush()
	if err != nil {
		return fmt.Errorf("%w: flush requests: %w", ErrTransport, err)
	}

	return nil
}

// Close destroys every surface, running their tasks early, and waits
// for the compositor to catch up. The screen's hooks are removed, so
// PreClose must be called first if it is going to be.
func (s *Screen) Close() error {
	for _, xw := range slices.Clone(s.windowList) {
		s.teardown(xw)
	}
	s.dix.SetHooks(nil)

	err := s.transport.RoundTrip()
	if err != nil {
		return fmt.Errorf("%w: round trip: %w", ErrTransport, err)
	}
	return nil
}

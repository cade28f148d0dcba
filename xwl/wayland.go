package xwl

import (
	"errors"
	"fmt"
	"image"

	wl "deedles.dev/xwl/client"
	"deedles.dev/xwl/dix"
	"deedles.dev/xwl/internal/set"
	"deedles.dev/xwl/shm"
)

// Wayland talks to a compositor over a Wayland connection. It
// implements Transport, Compositor, and BufferFactory, creating
// buffers from pixmaps whose storage is a *shm.Storage.
type Wayland struct {
	display    *wl.Display
	compositor *wl.Compositor
	shm        *wl.Shm
	formats    set.Set[wl.ShmFormat]
}

// NewWayland binds the globals that are needed from display. It
// blocks until the compositor has announced them.
func NewWayland(display *wl.Display) (*Wayland, error) {
	w := Wayland{
		display: display,
		formats: set.New[wl.ShmFormat](),
	}

	registry := display.GetRegistry()
	registry.Global = func(name uint32, inter string, version uint32) {
		switch inter {
		case wl.CompositorInterface:
			w.compositor = wl.BindCompositor(display, name, version)
		case wl.ShmInterface:
			w.shm = wl.BindShm(display, name)
			w.shm.Format = w.formats.Add
		}
	}

	err := display.RoundTrip()
	if err != nil {
		return nil, fmt.Errorf("get globals: %w", err)
	}
	if w.compositor == nil {
		return nil, errors.New("compositor does not provide wl_compositor")
	}
	if w.shm == nil {
		return nil, errors.New("compositor does not provide wl_shm")
	}

	err = display.RoundTrip()
	if err != nil {
		return nil, fmt.Errorf("get shm formats: %w", err)
	}

	return &w, nil
}

func (w *Wayland) Sync(done func()) {
	w.display.Sync(func(uint32) { done() })
}

func (w *Wayland) Flush() error {
	return w.display.Flush()
}

func (w *Wayland) RoundTrip() error {
	return w.display.RoundTrip()
}

func (w *Wayland) CreateSurface() (Surface, error) {
	return waylandSurface{s: w.compositor.CreateSurface()}, nil
}

// ShmFormat returns the pixel layout used for a pixmap of the given
// depth.
func ShmFormat(depth int) wl.ShmFormat {
	if depth == 32 {
		return wl.ShmFormatArgb8888
	}
	return wl.ShmFormatXrgb8888
}

func (w *Wayland) CreateBuffer(p *dix.Pixmap) (BufferHandle, error) {
	storage, ok := p.Storage().(*shm.Storage)
	if !ok {
		return nil, fmt.Errorf("%v is not in shared memory", p)
	}

	format := ShmFormat(p.Depth())
	if !w.formats.Has(format) {
		return nil, fmt.Errorf("compositor does not support %v", format)
	}

	pool := w.shm.CreatePool(storage.File(), int32(storage.Len()))
	buf := pool.CreateBuffer(
		0,
		int32(p.Width()),
		int32(p.Height()),
		int32(storage.Stride()),
		format,
	)
	pool.Destroy()

	return waylandBuffer{b: buf}, nil
}

type waylandSurface struct {
	s *wl.Surface
}

func (s waylandSurface) Attach(buf BufferHandle) {
	var b *wl.Buffer
	if wb, ok := buf.(waylandBuffer); ok {
		b = wb.b
	}
	s.s.Attach(b, 0, 0)
}

func (s waylandSurface) Damage(r image.Rectangle) {
	s.s.Damage(int32(r.Min.X), int32(r.Min.Y), int32(r.Dx()), int32(r.Dy()))
}

func (s waylandSurface) Commit() {
	s.s.Commit()
}

func (s waylandSurface) Frame(done func(time uint32)) FrameCallback {
	cb := s.s.Frame()
	cb.Done = done
	return cb
}

func (s waylandSurface) Destroy() {
	s.s.Destroy()
}

type waylandBuffer struct {
	b *wl.Buffer
}

func (b waylandBuffer) OnRelease(f func()) {
	b.b.Release = f
}

func (b waylandBuffer) Destroy() {
	b.b.Destroy()
}

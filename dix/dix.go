// Package dix models the parts of a legacy display server that the
// Wayland bridge builds on: screens, a window hierarchy with clip
// regions, and reference-counted pixmaps.
//
// Extensions observe the model through a single Hooks value installed
// on the Screen instead of by wrapping its functions.
package dix

import (
	"image"
	"time"

	"deedles.dev/ximage"
	"deedles.dev/xwl/region"
	"golang.org/x/image/draw"
)

// Hooks is notified of changes to a Screen. Every method is called on
// the goroutine that is changing the model.
type Hooks interface {
	// RealizeWindow is called after w becomes viewable.
	RealizeWindow(w *Window)

	// UnrealizeWindow is called before w stops being viewable.
	UnrealizeWindow(w *Window)

	// SetWindowPixmap is called before w's pixmap is replaced with p.
	// w.Pixmap still returns the old pixmap.
	SetWindowPixmap(w *Window, p *Pixmap)

	// DestroyPixmap is called when the last reference to p is
	// dropped. If the hook takes a new reference, p survives.
	DestroyPixmap(p *Pixmap)

	// Damage reports that the pixels in r, which is in the coordinates
	// of w's pixmap, have changed. w is always the window that owns
	// the pixmap.
	Damage(w *Window, r region.Region)
}

type nopHooks struct{}

func (nopHooks) RealizeWindow(*Window)            {}
func (nopHooks) UnrealizeWindow(*Window)          {}
func (nopHooks) SetWindowPixmap(*Window, *Pixmap) {}
func (nopHooks) DestroyPixmap(*Pixmap)            {}
func (nopHooks) Damage(*Window, region.Region)    {}

// Storage holds the pixels of a pixmap.
type Storage interface {
	Image() draw.Image
	Destroy() error
}

// Allocator creates pixmap storage.
type Allocator interface {
	Allocate(w, h, depth int) (Storage, error)
}

// HeapAllocator allocates pixmap storage in ordinary memory.
type HeapAllocator struct{}

func (HeapAllocator) Allocate(w, h, depth int) (Storage, error) {
	return heapStorage{
		img: &ximage.FormatImage{
			Format: ximage.ARGB8888,
			Rect:   image.Rect(0, 0, w, h),
			Pix:    make([]byte, w*h*4),
		},
	}, nil
}

type heapStorage struct {
	img *ximage.FormatImage
}

func (s heapStorage) Image() draw.Image { return s.img }
func (s heapStorage) Destroy() error    { return nil }

// TaskFlags describe why a deferred task is being run early.
type TaskFlags uint

const (
	// FlagWindowUnrealize means the window the task was added to is
	// no longer viewable.
	FlagWindowUnrealize TaskFlags = 1 << iota

	// FlagObjectDestruction means the object the task was waiting on
	// has been destroyed and the event will never arrive.
	FlagObjectDestruction
)

// FrameTaskFunc is run when a window's surface is ready for a new
// frame. time is the compositor's timestamp in milliseconds.
type FrameTaskFunc func(flags TaskFlags, time uint32, arg any)

// BufferTaskFunc is run when the compositor releases a buffer.
type BufferTaskFunc func(flags TaskFlags, arg any)

var epoch = time.Now()

// Now returns the time in microseconds on a monotonic clock.
func Now() uint64 {
	return uint64(time.Since(epoch).Microseconds())
}

// Package xwl presents the windows of a dix.Screen through a Wayland
// compositor.
//
// A Screen binds each top-level window to a compositor surface and
// each window pixmap to a compositor buffer. It accumulates damage and
// commits it from BlockHandler, and it lets other code wait for
// compositor frame and buffer release events through deferred tasks.
package xwl

import (
	"errors"
	"image"
	"log/slog"

	"deedles.dev/xwl/dix"
	"deedles.dev/xwl/internal/xlog"
)

// ErrTransport is returned, wrapped, when communication with the
// compositor fails. There is no way to recover from it.
var ErrTransport = errors.New("compositor transport failed")

// SetLogger sets the logger used by xwl and the packages built on it.
// By default nothing is logged. Pass nil to restore that.
func SetLogger(l *slog.Logger) {
	xlog.Set(l)
}

func log() *slog.Logger {
	return xlog.Logger()
}

// Transport is the connection to the compositor.
type Transport interface {
	// Sync calls done once the compositor has processed every request
	// made so far.
	Sync(done func())

	// Flush sends pending requests and dispatches received events
	// without blocking.
	Flush() error

	// RoundTrip blocks until the compositor has processed every
	// request made so far, dispatching events in the meantime.
	RoundTrip() error
}

type Compositor interface {
	CreateSurface() (Surface, error)
}

type Surface interface {
	Attach(buf BufferHandle)
	Damage(r image.Rectangle)
	Commit()

	// Frame requests a single call to done when it is a good time to
	// draw the next frame. It takes effect at the next commit.
	Frame(done func(time uint32)) FrameCallback

	Destroy()
}

type FrameCallback interface {
	Destroy()
}

// BufferHandle is the compositor's view of a pixmap's storage.
type BufferHandle interface {
	// OnRelease sets the function to call every time the compositor
	// stops reading from the buffer.
	OnRelease(func())

	Destroy()
}

// BufferFactory creates compositor buffers for pixmaps.
type BufferFactory interface {
	CreateBuffer(p *dix.Pixmap) (BufferHandle, error)
}

type Options struct {
	// Rootless selects rootless mode, in which every manually
	// redirected top-level window gets its own surface. Otherwise only
	// the root window is presented.
	Rootless bool
}

// Package xwltest provides an in-memory compositor for testing code
// built on xwl.
package xwltest

import (
	"errors"
	"image"

	"deedles.dev/xwl/dix"
	"deedles.dev/xwl/xwl"
	"golang.org/x/exp/slices"
)

// Compositor records what a Screen asks of it. It implements
// xwl.Transport, xwl.Compositor, and xwl.BufferFactory.
type Compositor struct {
	Surfaces []*Surface
	Buffers  []*Buffer

	// FailBuffers makes CreateBuffer fail.
	FailBuffers bool

	// FlushErr is returned by Flush and RoundTrip.
	FlushErr error

	syncs []func()
}

func (c *Compositor) Sync(done func()) {
	c.syncs = append(c.syncs, done)
}

func (c *Compositor) Flush() error {
	syncs := c.syncs
	c.syncs = nil
	for _, done := range syncs {
		done()
	}
	return c.FlushErr
}

func (c *Compositor) RoundTrip() error {
	return c.Flush()
}

func (c *Compositor) CreateSurface() (xwl.Surface, error) {
	s := Surface{}
	c.Surfaces = append(c.Surfaces, &s)
	return &s, nil
}

func (c *Compositor) CreateBuffer(p *dix.Pixmap) (xwl.BufferHandle, error) {
	if c.FailBuffers {
		return nil, errors.New("buffer creation disabled")
	}

	b := Buffer{Pixmap: p}
	c.Buffers = append(c.Buffers, &b)
	return &b, nil
}

// BufferFor returns the most recently created buffer for p.
func (c *Compositor) BufferFor(p *dix.Pixmap) *Buffer {
	for i := len(c.Buffers) - 1; i >= 0; i-- {
		if c.Buffers[i].Pixmap == p {
			return c.Buffers[i]
		}
	}
	return nil
}

type Surface struct {
	// Current is the buffer that was attached at the last commit.
	Current *Buffer
	Commits int

	// Damaged is the damage sent with the last commit.
	Damaged []image.Rectangle

	Destroyed bool

	pending    *Buffer
	hasPending bool
	damage     []image.Rectangle
	frames     []*FrameCallback
	active     []*FrameCallback
}

func (s *Surface) Attach(buf xwl.BufferHandle) {
	s.pending, _ = buf.(*Buffer)
	s.hasPending = true
}

func (s *Surface) Damage(r image.Rectangle) {
	s.damage = append(s.damage, r)
}

func (s *Surface) Commit() {
	s.Commits++
	if s.hasPending {
		s.Current = s.pending
		s.pending = nil
		s.hasPending = false
	}
	s.Damaged = s.damage
	s.damage = nil
	s.active = append(s.active, s.frames...)
	s.frames = nil
}

func (s *Surface) Frame(done func(time uint32)) xwl.FrameCallback {
	cb := FrameCallback{done: done}
	s.frames = append(s.frames, &cb)
	return &cb
}

func (s *Surface) Destroy() {
	s.Destroyed = true
}

// PresentFrame calls every frame callback that has been committed, as
// a compositor does after it shows a frame.
func (s *Surface) PresentFrame(time uint32) {
	if s.Destroyed {
		return
	}

	active := s.active
	s.active = nil
	for _, cb := range active {
		if !cb.destroyed {
			cb.done(time)
		}
	}
}

// PendingFrames returns the number of committed frame callbacks that
// have not been called.
func (s *Surface) PendingFrames() int {
	return len(slices.DeleteFunc(slices.Clone(s.active), func(cb *FrameCallback) bool { return cb.destroyed }))
}

type FrameCallback struct {
	done      func(uint32)
	destroyed bool
}

func (cb *FrameCallback) Destroy() {
	cb.destroyed = true
}

type Buffer struct {
	Pixmap *dix.Pixmap

	// Destroys counts calls to Destroy.
	Destroys int

	release func()
}

func (b *Buffer) OnRelease(f func()) {
	b.release = f
}

func (b *Buffer) Destroy() {
	b.Destroys++
}

// Release sends a release event for b.
func (b *Buffer) Release() {
	if (b.Destroys == 0) && (b.release != nil) {
		b.release()
	}
}

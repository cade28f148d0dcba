package xwl

import (
	"deedles.dev/xwl/dix"
	"golang.org/x/exp/slices"
)

type bufferState int

const (
	bufferLive bufferState = iota

	// bufferPendingRelease means that at least one destruction is
	// waiting for the compositor to release the buffer. The number of
	// them is kept in Buffer.pending.
	bufferPendingRelease

	bufferDestroyed
)

func (s bufferState) String() string {
	switch s {
	case bufferLive:
		return "live"
	case bufferPendingRelease:
		return "pending release"
	case bufferDestroyed:
		return "destroyed"
	}
	return "unknown"
}

type bufferEvent int

const (
	// bufferDefer queues a destruction behind the next release.
	bufferDefer bufferEvent = iota

	// bufferRelease lets one queued destruction proceed.
	bufferRelease

	// bufferDrain gives up on every queued destruction at once.
	bufferDrain

	bufferDestroy
)

// Buffer binds a pixmap to the compositor buffer that shows it.
type Buffer struct {
	screen *Screen
	pixmap *dix.Pixmap
	handle BufferHandle
	tasks  []taskID

	state            bufferState
	pending          int
	destroyOnRelease bool

	// busy is set while the compositor might be reading the buffer.
	busy bool
}

func (b *Buffer) Pixmap() *dix.Pixmap {
	return b.pixmap
}

// transition applies ev to b's lifecycle state. It reports false,
// leaving the state alone, if ev is not valid in the current state.
func (b *Buffer) transition(ev bufferEvent) bool {
	switch b.state {
	case bufferLive:
		switch ev {
		case bufferDefer:
			b.state = bufferPendingRelease
			b.pending = 1
			return true
		case bufferDrain:
			return true
		case bufferDestroy:
			b.state = bufferDestroyed
			return true
		}

	case bufferPendingRelease:
		switch ev {
		case bufferDefer:
			b.pending++
			return true
		case bufferRelease:
			b.pending--
			if b.pending == 0 {
				b.state = bufferLive
			}
			return true
		case bufferDrain:
			b.pending = 0
			b.state = bufferLive
			return true
		}
	}

	return false
}

// released handles a release event from the compositor.
func (b *Buffer) released() {
	b.busy = false
	if len(b.tasks) == 0 {
		return
	}

	tasks := b.tasks
	b.tasks = nil
	b.screen.runBufferTasks(tasks, 0)
}

// attachBuffer binds p to h.
func (s *Screen) attachBuffer(p *dix.Pixmap, h BufferHandle) *Buffer {
	if b := s.buffers[p]; b != nil {
		log().Warn("pixmap already has a buffer", "pixmap", p.ID())
		h.Destroy()
		return b
	}

	b := Buffer{
		screen: s,
		pixmap: p,
		handle: h,
	}
	h.OnRelease(b.released)

	s.buffers[p] = &b
	s.bufferList = append(s.bufferList, &b)
	return &b
}

func (s *Screen) destroyBuffer(b *Buffer) {
	if !b.transition(bufferDestroy) {
		return
	}

	tasks := b.tasks
	b.tasks = nil
	s.runBufferTasks(tasks, dix.FlagObjectDestruction)

	for _, xw := range s.windowList {
		if xw.attached == b {
			xw.attached = nil
		}
	}

	b.handle.Destroy()
	delete(s.buffers, b.pixmap)
	s.bufferList = slices.DeleteFunc(s.bufferList, func(v *Buffer) bool { return v == b })
}

// DestroyPixmap destroys the buffer bound to p as p is destroyed. If
// destructions are waiting on a release of the buffer, p is kept alive
// until they have all finished.
func (s *Screen) DestroyPixmap(p *dix.Pixmap) {
	b := s.buffers[p]
	if b == nil {
		return
	}

	if b.state == bufferPendingRelease {
		if !b.destroyOnRelease {
			b.destroyOnRelease = true
			p.Ref()
		}
		return
	}

	s.destroyBuffer(b)
}

// waitReleaseToDestroy keeps p alive until the compositor releases its
// buffer. It does nothing if the compositor is not using the buffer.
func (s *Screen) waitReleaseToDestroy(p *dix.Pixmap) {
	b := s.buffers[p]
	if (b == nil) || !b.busy {
		return
	}

	p.Ref()
	b.transition(bufferDefer)
	s.addReleaseTask(b, s.releaseDeferred, b)
}

func (s *Screen) releaseDeferred(flags dix.TaskFlags, arg any) {
	b := arg.(*Buffer)

	// If the buffer was drained, the reference is already gone.
	if !b.transition(bufferRelease) {
		return
	}

	revived := (b.state == bufferLive) && b.destroyOnRelease
	b.destroyOnRelease = false

	b.pixmap.Unref()
	if revived {
		b.pixmap.Unref()
	}
}

// PreClose drops every reference that is waiting on a buffer release.
// It should be called before the screen's pixmaps are freed.
func (s *Screen) PreClose() {
	for _, b := range slices.Clone(s.bufferList) {
		n := b.pending
		if b.destroyOnRelease {
			b.destroyOnRelease = false
			n++
		}
		b.transition(bufferDrain)

		for range n {
			b.pixmap.Unref()
		}
	}
}

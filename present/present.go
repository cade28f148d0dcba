// Package present implements the Present extension's presentation of
// pixmaps to windows for a screen shown through a Wayland compositor.
//
// Each presentation request is a Vblank. When its target frame
// arrives, the pixmap is either flipped, becoming the window's pixmap
// without being copied, or copied into the window. The compositor has
// no frame counter, so one is emulated for every window by counting
// frame callbacks.
package present

import (
	"fmt"
	"image"

	"deedles.dev/xwl/dix"
	"deedles.dev/xwl/internal/xlog"
	"deedles.dev/xwl/region"
	"golang.org/x/exp/slices"
)

// Host provides access to the compositor's frame and buffer release
// events. It is implemented by *xwl.Screen.
type Host interface {
	// VisibleParent returns the window whose surface shows w, or nil.
	VisibleParent(w *dix.Window) *dix.Window

	AddFrameTask(w *dix.Window, f dix.FrameTaskFunc, arg any) bool
	AddBufferReleaseTask(w *dix.Window, f dix.BufferTaskFunc, arg any) bool
}

type CompleteKind int

const (
	KindPixmap CompleteKind = iota
	KindNotifyMSC
)

type CompleteMode int

const (
	ModeCopy CompleteMode = iota
	ModeFlip
	ModeSkip
)

func (m CompleteMode) String() string {
	switch m {
	case ModeCopy:
		return "copy"
	case ModeFlip:
		return "flip"
	case ModeSkip:
		return "skip"
	}
	return fmt.Sprintf("CompleteMode(%d)", int(m))
}

// Vblank is a request to present a pixmap to a window at a given
// frame.
type Vblank struct {
	Window *dix.Window

	// Pixmap is the content to present. If it is nil, the request
	// only waits for TargetMSC.
	Pixmap *dix.Pixmap

	Serial      uint32
	TargetMSC   uint64
	Kind        CompleteKind
	FlipAllowed bool

	// Update limits the presented area, in the coordinates of Pixmap.
	// Nil means all of it.
	Update *region.Region

	// Valid is the area of Pixmap with defined content. Nil means all
	// of it.
	Valid *region.Region

	XOff, YOff int

	// WaitFence, if not nil, is waited on before the request is
	// acted upon.
	WaitFence Fence

	// IdleFence, if not nil, is triggered with Idle.
	IdleFence Fence

	// Complete is called when the request has been presented.
	Complete func(v *Vblank, mode CompleteMode, ust, msc uint64)

	// Idle is called when Pixmap may be reused by the client.
	Idle func(v *Vblank)

	// pending counts the frame and buffer release tasks that still
	// hold v as their argument.
	pending  int
	executed bool
	toFree   bool
	freed    bool
}

type windowPriv struct {
	msc           uint64
	lastMSCUpdate uint32
	mscCounterOn  bool

	// pixmapIsFlip is set while the window's pixmap came from a flip
	// instead of being its own.
	pixmapIsFlip bool

	vblanks []*Vblank
}

// currentMSC returns the frame counter as of an event at time. If the
// counter hasn't been updated since then, the frame is assumed to
// have just advanced.
func (priv *windowPriv) currentMSC(time uint32) uint64 {
	if priv.lastMSCUpdate >= time {
		return priv.msc
	}
	return priv.msc + 1
}

// Presenter executes presentation requests. All of its methods must
// be called on the goroutine that delivers the host's events.
type Presenter struct {
	host    Host
	screen  *dix.Screen
	windows map[*dix.Window]*windowPriv
}

func New(host Host, screen *dix.Screen) *Presenter {
	return &Presenter{
		host:    host,
		screen:  screen,
		windows: make(map[*dix.Window]*windowPriv),
	}
}

func (p *Presenter) priv(w *dix.Window) *windowPriv {
	priv := p.windows[w]
	if priv == nil {
		priv = new(windowPriv)
		p.windows[w] = priv
	}
	return priv
}

// MSC returns the emulated frame counter of w.
func (p *Presenter) MSC(w *dix.Window) uint64 {
	if priv := p.windows[w]; priv != nil {
		return priv.msc
	}
	return 0
}

func (p *Presenter) addFrameTask(w *dix.Window, f dix.FrameTaskFunc, arg any) bool {
	vw := p.host.VisibleParent(w)
	if vw == nil {
		return false
	}
	return p.host.AddFrameTask(vw, f, arg)
}

// Execute starts processing v. The presenter holds a reference to
// v.Pixmap until v is finished. A request that was canceled before it
// was executed is ignored.
func (p *Presenter) Execute(v *Vblank) {
	if v.executed || v.toFree {
		return
	}
	v.executed = true

	if v.Pixmap != nil {
		v.Pixmap.Ref()
	}
	priv := p.priv(v.Window)
	priv.vblanks = append(priv.vblanks, v)

	if !p.initForWindow(v.Window) {
		// The window isn't on screen yet and might never be, so don't
		// wait for it.
		v.FlipAllowed = false
		v.TargetMSC = 0
	}

	if (v.WaitFence != nil) && !v.WaitFence.Triggered() {
		v.pending = 1
		v.WaitFence.OnTrigger(func() { p.handlePresent(0, 0, v) })
		return
	}

	p.handlePresent(0, 0, v)
}

// Cancel abandons v. No further notifications are delivered for it,
// though it is not freed until the compositor events it is waiting on
// have arrived.
func (p *Presenter) Cancel(v *Vblank) {
	if v.freed || v.toFree {
		return
	}

	v.toFree = true
	if !v.executed {
		v.freed = true
	}

	// An executed request is freed by whatever is still processing
	// it: the path that is running now if nothing is pending, or the
	// last pending event otherwise.
}

// CancelWindow cancels every unfinished request for w.
func (p *Presenter) CancelWindow(w *dix.Window) {
	priv := p.windows[w]
	if priv == nil {
		return
	}
	for _, v := range slices.Clone(priv.vblanks) {
		p.Cancel(v)
	}
}

func (p *Presenter) handlePresent(flags dix.TaskFlags, time uint32, arg any) {
	v := arg.(*Vblank)
	v.pending = 0

	if v.toFree {
		p.free(v)
		return
	}
	if flags != 0 {
		p.free(v)
		return
	}

	msc := p.priv(v.Window).currentMSC(time)

	if v.Pixmap == nil {
		if (v.TargetMSC >= msc+1) && p.addFrameTask(v.Window, p.handlePresent, v) {
			v.pending = 1
			return
		}

		mode := ModeCopy
		if v.Kind == KindPixmap {
			mode = ModeSkip
		}
		p.notify(v, mode, msc)
		p.free(v)
		return
	}

	if v.FlipAllowed && (v.TargetMSC <= msc+1) && p.canFlip(v) {
		p.flip(v, msc)
		return
	}

	if (v.TargetMSC > msc) && p.addFrameTask(v.Window, p.handlePresent, v) {
		v.pending = 1
		return
	}

	p.copy(v, msc)
}

func (p *Presenter) copy(v *Vblank, msc uint64) {
	xlog.Logger().Debug("present copy", "window", v.Window.ID(), "pixmap", v.Pixmap.ID(), "msc", msc)

	p.unflip(v.Window)
	dix.CopyToWindow(v.Window, v.Pixmap, v.Update, v.XOff, v.YOff)
	p.idle(v)
	p.notify(v, ModeCopy, msc)
	p.free(v)
}

func (p *Presenter) handlePresented(flags dix.TaskFlags, time uint32, arg any) {
	v := arg.(*Vblank)
	if (flags == 0) && !v.toFree {
		p.notify(v, ModeFlip, p.priv(v.Window).currentMSC(time))
	}

	v.pending--
	p.release(v)
}

func (p *Presenter) handleBufferRelease(flags dix.TaskFlags, arg any) {
	v := arg.(*Vblank)
	if (flags == 0) && !v.toFree {
		p.idle(v)
	}

	v.pending--
	p.release(v)
}

// release frees v if nothing is waiting on it anymore.
func (p *Presenter) release(v *Vblank) {
	if v.pending == 0 {
		p.free(v)
	}
}

func (p *Presenter) free(v *Vblank) {
	if v.freed {
		panic(fmt.Errorf("vblank %v freed twice", v.Serial))
	}
	v.freed = true

	if v.Pixmap != nil {
		v.Pixmap.Unref()
	}
	if priv := p.windows[v.Window]; priv != nil {
		priv.vblanks = slices.DeleteFunc(priv.vblanks, func(o *Vblank) bool { return o == v })
	}
}

// notify reports v's completion unless v has been canceled.
func (p *Presenter) notify(v *Vblank, mode CompleteMode, msc uint64) {
	if v.toFree {
		return
	}
	if v.Complete != nil {
		v.Complete(v, mode, dix.Now(), msc)
	}
}

func (p *Presenter) idle(v *Vblank) {
	if v.toFree {
		return
	}
	if v.Idle != nil {
		v.Idle(v)
	}
	if v.IdleFence != nil {
		v.IdleFence.Trigger()
	}
}

func windowSize(w *dix.Window) region.Region {
	return region.Rect(image.Rect(0, 0, w.Width(), w.Height()))
}

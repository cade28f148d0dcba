package present

import (
	"deedles.dev/xwl/dix"
	"deedles.dev/xwl/internal/xlog"
)

// canFlip reports whether v.Pixmap can replace the pixmap of the
// window's surface without changing what is shown outside of the
// window.
func (p *Presenter) canFlip(v *Vblank) bool {
	w := v.Window
	vw := p.host.VisibleParent(w)
	if vw == nil {
		return false
	}

	wp := w.Pixmap()
	switch {
	case wp != vw.Pixmap():
		return false
	case wp == v.Pixmap:
		return false
	case !w.Clip().Equal(vw.BorderClip()):
		return false
	case (v.Valid != nil) && !v.Valid.Equal(windowSize(w)):
		return false
	case (v.XOff != 0) || (v.YOff != 0):
		return false
	case (w.Width() != v.Pixmap.Width()) || (w.Height() != v.Pixmap.Height()):
		return false
	}
	return true
}

func (p *Presenter) flip(v *Vblank, msc uint64) {
	xlog.Logger().Debug("present flip", "window", v.Window.ID(), "pixmap", v.Pixmap.ID(), "msc", msc)

	vw := p.host.VisibleParent(v.Window)
	p.priv(vw).pixmapIsFlip = true
	flipWindow(vw, v.Pixmap)

	damage := v.Window.Clip()
	if v.Update != nil {
		damage = v.Update.Translate(v.Window.Bounds().Min).Intersect(damage)
	}
	v.Window.Damage(damage)

	if p.addFrameTask(vw, p.handlePresented, v) {
		v.pending++
	} else {
		p.notify(v, ModeFlip, msc)
	}
	if p.host.AddBufferReleaseTask(vw, p.handleBufferRelease, v) {
		v.pending++
	} else {
		p.idle(v)
	}

	if v.pending == 0 {
		p.free(v)
	}
}

// flipWindow makes pixmap the pixmap of w and of the windows that
// share w's current one.
func flipWindow(w *dix.Window, pixmap *dix.Pixmap) {
	old := w.Pixmap()
	pixmap.Ref()
	dix.SetTreePixmap(w, pixmap)
	old.Unref()
}

// unflip gives the surface showing w a private copy of its pixmap if
// that pixmap came from a flip, so that w can be drawn into without
// writing to a pixmap the client still owns.
func (p *Presenter) unflip(w *dix.Window) {
	vw := p.host.VisibleParent(w)
	if vw == nil {
		return
	}

	visible := vw.Pixmap()
	if visible != w.Pixmap() {
		return
	}

	priv := p.windows[vw]
	if (priv == nil) || !priv.pixmapIsFlip {
		return
	}

	pixmap, err := p.screen.CreatePixmap(visible.Width(), visible.Height(), visible.Depth())
	if err != nil {
		xlog.Logger().Warn("failed to allocate pixmap for unflip", "window", vw.ID(), "err", err)
		return
	}
	dix.CopyPixmap(pixmap, visible)
	flipWindow(vw, pixmap)
	pixmap.Unref()

	priv.pixmapIsFlip = false
}

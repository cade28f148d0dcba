package dix

import (
	"fmt"
	"image"

	"deedles.dev/xwl/region"
	"golang.org/x/exp/slices"
	"golang.org/x/image/draw"
)

// Redirect is the composite redirection mode of a window.
type Redirect int

const (
	RedirectNone Redirect = iota
	RedirectAutomatic
	RedirectManual
)

// Window is a node in a screen's window tree. Coordinates returned by
// its methods are screen coordinates unless documented otherwise.
type Window struct {
	id       uint32
	screen   *Screen
	parent   *Window
	children []*Window // bottom to top
	rect     image.Rectangle
	border   int
	depth    int
	redirect Redirect
	pixmap   *Pixmap
	mapped   bool
	realized bool
}

func (w *Window) ID() uint32 {
	return w.id
}

func (w *Window) Screen() *Screen {
	return w.screen
}

func (w *Window) Parent() *Window {
	return w.parent
}

func (w *Window) Children() []*Window {
	return slices.Clone(w.children)
}

func (w *Window) Depth() int {
	return w.depth
}

func (w *Window) Redirect() Redirect {
	return w.redirect
}

// Bounds returns the area inside of w's border.
func (w *Window) Bounds() image.Rectangle {
	return w.rect
}

func (w *Window) BorderBounds() image.Rectangle {
	return w.rect.Inset(-w.border)
}

func (w *Window) Width() int {
	return w.rect.Dx()
}

func (w *Window) Height() int {
	return w.rect.Dy()
}

func (w *Window) Mapped() bool {
	return w.mapped
}

// Realized reports whether w and all of its ancestors are mapped.
func (w *Window) Realized() bool {
	return w.realized
}

// Pixmap returns the pixmap that w draws into, which is inherited from
// the parent unless w has its own.
func (w *Window) Pixmap() *Pixmap {
	for cur := w; cur != nil; cur = cur.parent {
		if cur.pixmap != nil {
			return cur.pixmap
		}
	}
	return nil
}

// SetPixmap sets the pixmap that w draws into. It does not change any
// reference counts.
func (w *Window) SetPixmap(p *Pixmap) {
	w.screen.hooks.SetWindowPixmap(w, p)
	w.pixmap = p
}

// SetTreePixmap points w and every descendant that shares w's pixmap
// at p instead.
func SetTreePixmap(w *Window, p *Pixmap) {
	old := w.Pixmap()
	var walk func(*Window)
	walk = func(cur *Window) {
		if cur.pixmap == old {
			cur.SetPixmap(p)
		}
		for _, c := range cur.children {
			walk(c)
		}
	}

	w.SetPixmap(p)
	for _, c := range w.children {
		walk(c)
	}
}

// pixmapOwner returns the window whose pixmap w draws into.
func (w *Window) pixmapOwner() *Window {
	cur := w
	for (cur.pixmap == nil) && (cur.parent != nil) {
		cur = cur.parent
	}
	return cur
}

// PixmapOrigin returns the position on the screen of the origin of
// w's pixmap.
func (w *Window) PixmapOrigin() image.Point {
	return w.pixmapOwner().BorderBounds().Min
}

// BorderClip returns the visible part of w including its border and
// children.
func (w *Window) BorderClip() region.Region {
	if !w.realized {
		return region.Region{}
	}

	clip := region.Rect(w.BorderBounds())
	for cur := w; (cur.parent != nil) && (cur.redirect == RedirectNone); cur = cur.parent {
		clip = clip.IntersectRect(cur.parent.rect)

		i := slices.Index(cur.parent.children, cur)
		for _, sib := range cur.parent.children[i+1:] {
			if sib.mapped {
				clip = clip.Subtract(region.Rect(sib.BorderBounds()))
			}
		}
	}
	return clip
}

// Clip returns the visible part of w's interior, excluding its mapped
// children.
func (w *Window) Clip() region.Region {
	clip := w.BorderClip().IntersectRect(w.rect)
	for _, c := range w.children {
		if c.mapped {
			clip = clip.Subtract(region.Rect(c.BorderBounds()))
		}
	}
	return clip
}

// Map marks w as mapped and realizes it and its mapped descendants if
// its parent is realized.
func (w *Window) Map() {
	if w.mapped {
		return
	}
	w.mapped = true
	if (w.parent == nil) || w.parent.realized {
		w.realizeTree()
	}
}

func (w *Window) realizeTree() {
	w.realized = true
	w.screen.hooks.RealizeWindow(w)
	for _, c := range w.children {
		if c.mapped {
			c.realizeTree()
		}
	}
}

func (w *Window) Unmap() {
	if !w.mapped || (w.parent == nil) {
		return
	}
	if w.realized {
		w.unrealizeTree()
	}
	w.mapped = false
}

func (w *Window) unrealizeTree() {
	w.screen.hooks.UnrealizeWindow(w)
	w.realized = false
	for _, c := range w.children {
		if c.realized {
			c.unrealizeTree()
		}
	}
}

// Damage reports r, in screen coordinates, as changed.
func (w *Window) Damage(r region.Region) {
	if r.Empty() {
		return
	}

	owner := w.pixmapOwner()
	w.screen.hooks.Damage(owner, r.Translate(w.PixmapOrigin().Mul(-1)))
}

func (w *Window) String() string {
	return fmt.Sprintf("window %v %v", w.id, w.rect)
}

// CopyToWindow copies the pixels of src that fall inside of update
// into w. update is in the coordinates of src, and a nil update means
// all of src. The origin of src is placed at (dx, dy) relative to the
// origin of w. Only the visible part of w is written, and it is
// reported as damaged.
func CopyToWindow(w *Window, src *Pixmap, update *region.Region, dx, dy int) {
	at := w.rect.Min.Add(image.Pt(dx, dy))

	area := region.Rect(src.Bounds().Add(at))
	if update != nil {
		area = area.Intersect(update.Translate(at))
	}
	area = area.Intersect(w.Clip())
	if area.Empty() {
		return
	}

	dst := w.Pixmap()
	origin := w.PixmapOrigin()
	dimg, simg := dst.Image(), src.Image()
	for _, r := range area.Rects() {
		draw.Draw(dimg, r.Sub(origin), simg, r.Min.Sub(at), draw.Src)
	}

	w.Damage(area)
}

package dix

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Pixmap is an off-screen image. Pixmaps are reference counted: the
// creator holds the first reference, and the pixmap's storage is
// released when the last one is dropped.
type Pixmap struct {
	id        uint32
	screen    *Screen
	w, h      int
	depth     int
	storage   Storage
	refs      int
	destroyed bool
}

func (p *Pixmap) ID() uint32 {
	return p.id
}

func (p *Pixmap) Screen() *Screen {
	return p.screen
}

func (p *Pixmap) Width() int {
	return p.w
}

func (p *Pixmap) Height() int {
	return p.h
}

func (p *Pixmap) Depth() int {
	return p.depth
}

func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.w, p.h)
}

func (p *Pixmap) Storage() Storage {
	return p.storage
}

func (p *Pixmap) Image() draw.Image {
	return p.storage.Image()
}

// Refs returns the current number of references to p.
func (p *Pixmap) Refs() int {
	return p.refs
}

// Destroyed reports whether p's storage has been released.
func (p *Pixmap) Destroyed() bool {
	return p.destroyed
}

func (p *Pixmap) Ref() {
	if p.destroyed {
		panic(fmt.Errorf("reference to destroyed pixmap %v", p.id))
	}
	p.refs++
}

// Unref drops a reference to p. Dropping the last one calls the
// screen's DestroyPixmap hook and then frees the storage unless the
// hook revived p.
func (p *Pixmap) Unref() {
	if p.refs <= 0 {
		panic(fmt.Errorf("unbalanced unref of pixmap %v", p.id))
	}

	p.refs--
	if p.refs > 0 {
		return
	}

	p.screen.hooks.DestroyPixmap(p)
	if p.refs > 0 {
		return
	}

	p.destroyed = true
	if err := p.storage.Destroy(); err != nil {
		p.screen.log().Warn("destroy pixmap storage", "pixmap", p.id, "err", err)
	}
}

func (p *Pixmap) String() string {
	return fmt.Sprintf("pixmap %v (%vx%v)", p.id, p.w, p.h)
}

// CopyPixmap copies the overlapping area of src into dst.
func CopyPixmap(dst, src *Pixmap) {
	r := dst.Bounds().Intersect(src.Bounds())
	draw.Draw(dst.Image(), r, src.Image(), r.Min, draw.Src)
}

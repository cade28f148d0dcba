package dix

import (
	"fmt"
	"image"
	"log/slog"

	"deedles.dev/xwl/internal/xlog"
)

type Screen struct {
	w, h   int
	depth  int
	alloc  Allocator
	hooks  Hooks
	root   *Window
	nextID uint32
}

// NewScreen creates a screen along with its root window, which is
// mapped and backed by a pixmap the size of the screen.
func NewScreen(w, h, depth int, alloc Allocator) (*Screen, error) {
	s := Screen{
		w:      w,
		h:      h,
		depth:  depth,
		alloc:  alloc,
		hooks:  nopHooks{},
		nextID: 1,
	}

	pixmap, err := s.CreatePixmap(w, h, depth)
	if err != nil {
		return nil, fmt.Errorf("create screen pixmap: %w", err)
	}

	s.root = &Window{
		id:       s.allocID(),
		screen:   &s,
		rect:     image.Rect(0, 0, w, h),
		depth:    depth,
		pixmap:   pixmap,
		mapped:   true,
		realized: true,
	}

	return &s, nil
}

// SetHooks installs h, replacing any previously installed hooks. A
// nil h removes them.
func (s *Screen) SetHooks(h Hooks) {
	if h == nil {
		h = nopHooks{}
	}
	s.hooks = h
}

func (s *Screen) Root() *Window {
	return s.root
}

func (s *Screen) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.w, s.h)
}

func (s *Screen) Depth() int {
	return s.depth
}

func (s *Screen) allocID() uint32 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Screen) log() *slog.Logger {
	return xlog.Logger()
}

// CreatePixmap allocates a new pixmap. The caller holds its only
// reference.
func (s *Screen) CreatePixmap(w, h, depth int) (*Pixmap, error) {
	storage, err := s.alloc.Allocate(w, h, depth)
	if err != nil {
		return nil, fmt.Errorf("allocate %vx%v pixmap: %w", w, h, err)
	}

	return &Pixmap{
		id:      s.allocID(),
		screen:  s,
		w:       w,
		h:       h,
		depth:   depth,
		storage: storage,
		refs:    1,
	}, nil
}

// CreateWindow creates an unmapped window as the top-most child of
// parent. r is relative to the origin of parent.
func (s *Screen) CreateWindow(parent *Window, r image.Rectangle, border int) *Window {
	w := Window{
		id:     s.allocID(),
		screen: s,
		parent: parent,
		rect:   r.Canon().Add(parent.rect.Min),
		border: border,
		depth:  parent.depth,
	}
	parent.children = append(parent.children, &w)
	return &w
}

// RedirectWindow changes how w is rendered. Redirecting a window gives
// it its own pixmap the size of its border; removing the redirection
// makes it draw into its parent's pixmap again.
func (s *Screen) RedirectWindow(w *Window, mode Redirect) error {
	if w == s.root {
		return fmt.Errorf("cannot redirect the root window")
	}

	w.redirect = mode
	switch mode {
	case RedirectNone:
		old := w.pixmap
		if old == nil {
			return nil
		}
		w.SetPixmap(nil)
		old.Unref()
		return nil

	default:
		if w.pixmap != nil {
			return nil
		}

		b := w.BorderBounds()
		pixmap, err := s.CreatePixmap(b.Dx(), b.Dy(), w.depth)
		if err != nil {
			return err
		}
		w.SetPixmap(pixmap)
		return nil
	}
}

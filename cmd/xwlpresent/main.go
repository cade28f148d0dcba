// Command xwlpresent presents a new pixmap to a window every frame,
// driving commits and the frame and release events that follow through
// the Wayland compositor that it is running under.
//
// The window's surface is never given a shell role, so compositors do
// not display it. Roles are outside the scope of this module.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	wl "deedles.dev/xwl/client"
	"deedles.dev/xwl/dix"
	"deedles.dev/xwl/present"
	"deedles.dev/xwl/shm"
	"deedles.dev/xwl/xwl"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/colornames"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type state struct {
	conf config

	display   *wl.Display
	dix       *dix.Screen
	screen    *xwl.Screen
	presenter *present.Presenter
	window    *dix.Window

	pixmaps [2]*dix.Pixmap
	busy    [2]bool
	next    int
	serial  uint32
	waiting bool
}

func (s *state) init() error {
	display, err := wl.DialDisplay()
	if err != nil {
		return fmt.Errorf("dial display: %w", err)
	}
	display.Error = func(id, code uint32, msg string) {
		log.Fatalf("display error: id: %v, code: %v, msg: %q", id, code, msg)
	}
	s.display = display

	wayland, err := xwl.NewWayland(display)
	if err != nil {
		return fmt.Errorf("init compositor: %w", err)
	}

	s.dix, err = dix.NewScreen(s.conf.Width, s.conf.Height, 24, shm.Allocator{})
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	s.screen = xwl.NewScreen(s.dix, wayland, wayland, wayland, xwl.Options{Rootless: true})
	s.presenter = present.New(s.screen, s.dix)

	s.window = s.dix.CreateWindow(s.dix.Root(), s.dix.Bounds(), 0)
	err = s.dix.RedirectWindow(s.window, dix.RedirectManual)
	if err != nil {
		return fmt.Errorf("redirect window: %w", err)
	}
	s.window.Map()

	return s.initPixmaps()
}

func (s *state) initPixmaps() error {
	bg, ok := colornames.Map[s.conf.Color]
	if !ok {
		return fmt.Errorf("unknown color %q", s.conf.Color)
	}

	var src image.Image
	if s.conf.Image != "" {
		img, err := loadImage(s.conf.Image)
		if err != nil {
			return err
		}
		src = img
	}

	for i := range s.pixmaps {
		p, err := s.dix.CreatePixmap(s.conf.Width, s.conf.Height, 24)
		if err != nil {
			return fmt.Errorf("create pixmap: %w", err)
		}
		s.pixmaps[i] = p

		img := p.Image()
		fillRect(img, p.Bounds(), bg)
		if src != nil {
			draw.ApproxBiLinear.Scale(img, p.Bounds(), src, src.Bounds(), draw.Over, nil)
		}
	}

	return nil
}

// drawMarker moves a square across p so that each presentation can be
// told apart from the last.
func (s *state) drawMarker(p *dix.Pixmap) {
	const size = 32

	b := p.Bounds()
	img := p.Image()
	span := max(b.Dx()-size, 1)

	prev := int(s.serial-1) % span
	fillRect(img, image.Rect(prev, 0, prev+size, size), colornames.Map[s.conf.Color])

	x := int(s.serial) % span
	fillRect(img, image.Rect(x, 0, x+size, size), colornames.White)
}

func (s *state) present() {
	if s.waiting || s.busy[s.next] {
		return
	}

	i := s.next
	p := s.pixmaps[i]
	s.serial++
	s.drawMarker(p)

	s.waiting = true
	s.busy[i] = true
	s.next = (s.next + 1) % len(s.pixmaps)

	s.presenter.Execute(&present.Vblank{
		Window:      s.window,
		Pixmap:      p,
		Serial:      s.serial,
		TargetMSC:   s.presenter.MSC(s.window) + 1,
		Kind:        present.KindPixmap,
		FlipAllowed: s.conf.Flip,
		Complete: func(v *present.Vblank, mode present.CompleteMode, ust, msc uint64) {
			slog.Debug("presented", "serial", v.Serial, "mode", mode, "msc", msc, "ust", ust)
			s.waiting = false
		},
		Idle: func(*present.Vblank) {
			s.busy[i] = false
		},
	})
}

func (s *state) run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(s.conf.Rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		s.present()

		err := s.screen.BlockHandler()
		if err != nil {
			return err
		}
	}
}

func (s *state) close() error {
	s.presenter.CancelWindow(s.window)
	s.window.Unmap()
	s.screen.PreClose()
	err := s.screen.Close()

	for _, p := range s.pixmaps {
		if p != nil {
			p.Unref()
		}
	}
	return errors.Join(err, s.display.Close())
}

func fillRect(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func main() {
	conf, err := parseOptions()
	if err != nil {
		log.Fatalf("options: %v", err)
	}
	level, err := conf.level()
	if err != nil {
		log.Fatalf("options: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	xwl.SetLogger(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	s := state{conf: conf}
	err = s.init()
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	err = s.run(ctx)
	if errors.Is(err, xwl.ErrTransport) {
		log.Fatalf("lost connection to compositor: %v", err)
	}

	err = s.close()
	if err != nil {
		log.Fatalf("close: %v", err)
	}
}

package present_test

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"deedles.dev/xwl/dix"
	"deedles.dev/xwl/present"
	"deedles.dev/xwl/region"
	"deedles.dev/xwl/xwl"
	"deedles.dev/xwl/xwl/xwltest"
)

type testEnv struct {
	dix       *dix.Screen
	screen    *xwl.Screen
	comp      *xwltest.Compositor
	presenter *present.Presenter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ds, err := dix.NewScreen(64, 64, 24, dix.HeapAllocator{})
	if err != nil {
		t.Fatalf("NewScreen() error = %v", err)
	}
	comp := new(xwltest.Compositor)
	s := xwl.NewScreen(ds, comp, comp, comp, xwl.Options{Rootless: true})
	return &testEnv{
		dix:       ds,
		screen:    s,
		comp:      comp,
		presenter: present.New(s, ds),
	}
}

// window creates a mapped top-level window with its own surface and
// commits its initial content.
func (env *testEnv) window(t *testing.T, r image.Rectangle) (*dix.Window, *xwltest.Surface) {
	t.Helper()

	w := env.dix.CreateWindow(env.dix.Root(), r, 0)
	if err := env.dix.RedirectWindow(w, dix.RedirectManual); err != nil {
		t.Fatalf("RedirectWindow() error = %v", err)
	}
	w.Map()
	surface := env.comp.Surfaces[len(env.comp.Surfaces)-1]
	env.blockHandler(t)
	return w, surface
}

func (env *testEnv) pixmap(t *testing.T, w, h int, c color.Color) *dix.Pixmap {
	t.Helper()

	p, err := env.dix.CreatePixmap(w, h, 24)
	if err != nil {
		t.Fatalf("CreatePixmap() error = %v", err)
	}
	draw.Draw(p.Image(), p.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return p
}

func (env *testEnv) blockHandler(t *testing.T) {
	t.Helper()
	if err := env.screen.BlockHandler(); err != nil {
		t.Fatalf("BlockHandler() error = %v", err)
	}
}

type completion struct {
	mode present.CompleteMode
	msc  uint64
}

type recorder struct {
	completions []completion
	idles       int
}

func (r *recorder) watch(v *present.Vblank) *present.Vblank {
	v.Complete = func(v *present.Vblank, mode present.CompleteMode, ust, msc uint64) {
		r.completions = append(r.completions, completion{mode: mode, msc: msc})
	}
	v.Idle = func(*present.Vblank) { r.idles++ }
	return v
}

func (r *recorder) expect(t *testing.T, want ...completion) {
	t.Helper()

	if len(r.completions) != len(want) {
		t.Fatalf("completions = %v, want %v", r.completions, want)
	}
	for i := range want {
		if r.completions[i] != want[i] {
			t.Errorf("completion %v = %v, want %v", i, r.completions[i], want[i])
		}
	}
}

func sameColor(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return (ar == br) && (ag == bg) && (ab == bb) && (aa == ba)
}

var (
	red  = color.RGBA{R: 0xFF, A: 0xFF}
	blue = color.RGBA{B: 0xFF, A: 0xFF}
)

func TestFlip(t *testing.T) {
	env := newTestEnv(t)
	w, surface := env.window(t, image.Rect(0, 0, 16, 16))

	old := w.Pixmap()
	oldBuf := env.comp.BufferFor(old)
	pixmap := env.pixmap(t, 16, 16, red)

	var rec recorder
	env.presenter.Execute(rec.watch(&present.Vblank{
		Window:      w,
		Pixmap:      pixmap,
		Serial:      1,
		TargetMSC:   1,
		FlipAllowed: true,
	}))
	if w.Pixmap() != pixmap {
		t.Fatal("window pixmap was not replaced")
	}
	env.blockHandler(t)

	buf := env.comp.BufferFor(pixmap)
	if surface.Current != buf {
		t.Fatal("flipped pixmap was not committed")
	}
	rec.expect(t)

	surface.PresentFrame(16)
	rec.expect(t, completion{present.ModeFlip, 1})
	if rec.idles != 0 {
		t.Fatal("idle before the buffer was released")
	}

	buf.Release()
	if rec.idles != 1 {
		t.Errorf("idle called %v times, want 1", rec.idles)
	}
	if refs := pixmap.Refs(); refs != 2 {
		t.Errorf("presented pixmap refs = %v, want 2", refs)
	}

	if old.Destroyed() {
		t.Fatal("old window pixmap destroyed before the compositor released it")
	}
	oldBuf.Release()
	if !old.Destroyed() || (oldBuf.Destroys != 1) {
		t.Errorf("old pixmap destroyed = %v, buffer destroys = %v", old.Destroyed(), oldBuf.Destroys)
	}
}

func TestCopy(t *testing.T) {
	env := newTestEnv(t)
	w, surface := env.window(t, image.Rect(0, 0, 16, 16))
	pixmap := env.pixmap(t, 8, 8, red)

	var rec recorder
	fence := new(present.SimpleFence)
	v := rec.watch(&present.Vblank{
		Window:      w,
		Pixmap:      pixmap,
		FlipAllowed: true,
		XOff:        4,
		YOff:        4,
		IdleFence:   fence,
	})
	env.presenter.Execute(v)

	rec.expect(t, completion{present.ModeCopy, 0})
	if rec.idles != 1 || !fence.Triggered() {
		t.Errorf("idles = %v, fence triggered = %v", rec.idles, fence.Triggered())
	}
	if refs := pixmap.Refs(); refs != 1 {
		t.Errorf("presented pixmap refs = %v, want 1", refs)
	}

	img := w.Pixmap().Image()
	if !sameColor(img.At(4, 4), red) || !sameColor(img.At(11, 11), red) {
		t.Error("pixmap content not copied into window")
	}
	if sameColor(img.At(3, 3), red) || sameColor(img.At(12, 12), red) {
		t.Error("copy wrote outside of the presented area")
	}

	env.blockHandler(t)
	want := image.Rect(4, 4, 12, 12)
	if (len(surface.Damaged) != 1) || (surface.Damaged[0] != want) {
		t.Errorf("damage = %v, want [%v]", surface.Damaged, want)
	}
}

func TestCopyUpdateRegion(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.window(t, image.Rect(0, 0, 16, 16))
	pixmap := env.pixmap(t, 16, 16, blue)

	update := region.Rect(image.Rect(0, 0, 2, 2))
	var rec recorder
	env.presenter.Execute(rec.watch(&present.Vblank{
		Window: w,
		Pixmap: pixmap,
		Update: &update,
	}))

	rec.expect(t, completion{present.ModeCopy, 0})
	img := w.Pixmap().Image()
	if !sameColor(img.At(1, 1), blue) {
		t.Error("update region not copied")
	}
	if sameColor(img.At(2, 2), blue) {
		t.Error("pixels outside of the update region were copied")
	}
}

func TestOccludedWindowCopies(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.window(t, image.Rect(0, 0, 16, 16))
	child := env.dix.CreateWindow(w, image.Rect(0, 0, 4, 4), 0)
	child.Map()

	old := w.Pixmap()
	pixmap := env.pixmap(t, 16, 16, red)

	var rec recorder
	env.presenter.Execute(rec.watch(&present.Vblank{
		Window:      w,
		Pixmap:      pixmap,
		FlipAllowed: true,
	}))

	rec.expect(t, completion{present.ModeCopy, 0})
	if w.Pixmap() != old {
		t.Error("occluded window was flipped")
	}
	img := old.Image()
	if sameColor(img.At(1, 1), red) {
		t.Error("copy wrote into the child window")
	}
	if !sameColor(img.At(8, 8), red) {
		t.Error("visible area not copied")
	}
}

func TestFutureTarget(t *testing.T) {
	env := newTestEnv(t)
	w, surface := env.window(t, image.Rect(0, 0, 16, 16))
	pixmap := env.pixmap(t, 8, 8, red)

	var rec recorder
	env.presenter.Execute(rec.watch(&present.Vblank{
		Window:    w,
		Pixmap:    pixmap,
		TargetMSC: 3,
	}))

	for i := range 2 {
		surface.PresentFrame(uint32(16 * (i + 1)))
		rec.expect(t)
		if refs := pixmap.Refs(); refs != 2 {
			t.Fatalf("pending pixmap refs = %v, want 2", refs)
		}
	}

	surface.PresentFrame(48)
	rec.expect(t, completion{present.ModeCopy, 3})
	if msc := env.presenter.MSC(w); msc != 3 {
		t.Errorf("MSC() = %v, want 3", msc)
	}
	if refs := pixmap.Refs(); refs != 1 {
		t.Errorf("pixmap refs = %v, want 1", refs)
	}
}

func TestMSCIsMonotonic(t *testing.T) {
	env := newTestEnv(t)
	w, surface := env.window(t, image.Rect(0, 0, 16, 16))

	var rec recorder
	env.presenter.Execute(rec.watch(&present.Vblank{
		Window:    w,
		Kind:      present.KindNotifyMSC,
		TargetMSC: 2,
	}))

	var last uint64
	for i := range 5 {
		surface.PresentFrame(uint32(16 * (i + 1)))
		msc := env.presenter.MSC(w)
		if msc != last+1 {
			t.Fatalf("frame %v: MSC() = %v, want %v", i, msc, last+1)
		}
		last = msc
	}
	rec.expect(t, completion{present.ModeCopy, 2})
}

func TestNoPixmap(t *testing.T) {
	tests := []struct {
		name string
		kind present.CompleteKind
		want present.CompleteMode
	}{
		{"Pixmap", present.KindPixmap, present.ModeSkip},
		{"NotifyMSC", present.KindNotifyMSC, present.ModeCopy},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnv(t)
			w, _ := env.window(t, image.Rect(0, 0, 16, 16))

			var rec recorder
			env.presenter.Execute(rec.watch(&present.Vblank{
				Window: w,
				Kind:   test.kind,
			}))
			rec.expect(t, completion{test.want, 0})
		})
	}
}

func TestWindowWithoutSurface(t *testing.T) {
	env := newTestEnv(t)
	w := env.dix.CreateWindow(env.dix.Root(), image.Rect(0, 0, 16, 16), 0)
	w.Map()
	pixmap := env.pixmap(t, 16, 16, red)

	var rec recorder
	v := rec.watch(&present.Vblank{
		Window:      w,
		Pixmap:      pixmap,
		TargetMSC:   10,
		FlipAllowed: true,
	})
	env.presenter.Execute(v)

	rec.expect(t, completion{present.ModeCopy, 0})
	if v.FlipAllowed || (v.TargetMSC != 0) {
		t.Errorf("FlipAllowed = %v, TargetMSC = %v", v.FlipAllowed, v.TargetMSC)
	}
	if !sameColor(env.dix.Root().Pixmap().Image().At(8, 8), red) {
		t.Error("pixmap not copied into the root pixmap")
	}
}

func TestCancelDuringFlip(t *testing.T) {
	env := newTestEnv(t)
	w, surface := env.window(t, image.Rect(0, 0, 16, 16))
	pixmap := env.pixmap(t, 16, 16, red)

	var rec recorder
	v := rec.watch(&present.Vblank{
		Window:      w,
		Pixmap:      pixmap,
		TargetMSC:   1,
		FlipAllowed: true,
	})
	env.presenter.Execute(v)
	env.blockHandler(t)

	surface.PresentFrame(16)
	rec.expect(t, completion{present.ModeFlip, 1})

	env.presenter.Cancel(v)
	env.presenter.Cancel(v)
	if refs := pixmap.Refs(); refs != 3 {
		t.Fatalf("pixmap refs after cancel = %v, want 3", refs)
	}

	env.comp.BufferFor(pixmap).Release()
	if rec.idles != 0 {
		t.Error("idle delivered after cancel")
	}
	if refs := pixmap.Refs(); refs != 2 {
		t.Errorf("pixmap refs = %v, want 2", refs)
	}
}

func TestCancelBeforeExecute(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.window(t, image.Rect(0, 0, 16, 16))
	pixmap := env.pixmap(t, 16, 16, red)

	var rec recorder
	v := rec.watch(&present.Vblank{Window: w, Pixmap: pixmap})
	env.presenter.Cancel(v)
	env.presenter.Execute(v)

	rec.expect(t)
	if refs := pixmap.Refs(); refs != 1 {
		t.Errorf("pixmap refs = %v, want 1", refs)
	}
}

func TestCancelWindow(t *testing.T) {
	env := newTestEnv(t)
	w, surface := env.window(t, image.Rect(0, 0, 16, 16))

	var rec recorder
	for i := range 3 {
		env.presenter.Execute(rec.watch(&present.Vblank{
			Window:    w,
			Serial:    uint32(i),
			Kind:      present.KindNotifyMSC,
			TargetMSC: 5,
		}))
	}
	env.presenter.CancelWindow(w)

	for i := range 6 {
		surface.PresentFrame(uint32(16 * (i + 1)))
	}
	rec.expect(t)
}

func TestUnmapDuringFlip(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.window(t, image.Rect(0, 0, 16, 16))
	pixmap := env.pixmap(t, 16, 16, red)

	var rec recorder
	env.presenter.Execute(rec.watch(&present.Vblank{
		Window:      w,
		Pixmap:      pixmap,
		TargetMSC:   1,
		FlipAllowed: true,
	}))
	env.blockHandler(t)

	w.Unmap()
	rec.expect(t)
	if rec.idles != 0 {
		t.Error("idle delivered for an unmapped window")
	}

	// The window and the wait for the compositor's release each keep
	// a reference besides the client's.
	if refs := pixmap.Refs(); refs != 3 {
		t.Errorf("pixmap refs = %v, want 3", refs)
	}
}

func TestCopyAfterFlipUnflips(t *testing.T) {
	env := newTestEnv(t)
	w, surface := env.window(t, image.Rect(0, 0, 16, 16))
	flipped := env.pixmap(t, 16, 16, red)

	var rec recorder
	env.presenter.Execute(rec.watch(&present.Vblank{
		Window:      w,
		Pixmap:      flipped,
		TargetMSC:   1,
		FlipAllowed: true,
	}))
	env.blockHandler(t)
	surface.PresentFrame(16)
	env.comp.BufferFor(flipped).Release()

	small := env.pixmap(t, 4, 4, blue)
	env.presenter.Execute(rec.watch(&present.Vblank{
		Window: w,
		Pixmap: small,
	}))

	if w.Pixmap() == flipped {
		t.Fatal("copy drew into a flipped pixmap")
	}
	if refs := flipped.Refs(); refs != 1 {
		t.Errorf("flipped pixmap refs = %v, want 1", refs)
	}
	if !sameColor(flipped.Image().At(0, 0), red) {
		t.Error("flipped pixmap was modified")
	}

	img := w.Pixmap().Image()
	if !sameColor(img.At(0, 0), blue) || !sameColor(img.At(8, 8), red) {
		t.Error("window pixmap does not hold the flipped content with the copy on top")
	}
}

func TestWaitFence(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.window(t, image.Rect(0, 0, 16, 16))
	pixmap := env.pixmap(t, 8, 8, red)

	fence := new(present.SimpleFence)
	var rec recorder
	env.presenter.Execute(rec.watch(&present.Vblank{
		Window:    w,
		Pixmap:    pixmap,
		WaitFence: fence,
	}))
	rec.expect(t)

	fence.Trigger()
	rec.expect(t, completion{present.ModeCopy, 0})
}

func TestSimpleFence(t *testing.T) {
	var fence present.SimpleFence
	var calls int
	fence.OnTrigger(func() { calls++ })
	if calls != 0 || fence.Triggered() {
		t.Fatal("fence triggered early")
	}

	fence.Trigger()
	fence.Trigger()
	if calls != 1 {
		t.Errorf("callback called %v times, want 1", calls)
	}

	fence.OnTrigger(func() { calls++ })
	if calls != 2 {
		t.Error("callback not called on a triggered fence")
	}

	fence.Reset()
	if fence.Triggered() {
		t.Error("fence still triggered after Reset")
	}
}

func TestIneligibleFlipCopies(t *testing.T) {
	tests := []struct {
		name string

		// setup returns the window to present to and the request.
		setup func(t *testing.T, env *testEnv, top *dix.Window) *present.Vblank
	}{
		{
			name: "PartialValid",
			setup: func(t *testing.T, env *testEnv, top *dix.Window) *present.Vblank {
				valid := region.Rect(image.Rect(0, 0, 8, 8))
				return &present.Vblank{Window: top, Pixmap: env.pixmap(t, 16, 16, red), Valid: &valid}
			},
		},
		{
			name: "Offset",
			setup: func(t *testing.T, env *testEnv, top *dix.Window) *present.Vblank {
				return &present.Vblank{Window: top, Pixmap: env.pixmap(t, 16, 16, red), XOff: 1}
			},
		},
		{
			name: "SizeMismatch",
			setup: func(t *testing.T, env *testEnv, top *dix.Window) *present.Vblank {
				return &present.Vblank{Window: top, Pixmap: env.pixmap(t, 16, 8, red)}
			},
		},
		{
			name: "AlreadyWindowPixmap",
			setup: func(t *testing.T, env *testEnv, top *dix.Window) *present.Vblank {
				return &present.Vblank{Window: top, Pixmap: top.Pixmap()}
			},
		},
		{
			name: "OwnPixmapBelowSurface",
			setup: func(t *testing.T, env *testEnv, top *dix.Window) *present.Vblank {
				child := env.dix.CreateWindow(top, image.Rect(0, 0, 16, 16), 0)
				if err := env.dix.RedirectWindow(child, dix.RedirectAutomatic); err != nil {
					t.Fatalf("RedirectWindow() error = %v", err)
				}
				child.Map()
				return &present.Vblank{Window: child, Pixmap: env.pixmap(t, 16, 16, red)}
			},
		},
		{
			name: "Occluded",
			setup: func(t *testing.T, env *testEnv, top *dix.Window) *present.Vblank {
				env.dix.CreateWindow(top, image.Rect(12, 12, 16, 16), 0).Map()
				return &present.Vblank{Window: top, Pixmap: env.pixmap(t, 16, 16, red)}
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnv(t)
			top, surface := env.window(t, image.Rect(0, 0, 16, 16))

			var rec recorder
			v := rec.watch(test.setup(t, env, top))
			v.FlipAllowed = true

			topPixmap, ownPixmap := top.Pixmap(), v.Window.Pixmap()
			refs := v.Pixmap.Refs()
			env.presenter.Execute(v)

			rec.expect(t, completion{present.ModeCopy, 0})
			if (top.Pixmap() != topPixmap) || (v.Window.Pixmap() != ownPixmap) {
				t.Error("window pixmap was replaced")
			}
			if got := v.Pixmap.Refs(); got != refs {
				t.Errorf("pixmap refs = %v, want %v", got, refs)
			}

			// Nothing is left waiting on the next frame.
			surface.PresentFrame(16)
			rec.expect(t, completion{present.ModeCopy, 0})
		})
	}
}

// damageLog records the damage reported to the hooks it wraps.
type damageLog struct {
	dix.Hooks
	damage []region.Region
}

func (d *damageLog) Damage(w *dix.Window, r region.Region) {
	d.damage = append(d.damage, r)
	d.Hooks.Damage(w, r)
}

func TestFlipDamagesUpdateRegion(t *testing.T) {
	env := newTestEnv(t)
	w, surface := env.window(t, image.Rect(8, 8, 24, 24))
	log := &damageLog{Hooks: env.screen}
	env.dix.SetHooks(log)

	pixmap := env.pixmap(t, 16, 16, red)
	update := region.Rect(image.Rect(2, 2, 6, 6))

	var rec recorder
	env.presenter.Execute(rec.watch(&present.Vblank{
		Window:      w,
		Pixmap:      pixmap,
		TargetMSC:   1,
		FlipAllowed: true,
		Update:      &update,
	}))
	if w.Pixmap() != pixmap {
		t.Fatal("request was not flipped")
	}

	if (len(log.damage) != 1) || !log.damage[0].Equal(update) {
		t.Fatalf("damage = %v, want [%v]", log.damage, update)
	}

	env.blockHandler(t)
	var found bool
	for _, r := range surface.Damaged {
		found = found || (r == image.Rect(2, 2, 6, 6))
	}
	if !found {
		t.Errorf("committed damage %v does not include the update region", surface.Damaged)
	}

	surface.PresentFrame(16)
	rec.expect(t, completion{present.ModeFlip, 1})
}

func TestCancelFromCallback(t *testing.T) {
	tests := []struct {
		name        string
		pixmap      bool
		inIdle      bool
		completions int
		idles       int
	}{
		{name: "CopyIdle", pixmap: true, inIdle: true, completions: 0, idles: 1},
		{name: "CopyComplete", pixmap: true, inIdle: false, completions: 1, idles: 1},
		{name: "NoPixmapComplete", pixmap: false, inIdle: false, completions: 1, idles: 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := newTestEnv(t)
			w, surface := env.window(t, image.Rect(0, 0, 16, 16))

			var pixmap *dix.Pixmap
			if test.pixmap {
				pixmap = env.pixmap(t, 8, 8, red)
			}

			var completions, idles int
			v := &present.Vblank{
				Window: w,
				Pixmap: pixmap,
				Kind:   present.KindNotifyMSC,
				Complete: func(v *present.Vblank, mode present.CompleteMode, ust, msc uint64) {
					completions++
					if !test.inIdle {
						env.presenter.CancelWindow(v.Window)
					}
				},
				Idle: func(v *present.Vblank) {
					idles++
					if test.inIdle {
						env.presenter.Cancel(v)
					}
				},
			}
			env.presenter.Execute(v)

			if (completions != test.completions) || (idles != test.idles) {
				t.Errorf("completions = %v, idles = %v, want %v, %v", completions, idles, test.completions, test.idles)
			}
			if (pixmap != nil) && (pixmap.Refs() != 1) {
				t.Errorf("pixmap refs = %v, want 1", pixmap.Refs())
			}

			env.presenter.Cancel(v)
			surface.PresentFrame(16)
			if completions != test.completions {
				t.Error("notification delivered after cancel")
			}
		})
	}
}

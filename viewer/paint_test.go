package viewer

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/rjkroege/pageview/engine"
	"github.com/rjkroege/pageview/pagetest"
)

func paint(c *Controller) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, testW, testH))
	c.Paint(dst)
	return dst
}

func TestPaintShowsPage(t *testing.T) {
	f := newFixture(t, 3)
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })
	drain(t, c)

	if got, want := paint(c).RGBAAt(testW/2, testH/2), pagetest.PageColor(0); got != want {
		t.Errorf("centre pixel = %v, want %v", got, want)
	}

	c.SetRenderConfig(engine.RenderConfig{Invert: true})
	pump(t, c, func() bool { return windowReady(c) })
	drain(t, c)
	pc := pagetest.PageColor(0)
	want := color.RGBA{0xff - pc.R, 0xff - pc.G, 0xff - pc.B, 0xff}
	if got := paint(c).RGBAAt(testW/2, testH/2); got != want {
		t.Errorf("inverted centre pixel = %v, want %v", got, want)
	}
}

func TestRestyleKeepsOldRendering(t *testing.T) {
	f := newFixture(t, 3)
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })
	drain(t, c)

	f.doc.Block()
	c.SetRenderConfig(engine.RenderConfig{Invert: true})
	if got := c.Slot(0).State(); got != LowResPending {
		t.Fatalf("state after restyle = %v, want LowResPending", got)
	}
	if got, want := paint(c).RGBAAt(testW/2, testH/2), pagetest.PageColor(0); got != want {
		t.Errorf("centre pixel while restyling = %v, want old rendering %v", got, want)
	}
	f.doc.Release()

	pump(t, c, func() bool { return windowReady(c) })
	drain(t, c)
	pc := pagetest.PageColor(0)
	want := color.RGBA{0xff - pc.R, 0xff - pc.G, 0xff - pc.B, 0xff}
	if got := paint(c).RGBAAt(testW/2, testH/2); got != want {
		t.Errorf("centre pixel after restyle = %v, want %v", got, want)
	}
	if got := c.src.pool.Outstanding(); got != len(c.slots) {
		t.Errorf("outstanding buffers = %d, want %d", got, len(c.slots))
	}
}

func TestPaintZoomedScalesLowRes(t *testing.T) {
	f := newFixture(t, 3)
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })
	drain(t, c)

	f.doc.Block()
	c.Zoom(2, testW/2, testH/2)
	if got, want := paint(c).RGBAAt(testW/2, testH/2), pagetest.PageColor(0); got != want {
		t.Errorf("scaled centre pixel = %v, want %v", got, want)
	}
	f.doc.Release()
}

func TestPaintErrorPage(t *testing.T) {
	f := newFixture(t, 3, func(d *pagetest.Doc) {
		d.FailDraw(0, errors.New("boom"))
	})
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })
	drain(t, c)

	dst := paint(c)
	if got, want := dst.RGBAAt(10, 10), (color.RGBA{0xff, 0xff, 0xff, 0xff}); got != want {
		t.Errorf("error page corner = %v, want paper %v", got, want)
	}
	if got := dst.RGBAAt(testW/2, testH/2); got != errorMark {
		t.Errorf("error page centre = %v, want mark %v", got, errorMark)
	}
}

func TestPaintHighlights(t *testing.T) {
	f := newFixture(t, 3, func(d *pagetest.Doc) {
		d.SetText(0, "foo")
	})
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })
	if err := c.Search("foo", 1); err != nil {
		t.Fatalf("Search: %v", err)
	}
	pump(t, c, func() bool { return len(f.hooks.results) == 1 })
	drain(t, c)

	// The match covers page units (0,10)-(30,22), twice that on screen.
	dst := paint(c)
	if got, plain := dst.RGBAAt(30, 30), pagetest.PageColor(0); got == plain {
		t.Errorf("highlighted pixel unchanged at %v", got)
	}
	if got, want := dst.RGBAAt(30, 60), pagetest.PageColor(0); got != want {
		t.Errorf("pixel below highlight = %v, want %v", got, want)
	}
}

package draw_test

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rjkroege/pageview/draw"
	"github.com/rjkroege/pageview/pagetest"
)

func TestFrameUpload(t *testing.T) {
	display := pagetest.NewDisplay(image.Rect(0, 0, 40, 30))
	screen := display.ScreenImage()
	var f draw.Frame

	src := image.NewRGBA(image.Rect(0, 0, 40, 30))
	if err := f.Upload(screen, image.Pt(0, 0), src); err != nil {
		t.Fatal(err)
	}
	if err := f.Upload(screen, image.Pt(0, 0), src); err != nil {
		t.Fatal(err)
	}
	// A padded sub-image is packed before loading.
	sub := image.NewRGBA(image.Rect(0, 0, 40, 30)).SubImage(image.Rect(5, 5, 15, 10)).(*image.RGBA)
	if err := f.Upload(screen, image.Pt(2, 3), sub); err != nil {
		t.Fatal(err)
	}
	if err := f.Free(); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"alloc (0,0)-(40,30)",
		"image-40x30 <- load (0,0)-(40,30)",
		"screen-40x30 <- draw r: (0,0)-(40,30) src: image-40x30 p1: (0,0)",
		"image-40x30 <- load (0,0)-(40,30)",
		"screen-40x30 <- draw r: (0,0)-(40,30) src: image-40x30 p1: (0,0)",
		"free image-40x30",
		"alloc (5,5)-(15,10)",
		"image-10x5 <- load (5,5)-(15,10)",
		"screen-40x30 <- draw r: (2,3)-(12,8) src: image-10x5 p1: (5,5)",
		"free image-10x5",
	}
	got := display.(pagetest.GettableDrawOps).DrawOps()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("draw ops mismatch (-want +got):\n%s", diff)
	}
}

package pagetest

import (
	"fmt"
	"image"
	"sync"
	"unicode/utf8"

	"github.com/rjkroege/pageview/draw"
)

var _ = draw.Display((*mockDisplay)(nil))

const (
	fwidth  = 8
	fheight = 13
)

// GettableDrawOps display implementations can provide a list of the
// executed draw ops.
type GettableDrawOps interface {
	DrawOps() []string
	Clear()
}

// mockDisplay implements draw.Display.
type mockDisplay struct {
	mu          sync.Mutex
	drawops     []string
	screenimage draw.Image
}

// NewDisplay returns a mock draw.Display whose screen covers r.
func NewDisplay(r image.Rectangle) draw.Display {
	md := &mockDisplay{}
	md.screenimage = newimageimpl(md, fmt.Sprintf("screen-%dx%d", r.Dx(), r.Dy()), draw.Notacolor, r)
	return md
}

func (d *mockDisplay) ScreenImage() draw.Image { return d.screenimage }
func (d *mockDisplay) White() draw.Image {
	return newimageimpl(d, "white", draw.White, image.Rectangle{})
}
func (d *mockDisplay) Black() draw.Image {
	return newimageimpl(d, "black", draw.Black, image.Rectangle{})
}

func (d *mockDisplay) InitKeyboard() *draw.Keyboardctl { return &draw.Keyboardctl{} }
func (d *mockDisplay) InitMouse() *draw.Mousectl       { return &draw.Mousectl{} }

func (d *mockDisplay) OpenFont(name string) (draw.Font, error) { return NewFont(fwidth, fheight), nil }

func (d *mockDisplay) AllocImage(r image.Rectangle, pix draw.Pix, repl bool, val draw.Color) (draw.Image, error) {
	d.record(fmt.Sprintf("alloc %v", r))
	return &mockImage{
		d:    d,
		r:    r,
		c:    val,
		n:    fmt.Sprintf("image-%dx%d", r.Dx(), r.Dy()),
		repl: repl,
	}, nil
}

func (d *mockDisplay) Attach(ref int) error { return nil }
func (d *mockDisplay) Flush() error {
	d.record("flush")
	return nil
}
func (d *mockDisplay) ScaleSize(n int) int { return n }

func (d *mockDisplay) record(op string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drawops = append(d.drawops, op)
}

func (d *mockDisplay) DrawOps() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.drawops...)
}

func (d *mockDisplay) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drawops = nil
}

var _ = draw.Image((*mockImage)(nil))

// mockImage implements draw.Image.
type mockImage struct {
	r    image.Rectangle
	d    *mockDisplay
	n    string
	c    draw.Color
	repl bool
}

func newimageimpl(d *mockDisplay, name string, c draw.Color, r image.Rectangle) draw.Image {
	return &mockImage{
		r: r,
		d: d,
		c: c,
		n: name,
	}
}

func (i *mockImage) Display() draw.Display { return i.d }
func (i *mockImage) Pix() draw.Pix         { return draw.ABGR32 }
func (i *mockImage) R() image.Rectangle    { return i.r }

func (i *mockImage) Draw(r image.Rectangle, src, mask draw.Image, p1 image.Point) {
	srcname := "nil"
	if msrc, ok := src.(*mockImage); ok {
		srcname = msrc.n
	}
	i.d.record(fmt.Sprintf("%s <- draw r: %v src: %s p1: %v", i.n, r, srcname, p1))
}

func (i *mockImage) Bytes(pt image.Point, src draw.Image, sp image.Point, f draw.Font, b []byte) image.Point {
	i.d.record(fmt.Sprintf("%s <- string %q atpoint: %v", i.n, string(b), pt))
	return pt.Add(image.Pt(f.StringWidth(string(b)), 0))
}

func (i *mockImage) Free() error {
	i.d.record(fmt.Sprintf("free %s", i.n))
	return nil
}

// Load checks that data covers r at four bytes a pixel.
func (i *mockImage) Load(r image.Rectangle, data []byte) (int, error) {
	if want := r.Dx() * r.Dy() * 4; len(data) != want {
		return 0, fmt.Errorf("load %v: got %d bytes, want %d", r, len(data), want)
	}
	i.d.record(fmt.Sprintf("%s <- load %v", i.n, r))
	return len(data), nil
}

var _ = draw.Font((*mockFont)(nil))

// mockFont implements draw.Font as a fixed width font.
type mockFont struct {
	width, height int
}

// NewFont returns a draw.Font that mocks a fixed-width font.
func NewFont(width, height int) draw.Font {
	return &mockFont{
		width:  width,
		height: height,
	}
}

func (f *mockFont) Name() string             { return "mock" }
func (f *mockFont) Height() int              { return f.height }
func (f *mockFont) StringWidth(s string) int { return f.width * utf8.RuneCountInString(s) }

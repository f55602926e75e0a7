// Package draw is the display the pageview host paints on. It wraps the
// devdraw client so that tests can substitute a recording display.
package draw

import "image"

type Display interface {
	ScreenImage() Image
	White() Image
	Black() Image

	InitKeyboard() *Keyboardctl
	InitMouse() *Mousectl
	OpenFont(name string) (Font, error)
	AllocImage(r image.Rectangle, pix Pix, repl bool, val Color) (Image, error)
	Attach(ref int) error
	Flush() error
	ScaleSize(n int) int
}

type Image interface {
	Display() Display
	Pix() Pix
	R() image.Rectangle

	Draw(r image.Rectangle, src, mask Image, p1 image.Point)
	Bytes(pt image.Point, src Image, sp image.Point, f Font, b []byte) image.Point
	Free() error
	Load(r image.Rectangle, data []byte) (int, error)
}

type Font interface {
	Name() string
	Height() int
	StringWidth(s string) int
}

// displayImpl implements the Display interface.
type displayImpl struct {
	*drawDisplay
}

var _ = Display((*displayImpl)(nil))

func (d *displayImpl) ScreenImage() Image { return &imageImpl{d.drawDisplay.ScreenImage} }
func (d *displayImpl) White() Image       { return &imageImpl{d.drawDisplay.White} }
func (d *displayImpl) Black() Image       { return &imageImpl{d.drawDisplay.Black} }

func (d *displayImpl) OpenFont(name string) (Font, error) {
	f, err := d.drawDisplay.OpenFont(name)
	if err != nil {
		return nil, err
	}
	return &fontImpl{f}, nil
}

func (d *displayImpl) AllocImage(r image.Rectangle, pix Pix, repl bool, val Color) (Image, error) {
	i, err := d.drawDisplay.AllocImage(r, pix, repl, val)
	if err != nil {
		return nil, err
	}
	return &imageImpl{i}, nil
}

// imageImpl implements the Image interface.
type imageImpl struct {
	*drawImage
}

var _ = Image((*imageImpl)(nil))

func (dst *imageImpl) Display() Display   { return &displayImpl{dst.drawImage.Display} }
func (dst *imageImpl) Pix() Pix           { return dst.drawImage.Pix }
func (dst *imageImpl) R() image.Rectangle { return dst.drawImage.R }

func (dst *imageImpl) Draw(r image.Rectangle, src, mask Image, p1 image.Point) {
	dst.drawImage.Draw(r, toDrawImage(src), toDrawImage(mask), p1)
}

func (dst *imageImpl) Bytes(pt image.Point, src Image, sp image.Point, f Font, b []byte) image.Point {
	return dst.drawImage.Bytes(pt, toDrawImage(src), sp, f.(*fontImpl).drawFont, b)
}

func (dst *imageImpl) Load(r image.Rectangle, data []byte) (int, error) {
	return dst.drawImage.Load(r, data)
}

func toDrawImage(i Image) *drawImage {
	if i == nil {
		return nil
	}
	return i.(*imageImpl).drawImage
}

type fontImpl struct {
	*drawFont
}

func (f *fontImpl) Name() string { return f.drawFont.Name }
func (f *fontImpl) Height() int  { return f.drawFont.Height }

// Frame is a server side image that an RGBA frame is uploaded into
// before being drawn to the screen.
type Frame struct {
	img Image
}

// Upload copies src into the frame image, reallocating it when the size
// changes, and draws it onto dst at dp.
func (f *Frame) Upload(dst Image, dp image.Point, src *image.RGBA) error {
	r := src.Bounds()
	if f.img == nil || f.img.R() != r {
		if f.img != nil {
			f.img.Free()
		}
		img, err := dst.Display().AllocImage(r, ABGR32, false, White)
		if err != nil {
			return err
		}
		f.img = img
	}
	if _, err := f.img.Load(r, packed(src)); err != nil {
		return err
	}
	dst.Draw(r.Sub(r.Min).Add(dp), f.img, nil, r.Min)
	return nil
}

// Free releases the server side image.
func (f *Frame) Free() error {
	if f.img == nil {
		return nil
	}
	err := f.img.Free()
	f.img = nil
	return err
}

// packed returns the pixels of src without row padding, in the byte order
// of ABGR32.
func packed(src *image.RGBA) []byte {
	r := src.Bounds()
	w := r.Dx() * 4
	if src.Stride == w && len(src.Pix) == w*r.Dy() {
		return src.Pix
	}
	out := make([]byte, 0, w*r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := src.PixOffset(r.Min.X, y)
		out = append(out, src.Pix[i:i+w]...)
	}
	return out
}

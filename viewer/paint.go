package viewer

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

var (
	backdrop  = color.RGBA{0x55, 0x55, 0x55, 0xff}
	highlight = color.NRGBA{0x40, 0xe0, 0xd0, 0x80}
	linkLight = color.NRGBA{0x00, 0x00, 0xff, 0x1a}
	linkDark  = color.NRGBA{0xff, 0xff, 0xff, 0x26}
	errorMark = color.RGBA{0xc0, 0x20, 0x20, 0xff}
)

// Paint draws the window into dst, which covers the viewport. Each page
// shows its low-resolution render scaled to its laid out size, the
// high-resolution patch while the view is settled, then search
// highlights and link regions.
func (c *Controller) Paint(dst *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(backdrop), image.Point{}, draw.Src)
	for _, s := range c.slots {
		c.paintSlot(dst, s)
	}
}

func (c *Controller) paintSlot(dst *image.RGBA, s *Slot) {
	r := s.frame
	if r.Empty() || !r.Overlaps(dst.Bounds()) {
		return
	}
	paper := image.NewUniform(paperColor(c.cfg.Render))
	switch {
	case (s.state == LowResReady || s.state == LowResPending) && s.lowres != nil:
		src, sr := s.lowres.RGBA, s.lowres.Valid
		if sr.Size() == r.Size() {
			draw.Draw(dst, r, src, sr.Min, draw.Src)
		} else {
			xdraw.ApproxBiLinear.Scale(dst, r, src, sr, draw.Src, nil)
		}
	case s.state == Error:
		draw.Draw(dst, r, paper, image.Point{}, draw.Src)
		paintCross(dst, r.Inset(r.Dx()/3), errorMark)
		return
	default:
		draw.Draw(dst, r, paper, image.Point{}, draw.Src)
	}

	if c.isSettled() && s.patchState == PatchReady && s.patch != nil && s.patchView == r.Size() {
		pr := s.patchArea.Add(r.Min)
		draw.Draw(dst, pr, s.patch.RGBA, s.patch.Valid.Min, draw.Src)
	}

	sc := s.scale()
	for _, quads := range s.highlights {
		for _, q := range quads {
			hr := q.Rect().Scale(sc).Bounds().Add(r.Min)
			draw.Draw(dst, hr.Intersect(r), image.NewUniform(highlight), image.Point{}, draw.Over)
		}
	}
	if c.cfg.LinksEnabled {
		lc := linkLight
		if c.cfg.Render.Invert {
			lc = linkDark
		}
		for _, l := range s.links {
			lr := l.Bounds.Scale(sc).Bounds().Add(r.Min)
			draw.Draw(dst, lr.Intersect(r), image.NewUniform(lc), image.Point{}, draw.Over)
		}
	}
}

// paintCross marks a page that failed to render.
func paintCross(dst *image.RGBA, r image.Rectangle, col color.Color) {
	n := min(r.Dx(), r.Dy())
	if n <= 0 {
		return
	}
	w := max(n/20, 1)
	u := image.NewUniform(col)
	for i := 0; i < n; i++ {
		x0 := r.Min.X + i*r.Dx()/n
		y := r.Min.Y + i*r.Dy()/n
		draw.Draw(dst, image.Rect(x0, y, x0+w, y+1), u, image.Point{}, draw.Src)
		x1 := r.Max.X - w - i*r.Dx()/n
		draw.Draw(dst, image.Rect(x1, y, x1+w, y+1), u, image.Point{}, draw.Src)
	}
}

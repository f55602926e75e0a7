package textdoc

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"unicode/utf8"

	"github.com/golang/freetype"
	"github.com/rjkroege/pageview/engine"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/cases"
)

type palette struct {
	paper, ink, link color.Color
}

var (
	lightPalette = palette{
		paper: color.White,
		ink:   color.RGBA{0x20, 0x20, 0x20, 0xff},
		link:  color.RGBA{0x1a, 0x4a, 0xc0, 0xff},
	}
	darkPalette = palette{
		paper: color.Black,
		ink:   color.RGBA{0xe0, 0xe0, 0xe0, 0xff},
		link:  color.RGBA{0x80, 0xa8, 0xff, 0xff},
	}
)

func fix(v float64) fixed.Int26_6 { return fixed.Int26_6(v * 64) }

// Draw rasterizes page i at pageW x pageH pixels. dst receives the part
// of the page starting at patch.Min.
func (d *Doc) Draw(ctx context.Context, dst *image.RGBA, i, pageW, pageH int, patch image.Rectangle, cfg engine.RenderConfig) error {
	if err := d.checkPage(i); err != nil {
		return err
	}
	if pageW <= 0 || pageH <= 0 {
		return fmt.Errorf("textdoc: bad page size %dx%d", pageW, pageH)
	}
	fs, err := fonts()
	if err != nil {
		return err
	}
	pal := lightPalette
	if cfg.Invert {
		pal = darkPalette
	}
	clip := image.Rect(0, 0, patch.Dx(), patch.Dy()).Intersect(dst.Bounds())
	draw.Draw(dst, clip, image.NewUniform(pal.paper), image.Point{}, draw.Src)

	sx := float64(pageW) / d.w
	sy := float64(pageH) / d.h
	fc := freetype.NewContext()
	fc.SetDPI(72)
	fc.SetDst(dst)
	fc.SetClip(clip)
	fc.SetHinting(font.HintingNone)

	for _, ln := range d.pages[i].lines {
		if err := ctx.Err(); err != nil {
			return err
		}
		top := (ln.y-ln.ascent)*sy - float64(patch.Min.Y)
		bot := (ln.y+ln.descent)*sy - float64(patch.Min.Y)
		if bot < 0 || top > float64(clip.Max.Y) || ln.text == "" {
			continue
		}
		fc.SetFont(fs[ln.style])
		fc.SetFontSize(ln.size * sx)
		pt := fixed.Point26_6{
			X: fix(ln.x*sx - float64(patch.Min.X)),
			Y: fix(ln.y*sy - float64(patch.Min.Y)),
		}
		pos := 0
		put := func(s string, c color.Color) error {
			if s == "" {
				return nil
			}
			fc.SetSrc(image.NewUniform(c))
			pt, err = fc.DrawString(s, pt)
			return err
		}
		for _, r := range ln.runs {
			if err := put(ln.text[pos:r.start], pal.ink); err != nil {
				return err
			}
			if err := put(ln.text[r.start:r.end], pal.link); err != nil {
				return err
			}
			pos = r.end
		}
		if err := put(ln.text[pos:], pal.ink); err != nil {
			return err
		}
	}
	return nil
}

// UpdatePatch redraws; the engine keeps no incremental state.
func (d *Doc) UpdatePatch(ctx context.Context, dst *image.RGBA, i, pageW, pageH int, patch image.Rectangle, cfg engine.RenderConfig) error {
	return d.Draw(ctx, dst, i, pageW, pageH, patch, cfg)
}

// foldMap case folds s. starts[k] is the offset in s of the rune that
// produced byte k of the folded string.
func foldMap(c cases.Caser, s string) (string, []int) {
	var (
		sb     strings.Builder
		starts []int
	)
	for i, r := range s {
		f := c.String(string(r))
		for j := 0; j < len(f); j++ {
			starts = append(starts, i)
		}
		sb.WriteString(f)
	}
	return sb.String(), starts
}

// SearchPage finds text on page i ignoring case. Each match yields one
// quad; matches do not span lines.
func (d *Doc) SearchPage(ctx context.Context, i int, text string) ([][]engine.Quad, error) {
	if err := d.checkPage(i); err != nil {
		return nil, err
	}
	fold := cases.Fold()
	q := fold.String(text)
	if q == "" {
		return nil, nil
	}
	var hits [][]engine.Quad
	for _, ln := range d.pages[i].lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		folded, starts := foldMap(fold, ln.text)
		if !strings.Contains(folded, q) {
			continue
		}
		f, err := d.face(ln.style, ln.size)
		if err != nil {
			return nil, err
		}
		for off := 0; ; {
			j := strings.Index(folded[off:], q)
			if j < 0 {
				break
			}
			j += off
			s := starts[j]
			last := starts[j+len(q)-1]
			_, sz := utf8.DecodeRuneInString(ln.text[last:])
			e := last + sz
			r := engine.Rect{
				X0: ln.x + advance(f, ln.text[:s]),
				Y0: ln.y - ln.ascent,
				X1: ln.x + advance(f, ln.text[:e]),
				Y1: ln.y + ln.descent,
			}
			hits = append(hits, []engine.Quad{engine.QuadFromRect(r)})
			off = j + len(q)
		}
	}
	return hits, nil
}

package textdoc

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/golang/freetype/truetype"
	"github.com/rjkroege/pageview/engine"
	"github.com/rjkroege/pageview/internal/logging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

type style int

const (
	regular style = iota
	bold
	mono
)

var fonts = sync.OnceValues(func() ([]*truetype.Font, error) {
	var fs []*truetype.Font
	for _, ttf := range [][]byte{goregular.TTF, gobold.TTF, gomono.TTF} {
		f, err := truetype.Parse(ttf)
		if err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	return fs, nil
})

type faceKey struct {
	style style
	size  float64
}

// line is one laid out line. Positions are in points from the top left
// of the page; y is the baseline.
type line struct {
	block      int
	start, end int // within the block text
	text       string
	style      style
	size       float64
	x, y       float64
	ascent     float64
	descent    float64
	runs       []run
}

// run is a linked stretch of a line.
type run struct {
	start, end int // within the line text
	x0, x1     float64
	uri        string
}

type page struct {
	lines []line
}

// headingScale is the font size multiplier for each heading level.
func headingScale(level int) float64 {
	switch level {
	case 1:
		return 2.0
	case 2:
		return 1.5
	case 0:
		return 1
	}
	return 1.25
}

func (d *Doc) face(st style, size float64) (font.Face, error) {
	k := faceKey{st, size}
	if f, ok := d.faces[k]; ok {
		return f, nil
	}
	fs, err := fonts()
	if err != nil {
		return nil, err
	}
	f := truetype.NewFace(fs[st], &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
	d.faces[k] = f
	return f, nil
}

func points(v fixed.Int26_6) float64 { return float64(v) / 64 }

func advance(f font.Face, s string) float64 {
	return points(font.MeasureString(f, s))
}

// wrap breaks s greedily into lines no wider than width. A word wider
// than width is broken between runes.
func wrap(f font.Face, s string, width float64) [][2]int {
	var out [][2]int
	start, end := 0, 0
	for i := 0; i < len(s); {
		ws := i
		for ws < len(s) && s[ws] == ' ' {
			ws++
		}
		if ws == len(s) {
			break
		}
		we := ws
		for we < len(s) && s[we] != ' ' {
			we++
		}
		switch {
		case advance(f, s[start:we]) <= width:
			end, i = we, we
		case end > start:
			out = append(out, [2]int{start, end})
			start, end, i = ws, ws, ws
		default:
			cut := fit(f, s[start:we], width)
			out = append(out, [2]int{start, start + cut})
			start, end, i = start+cut, start+cut, start+cut
		}
	}
	if end > start {
		out = append(out, [2]int{start, end})
	}
	return out
}

// fit returns the length of the longest prefix of s no wider than width,
// and at least one rune.
func fit(f font.Face, s string, width float64) int {
	_, n := utf8.DecodeRuneInString(s)
	for n < len(s) {
		_, sz := utf8.DecodeRuneInString(s[n:])
		if advance(f, s[:n+sz]) > width {
			break
		}
		n += sz
	}
	return n
}

// Layout reflows the document into pages of w x h points with body text
// of size em.
func (d *Doc) Layout(w, h, em float64) error {
	if d.closed {
		return engine.ErrNoDocument
	}
	if w <= 0 || h <= 0 || em <= 0 {
		return fmt.Errorf("textdoc: bad layout %gx%g at %g", w, h, em)
	}
	margin := min(em*2, w/8, h/8)
	width := w - 2*margin
	bottom := h - margin

	pages := []page{{}}
	y := margin
	for bi, b := range d.blocks {
		st := regular
		switch {
		case b.mono:
			st = mono
		case b.level > 0:
			st = bold
		}
		size := em * headingScale(b.level)
		f, err := d.face(st, size)
		if err != nil {
			return err
		}
		m := f.Metrics()
		asc, desc := points(m.Ascent), points(m.Descent)
		lh := size * 1.25

		if b.level > 0 && len(pages[len(pages)-1].lines) > 0 {
			y += em
		}
		segs := wrap(f, b.text, width)
		if len(segs) == 0 {
			segs = [][2]int{{0, 0}}
		}
		for _, sg := range segs {
			if y+lh > bottom && len(pages[len(pages)-1].lines) > 0 {
				pages = append(pages, page{})
				y = margin
			}
			ln := line{
				block:   bi,
				start:   sg[0],
				end:     sg[1],
				text:    b.text[sg[0]:sg[1]],
				style:   st,
				size:    size,
				x:       margin,
				y:       y + asc,
				ascent:  asc,
				descent: desc,
			}
			for _, l := range b.links {
				s, e := max(l.start, sg[0]), min(l.end, sg[1])
				if s >= e {
					continue
				}
				s, e = s-sg[0], e-sg[0]
				ln.runs = append(ln.runs, run{
					start: s,
					end:   e,
					x0:    margin + advance(f, ln.text[:s]),
					x1:    margin + advance(f, ln.text[:e]),
					uri:   l.uri,
				})
			}
			p := &pages[len(pages)-1]
			p.lines = append(p.lines, ln)
			y += lh
		}
		if !b.mono {
			y += em / 2
		}
	}

	d.w, d.h, d.em = w, h, em
	d.pages = pages
	d.index()
	logging.Logger().Debug("textdoc layout", "w", w, "h", h, "em", em, "pages", len(pages))
	return nil
}

// index records the page holding each anchor and rebuilds the outline.
func (d *Doc) index() {
	d.anchors = make(map[string]int)
	d.blockPage = make([]int, len(d.blocks))
	for i := range d.blockPage {
		d.blockPage[i] = -1
	}
	for pi, p := range d.pages {
		for _, ln := range p.lines {
			if d.blockPage[ln.block] < 0 {
				d.blockPage[ln.block] = pi
			}
		}
	}
	for bi, b := range d.blocks {
		for _, id := range b.ids {
			if _, ok := d.anchors[id]; !ok && d.blockPage[bi] >= 0 {
				d.anchors[id] = d.blockPage[bi]
			}
		}
	}
	d.outline = d.buildOutline()
}

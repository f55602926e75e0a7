package main

import (
	"unicode/utf8"

	"github.com/rjkroege/pageview/draw"
	"github.com/rjkroege/pageview/viewer"
)

const (
	keyBackspace = '\b'
	keyDelete    = 0x7f
	keyInterrupt = 0x03
	keyEscape    = 0x1b
)

// key applies the binding for r to c. It reports false when r asks to
// quit.
func key(c *viewer.Controller, r rune) bool {
	switch r {
	case 'q', keyInterrupt:
		return false
	case ' ', draw.KeyPageDown:
		c.SmartMoveForwards()
	case keyBackspace, draw.KeyPageUp:
		c.SmartMoveBackwards()
	case draw.KeyRight, draw.KeyDown, 'n', 'j':
		c.MoveToNext()
	case draw.KeyLeft, draw.KeyUp, 'p', 'k':
		c.MoveToPrevious()
	case draw.KeyHome:
		jump(c, 0)
	case draw.KeyEnd:
		jump(c, c.PageCount()-1)
	case 'b':
		c.PopHistory()
	case 'i':
		rc := c.RenderConfig()
		rc.Invert = !rc.Invert
		c.SetRenderConfig(rc)
	case 'l':
		c.SetLinksEnabled(!c.LinksEnabled())
	case '+', '=':
		zoomCentre(c, 1.25)
	case '-':
		zoomCentre(c, 0.8)
	case 'r':
		c.Refresh()
	case keyEscape:
		c.ClearSearch()
	}
	return true
}

func jump(c *viewer.Controller, i int) {
	if i == c.DisplayedIndex() || i < 0 {
		return
	}
	c.PushHistory()
	c.SetDisplayedIndex(i)
}

func zoomCentre(c *viewer.Controller, f float64) {
	vp := c.State().Viewport
	c.Zoom(f, float64(vp.X)/2, float64(vp.Y)/2)
}

// decodeKeys turns terminal input into runes, mapping the ANSI cursor
// and paging sequences onto the draw key runes and DEL onto backspace.
func decodeKeys(b []byte) []rune {
	var out []rune
	for len(b) > 0 {
		if b[0] == keyEscape && len(b) >= 3 && (b[1] == '[' || b[1] == 'O') {
			r, n := csi(b[2:])
			if n > 0 {
				out = append(out, r)
				b = b[2+n:]
				continue
			}
		}
		r, n := utf8.DecodeRune(b)
		if r == keyDelete {
			r = keyBackspace
		}
		out = append(out, r)
		b = b[n:]
	}
	return out
}

// csi decodes the body of an escape sequence. It returns the number of
// bytes used, or zero when the sequence is not one it knows.
func csi(b []byte) (rune, int) {
	switch b[0] {
	case 'A':
		return draw.KeyUp, 1
	case 'B':
		return draw.KeyDown, 1
	case 'C':
		return draw.KeyRight, 1
	case 'D':
		return draw.KeyLeft, 1
	case 'H':
		return draw.KeyHome, 1
	case 'F':
		return draw.KeyEnd, 1
	}
	if len(b) >= 2 && b[1] == '~' {
		switch b[0] {
		case '1', '7':
			return draw.KeyHome, 2
		case '4', '8':
			return draw.KeyEnd, 2
		case '5':
			return draw.KeyPageUp, 2
		case '6':
			return draw.KeyPageDown, 2
		}
	}
	return 0, 0
}

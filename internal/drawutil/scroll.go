// Package drawutil contains draw related utility functions.
package drawutil

import (
	"os"
	"strconv"
	"sync"
)

var scrollSizeOnce sync.Once
var scrollLines int
var scrollPercent float64

// WheelScrollSize computes how many pixels a page view should pan in
// response to one mouse wheel click. Extent is the visible size of the
// view along the scroll axis and line is the height of one line of text
// in pixels.
//
// The default increment is one line. This can be overridden by setting
// the $mousescrollsize environment variable to an integer, a constant
// number of lines, or to a real number followed by a percent character,
// a percentage of the visible extent. For example, setting
// $mousescrollsize to 50% pans by half a screen.
func WheelScrollSize(extent, line int) int {
	return wheelScrollSize(&scrollSizeOnce, extent, line)
}

type doer interface {
	Do(func())
}

func wheelScrollSize(once doer, extent, line int) int {
	once.Do(func() {
		s := os.Getenv("mousescrollsize")
		if s == "" {
			return
		}
		if s[len(s)-1] == '%' {
			pcnt, err := strconv.ParseFloat(s[:len(s)-1], 32)
			if err != nil || pcnt <= 0 {
				return
			}
			scrollPercent = min(pcnt, 100)
			return
		}
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return
		}
		scrollLines = n
	})
	if line <= 0 {
		line = 1
	}
	switch {
	case scrollLines > 0:
		return min(scrollLines*line, max(extent, line))
	case scrollPercent > 0:
		return max(int(scrollPercent*float64(extent)/100.0), 1)
	}
	return line
}

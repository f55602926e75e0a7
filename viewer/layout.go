package viewer

import "image"

// bounds is the range of scroll offsets that keep a slot on screen.
// Contains treats it as half open and an empty range contains nothing.
type bounds struct {
	left, top, right, bottom int
}

func (b bounds) contains(x, y int) bool {
	return b.left < b.right && b.top < b.bottom &&
		x >= b.left && x < b.right && y >= b.top && y < b.bottom
}

func (b bounds) inset(d int) bounds {
	return bounds{b.left + d, b.top + d, b.right - d, b.bottom - d}
}

// correction is the smallest offset that brings a slot within b.
func correction(b bounds) image.Point {
	return image.Pt(min(max(0, b.left), b.right), min(max(0, b.top), b.bottom))
}

// scrollBounds computes the bounds for a slot laid out at the given edges.
// A slot smaller than the viewport in either dimension is held centred.
func (c *Controller) scrollBounds(left, top, right, bottom int) bounds {
	xmin, xmax := c.w-right, -left
	ymin, ymax := c.h-bottom, -top
	if xmin > xmax {
		xmin = (xmin + xmax) / 2
		xmax = xmin
	}
	if ymin > ymax {
		ymin = (ymin + ymax) / 2
		ymax = ymin
	}
	return bounds{xmin, ymin, xmax, ymax}
}

// slotBounds includes scroll amounts that layout has not yet accounted for.
func (c *Controller) slotBounds(s *Slot) bounds {
	x := s.frame.Min.X + c.xScroll
	y := s.frame.Min.Y + c.yScroll
	return c.scrollBounds(x, y, x+s.measured.X, y+s.measured.Y)
}

// measure sizes s to fit the viewport, times the zoom.
func (c *Controller) measure(s *Slot) {
	mz := s.minZoom
	if mz.X <= 0 || mz.Y <= 0 {
		mz = c.viewport()
	}
	if mz.X <= 0 || mz.Y <= 0 {
		s.measured = image.Point{}
		return
	}
	fit := min(float64(c.w)/float64(mz.X), float64(c.h)/float64(mz.Y))
	s.measured = image.Pt(int(float64(mz.X)*fit*c.scale), int(float64(mz.Y)*fit*c.scale))
}

// subScreenSizeOffset centres a slot smaller than the viewport and keeps
// its neighbours spaced out.
func (c *Controller) subScreenSizeOffset(s *Slot) image.Point {
	return image.Pt(max((c.w-s.measured.X)/2, 0), max((c.h-s.measured.Y)/2, 0))
}

func (c *Controller) getOrCreate(i int) *Slot {
	s := c.slots[i]
	if s == nil {
		s = newSlot(i, c.src, c.mbox.post)
		c.slots[i] = s
		c.setupSlot(s)
		c.childSetup(s)
	}
	return s
}

// layout accounts for pending scroll amounts, shifts the window when the
// current page has moved far enough off centre and positions the slots.
func (c *Controller) layout() {
	if c.doc == nil || c.w <= 0 || c.h <= 0 {
		return
	}
	for _, s := range c.slots {
		c.measure(s)
	}
	gap := c.cfg.Gap
	reset := c.resetLayout

	if !reset {
		if cv := c.slots[c.current]; cv != nil {
			off := c.subScreenSizeOffset(cv)
			var move bool
			if c.cfg.Horizontal {
				move = cv.frame.Min.X+cv.measured.X+off.X+gap/2+c.xScroll < c.w/2
			} else {
				move = cv.frame.Min.Y+cv.measured.Y+off.Y+gap/2+c.yScroll < c.h/2
			}
			if move && c.current+1 < c.count {
				c.shift(cv, c.current+1)
			}
			if c.cfg.Horizontal {
				move = cv.frame.Min.X-off.X-gap/2+c.xScroll >= c.w/2
			} else {
				move = cv.frame.Min.Y-off.Y-gap/2+c.yScroll >= c.h/2
			}
			if move && c.current > 0 {
				c.shift(cv, c.current-1)
			}
		}
	} else {
		c.resetLayout = false
		c.xScroll, c.yScroll = 0, 0
		// Ask for the patch of the new current page.
		c.stepper.prod()
	}
	for i, s := range c.slots {
		if i < c.current-1 || i > c.current+1 {
			s.release()
			delete(c.slots, i)
		}
	}

	_, present := c.slots[c.current]
	cv := c.getOrCreate(c.current)
	off := c.subScreenSizeOffset(cv)
	var left, top int
	if reset || !present {
		left, top = off.X, off.Y
	} else {
		left = cv.frame.Min.X + c.xScroll
		top = cv.frame.Min.Y + c.yScroll
	}
	c.xScroll, c.yScroll = 0, 0
	right, bottom := left+cv.measured.X, top+cv.measured.Y

	switch {
	case !c.userInteracting && c.scroller.IsFinished():
		corr := correction(c.scrollBounds(left, top, right, bottom))
		left += corr.X
		right += corr.X
		top += corr.Y
		bottom += corr.Y
	case c.cfg.Horizontal && cv.measured.Y <= c.h:
		// The page fits vertically; hold it there while panning.
		corr := correction(c.scrollBounds(left, top, right, bottom))
		top += corr.Y
		bottom += corr.Y
	case !c.cfg.Horizontal && cv.measured.X <= c.w:
		corr := correction(c.scrollBounds(left, top, right, bottom))
		left += corr.X
		right += corr.X
	}
	cv.setFrame(image.Rect(left, top, right, bottom))

	if c.current > 0 {
		lv := c.getOrCreate(c.current - 1)
		lo := c.subScreenSizeOffset(lv)
		m := lv.measured
		if c.cfg.Horizontal {
			g := lo.X + gap + off.X
			lv.setFrame(image.Rect(left-m.X-g, (bottom+top-m.Y)/2, left-g, (bottom+top+m.Y)/2))
		} else {
			g := lo.Y + gap + off.Y
			lv.setFrame(image.Rect((left+right-m.X)/2, top-m.Y-g, (left+right+m.X)/2, top-g))
		}
	}
	if c.current+1 < c.count {
		rv := c.getOrCreate(c.current + 1)
		ro := c.subScreenSizeOffset(rv)
		m := rv.measured
		if c.cfg.Horizontal {
			g := off.X + gap + ro.X
			rv.setFrame(image.Rect(right+g, (bottom+top-m.Y)/2, right+m.X+g, (bottom+top+m.Y)/2))
		} else {
			g := off.Y + gap + ro.Y
			rv.setFrame(image.Rect((left+right-m.X)/2, bottom+g, (left+right+m.X)/2, bottom+g+m.Y))
		}
	}
	c.invalidate()
}

// shift makes page i current after the old current slot cv has moved off
// centre.
func (c *Controller) shift(cv *Slot, i int) {
	c.postUnsettle(cv)
	// The step after the animation ends settles the new page.
	c.stepper.prod()
	c.moveOffChild(c.current)
	c.current = i
	c.moveToChild(i)
}

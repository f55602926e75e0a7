package viewer

// MoveToNext slides the next page onto the screen.
func (c *Controller) MoveToNext() {
	if s := c.slots[c.current+1]; s != nil {
		c.slideViewOntoScreen(s)
	}
}

// MoveToPrevious slides the previous page onto the screen.
func (c *Controller) MoveToPrevious() {
	if s := c.slots[c.current-1]; s != nil {
		c.slideViewOntoScreen(s)
	}
}

// smartAdvanceAmount picks a step of about 90% of a screen, adjusted up by
// at most 5% or down by at most 10% so that limit is covered in a whole
// number of steps.
func smartAdvanceAmount(screen, limit int) int {
	if limit <= 0 {
		return 0
	}
	advance := int(float64(screen)*0.9 + 0.5)
	if advance <= 0 {
		return limit
	}
	leftOver := limit % advance
	steps := limit / advance
	if steps == 0 {
		return limit
	}
	if per := float64(leftOver) / float64(steps); per <= float64(screen)*0.05 {
		advance += int(per + 0.5)
	} else {
		overshoot := advance - leftOver
		if per := float64(overshoot) / float64(steps); per <= float64(screen)*0.1 {
			advance -= int(per + 0.5)
		}
	}
	return min(advance, limit)
}

// SmartMoveForwards advances through the current page the way a reader
// does: down the column, then to the top of the next column, then to the
// next page.
//
// Positions here are of the screen on the page, so a page laid out at
// (-100, -100) is seen from (100, 100). The animation in progress is
// taken to have finished, so repeated presses accumulate.
func (c *Controller) SmartMoveForwards() {
	v := c.slots[c.current]
	if v == nil {
		return
	}
	sw, sh := c.w, c.h
	remX := c.scroller.FinalX() - c.scroller.CurrX()
	remY := c.scroller.FinalY() - c.scroller.CurrY()
	top := -(v.frame.Min.Y + c.yScroll + remY)
	right := sw - (v.frame.Min.X + c.xScroll + remX)
	bottom := sh + top
	docW, docH := v.measured.X, v.measured.Y

	var xOff, yOff int
	switch {
	case bottom < docH:
		// Down by most of a screen, in case lines are partly cut off.
		yOff = smartAdvanceAmount(sh, docH-bottom)
	case right+sw <= docW:
		// Top of the next column.
		xOff = sw
		yOff = sh - bottom
	default:
		nv := c.slots[c.current+1]
		if nv == nil {
			return
		}
		nextTop := -(nv.frame.Min.Y + c.yScroll + remY)
		nextLeft := -(nv.frame.Min.X + c.xScroll + remX)
		nw, nh := nv.measured.X, nv.measured.Y
		if nh < sh {
			yOff = (nh - sh) >> 1
		}
		if nw < sw {
			xOff = (nw - sw) >> 1
		} else {
			// Back to the left hand column.
			xOff = right % sw
			if xOff+sw > nw {
				xOff = nw - sw
			}
		}
		xOff -= nextLeft
		yOff -= nextTop
	}
	c.scrollerLastX, c.scrollerLastY = 0, 0
	c.scroller.StartScroll(0, 0, remX-xOff, remY-yOff, 0)
	c.unsettle()
	c.stepper.prod()
}

// SmartMoveBackwards is the reverse of SmartMoveForwards.
func (c *Controller) SmartMoveBackwards() {
	v := c.slots[c.current]
	if v == nil {
		return
	}
	sw, sh := c.w, c.h
	remX := c.scroller.FinalX() - c.scroller.CurrX()
	remY := c.scroller.FinalY() - c.scroller.CurrY()
	left := -(v.frame.Min.X + c.xScroll + remX)
	top := -(v.frame.Min.Y + c.yScroll + remY)
	docH := v.measured.Y

	var xOff, yOff int
	switch {
	case top > 0:
		yOff = -smartAdvanceAmount(sh, top)
	case left >= sw:
		// Bottom of the previous column.
		xOff = -sw
		yOff = docH - sh + top
	default:
		pv := c.slots[c.current-1]
		if pv == nil {
			return
		}
		pw, ph := pv.measured.X, pv.measured.Y
		if ph < sh {
			yOff = (ph - sh) >> 1
		}
		prevLeft := -(pv.frame.Min.X + c.xScroll)
		prevTop := -(pv.frame.Min.Y + c.yScroll)
		if pw < sw {
			xOff = (pw - sw) >> 1
		} else {
			// Over to the right hand column.
			if left > 0 {
				xOff = left % sw
			}
			if xOff+sw > pw {
				xOff = pw - sw
			}
			for xOff+sw*2 < pw {
				xOff += sw
			}
		}
		xOff -= prevLeft
		yOff -= prevTop - ph + sh
	}
	c.scrollerLastX, c.scrollerLastY = 0, 0
	c.scroller.StartScroll(0, 0, remX-xOff, remY-yOff, 0)
	c.unsettle()
	c.stepper.prod()
}

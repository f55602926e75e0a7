package viewer

import (
	"math"

	"github.com/rjkroege/pageview/internal/gesture"
)

type direction int

const (
	movingDiagonally direction = iota
	movingLeft
	movingRight
	movingUp
	movingDown
)

func directionOfTravel(vx, vy float64) direction {
	switch {
	case math.Abs(vx) > 2*math.Abs(vy):
		if vx > 0 {
			return movingRight
		}
		return movingLeft
	case math.Abs(vy) > 2*math.Abs(vx):
		if vy > 0 {
			return movingDown
		}
		return movingUp
	}
	return movingDiagonally
}

func withinBoundsInDirectionOfTravel(b bounds, vx, vy float64) bool {
	switch directionOfTravel(vx, vy) {
	case movingLeft:
		return b.left <= 0
	case movingRight:
		return b.right >= 0
	case movingUp:
		return b.top <= 0
	case movingDown:
		return b.bottom >= 0
	}
	return b.contains(0, 0)
}

// Pointer feeds a pointer event to the gesture detector.
func (c *Controller) Pointer(ev gesture.Event) {
	if c.doc == nil {
		return
	}
	if ev.Action == gesture.Down {
		c.tapDisabled = false
		c.userInteracting = true
	}
	c.detector.OnEvent(ev)
	c.requestLayout()
	c.flush()
}

// Zoom scales the view by factor about the focus point fx, fy, as one
// step of a pinch would.
func (c *Controller) Zoom(factor, fx, fy float64) {
	if c.doc == nil || factor <= 0 {
		return
	}
	c.flush()
	interacting := c.userInteracting
	c.userInteracting = true
	c.scaleBegin()
	c.scaleBy(factor, fx, fy)
	c.scaling = false
	c.requestLayout()
	c.flush()
	c.userInteracting = interacting
	if !interacting {
		c.endInteraction()
	}
	c.requestLayout()
	c.flush()
}

// Pan moves the pages by dx, dy pixels, as a drag that ends without a
// fling would. Hosts use it for wheels and keys.
func (c *Controller) Pan(dx, dy float64) {
	if c.doc == nil || c.userInteracting {
		return
	}
	c.scroller.ForceFinished(true)
	c.userInteracting = true
	c.unsettle()
	c.xScroll += int(dx)
	c.yScroll += int(dy)
	c.requestLayout()
	c.flush()
	c.endInteraction()
	c.requestLayout()
	c.flush()
}

// listener adapts the gesture detector to the controller.
type listener struct{ c *Controller }

func (l listener) OnDown(x, y float64) {
	l.c.scroller.ForceFinished(true)
	l.c.userInteracting = true
	l.c.unsettle()
}

func (l listener) OnScroll(dx, dy float64) {
	c := l.c
	if !c.tapDisabled {
		c.hooks.OnDocMotion()
	}
	if !c.scaling {
		c.xScroll += int(dx)
		c.yScroll += int(dy)
		c.unsettle()
		c.requestLayout()
	}
}

func (l listener) OnFling(vx, vy float64)         { l.c.fling(vx, vy) }
func (l listener) OnSingleTapUp(x, y float64)     { l.c.tap(x, y) }
func (l listener) OnScaleBegin(fx, fy float64)    { l.c.scaleBegin() }
func (l listener) OnScale(factor, fx, fy float64) { l.c.scaleBy(factor, fx, fy) }
func (l listener) OnScaleEnd()                    { l.c.scaling = false }
func (l listener) OnUp()                          { l.c.endInteraction() }

// endInteraction springs the current page back on screen when nothing
// else is moving it, and settles the view when that is not needed either.
func (c *Controller) endInteraction() {
	c.userInteracting = false
	cv := c.slots[c.current]
	if cv == nil {
		return
	}
	if c.scroller.IsFinished() {
		c.slideViewOntoScreen(cv)
	}
	if c.scroller.IsFinished() {
		c.postSettle(cv)
	}
}

func (c *Controller) scaleBegin() {
	c.tapDisabled = true
	c.scaling = true
	c.unsettle()
	// Scroll amounts not yet laid out would only confuse the user.
	c.xScroll, c.yScroll = 0, 0
	c.lastFocusX, c.lastFocusY = -1, -1
}

// scaleBy zooms keeping the point under the focus fixed, and follows the
// focus as it moves.
func (c *Controller) scaleBy(factor, fx, fy float64) {
	prev := c.scale
	c.scale = c.cfg.clampScale(c.scale * factor)
	f := c.scale / prev

	cv := c.slots[c.current]
	if cv == nil {
		return
	}
	vfx := float64(int(fx) - (cv.frame.Min.X + c.xScroll))
	vfy := float64(int(fy) - (cv.frame.Min.Y + c.yScroll))
	c.xScroll += int(vfx - vfx*f)
	c.yScroll += int(vfy - vfy*f)
	if c.lastFocusX >= 0 {
		c.xScroll += int(fx - c.lastFocusX)
	}
	if c.lastFocusY >= 0 {
		c.yScroll += int(fy - c.lastFocusY)
	}
	c.lastFocusX, c.lastFocusY = fx, fy
	c.requestLayout()
}

func (c *Controller) fling(vx, vy float64) {
	if c.scaling {
		return
	}
	cv := c.slots[c.current]
	if cv == nil {
		return
	}
	b := c.slotBounds(cv)
	h := c.cfg.Horizontal
	switch directionOfTravel(vx, vy) {
	case movingLeft:
		if h && b.left >= 0 && c.slideTo(c.current+1) {
			return
		}
	case movingUp:
		if !h && b.top >= 0 && c.slideTo(c.current+1) {
			return
		}
	case movingRight:
		if h && b.right <= 0 && c.slideTo(c.current-1) {
			return
		}
	case movingDown:
		if !h && b.bottom <= 0 && c.slideTo(c.current-1) {
			return
		}
	}
	c.scrollerLastX, c.scrollerLastY = 0, 0
	// A page dragged out of bounds in the direction of travel springs back
	// instead, as does one dragged out by more than the fling margin.
	expanded := b.inset(-c.cfg.FlingMargin)
	if withinBoundsInDirectionOfTravel(b, vx, vy) && expanded.contains(0, 0) {
		c.scroller.Fling(0, 0, int(vx), int(vy), b.left, b.right, b.top, b.bottom)
		c.unsettle()
		c.stepper.prod()
	}
}

func (c *Controller) slideTo(i int) bool {
	s := c.slots[i]
	if s == nil {
		return false
	}
	c.slideViewOntoScreen(s)
	return true
}

// slideViewOntoScreen animates the smallest scroll that brings s on
// screen.
func (c *Controller) slideViewOntoScreen(s *Slot) {
	corr := correction(c.slotBounds(s))
	if corr.X != 0 || corr.Y != 0 {
		c.scrollerLastX, c.scrollerLastY = 0, 0
		c.scroller.StartScroll(0, 0, corr.X, corr.Y, c.cfg.SlideDuration)
		c.unsettle()
		c.stepper.prod()
	}
}

func (c *Controller) tap(x, y float64) {
	if c.tapDisabled {
		return
	}
	if cv := c.slots[c.current]; cv != nil && c.cfg.LinksEnabled {
		if l, ok := cv.hitLink(x, y); ok {
			switch {
			case l.Target >= 0:
				c.PushHistory()
				c.SetDisplayedIndex(l.Target)
				return
			case l.IsExternal():
				c.hooks.OnExternalLink(l.URI)
				return
			}
		}
	}
	m := float64(c.cfg.tapMargin(c.w))
	switch {
	case x < m:
		c.SmartMoveBackwards()
	case x > float64(c.w)-m:
		c.SmartMoveForwards()
	case y < m:
		c.SmartMoveBackwards()
	case y > float64(c.h)-m:
		c.SmartMoveForwards()
	default:
		c.hooks.OnTapMainDocArea()
	}
}

// Package scroller computes scroll animation positions over time. It does
// not move anything: callers ask for the position on every frame and apply
// it themselves.
package scroller

import (
	"math"
	"time"
)

const (
	gravity  = 9.80665 // m/s²
	inchPerM = 39.37
	friction = 0.015

	viscousScale = 8.0
)

var viscousNormalize = 1 / viscousFluidRaw(1)

type mode int

const (
	scrollMode mode = iota
	flingMode
)

// Scroller animates a position towards a target, either along a fixed
// duration curve (StartScroll) or decelerating from an initial velocity
// (Fling).
type Scroller struct {
	now   func() time.Time
	decel float64 // px/s²

	mode     mode
	finished bool
	start    time.Time
	duration time.Duration

	startX, startY int
	finalX, finalY int
	currX, currY   int
	dx, dy         int

	velocity       float64
	coeffX, coeffY float64
	minX, maxX     int
	minY, maxY     int
}

// New returns a finished scroller for a screen of the given density.
// Now may be nil, in which case time.Now is used.
func New(dpi float64, now func() time.Time) *Scroller {
	if now == nil {
		now = time.Now
	}
	if dpi <= 0 {
		dpi = 160
	}
	return &Scroller{
		now:      now,
		decel:    gravity * inchPerM * dpi * friction,
		finished: true,
	}
}

// IsFinished reports whether the animation has reached its end.
func (s *Scroller) IsFinished() bool { return s.finished }

// ForceFinished stops or marks running the animation without moving.
func (s *Scroller) ForceFinished(f bool) { s.finished = f }

func (s *Scroller) CurrX() int  { return s.currX }
func (s *Scroller) CurrY() int  { return s.currY }
func (s *Scroller) FinalX() int { return s.finalX }
func (s *Scroller) FinalY() int { return s.finalY }

// StartScroll animates from sx, sy by dx, dy over d.
func (s *Scroller) StartScroll(sx, sy, dx, dy int, d time.Duration) {
	s.mode = scrollMode
	s.finished = false
	s.duration = d
	s.start = s.now()
	s.startX, s.startY = sx, sy
	s.currX, s.currY = sx, sy
	s.finalX, s.finalY = sx+dx, sy+dy
	s.dx, s.dy = dx, dy
}

// Fling starts a decelerating animation from sx, sy with velocity vx, vy
// in px/s. The position never leaves [minX, maxX] x [minY, maxY].
func (s *Scroller) Fling(sx, sy, vx, vy, minX, maxX, minY, maxY int) {
	s.mode = flingMode
	s.finished = false

	v := math.Hypot(float64(vx), float64(vy))
	s.velocity = v
	s.duration = time.Duration(v / s.decel * float64(time.Second))
	s.start = s.now()
	s.startX, s.startY = sx, sy
	s.currX, s.currY = sx, sy

	s.coeffX, s.coeffY = 1, 1
	if v != 0 {
		s.coeffX = float64(vx) / v
		s.coeffY = float64(vy) / v
	}
	total := v * v / (2 * s.decel)

	s.minX, s.maxX = minX, maxX
	s.minY, s.maxY = minY, maxY
	s.finalX = clamp(sx+int(math.Round(total*s.coeffX)), minX, maxX)
	s.finalY = clamp(sy+int(math.Round(total*s.coeffY)), minY, maxY)
}

// ComputeScrollOffset advances the current position to now. It returns
// false once the animation had already finished before the call.
func (s *Scroller) ComputeScrollOffset() bool {
	if s.finished {
		return false
	}
	elapsed := s.now().Sub(s.start)
	if elapsed >= s.duration {
		s.currX, s.currY = s.finalX, s.finalY
		s.finished = true
		return true
	}
	switch s.mode {
	case scrollMode:
		x := viscousFluid(float64(elapsed) / float64(s.duration))
		s.currX = s.startX + int(math.Round(x*float64(s.dx)))
		s.currY = s.startY + int(math.Round(x*float64(s.dy)))
	case flingMode:
		t := elapsed.Seconds()
		dist := s.velocity*t - s.decel*t*t/2
		s.currX = clamp(s.startX+int(math.Round(dist*s.coeffX)), s.minX, s.maxX)
		s.currY = clamp(s.startY+int(math.Round(dist*s.coeffY)), s.minY, s.maxY)
		if s.currX == s.finalX && s.currY == s.finalY {
			s.finished = true
		}
	}
	return true
}

func viscousFluidRaw(x float64) float64 {
	x *= viscousScale
	if x < 1 {
		return x - (1 - math.Exp(-x))
	}
	start := 0.36787944117 // 1/e
	x = 1 - math.Exp(1-x)
	return start + x*(1-start)
}

func viscousFluid(x float64) float64 {
	return viscousFluidRaw(x) * viscousNormalize
}

func clamp(v, lo, hi int) int {
	if lo > hi {
		return v
	}
	return min(max(v, lo), hi)
}

// Package gesture turns a stream of pointer events into gestures: press,
// drag, fling, tap and two-finger pinch.
package gesture

import (
	"math"
	"time"
)

// Action is the kind of pointer event.
type Action int

const (
	Down        Action = iota // first pointer touches
	Move                      // one or more pointers moved
	Up                        // last pointer lifted
	PointerDown               // an additional pointer touches
	PointerUp                 // a pointer other than the last lifted
	Cancel                    // the stream was taken away
)

// Pointer is one contact point in viewport pixels.
type Pointer struct {
	ID   int
	X, Y float64
}

// Event is a pointer event. Pointers lists every contact down at the time
// of the event, including the one that changed.
type Event struct {
	Action   Action
	Pointers []Pointer
	Time     time.Time
	// Index identifies the pointer that changed for PointerDown and
	// PointerUp.
	Index int
}

// Listener receives gestures.
type Listener interface {
	OnDown(x, y float64)
	// OnScroll reports movement by dx, dy since the previous call.
	OnScroll(dx, dy float64)
	// OnFling reports the release velocity in px/s.
	OnFling(vx, vy float64)
	OnSingleTapUp(x, y float64)
	OnScaleBegin(fx, fy float64)
	// OnScale reports the span ratio since the previous call and the
	// current focus point.
	OnScale(factor, fx, fy float64)
	OnScaleEnd()
	// OnUp reports that every pointer has lifted.
	OnUp()
}

// Config holds the detector thresholds in pixels and px/s.
type Config struct {
	TouchSlop   float64
	MinFling    float64
	MaxFling    float64
	TapTimeout  time.Duration
	MinSpan     float64
	VelocityAge time.Duration
}

// DefaultConfig returns thresholds for a screen of the given density.
func DefaultConfig(dpi float64) Config {
	if dpi <= 0 {
		dpi = 160
	}
	d := dpi / 160
	return Config{
		TouchSlop:   8 * d,
		MinFling:    50 * d,
		MaxFling:    8000 * d,
		TapTimeout:  300 * time.Millisecond,
		MinSpan:     1,
		VelocityAge: 100 * time.Millisecond,
	}
}

type sample struct {
	x, y float64
	t    time.Time
}

// Detector tracks one gesture at a time.
type Detector struct {
	cfg Config
	l   Listener

	downX, downY float64
	downTime     time.Time
	lastX, lastY float64
	moved        bool
	scaled       bool
	primary      int

	scaling  bool
	prevSpan float64
	samples  []sample
}

// NewDetector makes a detector delivering gestures to l.
func NewDetector(cfg Config, l Listener) *Detector {
	return &Detector{cfg: cfg, l: l}
}

// InProgress reports whether a pinch is under way.
func (d *Detector) InProgress() bool { return d.scaling }

// OnEvent feeds one pointer event.
func (d *Detector) OnEvent(ev Event) {
	switch ev.Action {
	case Down:
		if len(ev.Pointers) == 0 {
			return
		}
		p := ev.Pointers[0]
		d.primary = p.ID
		d.downX, d.downY = p.X, p.Y
		d.lastX, d.lastY = p.X, p.Y
		d.downTime = ev.Time
		d.moved, d.scaled, d.scaling = false, false, false
		d.samples = d.samples[:0]
		d.track(p.X, p.Y, ev.Time)
		d.l.OnDown(p.X, p.Y)

	case PointerDown:
		if len(ev.Pointers) >= 2 && !d.scaling {
			span, fx, fy := spanFocus(ev.Pointers)
			if span >= d.cfg.MinSpan {
				d.scaling, d.scaled = true, true
				d.prevSpan = span
				d.l.OnScaleBegin(fx, fy)
			}
		}

	case Move:
		if d.scaling && len(ev.Pointers) >= 2 {
			span, fx, fy := spanFocus(ev.Pointers)
			if span >= d.cfg.MinSpan && d.prevSpan > 0 {
				d.l.OnScale(span/d.prevSpan, fx, fy)
				d.prevSpan = span
			}
			return
		}
		p, ok := find(ev.Pointers, d.primary)
		if !ok {
			return
		}
		d.track(p.X, p.Y, ev.Time)
		if !d.moved {
			if math.Hypot(p.X-d.downX, p.Y-d.downY) <= d.cfg.TouchSlop {
				return
			}
			d.moved = true
		}
		d.l.OnScroll(p.X-d.lastX, p.Y-d.lastY)
		d.lastX, d.lastY = p.X, p.Y

	case PointerUp:
		if ev.Index < 0 || ev.Index >= len(ev.Pointers) {
			return
		}
		gone := ev.Pointers[ev.Index].ID
		rest := make([]Pointer, 0, len(ev.Pointers)-1)
		for i, p := range ev.Pointers {
			if i != ev.Index {
				rest = append(rest, p)
			}
		}
		if d.scaling && len(rest) < 2 {
			d.scaling = false
			d.l.OnScaleEnd()
		}
		if len(rest) == 0 {
			return
		}
		if gone == d.primary {
			d.primary = rest[0].ID
		}
		if p, ok := find(rest, d.primary); ok {
			// Resume dragging from where the remaining pointer is.
			d.lastX, d.lastY = p.X, p.Y
			d.samples = d.samples[:0]
			d.moved = true
		}

	case Up:
		if d.scaling {
			d.scaling = false
			d.l.OnScaleEnd()
		}
		var ux, uy float64
		if p, ok := find(ev.Pointers, d.primary); ok {
			ux, uy = p.X, p.Y
			d.track(p.X, p.Y, ev.Time)
		} else {
			ux, uy = d.lastX, d.lastY
		}
		switch {
		case d.scaled:
		case !d.moved && ev.Time.Sub(d.downTime) <= d.cfg.TapTimeout:
			d.l.OnSingleTapUp(ux, uy)
		case d.moved:
			vx, vy := d.velocity()
			if math.Abs(vx) >= d.cfg.MinFling || math.Abs(vy) >= d.cfg.MinFling {
				d.l.OnFling(clampAbs(vx, d.cfg.MaxFling), clampAbs(vy, d.cfg.MaxFling))
			}
		}
		d.l.OnUp()

	case Cancel:
		if d.scaling {
			d.scaling = false
			d.l.OnScaleEnd()
		}
		d.l.OnUp()
	}
}

func (d *Detector) track(x, y float64, t time.Time) {
	d.samples = append(d.samples, sample{x, y, t})
	cut := 0
	for cut < len(d.samples)-1 && t.Sub(d.samples[cut].t) > d.cfg.VelocityAge {
		cut++
	}
	if cut > 0 {
		d.samples = append(d.samples[:0], d.samples[cut:]...)
	}
}

func (d *Detector) velocity() (float64, float64) {
	if len(d.samples) < 2 {
		return 0, 0
	}
	a, b := d.samples[0], d.samples[len(d.samples)-1]
	dt := b.t.Sub(a.t).Seconds()
	if dt <= 0 {
		return 0, 0
	}
	return (b.x - a.x) / dt, (b.y - a.y) / dt
}

func find(ps []Pointer, id int) (Pointer, bool) {
	for _, p := range ps {
		if p.ID == id {
			return p, true
		}
	}
	return Pointer{}, false
}

func spanFocus(ps []Pointer) (span, fx, fy float64) {
	a, b := ps[0], ps[1]
	return math.Hypot(a.X-b.X, a.Y-b.Y), (a.X + b.X) / 2, (a.Y + b.Y) / 2
}

func clampAbs(v, m float64) float64 {
	return math.Max(-m, math.Min(m, v))
}

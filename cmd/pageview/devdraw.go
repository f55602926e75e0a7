package main

import (
	"fmt"
	"image"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rjkroege/pageview/draw"
	"github.com/rjkroege/pageview/internal/drawutil"
	"github.com/rjkroege/pageview/internal/gesture"
	"github.com/rjkroege/pageview/viewer"
)

const (
	button1    = 1
	button3    = 4
	wheelUp    = 8
	wheelDown  = 16
	wheelLine  = 40  // pixels panned by one wheel click by default
	zoomPixels = 200 // button 3 drag that doubles the zoom
)

// drawHost shows the controller in a devdraw window. Button 1 acts as a
// finger, the wheel pans and a button 3 drag zooms about where it began.
type drawHost struct {
	viewer.NopHooks

	s       *session
	c       *viewer.Controller
	display draw.Display
	frame   draw.Frame
	buf     *image.RGBA
	dirty   bool
	plumber *plumber

	b1     bool
	b3     bool
	zoomAt image.Point
	zoomY  int
}

func (h *drawHost) OnInvalidate()             { h.dirty = true }
func (h *drawHost) OnExternalLink(uri string) { h.plumber.send(uri) }
func (h *drawHost) OnNoMatch(query string) {
	viewer.Logger().Info("no match", "query", query)
}
func (h *drawHost) OnRenderError(page int, err error) {
	viewer.Logger().Warn("render failed", "page", page+1, "err", err)
}

func runDraw(s *session, cfg viewer.Config, w, h int) error {
	var rerr error
	draw.Main(func(dev *draw.Device) {
		rerr = drawMain(dev, s, cfg, fmt.Sprintf("%dx%d", w, h))
	})
	return rerr
}

func drawMain(dev *draw.Device, s *session, cfg viewer.Config, winsize string) error {
	errch := make(chan error, 1)
	display, err := dev.NewDisplay(errch, "", "pageview", winsize)
	if err != nil {
		return fmt.Errorf("can't open display: %v", err)
	}
	if err := display.Attach(draw.Refnone); err != nil {
		return fmt.Errorf("failed to attach to window: %v", err)
	}
	h := &drawHost{s: s, display: display, plumber: openPlumber()}
	defer h.plumber.Close()

	r := display.ScreenImage().R()
	if err := s.start(cfg, h, r.Dx(), r.Dy()); err != nil {
		return err
	}
	defer s.stop()
	h.c = s.c
	defer h.frame.Free()
	h.resize()

	mousectl := display.InitMouse()
	keyboardctl := display.InitKeyboard()
	csignal := make(chan os.Signal, 1)
	signal.Notify(csignal, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(csignal)

	for {
		select {
		case <-h.c.Ready():
			h.c.Dispatch()
		case m := <-mousectl.C:
			h.mouse(m)
		case <-mousectl.Resize:
			if err := display.Attach(draw.Refnone); err != nil {
				return fmt.Errorf("failed to attach to window: %v", err)
			}
			h.resize()
		case r := <-keyboardctl.C:
			if !key(h.c, r) {
				return nil
			}
		case err := <-errch:
			return err
		case <-csignal:
			return nil
		}
		if h.dirty {
			if err := h.redraw(); err != nil {
				return err
			}
		}
	}
}

func (h *drawHost) resize() {
	r := h.display.ScreenImage().R()
	if h.buf == nil || h.buf.Bounds().Size() != r.Size() {
		h.buf = image.NewRGBA(image.Rectangle{Max: r.Size()})
	}
	h.s.resize(r.Dx(), r.Dy())
	h.dirty = true
}

func (h *drawHost) redraw() error {
	h.dirty = false
	screen := h.display.ScreenImage()
	h.c.Paint(h.buf)
	if err := h.frame.Upload(screen, screen.R().Min, h.buf); err != nil {
		return err
	}
	return h.display.Flush()
}

func (h *drawHost) mouse(m draw.Mouse) {
	r := h.display.ScreenImage().R()
	p := m.Point.Sub(r.Min)
	ev := func(a gesture.Action) gesture.Event {
		return gesture.Event{
			Action:   a,
			Time:     time.Now(),
			Pointers: []gesture.Pointer{{ID: 1, X: float64(p.X), Y: float64(p.Y)}},
		}
	}

	switch {
	case m.Buttons&wheelUp != 0:
		h.c.Pan(0, float64(drawutil.WheelScrollSize(r.Dy(), wheelLine)))
		return
	case m.Buttons&wheelDown != 0:
		h.c.Pan(0, -float64(drawutil.WheelScrollSize(r.Dy(), wheelLine)))
		return
	}

	b1 := m.Buttons&button1 != 0
	switch {
	case b1 && !h.b1:
		h.c.Pointer(ev(gesture.Down))
	case b1 && h.b1:
		h.c.Pointer(ev(gesture.Move))
	case !b1 && h.b1:
		h.c.Pointer(ev(gesture.Up))
	}
	h.b1 = b1

	b3 := m.Buttons&button3 != 0 && !b1
	switch {
	case b3 && !h.b3:
		h.zoomAt, h.zoomY = p, p.Y
	case b3 && p.Y != h.zoomY:
		f := math.Exp2(float64(h.zoomY-p.Y) / zoomPixels)
		h.c.Zoom(f, float64(h.zoomAt.X), float64(h.zoomAt.Y))
		h.zoomY = p.Y
	}
	h.b3 = b3
}

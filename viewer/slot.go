package viewer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync/atomic"

	"github.com/rjkroege/pageview/engine"
	"github.com/rjkroege/pageview/internal/bitmap"
	"github.com/rjkroege/pageview/internal/task"
)

// SlotState is the rendering state of a page slot.
type SlotState int

const (
	Blank SlotState = iota
	SizingPending
	LowResPending
	LowResReady
	Error
)

func (s SlotState) String() string {
	switch s {
	case Blank:
		return "Blank"
	case SizingPending:
		return "SizingPending"
	case LowResPending:
		return "LowResPending"
	case LowResReady:
		return "LowResReady"
	case Error:
		return "Error"
	}
	return fmt.Sprintf("SlotState(%d)", int(s))
}

// PatchState is the high-resolution sub-state of a LowResReady slot.
type PatchState int

const (
	NoPatch PatchState = iota
	PatchPending
	PatchReady
)

func (s PatchState) String() string {
	switch s {
	case NoPatch:
		return "NoPatch"
	case PatchPending:
		return "PatchPending"
	case PatchReady:
		return "PatchReady"
	}
	return fmt.Sprintf("PatchState(%d)", int(s))
}

// fallbackSize stands in for a page that cannot be measured.
var fallbackSize = engine.Size{W: 612, H: 792}

// slotGens is shared by every controller so that a generation is never
// reused, even by a slot of a later document.
var slotGens atomic.Uint64

// pageLink is a link region with its target resolved off the interactive
// goroutine. Target is -1 for external and unresolvable links.
type pageLink struct {
	engine.Link
	Target int
}

type patchResult struct {
	bm   *bitmap.Bitmap
	area image.Rectangle
	view image.Point
}

// Slot renders one page of the window. It owns a low-resolution buffer
// covering the whole page at the fit-to-viewport size and, while the view
// is settled on it, a high-resolution patch covering the visible part of
// the page. Render work runs on the slot's own sequence; results come back
// as messages tagged with the slot generation. Slot methods are called only
// on the interactive goroutine.
type Slot struct {
	page int
	src  *Source
	post func(message)
	seq  *task.Sequence

	gen   uint64
	state SlotState
	err   error

	sourceScale float64
	minZoom     image.Point // page size in pixels at minimum zoom

	// frame is where the slot is laid out, in viewport pixels, and
	// measured its size at the current zoom.
	frame    image.Rectangle
	measured image.Point

	lowres   *bitmap.Bitmap
	lowTask  *task.Task[*bitmap.Bitmap]
	linkTask *task.Task[[]pageLink]

	patchState PatchState
	patchGen   uint64
	patch      *bitmap.Bitmap
	patchLease bool
	patchArea  image.Rectangle
	patchView  image.Point
	patchTask  *task.Task[patchResult]
	wantArea   image.Rectangle
	wantView   image.Point

	highlights [][]engine.Quad
	links      []pageLink
}

func newSlot(page int, src *Source, post func(message)) *Slot {
	return &Slot{
		page: page,
		src:  src,
		post: post,
		seq:  task.NewSequence(fmt.Sprintf("page %d", page)),
		gen:  slotGens.Add(1),
	}
}

// Page returns the page index the slot renders.
func (s *Slot) Page() int { return s.page }

// State returns the rendering state.
func (s *Slot) State() SlotState { return s.state }

// Patch returns the high-resolution sub-state.
func (s *Slot) Patch() PatchState { return s.patchState }

// Frame returns where the slot was last laid out.
func (s *Slot) Frame() image.Rectangle { return s.frame }

// Err returns the failure that put the slot in the Error state.
func (s *Slot) Err() error { return s.err }

// blank resets the slot to show nothing until its size is known. The
// minimum zoom size falls back to the viewport.
func (s *Slot) blank(viewport image.Point) {
	s.cancel()
	s.gen = slotGens.Add(1)
	s.state = Blank
	s.err = nil
	s.links = nil
	if s.minZoom == (image.Point{}) {
		s.minZoom = viewport
	}
}

// cancel stops all work for the slot and gives back its buffers. Buffers
// held by running tasks are returned by the tasks' cleanup.
func (s *Slot) cancel() {
	if s.lowTask != nil {
		s.lowTask.Cancel()
		s.lowTask = nil
	}
	if s.linkTask != nil {
		s.linkTask.Cancel()
		s.linkTask = nil
	}
	s.removePatch()
	if s.lowres != nil {
		s.src.pool.Put(s.lowres)
		s.lowres = nil
	}
}

// setup starts the slot's life: either the size is cached and rendering
// starts at once, or the size is requested. A cached size failure is
// returned.
func (s *Slot) setup(viewport image.Point, cfg engine.RenderConfig) error {
	s.blank(viewport)
	if size, err, ok := s.src.Size(s.page); ok {
		return s.setPage(viewport, size, err, cfg)
	}
	s.state = SizingPending
	s.src.RequestSize(s.page)
	return nil
}

// restyle renders the page again with cfg. The low-resolution buffer on
// show stays there until its replacement lands.
func (s *Slot) restyle(viewport image.Point, cfg engine.RenderConfig) error {
	stale := s.lowres
	s.lowres = nil
	err := s.setup(viewport, cfg)
	if s.state == Error {
		s.src.pool.Put(stale)
	} else {
		s.lowres = stale
	}
	return err
}

// setPage computes the minimum zoom size and starts the low-resolution
// render. A size failure leaves the slot in Error with the fallback size
// so layout can go on.
func (s *Slot) setPage(viewport image.Point, size engine.Size, err error, cfg engine.RenderConfig) error {
	if err != nil {
		s.state = Error
		s.err = err
		size = fallbackSize
	}
	s.sourceScale = min(float64(viewport.X)/size.W, float64(viewport.Y)/size.H)
	s.minZoom = image.Pt(int(size.W*s.sourceScale), int(size.H*s.sourceScale))
	if s.state == Error {
		return s.err
	}
	s.state = LowResPending
	s.renderLowRes(cfg)
	return nil
}

func paperColor(cfg engine.RenderConfig) color.Color {
	if cfg.Invert {
		return color.Black
	}
	return color.White
}

func (s *Slot) renderLowRes(cfg engine.RenderConfig) {
	var (
		doc    = s.src.doc
		pool   = s.src.pool
		page   = s.page
		size   = s.minZoom
		bm     *bitmap.Bitmap
		handed bool
	)
	t := task.New(s.gen, func(ctx context.Context) (*bitmap.Bitmap, error) {
		b, err := pool.Get()
		if err != nil {
			return nil, err
		}
		bm = b
		b.Clear(paperColor(cfg))
		if err := doc.Draw(ctx, b.RGBA, page, size.X, size.Y, image.Rect(0, 0, size.X, size.Y), cfg); err != nil {
			return nil, err
		}
		b.Valid = image.Rect(0, 0, size.X, size.Y)
		handed = true
		return b, nil
	}, func() {
		if bm != nil && !handed {
			pool.Put(bm)
		}
	})
	s.lowTask = t
	Logger().Debug("low-res render queued", "page", page, "gen", s.gen, "size", size)
	task.Submit(s.seq, t, func(out task.Outcome[*bitmap.Bitmap]) {
		s.post(lowResDone{pool: pool, page: page, out: out})
	})
}

// fetchLinks loads the page's link regions and resolves internal targets.
func (s *Slot) fetchLinks() {
	doc, page := s.src.doc, s.page
	t := task.New(s.gen, func(ctx context.Context) ([]pageLink, error) {
		links, err := doc.Links(ctx, page)
		if err != nil {
			return nil, err
		}
		out := make([]pageLink, 0, len(links))
		for _, l := range links {
			pl := pageLink{Link: l, Target: -1}
			if !l.IsExternal() {
				if n, err := doc.ResolveLink(l); err == nil {
					pl.Target = n
				}
			}
			out = append(out, pl)
		}
		return out, nil
	}, nil)
	s.linkTask = t
	task.Submit(s.seq, t, func(out task.Outcome[[]pageLink]) {
		s.post(linksDone{page: page, out: out})
	})
}

// lowResArrived swaps in a rendered buffer. It reports whether the slot
// changed.
func (s *Slot) lowResArrived(out task.Outcome[*bitmap.Bitmap]) (bool, error) {
	if out.Gen != s.gen || s.state != LowResPending {
		if out.OK() {
			s.src.pool.Put(out.Value)
		}
		return false, nil
	}
	s.lowTask = nil
	switch {
	case out.Cancelled:
		return false, nil
	case out.Err != nil:
		s.state = Error
		s.err = &engine.RenderError{Page: s.page, Err: out.Err}
		if s.lowres != nil {
			s.src.pool.Put(s.lowres)
			s.lowres = nil
		}
		return true, s.err
	}
	if s.lowres != nil {
		s.src.pool.Put(s.lowres)
	}
	s.lowres = out.Value
	s.state = LowResReady
	s.fetchLinks()
	return true, nil
}

func (s *Slot) linksArrived(out task.Outcome[[]pageLink]) bool {
	if out.Gen != s.gen {
		return false
	}
	s.linkTask = nil
	if !out.OK() {
		if out.Err != nil {
			Logger().Warn("cannot load links", "page", s.page, "err", out.Err)
		}
		return false
	}
	s.links = out.Value
	return true
}

// setFrame lays the slot out. A patch made for a different view size is
// discarded.
func (s *Slot) setFrame(r image.Rectangle) {
	s.frame = r
	if s.patchState != NoPatch && s.wantView != r.Size() {
		s.removePatch()
	}
}

// updatePatch asks for a high-resolution patch of the part of the slot
// visible in viewport. With update set an unchanged area is refreshed
// incrementally; without it an unchanged area is left alone.
func (s *Slot) updatePatch(viewport image.Point, update bool, cfg engine.RenderConfig) {
	if s.state != LowResReady {
		if s.state == Error {
			s.removePatch()
		}
		return
	}
	view := s.frame
	if view.Dx() == s.minZoom.X || view.Dy() == s.minZoom.Y {
		s.removePatch()
		return
	}
	patchView := view.Size()
	area := image.Rectangle{Max: viewport}.Intersect(view)
	if area.Empty() {
		return
	}
	area = area.Sub(view.Min)

	unchanged := s.patchState != NoPatch && area == s.wantArea && patchView == s.wantView
	if unchanged && !update {
		return
	}
	complete := !(unchanged && update)

	if s.patchTask != nil {
		s.patchTask.Cancel()
		s.patchTask = nil
	}
	// A patch on show hands its lease to the replacement render.
	leased := s.patchLease
	s.patchLease = false
	s.patch = nil
	s.patchGen++
	s.patchState = PatchPending
	s.wantArea, s.wantView = area, patchView

	var (
		doc    = s.src.doc
		shared = s.src.shared
		page   = s.page
		handed bool
	)
	t := task.New(s.patchGen, func(ctx context.Context) (patchResult, error) {
		var b *bitmap.Bitmap
		var err error
		if leased {
			b, err = shared.Held()
		} else if b, err = shared.Acquire(ctx); err == nil {
			leased = true
		}
		if err != nil {
			return patchResult{}, err
		}
		if complete {
			b.Clear(paperColor(cfg))
			err = doc.Draw(ctx, b.RGBA, page, patchView.X, patchView.Y, area, cfg)
		} else {
			err = doc.UpdatePatch(ctx, b.RGBA, page, patchView.X, patchView.Y, area, cfg)
		}
		if err != nil {
			return patchResult{}, err
		}
		b.Valid = image.Rect(0, 0, area.Dx(), area.Dy())
		handed = true
		return patchResult{bm: b, area: area, view: patchView}, nil
	}, func() {
		if leased && !handed {
			shared.Release()
		}
	})
	s.patchTask = t
	gen := s.gen
	Logger().Debug("patch render queued", "page", page, "area", area, "view", patchView, "complete", complete)
	task.Submit(s.seq, t, func(out task.Outcome[patchResult]) {
		s.post(patchDone{shared: shared, page: page, gen: gen, out: out})
	})
}

// patchArrived swaps in a rendered patch. Stale patches give their lease
// back.
func (s *Slot) patchArrived(gen uint64, out task.Outcome[patchResult]) (bool, error) {
	if gen != s.gen || out.Gen != s.patchGen || s.patchState != PatchPending {
		if out.OK() {
			s.src.shared.Release()
		}
		return false, nil
	}
	s.patchTask = nil
	switch {
	case out.Cancelled:
		s.patchState = NoPatch
		return false, nil
	case out.Err != nil:
		s.patchState = NoPatch
		s.wantArea, s.wantView = image.Rectangle{}, image.Point{}
		return true, &engine.RenderError{Page: s.page, Err: out.Err}
	}
	s.patch = out.Value.bm
	s.patchLease = true
	s.patchArea = out.Value.area
	s.patchView = out.Value.view
	s.patchState = PatchReady
	return true, nil
}

// removePatch cancels any patch render and drops the patch on show.
func (s *Slot) removePatch() {
	if s.patchTask != nil {
		s.patchTask.Cancel()
		s.patchTask = nil
	}
	if s.patchLease {
		s.src.shared.Release()
		s.patchLease = false
	}
	s.patch = nil
	s.patchGen++
	s.patchState = NoPatch
	s.patchArea, s.patchView = image.Rectangle{}, image.Point{}
	s.wantArea, s.wantView = image.Rectangle{}, image.Point{}
}

// release cancels everything and retires the slot's sequence.
func (s *Slot) release() {
	s.cancel()
	s.gen = slotGens.Add(1)
	s.state = Blank
	s.highlights = nil
	s.links = nil
	s.seq.Close()
}

// scale is the factor from page units to the slot's laid out pixels.
func (s *Slot) scale() float64 {
	if s.minZoom.X == 0 {
		return 0
	}
	return s.sourceScale * float64(s.frame.Dx()) / float64(s.minZoom.X)
}

// hitLink returns the link under viewport point x, y.
func (s *Slot) hitLink(x, y float64) (pageLink, bool) {
	sc := s.scale()
	if sc == 0 {
		return pageLink{}, false
	}
	px := (x - float64(s.frame.Min.X)) / sc
	py := (y - float64(s.frame.Min.Y)) / sc
	for _, l := range s.links {
		if l.Bounds.Contains(px, py) {
			return l, true
		}
	}
	return pageLink{}, false
}

type lowResDone struct {
	pool *bitmap.Pool
	page int
	out  task.Outcome[*bitmap.Bitmap]
}

func (m lowResDone) apply(c *Controller) {
	s := c.slots[m.page]
	if s == nil || s.src.pool != m.pool {
		if m.out.OK() {
			m.pool.Put(m.out.Value)
		}
		return
	}
	changed, err := s.lowResArrived(m.out)
	if err != nil {
		Logger().Warn("render failed", "page", m.page, "err", err)
		c.hooks.OnRenderError(m.page, err)
	}
	if changed {
		c.invalidate()
		if m.page == c.current && c.isSettled() {
			c.postSettle(s)
		}
	}
}

type linksDone struct {
	page int
	out  task.Outcome[[]pageLink]
}

func (m linksDone) apply(c *Controller) {
	if s := c.slots[m.page]; s != nil && s.linksArrived(m.out) {
		c.invalidate()
	}
}

type patchDone struct {
	shared *bitmap.Shared
	page   int
	gen    uint64
	out    task.Outcome[patchResult]
}

func (m patchDone) apply(c *Controller) {
	s := c.slots[m.page]
	if s == nil || s.src.shared != m.shared {
		if m.out.OK() {
			m.shared.Release()
		}
		return
	}
	changed, err := s.patchArrived(m.gen, m.out)
	if err != nil {
		Logger().Warn("patch render failed", "page", m.page, "err", err)
		c.hooks.OnRenderError(m.page, err)
	}
	if changed {
		c.invalidate()
	}
}

// Package viewer implements a gesture driven viewport over a paginated
// document. A Controller keeps at most three pages materialized around the
// current one, renders each at a cheap fit-to-screen resolution at once
// and at full resolution only for the visible part of the current page
// once the view has settled. It interprets pointer gestures into panning,
// flinging, pinch zooming and tap paging, keeps a jump history and runs
// text searches in the background.
//
// A Controller is driven from a single goroutine. Background work reports
// back through a mailbox: the host waits on Ready and calls Dispatch.
package viewer

import (
	"context"
	"errors"
	"image"
	"math"

	"github.com/rjkroege/pageview/engine"
	"github.com/rjkroege/pageview/internal/gesture"
	"github.com/rjkroege/pageview/internal/scroller"
	"github.com/rjkroege/pageview/internal/task"
)

// Controller is the viewport over one open document.
type Controller struct {
	cfg     Config
	hooks   Hooks
	mbox    *mailbox
	stepper stepper

	doc   engine.Document
	src   *Source
	count int

	w, h        int
	current     int
	scale       float64
	xScroll     int // scroll amounts recorded from events,
	yScroll     int // accounted for by layout
	resetLayout bool
	dirty       bool

	slots map[int]*Slot

	userInteracting bool
	scaling         bool
	tapDisabled     bool
	lastFocusX      float64
	lastFocusY      float64

	scroller      *scroller.Scroller
	scrollerLastX int
	scrollerLastY int
	detector      *gesture.Detector

	history []int

	searcher *searcher
	result   *SearchResult

	outline []engine.OutlineItem

	settled    bool
	lastSettle settleKey
}

type settleKey struct {
	page  int
	scale float64
	frame image.Rectangle
}

// New makes a controller with no document. Hooks may be nil.
func New(cfg Config, hooks Hooks) *Controller {
	if hooks == nil {
		hooks = NopHooks{}
	}
	def := DefaultConfig()
	if cfg.MinScale <= 0 {
		cfg.MinScale = def.MinScale
	}
	if cfg.MaxScale < cfg.MinScale {
		cfg.MaxScale = def.MaxScale
	}
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	if cfg.MaxBitmaps <= 0 {
		cfg.MaxBitmaps = def.MaxBitmaps
	}
	c := &Controller{
		cfg:      cfg,
		hooks:    hooks,
		mbox:     newMailbox(),
		scale:    1,
		slots:    make(map[int]*Slot),
		scroller: scroller.New(cfg.DPI, cfg.Clock),
	}
	c.stepper = stepper{post: c.mbox.post, interval: cfg.FrameInterval}
	gcfg := gesture.DefaultConfig(cfg.DPI)
	if cfg.Gesture != nil {
		gcfg = *cfg.Gesture
	}
	c.detector = gesture.NewDetector(gcfg, listener{c})
	return c
}

// Open shows doc from its first page. A document without pages cannot be
// opened. Any previously open document is closed first.
func (c *Controller) Open(doc engine.Document) error {
	c.Close()
	n := doc.CountPages()
	if n <= 0 {
		return &engine.OpenError{Err: errors.New("document has no pages")}
	}
	c.doc = doc
	c.count = n
	c.src = newSource(doc, c.cfg.MaxBitmaps, c.mbox.post)
	c.src.Resize(c.w, c.h)
	c.searcher = newSearcher(c.mbox.post)
	c.current = 0
	c.scale = 1
	c.xScroll, c.yScroll = 0, 0
	c.history = nil
	c.result = nil
	c.settled = false
	c.loadOutline()
	Logger().Info("document open", "pages", n)

	c.resetLayout = true
	c.requestLayout()
	c.flush()
	return nil
}

// Close releases every page and stops background work. The document
// itself is left open; it belongs to the caller.
func (c *Controller) Close() {
	if c.doc == nil {
		return
	}
	var seqs []*Slot
	for i, s := range c.slots {
		s.release()
		seqs = append(seqs, s)
		delete(c.slots, i)
	}
	for _, s := range seqs {
		s.seq.Wait()
	}
	c.searcher.close()
	c.src.Close()
	c.scroller.ForceFinished(true)
	c.doc = nil
	c.searcher = nil
	// Work that finished meanwhile hands its buffers back as its messages
	// find no slot.
	for _, m := range c.mbox.take() {
		m.apply(c)
	}
	c.src = nil
	c.count = 0
	c.result = nil
	c.outline = nil
	c.history = nil
	c.invalidate()
}

// Resize sets the viewport size in pixels. Pages are re-fitted and
// re-rendered and the zoom is reset.
func (c *Controller) Resize(w, h int) {
	if w == c.w && h == c.h {
		return
	}
	c.w, c.h = w, h
	if c.src == nil {
		return
	}
	c.src.Resize(w, h)
	c.scale = 1
	c.xScroll, c.yScroll = 0, 0
	for _, s := range c.slots {
		s.minZoom = image.Point{}
		c.setupSlot(s)
	}
	c.resetLayout = true
	c.requestLayout()
	c.flush()
}

// Refresh forgets page sizes and renders, resets the zoom and rebuilds
// the window. Use it after the document has changed under the viewer.
func (c *Controller) Refresh() {
	if c.src == nil {
		return
	}
	c.resetLayout = true
	c.scale = 1
	c.xScroll, c.yScroll = 0, 0
	c.src.Refresh()
	if n, err := c.src.CountPages(); err == nil && n > 0 {
		c.count = n
		c.current = min(c.current, n-1)
	}
	for i, s := range c.slots {
		if i >= c.count {
			s.release()
			delete(c.slots, i)
			continue
		}
		c.setupSlot(s)
	}
	c.requestLayout()
	c.flush()
}

// Relayout reflows the document at font size em for the current viewport
// and keeps the reading position. History is cleared because page
// numbers change meaning.
func (c *Controller) Relayout(em float64) error {
	if c.doc == nil {
		return ErrNotOpen
	}
	if c.w <= 0 || c.h <= 0 {
		return errors.New("viewer: relayout before resize")
	}
	type reflowed struct{ count, target int }
	var (
		doc      = c.doc
		w        = float64(c.w) * 72 / c.cfg.DPI
		h        = float64(c.h) * 72 / c.cfg.DPI
		cur      = c.current
		progress = float64(c.current) / float64(c.count)
	)
	bm, marks := doc.(engine.Bookmarker)
	inBackground(c.src, func(ctx context.Context) (reflowed, error) {
		var mark int64
		if marks {
			mark = bm.Bookmark(cur)
		}
		if err := doc.Layout(w, h, em); err != nil {
			return reflowed{}, err
		}
		n := doc.CountPages()
		target := int(math.Round(progress * float64(n)))
		if marks {
			target = bm.PageOf(mark)
		}
		return reflowed{n, target}, nil
	}, func(c *Controller, out task.Outcome[reflowed]) {
		if !out.OK() {
			if out.Err != nil {
				Logger().Warn("relayout failed", "em", em, "err", out.Err)
			}
			return
		}
		Logger().Info("relayout", "em", em, "pages", out.Value.count)
		c.history = nil
		c.Refresh()
		c.loadOutline()
		c.SetDisplayedIndex(min(max(out.Value.target, 0), c.count-1))
	})
	return nil
}

// SetDisplayedIndex makes page i current. Out of range indexes and the
// current page are ignored.
func (c *Controller) SetDisplayedIndex(i int) {
	if c.doc == nil || i < 0 || i >= c.count || i == c.current {
		return
	}
	if s := c.slots[c.current]; s != nil {
		s.removePatch()
	}
	c.moveOffChild(c.current)
	c.current = i
	c.moveToChild(i)
	c.resetLayout = true
	c.requestLayout()
	c.flush()
}

// DisplayedIndex returns the current page.
func (c *Controller) DisplayedIndex() int { return c.current }

// PageCount returns the number of pages, zero when no document is open.
func (c *Controller) PageCount() int { return c.count }

// Scale returns the zoom factor.
func (c *Controller) Scale() float64 { return c.scale }

// SetLinksEnabled turns link hit testing and link highlighting on or off.
func (c *Controller) SetLinksEnabled(on bool) {
	c.cfg.LinksEnabled = on
	c.invalidate()
}

// LinksEnabled reports whether links are active.
func (c *Controller) LinksEnabled() bool { return c.cfg.LinksEnabled }

// SetRenderConfig changes how pages are drawn and re-renders the window.
// Pages keep showing their old rendering until the new one is ready.
func (c *Controller) SetRenderConfig(rc engine.RenderConfig) {
	if c.cfg.Render == rc {
		return
	}
	c.cfg.Render = rc
	for _, s := range c.slots {
		if err := s.restyle(c.viewport(), rc); err != nil {
			Logger().Warn("page size unavailable", "page", s.page, "err", err)
			c.hooks.OnRenderError(s.page, err)
		}
		c.measure(s)
	}
	c.requestLayout()
	c.flush()
}

// RenderConfig returns the render options in effect.
func (c *Controller) RenderConfig() engine.RenderConfig { return c.cfg.Render }

// Outline returns the flattened table of contents. It is loaded in the
// background after Open and Relayout and is nil until then or when the
// document has none.
func (c *Controller) Outline() []engine.OutlineItem { return c.outline }

// ResetupChildren reapplies the current search highlights to the pages in
// the window.
func (c *Controller) ResetupChildren() {
	for _, s := range c.slots {
		c.childSetup(s)
	}
}

// Ready is signalled when Dispatch has work to do.
func (c *Controller) Ready() <-chan struct{} { return c.mbox.ready }

// Dispatch applies pending background results and animation steps.
func (c *Controller) Dispatch() {
	for _, m := range c.mbox.take() {
		m.apply(c)
	}
	c.flush()
}

// Post queues fn to run on the goroutine that calls Dispatch. It is safe
// to call from any goroutine.
func (c *Controller) Post(fn func(*Controller)) {
	c.mbox.post(funcMsg(fn))
}

func (c *Controller) viewport() image.Point { return image.Pt(c.w, c.h) }

func (c *Controller) requestLayout() { c.dirty = true }

func (c *Controller) flush() {
	if c.dirty {
		c.dirty = false
		c.layout()
	}
}

func (c *Controller) invalidate() { c.hooks.OnInvalidate() }

func (c *Controller) isSettled() bool {
	return !c.userInteracting && c.scroller.IsFinished()
}

func (c *Controller) setupSlot(s *Slot) {
	if err := s.setup(c.viewport(), c.cfg.Render); err != nil {
		Logger().Warn("page size unavailable", "page", s.page, "err", err)
		c.hooks.OnRenderError(s.page, err)
	}
	c.measure(s)
}

func (c *Controller) setPage(s *Slot, size engine.Size, err error) {
	if err := s.setPage(c.viewport(), size, err, c.cfg.Render); err != nil {
		Logger().Warn("page size unavailable", "page", s.page, "err", err)
		c.hooks.OnRenderError(s.page, err)
	}
	c.measure(s)
	c.requestLayout()
	c.invalidate()
}

func (c *Controller) childSetup(s *Slot) {
	if c.result != nil && c.result.Page == s.page {
		s.highlights = c.result.Boxes
	} else {
		s.highlights = nil
	}
	c.hooks.OnChildSetup(s.page)
	c.invalidate()
}

func (c *Controller) moveToChild(i int) {
	if c.result != nil && c.result.Page != i {
		c.result = nil
		c.ResetupChildren()
	}
	c.settled = false
	c.hooks.OnMoveToChild(i)
	c.hooks.OnDisplayedIndexChanged(i)
}

func (c *Controller) moveOffChild(i int) {
	c.hooks.OnMoveOffChild(i)
}

func (c *Controller) loadOutline() {
	doc := c.doc
	c.outline = nil
	inBackground(c.src, func(ctx context.Context) ([]engine.OutlineItem, error) {
		if !doc.HasOutline() {
			return nil, nil
		}
		o, err := doc.Outline()
		if err != nil {
			return nil, err
		}
		return engine.FlattenOutline(o), nil
	}, func(c *Controller, out task.Outcome[[]engine.OutlineItem]) {
		if out.Err != nil {
			Logger().Warn("cannot load outline", "err", out.Err)
		}
		c.outline = out.Value
	})
}

// step advances a running animation by one frame, or, once nothing moves,
// declares the view settled.
func (c *Controller) step() {
	if c.doc == nil {
		return
	}
	if !c.scroller.IsFinished() {
		c.scroller.ComputeScrollOffset()
		x, y := c.scroller.CurrX(), c.scroller.CurrY()
		c.xScroll += x - c.scrollerLastX
		c.yScroll += y - c.scrollerLastY
		c.scrollerLastX, c.scrollerLastY = x, y
		c.requestLayout()
		c.stepper.prod()
	} else if !c.userInteracting {
		if s := c.slots[c.current]; s != nil {
			c.postSettle(s)
		}
	}
}

func (c *Controller) postSettle(s *Slot) {
	c.mbox.post(settleMsg{page: s.page, gen: s.gen})
}

func (c *Controller) postUnsettle(s *Slot) {
	c.mbox.post(unsettleMsg{page: s.page, gen: s.gen})
}

type settleMsg struct {
	page int
	gen  uint64
}

// apply asks the settled page for its high-resolution patch.
func (m settleMsg) apply(c *Controller) {
	s := c.slots[m.page]
	if s == nil || s.gen != m.gen {
		return
	}
	c.flush()
	if !c.isSettled() || m.page != c.current {
		return
	}
	c.UpdatePatch(false)
	key := settleKey{page: c.current, scale: c.scale, frame: s.frame}
	if !c.settled || key != c.lastSettle {
		c.settled = true
		c.lastSettle = key
		c.hooks.OnViewSettled(c.current)
	}
}

// UpdatePatch asks the current page for a high-resolution patch of the
// visible area. With update set an unchanged area is redrawn
// incrementally. It does nothing unless the view is settled.
func (c *Controller) UpdatePatch(update bool) {
	if !c.isSettled() {
		return
	}
	if s := c.slots[c.current]; s != nil {
		s.updatePatch(c.viewport(), update, c.cfg.Render)
	}
}

type unsettleMsg struct {
	page int
	gen  uint64
}

func (m unsettleMsg) apply(c *Controller) {
	if s := c.slots[m.page]; s != nil && s.gen == m.gen {
		s.removePatch()
		c.invalidate()
	}
}

// unsettle drops the current page's patch as soon as anything moves.
func (c *Controller) unsettle() {
	c.settled = false
	if s := c.slots[c.current]; s != nil && s.patchState != NoPatch {
		s.removePatch()
		c.invalidate()
	}
}

package viewer

import (
	"context"

	"github.com/rjkroege/pageview/engine"
	"github.com/rjkroege/pageview/internal/bitmap"
	"github.com/rjkroege/pageview/internal/task"
)

type sizeEntry struct {
	size engine.Size
	err  error
}

// Source supplies page counts and sizes for one open document and owns the
// buffers pages are rendered into. Sizes are resolved on a dedicated
// sequence, one request in flight per page. Source is used only from the
// interactive goroutine.
type Source struct {
	doc  engine.Document
	post func(message)

	sizing   *task.Sequence
	epoch    uint64
	sizes    map[int]sizeEntry
	inflight map[int]*task.Task[engine.Size]

	pool   *bitmap.Pool
	shared *bitmap.Shared

	closed bool
}

func newSource(doc engine.Document, maxBitmaps int, post func(message)) *Source {
	return &Source{
		doc:      doc,
		post:     post,
		sizing:   task.NewSequence("sizing"),
		sizes:    make(map[int]sizeEntry),
		inflight: make(map[int]*task.Task[engine.Size]),
		pool:     bitmap.NewPool(maxBitmaps),
		shared:   bitmap.NewShared(),
	}
}

// CountPages returns the number of pages in the document.
func (s *Source) CountPages() (int, error) {
	if s == nil || s.closed {
		return 0, engine.ErrNoDocument
	}
	return s.doc.CountPages(), nil
}

// Resize sets the viewport pixel size. Buffers are reallocated only when
// it differs from the previous size.
func (s *Source) Resize(w, h int) {
	s.pool.Resize(w, h)
	s.shared.Resize(w, h)
}

// Size returns the cached size of page, if known. A cached failure is
// returned as a *engine.SizeError.
func (s *Source) Size(page int) (engine.Size, error, bool) {
	e, ok := s.sizes[page]
	return e.size, e.err, ok
}

// RequestSize starts resolving the size of page unless it is cached or
// already being resolved. The answer arrives as a sizeResolved message.
func (s *Source) RequestSize(page int) {
	if s.closed {
		return
	}
	if _, ok := s.sizes[page]; ok {
		return
	}
	if _, ok := s.inflight[page]; ok {
		return
	}
	epoch := s.epoch
	doc := s.doc
	t := task.New(epoch, func(ctx context.Context) (engine.Size, error) {
		return doc.PageSize(ctx, page)
	}, nil)
	s.inflight[page] = t
	Logger().Debug("resolving page size", "page", page, "epoch", epoch)
	task.Submit(s.sizing, t, func(out task.Outcome[engine.Size]) {
		s.post(sizeResolved{src: s, page: page, out: out})
	})
}

// Refresh forgets every cached size. Results still in flight are dropped
// when they arrive.
func (s *Source) Refresh() {
	s.epoch++
	for _, t := range s.inflight {
		t.Cancel()
	}
	clear(s.inflight)
	clear(s.sizes)
}

// resolved records the outcome of a sizing task. It reports false for
// outcomes from before the last Refresh.
func (s *Source) resolved(page int, out task.Outcome[engine.Size]) bool {
	if s.closed || out.Gen != s.epoch {
		return false
	}
	delete(s.inflight, page)
	switch {
	case out.Cancelled:
		return false
	case out.Err != nil:
		s.sizes[page] = sizeEntry{err: &engine.SizeError{Page: page, Err: out.Err}}
	case out.Value.IsZero():
		s.sizes[page] = sizeEntry{err: &engine.SizeError{Page: page, Err: errEmptyPage}}
	default:
		s.sizes[page] = sizeEntry{size: out.Value}
	}
	return true
}

// inBackground runs run on the sizing sequence and delivers its result
// through deliver on the interactive goroutine, unless the source has
// been refreshed or closed in the meantime.
func inBackground[R any](s *Source, run func(context.Context) (R, error), deliver func(*Controller, task.Outcome[R])) *task.Task[R] {
	epoch := s.epoch
	t := task.New(epoch, run, nil)
	task.Submit(s.sizing, t, func(out task.Outcome[R]) {
		s.post(funcMsg(func(c *Controller) {
			if c.src != s || s.closed || s.epoch != epoch {
				return
			}
			deliver(c, out)
		}))
	})
	return t
}

// Close cancels outstanding sizing work and waits for the sizing sequence
// to drain.
func (s *Source) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, t := range s.inflight {
		t.Cancel()
	}
	clear(s.inflight)
	s.sizing.Close()
	s.sizing.Wait()
}

type sizeResolved struct {
	src  *Source
	page int
	out  task.Outcome[engine.Size]
}

func (m sizeResolved) apply(c *Controller) {
	if c.src != m.src || !m.src.resolved(m.page, m.out) {
		return
	}
	if s := c.slots[m.page]; s != nil && s.state == SizingPending {
		size, err, _ := c.src.Size(m.page)
		c.setPage(s, size, err)
	}
}

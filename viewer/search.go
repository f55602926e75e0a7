package viewer

import (
	"context"
	"errors"

	"github.com/rjkroege/pageview/engine"
	"github.com/rjkroege/pageview/internal/task"
)

// SearchResult is a page matching a query with the regions that match.
type SearchResult struct {
	Query string
	Page  int
	Boxes [][]engine.Quad
}

// searcher runs page scans one at a time on its own sequence. Starting a
// search cancels the one before it.
type searcher struct {
	seq  *task.Sequence
	post func(message)
	gen  uint64
	cur  *task.Task[*SearchResult]
}

func newSearcher(post func(message)) *searcher {
	return &searcher{seq: task.NewSequence("search"), post: post}
}

// search scans from page start in direction dir until a page matches or
// the index leaves [0, count).
func (s *searcher) search(doc engine.Document, query string, dir, start, count int) {
	s.cancel()
	t := task.New(s.gen, func(ctx context.Context) (*SearchResult, error) {
		for i := start; i >= 0 && i < count; i += dir {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			boxes, err := doc.SearchPage(ctx, i, query)
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				Logger().Warn("search failed", "page", i, "err", err)
				continue
			}
			if len(boxes) > 0 {
				return &SearchResult{Query: query, Page: i, Boxes: boxes}, nil
			}
		}
		return nil, ErrNoMatch
	}, nil)
	s.cur = t
	task.Submit(s.seq, t, func(out task.Outcome[*SearchResult]) {
		s.post(searchDone{s: s, query: query, out: out})
	})
}

// cancel stops the running scan. Its outcome, if already posted, is
// ignored.
func (s *searcher) cancel() {
	s.gen++
	if s.cur != nil {
		s.cur.Cancel()
		s.cur = nil
	}
}

func (s *searcher) close() {
	s.cancel()
	s.seq.Close()
	s.seq.Wait()
}

type searchDone struct {
	s     *searcher
	query string
	out   task.Outcome[*SearchResult]
}

func (m searchDone) apply(c *Controller) {
	if c.searcher != m.s || m.out.Gen != m.s.gen {
		return
	}
	m.s.cur = nil
	switch {
	case m.out.Cancelled:
		return
	case errors.Is(m.out.Err, ErrNoMatch):
		Logger().Info("no match", "query", m.query)
		c.hooks.OnNoMatch(m.query)
		return
	case m.out.Err != nil:
		Logger().Warn("search failed", "query", m.query, "err", m.out.Err)
		c.hooks.OnNoMatch(m.query)
		return
	}
	r := m.out.Value
	c.PushHistory()
	c.result = r
	c.SetDisplayedIndex(r.Page)
	c.ResetupChildren()
	c.hooks.OnSearchResult(r)
}

// Search looks for query in direction dir (positive forwards, otherwise
// backwards). A repeated search continues past the current result;
// otherwise it starts at the displayed page. The outcome arrives through
// OnSearchResult or OnNoMatch.
func (c *Controller) Search(query string, dir int) error {
	if c.doc == nil {
		return ErrNotOpen
	}
	if dir >= 0 {
		dir = 1
	} else {
		dir = -1
	}
	if c.result != nil && c.result.Query != query {
		c.ClearSearch()
	}
	start := c.current
	if c.result != nil {
		start = c.result.Page + dir
	}
	c.searcher.search(c.doc, query, dir, start, c.count)
	return nil
}

// ClearSearch cancels a running search and removes the highlights.
func (c *Controller) ClearSearch() {
	if c.searcher != nil {
		c.searcher.cancel()
	}
	if c.result != nil {
		c.result = nil
		c.ResetupChildren()
	}
}

// Result returns the current search result, or nil.
func (c *Controller) Result() *SearchResult { return c.result }

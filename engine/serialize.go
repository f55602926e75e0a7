package engine

import (
	"context"
	"errors"
	"image"
	gosync "sync"

	"github.com/rjkroege/pageview/internal/sync"
)

// ErrNoDocument is returned by calls on a closed document.
var ErrNoDocument = errors.New("no document open")

// Serialize wraps doc so that every call holds a single lock scoped to
// the handle. Calls made after Close fail with ErrNoDocument. The
// returned document implements Bookmarker when doc does.
func Serialize(doc Document) Document {
	s := &serialized{
		doc:  doc,
		lock: sync.NewHandleLocker(&gosync.Mutex{}),
	}
	if b, ok := doc.(Bookmarker); ok {
		return &serializedBookmarker{serialized: s, b: b}
	}
	return s
}

type serialized struct {
	doc  Document
	lock *sync.HandleLocker
}

func (s *serialized) with(fn func() error) error {
	err := s.lock.WithLock(fn)
	if errors.Is(err, sync.ErrClosed) {
		return ErrNoDocument
	}
	return err
}

func (s *serialized) CountPages() int {
	n := 0
	s.with(func() error {
		n = s.doc.CountPages()
		return nil
	})
	return n
}

func (s *serialized) PageSize(ctx context.Context, page int) (sz Size, err error) {
	err = s.with(func() error {
		sz, err = s.doc.PageSize(ctx, page)
		return err
	})
	return sz, err
}

func (s *serialized) Layout(w, h, em float64) error {
	return s.with(func() error { return s.doc.Layout(w, h, em) })
}

func (s *serialized) Draw(ctx context.Context, dst *image.RGBA, page, pageW, pageH int, patch image.Rectangle, cfg RenderConfig) error {
	return s.with(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.doc.Draw(ctx, dst, page, pageW, pageH, patch, cfg)
	})
}

func (s *serialized) UpdatePatch(ctx context.Context, dst *image.RGBA, page, pageW, pageH int, patch image.Rectangle, cfg RenderConfig) error {
	return s.with(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.doc.UpdatePatch(ctx, dst, page, pageW, pageH, patch, cfg)
	})
}

func (s *serialized) SearchPage(ctx context.Context, page int, text string) (q [][]Quad, err error) {
	err = s.with(func() error {
		q, err = s.doc.SearchPage(ctx, page, text)
		return err
	})
	return q, err
}

func (s *serialized) Links(ctx context.Context, page int) (l []Link, err error) {
	err = s.with(func() error {
		l, err = s.doc.Links(ctx, page)
		return err
	})
	return l, err
}

func (s *serialized) ResolveLink(l Link) (n int, err error) {
	err = s.with(func() error {
		n, err = s.doc.ResolveLink(l)
		return err
	})
	return n, err
}

func (s *serialized) HasOutline() bool {
	ok := false
	s.with(func() error {
		ok = s.doc.HasOutline()
		return nil
	})
	return ok
}

func (s *serialized) Outline() (o []Outline, err error) {
	err = s.with(func() error {
		o, err = s.doc.Outline()
		return err
	})
	return o, err
}

func (s *serialized) Close() error {
	err := s.lock.Close(s.doc.Close)
	if errors.Is(err, sync.ErrClosed) {
		return ErrNoDocument
	}
	return err
}

type serializedBookmarker struct {
	*serialized
	b Bookmarker
}

func (s *serializedBookmarker) Bookmark(page int) int64 {
	var m int64
	s.with(func() error {
		m = s.b.Bookmark(page)
		return nil
	})
	return m
}

func (s *serializedBookmarker) PageOf(mark int64) int {
	n := 0
	s.with(func() error {
		n = s.b.PageOf(mark)
		return nil
	})
	return n
}

// Package bitmap manages the pixel buffers pages are rendered into: a
// bounded pool of low-resolution page buffers shared by every slot and the
// one high-resolution patch buffer handed from holder to holder.
package bitmap

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/rjkroege/pageview/internal/logging"
)

// ErrExhausted is returned by Pool.Get when the buffer budget is spent.
var ErrExhausted = errors.New("bitmap pool exhausted")

// ErrNoSize is returned when a buffer is requested before the pool has
// been given a size.
var ErrNoSize = errors.New("bitmap pool has no size")

// Bitmap is a pixel buffer. Valid is the part of the buffer holding
// rendered pixels, relative to the buffer origin.
type Bitmap struct {
	*image.RGBA
	Valid image.Rectangle
}

func newBitmap(w, h int) *Bitmap {
	return &Bitmap{RGBA: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Clear fills the buffer with c and marks nothing valid.
func (b *Bitmap) Clear(c color.Color) {
	draw.Draw(b.RGBA, b.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	b.Valid = image.Rectangle{}
}

// Pool hands out equally sized buffers. At most Max buffers are out at a
// time; beyond that Get fails, which callers treat like running out of
// memory.
type Pool struct {
	mu   sync.Mutex
	w, h int
	max  int
	free []*Bitmap
	out  map[*Bitmap]struct{}
}

// NewPool makes an empty pool allowing max outstanding buffers.
func NewPool(max int) *Pool {
	return &Pool{max: max, out: make(map[*Bitmap]struct{})}
}

// Resize sets the size of buffers returned by Get. Free buffers of another
// size are dropped; outstanding ones are dropped when returned.
func (p *Pool) Resize(w, h int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.w == w && p.h == h {
		return
	}
	p.w, p.h = w, h
	p.free = nil
}

// Size returns the current buffer size.
func (p *Pool) Size() image.Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	return image.Pt(p.w, p.h)
}

// Get checks out a buffer of the current size.
func (p *Pool) Get() (*Bitmap, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.w <= 0 || p.h <= 0 {
		return nil, ErrNoSize
	}
	if p.max > 0 && len(p.out) >= p.max {
		return nil, ErrExhausted
	}
	var b *Bitmap
	if n := len(p.free); n > 0 {
		b = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		b = newBitmap(p.w, p.h)
	}
	b.Valid = image.Rectangle{}
	p.out[b] = struct{}{}
	return b, nil
}

// Put returns b to the pool. Returning a buffer twice, or one the pool
// never handed out, is logged and ignored.
func (p *Pool) Put(b *Bitmap) {
	if b == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.out[b]; !ok {
		logging.Logger().Warn("bitmap returned to pool twice", "bounds", b.Bounds())
		return
	}
	delete(p.out, b)
	if sz := b.Bounds().Size(); sz.X == p.w && sz.Y == p.h {
		p.free = append(p.free, b)
	}
}

// Outstanding returns the number of buffers checked out.
func (p *Pool) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.out)
}

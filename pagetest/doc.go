// Package pagetest contains fakes that help with testing the viewer: a
// scriptable document, a clock and a recording display.
package pagetest

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rjkroege/pageview/engine"
)

var _ = engine.Document((*Doc)(nil))

// Counts records how often each engine operation was called.
type Counts struct {
	Sizes    int
	Draws    int
	Updates  int
	Searches int
	Links    int
	Layouts  int
}

// Doc is an in-memory engine.Document. Pages are filled with a colour
// that identifies them, so rendered output can be checked. Operations can
// be made to fail or to block until released.
type Doc struct {
	mu       sync.Mutex
	sizes    []engine.Size
	text     []string
	links    map[int][]engine.Link
	targets  map[string]int
	sizeErr  map[int]error
	drawErr  map[int]error
	outline  []engine.Outline
	reflow   func(w, h, em float64) int
	gate     chan struct{}
	counts   Counts
	closed   bool
	lastDraw map[int]image.Point

	busy    atomic.Int32
	overlap atomic.Bool
}

// NewDoc returns a document of n pages of the given size.
func NewDoc(n int, size engine.Size) *Doc {
	d := &Doc{
		links:    make(map[int][]engine.Link),
		targets:  make(map[string]int),
		sizeErr:  make(map[int]error),
		drawErr:  make(map[int]error),
		lastDraw: make(map[int]image.Point),
	}
	d.sizes = make([]engine.Size, n)
	d.text = make([]string, n)
	for i := range d.sizes {
		d.sizes[i] = size
	}
	return d
}

// SetSize changes the size of page i.
func (d *Doc) SetSize(i int, size engine.Size) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sizes[i] = size
}

// SetText sets the searchable text of page i.
func (d *Doc) SetText(i int, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text[i] = text
}

// AddLink puts a link on page i. Internal links (uri starting with #)
// resolve to target.
func (d *Doc) AddLink(i int, bounds engine.Rect, uri string, target int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.links[i] = append(d.links[i], engine.Link{Bounds: bounds, URI: uri})
	if strings.HasPrefix(uri, "#") {
		d.targets[uri] = target
	}
}

// FailSize makes measuring page i fail with err.
func (d *Doc) FailSize(i int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sizeErr[i] = err
}

// FailDraw makes drawing page i fail with err. A nil err clears it.
func (d *Doc) FailDraw(i int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.drawErr, i)
		return
	}
	d.drawErr[i] = err
}

// SetOutline sets the table of contents.
func (d *Doc) SetOutline(o []engine.Outline) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outline = o
}

// SetReflow makes Layout change the page count to the value f returns.
func (d *Doc) SetReflow(f func(w, h, em float64) int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reflow = f
}

// Block makes Draw and UpdatePatch wait until Release or cancellation.
func (d *Doc) Block() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gate == nil {
		d.gate = make(chan struct{})
	}
}

// Release lets blocked draws continue.
func (d *Doc) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gate != nil {
		close(d.gate)
		d.gate = nil
	}
}

// Counts returns the operation counters.
func (d *Doc) Counts() Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts
}

// Overlapped reports whether two engine calls ever ran at once.
func (d *Doc) Overlapped() bool { return d.overlap.Load() }

// Closed reports whether Close was called.
func (d *Doc) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// LastDraw returns the page pixel size of the most recent full draw of
// page i.
func (d *Doc) LastDraw(i int) image.Point {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastDraw[i]
}

func (d *Doc) enter() func() {
	if d.busy.Add(1) > 1 {
		d.overlap.Store(true)
	}
	return func() { d.busy.Add(-1) }
}

// PageColor is the colour page i is filled with.
func PageColor(i int) color.RGBA {
	return color.RGBA{uint8(16 + 32*(i%7)), 0x80, uint8(0xf0 - 16*(i%9)), 0xff}
}

func (d *Doc) CountPages() int {
	defer d.enter()()
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sizes)
}

func (d *Doc) PageSize(ctx context.Context, i int) (engine.Size, error) {
	defer d.enter()()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts.Sizes++
	if i < 0 || i >= len(d.sizes) {
		return engine.Size{}, fmt.Errorf("page %d out of range", i)
	}
	if err := d.sizeErr[i]; err != nil {
		return engine.Size{}, err
	}
	return d.sizes[i], nil
}

func (d *Doc) Layout(w, h, em float64) error {
	defer d.enter()()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts.Layouts++
	if d.reflow == nil {
		return nil
	}
	n := d.reflow(w, h, em)
	size := engine.Size{W: w, H: h}
	d.sizes = make([]engine.Size, n)
	for i := range d.sizes {
		d.sizes[i] = size
	}
	text := make([]string, n)
	copy(text, d.text)
	d.text = text
	return nil
}

// wait blocks while the document is gated.
func (d *Doc) wait(ctx context.Context) error {
	d.mu.Lock()
	gate := d.gate
	d.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Doc) Draw(ctx context.Context, dst *image.RGBA, page, pageW, pageH int, patch image.Rectangle, cfg engine.RenderConfig) error {
	return d.render(ctx, dst, page, pageW, pageH, patch, cfg, false)
}

func (d *Doc) UpdatePatch(ctx context.Context, dst *image.RGBA, page, pageW, pageH int, patch image.Rectangle, cfg engine.RenderConfig) error {
	return d.render(ctx, dst, page, pageW, pageH, patch, cfg, true)
}

func (d *Doc) render(ctx context.Context, dst *image.RGBA, page, pageW, pageH int, patch image.Rectangle, cfg engine.RenderConfig, update bool) error {
	if err := d.wait(ctx); err != nil {
		return err
	}
	defer d.enter()()
	d.mu.Lock()
	if update {
		d.counts.Updates++
	} else {
		d.counts.Draws++
		d.lastDraw[page] = image.Pt(pageW, pageH)
	}
	err := d.drawErr[page]
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c := PageColor(page)
	if cfg.Invert {
		c = color.RGBA{0xff - c.R, 0xff - c.G, 0xff - c.B, 0xff}
	}
	r := image.Rect(0, 0, patch.Dx(), patch.Dy()).Intersect(dst.Bounds())
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
	return nil
}

// SearchPage returns one quad for each occurrence of text on page i. The
// quads are laid out as if each character were 10 units wide.
func (d *Doc) SearchPage(ctx context.Context, i int, text string) ([][]engine.Quad, error) {
	defer d.enter()()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts.Searches++
	if text == "" || i < 0 || i >= len(d.text) {
		return nil, nil
	}
	var hits [][]engine.Quad
	s := d.text[i]
	for off := 0; ; {
		j := strings.Index(s[off:], text)
		if j < 0 {
			break
		}
		x := float64(off+j) * 10
		r := engine.Rect{X0: x, Y0: 10, X1: x + float64(len(text))*10, Y1: 22}
		hits = append(hits, []engine.Quad{engine.QuadFromRect(r)})
		off += j + len(text)
	}
	return hits, nil
}

func (d *Doc) Links(ctx context.Context, i int) ([]engine.Link, error) {
	defer d.enter()()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts.Links++
	return append([]engine.Link(nil), d.links[i]...), nil
}

func (d *Doc) ResolveLink(l engine.Link) (int, error) {
	defer d.enter()()
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.targets[l.URI]
	if !ok {
		return -1, fmt.Errorf("no target %q", l.URI)
	}
	return n, nil
}

func (d *Doc) HasOutline() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.outline) > 0
}

func (d *Doc) Outline() ([]engine.Outline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outline, nil
}

func (d *Doc) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

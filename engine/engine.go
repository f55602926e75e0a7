// Package engine describes the document rendering engine consumed by the
// viewer. An engine decodes a document, measures and rasterizes its pages,
// searches their text and resolves links. The viewer never decodes documents
// itself.
package engine

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"
)

// Size is the natural size of a page in points.
type Size struct {
	W, H float64
}

// IsZero reports whether s has no area.
func (s Size) IsZero() bool { return s.W <= 0 || s.H <= 0 }

// Point is a position in page units.
type Point struct {
	X, Y float64
}

// Rect is a rectangle in page units. X0,Y0 is the upper left corner.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Contains reports whether x, y lies inside r.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x < r.X1 && y >= r.Y0 && y < r.Y1
}

// Scale returns r with all coordinates multiplied by s.
func (r Rect) Scale(s float64) Rect {
	return Rect{r.X0 * s, r.Y0 * s, r.X1 * s, r.Y1 * s}
}

// Bounds returns the smallest integer rectangle containing r.
func (r Rect) Bounds() image.Rectangle {
	return image.Rect(int(r.X0), int(r.Y0), int(r.X1+0.999), int(r.Y1+0.999))
}

// Quad is a possibly rotated match region.
type Quad struct {
	UL, UR, LL, LR Point
}

// Rect returns the axis aligned bounding box of q.
func (q Quad) Rect() Rect {
	r := Rect{q.UL.X, q.UL.Y, q.UL.X, q.UL.Y}
	for _, p := range []Point{q.UR, q.LL, q.LR} {
		r.X0 = min(r.X0, p.X)
		r.Y0 = min(r.Y0, p.Y)
		r.X1 = max(r.X1, p.X)
		r.Y1 = max(r.Y1, p.Y)
	}
	return r
}

// QuadFromRect returns the quad covering r.
func QuadFromRect(r Rect) Quad {
	return Quad{
		UL: Point{r.X0, r.Y0},
		UR: Point{r.X1, r.Y0},
		LL: Point{r.X0, r.Y1},
		LR: Point{r.X1, r.Y1},
	}
}

// Link is a clickable region of a page.
// Internal links have URIs of the form "#dest".
type Link struct {
	Bounds Rect
	URI    string
}

// IsExternal reports whether l points outside the document.
func (l Link) IsExternal() bool {
	if strings.HasPrefix(l.URI, "#") {
		return false
	}
	u, err := url.Parse(l.URI)
	return err == nil && u.Scheme != ""
}

// RenderConfig carries the per-session rendering options passed into every
// draw call.
type RenderConfig struct {
	Invert bool
}

// Opener creates documents.
type Opener interface {
	Open(data []byte, mimeHint string) (Document, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(data []byte, mimeHint string) (Document, error)

func (f OpenerFunc) Open(data []byte, mimeHint string) (Document, error) {
	return f(data, mimeHint)
}

// Document is an open document. Implementations need not be safe for
// concurrent use; wrap them with Serialize before sharing across
// goroutines.
type Document interface {
	CountPages() int
	PageSize(ctx context.Context, page int) (Size, error)

	// Layout reflows the document for pages of w x h points with font
	// size em. Cached sizes, outline and page count may all change.
	Layout(w, h, em float64) error

	// Draw rasterizes page scaled to pageW x pageH pixels into dst.
	// Pixel (0, 0) of dst receives page pixel patch.Min. Implementations
	// poll ctx and return ctx.Err() once it is cancelled.
	Draw(ctx context.Context, dst *image.RGBA, page, pageW, pageH int, patch image.Rectangle, cfg RenderConfig) error

	// UpdatePatch is the incremental form of Draw for a region that was
	// drawn before. Engines without incremental support redraw.
	UpdatePatch(ctx context.Context, dst *image.RGBA, page, pageW, pageH int, patch image.Rectangle, cfg RenderConfig) error

	SearchPage(ctx context.Context, page int, text string) ([][]Quad, error)
	Links(ctx context.Context, page int) ([]Link, error)
	ResolveLink(l Link) (int, error)
	HasOutline() bool
	Outline() ([]Outline, error)
	Close() error
}

// Bookmarker is implemented by reflowable documents that can map a page to
// a position that survives Layout.
type Bookmarker interface {
	Bookmark(page int) int64
	PageOf(mark int64) int
}

// OpenError is returned by Opener.Open. It is fatal to a viewing session.
type OpenError struct {
	Mime string
	Err  error
}

func (e *OpenError) Error() string {
	if e.Mime == "" {
		return fmt.Sprintf("cannot open document: %v", e.Err)
	}
	return fmt.Sprintf("cannot open %s document: %v", e.Mime, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// SizeError reports that a page could not be measured.
type SizeError struct {
	Page int
	Err  error
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("page %d: cannot measure: %v", e.Page, e.Err)
}

func (e *SizeError) Unwrap() error { return e.Err }

// RenderError reports a failed rasterization, including failure to obtain
// a bitmap to render into.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("page %d: cannot render: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

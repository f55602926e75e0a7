// Package textdoc is a reflowable document engine for plain text,
// Markdown and HTML. Pages are laid out with the Go fonts and rasterized
// with freetype.
package textdoc

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/rjkroege/pageview/engine"
	"github.com/rjkroege/pageview/internal/logging"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/image/font"
)

// Default page geometry in points, used until the first Layout.
const (
	DefaultWidth  = 612
	DefaultHeight = 792
	DefaultEm     = 12
)

// Doc is an open text document. It is not safe for concurrent use; wrap
// it with engine.Serialize.
type Doc struct {
	id     string
	mime   string
	blocks []block

	w, h, em  float64
	pages     []page
	faces     map[faceKey]font.Face
	anchors   map[string]int
	blockPage []int
	outline   []engine.Outline
	closed    bool
}

// Opener opens documents with Open.
var Opener engine.Opener = engine.OpenerFunc(func(data []byte, mimeHint string) (engine.Document, error) {
	d, err := Open(data, mimeHint)
	if err != nil {
		return nil, err
	}
	return d, nil
})

// Kind maps a MIME type or file name to the parser used for it:
// "text/markdown", "text/html" or "text/plain".
func Kind(data []byte, mimeHint string) string {
	h := strings.ToLower(mimeHint)
	switch {
	case strings.HasPrefix(h, "text/markdown"), strings.HasPrefix(h, "text/x-markdown"):
		return "text/markdown"
	case strings.HasPrefix(h, "text/html"):
		return "text/html"
	case strings.HasPrefix(h, "text/plain"):
		return "text/plain"
	}
	switch path.Ext(h) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".html", ".htm":
		return "text/html"
	case ".txt":
		return "text/plain"
	}
	if strings.HasPrefix(http.DetectContentType(data), "text/html") {
		return "text/html"
	}
	return "text/plain"
}

// Open parses data according to mimeHint, which may be a MIME type or a
// file name, and lays it out at the default geometry.
func Open(data []byte, mimeHint string) (*Doc, error) {
	kind := Kind(data, mimeHint)
	if !utf8.Valid(data) {
		return nil, &engine.OpenError{Mime: kind, Err: fmt.Errorf("not UTF-8 text")}
	}
	var (
		blocks []block
		err    error
	)
	switch kind {
	case "text/markdown":
		blocks = parseMarkdown(data)
	case "text/html":
		blocks, err = parseHTML(data)
	default:
		blocks = parseText(data)
	}
	if err != nil {
		return nil, &engine.OpenError{Mime: kind, Err: err}
	}
	var off int64
	for i := range blocks {
		blocks[i].off = off
		off += int64(len(blocks[i].text)) + 1
	}
	sum := blake2b.Sum256(data)
	d := &Doc{
		id:     hex.EncodeToString(sum[:]),
		mime:   kind,
		blocks: blocks,
		faces:  make(map[faceKey]font.Face),
	}
	if err := d.Layout(DefaultWidth, DefaultHeight, DefaultEm); err != nil {
		return nil, &engine.OpenError{Mime: kind, Err: err}
	}
	logging.Logger().Info("textdoc open", "mime", kind, "blocks", len(blocks), "id", d.id[:12])
	return d, nil
}

// ID is the hex BLAKE2b-256 digest of the document source.
func (d *Doc) ID() string { return d.id }

// Mime is the type the document was parsed as.
func (d *Doc) Mime() string { return d.mime }

func (d *Doc) CountPages() int {
	if d.closed {
		return 0
	}
	return len(d.pages)
}

func (d *Doc) checkPage(i int) error {
	if d.closed {
		return engine.ErrNoDocument
	}
	if i < 0 || i >= len(d.pages) {
		return fmt.Errorf("textdoc: page %d out of range [0, %d)", i, len(d.pages))
	}
	return nil
}

func (d *Doc) PageSize(ctx context.Context, i int) (engine.Size, error) {
	if err := d.checkPage(i); err != nil {
		return engine.Size{}, err
	}
	return engine.Size{W: d.w, H: d.h}, nil
}

func (d *Doc) Links(ctx context.Context, i int) ([]engine.Link, error) {
	if err := d.checkPage(i); err != nil {
		return nil, err
	}
	var links []engine.Link
	for _, ln := range d.pages[i].lines {
		for _, r := range ln.runs {
			links = append(links, engine.Link{
				Bounds: engine.Rect{X0: r.x0, Y0: ln.y - ln.ascent, X1: r.x1, Y1: ln.y + ln.descent},
				URI:    r.uri,
			})
		}
	}
	return links, nil
}

// ResolveLink returns the page holding the anchor named by an internal
// link.
func (d *Doc) ResolveLink(l engine.Link) (int, error) {
	if d.closed {
		return -1, engine.ErrNoDocument
	}
	id, ok := strings.CutPrefix(l.URI, "#")
	if !ok {
		return -1, fmt.Errorf("textdoc: %q is not an internal link", l.URI)
	}
	if p, ok := d.anchors[id]; ok {
		return p, nil
	}
	if p, ok := d.anchors[slug(id)]; ok {
		return p, nil
	}
	return -1, fmt.Errorf("textdoc: no anchor %q", id)
}

func (d *Doc) HasOutline() bool { return len(d.outline) > 0 }

func (d *Doc) Outline() ([]engine.Outline, error) {
	if d.closed {
		return nil, engine.ErrNoDocument
	}
	return d.outline, nil
}

func (d *Doc) buildOutline() []engine.Outline {
	type node struct {
		o     engine.Outline
		level int
		kids  []*node
	}
	root := &node{}
	stack := []*node{root}
	for bi, b := range d.blocks {
		if b.level == 0 {
			continue
		}
		n := &node{o: engine.Outline{Title: b.text, Page: d.blockPage[bi]}, level: b.level}
		if len(b.ids) > 0 {
			n.o.URI = "#" + b.ids[len(b.ids)-1]
		}
		for stack[len(stack)-1].level >= b.level {
			stack = stack[:len(stack)-1]
		}
		top := stack[len(stack)-1]
		top.kids = append(top.kids, n)
		stack = append(stack, n)
	}
	var conv func([]*node) []engine.Outline
	conv = func(ns []*node) []engine.Outline {
		var out []engine.Outline
		for _, n := range ns {
			o := n.o
			o.Down = conv(n.kids)
			out = append(out, o)
		}
		return out
	}
	return conv(root.kids)
}

// Bookmark returns the source offset of the first line on page i.
func (d *Doc) Bookmark(i int) int64 {
	if i < 0 || i >= len(d.pages) || len(d.pages[i].lines) == 0 {
		return 0
	}
	ln := d.pages[i].lines[0]
	return d.blocks[ln.block].off + int64(ln.start)
}

// PageOf returns the page holding the source offset mark.
func (d *Doc) PageOf(mark int64) int {
	p := 0
	for i := range d.pages {
		if len(d.pages[i].lines) > 0 && d.Bookmark(i) <= mark {
			p = i
		}
	}
	return p
}

func (d *Doc) Close() error {
	if d.closed {
		return engine.ErrNoDocument
	}
	d.closed = true
	for k, f := range d.faces {
		f.Close()
		delete(d.faces, k)
	}
	return nil
}

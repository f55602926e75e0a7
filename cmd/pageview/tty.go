package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rjkroege/pageview/viewer"
)

// ttyHost drives the controller from a terminal in raw mode. Nothing is
// drawn; a status line tracks the position.
type ttyHost struct {
	viewer.NopHooks

	c       *viewer.Controller
	out     io.Writer
	dirty   bool
	msg     string
	plumber *plumber
}

func (h *ttyHost) OnInvalidate() { h.dirty = true }

func (h *ttyHost) OnExternalLink(uri string) {
	h.plumber.send(uri)
	h.note("link " + uri)
}

func (h *ttyHost) OnSearchResult(r *viewer.SearchResult) {
	h.note(fmt.Sprintf("%q on page %d", r.Query, r.Page+1))
}

func (h *ttyHost) OnNoMatch(query string) { h.note(fmt.Sprintf("no match for %q", query)) }

func (h *ttyHost) OnRenderError(page int, err error) {
	h.note(fmt.Sprintf("page %d: %v", page+1, err))
}

func (h *ttyHost) note(s string) {
	h.msg = s
	h.dirty = true
}

// status rewrites the status line.
func (h *ttyHost) status() {
	h.dirty = false
	fmt.Fprintf(h.out, "\r\x1b[K%s", statusLine(h.c, h.msg))
}

func statusLine(c *viewer.Controller, msg string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "page %d/%d", c.DisplayedIndex()+1, c.PageCount())
	if s := c.Scale(); s != 1 {
		fmt.Fprintf(&sb, " zoom %.2f", s)
	}
	if c.RenderConfig().Invert {
		sb.WriteString(" invert")
	}
	if !c.LinksEnabled() {
		sb.WriteString(" nolinks")
	}
	if r := c.Result(); r != nil {
		fmt.Fprintf(&sb, " /%s", r.Query)
	}
	if msg != "" {
		sb.WriteString(" | ")
		sb.WriteString(msg)
	}
	return sb.String()
}

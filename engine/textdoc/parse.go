package textdoc

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
)

// block is a unit of reflowable text: a paragraph, a heading or one line
// of preformatted text.
type block struct {
	level int // 1 to 6 for headings
	mono  bool
	text  string
	links []span
	ids   []string
	off   int64 // offset of text within the document
}

// span is a link over text[start:end].
type span struct {
	start, end int
	uri        string
}

// builder accumulates the text of a block, collapsing white space.
type builder struct {
	sb    strings.Builder
	links []span
	space bool
}

func (b *builder) add(s, uri string) {
	start := -1
	for _, r := range s {
		if unicode.IsSpace(r) {
			b.space = b.sb.Len() > 0
			continue
		}
		if b.space {
			b.sb.WriteByte(' ')
			b.space = false
		}
		if start < 0 {
			start = b.sb.Len()
		}
		b.sb.WriteRune(r)
	}
	if uri == "" || start < 0 {
		return
	}
	end := b.sb.Len()
	if n := len(b.links); n > 0 && b.links[n-1].uri == uri && b.links[n-1].end >= start-1 {
		b.links[n-1].end = end
		return
	}
	b.links = append(b.links, span{start, end, uri})
}

func (b *builder) empty() bool { return b.sb.Len() == 0 }

func (b *builder) take(level int) block {
	bl := block{level: level, text: b.sb.String(), links: b.links}
	*b = builder{}
	return bl
}

// slug derives the implicit anchor of a heading.
func slug(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range cases.Fold().String(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			dash = false
			sb.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			dash = true
		}
	}
	return sb.String()
}

func withSlugs(blocks []block) []block {
	for i := range blocks {
		if blocks[i].level > 0 {
			if s := slug(blocks[i].text); s != "" {
				blocks[i].ids = append(blocks[i].ids, s)
			}
		}
	}
	return blocks
}

func parseText(src []byte) []block {
	var (
		blocks []block
		b      builder
	)
	for _, ln := range bytes.Split(src, []byte("\n")) {
		if len(bytes.TrimSpace(ln)) == 0 {
			if !b.empty() {
				blocks = append(blocks, b.take(0))
			}
			continue
		}
		b.add(string(ln), "")
		b.space = true
	}
	if !b.empty() {
		blocks = append(blocks, b.take(0))
	}
	return blocks
}

type mdParser struct {
	src    []byte
	blocks []block
	prefix string
}

func parseMarkdown(src []byte) []block {
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	p := &mdParser{src: src}
	p.walk(doc)
	return withSlugs(p.blocks)
}

func (p *mdParser) walk(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Heading:
			p.emit(c, c.Level)
		case *ast.Paragraph, *ast.TextBlock:
			p.emit(c, 0)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := c.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				ln := strings.TrimRight(string(seg.Value(p.src)), "\r\n")
				p.blocks = append(p.blocks, block{mono: true, text: strings.ReplaceAll(ln, "\t", "    ")})
			}
		case *ast.ListItem:
			p.prefix = "• "
			p.walk(c)
		default:
			p.walk(c)
		}
	}
}

func (p *mdParser) emit(n ast.Node, level int) {
	var b builder
	if p.prefix != "" {
		b.add(p.prefix, "")
		b.space = true
		p.prefix = ""
	}
	p.inline(n, &b, "")
	if !b.empty() {
		p.blocks = append(p.blocks, b.take(level))
	}
}

func (p *mdParser) inline(n ast.Node, b *builder, uri string) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			b.add(string(c.Segment.Value(p.src)), uri)
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.space = true
			}
		case *ast.String:
			b.add(string(c.Value), uri)
		case *ast.Link:
			p.inline(c, b, string(c.Destination))
		case *ast.AutoLink:
			b.add(string(c.Label(p.src)), string(c.URL(p.src)))
		case *ast.RawHTML:
		default:
			p.inline(c, b, uri)
		}
	}
}

type htmlParser struct {
	blocks []block
	cur    builder
	level  int
	ids    []string
}

func parseHTML(src []byte) ([]block, error) {
	doc, err := html.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	p := &htmlParser{}
	p.walk(doc, "")
	p.flush()
	return withSlugs(p.blocks), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Dt, atom.Dd, atom.Blockquote,
		atom.Section, atom.Article, atom.Tr, atom.Figcaption, atom.Hr:
		return true
	}
	return headingLevel(a) > 0
}

func (p *htmlParser) flush() {
	if p.cur.empty() {
		p.level = 0
		return
	}
	b := p.cur.take(p.level)
	b.ids = p.ids
	p.blocks = append(p.blocks, b)
	p.ids = nil
	p.level = 0
}

func (p *htmlParser) walk(n *html.Node, uri string) {
	switch n.Type {
	case html.TextNode:
		p.cur.add(n.Data, uri)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Title, atom.Head:
			return
		case atom.Br:
			p.cur.space = true
		case atom.A:
			if href := attr(n, "href"); href != "" {
				uri = href
			}
			if name := attr(n, "name"); name != "" {
				p.ids = append(p.ids, name)
			}
		case atom.Pre:
			p.flush()
			p.pre(n)
			return
		}
		if id := attr(n, "id"); id != "" {
			p.ids = append(p.ids, id)
		}
		if isBlock(n.DataAtom) {
			ids := p.ids
			p.ids = nil
			p.flush()
			p.ids = ids
			p.level = headingLevel(n.DataAtom)
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				p.walk(c, uri)
			}
			p.flush()
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c, uri)
	}
}

func (p *htmlParser) pre(n *html.Node) {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	ids := p.ids
	p.ids = nil
	for _, ln := range strings.Split(strings.Trim(sb.String(), "\n"), "\n") {
		p.blocks = append(p.blocks, block{mono: true, text: strings.ReplaceAll(ln, "\t", "    "), ids: ids})
		ids = nil
	}
}

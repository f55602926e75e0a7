// Pageview shows a markdown, HTML or plain text file as a row of pages
// that can be dragged, flung, pinched and tapped through.
//
// Usage:
//
//	pageview [flags] file
//
// With -srv name, a 9P file server is posted in the namespace directory so
// that other programs can drive the viewer:
//
//	echo page 3 | 9p write name/ctl
//	9p read name/index
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/rjkroege/pageview/ctlfs"
	"github.com/rjkroege/pageview/engine"
	"github.com/rjkroege/pageview/engine/textdoc"
	"github.com/rjkroege/pageview/viewer"
)

var (
	winsize      = flag.String("W", "1024x768", "Window Size (WidthxHeight)")
	dpiflag      = flag.Float64("dpi", 96, "screen density in dots per inch")
	emflag       = flag.Float64("em", textdoc.DefaultEm, "body text size in points")
	verticalflag = flag.Bool("vertical", false, "stack pages top to bottom")
	invertflag   = flag.Bool("invert", false, "draw light text on dark paper")
	ttyflag      = flag.Bool("tty", false, "drive the viewer from the terminal")
	srvflag      = flag.String("srv", "", "post a control file server under this name")
	pageflag     = flag.Int("page", 1, "first page to show")
	verboseflag  = flag.Bool("v", false, "log to standard error")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: pageview [flags] file\n")
	flag.PrintDefaults()
	os.Exit(2)
}

// session is what both hosts drive: the controller, its document and the
// optional control server.
type session struct {
	c     *viewer.Controller
	doc   engine.Document
	id    string
	first int
	em    float64
	w, h  int
	srv   *ctlfs.Server
}

func main() {
	log.SetPrefix("pageview: ")
	log.SetFlags(0)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 1 {
		usage()
	}
	if *verboseflag {
		viewer.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	doc, id, err := load(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	cfg := viewer.DefaultConfig()
	cfg.DPI = *dpiflag
	cfg.Horizontal = !*verticalflag
	cfg.Render.Invert = *invertflag

	s := &session{doc: doc, id: id, first: *pageflag - 1, em: *emflag}
	if *ttyflag {
		err = runTTY(s, cfg)
	} else {
		var w, h int
		w, h, err = parseWinsize(*winsize)
		if err == nil {
			err = runDraw(s, cfg, w, h)
		}
	}
	if cerr := doc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatal(err)
	}
}

// load reads and lays out the named file at the default page size.
func load(name string) (engine.Document, string, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, "", err
	}
	doc, err := textdoc.Opener.Open(data, name)
	if err != nil {
		return nil, "", err
	}
	var id string
	if d, ok := doc.(*textdoc.Doc); ok {
		id = d.ID()
	}
	return engine.Serialize(doc), id, nil
}

// start opens the document in a controller sized w by h and posts the
// control server if one was asked for. The controller is driven by the
// goroutine that calls start.
func (s *session) start(cfg viewer.Config, hooks viewer.Hooks, w, h int) error {
	s.c = viewer.New(cfg, hooks)
	s.c.Resize(w, h)
	if err := s.c.Open(s.doc); err != nil {
		return err
	}
	if s.first > 0 {
		s.c.SetDisplayedIndex(min(s.first, s.c.PageCount()-1))
	}
	s.resize(w, h)
	if *srvflag != "" {
		srv, err := ctlfs.Post(*srvflag, ctlfs.Posted(s.c), s.id)
		if err != nil {
			return err
		}
		s.srv = srv
	}
	return nil
}

// resize sets the viewport to w by h. A reflowable document is laid out
// again so that its pages fit the new size.
func (s *session) resize(w, h int) {
	if w == s.w && h == s.h {
		return
	}
	s.w, s.h = w, h
	s.c.Resize(w, h)
	if _, ok := s.doc.(engine.Bookmarker); !ok {
		return
	}
	if err := s.c.Relayout(s.em); err != nil {
		viewer.Logger().Warn("cannot reflow", "size", fmt.Sprintf("%dx%d", w, h), "err", err)
	}
}

// stop shuts the control server and the controller.
func (s *session) stop() {
	if s.srv != nil {
		s.srv.Close()
	}
	if s.c != nil {
		s.c.Close()
	}
}

func parseWinsize(ws string) (int, int, error) {
	a, b, ok := strings.Cut(ws, "x")
	if !ok {
		return 0, 0, fmt.Errorf("bad window size %q", ws)
	}
	w, err := strconv.Atoi(a)
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("bad window width %q", a)
	}
	h, err := strconv.Atoi(b)
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("bad window height %q", b)
	}
	return w, h, nil
}

package ctlfs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rjkroege/pageview/engine"
	"github.com/rjkroege/pageview/viewer"
)

// Target runs fn with exclusive use of the controller and returns once fn
// has.
type Target func(fn func(c *viewer.Controller))

// Posted returns a Target that queues work with c.Post. The host must keep
// calling c.Dispatch.
func Posted(c *viewer.Controller) Target {
	return func(fn func(*viewer.Controller)) {
		done := make(chan struct{})
		c.Post(func(c *viewer.Controller) {
			defer close(done)
			fn(c)
		})
		<-done
	}
}

var errHistoryEmpty = errors.New("history is empty")

// contents renders the file with the given qid path.
func (s *Server) contents(path uint64) (string, error) {
	var text string
	var err error
	s.target(func(c *viewer.Controller) {
		switch path {
		case Qctl:
			text = status(c)
		case Qindex:
			text = index(c, s.docID)
		case Qsearch:
			if r := c.Result(); r != nil {
				text = fmt.Sprintf("%d %d %s\n", r.Page+1, len(r.Boxes), r.Query)
			}
		case Qoutline:
			text = outline(c.Outline())
		default:
			err = ErrNotExist
		}
	})
	return text, err
}

func index(c *viewer.Controller, id string) string {
	if id == "" {
		id = "-"
	}
	return fmt.Sprintf("%d %d %.3f %s\n", c.DisplayedIndex()+1, c.PageCount(), c.Scale(), id)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func status(c *viewer.Controller) string {
	return fmt.Sprintf("page %d of %d zoom %.3f links %s invert %s\n",
		c.DisplayedIndex()+1, c.PageCount(), c.Scale(),
		onOff(c.LinksEnabled()), onOff(c.RenderConfig().Invert))
}

func outline(items []engine.OutlineItem) string {
	var sb strings.Builder
	for _, it := range items {
		fmt.Fprintf(&sb, "%s%s\t%d\n", strings.Repeat("\t", it.Level), it.Title, it.Page+1)
	}
	return sb.String()
}

// control runs each line of cmds. It stops at the first failing command.
func (s *Server) control(cmds string) error {
	var err error
	s.target(func(c *viewer.Controller) {
		for _, ln := range strings.Split(cmds, "\n") {
			if ln = strings.TrimSpace(ln); ln == "" {
				continue
			}
			if err = execute(c, ln); err != nil {
				return
			}
		}
	})
	return err
}

func parseSwitch(arg string) (bool, error) {
	switch arg {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("want on or off, got %q", arg)
}

// execute runs one ctl command. Page numbers count from 1.
func execute(c *viewer.Controller, line string) error {
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch verb {
	case "page":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("page: %w", err)
		}
		if n < 1 || n > c.PageCount() {
			return fmt.Errorf("page %d out of range [1, %d]", n, c.PageCount())
		}
		c.PushHistory()
		c.SetDisplayedIndex(n - 1)
	case "next":
		c.MoveToNext()
	case "prev":
		c.MoveToPrevious()
	case "forward":
		c.SmartMoveForwards()
	case "backward":
		c.SmartMoveBackwards()
	case "back":
		if !c.PopHistory() {
			return errHistoryEmpty
		}
	case "zoom":
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("zoom: bad factor %q", arg)
		}
		vp := c.State().Viewport
		c.Zoom(f, float64(vp.X)/2, float64(vp.Y)/2)
	case "search":
		dir := 1
		switch {
		case strings.HasPrefix(arg, "+ "):
			arg = arg[2:]
		case strings.HasPrefix(arg, "- "):
			dir, arg = -1, arg[2:]
		}
		if arg == "" {
			return fmt.Errorf("search: no text")
		}
		return c.Search(arg, dir)
	case "clear":
		c.ClearSearch()
	case "links":
		on, err := parseSwitch(arg)
		if err != nil {
			return fmt.Errorf("links: %w", err)
		}
		c.SetLinksEnabled(on)
	case "invert":
		on, err := parseSwitch(arg)
		if err != nil {
			return fmt.Errorf("invert: %w", err)
		}
		rc := c.RenderConfig()
		rc.Invert = on
		c.SetRenderConfig(rc)
	case "refresh":
		c.Refresh()
	case "em":
		em, err := strconv.ParseFloat(arg, 64)
		if err != nil || em <= 0 {
			return fmt.Errorf("em: bad size %q", arg)
		}
		return c.Relayout(em)
	default:
		return fmt.Errorf("unknown command %q", verb)
	}
	return nil
}

package viewer

import (
	"testing"
	"time"

	"github.com/rjkroege/pageview/engine"
	"github.com/rjkroege/pageview/internal/gesture"
	"github.com/rjkroege/pageview/pagetest"
)

const (
	testW = 800
	testH = 1000
)

// pageSize fits the test viewport exactly at twice its size in points.
var pageSize = engine.Size{W: 400, H: 500}

type recorder struct {
	NopHooks
	changed  []int
	settled  []int
	errs     map[int]error
	results  []*SearchResult
	noMatch  []string
	external []string
	taps     int
	motions  int
	setups   []int
}

func (r *recorder) OnDisplayedIndexChanged(i int) { r.changed = append(r.changed, i) }
func (r *recorder) OnViewSettled(i int)           { r.settled = append(r.settled, i) }
func (r *recorder) OnRenderError(i int, err error) {
	if r.errs == nil {
		r.errs = make(map[int]error)
	}
	r.errs[i] = err
}
func (r *recorder) OnSearchResult(res *SearchResult) { r.results = append(r.results, res) }
func (r *recorder) OnNoMatch(q string)               { r.noMatch = append(r.noMatch, q) }
func (r *recorder) OnExternalLink(uri string)        { r.external = append(r.external, uri) }
func (r *recorder) OnTapMainDocArea()                { r.taps++ }
func (r *recorder) OnDocMotion()                     { r.motions++ }
func (r *recorder) OnChildSetup(i int)               { r.setups = append(r.setups, i) }

type fixture struct {
	c     *Controller
	doc   *pagetest.Doc
	hooks *recorder
	t0    time.Time
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DPI = 160
	cfg.FrameInterval = 0
	cfg.Clock = pagetest.NewClock(16 * time.Millisecond).Now
	return cfg
}

// newFixture opens an n page document in a controller sized to the test
// viewport. The document is not drained.
func newFixture(t *testing.T, n int, setup ...func(*pagetest.Doc)) *fixture {
	t.Helper()
	doc := pagetest.NewDoc(n, pageSize)
	for _, f := range setup {
		f(doc)
	}
	h := &recorder{}
	c := New(testConfig(), h)
	c.Resize(testW, testH)
	if err := c.Open(engine.Serialize(doc)); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(c.Close)
	return &fixture{c: c, doc: doc, hooks: h, t0: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// pump dispatches messages until cond holds.
func pump(t *testing.T, c *Controller, cond func() bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for !cond() {
		select {
		case <-c.Ready():
			c.Dispatch()
		case <-deadline:
			t.Fatalf("timed out waiting; state %+v", c.State())
		}
	}
}

// drain dispatches messages until none arrive for a while.
func drain(t *testing.T, c *Controller) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-c.Ready():
			c.Dispatch()
		case <-time.After(50 * time.Millisecond):
			return
		case <-deadline:
			t.Fatalf("controller never went idle; state %+v", c.State())
		}
	}
}

func windowReady(c *Controller) bool {
	if len(c.slots) == 0 {
		return false
	}
	for _, s := range c.slots {
		if s.State() != LowResReady && s.State() != Error {
			return false
		}
	}
	return true
}

func (f *fixture) windowPages() []int {
	var pages []int
	for _, s := range f.c.State().Slots {
		pages = append(pages, s.Page)
	}
	return pages
}

func (f *fixture) at(ms int) time.Time {
	return f.t0.Add(time.Duration(ms) * time.Millisecond)
}

func (f *fixture) event(a gesture.Action, ms int, x, y float64) {
	f.c.Pointer(gesture.Event{
		Action:   a,
		Time:     f.at(ms),
		Pointers: []gesture.Pointer{{ID: 1, X: x, Y: y}},
	})
}

func (f *fixture) tap(x, y float64) {
	f.event(gesture.Down, 0, x, y)
	f.event(gesture.Up, 20, x, y)
}

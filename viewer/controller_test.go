package viewer

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rjkroege/pageview/engine"
	"github.com/rjkroege/pageview/internal/gesture"
	"github.com/rjkroege/pageview/pagetest"
)

func TestOpenMaterializesFirstPages(t *testing.T) {
	f := newFixture(t, 5)
	c := f.c

	if diff := cmp.Diff([]int{0, 1}, f.windowPages()); diff != "" {
		t.Fatalf("window mismatch (-want +got):\n%s", diff)
	}
	for _, i := range []int{0, 1} {
		if got := c.Slot(i).State(); got != SizingPending {
			t.Errorf("slot %d state after Open = %v, want SizingPending", i, got)
		}
	}

	// Record the dispatch at which each slot first leaves SizingPending.
	left := map[int]int{}
	var seen0 []SlotState
	n := 0
	pump(t, c, func() bool {
		n++
		for _, i := range []int{0, 1} {
			if _, ok := left[i]; !ok && c.Slot(i).State() != SizingPending {
				left[i] = n
			}
		}
		if st := c.Slot(0).State(); len(seen0) == 0 || seen0[len(seen0)-1] != st {
			seen0 = append(seen0, st)
		}
		return windowReady(c)
	})
	if left[0] > left[1] {
		t.Errorf("slot 1 started rendering before slot 0: %v", left)
	}
	if seen0[0] != SizingPending || seen0[len(seen0)-1] != LowResReady {
		t.Errorf("slot 0 went through %v", seen0)
	}
	if got, want := c.Slot(0).Frame(), image.Rect(0, 0, testW, testH); got != want {
		t.Errorf("slot 0 frame = %v, want %v", got, want)
	}
	if got, want := c.Slot(1).Frame(), image.Rect(testW+20, 0, 2*testW+20, testH); got != want {
		t.Errorf("slot 1 frame = %v, want %v", got, want)
	}
}

func TestOpenEmptyDocument(t *testing.T) {
	c := New(testConfig(), nil)
	c.Resize(testW, testH)
	err := c.Open(pagetest.NewDoc(0, pageSize))
	var oe *engine.OpenError
	if !errors.As(err, &oe) {
		t.Fatalf("Open error = %v, want *engine.OpenError", err)
	}
	if c.PageCount() != 0 || len(c.State().Slots) != 0 {
		t.Errorf("partial state after failed open: %+v", c.State())
	}
}

func TestSetDisplayedIndexShiftsWindow(t *testing.T) {
	f := newFixture(t, 5)
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })
	pool := c.src.pool

	c.SetDisplayedIndex(3)
	if diff := cmp.Diff([]int{2, 3, 4}, f.windowPages()); diff != "" {
		t.Errorf("window mismatch (-want +got):\n%s", diff)
	}
	if got := f.hooks.changed[len(f.hooks.changed)-1]; got != 3 {
		t.Errorf("last OnDisplayedIndexChanged = %d, want 3", got)
	}
	pump(t, c, func() bool { return windowReady(c) })
	drain(t, c)
	if got := pool.Outstanding(); got != 3 {
		t.Errorf("outstanding buffers = %d, want 3", got)
	}

	c.SetDisplayedIndex(7)
	c.SetDisplayedIndex(-1)
	if c.DisplayedIndex() != 3 {
		t.Errorf("out of range index accepted: %d", c.DisplayedIndex())
	}
}

func TestSetDisplayedIndexCurrentKeepsPosition(t *testing.T) {
	f := newFixture(t, 3)
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })
	c.SetDisplayedIndex(1)
	c.Zoom(2, testW/2, testH/2)
	c.Pan(0, -100)
	pump(t, c, func() bool { return !c.State().Animating })
	before := c.Slot(1).Frame()
	changes := len(f.hooks.changed)

	c.SetDisplayedIndex(1)
	if got := len(f.hooks.changed); got != changes {
		t.Errorf("OnDisplayedIndexChanged fired %d more times", got-changes)
	}
	if got := c.Slot(1).Frame(); got != before {
		t.Errorf("frame moved to %v, want %v", got, before)
	}
	if got := c.Scale(); got != 2 {
		t.Errorf("scale = %v, want 2", got)
	}
}

func TestWindowIsNeighbourhoodOfCurrent(t *testing.T) {
	f := newFixture(t, 6)
	for i := 0; i < 6; i++ {
		f.c.SetDisplayedIndex(i)
		var want []int
		for j := i - 1; j <= i+1; j++ {
			if j >= 0 && j < 6 {
				want = append(want, j)
			}
		}
		if diff := cmp.Diff(want, f.windowPages()); diff != "" {
			t.Errorf("window at %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	f := newFixture(t, 8)
	c := f.c
	if c.PopHistory() {
		t.Fatal("PopHistory on empty history reported true")
	}
	c.SetDisplayedIndex(2)
	c.PushHistory()
	c.SetDisplayedIndex(6)
	if !c.PopHistory() {
		t.Fatal("PopHistory reported empty")
	}
	if c.DisplayedIndex() != 2 {
		t.Errorf("DisplayedIndex = %d, want 2", c.DisplayedIndex())
	}
	if c.HistoryLen() != 0 {
		t.Errorf("HistoryLen = %d, want 0", c.HistoryLen())
	}
}

func TestPinchKeepsFocus(t *testing.T) {
	f := newFixture(t, 3)
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })

	c.Zoom(2, testW/2, testH/2)
	if c.Scale() != 2 {
		t.Fatalf("Scale = %v, want 2", c.Scale())
	}
	got := c.Slot(0).Frame()
	if want := image.Rect(-testW/2, -testH/2, testW*3/2, testH*3/2); got != want {
		t.Errorf("frame = %v, want %v", got, want)
	}
	// The midpoint of the viewport shows the midpoint of the page.
	mid := got.Min.Add(got.Size().Div(2))
	if mid != image.Pt(testW/2, testH/2) {
		t.Errorf("page midpoint at %v", mid)
	}
}

func TestScaleClamped(t *testing.T) {
	f := newFixture(t, 2)
	c := f.c
	for i := 0; i < 5; i++ {
		c.Zoom(100, 10, 10)
		if s := c.Scale(); s < 1 || s > 64 {
			t.Fatalf("scale %v out of range", s)
		}
	}
	if c.Scale() != 64 {
		t.Errorf("Scale = %v, want 64", c.Scale())
	}
	c.Zoom(1e-6, 10, 10)
	if c.Scale() != 1 {
		t.Errorf("Scale = %v, want 1", c.Scale())
	}
}

func TestPatchOnlyWhenSettled(t *testing.T) {
	f := newFixture(t, 3)
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })
	drain(t, c)
	if got := c.Slot(0).Patch(); got != NoPatch {
		t.Errorf("patch at fit zoom: %v", got)
	}

	c.Zoom(2, testW/2, testH/2)
	pump(t, c, func() bool { return c.Slot(0).Patch() == PatchReady })
	s := c.Slot(0)
	if got, want := s.patchArea, image.Rect(testW/2, testH/2, testW*3/2, testH*3/2); got != want {
		t.Errorf("patch area = %v, want %v", got, want)
	}
	if got, want := s.patchView, image.Pt(2*testW, 2*testH); got != want {
		t.Errorf("patch view = %v, want %v", got, want)
	}

	// Touching the screen drops the patch and asking again does nothing.
	f.event(gesture.Down, 0, 400, 500)
	if got := s.Patch(); got != NoPatch {
		t.Errorf("patch while interacting: %v", got)
	}
	c.UpdatePatch(false)
	drain(t, c)
	if got := s.Patch(); got != NoPatch {
		t.Errorf("patch requested while interacting: %v", got)
	}

	f.event(gesture.Up, 500, 400, 500)
	pump(t, c, func() bool { return s.Patch() == PatchReady })
	if !c.src.shared.IsHeld() {
		t.Error("patch buffer not leased")
	}
	if n := f.doc.Counts().Draws; n == 0 {
		t.Error("no draws recorded")
	}
}

func TestFlingAdvances(t *testing.T) {
	f := newFixture(t, 4)
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })

	f.event(gesture.Down, 0, 600, 500)
	f.event(gesture.Move, 10, 500, 500)
	f.event(gesture.Move, 20, 300, 500)
	f.event(gesture.Up, 30, 300, 500)
	if !c.State().Animating {
		t.Fatal("fling did not start an animation")
	}
	pump(t, c, func() bool { return !c.State().Animating })
	drain(t, c)

	if c.DisplayedIndex() != 1 {
		t.Errorf("DisplayedIndex = %d, want 1", c.DisplayedIndex())
	}
	if got := c.Slot(1).Frame().Min; got != image.Pt(0, 0) {
		t.Errorf("slot 1 at %v, want origin", got)
	}
	if f.hooks.motions == 0 {
		t.Error("OnDocMotion not reported")
	}
}

func TestFlingPastMarginSpringsBack(t *testing.T) {
	f := newFixture(t, 4)
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })

	f.event(gesture.Down, 0, 100, 500)
	f.event(gesture.Move, 10, 400, 500)
	f.event(gesture.Move, 200, 380, 500)
	f.event(gesture.Move, 250, 250, 500)
	if got := c.Slot(0).Frame().Min.X; got != 150 {
		t.Fatalf("dragged to %d, want 150", got)
	}
	b := c.slotBounds(c.Slot(0))
	if b.right >= -c.cfg.FlingMargin {
		t.Fatalf("bounds %+v not past the fling margin", b)
	}
	f.event(gesture.Up, 260, 250, 500)
	pump(t, c, func() bool { return !c.State().Animating })
	drain(t, c)

	if c.DisplayedIndex() != 0 {
		t.Errorf("DisplayedIndex = %d, want 0", c.DisplayedIndex())
	}
	if got := c.Slot(0).Frame().Min; got != image.Pt(0, 0) {
		t.Errorf("slot 0 at %v after spring back", got)
	}
}

func TestTapMargins(t *testing.T) {
	f := newFixture(t, 3)
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })

	f.tap(testW/2, testH/2)
	if f.hooks.taps != 1 {
		t.Errorf("interior taps = %d, want 1", f.hooks.taps)
	}

	f.tap(testW-20, testH/2)
	pump(t, c, func() bool { return !c.State().Animating })
	drain(t, c)
	if c.DisplayedIndex() != 1 {
		t.Fatalf("DisplayedIndex after forward tap = %d, want 1", c.DisplayedIndex())
	}

	f.tap(20, testH/2)
	pump(t, c, func() bool { return !c.State().Animating })
	drain(t, c)
	if c.DisplayedIndex() != 0 {
		t.Errorf("DisplayedIndex after backward tap = %d, want 0", c.DisplayedIndex())
	}
	if c.HistoryLen() != 0 {
		t.Errorf("paging pushed history: %d", c.HistoryLen())
	}
}

func TestSmartMoveDownZoomedPage(t *testing.T) {
	f := newFixture(t, 2)
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })
	c.Zoom(2, testW/2, testH/2)

	c.SmartMoveForwards()
	pump(t, c, func() bool { return !c.State().Animating })
	if got := c.Slot(0).Frame().Min; got != image.Pt(-testW/2, -testH) {
		t.Errorf("after forwards frame at %v", got)
	}
	c.SmartMoveBackwards()
	pump(t, c, func() bool { return !c.State().Animating })
	// Back by 90% of a screen from the bottom.
	if got := c.Slot(0).Frame().Min; got != image.Pt(-testW/2, -testH/10) {
		t.Errorf("after backwards frame at %v", got)
	}
}

func TestPan(t *testing.T) {
	f := newFixture(t, 2)
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })
	c.Zoom(2, testW/2, testH/2)
	before := c.Slot(0).Frame().Min

	c.Pan(0, -100)
	pump(t, c, func() bool { return !c.State().Animating })
	if got, want := c.Slot(0).Frame().Min, before.Add(image.Pt(0, -100)); got != want {
		t.Errorf("after pan frame at %v, want %v", got, want)
	}

	// Panning past the top springs back.
	c.Pan(0, 5000)
	pump(t, c, func() bool { return !c.State().Animating })
	if got := c.Slot(0).Frame().Min.Y; got != 0 {
		t.Errorf("after overscroll frame top at %d, want 0", got)
	}
}

func TestLinkTap(t *testing.T) {
	f := newFixture(t, 5, func(d *pagetest.Doc) {
		d.AddLink(0, engine.Rect{X0: 0, Y0: 0, X1: 100, Y1: 100}, "#sec3", 3)
		d.AddLink(0, engine.Rect{X0: 200, Y0: 200, X1: 300, Y1: 300}, "https://example.com/", 0)
	})
	c := f.c
	pump(t, c, func() bool { return windowReady(c) && len(c.Slot(0).links) == 2 })

	f.tap(500, 500)
	if diff := cmp.Diff([]string{"https://example.com/"}, f.hooks.external); diff != "" {
		t.Errorf("external links mismatch (-want +got):\n%s", diff)
	}

	f.tap(100, 100)
	if c.DisplayedIndex() != 3 {
		t.Errorf("DisplayedIndex = %d, want 3", c.DisplayedIndex())
	}
	if c.HistoryLen() != 1 {
		t.Errorf("HistoryLen = %d, want 1", c.HistoryLen())
	}

	c.PopHistory()
	pump(t, c, func() bool { return windowReady(c) && len(c.Slot(0).links) == 2 })
	c.SetLinksEnabled(false)
	f.tap(500, 500)
	if len(f.hooks.external) != 1 || f.hooks.taps != 1 {
		t.Errorf("disabled link followed: %v, taps %d", f.hooks.external, f.hooks.taps)
	}
}

func TestRenderFailure(t *testing.T) {
	boom := errors.New("boom")
	f := newFixture(t, 3, func(d *pagetest.Doc) {
		d.FailDraw(1, boom)
		d.FailSize(2, boom)
	})
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })

	var re *engine.RenderError
	if err := f.hooks.errs[1]; !errors.As(err, &re) || !errors.Is(err, boom) {
		t.Errorf("page 1 error = %v, want RenderError wrapping boom", err)
	}
	if c.Slot(1).State() != Error {
		t.Errorf("slot 1 state = %v", c.Slot(1).State())
	}

	c.SetDisplayedIndex(1)
	pump(t, c, func() bool { return windowReady(c) })
	var se *engine.SizeError
	if err := c.Slot(2).Err(); !errors.As(err, &se) {
		t.Errorf("slot 2 error = %v, want SizeError", err)
	}
	if mz := c.Slot(2).minZoom; math.Abs(float64(mz.X)/float64(mz.Y)-612.0/792) > 0.01 {
		t.Errorf("fallback size gave %v", mz)
	}
	if c.Slot(0).State() != LowResReady {
		t.Errorf("healthy page state = %v", c.Slot(0).State())
	}
}

func TestRefreshKeepsSlots(t *testing.T) {
	f := newFixture(t, 3)
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })
	s0 := c.Slot(0)
	sizes := f.doc.Counts().Sizes

	c.Refresh()
	if c.Slot(0) != s0 {
		t.Error("Refresh replaced the slot")
	}
	if got := s0.State(); got != SizingPending {
		t.Errorf("state after Refresh = %v, want SizingPending", got)
	}
	pump(t, c, func() bool { return windowReady(c) })
	if got := f.doc.Counts().Sizes; got <= sizes {
		t.Errorf("sizes not requested again: %d", got)
	}
}

func TestRelayoutKeepsProgress(t *testing.T) {
	f := newFixture(t, 5, func(d *pagetest.Doc) {
		d.SetReflow(func(w, h, em float64) int { return 10 })
	})
	c := f.c
	c.SetDisplayedIndex(2)
	c.PushHistory()
	pump(t, c, func() bool { return windowReady(c) })

	if err := c.Relayout(14); err != nil {
		t.Fatal(err)
	}
	pump(t, c, func() bool { return c.PageCount() == 10 })
	if c.DisplayedIndex() != 4 {
		t.Errorf("DisplayedIndex = %d, want 4", c.DisplayedIndex())
	}
	if c.HistoryLen() != 0 {
		t.Errorf("history kept over relayout: %d", c.HistoryLen())
	}
	if f.doc.Counts().Layouts != 1 {
		t.Errorf("Layouts = %d", f.doc.Counts().Layouts)
	}
}

func TestCloseReturnsBuffers(t *testing.T) {
	f := newFixture(t, 6)
	c := f.c
	f.doc.Block()
	pool, shared := c.src.pool, c.src.shared

	pump(t, c, func() bool {
		return c.Slot(0).State() == LowResPending && c.Slot(1).State() == LowResPending
	})
	// Pages leaving the window give up their blocked renders.
	c.SetDisplayedIndex(4)
	f.doc.Release()
	pump(t, c, func() bool { return windowReady(c) })
	drain(t, c)
	if got := pool.Outstanding(); got != 3 {
		t.Errorf("outstanding after shift = %d, want 3", got)
	}

	f.doc.Block()
	c.Refresh()
	c.Close()
	if got := pool.Outstanding(); got != 0 {
		t.Errorf("outstanding after Close = %d, want 0", got)
	}
	if shared.IsHeld() {
		t.Error("patch buffer still leased after Close")
	}
	if f.doc.Overlapped() {
		t.Error("engine calls overlapped")
	}
	f.doc.Release()
}

func TestOutlineLoaded(t *testing.T) {
	f := newFixture(t, 4, func(d *pagetest.Doc) {
		d.SetOutline([]engine.Outline{
			{Title: "One", Page: 0, Down: []engine.Outline{{Title: "One.1", Page: 1}}},
			{Title: "Two", Page: 3},
		})
	})
	c := f.c
	pump(t, c, func() bool { return c.Outline() != nil })
	want := []engine.OutlineItem{
		{Title: "One", Level: 0, Page: 0},
		{Title: "One.1", Level: 1, Page: 1},
		{Title: "Two", Level: 0, Page: 3},
	}
	if diff := cmp.Diff(want, c.Outline()); diff != "" {
		t.Errorf("outline mismatch (-want +got):\n%s", diff)
	}
}

func TestViewSettledReported(t *testing.T) {
	f := newFixture(t, 3)
	c := f.c
	pump(t, c, func() bool { return windowReady(c) })
	drain(t, c)
	if len(f.hooks.settled) == 0 || f.hooks.settled[len(f.hooks.settled)-1] != 0 {
		t.Errorf("settled = %v", f.hooks.settled)
	}
	if !c.State().Settled {
		t.Error("State not settled")
	}
}

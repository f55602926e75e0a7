package viewer

import (
	"image"
	"slices"
)

// SlotInfo describes one materialized page.
type SlotInfo struct {
	Page       int
	State      SlotState
	Patch      PatchState
	Frame      image.Rectangle
	Highlights int
	Links      int
	Err        error
}

// State is a snapshot of the controller for hosts and tests.
type State struct {
	Current     int
	Count       int
	Scale       float64
	Viewport    image.Point
	Slots       []SlotInfo
	History     []int
	Settled     bool
	Interacting bool
	Animating   bool
	Result      *SearchResult
}

// State returns a snapshot of the controller. Slots are ordered by page.
func (c *Controller) State() State {
	st := State{
		Current:     c.current,
		Count:       c.count,
		Scale:       c.scale,
		Viewport:    c.viewport(),
		History:     slices.Clone(c.history),
		Settled:     c.settled,
		Interacting: c.userInteracting,
		Animating:   !c.scroller.IsFinished(),
		Result:      c.result,
	}
	for _, s := range c.slots {
		st.Slots = append(st.Slots, SlotInfo{
			Page:       s.page,
			State:      s.state,
			Patch:      s.patchState,
			Frame:      s.frame,
			Highlights: len(s.highlights),
			Links:      len(s.links),
			Err:        s.err,
		})
	}
	slices.SortFunc(st.Slots, func(a, b SlotInfo) int { return a.Page - b.Page })
	return st
}

// Slot returns the slot for page i if it is in the window.
func (c *Controller) Slot(i int) *Slot { return c.slots[i] }

package viewer

import (
	"image"
	"testing"
)

func TestBoundsContains(t *testing.T) {
	for _, tc := range []struct {
		b    bounds
		x, y int
		want bool
	}{
		{bounds{0, 0, 0, 0}, 0, 0, false},
		{bounds{-10, -10, 10, 10}, 0, 0, true},
		{bounds{-10, -10, 10, 10}, -10, -10, true},
		{bounds{-10, -10, 10, 10}, 10, 0, false},
		{bounds{-10, -10, 10, 10}, 0, 10, false},
		{bounds{5, 5, -5, -5}, 0, 0, false},
	} {
		if got := tc.b.contains(tc.x, tc.y); got != tc.want {
			t.Errorf("%+v.contains(%d, %d) = %v, want %v", tc.b, tc.x, tc.y, got, tc.want)
		}
	}
	if got, want := (bounds{-100, -50, 100, 50}).inset(-10), (bounds{-110, -60, 110, 60}); got != want {
		t.Errorf("inset(-10) = %+v, want %+v", got, want)
	}
}

func TestCorrection(t *testing.T) {
	for _, tc := range []struct {
		b    bounds
		want image.Point
	}{
		{bounds{-100, -100, 50, 50}, image.Pt(0, 0)},
		{bounds{10, 20, 30, 40}, image.Pt(10, 20)},
		{bounds{-50, -60, -20, -30}, image.Pt(-20, -30)},
		{bounds{200, 250, 200, 250}, image.Pt(200, 250)},
	} {
		if got := correction(tc.b); got != tc.want {
			t.Errorf("correction(%+v) = %v, want %v", tc.b, got, tc.want)
		}
	}
}

func TestScrollBounds(t *testing.T) {
	c := &Controller{w: 800, h: 1000}

	// Smaller than the viewport: held centred.
	if got, want := c.scrollBounds(0, 0, 400, 500), (bounds{200, 250, 200, 250}); got != want {
		t.Errorf("small page bounds = %+v, want %+v", got, want)
	}
	if got, want := c.scrollBounds(-100, -100, 1500, 1900), (bounds{-700, -900, 100, 100}); got != want {
		t.Errorf("large page bounds = %+v, want %+v", got, want)
	}
}

func TestDirectionOfTravel(t *testing.T) {
	for _, tc := range []struct {
		vx, vy float64
		want   direction
	}{
		{100, 10, movingRight},
		{-100, 10, movingLeft},
		{10, 100, movingDown},
		{0, -100, movingUp},
		{100, 100, movingDiagonally},
		{0, 0, movingDiagonally},
	} {
		if got := directionOfTravel(tc.vx, tc.vy); got != tc.want {
			t.Errorf("directionOfTravel(%v, %v) = %v, want %v", tc.vx, tc.vy, got, tc.want)
		}
	}
}

func TestWithinBoundsInDirectionOfTravel(t *testing.T) {
	b := bounds{-100, -100, 100, 100}
	if !withinBoundsInDirectionOfTravel(b, -500, 0) {
		t.Errorf("left fling in range should be within bounds")
	}
	if withinBoundsInDirectionOfTravel(bounds{10, -100, 100, 100}, -500, 0) {
		t.Errorf("left fling with left edge past zero should not be within bounds")
	}
	if withinBoundsInDirectionOfTravel(bounds{10, 10, 100, 100}, 500, 500) {
		t.Errorf("diagonal fling outside bounds should not be within bounds")
	}
}

func TestSmartAdvanceAmount(t *testing.T) {
	for _, tc := range []struct {
		screen, limit, want int
	}{
		{1000, 0, 0},
		{1000, -20, 0},
		{1000, 500, 500},
		{1000, 900, 900},
		{1000, 1000, 900},
		{1000, 1850, 925},
		{1000, 1700, 800},
	} {
		if got := smartAdvanceAmount(tc.screen, tc.limit); got != tc.want {
			t.Errorf("smartAdvanceAmount(%d, %d) = %d, want %d", tc.screen, tc.limit, got, tc.want)
		}
	}
}

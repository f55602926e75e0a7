package viewer

import (
	"time"

	"github.com/rjkroege/pageview/engine"
	"github.com/rjkroege/pageview/internal/gesture"
)

// Config holds the tunables of a Controller.
type Config struct {
	// Horizontal lays pages out side by side; otherwise they are stacked.
	Horizontal bool

	// DPI is the screen density. It sizes tap margins, the fling
	// deceleration and the gesture thresholds.
	DPI float64

	// TapMargin is the width in pixels of the edge bands where a tap
	// pages backwards or forwards. Zero derives it from DPI: one inch,
	// at least 100 pixels, at most a fifth of the viewport width.
	TapMargin int

	FlingMargin int
	Gap         int
	MinScale    float64
	MaxScale    float64

	// SlideDuration is the length of the animation that brings a page
	// onto the screen.
	SlideDuration time.Duration

	// FrameInterval is the delay between animation steps. Zero posts
	// steps back to back.
	FrameInterval time.Duration

	// MaxBitmaps bounds the low-resolution buffers checked out at once.
	// A render config change holds two per page until it lands.
	MaxBitmaps int

	LinksEnabled bool
	Render       engine.RenderConfig

	// Gesture overrides the detector thresholds derived from DPI.
	Gesture *gesture.Config

	// Clock drives animations. Nil means time.Now.
	Clock func() time.Time
}

// DefaultConfig returns the configuration used by the pageview command.
func DefaultConfig() Config {
	return Config{
		Horizontal:    true,
		DPI:           96,
		FlingMargin:   100,
		Gap:           20,
		MinScale:      1,
		MaxScale:      64,
		SlideDuration: 160 * time.Millisecond,
		FrameInterval: 16 * time.Millisecond,
		MaxBitmaps:    8,
		LinksEnabled:  true,
	}
}

func (cfg Config) tapMargin(width int) int {
	if cfg.TapMargin > 0 {
		return cfg.TapMargin
	}
	m := max(int(cfg.DPI), 100)
	if m > width/5 {
		m = width / 5
	}
	return m
}

func (cfg Config) clampScale(s float64) float64 {
	return min(max(s, cfg.MinScale), cfg.MaxScale)
}

// Package compose implements the window/clip composition model and the
// recursive render pipeline that turns a composition tree into a sequence
// of ffmpeg invocations.
package compose

import (
	"github.com/montagekit/montage/internal/errors"
)

// Style selects how a clip is fitted into its window.
type Style string

const (
	// StylePad scales to fit inside the window and pads the border.
	StylePad Style = "pad"
	// StyleCrop scales to cover the window and center-crops the overflow.
	StyleCrop Style = "crop"
	// StylePan scales like crop but slides the visible region over the
	// clip's duration instead of cropping statically.
	StylePan Style = "pan"
	// StyleOverlay renders the clip at native size; scaling and cascading
	// placement happen at composite time.
	StyleOverlay Style = "overlay"
)

// Direction is a pan or overlay travel direction.
type Direction string

const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	// DirectionAlternate makes successive pan renders toggle between up
	// and down. Valid only as a pan direction.
	DirectionAlternate Direction = "alternate"
)

// Display defaults.
const (
	DefaultPadColor           = "black"
	DefaultOverlayConcurrency = 3
	DefaultOverlayMinGap      = 4.0
)

// DisplayConfig configures a Display. Use DefaultDisplayConfig for the
// documented defaults and modify from there.
type DisplayConfig struct {
	// Style defaults to StylePad.
	Style Style
	// PadColor fills the border for StylePad. Any ffmpeg color name or
	// #RRGGBB value.
	PadColor string
	// PanDirection applies to StylePan: up, down, or alternate. Left and
	// right are accepted as synonyms for up and down.
	PanDirection Direction
	// OverlayDirection is the cascade travel direction for StyleOverlay.
	OverlayDirection Direction
	// OverlayConcurrency caps how many cascading clips run at once.
	OverlayConcurrency int
	// OverlayMinGap is the minimum spacing in seconds between cascade
	// start times.
	OverlayMinGap float64
	// IncludeAudio mixes the clip's own audio into the output.
	IncludeAudio bool
}

// DefaultDisplayConfig returns the documented display defaults.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Style:              StylePad,
		PadColor:           DefaultPadColor,
		PanDirection:       DirectionAlternate,
		OverlayDirection:   DirectionDown,
		OverlayConcurrency: DefaultOverlayConcurrency,
		OverlayMinGap:      DefaultOverlayMinGap,
	}
}

// Display describes how a clip or window's content is fitted and animated.
// One Display may be shared by reference across many clips and windows;
// sharing is what makes alternating pan directions span multiple renders.
type Display struct {
	Style              Style
	PadColor           string
	PanDirection       Direction
	OverlayDirection   Direction
	OverlayConcurrency int
	OverlayMinGap      float64
	IncludeAudio       bool

	pan *PanSequencer
}

// NewDisplay validates a DisplayConfig and builds a Display. Pan directions
// left and right are normalized to up and down.
func NewDisplay(cfg DisplayConfig) (*Display, error) {
	switch cfg.Style {
	case StylePad, StyleCrop, StylePan, StyleOverlay:
	default:
		return nil, errors.NewConfigurationError(
			"invalid display style: %q, valid styles are: pad, crop, pan, overlay", cfg.Style)
	}

	switch cfg.OverlayDirection {
	case DirectionUp, DirectionDown, DirectionLeft, DirectionRight:
	default:
		return nil, errors.NewConfigurationError(
			"invalid overlay direction: %q, valid directions are: up, down, left, right", cfg.OverlayDirection)
	}

	pan := cfg.PanDirection
	switch pan {
	case DirectionRight:
		pan = DirectionDown
	case DirectionLeft:
		pan = DirectionUp
	case DirectionUp, DirectionDown, DirectionAlternate:
	default:
		return nil, errors.NewConfigurationError(
			"invalid pan direction: %q, valid directions are: up, down, alternate", cfg.PanDirection)
	}

	if cfg.OverlayConcurrency < 1 {
		return nil, errors.NewConfigurationError(
			"overlay concurrency must be at least 1, got %d", cfg.OverlayConcurrency)
	}
	if cfg.OverlayMinGap < 0 {
		return nil, errors.NewConfigurationError(
			"overlay min gap must not be negative, got %v", cfg.OverlayMinGap)
	}

	return &Display{
		Style:              cfg.Style,
		PadColor:           cfg.PadColor,
		PanDirection:       pan,
		OverlayDirection:   cfg.OverlayDirection,
		OverlayConcurrency: cfg.OverlayConcurrency,
		OverlayMinGap:      cfg.OverlayMinGap,
		IncludeAudio:       cfg.IncludeAudio,
		pan:                NewPanSequencer(pan),
	}, nil
}

// MustDisplay builds a Display and panics on invalid configuration. For
// static literals in callers and tests.
func MustDisplay(cfg DisplayConfig) *Display {
	d, err := NewDisplay(cfg)
	if err != nil {
		panic(err)
	}
	return d
}

// defaultDisplay builds the package default PAD display.
func defaultDisplay() *Display {
	return MustDisplay(DefaultDisplayConfig())
}

// Pan returns the display's pan sequencer.
func (d *Display) Pan() *PanSequencer {
	return d.pan
}

// resolveDisplay picks the Display for a clip rendered in a window:
// the clip's own display, then the window's, then the package default.
func resolveDisplay(clip *Clip, window *Window) *Display {
	if clip != nil && clip.Display != nil {
		return clip.Display
	}
	if window != nil && window.Display != nil {
		return window.Display
	}
	return defaultDisplay()
}

// PanSequencer resolves the pan direction for successive pan renders that
// share a Display. With an alternate base direction, each Next call toggles
// between up and down, starting with down.
//
// Not safe for concurrent use: when clips sharing one Display render in
// parallel, calls to Next must be serialized in the intended render order
// or direction assignment becomes non-deterministic.
type PanSequencer struct {
	direction Direction
	prior     Direction
}

// NewPanSequencer creates a sequencer for the given base direction.
func NewPanSequencer(direction Direction) *PanSequencer {
	return &PanSequencer{direction: direction, prior: DirectionUp}
}

// Next resolves the direction for the next pan render.
func (s *PanSequencer) Next() Direction {
	if s.direction == DirectionAlternate {
		if s.prior == DirectionUp {
			s.prior = DirectionDown
		} else {
			s.prior = DirectionUp
		}
		return s.prior
	}
	s.prior = s.direction
	return s.direction
}

// Prior returns the most recently resolved direction. This participates in
// the render cache fingerprint, so alternating pans cache per direction.
func (s *PanSequencer) Prior() Direction {
	return s.prior
}

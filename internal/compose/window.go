package compose

import (
	"sync/atomic"

	"github.com/montagekit/montage/internal/errors"
	"github.com/montagekit/montage/internal/ffprobe"
)

// Window defaults.
const (
	DefaultWindowWidth  = 1280
	DefaultWindowHeight = 720
	DefaultBackground   = "black"
	DefaultOutputPath   = "./output.mp4"
)

// WindowConfig configures a Window. Zero Width/Height default to 1280x720;
// a zero Duration is computed at render time from the window's clips and
// descendants (or from the audio track's length when one is set).
type WindowConfig struct {
	// Name identifies the window in logs and progress output.
	Name string

	Width  int
	Height int
	// X, Y position the window inside its parent, measured from the top
	// left.
	X int
	Y int

	// ZIndex orders sibling windows during compositing; higher renders on
	// top. Unset indexes are allocated in creation order.
	ZIndex *int

	// Duration of the rendered content in seconds.
	Duration float64

	// BackgroundColor fills regions with no content. BackgroundImage, when
	// set, is looped over the background color; it is assumed pre-sized.
	BackgroundColor string
	BackgroundImage string

	// SampleAspectRatio in "W:H" form. Rarely needed outside broadcast
	// encodes; defaults to the SAR of the input videos.
	SampleAspectRatio string

	// PixelFormat of the rendered window. Every window sharing a render
	// must agree; defaults to yuv420p.
	PixelFormat string

	// AudioPath is an optional audio track played over the window.
	// AudioCaption, when set, is burned in over the final five seconds.
	AudioPath    string
	AudioCaption string

	// Display is the fallback display for clips without their own.
	Display *Display

	// OutputPath receives the final render of a root window.
	OutputPath string

	// Force bypasses cache reads for every clip rendered under this
	// window; results are still written back.
	Force bool
}

// Window is a rectangular composition region: an ordered list of clips, an
// ordered list of child windows, and watermark decorations, rendered into a
// single intermediate file consumed by its parent.
//
// Append clips and children before calling Engine.Render; mutating a tree
// mid-render is not supported.
type Window struct {
	Name   string
	Width  int
	Height int
	X      int
	Y      int
	ZIndex int

	// Duration is the configured duration. Zero means it is resolved at
	// render time, at which point the resolved value is written back.
	Duration float64

	BackgroundColor   string
	BackgroundImage   string
	SampleAspectRatio string
	PixelFormat       string

	AudioPath    string
	AudioCaption string
	// audioDuration is probed at construction when AudioPath is set.
	audioDuration float64

	Display    *Display
	OutputPath string
	Force      bool

	Clips      []*Clip
	Children   []*Window
	Watermarks []*Watermark
}

// ZIndexAllocator hands out monotonically increasing z-indexes for windows
// constructed without an explicit one. Engine-owned so independent
// compositions in one process do not interleave.
type ZIndexAllocator struct {
	next atomic.Int64
}

// Next returns the next z-index.
func (a *ZIndexAllocator) Next() int {
	return int(a.next.Add(1) - 1)
}

// newWindow validates a WindowConfig and applies defaults. Audio probing is
// done by the engine before calling this.
func newWindow(cfg WindowConfig, zindex *ZIndexAllocator, audioDuration float64) (*Window, error) {
	if cfg.Width < 0 || cfg.Height < 0 {
		return nil, errors.NewConfigurationError("window dimensions must be positive")
	}
	if cfg.Width == 0 {
		cfg.Width = DefaultWindowWidth
	}
	if cfg.Height == 0 {
		cfg.Height = DefaultWindowHeight
	}
	if cfg.BackgroundColor == "" {
		cfg.BackgroundColor = DefaultBackground
	}
	if cfg.OutputPath == "" {
		cfg.OutputPath = DefaultOutputPath
	}

	if cfg.SampleAspectRatio != "" {
		if _, _, ok := ffprobe.ParseRatio(cfg.SampleAspectRatio); !ok {
			return nil, errors.NewConfigurationError(
				"sample aspect ratio must be in W:H format, got %q", cfg.SampleAspectRatio)
		}
	}
	if cfg.Duration < 0 {
		return nil, errors.NewConfigurationError("window duration must not be negative")
	}

	z := 0
	if cfg.ZIndex != nil {
		z = *cfg.ZIndex
	} else {
		z = zindex.Next()
	}

	duration := cfg.Duration
	if duration == 0 && cfg.AudioPath != "" {
		duration = audioDuration
	}

	return &Window{
		Name:              cfg.Name,
		Width:             cfg.Width,
		Height:            cfg.Height,
		X:                 cfg.X,
		Y:                 cfg.Y,
		ZIndex:            z,
		Duration:          duration,
		BackgroundColor:   cfg.BackgroundColor,
		BackgroundImage:   cfg.BackgroundImage,
		SampleAspectRatio: cfg.SampleAspectRatio,
		PixelFormat:       cfg.PixelFormat,
		AudioPath:         cfg.AudioPath,
		AudioCaption:      cfg.AudioCaption,
		audioDuration:     audioDuration,
		Display:           cfg.Display,
		OutputPath:        cfg.OutputPath,
		Force:             cfg.Force,
	}, nil
}

// AddClip appends a clip to the window.
func (w *Window) AddClip(clips ...*Clip) {
	w.Clips = append(w.Clips, clips...)
}

// AddChild appends a child window.
func (w *Window) AddChild(children ...*Window) {
	w.Children = append(w.Children, children...)
}

// AddWatermark appends a watermark decoration.
func (w *Window) AddWatermark(marks ...*Watermark) {
	w.Watermarks = append(w.Watermarks, marks...)
}

// AspectRatio returns the window's display aspect ratio.
func (w *Window) AspectRatio() float64 {
	return float64(w.Width) / float64(w.Height)
}

// walk visits the window and every descendant, depth first in child order.
func (w *Window) walk(fn func(*Window)) {
	fn(w)
	for _, child := range w.Children {
		child.walk(fn)
	}
}

// ComputeDuration reports how long this window's own clips play: the larger
// of the sequential clips concatenated and the cascading overlay schedule.
func (w *Window) ComputeDuration() float64 {
	duration, _ := computeSchedule(w.Clips, w)
	return duration
}

// Package montage composes video and audio clips into trees of nested
// rectangular windows and renders them with ffmpeg.
//
// A window is a rectangle holding an ordered list of clips, child windows
// positioned inside it, and watermark decorations. Rendering walks the tree
// bottom-up, producing one intermediate file per window and compositing
// children over their parents by z-index. Rendered clips are cached on disk
// by content fingerprint, so re-rendering a composition only pays for what
// changed.
//
// Basic usage:
//
//	engine, err := montage.New(
//	    montage.WithScratchDir("/tmp/montage"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	window, err := engine.NewWindow(ctx, montage.WindowConfig{
//	    Width: 1920, Height: 1080, OutputPath: "final.mp4",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	clip, err := engine.NewClip(ctx, "holiday.mp4", 30, 90, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	window.AddClip(clip)
//
//	out, err := engine.Render(ctx, window)
package montage

import (
	"context"
	"log/slog"
	"time"

	"github.com/montagekit/montage/internal/compose"
	"github.com/montagekit/montage/internal/config"
	"github.com/montagekit/montage/internal/logging"
)

// Re-export the composition model.
type (
	Window            = compose.Window
	WindowConfig      = compose.WindowConfig
	Clip              = compose.Clip
	MediaAsset        = compose.MediaAsset
	Display           = compose.Display
	DisplayConfig     = compose.DisplayConfig
	Style             = compose.Style
	Direction         = compose.Direction
	Watermark         = compose.Watermark
	WatermarkConfig   = compose.WatermarkConfig
	DistributeOptions = compose.DistributeOptions
	Reporter          = compose.Reporter
	NullReporter      = compose.NullReporter
)

const (
	StylePad     = compose.StylePad
	StyleCrop    = compose.StyleCrop
	StylePan     = compose.StylePan
	StyleOverlay = compose.StyleOverlay

	DirectionUp        = compose.DirectionUp
	DirectionDown      = compose.DirectionDown
	DirectionLeft      = compose.DirectionLeft
	DirectionRight     = compose.DirectionRight
	DirectionAlternate = compose.DirectionAlternate
)

// DefaultDisplayConfig returns the documented display defaults: pad style
// with a black border, alternating pans, and downward cascades limited to
// three concurrent overlays four seconds apart.
func DefaultDisplayConfig() DisplayConfig {
	return compose.DefaultDisplayConfig()
}

// NewDisplay validates a display configuration.
func NewDisplay(cfg DisplayConfig) (*Display, error) {
	return compose.NewDisplay(cfg)
}

// NewWatermark validates a watermark configuration.
func NewWatermark(cfg WatermarkConfig) (*Watermark, error) {
	return compose.NewWatermark(cfg)
}

// Engine is the main entry point for composing and rendering.
type Engine struct {
	inner *compose.Engine
}

// Option configures the engine.
type Option func(*config.Config, *compose.Deps)

// New creates an Engine with the given options.
func New(opts ...Option) (*Engine, error) {
	cfg := config.Default()
	deps := compose.Deps{}
	for _, opt := range opts {
		opt(cfg, &deps)
	}
	inner, err := compose.NewEngine(cfg, deps)
	if err != nil {
		return nil, err
	}
	return &Engine{inner: inner}, nil
}

// WithScratchDir sets the directory holding intermediate renders and the
// cache table.
func WithScratchDir(dir string) Option {
	return func(c *config.Config, _ *compose.Deps) { c.ScratchDir = dir }
}

// WithFFmpegPath sets the ffmpeg binary path.
func WithFFmpegPath(path string) Option {
	return func(c *config.Config, _ *compose.Deps) { c.FFmpegPath = path }
}

// WithFFprobePath sets the ffprobe binary path.
func WithFFprobePath(path string) Option {
	return func(c *config.Config, _ *compose.Deps) { c.FFprobePath = path }
}

// WithOverlayBatch caps how many cascading overlays are composited per
// ffmpeg invocation.
func WithOverlayBatch(n int) Option {
	return func(c *config.Config, _ *compose.Deps) { c.OverlayBatch = n }
}

// WithInvokeTimeout bounds each ffmpeg and ffprobe invocation. Zero leaves
// invocations unbounded.
func WithInvokeTimeout(d time.Duration) Option {
	return func(c *config.Config, _ *compose.Deps) { c.InvokeTimeout = d }
}

// WithSeed fixes the random source used for overlay scaling and placement,
// making renders reproducible.
func WithSeed(seed int64) Option {
	return func(c *config.Config, _ *compose.Deps) { c.Seed = seed }
}

// WithLogger routes engine logs to the given structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(_ *config.Config, d *compose.Deps) { d.Logger = logger }
}

// WithLogging enables logging at the given level on standard error.
func WithLogging(level slog.Level) Option {
	return func(_ *config.Config, d *compose.Deps) {
		lc := logging.DefaultConfig()
		lc.Level = level
		d.Logger = logging.New(lc)
	}
}

// WithReporter routes render progress events to the given reporter.
func WithReporter(rep Reporter) Option {
	return func(_ *config.Config, d *compose.Deps) { d.Reporter = rep }
}

// Asset probes a media file, memoizing the result for the engine's
// lifetime.
func (e *Engine) Asset(ctx context.Context, path string) (*MediaAsset, error) {
	return e.inner.Asset(ctx, path)
}

// NewWindow builds a window from its configuration, probing the audio
// track's duration when one is set.
func (e *Engine) NewWindow(ctx context.Context, cfg WindowConfig) (*Window, error) {
	return e.inner.NewWindow(ctx, cfg)
}

// NewClip probes the source file and builds a clip over [start, end) in
// seconds. A zero end runs to the end of the source.
func (e *Engine) NewClip(ctx context.Context, path string, start, end float64, display *Display) (*Clip, error) {
	return e.inner.NewClip(ctx, path, start, end, display)
}

// Render renders a window tree to the window's OutputPath and returns that
// path.
func (e *Engine) Render(ctx context.Context, w *Window) (string, error) {
	return e.inner.Render(ctx, w)
}

// Distribute spreads clips across windows by aspect-ratio affinity while
// keeping their running durations balanced.
func (e *Engine) Distribute(clips []*Clip, windows []*Window, opts DistributeOptions) error {
	return e.inner.Distribute(clips, windows, opts)
}

// SolidClip renders filler footage to outputPath: a solid color or a still
// image with silent audio.
func (e *Engine) SolidClip(ctx context.Context, duration float64, width, height int, color, image, outputPath string) (string, error) {
	return e.inner.SolidClip(ctx, duration, width, height, color, image, outputPath)
}

// ClearCache removes every cached render and the cache table from the
// scratch directory.
func (e *Engine) ClearCache() error {
	return e.inner.ClearCache()
}

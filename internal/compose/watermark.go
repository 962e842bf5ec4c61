package compose

import (
	"github.com/montagekit/montage/internal/errors"
	"github.com/montagekit/montage/internal/util"
)

// WatermarkConfig configures a watermark: either a still image (Path) or a
// solid color block (Color plus Width and Height), never both. X and Y are
// ffmpeg position expressions evaluated against the window, so values like
// "main_w-overlay_w-10" are valid; both default to "0".
//
// Fade starts are in seconds; negative values are relative to the end of the
// enclosing window. A fade start requires its matching duration.
type WatermarkConfig struct {
	Path   string
	Color  string
	Width  int
	Height int

	X string
	Y string

	FadeInStart     *float64
	FadeInDuration  *float64
	FadeOutStart    *float64
	FadeOutDuration *float64
}

// Watermark is a validated overlay decoration stacked on a rendered window.
type Watermark struct {
	Path   string
	Color  string
	Width  int
	Height int
	X      string
	Y      string

	FadeInStart     *float64
	FadeInDuration  *float64
	FadeOutStart    *float64
	FadeOutDuration *float64
}

// NewWatermark validates a WatermarkConfig.
func NewWatermark(cfg WatermarkConfig) (*Watermark, error) {
	if cfg.Path == "" && (cfg.Color == "" || cfg.Width <= 0 || cfg.Height <= 0) {
		return nil, errors.NewConfigurationError(
			"watermark requires either an image path or all of color, width, and height")
	}
	if cfg.Path != "" && cfg.Color != "" {
		return nil, errors.NewConfigurationError(
			"watermark cannot have both an image path and a color block")
	}
	if cfg.Path != "" && !util.FileExists(cfg.Path) {
		return nil, errors.NewConfigurationError("no watermark media found at %s", cfg.Path)
	}
	if (cfg.FadeInStart == nil) != (cfg.FadeInDuration == nil) {
		return nil, errors.NewConfigurationError("watermark fade-in requires both start and duration")
	}
	if (cfg.FadeOutStart == nil) != (cfg.FadeOutDuration == nil) {
		return nil, errors.NewConfigurationError("watermark fade-out requires both start and duration")
	}

	x, y := cfg.X, cfg.Y
	if x == "" {
		x = "0"
	}
	if y == "" {
		y = "0"
	}

	return &Watermark{
		Path:            cfg.Path,
		Color:           cfg.Color,
		Width:           cfg.Width,
		Height:          cfg.Height,
		X:               x,
		Y:               y,
		FadeInStart:     cfg.FadeInStart,
		FadeInDuration:  cfg.FadeInDuration,
		FadeOutStart:    cfg.FadeOutStart,
		FadeOutDuration: cfg.FadeOutDuration,
	}, nil
}

// IsImage reports whether the watermark is a still image rather than a
// color block.
func (w *Watermark) IsImage() bool {
	return w.Path != ""
}

// fadeWindow resolves one fade against the window duration: negative starts
// are taken relative to the end, and the fade is clamped to the remaining
// time. A nil start disables the fade, reported as a negative duration.
func fadeWindow(start, duration *float64, windowDuration float64) (st, d float64) {
	if start == nil || duration == nil {
		return 0, -1
	}
	st = *start
	if st < 0 {
		st = windowDuration + st
	}
	d = min(*duration, windowDuration-st)
	return st, d
}

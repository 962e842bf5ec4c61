// Package manifest loads TOML composition manifests and builds the window
// tree they describe.
package manifest

import (
	"context"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/montagekit/montage/internal/compose"
	"github.com/montagekit/montage/internal/errors"
)

// Manifest is the root of a composition manifest file.
type Manifest struct {
	// Windows are the root windows, rendered in order.
	Windows []WindowSpec `toml:"window"`

	// Clips listed at the top level are distributed across the root
	// windows instead of being assigned to one.
	Clips []ClipSpec `toml:"clip"`

	// Distribute tunes how the top-level clips are spread.
	Distribute DistributeSpec `toml:"distribute"`
}

// WindowSpec describes one window and its contents.
type WindowSpec struct {
	Name              string  `toml:"name"`
	Width             int     `toml:"width"`
	Height            int     `toml:"height"`
	X                 int     `toml:"x"`
	Y                 int     `toml:"y"`
	ZIndex            *int    `toml:"z_index"`
	Duration          float64 `toml:"duration"`
	BackgroundColor   string  `toml:"background_color"`
	BackgroundImage   string  `toml:"background_image"`
	SampleAspectRatio string  `toml:"sample_aspect_ratio"`
	PixelFormat       string  `toml:"pixel_format"`
	Audio             string  `toml:"audio"`
	AudioCaption      string  `toml:"audio_caption"`
	Output            string  `toml:"output"`
	Force             bool    `toml:"force"`

	Display    *DisplaySpec    `toml:"display"`
	Clips      []ClipSpec      `toml:"clip"`
	Children   []WindowSpec    `toml:"window"`
	Watermarks []WatermarkSpec `toml:"watermark"`
}

// ClipSpec describes a clip of a source file.
type ClipSpec struct {
	Path    string       `toml:"path"`
	Start   float64      `toml:"start"`
	End     float64      `toml:"end"`
	Display *DisplaySpec `toml:"display"`
}

// DisplaySpec mirrors compose.DisplayConfig in manifest form. Unset fields
// inherit the documented defaults.
type DisplaySpec struct {
	Style              string  `toml:"style"`
	PadColor           string  `toml:"pad_color"`
	PanDirection       string  `toml:"pan_direction"`
	OverlayDirection   string  `toml:"overlay_direction"`
	OverlayConcurrency int     `toml:"overlay_concurrency"`
	OverlayMinGap      float64 `toml:"overlay_min_gap"`
	IncludeAudio       bool    `toml:"include_audio"`
}

// WatermarkSpec describes a watermark decoration.
type WatermarkSpec struct {
	Path            string   `toml:"path"`
	Color           string   `toml:"color"`
	Width           int      `toml:"width"`
	Height          int      `toml:"height"`
	X               string   `toml:"x"`
	Y               string   `toml:"y"`
	FadeInStart     *float64 `toml:"fade_in_start"`
	FadeInDuration  *float64 `toml:"fade_in_duration"`
	FadeOutStart    *float64 `toml:"fade_out_start"`
	FadeOutDuration *float64 `toml:"fade_out_duration"`
}

// DistributeSpec mirrors compose.DistributeOptions.
type DistributeSpec struct {
	MinDuration float64 `toml:"min_duration"`
	Shuffle     bool    `toml:"shuffle"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError("read manifest", err)
	}
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.NewConfigurationError("parse manifest %s: %v", path, err)
	}
	if len(m.Windows) == 0 {
		return nil, errors.NewConfigurationError("manifest %s declares no windows", path)
	}
	return &m, nil
}

// Build constructs the window trees the manifest describes, probing every
// referenced media file through the engine, and distributes any top-level
// clips across the root windows.
func (m *Manifest) Build(ctx context.Context, e *compose.Engine) ([]*compose.Window, error) {
	windows := make([]*compose.Window, 0, len(m.Windows))
	for i := range m.Windows {
		w, err := buildWindow(ctx, e, &m.Windows[i])
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}

	if len(m.Clips) > 0 {
		clips := make([]*compose.Clip, 0, len(m.Clips))
		for i := range m.Clips {
			clip, err := buildClip(ctx, e, &m.Clips[i])
			if err != nil {
				return nil, err
			}
			clips = append(clips, clip)
		}
		err := e.Distribute(clips, windows, compose.DistributeOptions{
			MinDuration: m.Distribute.MinDuration,
			Shuffle:     m.Distribute.Shuffle,
		})
		if err != nil {
			return nil, err
		}
	}
	return windows, nil
}

func buildWindow(ctx context.Context, e *compose.Engine, spec *WindowSpec) (*compose.Window, error) {
	display, err := buildDisplay(spec.Display)
	if err != nil {
		return nil, err
	}

	w, err := e.NewWindow(ctx, compose.WindowConfig{
		Name:              spec.Name,
		Width:             spec.Width,
		Height:            spec.Height,
		X:                 spec.X,
		Y:                 spec.Y,
		ZIndex:            spec.ZIndex,
		Duration:          spec.Duration,
		BackgroundColor:   spec.BackgroundColor,
		BackgroundImage:   spec.BackgroundImage,
		SampleAspectRatio: spec.SampleAspectRatio,
		PixelFormat:       spec.PixelFormat,
		AudioPath:         spec.Audio,
		AudioCaption:      spec.AudioCaption,
		Display:           display,
		OutputPath:        spec.Output,
		Force:             spec.Force,
	})
	if err != nil {
		return nil, err
	}

	for i := range spec.Clips {
		clip, err := buildClip(ctx, e, &spec.Clips[i])
		if err != nil {
			return nil, err
		}
		w.AddClip(clip)
	}
	for i := range spec.Children {
		child, err := buildWindow(ctx, e, &spec.Children[i])
		if err != nil {
			return nil, err
		}
		w.AddChild(child)
	}
	for i := range spec.Watermarks {
		ws := &spec.Watermarks[i]
		mark, err := compose.NewWatermark(compose.WatermarkConfig{
			Path:            ws.Path,
			Color:           ws.Color,
			Width:           ws.Width,
			Height:          ws.Height,
			X:               ws.X,
			Y:               ws.Y,
			FadeInStart:     ws.FadeInStart,
			FadeInDuration:  ws.FadeInDuration,
			FadeOutStart:    ws.FadeOutStart,
			FadeOutDuration: ws.FadeOutDuration,
		})
		if err != nil {
			return nil, err
		}
		w.AddWatermark(mark)
	}
	return w, nil
}

func buildClip(ctx context.Context, e *compose.Engine, spec *ClipSpec) (*compose.Clip, error) {
	if spec.Path == "" {
		return nil, errors.NewConfigurationError("clip entry missing a path")
	}
	display, err := buildDisplay(spec.Display)
	if err != nil {
		return nil, err
	}
	return e.NewClip(ctx, spec.Path, spec.Start, spec.End, display)
}

func buildDisplay(spec *DisplaySpec) (*compose.Display, error) {
	if spec == nil {
		return nil, nil
	}
	cfg := compose.DefaultDisplayConfig()
	if spec.Style != "" {
		cfg.Style = compose.Style(spec.Style)
	}
	if spec.PadColor != "" {
		cfg.PadColor = spec.PadColor
	}
	if spec.PanDirection != "" {
		cfg.PanDirection = compose.Direction(spec.PanDirection)
	}
	if spec.OverlayDirection != "" {
		cfg.OverlayDirection = compose.Direction(spec.OverlayDirection)
	}
	if spec.OverlayConcurrency != 0 {
		cfg.OverlayConcurrency = spec.OverlayConcurrency
	}
	if spec.OverlayMinGap != 0 {
		cfg.OverlayMinGap = spec.OverlayMinGap
	}
	cfg.IncludeAudio = spec.IncludeAudio
	return compose.NewDisplay(cfg)
}

package compose

import (
	"github.com/montagekit/montage/internal/ffprobe"
)

// MediaAsset is the probed identity of a source media file. Assets are
// created once per unique path and cached for the engine's lifetime;
// re-probing a file whose contents changed mid-run is unsupported.
type MediaAsset struct {
	Path              string
	Duration          float64
	Width             int
	Height            int
	SampleAspectRatio string
	PixelFormat       string
	AudioChannels     int
}

// HasAudio reports whether the source carries an audio stream.
func (a *MediaAsset) HasAudio() bool {
	return a.AudioChannels > 0
}

// AspectRatio returns the display aspect ratio of the source frame.
func (a *MediaAsset) AspectRatio() float64 {
	return float64(a.Width) / float64(a.Height)
}

func assetFromMetadata(meta *ffprobe.Metadata) *MediaAsset {
	return &MediaAsset{
		Path:              meta.Path,
		Duration:          meta.Duration,
		Width:             meta.Width,
		Height:            meta.Height,
		SampleAspectRatio: meta.SampleAspectRatio,
		PixelFormat:       meta.PixelFormat,
		AudioChannels:     meta.AudioChannels,
	}
}

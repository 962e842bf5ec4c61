package compose

import (
	"github.com/montagekit/montage/internal/errors"
)

// Clip is an immutable time window into a source asset. End of zero means
// "to the end of the asset". Display, when set, overrides the enclosing
// window's display for this clip only.
type Clip struct {
	Asset   *MediaAsset
	Start   float64
	End     float64
	Display *Display
}

// NewClip validates the time range against the asset's duration. Negative
// starts are clamped to zero.
func NewClip(asset *MediaAsset, start, end float64, display *Display) (*Clip, error) {
	if asset == nil {
		return nil, errors.NewConfigurationError("clip requires a source asset")
	}
	if start < 0 {
		start = 0
	}
	if start >= asset.Duration {
		return nil, errors.NewConfigurationError(
			"clip start %v is beyond the %v duration of %s", start, asset.Duration, asset.Path)
	}
	if end != 0 {
		if end > asset.Duration {
			return nil, errors.NewConfigurationError(
				"clip end %v is beyond the %v duration of %s", end, asset.Duration, asset.Path)
		}
		if end <= start {
			return nil, errors.NewConfigurationError(
				"clip end %v is not after its start %v", end, start)
		}
	} else {
		end = asset.Duration
	}

	return &Clip{Asset: asset, Start: start, End: end, Display: display}, nil
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	return c.End - c.Start
}

// AspectRatio returns the display aspect ratio of the source frame.
func (c *Clip) AspectRatio() float64 {
	return c.Asset.AspectRatio()
}

// Package config provides configuration types and defaults for the montage
// engine.
package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"
)

// Default constants.
const (
	// DefaultFFmpegPath is the ffmpeg binary resolved from PATH.
	DefaultFFmpegPath = "ffmpeg"

	// DefaultFFprobePath is the ffprobe binary resolved from PATH.
	DefaultFFprobePath = "ffprobe"

	// DefaultFrameRate is applied to every intermediate encode so concat and
	// overlay inputs always agree on timing.
	DefaultFrameRate = "30000/1001"

	// DefaultCRF is the x264 quality used for intermediate files. Low enough
	// that repeated re-encodes through the pipeline stay visually lossless.
	DefaultCRF = 16

	// DefaultVideoCodec encodes every intermediate file.
	DefaultVideoCodec = "libx264"

	// DefaultAudioCodec encodes every intermediate audio stream.
	DefaultAudioCodec = "aac"

	// DefaultPixelFormat is assumed when no window or source specifies one.
	DefaultPixelFormat = "yuv420p"

	// DefaultOverlayBatch caps how many overlay inputs go into a single
	// ffmpeg invocation. Larger values risk hitting command-length and
	// filter-graph resource limits.
	DefaultOverlayBatch = 16

	// MaxCRF is the maximum valid CRF value for libx264.
	MaxCRF = 51
)

// Config contains the engine configuration.
type Config struct {
	// ScratchDir holds intermediate render files and the cache table.
	ScratchDir string

	// FFmpegPath and FFprobePath locate the external tools.
	FFmpegPath  string
	FFprobePath string

	// FrameRate, CRF, VideoCodec, AudioCodec apply to every intermediate
	// encode.
	FrameRate  string
	CRF        int
	VideoCodec string
	AudioCodec string

	// OverlayBatch caps overlay inputs per ffmpeg invocation.
	OverlayBatch int

	// InvokeTimeout bounds a single external invocation. Zero means no
	// timeout; a hung ffmpeg process then blocks the render indefinitely.
	InvokeTimeout time.Duration

	// Seed fixes the RNG used for overlay scale and placement. Zero seeds
	// from the current time.
	Seed int64
}

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		ScratchDir:   defaultScratchDir(),
		FFmpegPath:   DefaultFFmpegPath,
		FFprobePath:  DefaultFFprobePath,
		FrameRate:    DefaultFrameRate,
		CRF:          DefaultCRF,
		VideoCodec:   DefaultVideoCodec,
		AudioCodec:   DefaultAudioCodec,
		OverlayBatch: DefaultOverlayBatch,
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.ScratchDir == "" {
		return ErrNoScratchDir
	}
	if c.FFmpegPath == "" || c.FFprobePath == "" {
		return ErrNoToolPath
	}
	if c.CRF < 0 || c.CRF > MaxCRF {
		return fmt.Errorf("%w: %d, valid range: 0-%d", ErrInvalidCRF, c.CRF, MaxCRF)
	}
	if c.OverlayBatch < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidOverlayBatch, c.OverlayBatch)
	}
	if c.InvokeTimeout < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.InvokeTimeout)
	}
	return nil
}

// defaultScratchDir places scratch files under the system temp directory,
// segregated per user like the cache it contains.
func defaultScratchDir() string {
	name := "montage"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = "montage-" + u.Username
	}
	return filepath.Join(os.TempDir(), name)
}

package config

import "errors"

// Sentinel errors for configuration validation.
var (
	ErrNoScratchDir        = errors.New("scratch directory must be set")
	ErrNoToolPath          = errors.New("ffmpeg and ffprobe paths must be set")
	ErrInvalidCRF          = errors.New("invalid CRF value")
	ErrInvalidOverlayBatch = errors.New("overlay batch concurrency must be at least 1")
	ErrInvalidTimeout      = errors.New("invocation timeout must not be negative")
)

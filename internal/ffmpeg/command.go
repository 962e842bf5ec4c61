// Package ffmpeg builds and executes ffmpeg invocations for the montage
// render pipeline.
package ffmpeg

import "strconv"

// Invocation describes one ffmpeg run: the full argument list and the output
// file the command is expected to produce. An invocation succeeds only if
// ffmpeg exits zero AND the output exists afterwards.
type Invocation struct {
	Args   []string
	Output string
}

// Params carries the encode parameters applied to every intermediate file.
type Params struct {
	FrameRate   string
	CRF         int
	VideoCodec  string
	AudioCodec  string
	PixelFormat string
}

// VideoArgs returns the common video encode arguments.
func (p Params) VideoArgs() []string {
	return []string{
		"-pix_fmt", p.PixelFormat,
		"-r", p.FrameRate,
		"-crf", strconv.Itoa(p.CRF),
		"-c:v", p.VideoCodec,
	}
}

// AudioArgs returns the common audio encode arguments.
func (p Params) AudioArgs() []string {
	return []string{"-c:a", p.AudioCodec}
}

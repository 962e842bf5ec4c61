// Package ffprobe extracts media metadata using the ffprobe tool.
package ffprobe

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/montagekit/montage/internal/errors"
	"github.com/montagekit/montage/internal/logging"
)

// Metadata contains the probed properties of a media file.
type Metadata struct {
	Path              string
	Duration          float64
	Width             int
	Height            int
	SampleAspectRatio string
	PixelFormat       string
	// AudioChannels is 0 when the file carries no audio stream.
	AudioChannels int
}

// HasAudio reports whether the file carries an audio stream.
func (m *Metadata) HasAudio() bool {
	return m.AudioChannels > 0
}

// Prober probes media files for metadata.
type Prober interface {
	// Probe returns full metadata for a media file.
	Probe(ctx context.Context, path string) (*Metadata, error)
	// ProbeDuration returns only the container duration, for audio files.
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// ExecProber runs the ffprobe binary.
type ExecProber struct {
	BinPath string
	Log     *slog.Logger
}

// NewExecProber creates a prober running the given ffprobe binary.
func NewExecProber(binPath string, logger *slog.Logger) *ExecProber {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ExecProber{
		BinPath: binPath,
		Log:     logging.WithComponent(logger, "ffprobe"),
	}
}

// ffprobeOutput represents the JSON output from ffprobe.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType         string `json:"codec_type"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	Channels          int    `json:"channels"`
	PixFmt            string `json:"pix_fmt"`
	SampleAspectRatio string `json:"sample_aspect_ratio"`
}

func (p *ExecProber) run(ctx context.Context, path string) (*ffprobeOutput, error) {
	cmd := exec.CommandContext(ctx, p.BinPath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		stderr := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		return nil, errors.WrapExecError(p.BinPath, err, stderr)
	}

	var result ffprobeOutput
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, errors.NewProbeParseError("failed to parse ffprobe output for "+path, err)
	}
	return &result, nil
}

// Probe returns full metadata for a media file.
func (p *ExecProber) Probe(ctx context.Context, path string) (*Metadata, error) {
	probe, err := p.run(ctx, path)
	if err != nil {
		return nil, err
	}

	meta := &Metadata{Path: path}

	if probe.Format.Duration != "" {
		d, err := strconv.ParseFloat(probe.Format.Duration, 64)
		if err != nil {
			return nil, errors.NewProbeParseError("failed to parse duration for "+path, err)
		}
		meta.Duration = d
	}

	var video *ffprobeStream
	for i := range probe.Streams {
		stream := &probe.Streams[i]
		switch stream.CodecType {
		case "video":
			if video == nil {
				video = stream
			}
		case "audio":
			if meta.AudioChannels == 0 && stream.Channels > 0 {
				meta.AudioChannels = stream.Channels
			}
		}
	}

	if video == nil {
		return nil, errors.NewProbeParseError("no video stream found in "+path, nil)
	}
	if video.Width <= 0 || video.Height <= 0 {
		return nil, errors.NewProbeParseError("invalid dimensions in "+path, nil)
	}

	meta.Width = video.Width
	meta.Height = video.Height
	meta.PixelFormat = video.PixFmt
	meta.SampleAspectRatio = p.repairSAR(path, video.SampleAspectRatio)

	return meta, nil
}

// ProbeDuration returns only the container duration. Used for audio tracks
// where no video stream is expected.
func (p *ExecProber) ProbeDuration(ctx context.Context, path string) (float64, error) {
	probe, err := p.run(ctx, path)
	if err != nil {
		return 0, err
	}
	if probe.Format.Duration == "" {
		return 0, errors.NewProbeParseError("no duration reported for "+path, nil)
	}
	d, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, errors.NewProbeParseError("failed to parse duration for "+path, err)
	}
	return d, nil
}

// repairSAR normalizes nonsense sample aspect ratios some files report.
// A SAR of 0:1 and ratios within 10% of square (rounding-error values like
// 649:639) are both treated as 1:1.
func (p *ExecProber) repairSAR(path, sar string) string {
	if sar == "" {
		return ""
	}
	if sar == "0:1" {
		p.Log.Warn("nonsense SAR value of 0:1, assuming 1:1", slog.String("path", path))
		return "1:1"
	}

	w, h, ok := ParseRatio(sar)
	if !ok {
		return sar
	}
	if w != h && math.Abs(float64(w)/float64(h)-1) < 0.1 {
		p.Log.Warn("near-square SAR value, assuming 1:1",
			slog.String("path", path), slog.String("sar", sar))
		return "1:1"
	}
	return sar
}

// ParseRatio parses a "W:H" ratio string.
func ParseRatio(s string) (w, h int, ok bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	h, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}

package ffmpeg

import (
	"fmt"
	"strings"
)

// Filter-graph fragments for the composition pipeline. Everything here is
// pure string assembly; the render pipeline decides which fragments to chain.

// SetSARClause returns a trailing setsar filter for the resolved sample
// aspect ratio, or "" when no SAR is in play. ffmpeg deprecated the W:H
// notation in favor of W/H.
func SetSARClause(sar string) string {
	if sar == "" {
		return ""
	}
	parts := strings.SplitN(sar, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	return fmt.Sprintf(",setsar=sar=%s/%s", parts[0], parts[1])
}

// SolidBackgroundGraph renders a solid color canvas.
func SolidBackgroundGraph(color string, width, height int, sarClause string) string {
	return fmt.Sprintf(" color=%s:size=%dx%d%s,setpts=PTS-STARTPTS/TB ",
		color, width, height, sarClause)
}

// ImageBackgroundGraph renders a solid color canvas with a looped still
// image (input 0) overlaid on top.
func ImageBackgroundGraph(color string, width, height int, sarClause string) string {
	return fmt.Sprintf(" color=%s:size=%dx%d,setpts=PTS-STARTPTS/TB [base] ; [0] setpts=PTS-STARTPTS/TB [image]; [base] [image] overlay%s ",
		color, width, height, sarClause)
}

// ScaleClause scales to an exact size; returns "" when no scaling is needed.
func ScaleClause(width, height int) string {
	return fmt.Sprintf("scale=width=%d:height=%d,", width, height)
}

// PadClause pads a (possibly scaled) frame out to the window size, centering
// the content and filling the border with the pad color.
func PadClause(contentW, contentH, windowW, windowH int, color string) string {
	xterm := ""
	if contentW != windowW {
		xterm = fmt.Sprintf(":x=%d", (windowW-contentW)/2)
	}
	yterm := ""
	if contentH != windowH {
		yterm = fmt.Sprintf(":y=%d", (windowH-contentH)/2)
	}
	return fmt.Sprintf("pad=width=%d:height=%d%s%s:color=%s", windowW, windowH, xterm, yterm, color)
}

// CropClause center-crops to the window size.
func CropClause(windowW, windowH int) string {
	return fmt.Sprintf("crop=w=%d:h=%d", windowW, windowH)
}

// PanCropClause crops to the window size while sliding the crop origin over
// the clip's duration. xExpr/yExpr may be empty when that axis does not
// overflow.
func PanCropClause(windowW, windowH int, xExpr, yExpr string) string {
	pan := ""
	if xExpr != "" {
		pan = ":x=" + xExpr
	}
	if yExpr != "" {
		pan += ":y=" + yExpr
	}
	return fmt.Sprintf("crop=w=%d:h=%d%s", windowW, windowH, pan)
}

// PanPositionExpr returns the crop-origin expression for one axis.
// content is the scaled content dimension on that axis, window the window
// dimension; forward slides origin 0 -> overflow (pans toward down/right),
// reverse slides overflow -> 0.
func PanPositionExpr(content, window int, duration float64, forward bool) string {
	if content <= window {
		return ""
	}
	pixelsPerSec := float64(content-window) / duration
	if forward {
		return fmt.Sprintf("trunc(%f * t)", pixelsPerSec)
	}
	return fmt.Sprintf("%d-trunc(%f * t)", content-window, pixelsPerSec)
}

// CascadeInputClause prepares one overlay input: scale it down and shift its
// timestamps so it begins at its scheduled start.
func CascadeInputClause(inputIndex, width, height int, start float64, label string) string {
	return fmt.Sprintf(" [%d:v] fifo,scale=width=%d:height=%d,setpts=PTS-STARTPTS+%f/TB [%s] ; ",
		inputIndex, width, height, start, label)
}

// CascadePositionExpr computes the moving-axis position expression for a
// cascading overlay. span is the window dimension on the moving axis,
// size the scaled overlay dimension on that axis. Before the scheduled
// start the NAN sentinel keeps the overlay invisible.
//
// fromFar slides from the window's far edge toward negative coordinates
// (direction up or left); otherwise the overlay enters from the near edge.
// Uppercase W/H refer to the window, lowercase to the overlay.
func CascadePositionExpr(axis byte, span, size int, start, duration float64, fromFar bool) string {
	rate := float64(span+size) / duration
	farDim := "H"
	nearDim := "h"
	if axis == 'x' {
		farDim = "W"
		nearDim = "w"
	}
	if fromFar {
		return fmt.Sprintf("'if( gte(t,%f), %s-(t-%f)*%f, NAN)'", start, farDim, start, rate)
	}
	return fmt.Sprintf("'if( gte(t,%f), -%s+(t-%f)*%f, NAN)'", start, nearDim, start, rate)
}

// OverlayStep chains one overlay onto the accumulated graph. eof_action=pass
// keeps the base running after a shorter overlay ends.
func OverlayStep(prev, overlay, x, y, out string) string {
	return fmt.Sprintf(" [%s] [%s] overlay=x=%s:y=%s:eof_action=pass [%s] ; ", prev, overlay, x, y, out)
}

// FadeClause builds a watermark fade filter. Either side may be disabled by
// passing a negative duration. Returns "copy" when no fade applies so the
// stream still flows through a filter.
func FadeClause(inStart, inDuration, outStart, outDuration float64) string {
	clause := ""
	if inDuration >= 0 {
		clause = fmt.Sprintf("fade=in:st=%f:d=%f", inStart, inDuration)
	}
	if outDuration >= 0 {
		if clause == "" {
			clause = "fade="
		} else {
			clause += ":"
		}
		clause += fmt.Sprintf("out:st=%f:d=%f", outStart, outDuration)
	}
	if clause == "" {
		return "copy"
	}
	return clause
}

// AudioFadeMixClause fades the added track (input 1) out and mixes it with
// the existing audio (input 0).
func AudioFadeMixClause(fadeStart, fadeDuration float64) string {
	return fmt.Sprintf(" [1:a] afade=t=out:st=%f:d=%f [a1] ; [0:a] [a1] %s ",
		fadeStart, fadeDuration, AMixClause(2))
}

// AMixClause mixes n audio inputs without replacing either side.
func AMixClause(n int) string {
	return fmt.Sprintf("amix=inputs=%d:duration=longest:dropout_transition=0", n)
}

// ADelayClause delays every channel of an audio stream by the same amount.
// adelay wants one value per channel.
func ADelayClause(delayMillis int64, channels int) string {
	if channels < 1 {
		channels = 1
	}
	values := make([]string, channels)
	for i := range values {
		values[i] = fmt.Sprintf("%d", delayMillis)
	}
	return "adelay=" + strings.Join(values, "|")
}

// DrawTextClause burns a caption from a text file into the lower-left
// corner, enabled after the given timestamp.
func DrawTextClause(textFile string, enableAfter float64) string {
	return fmt.Sprintf(`drawtext=fontcolor=white:borderw=1:textfile=%s:x=10:y=h-th-10:enable=gt(t\,%f)`,
		textFile, enableAfter)
}

// ConcatManifest builds the concat demuxer manifest contents for a list of
// rendered clip files.
func ConcatManifest(files []string) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "file '%s'\n", f)
	}
	return b.String()
}

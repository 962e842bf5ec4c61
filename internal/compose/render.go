package compose

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/montagekit/montage/internal/config"
	"github.com/montagekit/montage/internal/errors"
	"github.com/montagekit/montage/internal/ffmpeg"
	"github.com/montagekit/montage/internal/rendercache"
	"github.com/montagekit/montage/internal/util"
)

// renderState carries per-render values resolved up front: the sample
// aspect ratio and pixel format agreed on by the subtree, the encode
// parameters derived from them, and whether cache reads are bypassed.
type renderState struct {
	sar       string
	sarClause string
	pixFmt    string
	params    ffmpeg.Params
	force     bool
}

// Render renders a window tree, copies the result to the window's
// OutputPath and returns that path.
//
// The pipeline runs a fixed stage order per window: consistency checks,
// duration resolution, background, clip renders, sequential concat overlay,
// cascading overlays, child windows by z-index, watermarks, the audio
// track, then loudness normalization. Each stage consumes the previous
// stage's intermediate file.
func (e *Engine) Render(ctx context.Context, w *Window) (string, error) {
	if w == nil {
		return "", errors.NewConfigurationError("render requires a window")
	}
	return e.renderWindow(ctx, w, false, w.Force)
}

func (e *Engine) renderWindow(ctx context.Context, w *Window, helper bool, force bool) (string, error) {
	e.reporter.WindowStarted(w.Name, w.Width, w.Height)
	log := e.log.With(slog.String("window", w.Name))

	st := &renderState{force: force || w.Force}
	if err := e.resolveSAR(w, st); err != nil {
		return "", err
	}
	if err := e.resolveDuration(w); err != nil {
		return "", err
	}
	if err := e.resolvePixFmt(w, st); err != nil {
		return "", err
	}
	st.params = e.params(st.pixFmt)

	log.Info("rendering window",
		slog.Int("width", w.Width), slog.Int("height", w.Height),
		slog.Float64("duration", w.Duration),
		slog.String("pix_fmt", st.pixFmt))

	e.reporter.Stage(w.Name, "background")
	current, err := e.renderBackground(ctx, w, st)
	if err != nil {
		return "", err
	}

	e.reporter.Stage(w.Name, "clips")
	current, err = e.renderClips(ctx, w, st, current)
	if err != nil {
		return "", err
	}

	e.reporter.Stage(w.Name, "children")
	current, err = e.compositeChildren(ctx, w, st, current)
	if err != nil {
		return "", err
	}

	e.reporter.Stage(w.Name, "watermarks")
	current, err = e.applyWatermarks(ctx, w, st, current)
	if err != nil {
		return "", err
	}

	e.reporter.Stage(w.Name, "audio")
	current, err = e.mixAudio(ctx, w, st, current)
	if err != nil {
		return "", err
	}

	e.reporter.Stage(w.Name, "normalize")
	current, err = e.normalizeAudio(ctx, st, current)
	if err != nil {
		return "", err
	}

	if !helper {
		if err := util.CopyFile(current, w.OutputPath); err != nil {
			return "", errors.NewIOError("copy render to output", err)
		}
		current = w.OutputPath
	}
	e.reporter.WindowFinished(w.Name, current)
	return current, nil
}

// resolveSAR collects every sample aspect ratio declared in the subtree:
// the window's own where set, otherwise its clips' probed values. More than
// one distinct value cannot be composited into a single output.
func (e *Engine) resolveSAR(w *Window, st *renderState) error {
	seen := make(map[string]struct{})
	w.walk(func(win *Window) {
		if win.SampleAspectRatio != "" {
			seen[win.SampleAspectRatio] = struct{}{}
			return
		}
		for _, clip := range win.Clips {
			if sar := clip.Asset.SampleAspectRatio; sar != "" {
				seen[sar] = struct{}{}
			}
		}
	})

	if len(seen) > 1 {
		values := make([]string, 0, len(seen))
		for s := range seen {
			values = append(values, s)
		}
		sort.Strings(values)
		return errors.NewConsistencyError(
			"conflicting sample aspect ratios in window tree: %s", strings.Join(values, ", "))
	}
	for s := range seen {
		st.sar = s
	}
	st.sarClause = ffmpeg.SetSARClause(st.sar)
	return nil
}

// resolveDuration fills in an unset window duration from the longest clip
// schedule anywhere in the subtree. The resolved value is written back so
// later stages and parents see it.
func (e *Engine) resolveDuration(w *Window) error {
	if w.Duration > 0 {
		return nil
	}
	var longest float64
	w.walk(func(win *Window) {
		if d := win.ComputeDuration(); d > longest {
			longest = d
		}
	})
	if longest == 0 {
		return errors.NewConfigurationError(
			"cannot determine duration for window %q: set a duration, an audio track, or add clips", w.Name)
	}
	w.Duration = longest
	return nil
}

// resolvePixFmt checks that every window in the subtree declaring a pixel
// format agrees, defaulting to yuv420p when none does.
func (e *Engine) resolvePixFmt(w *Window, st *renderState) error {
	seen := make(map[string]struct{})
	w.walk(func(win *Window) {
		if win.PixelFormat != "" {
			seen[win.PixelFormat] = struct{}{}
		}
	})
	if len(seen) > 1 {
		values := make([]string, 0, len(seen))
		for s := range seen {
			values = append(values, s)
		}
		sort.Strings(values)
		return errors.NewConsistencyError(
			"conflicting pixel formats in window tree: %s", strings.Join(values, ", "))
	}
	st.pixFmt = config.DefaultPixelFormat
	for s := range seen {
		st.pixFmt = s
	}
	w.PixelFormat = st.pixFmt
	return nil
}

// renderBackground produces the window-sized base layer: the background
// color, optionally with a looped still image on top, plus a silent audio
// bed so every later stage can assume an audio stream exists.
func (e *Engine) renderBackground(ctx context.Context, w *Window, st *renderState) (string, error) {
	out := e.scratchFile(".mp4")
	args := []string{"-y"}

	var graph string
	if w.BackgroundImage != "" {
		if !util.FileExists(w.BackgroundImage) {
			return "", errors.NewConfigurationError("background image not found: %s", w.BackgroundImage)
		}
		args = append(args, "-loop", "1", "-i", w.BackgroundImage)
		graph = ffmpeg.ImageBackgroundGraph(w.BackgroundColor, w.Width, w.Height, st.sarClause)
	} else {
		graph = ffmpeg.SolidBackgroundGraph(w.BackgroundColor, w.Width, w.Height, st.sarClause)
	}

	args = append(args, "-f", "lavfi", "-i", "aevalsrc=0")
	args = append(args, st.params.VideoArgs()...)
	args = append(args, st.params.AudioArgs()...)
	args = append(args, "-filter_complex", graph, "-t", seconds(w.Duration), out)

	if err := e.run(ctx, ffmpeg.Invocation{Args: args, Output: out}); err != nil {
		return "", err
	}
	return out, nil
}

// cascadeEntry pairs a rendered overlay clip with its scheduled interval.
type cascadeEntry struct {
	clip     *Clip
	display  *Display
	file     string
	interval Interval
}

// renderClips renders every clip through the cache, concatenates the
// sequential ones into a single track overlaid on the background, then
// composites the cascading overlays in batches.
func (e *Engine) renderClips(ctx context.Context, w *Window, st *renderState, current string) (string, error) {
	if len(w.Clips) == 0 {
		return current, nil
	}

	_, timing := computeSchedule(w.Clips, w)

	var seqFiles []string
	var cascades []cascadeEntry
	for _, clip := range w.Clips {
		display := resolveDisplay(clip, w)
		file, err := e.renderClip(ctx, w, st, clip, display)
		if err != nil {
			return "", err
		}
		if display.Style == StyleOverlay {
			cascades = append(cascades, cascadeEntry{
				clip:     clip,
				display:  display,
				file:     file,
				interval: timing[len(cascades)],
			})
		} else {
			seqFiles = append(seqFiles, file)
		}
	}

	if len(seqFiles) > 0 {
		concat, err := e.concatClips(ctx, st, seqFiles)
		if err != nil {
			return "", err
		}
		current, err = e.overlaySequence(ctx, w, st, current, concat)
		if err != nil {
			return "", err
		}
	}
	if len(cascades) > 0 {
		var err error
		current, err = e.cascadeOverlays(ctx, w, st, current, cascades)
		if err != nil {
			return "", err
		}
	}
	return current, nil
}

// renderClip renders one clip fitted to the window, going through the
// render cache. The cache file is named by the fingerprint so interrupted
// runs never leave a table entry pointing at a half-written file under a
// different name.
func (e *Engine) renderClip(ctx context.Context, w *Window, st *renderState, clip *Clip, display *Display) (string, error) {
	asset := clip.Asset

	var filter string
	var panDir Direction
	switch display.Style {
	case StylePad:
		_, cw, ch := fitDimensions(asset.Width, asset.Height, w.Width, w.Height, fitInside)
		filter = ffmpeg.ScaleClause(cw, ch) +
			ffmpeg.PadClause(cw, ch, w.Width, w.Height, display.PadColor) +
			st.sarClause
	case StyleCrop:
		_, cw, ch := fitDimensions(asset.Width, asset.Height, w.Width, w.Height, fitCover)
		filter = ffmpeg.ScaleClause(cw, ch) + ffmpeg.CropClause(w.Width, w.Height) + st.sarClause
	case StylePan:
		_, cw, ch := fitDimensions(asset.Width, asset.Height, w.Width, w.Height, fitCover)
		if cw > w.Width || ch > w.Height {
			// Resolve the direction before fingerprinting so alternating
			// renders hash apart. An exact cover fit has no overflow to
			// pan across, and resolving anyway would advance the
			// alternation for clips that never move.
			panDir = display.Pan().Next()
		}
		forward := panDir == DirectionDown
		xExpr := ffmpeg.PanPositionExpr(cw, w.Width, clip.Duration(), forward)
		yExpr := ffmpeg.PanPositionExpr(ch, w.Height, clip.Duration(), forward)
		filter = ffmpeg.ScaleClause(cw, ch) +
			ffmpeg.PanCropClause(w.Width, w.Height, xExpr, yExpr) +
			st.sarClause
	case StyleOverlay:
		// Rendered at native size; scaled and placed at composite time.
	}

	fp := rendercache.Fingerprint{
		SourcePath:   asset.Path,
		Start:        clip.Start,
		End:          clip.End,
		Style:        string(display.Style),
		Width:        w.Width,
		Height:       w.Height,
		PanDirection: string(panDir),
		PixelFormat:  st.pixFmt,
		IncludeAudio: display.IncludeAudio,
	}

	if !st.force {
		if path, ok, err := e.cache.Lookup(fp); err != nil {
			return "", err
		} else if ok {
			e.log.Debug("clip cache hit",
				slog.String("source", asset.Path), slog.String("file", path))
			return path, nil
		}
	}

	out := filepath.Join(e.cache.Dir(), fp.Key()+".mp4")
	args := []string{"-y", "-ss", seconds(clip.Start), "-i", asset.Path}
	args = append(args, st.params.VideoArgs()...)
	if display.IncludeAudio {
		args = append(args, st.params.AudioArgs()...)
	} else {
		args = append(args, "-an")
	}
	if filter != "" {
		args = append(args, "-filter_complex", " "+filter+" ")
	}
	args = append(args, "-t", seconds(clip.Duration()), out)

	if err := e.run(ctx, ffmpeg.Invocation{Args: args, Output: out}); err != nil {
		return "", err
	}
	if err := e.cache.Store(fp, out); err != nil {
		return "", err
	}
	return out, nil
}

// concatClips joins rendered sequential clips losslessly in list order via
// the concat demuxer.
func (e *Engine) concatClips(ctx context.Context, st *renderState, files []string) (string, error) {
	manifest := e.scratchFile(".txt")
	if err := os.WriteFile(manifest, []byte(ffmpeg.ConcatManifest(files)), 0o644); err != nil {
		return "", errors.NewIOError("write concat manifest", err)
	}

	out := e.scratchFile(".mp4")
	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", manifest}
	args = append(args, st.params.VideoArgs()...)
	args = append(args, st.params.AudioArgs()...)
	args = append(args, out)

	if err := e.run(ctx, ffmpeg.Invocation{Args: args, Output: out}); err != nil {
		return "", err
	}
	return out, nil
}

// overlaySequence places the concatenated sequential track over the
// background at the window origin, mixing its audio in when it has any.
func (e *Engine) overlaySequence(ctx context.Context, w *Window, st *renderState, current, concat string) (string, error) {
	meta, err := e.prober.Probe(ctx, concat)
	if err != nil {
		return "", err
	}

	audio := " [0:a] afifo [outa] "
	if meta.HasAudio() {
		audio = fmt.Sprintf(" [0:a] afifo [a0] ; [1:a] afifo [a1] ; [a0] [a1] %s [outa] ",
			ffmpeg.AMixClause(2))
	}
	graph := fmt.Sprintf(
		" [0:v] fifo,setpts=PTS-STARTPTS/TB [bg] ; [1:v] fifo,setpts=PTS-STARTPTS/TB [fg] ; [bg] [fg] overlay=x=0:y=0:eof_action=pass%s [outv] ;%s",
		st.sarClause, audio)

	out := e.scratchFile(".mp4")
	args := []string{"-y", "-i", current, "-i", concat}
	args = append(args, st.params.VideoArgs()...)
	args = append(args, st.params.AudioArgs()...)
	args = append(args,
		"-filter_complex", graph,
		"-map", "[outv]", "-map", "[outa]",
		"-t", seconds(w.Duration), out)

	if err := e.run(ctx, ffmpeg.Invocation{Args: args, Output: out}); err != nil {
		return "", err
	}
	return out, nil
}

// cascadeOverlays composites the scheduled overlay clips in batches, bounding
// the inputs of any single filter graph. Each overlay is scaled to a random
// third-to-two-thirds of the window width, placed at a random coordinate on
// the fixed axis, and slid across the moving axis over its interval.
func (e *Engine) cascadeOverlays(ctx context.Context, w *Window, st *renderState, current string, cascades []cascadeEntry) (string, error) {
	batch := e.cfg.OverlayBatch
	for from := 0; from < len(cascades); from += batch {
		group := cascades[from:min(from+batch, len(cascades))]

		out := e.scratchFile(".mp4")
		args := []string{"-y", "-i", current}

		var graph strings.Builder
		var audioInputs []cascadeEntry
		var audioIdx []int
		prev := "0:v"
		for i, entry := range group {
			idx := i + 1
			args = append(args, "-i", entry.file)

			scale := (1.0 + e.rng.Float64()) / 3.0
			ow := evenDown(int(float64(w.Width) * scale))
			if ow < 2 {
				ow = 2
			}
			oh := 2 * (entry.clip.Asset.Height * ow / (entry.clip.Asset.Width * 2))
			if oh < 2 {
				oh = 2
			}

			label := fmt.Sprintf("ov%d", idx)
			graph.WriteString(ffmpeg.CascadeInputClause(idx, ow, oh, entry.interval.Start, label))

			dur := entry.clip.Duration()
			var xExpr, yExpr string
			switch entry.display.OverlayDirection {
			case DirectionUp:
				xExpr = strconv.Itoa(e.rng.Intn(max(1, w.Width-ow+1)))
				yExpr = ffmpeg.CascadePositionExpr('y', w.Height, oh, entry.interval.Start, dur, true)
			case DirectionDown:
				xExpr = strconv.Itoa(e.rng.Intn(max(1, w.Width-ow+1)))
				yExpr = ffmpeg.CascadePositionExpr('y', w.Height, oh, entry.interval.Start, dur, false)
			case DirectionLeft:
				xExpr = ffmpeg.CascadePositionExpr('x', w.Width, ow, entry.interval.Start, dur, false)
				yExpr = strconv.Itoa(e.rng.Intn(max(1, w.Height-oh+1)))
			case DirectionRight:
				xExpr = ffmpeg.CascadePositionExpr('x', w.Width, ow, entry.interval.Start, dur, true)
				yExpr = strconv.Itoa(e.rng.Intn(max(1, w.Height-oh+1)))
			}

			next := fmt.Sprintf("t%d", idx)
			if i == len(group)-1 {
				next = "outv"
			}
			graph.WriteString(ffmpeg.OverlayStep(prev, label, xExpr, yExpr, next))
			prev = next

			if entry.display.IncludeAudio && entry.clip.Asset.HasAudio() {
				audioInputs = append(audioInputs, entry)
				audioIdx = append(audioIdx, idx)
			}
		}

		if len(audioInputs) == 0 {
			graph.WriteString(" [0:a] afifo [outa] ")
		} else {
			graph.WriteString(" [0:a] afifo [a0] ; ")
			labels := []string{"[a0]"}
			for i, entry := range audioInputs {
				idx := audioIdx[i]
				delay := ffmpeg.ADelayClause(int64(entry.interval.Start*1000), entry.clip.Asset.AudioChannels)
				graph.WriteString(fmt.Sprintf(" [%d:a] afifo,%s [a%d] ; ", idx, delay, idx))
				labels = append(labels, fmt.Sprintf("[a%d]", idx))
			}
			graph.WriteString(fmt.Sprintf(" %s %s [outa] ",
				strings.Join(labels, " "), ffmpeg.AMixClause(len(labels))))
		}

		args = append(args, st.params.VideoArgs()...)
		args = append(args, st.params.AudioArgs()...)
		args = append(args,
			"-filter_complex", graph.String(),
			"-map", "[outv]", "-map", "[outa]", out)

		if err := e.run(ctx, ffmpeg.Invocation{Args: args, Output: out}); err != nil {
			return "", err
		}
		current = out
	}
	return current, nil
}

// compositeChildren renders each child window and overlays it at its
// position, lowest z-index first. Unset child durations and pixel formats
// inherit the parent's resolved values; the force flag propagates down.
func (e *Engine) compositeChildren(ctx context.Context, w *Window, st *renderState, current string) (string, error) {
	if len(w.Children) == 0 {
		return current, nil
	}

	children := make([]*Window, len(w.Children))
	copy(children, w.Children)
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].ZIndex < children[j].ZIndex
	})

	for _, child := range children {
		if child.Duration == 0 {
			child.Duration = w.Duration
		}
		if child.PixelFormat == "" {
			child.PixelFormat = st.pixFmt
		}

		childFile, err := e.renderWindow(ctx, child, true, st.force)
		if err != nil {
			return "", err
		}

		graph := fmt.Sprintf(
			" [0:v] fifo [v0] ; [1:v] fifo [v1] ; [v0] [v1] overlay=x=%d:y=%d:eof_action=pass%s [outv] ; [0:a] afifo [a0] ; [1:a] afifo [a1] ; [a0] [a1] %s [outa] ",
			child.X, child.Y, st.sarClause, ffmpeg.AMixClause(2))

		out := e.scratchFile(".mp4")
		args := []string{"-y", "-i", current, "-i", childFile}
		args = append(args, e.params(child.PixelFormat).VideoArgs()...)
		args = append(args, st.params.AudioArgs()...)
		args = append(args,
			"-filter_complex", graph,
			"-map", "[outv]", "-map", "[outa]",
			"-t", seconds(w.Duration), out)

		if err := e.run(ctx, ffmpeg.Invocation{Args: args, Output: out}); err != nil {
			return "", err
		}
		current = out
	}
	return current, nil
}

// applyWatermarks stacks every watermark over the rendered window in a
// single invocation, each with its own resolved fade envelope.
func (e *Engine) applyWatermarks(ctx context.Context, w *Window, st *renderState, current string) (string, error) {
	if len(w.Watermarks) == 0 {
		return current, nil
	}

	out := e.scratchFile(".mp4")
	args := []string{"-y", "-i", current}

	var parts []string
	inputIdx := 0
	prev := "0:v"
	for i, mark := range w.Watermarks {
		var srcLabel string
		if mark.IsImage() {
			inputIdx++
			args = append(args, "-loop", "1", "-i", mark.Path)
			srcLabel = fmt.Sprintf("%d:v", inputIdx)
		} else {
			srcLabel = fmt.Sprintf("blk%d", i)
			parts = append(parts, fmt.Sprintf(" color=%s:size=%dx%d [%s] ",
				mark.Color, mark.Width, mark.Height, srcLabel))
		}

		inStart, inDur := fadeWindow(mark.FadeInStart, mark.FadeInDuration, w.Duration)
		outStart, outDur := fadeWindow(mark.FadeOutStart, mark.FadeOutDuration, w.Duration)
		faded := fmt.Sprintf("wm%d", i)
		parts = append(parts, fmt.Sprintf(" [%s] %s [%s] ",
			srcLabel, ffmpeg.FadeClause(inStart, inDur, outStart, outDur), faded))

		next := fmt.Sprintf("st%d", i)
		if i == len(w.Watermarks)-1 {
			next = "outv"
		}
		parts = append(parts, fmt.Sprintf(" [%s] [%s] overlay=x=%s:y=%s:eof_action=pass%s [%s] ",
			prev, faded, mark.X, mark.Y, st.sarClause, next))
		prev = next
	}

	args = append(args, st.params.VideoArgs()...)
	args = append(args, st.params.AudioArgs()...)
	args = append(args,
		"-filter_complex", strings.Join(parts, ";"),
		"-map", "[outv]", "-map", "0:a",
		"-t", seconds(w.Duration), out)

	if err := e.run(ctx, ffmpeg.Invocation{Args: args, Output: out}); err != nil {
		return "", err
	}
	return out, nil
}

// mixAudio mixes the window's audio track over the rendered output. The
// track fades out over the final five seconds unless it runs exactly as
// long as the window. A caption, when set, is burned in over the same
// closing stretch.
func (e *Engine) mixAudio(ctx context.Context, w *Window, st *renderState, current string) (string, error) {
	if w.AudioPath == "" {
		return current, nil
	}

	fadeStart := w.Duration - 5
	if fadeStart < 0 {
		fadeStart = 0
	}
	fadeDur := w.Duration - fadeStart
	if w.audioDuration == w.Duration {
		fadeStart = w.Duration
		fadeDur = 0
	}

	vchain := "copy"
	if w.AudioCaption != "" {
		textFile := e.scratchFile(".txt")
		if err := os.WriteFile(textFile, []byte(w.AudioCaption), 0o644); err != nil {
			return "", errors.NewIOError("write caption file", err)
		}
		vchain = ffmpeg.DrawTextClause(textFile, w.Duration-5)
	}

	graph := fmt.Sprintf(" [0:v] %s%s [outv] ; %s [outa] ",
		vchain, st.sarClause,
		strings.TrimSpace(ffmpeg.AudioFadeMixClause(fadeStart, fadeDur)))

	out := e.scratchFile(".mp4")
	args := []string{"-y", "-i", current, "-i", w.AudioPath}
	args = append(args, st.params.VideoArgs()...)
	args = append(args, st.params.AudioArgs()...)
	args = append(args,
		"-filter_complex", graph,
		"-map", "[outv]", "-map", "[outa]",
		"-t", seconds(w.Duration), out)

	if err := e.run(ctx, ffmpeg.Invocation{Args: args, Output: out}); err != nil {
		return "", err
	}
	return out, nil
}

// normalizeAudio levels the final mix so quiet clips and loud clips sit at
// a comparable loudness.
func (e *Engine) normalizeAudio(ctx context.Context, st *renderState, current string) (string, error) {
	out := e.scratchFile(".mp4")
	args := []string{"-y", "-i", current}
	args = append(args, st.params.VideoArgs()...)
	args = append(args, st.params.AudioArgs()...)
	args = append(args, "-af", "dynaudnorm", out)

	if err := e.run(ctx, ffmpeg.Invocation{Args: args, Output: out}); err != nil {
		return "", err
	}
	return out, nil
}

// seconds formats a duration argument without trailing zeros.
func seconds(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}

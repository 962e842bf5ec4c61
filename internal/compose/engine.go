package compose

import (
	"context"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/montagekit/montage/internal/config"
	"github.com/montagekit/montage/internal/errors"
	"github.com/montagekit/montage/internal/ffmpeg"
	"github.com/montagekit/montage/internal/ffprobe"
	"github.com/montagekit/montage/internal/logging"
	"github.com/montagekit/montage/internal/rendercache"
	"github.com/montagekit/montage/internal/util"
)

// Deps are the engine's collaborators. Zero fields get production
// defaults from the configuration; tests substitute fakes.
type Deps struct {
	Prober   ffprobe.Prober
	Runner   ffmpeg.Runner
	Cache    *rendercache.Cache
	Logger   *slog.Logger
	Reporter Reporter
}

// Engine renders window trees. It owns the render cache, the probed asset
// registry and the z-index allocator, so independent engines never share
// state. An Engine is not safe for concurrent use.
type Engine struct {
	cfg      *config.Config
	prober   ffprobe.Prober
	runner   ffmpeg.Runner
	cache    *rendercache.Cache
	log      *slog.Logger
	reporter Reporter
	rng      *rand.Rand
	zindex   ZIndexAllocator

	mu     sync.Mutex
	assets map[string]*MediaAsset

	invocations int
}

// NewEngine validates the configuration, prepares the scratch directory and
// wires the engine's collaborators.
func NewEngine(cfg *config.Config, deps Deps) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := util.EnsureDirectory(cfg.ScratchDir); err != nil {
		return nil, errors.NewIOError("create scratch directory", err)
	}

	log := deps.Logger
	if log == nil {
		log = logging.NewNop()
	}
	prober := deps.Prober
	if prober == nil {
		prober = &ffprobe.ExecProber{
			BinPath: cfg.FFprobePath,
			Log:     logging.WithComponent(log, "ffprobe"),
		}
	}
	runner := deps.Runner
	if runner == nil {
		runner = &ffmpeg.ExecRunner{
			BinPath: cfg.FFmpegPath,
			Timeout: cfg.InvokeTimeout,
			Log:     logging.WithComponent(log, "ffmpeg"),
		}
	}
	cache := deps.Cache
	if cache == nil {
		cache = rendercache.New(cfg.ScratchDir, logging.WithComponent(log, "cache"))
	}
	reporter := deps.Reporter
	if reporter == nil {
		reporter = NullReporter{}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		cfg:      cfg,
		prober:   prober,
		runner:   runner,
		cache:    cache,
		log:      logging.WithComponent(log, "engine"),
		reporter: reporter,
		rng:      rand.New(rand.NewSource(seed)),
		assets:   make(map[string]*MediaAsset),
	}, nil
}

// Cache exposes the engine's render cache.
func (e *Engine) Cache() *rendercache.Cache {
	return e.cache
}

// ClearCache removes every cached render and the cache table.
func (e *Engine) ClearCache() error {
	return e.cache.Clear()
}

// Asset probes a media file, memoizing the result so repeated references to
// the same path cost a single ffprobe run.
func (e *Engine) Asset(ctx context.Context, path string) (*MediaAsset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.NewIOError("resolve asset path", err)
	}

	e.mu.Lock()
	cached, ok := e.assets[abs]
	e.mu.Unlock()
	if ok {
		return cached, nil
	}

	if !util.FileExists(abs) {
		return nil, errors.NewConfigurationError("media file not found: %s", abs)
	}
	meta, err := e.prober.Probe(ctx, abs)
	if err != nil {
		return nil, err
	}
	asset := assetFromMetadata(meta)

	e.mu.Lock()
	e.assets[abs] = asset
	e.mu.Unlock()
	return asset, nil
}

// NewWindow builds a window, probing the audio track's duration when one is
// configured.
func (e *Engine) NewWindow(ctx context.Context, cfg WindowConfig) (*Window, error) {
	var audioDuration float64
	if cfg.AudioPath != "" {
		if !util.FileExists(cfg.AudioPath) {
			return nil, errors.NewConfigurationError("audio file not found: %s", cfg.AudioPath)
		}
		d, err := e.prober.ProbeDuration(ctx, cfg.AudioPath)
		if err != nil {
			return nil, err
		}
		audioDuration = d
	}
	return newWindow(cfg, &e.zindex, audioDuration)
}

// NewClip probes the source and builds a clip over [start, end). A zero end
// runs to the end of the source.
func (e *Engine) NewClip(ctx context.Context, path string, start, end float64, display *Display) (*Clip, error) {
	asset, err := e.Asset(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewClip(asset, start, end, display)
}

// SolidClip renders a plain background window to outputPath. Useful for
// producing filler footage: a solid color or a still image with silence.
func (e *Engine) SolidClip(ctx context.Context, duration float64, width, height int, color, image, outputPath string) (string, error) {
	if duration <= 0 {
		return "", errors.NewConfigurationError("solid clip duration must be positive")
	}
	win, err := e.NewWindow(ctx, WindowConfig{
		Name:            "solid",
		Width:           width,
		Height:          height,
		Duration:        duration,
		BackgroundColor: color,
		BackgroundImage: image,
		OutputPath:      outputPath,
	})
	if err != nil {
		return "", err
	}
	return e.Render(ctx, win)
}

// scratchFile returns a fresh scratch path with the given extension
// (including the dot).
func (e *Engine) scratchFile(ext string) string {
	return filepath.Join(e.cfg.ScratchDir, uuid.NewString()+ext)
}

// run executes one ffmpeg invocation and keeps the invocation count.
func (e *Engine) run(ctx context.Context, inv ffmpeg.Invocation) error {
	if err := e.runner.Run(ctx, inv); err != nil {
		return err
	}
	e.invocations++
	e.reporter.Invocations(e.invocations)
	return nil
}

// params returns the intermediate encode parameters for a pixel format.
func (e *Engine) params(pixFmt string) ffmpeg.Params {
	return ffmpeg.Params{
		FrameRate:   e.cfg.FrameRate,
		CRF:         e.cfg.CRF,
		VideoCodec:  e.cfg.VideoCodec,
		AudioCodec:  e.cfg.AudioCodec,
		PixelFormat: pixFmt,
	}
}

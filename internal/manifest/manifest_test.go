package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/montagekit/montage/internal/compose"
	"github.com/montagekit/montage/internal/config"
	"github.com/montagekit/montage/internal/errors"
	"github.com/montagekit/montage/internal/ffmpeg"
	"github.com/montagekit/montage/internal/ffprobe"
)

type stubProber struct{}

func (stubProber) Probe(_ context.Context, path string) (*ffprobe.Metadata, error) {
	return &ffprobe.Metadata{
		Path: path, Duration: 30, Width: 1920, Height: 1080,
		PixelFormat: "yuv420p", AudioChannels: 2,
	}, nil
}

func (stubProber) ProbeDuration(context.Context, string) (float64, error) {
	return 30, nil
}

type stubRunner struct{}

func (stubRunner) Run(_ context.Context, inv ffmpeg.Invocation) error {
	if inv.Output != "" {
		return os.WriteFile(inv.Output, []byte("rendered"), 0o644)
	}
	return nil
}

func testEngine(t *testing.T) *compose.Engine {
	t.Helper()
	cfg := config.Default()
	cfg.ScratchDir = t.TempDir()
	cfg.Seed = 1
	e, err := compose.NewEngine(cfg, compose.Deps{Prober: stubProber{}, Runner: stubRunner{}})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "composition.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeMedia(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndBuild(t *testing.T) {
	dir := t.TempDir()
	src := writeMedia(t, dir, "a.mp4")

	m, err := Load(writeManifest(t, `
[[window]]
name = "main"
width = 1280
height = 720
output = "final.mp4"

  [window.display]
  style = "crop"

  [[window.clip]]
  path = "`+src+`"
  start = 1
  end = 11

  [[window.clip]]
  path = "`+src+`"

    [window.clip.display]
    style = "overlay"
    overlay_direction = "up"
    overlay_concurrency = 2
    overlay_min_gap = 2.5
    include_audio = true

  [[window.window]]
  name = "inset"
  width = 320
  height = 180
  x = 24
  y = 24
  z_index = 5

  [[window.watermark]]
  color = "white"
  width = 120
  height = 40
  x = "main_w-overlay_w-10"
  fade_in_start = 0.0
  fade_in_duration = 2.0
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	windows, err := m.Build(context.Background(), testEngine(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("built %d windows, want 1", len(windows))
	}

	w := windows[0]
	if w.Name != "main" || w.Width != 1280 || w.Height != 720 {
		t.Errorf("window = %s %dx%d, want main 1280x720", w.Name, w.Width, w.Height)
	}
	if w.Display == nil || w.Display.Style != compose.StyleCrop {
		t.Error("window display should be crop")
	}
	if len(w.Clips) != 2 {
		t.Fatalf("clip count = %d, want 2", len(w.Clips))
	}
	if w.Clips[0].Start != 1 || w.Clips[0].End != 11 {
		t.Errorf("clip range = [%v, %v), want [1, 11)", w.Clips[0].Start, w.Clips[0].End)
	}
	overlay := w.Clips[1].Display
	if overlay == nil || overlay.Style != compose.StyleOverlay {
		t.Fatal("second clip should carry an overlay display")
	}
	if overlay.OverlayConcurrency != 2 || overlay.OverlayMinGap != 2.5 || !overlay.IncludeAudio {
		t.Errorf("overlay display = %+v, want concurrency 2, gap 2.5, audio", overlay)
	}
	if len(w.Children) != 1 || w.Children[0].ZIndex != 5 {
		t.Error("expected one child window with explicit z-index 5")
	}
	if len(w.Watermarks) != 1 || w.Watermarks[0].X != "main_w-overlay_w-10" {
		t.Error("expected the positioned color-block watermark")
	}
}

func TestBuildDistributesTopLevelClips(t *testing.T) {
	dir := t.TempDir()
	src := writeMedia(t, dir, "a.mp4")

	m, err := Load(writeManifest(t, `
[[window]]
name = "left"

[[window]]
name = "right"

[[clip]]
path = "`+src+`"

[[clip]]
path = "`+src+`"
start = 5

[distribute]
min_duration = 40
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	windows, err := m.Build(context.Background(), testEngine(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, w := range windows {
		if d := w.ComputeDuration(); d < 40 {
			t.Errorf("window %s: duration %v below the 40s minimum", w.Name, d)
		}
	}
}

func TestLoadRejectsEmptyAndMalformed(t *testing.T) {
	if _, err := Load(writeManifest(t, "")); err == nil {
		t.Error("expected error for a manifest with no windows")
	}

	_, err := Load(writeManifest(t, "[[window]\nname ="))
	if err == nil {
		t.Fatal("expected error for malformed TOML")
	}
	if !errors.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestBuildRejectsClipWithoutPath(t *testing.T) {
	m, err := Load(writeManifest(t, `
[[window]]
name = "main"

  [[window.clip]]
  start = 1
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := m.Build(context.Background(), testEngine(t)); err == nil {
		t.Fatal("expected error for a clip without a path")
	}
}

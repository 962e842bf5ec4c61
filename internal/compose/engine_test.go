package compose

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/montagekit/montage/internal/config"
	"github.com/montagekit/montage/internal/errors"
	"github.com/montagekit/montage/internal/ffmpeg"
	"github.com/montagekit/montage/internal/ffprobe"
)

// fakeProber serves canned metadata keyed by path, with a generic answer
// for intermediate files the pipeline probes mid-render.
type fakeProber struct {
	metas         map[string]*ffprobe.Metadata
	audioDuration float64
	probeCalls    int
}

func (p *fakeProber) Probe(_ context.Context, path string) (*ffprobe.Metadata, error) {
	p.probeCalls++
	if m, ok := p.metas[path]; ok {
		return m, nil
	}
	return &ffprobe.Metadata{
		Path: path, Duration: 10, Width: 1280, Height: 720,
		PixelFormat: "yuv420p", AudioChannels: 2,
	}, nil
}

func (p *fakeProber) ProbeDuration(_ context.Context, _ string) (float64, error) {
	return p.audioDuration, nil
}

// fakeRunner records invocations and fabricates each declared output file,
// which the cache and the copy-to-output stage both require.
type fakeRunner struct {
	invocations []ffmpeg.Invocation
}

func (r *fakeRunner) Run(_ context.Context, inv ffmpeg.Invocation) error {
	r.invocations = append(r.invocations, inv)
	if inv.Output != "" {
		if err := os.WriteFile(inv.Output, []byte("rendered"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func testEngine(t *testing.T, prober *fakeProber, runner *fakeRunner) *Engine {
	t.Helper()
	cfg := config.Default()
	cfg.ScratchDir = t.TempDir()
	cfg.Seed = 1
	e, err := NewEngine(cfg, Deps{Prober: prober, Runner: runner})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func writeSource(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("source"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAssetMemoization(t *testing.T) {
	src := writeSource(t, "a.mp4")
	prober := &fakeProber{}
	e := testEngine(t, prober, &fakeRunner{})

	first, err := e.Asset(context.Background(), src)
	if err != nil {
		t.Fatalf("Asset: %v", err)
	}
	second, err := e.Asset(context.Background(), src)
	if err != nil {
		t.Fatalf("Asset: %v", err)
	}
	if first != second {
		t.Error("expected the same asset instance for repeated probes")
	}
	if prober.probeCalls != 1 {
		t.Errorf("probe calls = %d, want 1", prober.probeCalls)
	}
}

func TestAssetMissingFile(t *testing.T) {
	e := testEngine(t, &fakeProber{}, &fakeRunner{})
	_, err := e.Asset(context.Background(), filepath.Join(t.TempDir(), "absent.mp4"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestNewWindowProbesAudioDuration(t *testing.T) {
	audio := writeSource(t, "track.flac")
	prober := &fakeProber{audioDuration: 240}
	e := testEngine(t, prober, &fakeRunner{})

	w, err := e.NewWindow(context.Background(), WindowConfig{AudioPath: audio})
	if err != nil {
		t.Fatalf("NewWindow: %v", err)
	}
	if w.Duration != 240 {
		t.Errorf("duration = %v, want 240 from the audio track", w.Duration)
	}
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ScratchDir = t.TempDir()
	cfg.CRF = 99
	if _, err := NewEngine(cfg, Deps{Prober: &fakeProber{}, Runner: &fakeRunner{}}); err == nil {
		t.Fatal("expected error for out-of-range CRF")
	}
}

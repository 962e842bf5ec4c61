package compose

import (
	"testing"

	"github.com/montagekit/montage/internal/errors"
)

func TestNewWindowDefaults(t *testing.T) {
	var alloc ZIndexAllocator
	w, err := newWindow(WindowConfig{}, &alloc, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Width != 1280 || w.Height != 720 {
		t.Errorf("size = %dx%d, want 1280x720", w.Width, w.Height)
	}
	if w.BackgroundColor != "black" {
		t.Errorf("background = %q, want black", w.BackgroundColor)
	}
	if w.OutputPath != "./output.mp4" {
		t.Errorf("output = %q, want ./output.mp4", w.OutputPath)
	}
}

func TestNewWindowValidation(t *testing.T) {
	var alloc ZIndexAllocator
	tests := []struct {
		name string
		cfg  WindowConfig
	}{
		{"negative width", WindowConfig{Width: -1}},
		{"negative duration", WindowConfig{Duration: -1}},
		{"malformed sample aspect ratio", WindowConfig{SampleAspectRatio: "square"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newWindow(tt.cfg, &alloc, 0)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.IsConfiguration(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestZIndexAllocation(t *testing.T) {
	var alloc ZIndexAllocator

	first, err := newWindow(WindowConfig{}, &alloc, 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := newWindow(WindowConfig{}, &alloc, 0)
	if err != nil {
		t.Fatal(err)
	}
	if second.ZIndex <= first.ZIndex {
		t.Errorf("z-indexes not increasing: %d then %d", first.ZIndex, second.ZIndex)
	}

	explicit := 42
	third, err := newWindow(WindowConfig{ZIndex: &explicit}, &alloc, 0)
	if err != nil {
		t.Fatal(err)
	}
	if third.ZIndex != 42 {
		t.Errorf("explicit z-index = %d, want 42", third.ZIndex)
	}
}

func TestWindowDurationFromAudio(t *testing.T) {
	var alloc ZIndexAllocator
	w, err := newWindow(WindowConfig{AudioPath: "track.flac"}, &alloc, 187.5)
	if err != nil {
		t.Fatal(err)
	}
	if w.Duration != 187.5 {
		t.Errorf("duration = %v, want audio length 187.5", w.Duration)
	}

	w, err = newWindow(WindowConfig{AudioPath: "track.flac", Duration: 60}, &alloc, 187.5)
	if err != nil {
		t.Fatal(err)
	}
	if w.Duration != 60 {
		t.Errorf("duration = %v, explicit duration must win", w.Duration)
	}
}

func TestWindowWalkVisitsDepthFirst(t *testing.T) {
	var alloc ZIndexAllocator
	root, _ := newWindow(WindowConfig{Name: "root"}, &alloc, 0)
	left, _ := newWindow(WindowConfig{Name: "left"}, &alloc, 0)
	leaf, _ := newWindow(WindowConfig{Name: "leaf"}, &alloc, 0)
	right, _ := newWindow(WindowConfig{Name: "right"}, &alloc, 0)

	left.AddChild(leaf)
	root.AddChild(left, right)

	var names []string
	root.walk(func(w *Window) { names = append(names, w.Name) })

	want := []string{"root", "left", "leaf", "right"}
	if len(names) != len(want) {
		t.Fatalf("visited %d windows, want %d", len(names), len(want))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("visit %d = %s, want %s", i, names[i], want[i])
		}
	}
}

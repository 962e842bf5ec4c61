package compose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/montagekit/montage/internal/errors"
)

func float64Ptr(v float64) *float64 { return &v }

func TestNewWatermarkValidation(t *testing.T) {
	logo := filepath.Join(t.TempDir(), "logo.png")
	if err := os.WriteFile(logo, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     WatermarkConfig
		wantErr bool
	}{
		{"image watermark", WatermarkConfig{Path: logo}, false},
		{"color block", WatermarkConfig{Color: "white", Width: 100, Height: 40}, false},
		{"neither image nor block", WatermarkConfig{}, true},
		{"block missing dimensions", WatermarkConfig{Color: "white"}, true},
		{"both image and color", WatermarkConfig{Path: logo, Color: "white", Width: 10, Height: 10}, true},
		{"missing image file", WatermarkConfig{Path: filepath.Join(t.TempDir(), "absent.png")}, true},
		{"fade-in start without duration", WatermarkConfig{Path: logo, FadeInStart: float64Ptr(1)}, true},
		{"fade-out duration without start", WatermarkConfig{Path: logo, FadeOutDuration: float64Ptr(1)}, true},
		{
			"full fade pair",
			WatermarkConfig{
				Path:            logo,
				FadeInStart:     float64Ptr(0),
				FadeInDuration:  float64Ptr(2),
				FadeOutStart:    float64Ptr(-3),
				FadeOutDuration: float64Ptr(3),
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWatermark(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.IsConfiguration(err) {
					t.Errorf("expected configuration error, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNewWatermarkDefaultsPosition(t *testing.T) {
	mark, err := NewWatermark(WatermarkConfig{Color: "red", Width: 10, Height: 10})
	if err != nil {
		t.Fatal(err)
	}
	if mark.X != "0" || mark.Y != "0" {
		t.Errorf("position = %s,%s, want 0,0", mark.X, mark.Y)
	}
	if mark.IsImage() {
		t.Error("color block reported as image")
	}
}

func TestFadeWindow(t *testing.T) {
	tests := []struct {
		name     string
		start    *float64
		duration *float64
		window   float64
		wantSt   float64
		wantD    float64
	}{
		{"disabled", nil, nil, 60, 0, -1},
		{"absolute", float64Ptr(2), float64Ptr(3), 60, 2, 3},
		{"end relative", float64Ptr(-5), float64Ptr(5), 60, 55, 5},
		{"clamped to remaining time", float64Ptr(58), float64Ptr(10), 60, 58, 2},
		{"end relative clamped", float64Ptr(-2), float64Ptr(5), 60, 58, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, d := fadeWindow(tt.start, tt.duration, tt.window)
			if st != tt.wantSt || d != tt.wantD {
				t.Errorf("fade = (%v, %v), want (%v, %v)", st, d, tt.wantSt, tt.wantD)
			}
		})
	}
}

package montage

import (
	"testing"
	"time"
)

func TestNewValidatesOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"defaults", nil, false},
		{"custom scratch dir", []Option{WithScratchDir(t.TempDir()), WithSeed(7)}, false},
		{"empty scratch dir", []Option{WithScratchDir("")}, true},
		{"zero overlay batch", []Option{WithOverlayBatch(0)}, true},
		{"negative timeout", []Option{WithInvokeTimeout(-time.Second)}, true},
		{"empty ffmpeg path", []Option{WithFFmpegPath("")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDefaultDisplayConfig(t *testing.T) {
	cfg := DefaultDisplayConfig()
	if cfg.Style != StylePad {
		t.Errorf("style = %s, want pad", cfg.Style)
	}
	if cfg.PanDirection != DirectionAlternate {
		t.Errorf("pan direction = %s, want alternate", cfg.PanDirection)
	}
	if cfg.OverlayDirection != DirectionDown {
		t.Errorf("overlay direction = %s, want down", cfg.OverlayDirection)
	}
	if cfg.OverlayConcurrency != 3 || cfg.OverlayMinGap != 4 {
		t.Errorf("cascade limits = %d/%v, want 3 concurrent, 4s apart",
			cfg.OverlayConcurrency, cfg.OverlayMinGap)
	}
}

func TestNewDisplayRejectsUnknownStyle(t *testing.T) {
	cfg := DefaultDisplayConfig()
	cfg.Style = "mosaic"
	if _, err := NewDisplay(cfg); err == nil {
		t.Fatal("expected error for unknown style")
	}
}

package config

import (
	"testing"
	"time"

	"LocalBoard/internal/export"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8888 || cfg.Width != 1024 || cfg.Height != 768 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RecordInterval != 200*time.Millisecond {
		t.Fatalf("record interval = %s", cfg.RecordInterval)
	}
	if cfg.Format() != export.FormatPNG || cfg.ShareClear {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LOCALBOARD_PORT", "9000")
	t.Setenv("LOCALBOARD_IMAGE_FORMAT", "jpg")
	t.Setenv("LOCALBOARD_RECORD_INTERVAL", "50ms")
	t.Setenv("LOCALBOARD_SHARE_CLEAR", "true")
	t.Setenv("LOCALBOARD_COLOR", "#ff0000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9000 || cfg.Format() != export.FormatJPEG || !cfg.ShareClear {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.RecordInterval != 50*time.Millisecond || cfg.Color != "#ff0000" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"LOCALBOARD_PORT":            "70000",
		"LOCALBOARD_WIDTH":           "0",
		"LOCALBOARD_STROKE_WIDTH":    "-1",
		"LOCALBOARD_RECORD_INTERVAL": "0s",
		"LOCALBOARD_IMAGE_FORMAT":    "gif",
		"LOCALBOARD_BACKGROUND":      "white",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%s accepted", key, value)
			}
		})
	}
}

func TestLoadRejectsUnparsable(t *testing.T) {
	t.Setenv("LOCALBOARD_HEIGHT", "tall")
	if _, err := Load(); err == nil {
		t.Fatal("non-numeric height accepted")
	}
}

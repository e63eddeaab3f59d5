package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}

	if cfg.Detection.ContentThreshold != 27.0 {
		t.Errorf("content threshold = %v, want 27", cfg.Detection.ContentThreshold)
	}
	if cfg.Detection.LumaThreshold != 12.0 {
		t.Errorf("luma threshold = %v, want 12", cfg.Detection.LumaThreshold)
	}
	if cfg.Detection.MinSceneLen != 15 {
		t.Errorf("min scene len = %d, want 15", cfg.Detection.MinSceneLen)
	}
	if cfg.FFmpeg.BinaryPath != "ffmpeg" || cfg.FFmpeg.ProbePath != "ffprobe" {
		t.Errorf("ffmpeg paths = %q/%q", cfg.FFmpeg.BinaryPath, cfg.FFmpeg.ProbePath)
	}
	if cfg.Images.Format != "jpg" || cfg.Images.Quality != 95 {
		t.Errorf("image defaults = %q/%d", cfg.Images.Format, cfg.Images.Quality)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cutpoint.yaml")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	cfg.Detection.ContentThreshold = 35.5
	cfg.Detection.PerDetectorMinLen = true
	cfg.Stats.Path = "stats.csv"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Detection.ContentThreshold != 35.5 {
		t.Errorf("content threshold = %v, want 35.5", loaded.Detection.ContentThreshold)
	}
	if !loaded.Detection.PerDetectorMinLen {
		t.Error("per-detector flag lost on round trip")
	}
	if loaded.Stats.Path != "stats.csv" {
		t.Errorf("stats path = %q", loaded.Stats.Path)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cutpoint.yaml")
	body := "detection:\n  content_threshold: 30\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Detection.ContentThreshold != 30 {
		t.Errorf("content threshold = %v, want 30", cfg.Detection.ContentThreshold)
	}
	if cfg.Detection.LumaThreshold != 12.0 {
		t.Errorf("unset luma threshold = %v, want default 12", cfg.Detection.LumaThreshold)
	}
}

func TestContextRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	cfg.WorkDir = "/tmp/out"

	ctx := WithConfig(context.Background(), cfg)
	got := FromContext(ctx)
	if got.WorkDir != "/tmp/out" {
		t.Errorf("WorkDir = %q, want /tmp/out", got.WorkDir)
	}

	// A bare context falls back to defaults rather than nil.
	if def := FromContext(context.Background()); def == nil || def.Detection.MinSceneLen != 15 {
		t.Error("missing config should fall back to defaults")
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Brownie44l1/currency-api/internal/model"
	"github.com/Brownie44l1/currency-api/internal/vision"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
model:
  path: models/currency.onnx
  layout: nchw
  threshold: 0.7
capture:
  cooldown: 250ms
speech:
  names:
    5_euro: five euro
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model.Path != "models/currency.onnx" || cfg.Model.Threshold != 0.7 {
		t.Fatalf("unexpected model section %+v", cfg.Model)
	}
	if cfg.Model.Labels != "models/labels.txt" || cfg.Server.Port == "" {
		t.Fatalf("defaults were lost: %+v", cfg)
	}
	if cfg.Capture.Cooldown != 250*time.Millisecond {
		t.Fatalf("expected 250ms cooldown, got %v", cfg.Capture.Cooldown)
	}
	if cfg.Speech.Names["5_euro"] != "five euro" {
		t.Fatalf("expected speech names, got %v", cfg.Speech.Names)
	}
	if backend, _ := cfg.EngineConfig().ResolveBackend(); backend != model.BackendONNX {
		t.Fatalf("expected onnx backend, got %s", backend)
	}
	if cfg.Preprocessor().Layout != vision.LayoutNCHW {
		t.Fatalf("expected nchw layout")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !model.IsKind(err, model.KindNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := writeConfig(t, "model:\n  threshold: 1.5\n")
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model.threshold") || !strings.Contains(err.Error(), path) {
		t.Fatalf("expected field and path in error, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":               "9090",
		"CURRENCY_MODEL":     "/srv/model.tflite",
		"CURRENCY_THRESHOLD": "0.6",
		"CURRENCY_SPEECH":    "true",
	}
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Model.Path != "/srv/model.tflite" || cfg.Model.Threshold != 0.6 || !cfg.Speech.Enabled {
		t.Fatalf("env not applied: %+v", cfg)
	}

	bad := Default()
	if err := bad.applyEnv(func(k string) (string, bool) {
		if k == "CURRENCY_THRESHOLD" {
			return "high", true
		}
		return "", false
	}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(Overrides{Port: "7000", ModelPath: "m.onnx", Speak: true})
	if cfg.Server.Port != "7000" || cfg.Model.Path != "m.onnx" || !cfg.Speech.Enabled {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Model.Threshold != model.DefaultThreshold {
		t.Fatalf("unset threshold override must keep the default")
	}

	zero := float32(0)
	cfg.ApplyOverrides(Overrides{Threshold: &zero})
	if cfg.Model.Threshold != 0 {
		t.Fatalf("explicit zero threshold must apply, got %v", cfg.Model.Threshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero threshold should validate: %v", err)
	}
}

func TestLoadFromKeepsFileOverSeed(t *testing.T) {
	seed := Default()
	seed.Log.Level = "warn"
	cfg, err := LoadFrom("", seed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("expected seeded level, got %q", cfg.Log.Level)
	}

	path := writeConfig(t, "log:\n  level: debug\n")
	seed = Default()
	seed.Log.Level = "warn"
	cfg, err = LoadFrom(path, seed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("file level must win over the seed, got %q", cfg.Log.Level)
	}
}

func TestDefaultLeavesGeometryToModel(t *testing.T) {
	cfg := Default()
	if cfg.Model.ImageSize != 0 || cfg.Model.Layout != "" {
		t.Fatalf("expected image size and layout to be unset, got %d %q", cfg.Model.ImageSize, cfg.Model.Layout)
	}
	cfg.Model.ImageSize = -1
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "model.image_size") {
		t.Fatalf("expected image_size error, got %v", err)
	}
}

func TestValidateMaxPixels(t *testing.T) {
	cfg := Default()
	if cfg.Server.MaxPixels != vision.DefaultMaxPixels {
		t.Fatalf("unexpected default max pixels %d", cfg.Server.MaxPixels)
	}
	cfg.Server.MaxPixels = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "server.max_pixels") {
		t.Fatalf("expected max_pixels error, got %v", err)
	}
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Model.Path = "model.pt"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "model.backend") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

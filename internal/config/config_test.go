package config

import (
	"errors"
	"math"
	"testing"
)

const fullDoc = `
name: GodEater1-2Fix
masterEnable: true
resolution:
  width: 3440
  height: 1440
features:
  constrainHud:
    enable: true
`

func TestParseFullDocument(t *testing.T) {
	cfg, err := parse([]byte(fullDoc), nil)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Name != "GodEater1-2Fix" {
		t.Errorf("unexpected name %q", cfg.Name)
	}
	if !cfg.MasterEnable || !cfg.Features.ConstrainHud {
		t.Errorf("flags not parsed: %+v", cfg)
	}
	if cfg.Resolution.Width != 3440 || cfg.Resolution.Height != 1440 {
		t.Errorf("resolution not parsed: %+v", cfg.Resolution)
	}
	want := float32(3440) / float32(1440)
	if cfg.Resolution.AspectRatio != want {
		t.Errorf("aspect ratio: want %v, got %v", want, cfg.Resolution.AspectRatio)
	}
}

func TestParseMissingKeys(t *testing.T) {
	docs := map[string]string{
		"name":         "masterEnable: true\nresolution: {width: 1, height: 1}\nfeatures: {constrainHud: {enable: true}}",
		"masterEnable": "name: x\nresolution: {width: 1, height: 1}\nfeatures: {constrainHud: {enable: true}}",
		"width":        "name: x\nmasterEnable: true\nresolution: {height: 1}\nfeatures: {constrainHud: {enable: true}}",
		"height":       "name: x\nmasterEnable: true\nresolution: {width: 1}\nfeatures: {constrainHud: {enable: true}}",
		"constrainHud": "name: x\nmasterEnable: true\nresolution: {width: 1, height: 1}",
	}
	for key, doc := range docs {
		_, err := parse([]byte(doc), nil)
		if !errors.Is(err, ErrMissingKey) {
			t.Errorf("%s: expected ErrMissingKey, got %v", key, err)
		}
	}
}

func TestParseUnknownKeysIgnored(t *testing.T) {
	doc := fullDoc + "\nsomeFutureKnob: 42\n"
	if _, err := parse([]byte(doc), nil); err != nil {
		t.Errorf("unknown keys must be ignored, got %v", err)
	}
}

func TestParseZeroResolutionAutoDetects(t *testing.T) {
	doc := `
name: x
masterEnable: true
resolution:
  width: 0
  height: 0
features:
  constrainHud:
    enable: false
`
	cfg, err := parse([]byte(doc), func() (uint32, uint32, error) {
		return 2560, 1080, nil
	})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cfg.Resolution.Width != 2560 || cfg.Resolution.Height != 1080 {
		t.Errorf("auto-detect not applied: %+v", cfg.Resolution)
	}
}

func TestDerive(t *testing.T) {
	cases := []struct {
		width, height uint32
		nativeWidth   uint32
		nativeOffset  uint32
		widthScale    float32
	}{
		{3440, 1440, 2560, 440, 3440.0 / 2560.0},
		{7680, 2160, 3840, 1920, 2.0},
		{1920, 1080, 1920, 0, 1.0},
	}
	for _, c := range cases {
		cfg := &Config{Resolution: Resolution{Width: c.width, Height: c.height}}
		d := Derive(cfg)
		if d.NativeWidth != c.nativeWidth {
			t.Errorf("%dx%d: nativeWidth = %d, want %d", c.width, c.height, d.NativeWidth, c.nativeWidth)
		}
		if d.NativeOffset != c.nativeOffset {
			t.Errorf("%dx%d: nativeOffset = %d, want %d", c.width, c.height, d.NativeOffset, c.nativeOffset)
		}
		if math.Abs(float64(d.WidthScale-c.widthScale)) > 1e-6 {
			t.Errorf("%dx%d: widthScale = %v, want %v", c.width, c.height, d.WidthScale, c.widthScale)
		}
	}
}

func TestEnablePredicates(t *testing.T) {
	on := &Config{MasterEnable: true, Features: Features{ConstrainHud: true}}
	if !on.AspectEnabled() || !on.ResolutionEnabled() || !on.HudEnabled() || !on.MovieEnabled() {
		t.Error("all fixes should be enabled")
	}

	noHud := &Config{MasterEnable: true}
	if noHud.HudEnabled() {
		t.Error("hud should require its feature flag")
	}
	if !noHud.AspectEnabled() {
		t.Error("aspect only requires masterEnable")
	}

	off := &Config{Features: Features{ConstrainHud: true}}
	if off.AspectEnabled() || off.ResolutionEnabled() || off.HudEnabled() || off.MovieEnabled() {
		t.Error("masterEnable false must disable everything")
	}
}

// Package config loads the fix plugin's YAML document and computes the
// resolution-derived values every patch policy shares.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrMissingKey reports a required configuration key absent from the file.
var ErrMissingKey = errors.New("config: missing required key")

// nativeAspect is the only aspect ratio the host supports out of the box.
const nativeAspect = 16.0 / 9.0

// Config is the immutable snapshot shared by all patch policies.
type Config struct {
	Name         string
	MasterEnable bool
	Resolution   Resolution
	Features     Features
}

// Resolution is the target render resolution. AspectRatio is derived.
type Resolution struct {
	Width       uint32
	Height      uint32
	AspectRatio float32
}

// Features holds the per-fix enable flags.
type Features struct {
	ConstrainHud bool
}

// AspectEnabled reports whether the aspect-ratio override applies.
func (c *Config) AspectEnabled() bool { return c.MasterEnable }

// ResolutionEnabled reports whether the resolution override applies.
func (c *Config) ResolutionEnabled() bool { return c.MasterEnable }

// HudEnabled reports whether the HUD-centering correction applies.
func (c *Config) HudEnabled() bool { return c.MasterEnable && c.Features.ConstrainHud }

// MovieEnabled reports whether the movie-state intercept applies.
func (c *Config) MovieEnabled() bool { return c.MasterEnable }

// yaml document shape; pointers distinguish missing keys from zero values.
type rawConfig struct {
	Name         *string `yaml:"name"`
	MasterEnable *bool   `yaml:"masterEnable"`
	Resolution   *struct {
		Width  *uint32 `yaml:"width"`
		Height *uint32 `yaml:"height"`
	} `yaml:"resolution"`
	Features *struct {
		ConstrainHud *struct {
			Enable *bool `yaml:"enable"`
		} `yaml:"constrainHud"`
	} `yaml:"features"`
}

// Load reads and validates the configuration file. Width or height of 0
// means "use the desktop dimensions", resolved through detect (pass
// DesktopDimensions outside tests). Unknown keys are ignored.
func Load(path string, detect func() (uint32, uint32, error)) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return parse(data, detect)
}

func parse(data []byte, detect func() (uint32, uint32, error)) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	switch {
	case raw.Name == nil:
		return nil, fmt.Errorf("%w: name", ErrMissingKey)
	case raw.MasterEnable == nil:
		return nil, fmt.Errorf("%w: masterEnable", ErrMissingKey)
	case raw.Resolution == nil || raw.Resolution.Width == nil:
		return nil, fmt.Errorf("%w: resolution.width", ErrMissingKey)
	case raw.Resolution.Height == nil:
		return nil, fmt.Errorf("%w: resolution.height", ErrMissingKey)
	case raw.Features == nil || raw.Features.ConstrainHud == nil || raw.Features.ConstrainHud.Enable == nil:
		return nil, fmt.Errorf("%w: features.constrainHud.enable", ErrMissingKey)
	}

	cfg := &Config{
		Name:         *raw.Name,
		MasterEnable: *raw.MasterEnable,
		Resolution: Resolution{
			Width:  *raw.Resolution.Width,
			Height: *raw.Resolution.Height,
		},
		Features: Features{ConstrainHud: *raw.Features.ConstrainHud.Enable},
	}

	if cfg.Resolution.Width == 0 || cfg.Resolution.Height == 0 {
		if detect == nil {
			return nil, errors.New("config: resolution 0 requires desktop detection")
		}
		w, h, err := detect()
		if err != nil {
			return nil, fmt.Errorf("config: desktop dimensions: %w", err)
		}
		cfg.Resolution.Width, cfg.Resolution.Height = w, h
	}
	if cfg.Resolution.Width == 0 || cfg.Resolution.Height == 0 {
		return nil, errors.New("config: resolution must be non-zero")
	}

	cfg.Resolution.AspectRatio = float32(cfg.Resolution.Width) / float32(cfg.Resolution.Height)
	return cfg, nil
}

// Derived holds the values computed once from the configured resolution.
type Derived struct {
	// NativeWidth is the width of a 16:9 frame at the configured height.
	NativeWidth uint32
	// NativeOffset centers a native-width frame in the configured width.
	NativeOffset uint32
	// WidthScale is the configured width over the native width.
	WidthScale float32
}

// Derive computes the shared derived values. Recompute on config change;
// in this design the snapshot is loaded once, so this runs once.
func Derive(cfg *Config) Derived {
	nativeWidth := uint32(math.Round(nativeAspect * float64(cfg.Resolution.Height)))
	return Derived{
		NativeWidth:  nativeWidth,
		NativeOffset: (cfg.Resolution.Width - nativeWidth) / 2,
		WidthScale:   float32(cfg.Resolution.Width) / float32(nativeWidth),
	}
}

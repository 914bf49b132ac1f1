//go:build windows

// godeater12fix is the fix plugin for GOD EATER RESURRECTION and
// GOD EATER 2 Rage Burst. Built with -buildmode=c-shared, renamed to .asi
// and dropped next to the game executable; an ASI loader maps it into the
// game process, where it patches ultrawide rendering at runtime.
//
//	go build -buildmode=c-shared -o GodEater1-2Fix.asi ./cmd/godeater12fix
package main

import "C"

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/PolarWizard/GodEater1-2Fix/internal/config"
	"github.com/PolarWizard/GodEater1-2Fix/internal/engine"
	"github.com/PolarWizard/GodEater1-2Fix/internal/fixes"
	"github.com/PolarWizard/GodEater1-2Fix/internal/log"
	"github.com/PolarWizard/GodEater1-2Fix/internal/playback"
	"github.com/PolarWizard/GodEater1-2Fix/internal/trace"
	"github.com/PolarWizard/GodEater1-2Fix/internal/winmem"
)

const (
	configName = "GodEater1-2Fix.yml"
	logName    = "GodEater1-2Fix.log"
)

// init runs when the loader maps the library. All work happens on one
// background goroutine so DllMain returns immediately; hook callbacks later
// run inline on whatever game thread trips them.
func init() {
	go apply()
}

// apply wires the whole plugin together. Every failure is logged and
// contained; the game keeps running unpatched rather than crash.
func apply() {
	mod, err := winmem.Current()
	if err != nil {
		// No module info means no log path either; nothing else is safe.
		return
	}
	dir := filepath.Dir(mod.Path)

	log.Init(filepath.Join(dir, logName), false)
	logger := log.L
	defer logger.Sync()

	logger.Info("module",
		zap.String("name", mod.Name),
		log.Addr(mod.Base),
		zap.Uint32("size", mod.Size))

	cfg, err := config.Load(filepath.Join(dir, configName), config.DesktopDimensions)
	if err != nil {
		logger.Error("config load failed, no fixes applied", zap.Error(err))
		return
	}
	derived := config.Derive(cfg)

	logger.Info("config",
		zap.String("name", cfg.Name),
		zap.Bool("masterEnable", cfg.MasterEnable),
		zap.Uint32("width", cfg.Resolution.Width),
		zap.Uint32("height", cfg.Resolution.Height),
		zap.Float32("aspectRatio", cfg.Resolution.AspectRatio))
	logger.Info("derived",
		zap.Uint32("nativeWidth", derived.NativeWidth),
		zap.Uint32("nativeOffset", derived.NativeOffset),
		zap.Float32("widthScale", derived.WidthScale))

	env := &fixes.Env{
		Cfg:     cfg,
		Derived: derived,
		State:   playback.NewState(),
		Log:     logger,
		Region:  mod.Bytes(),
		Base:    mod.Base,
		Hooks:   &fixes.LiveInstaller{},
	}

	report := engine.Apply(env, fixes.All())
	logger.Info("done",
		zap.Int("installed", report.Count(trace.Installed)),
		zap.Int("disabled", report.Count(trace.Disabled)),
		zap.Int("notFound", report.Count(trace.NotFound)),
		zap.Int("failed", report.Count(trace.Failed)))
}

func main() {}

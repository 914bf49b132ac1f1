package fixes

import (
	"github.com/PolarWizard/GodEater1-2Fix/internal/config"
	"github.com/PolarWizard/GodEater1-2Fix/internal/hook"
	"github.com/PolarWizard/GodEater1-2Fix/internal/memview"
	"github.com/PolarWizard/GodEater1-2Fix/internal/sigscan"
)

// HUD scaler layout relative to the base pointer in eax at the hook site.
const (
	hudOffScaleX = 0x00
	hudOffGuard0 = 0x30 // also the Y-scale slot the fix rewrites
	hudOffGuard1 = 0x3C
	hudViewSize  = 0x40
)

// Guard patterns on the two scaler fields. The hooked code path is shared
// with unrelated data; only structures whose fields carry these top bytes
// are HUD scalers. Empirically reverse-engineered masked compares, not full
// float equality; keep them as masked checks.
const (
	hudGuard0Mask = 0xBF000000
	hudGuard1Mask = 0x3F000000
)

// NewHud constrains HUD and UI elements back to 16:9 after the widescreen
// fixes stretched them.
//
// The anchor scalers live in dynamic memory reached through eax, so the fix
// cannot patch a fixed address. The relationship between the two fields:
//
//	[eax+0x00] = (2 / width) * (nativeWidth / width)
//	[eax+0x30] = -(nativeWidth / width)
//
// which holds for arbitrary target resolutions, not just multiples of 16:9.
func NewHud() Fix {
	return &sigFix{
		name:    "constrainHud",
		sig:     sigscan.MustParse("F3 0F 6F 00 F3 0F 7F 41 0C F3 0F 6F 40 10"),
		enabled: func(cfg *config.Config) bool { return cfg.HudEnabled() },
		callback: func(env *Env) hook.Callback {
			width := env.Cfg.Resolution.Width
			nativeWidth := env.Derived.NativeWidth
			return func(ctx *hook.Context) {
				v := memview.At(uintptr(ctx.Eax), hudViewSize)
				applyHudCorrection(v, width, nativeWidth)
			}
		},
	}
}

// applyHudCorrection checks the guard fields and, when both pass, rewrites
// the anchor scalers. Returns whether the correction was applied. Any
// out-of-range access leaves the structure untouched.
func applyHudCorrection(v memview.View, width, nativeWidth uint32) bool {
	g0, err := v.U32(hudOffGuard0)
	if err != nil {
		return false
	}
	g1, err := v.U32(hudOffGuard1)
	if err != nil {
		return false
	}
	if g0&hudGuard0Mask != hudGuard0Mask || g1&hudGuard1Mask != hudGuard1Mask {
		return false
	}

	w := float32(width)
	ratio := float32(nativeWidth) / w
	if v.PutF32(hudOffScaleX, (2.0/w)*ratio) != nil {
		return false
	}
	return v.PutF32(hudOffGuard0, -ratio) == nil
}

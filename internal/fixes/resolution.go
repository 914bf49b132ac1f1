package fixes

import (
	"github.com/PolarWizard/GodEater1-2Fix/internal/config"
	"github.com/PolarWizard/GodEater1-2Fix/internal/hook"
	"github.com/PolarWizard/GodEater1-2Fix/internal/playback"
	"github.com/PolarWizard/GodEater1-2Fix/internal/sigscan"
)

// resolutionSigOffset places the hook on the call that follows the divss,
// after the game has finished computing the width in xmm0.
const resolutionSigOffset = 18

// NewResolution expands the render window to the configured width so
// non-16:9 resolutions fill the screen instead of spawning side bars.
//
// Pre-rendered movies are authored at 16:9; overriding the width while one
// streams would stretch it, so the callback leaves xmm0 alone whenever the
// playback flag is set.
func NewResolution() Fix {
	return &sigFix{
		name: "resolution",
		sig: sigscan.MustParse(
			"76 ?? F3 0F 59 05 ?? ?? ?? ?? F3 0F 5E 05 ?? ?? ?? ?? E8 ?? ?? ?? ??",
		).WithOffset(resolutionSigOffset),
		enabled: func(cfg *config.Config) bool { return cfg.ResolutionEnabled() },
		callback: func(env *Env) hook.Callback {
			return resolutionCallback(env.Cfg, env.State)
		},
	}
}

func resolutionCallback(cfg *config.Config, state *playback.State) hook.Callback {
	width := float32(cfg.Resolution.Width)
	return func(ctx *hook.Context) {
		if !state.Playing() {
			ctx.Xmm0[0] = width
		}
	}
}

package fixes

import (
	"github.com/PolarWizard/GodEater1-2Fix/internal/config"
	"github.com/PolarWizard/GodEater1-2Fix/internal/hook"
	"github.com/PolarWizard/GodEater1-2Fix/internal/sigscan"
)

// NewAspect overrides the aspect ratio the renderer recomputes every frame.
//
// The game calculates 16:9 from its stored native resolution once per frame
// and plows it over the previous value, so a one-shot memory write is not
// enough: the hook lands on the movss that stores the ratio and replaces
// xmm0 with the configured value on every execution.
func NewAspect() Fix {
	return &sigFix{
		name:    "aspectRatio",
		sig:     sigscan.MustParse("F3 0F 11 05 ?? ?? ?? ?? E8 ?? ?? ?? ?? 89 EC"),
		enabled: func(cfg *config.Config) bool { return cfg.AspectEnabled() },
		callback: func(env *Env) hook.Callback {
			ratio := env.Cfg.Resolution.AspectRatio
			return func(ctx *hook.Context) {
				ctx.Xmm0[0] = ratio
			}
		},
	}
}

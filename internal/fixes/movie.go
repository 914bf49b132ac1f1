package fixes

import (
	"github.com/PolarWizard/GodEater1-2Fix/internal/config"
)

// movieFix intercepts the lowest-level read primitive to derive playback
// state. Movie playback never touches game code directly: the engine hands
// a .wmv path to the OS media stack, which streams the file in chunks
// through ReadFile. Watching the extension of the most recent read is the
// only reliable playback signal available.
type movieFix struct{}

// NewMovie returns the movie-state intercept. It installs first so the
// playback flag is live before the resolution fix can consult it.
func NewMovie() Fix {
	return &movieFix{}
}

func (f *movieFix) Name() string { return "movieState" }

func (f *movieFix) Enabled(cfg *config.Config) bool { return cfg.MovieEnabled() }

func (f *movieFix) Install(env *Env) (uintptr, error) {
	return env.Hooks.ReadFileIntercept(env.State.Observe)
}

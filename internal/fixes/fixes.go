// Package fixes declares the patch policies: one unit per behavioral fix,
// each with a code signature, a config-derived enable predicate and a
// register-context callback.
package fixes

import (
	"github.com/PolarWizard/GodEater1-2Fix/internal/config"
	"github.com/PolarWizard/GodEater1-2Fix/internal/hook"
	"github.com/PolarWizard/GodEater1-2Fix/internal/log"
	"github.com/PolarWizard/GodEater1-2Fix/internal/playback"
	"github.com/PolarWizard/GodEater1-2Fix/internal/sigscan"
)

// Installer abstracts hook installation so the engine and the fixes can be
// exercised against a fake off-target.
type Installer interface {
	// Mid installs a mid-function hook at addr and echoes the address.
	Mid(addr uintptr, cb hook.Callback) (uintptr, error)
	// ReadFileIntercept hooks the lowest-level file read primitive and
	// reports the resolved path of every read to observe. The intercept
	// forwards each call to the original unchanged.
	ReadFileIntercept(observe func(path string)) (uintptr, error)
}

// Env carries everything a fix needs to install itself.
type Env struct {
	Cfg     *config.Config
	Derived config.Derived
	State   *playback.State
	Log     *log.Logger
	Region  []byte // host module image
	Base    uintptr
	Hooks   Installer
}

// Fix is one behavioral patch. Install returns the hook address on success;
// sigscan.ErrNotFound and hook install errors disable just this fix.
type Fix interface {
	Name() string
	Enabled(cfg *config.Config) bool
	Install(env *Env) (uintptr, error)
}

// sigFix is the common shape of the render-path fixes: scan the module for
// a signature, install a mid-hook with the fix's callback.
type sigFix struct {
	name     string
	sig      sigscan.Signature
	enabled  func(*config.Config) bool
	callback func(env *Env) hook.Callback
}

func (f *sigFix) Name() string { return f.name }

func (f *sigFix) Enabled(cfg *config.Config) bool { return f.enabled(cfg) }

func (f *sigFix) Install(env *Env) (uintptr, error) {
	addr, err := sigscan.FindIn(env.Region, env.Base, f.sig)
	if err != nil {
		return 0, err
	}
	return env.Hooks.Mid(addr, f.callback(env))
}

// All returns the fix set in installation order.
func All() []Fix {
	return []Fix{
		NewMovie(),
		NewAspect(),
		NewResolution(),
		NewHud(),
	}
}

// NamedSignature pairs a fix name with its code signature, for the
// companion scan tool.
type NamedSignature struct {
	Name string
	Sig  sigscan.Signature
}

// Signatures lists the signatures of all signature-driven fixes.
func Signatures() []NamedSignature {
	var out []NamedSignature
	for _, f := range All() {
		if sf, ok := f.(*sigFix); ok {
			out = append(out, NamedSignature{Name: sf.name, Sig: sf.sig})
		}
	}
	return out
}

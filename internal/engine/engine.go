// Package engine drives fix installation: enable check, signature scan,
// hook install, outcome accounting. A fix that cannot install is logged
// and skipped; the host process is never aborted.
package engine

import (
	"errors"

	"github.com/PolarWizard/GodEater1-2Fix/internal/fixes"
	"github.com/PolarWizard/GodEater1-2Fix/internal/sigscan"
	"github.com/PolarWizard/GodEater1-2Fix/internal/trace"
)

// Apply installs every enabled fix from set against env and returns the
// per-fix outcome report. Failures are contained to the fix that caused
// them; the remaining fixes still install.
func Apply(env *fixes.Env, set []fixes.Fix) *trace.Report {
	report := &trace.Report{}
	for _, f := range set {
		name := f.Name()
		if !f.Enabled(env.Cfg) {
			env.Log.FixDisabled(name)
			report.Add(trace.Event{Fix: name, Status: trace.Disabled})
			continue
		}

		addr, err := f.Install(env)
		switch {
		case errors.Is(err, sigscan.ErrNotFound):
			env.Log.FixNotFound(name)
			report.Add(trace.Event{Fix: name, Status: trace.NotFound})
		case err != nil:
			env.Log.FixFailed(name, err)
			report.Add(trace.Event{Fix: name, Status: trace.Failed, Err: err})
		default:
			env.Log.FixInstalled(name, addr)
			report.Add(trace.Event{Fix: name, Status: trace.Installed, Addr: addr})
		}
	}
	return report
}

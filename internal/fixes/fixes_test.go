package fixes

import (
	"errors"
	"testing"

	"github.com/PolarWizard/GodEater1-2Fix/internal/config"
	"github.com/PolarWizard/GodEater1-2Fix/internal/hook"
	"github.com/PolarWizard/GodEater1-2Fix/internal/log"
	"github.com/PolarWizard/GodEater1-2Fix/internal/playback"
	"github.com/PolarWizard/GodEater1-2Fix/internal/sigscan"
)

// fakeInstaller records hook requests instead of touching live code.
type fakeInstaller struct {
	mids      map[uintptr]hook.Callback
	readAddr  uintptr
	observe   func(string)
	midErr    error
	interErr  error
	midCalls  int
	procCalls int
}

func newFakeInstaller() *fakeInstaller {
	return &fakeInstaller{mids: make(map[uintptr]hook.Callback), readAddr: 0x77001000}
}

func (fi *fakeInstaller) Mid(addr uintptr, cb hook.Callback) (uintptr, error) {
	fi.midCalls++
	if fi.midErr != nil {
		return 0, fi.midErr
	}
	fi.mids[addr] = cb
	return addr, nil
}

func (fi *fakeInstaller) ReadFileIntercept(observe func(string)) (uintptr, error) {
	fi.procCalls++
	if fi.interErr != nil {
		return 0, fi.interErr
	}
	fi.observe = observe
	return fi.readAddr, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{
		Name:         "test",
		MasterEnable: true,
		Resolution:   config.Resolution{Width: 3440, Height: 1440},
		Features:     config.Features{ConstrainHud: true},
	}
	cfg.Resolution.AspectRatio = float32(cfg.Resolution.Width) / float32(cfg.Resolution.Height)
	return cfg
}

func testEnv(region []byte, fi *fakeInstaller) *Env {
	cfg := testConfig()
	return &Env{
		Cfg:     cfg,
		Derived: config.Derive(cfg),
		State:   playback.NewState(),
		Log:     log.NewNop(),
		Region:  region,
		Base:    0x00400000,
		Hooks:   fi,
	}
}

func TestAspectCallbackOverridesEveryTime(t *testing.T) {
	fi := newFakeInstaller()
	region := make([]byte, 256)
	copy(region[32:], []byte{
		0xF3, 0x0F, 0x11, 0x05, 0x34, 0xF2, 0x6F, 0x01,
		0xE8, 0x11, 0x22, 0x33, 0x44,
		0x89, 0xEC,
	})
	env := testEnv(region, fi)

	addr, err := NewAspect().Install(env)
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if addr != 0x00400020 {
		t.Errorf("hook address %#x, want 0x00400020", addr)
	}

	cb := fi.mids[addr]
	want := env.Cfg.Resolution.AspectRatio
	for i := 0; i < 3; i++ {
		ctx := &hook.Context{}
		ctx.Xmm0[0] = 16.0 / 9.0 // the game rewrites the ratio each frame
		cb(ctx)
		if ctx.Xmm0[0] != want {
			t.Fatalf("invocation %d: xmm0[0] = %v, want %v", i, ctx.Xmm0[0], want)
		}
	}
}

func TestResolutionCallbackGatesOnPlayback(t *testing.T) {
	cfg := testConfig()
	state := playback.NewState()
	cb := resolutionCallback(cfg, state)

	ctx := &hook.Context{}
	ctx.Xmm0[0] = 1920
	cb(ctx)
	if ctx.Xmm0[0] != 3440 {
		t.Errorf("no movie: xmm0[0] = %v, want 3440", ctx.Xmm0[0])
	}

	state.Observe(`C:\GE\data\movie\intro.wmv`)
	ctx.Xmm0[0] = 1920
	cb(ctx)
	if ctx.Xmm0[0] != 1920 {
		t.Errorf("movie playing: xmm0[0] = %v, want untouched 1920", ctx.Xmm0[0])
	}

	state.Observe(`C:\GE\data\script.qpck`)
	ctx.Xmm0[0] = 1920
	cb(ctx)
	if ctx.Xmm0[0] != 3440 {
		t.Errorf("movie finished: xmm0[0] = %v, want 3440", ctx.Xmm0[0])
	}
}

func TestSigFixNotFound(t *testing.T) {
	fi := newFakeInstaller()
	env := testEnv(make([]byte, 1024), fi) // no signature present

	_, err := NewAspect().Install(env)
	if !errors.Is(err, sigscan.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if fi.midCalls != 0 {
		t.Errorf("no hook must be attempted on a scan miss")
	}
}

func TestMovieFixWiresObserver(t *testing.T) {
	fi := newFakeInstaller()
	env := testEnv(nil, fi)

	addr, err := NewMovie().Install(env)
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if addr != fi.readAddr {
		t.Errorf("addr %#x, want %#x", addr, fi.readAddr)
	}

	fi.observe(`C:\GE\data\movie\op.wmv`)
	if !env.State.Playing() {
		t.Error("observer must drive the playback flag")
	}
	fi.observe(`C:\GE\data\bgm.wav`)
	if env.State.Playing() {
		t.Error("non-movie read must clear the flag")
	}
}

func TestEnablePredicates(t *testing.T) {
	cfg := testConfig()
	for _, f := range All() {
		if !f.Enabled(cfg) {
			t.Errorf("%s should be enabled", f.Name())
		}
	}

	cfg.MasterEnable = false
	for _, f := range All() {
		if f.Enabled(cfg) {
			t.Errorf("%s must respect the master kill-switch", f.Name())
		}
	}

	cfg.MasterEnable = true
	cfg.Features.ConstrainHud = false
	for _, f := range All() {
		want := f.Name() != "constrainHud"
		if f.Enabled(cfg) != want {
			t.Errorf("%s enabled = %v, want %v", f.Name(), f.Enabled(cfg), want)
		}
	}
}

func TestSignaturesListsSigFixes(t *testing.T) {
	sigs := Signatures()
	if len(sigs) != 3 {
		t.Fatalf("expected 3 signature-driven fixes, got %d", len(sigs))
	}
	names := map[string]bool{}
	for _, s := range sigs {
		names[s.Name] = true
		if s.Sig.Size() == 0 {
			t.Errorf("%s: empty signature", s.Name)
		}
	}
	for _, want := range []string{"aspectRatio", "resolution", "constrainHud"} {
		if !names[want] {
			t.Errorf("missing signature for %s", want)
		}
	}
}

// Every shipped signature must point its hook at instructions the installer
// can actually displace. The resolution hook lands on a call rel32, which
// the emitter relocates rather than rejects.
func TestHookSiteInstructionsPatchable(t *testing.T) {
	sites := map[string][]byte{
		// movss [0x16FF234], xmm0
		"aspectRatio": {0xF3, 0x0F, 0x11, 0x05, 0x34, 0xF2, 0x6F, 0x01},
		// call rel32, 18 bytes past the signature match
		"resolution": {0xE8, 0xAA, 0xBB, 0xCC, 0xDD},
		// movdqu xmm0,[eax]; movdqu [ecx+0xC],xmm0
		"constrainHud": {0xF3, 0x0F, 0x6F, 0x00, 0xF3, 0x0F, 0x7F, 0x41, 0x0C},
	}
	for name, window := range sites {
		n, err := hook.PatchLen(window)
		if err != nil {
			t.Errorf("%s: hook site not patchable: %v", name, err)
			continue
		}
		stub := hook.EmitMidStub(0x10000000, 0x20002000, window[:n], 0x00401000+uint32(n))
		if len(stub) == 0 {
			t.Errorf("%s: empty stub", name)
		}
	}
}

func TestResolutionSignatureOffset(t *testing.T) {
	// The hook must land on the call after the divss, 18 bytes past the
	// match, per the shipped signature.
	region := make([]byte, 128)
	site := []byte{
		0x76, 0x08,
		0xF3, 0x0F, 0x59, 0x05, 0x01, 0x02, 0x03, 0x04,
		0xF3, 0x0F, 0x5E, 0x05, 0x05, 0x06, 0x07, 0x08,
		0xE8, 0xAA, 0xBB, 0xCC, 0xDD,
	}
	copy(region[16:], site)

	fi := newFakeInstaller()
	env := testEnv(region, fi)
	addr, err := NewResolution().Install(env)
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	if want := env.Base + 16 + resolutionSigOffset; addr != want {
		t.Errorf("hook address %#x, want %#x (the call instruction)", addr, want)
	}
}

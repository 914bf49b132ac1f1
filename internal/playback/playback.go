// Package playback tracks whether the host is currently streaming a
// pre-rendered movie. The flag is derived from intercepted file reads: the
// host streams .wmv data continuously while a movie plays and touches other
// files otherwise, so the extension of the most recent read is a reliable
// proxy for playback state.
package playback

import (
	"path/filepath"
	"strings"
	"sync/atomic"
)

// MovieExt is the container suffix of the host's pre-rendered cutscenes.
const MovieExt = ".wmv"

// State is a shared playback flag. It is written from the read-intercept
// callback on arbitrary host threads and read from render-path callbacks;
// a single atomic word keeps the original's relaxed consistency without
// a true data race. A stale read costs at most one frame.
type State struct {
	playing atomic.Bool
}

// NewState returns a fresh state with no movie playing.
func NewState() *State {
	return &State{}
}

// Playing reports whether a movie read was observed most recently.
func (s *State) Playing() bool {
	return s.playing.Load()
}

// SetPlaying records the current playback state.
func (s *State) SetPlaying(v bool) {
	s.playing.Store(v)
}

// Observe classifies one intercepted read by file path and updates the flag.
func (s *State) Observe(path string) {
	s.SetPlaying(IsMoviePath(path))
}

// IsMoviePath reports whether path names a movie container. Windows returns
// final paths with a \\?\ prefix, which does not affect the extension.
func IsMoviePath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), MovieExt)
}

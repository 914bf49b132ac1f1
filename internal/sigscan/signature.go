// Package sigscan locates code by fuzzy byte-signature search so hook
// addresses survive minor binary revisions.
package sigscan

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no position in the region satisfies the
// signature. This is a normal outcome after a game patch reshuffles code;
// callers disable the dependent fix instead of failing.
var ErrNotFound = errors.New("signature not found")

// Signature is an ordered byte pattern with wildcard positions, an optional
// length override and a byte offset applied to the match address.
type Signature struct {
	pattern []byte
	mask    []bool // true = position must match pattern byte

	// Len overrides the length of the instruction run the signature stands
	// for, when it differs from the literal pattern length. The scanner
	// bounds matches so the full run fits inside the region.
	Len int

	// Offset is added to the match address to produce the hook address.
	// It may be negative.
	Offset int
}

// Parse builds a Signature from the space-separated hex form used in the
// fix declarations, e.g. "F3 0F 11 05 ?? ?? ?? ?? E8 ?? ?? ?? ?? 89 EC".
// "??" marks a wildcard byte.
func Parse(s string) (Signature, error) {
	var sig Signature
	for _, tok := range strings.Fields(s) {
		if len(tok) != 2 {
			return Signature{}, fmt.Errorf("bad signature token %q", tok)
		}
		if tok == "??" {
			sig.pattern = append(sig.pattern, 0)
			sig.mask = append(sig.mask, false)
			continue
		}
		b, err := hex.DecodeString(tok)
		if err != nil {
			return Signature{}, fmt.Errorf("bad signature token %q: %w", tok, err)
		}
		sig.pattern = append(sig.pattern, b[0])
		sig.mask = append(sig.mask, true)
	}
	if len(sig.pattern) == 0 {
		return Signature{}, errors.New("empty signature")
	}
	return sig, nil
}

// MustParse is Parse for compile-time constant signatures.
func MustParse(s string) Signature {
	sig, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return sig
}

// WithOffset returns a copy of the signature with the given match offset.
func (s Signature) WithOffset(off int) Signature {
	s.Offset = off
	return s
}

// WithLen returns a copy of the signature with an explicit run length.
func (s Signature) WithLen(n int) Signature {
	s.Len = n
	return s
}

// Size returns the literal pattern length in bytes.
func (s Signature) Size() int {
	return len(s.pattern)
}

// span is the number of bytes a match must have available in the region.
func (s Signature) span() int {
	if s.Len > len(s.pattern) {
		return s.Len
	}
	return len(s.pattern)
}

// String renders the signature back in its hex form.
func (s Signature) String() string {
	var b strings.Builder
	for i, p := range s.pattern {
		if i > 0 {
			b.WriteByte(' ')
		}
		if s.mask[i] {
			fmt.Fprintf(&b, "%02X", p)
		} else {
			b.WriteString("??")
		}
	}
	return b.String()
}

// Scan walks region byte-by-byte and returns the offset of the first
// position where every non-wildcard signature byte equals the region byte.
// The returned offset already includes the signature's Offset. Ambiguous
// (multiple) matches are not detected; the lowest address wins.
func Scan(region []byte, sig Signature) (int, error) {
	n := sig.span()
	if n == 0 || n > len(region) {
		return 0, ErrNotFound
	}
	last := len(region) - n
	for i := 0; i <= last; i++ {
		if matchAt(region, i, sig) {
			return i + sig.Offset, nil
		}
	}
	return 0, ErrNotFound
}

func matchAt(region []byte, at int, sig Signature) bool {
	for j, p := range sig.pattern {
		if sig.mask[j] && region[at+j] != p {
			return false
		}
	}
	return true
}

// FindIn scans a live module image and returns the absolute hook address.
func FindIn(region []byte, base uintptr, sig Signature) (uintptr, error) {
	off, err := Scan(region, sig)
	if err != nil {
		return 0, err
	}
	return base + uintptr(off), nil
}

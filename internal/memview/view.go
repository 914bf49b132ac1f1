// Package memview gives typed, bounds-checked access to a window of raw
// memory reached through a register-derived base pointer. Hook callbacks use
// it instead of dereferencing foreign pointers directly, so a bad offset
// fails with a distinct error instead of corrupting unrelated state.
package memview

import (
	"encoding/binary"
	"errors"
	"math"
	"unsafe"
)

// ErrOutOfRange reports an access outside the view window.
var ErrOutOfRange = errors.New("memview: access out of range")

// View is a fixed window [base, base+len) of live memory.
type View struct {
	data []byte
}

// At adopts size bytes of live memory starting at base. The caller vouches
// that the window stays mapped for the lifetime of the view; hook callbacks
// only build views over structures owned by the instruction they intercept.
func At(base uintptr, size int) View {
	if base == 0 || size <= 0 {
		return View{}
	}
	return View{data: unsafe.Slice((*byte)(unsafe.Pointer(base)), size)}
}

// Of wraps an in-process buffer; used by tests to stand in for game memory.
func Of(buf []byte) View {
	return View{data: buf}
}

// Len returns the window size in bytes.
func (v View) Len() int {
	return len(v.data)
}

func (v View) slice(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(v.data) {
		return nil, ErrOutOfRange
	}
	return v.data[off : off+n], nil
}

// U32 reads a little-endian uint32 at off.
func (v View) U32(off int) (uint32, error) {
	b, err := v.slice(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// PutU32 writes a little-endian uint32 at off.
func (v View) PutU32(off int, val uint32) error {
	b, err := v.slice(off, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, val)
	return nil
}

// F32 reads a 32-bit float at off.
func (v View) F32(off int) (float32, error) {
	u, err := v.U32(off)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

// PutF32 writes a 32-bit float at off.
func (v View) PutF32(off int, val float32) error {
	return v.PutU32(off, math.Float32bits(val))
}

package memview

import (
	"math"
	"testing"
	"unsafe"
)

func TestU32RoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	v := Of(buf)

	if err := v.PutU32(4, 0x3F800000); err != nil {
		t.Fatalf("PutU32 failed: %v", err)
	}
	got, err := v.U32(4)
	if err != nil {
		t.Fatalf("U32 failed: %v", err)
	}
	if got != 0x3F800000 {
		t.Errorf("expected 0x3F800000, got %#x", got)
	}

	f, err := v.F32(4)
	if err != nil {
		t.Fatalf("F32 failed: %v", err)
	}
	if f != 1.0 {
		t.Errorf("expected 1.0, got %v", f)
	}
}

func TestF32Write(t *testing.T) {
	buf := make([]byte, 8)
	v := Of(buf)

	if err := v.PutF32(0, -0.744186); err != nil {
		t.Fatalf("PutF32 failed: %v", err)
	}
	u, err := v.U32(0)
	if err != nil {
		t.Fatalf("U32 failed: %v", err)
	}
	if u != math.Float32bits(-0.744186) {
		t.Errorf("bit pattern mismatch: %#x", u)
	}
}

func TestOutOfRange(t *testing.T) {
	v := Of(make([]byte, 8))

	cases := []struct {
		name string
		err  error
	}{
		{"read past end", func() error { _, err := v.U32(5); return err }()},
		{"read negative", func() error { _, err := v.U32(-1); return err }()},
		{"write past end", v.PutU32(8, 1)},
		{"write float past end", v.PutF32(6, 1)},
	}
	for _, c := range cases {
		if c.err != ErrOutOfRange {
			t.Errorf("%s: expected ErrOutOfRange, got %v", c.name, c.err)
		}
	}
}

func TestAtAdoptsLiveMemory(t *testing.T) {
	var backing [12]byte
	v := At(uintptr(unsafe.Pointer(&backing[0])), len(backing))

	if err := v.PutU32(8, 0xBF800000); err != nil {
		t.Fatalf("PutU32 failed: %v", err)
	}
	if got := uint32(backing[8]) | uint32(backing[9])<<8 | uint32(backing[10])<<16 | uint32(backing[11])<<24; got != 0xBF800000 {
		t.Errorf("live write not visible: %#x", got)
	}
}

func TestAtNilBase(t *testing.T) {
	v := At(0, 16)
	if v.Len() != 0 {
		t.Errorf("nil base should produce empty view")
	}
	if _, err := v.U32(0); err != ErrOutOfRange {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

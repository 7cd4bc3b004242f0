package memory

import (
	"errors"
	"testing"
)

type actionID int32

func TestViewReadWrite(t *testing.T) {
	b := NewBuffer(0x4000, make([]byte, 0x100))
	v := At(b, 0x4010)

	if err := Write(v, float32(1.5)); err != nil {
		t.Fatalf("Write float32: %v", err)
	}
	f, err := Read[float32](v)
	if err != nil || f != 1.5 {
		t.Errorf("Read float32 = %v, %v", f, err)
	}

	if err := Write(v.Field(8), int32(-7)); err != nil {
		t.Fatalf("Write int32: %v", err)
	}
	i, _ := Read[int32](v.Field(8))
	if i != -7 {
		t.Errorf("Read int32 = %d", i)
	}

	if err := Write(v.Field(16), actionID(42)); err != nil {
		t.Fatalf("Write named: %v", err)
	}
	a, _ := Read[actionID](v.Field(16))
	if a != 42 {
		t.Errorf("Read named = %d", a)
	}

	Write(v.Field(24), true)
	ok, _ := Read[bool](v.Field(24))
	if !ok {
		t.Error("Read bool = false")
	}
}

func TestViewChain(t *testing.T) {
	b := NewBuffer(0x8000, make([]byte, 0x200))
	// global at 0x8000 -> object at 0x8100, field +0x20 holds 0x8180
	WriteU64(b, 0x8000, 0x8100)
	WriteU64(b, 0x8120, 0x8180)
	Write(At(b, 0x8190), uint32(0xCAFE))

	v := Chain(b, 0x8000, 0x20).Deref(0x10)
	got, err := Read[uint32](v)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != 0xCAFE {
		t.Errorf("got 0x%x", got)
	}

	// Field adjusts the last offset only
	addr, _ := Chain(b, 0x8000, 0x20).Field(4).Addr()
	if addr != 0x8124 {
		t.Errorf("Field addr = 0x%x", addr)
	}

	WriteU64(b, 0x8000, 0)
	if v.Valid() {
		t.Error("view valid after root cleared")
	}
	if _, err := Read[uint32](v); !errors.Is(err, ErrNullPointer) {
		t.Errorf("err = %v", err)
	}
}

func TestViewReadString(t *testing.T) {
	data := make([]byte, 64)
	copy(data[8:], "/quest accept\x00")
	b := NewBuffer(0x100, data)

	s, err := At(b, 0x100).Field(8).ReadString(0)
	if err != nil || s != "/quest accept" {
		t.Errorf("ReadString = %q, %v", s, err)
	}
}

func TestViewNullBase(t *testing.T) {
	if _, err := At(NewBuffer(0, nil), 0).Addr(); !errors.Is(err, ErrNullPointer) {
		t.Errorf("err = %v", err)
	}
}

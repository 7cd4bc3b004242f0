package memory

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"
)

// Scalar is the set of fixed-size values View can load and store.
type Scalar interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64 | ~bool
}

// View describes a location inside the target as a base address followed
// by a pointer chain. The chain is walked on every access, so a View stays
// valid while the game moves the objects it points through.
type View struct {
	Mem     Memory
	Base    uint64
	Offsets []int64
}

// At returns a View over a fixed address.
func At(m Memory, addr uint64) View {
	return View{Mem: m, Base: addr}
}

// Chain returns a View that follows offsets from base.
func Chain(m Memory, base uint64, offsets ...int64) View {
	return View{Mem: m, Base: base, Offsets: offsets}
}

// Field derives a View at a fixed byte offset from the final address of v.
// Field does not dereference.
func (v View) Field(off int64) View {
	offs := append([]int64(nil), v.Offsets...)
	if len(offs) == 0 {
		return View{Mem: v.Mem, Base: uint64(int64(v.Base) + off)}
	}
	offs[len(offs)-1] += off
	return View{Mem: v.Mem, Base: v.Base, Offsets: offs}
}

// Deref derives a View that loads the pointer at v and adds off to it.
func (v View) Deref(off int64) View {
	offs := append(append([]int64(nil), v.Offsets...), off)
	return View{Mem: v.Mem, Base: v.Base, Offsets: offs}
}

// Addr resolves the chain to an absolute address.
func (v View) Addr() (uint64, error) {
	if len(v.Offsets) == 0 {
		if v.Base == 0 {
			return 0, fmt.Errorf("view base: %w", ErrNullPointer)
		}
		return v.Base, nil
	}
	return ReadChain(v.Mem, v.Base, v.Offsets...)
}

// Valid reports whether the chain currently resolves.
func (v View) Valid() bool {
	_, err := v.Addr()
	return err == nil
}

// Read loads a T from the final address of v.
func Read[T Scalar](v View) (T, error) {
	var zero T
	addr, err := v.Addr()
	if err != nil {
		return zero, err
	}
	b, err := v.Mem.MemRead(addr, uint64(unsafe.Sizeof(zero)))
	if err != nil {
		return zero, err
	}
	return decode[T](b), nil
}

// Write stores val at the final address of v.
func Write[T Scalar](v View, val T) error {
	addr, err := v.Addr()
	if err != nil {
		return err
	}
	return v.Mem.MemWrite(addr, encode(val))
}

// ReadString loads a NUL-terminated string from the final address of v.
func (v View) ReadString(maxLen int) (string, error) {
	addr, err := v.Addr()
	if err != nil {
		return "", err
	}
	return ReadCString(v.Mem, addr, maxLen)
}

func decode[T Scalar](b []byte) T {
	var out T
	switch p := any(&out).(type) {
	case *int8:
		*p = int8(b[0])
	case *uint8:
		*p = b[0]
	case *bool:
		*p = b[0] != 0
	case *int16:
		*p = int16(binary.LittleEndian.Uint16(b))
	case *uint16:
		*p = binary.LittleEndian.Uint16(b)
	case *int32:
		*p = int32(binary.LittleEndian.Uint32(b))
	case *uint32:
		*p = binary.LittleEndian.Uint32(b)
	case *int64:
		*p = int64(binary.LittleEndian.Uint64(b))
	case *uint64:
		*p = binary.LittleEndian.Uint64(b)
	case *float32:
		*p = math.Float32frombits(binary.LittleEndian.Uint32(b))
	case *float64:
		*p = math.Float64frombits(binary.LittleEndian.Uint64(b))
	default:
		// named types: copy raw little-endian bytes
		copy(unsafe.Slice((*byte)(unsafe.Pointer(&out)), unsafe.Sizeof(out)), b)
	}
	return out
}

func encode[T Scalar](v T) []byte {
	b := make([]byte, unsafe.Sizeof(v))
	switch x := any(v).(type) {
	case int8:
		b[0] = byte(x)
	case uint8:
		b[0] = x
	case bool:
		if x {
			b[0] = 1
		}
	case int16:
		binary.LittleEndian.PutUint16(b, uint16(x))
	case uint16:
		binary.LittleEndian.PutUint16(b, x)
	case int32:
		binary.LittleEndian.PutUint32(b, uint32(x))
	case uint32:
		binary.LittleEndian.PutUint32(b, x)
	case int64:
		binary.LittleEndian.PutUint64(b, uint64(x))
	case uint64:
		binary.LittleEndian.PutUint64(b, x)
	case float32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(x))
	case float64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(x))
	default:
		copy(b, unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v)))
	}
	return b
}

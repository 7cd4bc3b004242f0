package memory

import (
	"fmt"
	"runtime/debug"
	"unsafe"
)

// Native is the current process's own address space. It is the backend used
// when the toolkit runs injected into the game.
//
// Reads and writes go through raw pointers. Faults on unmapped pages are
// turned into ErrUnmapped instead of crashing the process.
type Native struct{}

// MemRead copies size bytes starting at addr.
func (Native) MemRead(addr, size uint64) (b []byte, err error) {
	if addr == 0 {
		return nil, fmt.Errorf("read 0x0: %w", ErrNullPointer)
	}
	defer catchFault(addr, &err)
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))

	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), size))
	return out, nil
}

// MemWrite copies data to addr. The target pages must already be writable;
// use Patch for code.
func (Native) MemWrite(addr uint64, data []byte) (err error) {
	if addr == 0 {
		return fmt.Errorf("write 0x0: %w", ErrNullPointer)
	}
	defer catchFault(addr, &err)
	defer debug.SetPanicOnFault(debug.SetPanicOnFault(true))

	copy(unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(data)), data)
	return nil
}

// Protect changes page protection. See protect_unix.go and protect_windows.go.
func (Native) Protect(addr, size uint64, prot Prot) (Prot, error) {
	return protect(addr, size, prot)
}

func catchFault(addr uint64, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("access 0x%x: %v: %w", addr, r, ErrUnmapped)
	}
}

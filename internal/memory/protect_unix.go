//go:build unix

package memory

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// protect wraps mprotect. mprotect does not report the old protection, so it
// is looked up first; a range spanning differently protected pages is
// refused before anything changes.
func protect(addr, size uint64, prot Prot) (Prot, error) {
	start, length := PageSpan(addr, size)
	old, err := currentProt(start, length)
	if err != nil {
		return ProtNone, fmt.Errorf("protect 0x%x+0x%x: %w", start, length, err)
	}
	page := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(start))), length)
	if err := unix.Mprotect(page, toUnix(prot)); err != nil {
		return ProtNone, fmt.Errorf("mprotect 0x%x+0x%x %s: %w", start, length, prot, err)
	}
	return old, nil
}

func toUnix(p Prot) int {
	v := unix.PROT_NONE
	if p&ProtRead != 0 {
		v |= unix.PROT_READ
	}
	if p&ProtWrite != 0 {
		v |= unix.PROT_WRITE
	}
	if p&ProtExec != 0 {
		v |= unix.PROT_EXEC
	}
	return v
}

// Package memory abstracts the address space of the instrumented process.
//
// Three backends implement Memory: the Unicorn emulator, Native (this
// process's own address space) and Buffer (a flat slice mapped at a base).
// Everything above this package addresses memory by absolute uint64.
package memory

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrNullPointer is returned when a pointer chain hits a null link.
	ErrNullPointer = errors.New("null pointer")

	// ErrUnmapped is returned by backends for reads or writes outside mapped memory.
	ErrUnmapped = errors.New("unmapped memory")
)

// Reader reads raw bytes from an address space.
type Reader interface {
	MemRead(addr, size uint64) ([]byte, error)
}

// Writer writes raw bytes into an address space.
type Writer interface {
	MemWrite(addr uint64, data []byte) error
}

// Memory is a readable and writable address space.
type Memory interface {
	Reader
	Writer
}

// Prot is a page protection mask.
type Prot uint32

const (
	ProtNone  Prot = 0
	ProtRead  Prot = 1
	ProtWrite Prot = 2
	ProtExec  Prot = 4
	ProtAll        = ProtRead | ProtWrite | ProtExec
)

func (p Prot) String() string {
	b := []byte("---")
	if p&ProtRead != 0 {
		b[0] = 'r'
	}
	if p&ProtWrite != 0 {
		b[1] = 'w'
	}
	if p&ProtExec != 0 {
		b[2] = 'x'
	}
	return string(b)
}

// Protector is implemented by backends whose pages carry protection.
// Protect sets prot on the pages covering [addr, addr+size) and returns the
// protection that was in effect before.
type Protector interface {
	Protect(addr, size uint64, prot Prot) (Prot, error)
}

// PageSize is the granularity Patch uses when relaxing protection.
const PageSize = 0x1000

// PageSpan returns the page-aligned range covering [addr, addr+size).
func PageSpan(addr, size uint64) (start, length uint64) {
	start = addr &^ (PageSize - 1)
	end := (addr + size + PageSize - 1) &^ (PageSize - 1)
	return start, end - start
}

// Patch writes data at addr. When m carries page protection, the covering
// pages are made writable for the copy and their previous protection is
// restored afterwards, also when the write fails.
func Patch(m Memory, addr uint64, data []byte) (err error) {
	if len(data) == 0 {
		return nil
	}
	p, ok := m.(Protector)
	if !ok {
		return m.MemWrite(addr, data)
	}

	start, length := PageSpan(addr, uint64(len(data)))
	old, err := p.Protect(start, length, ProtAll)
	if err != nil {
		return fmt.Errorf("patch 0x%x: unprotect: %w", addr, err)
	}
	defer func() {
		if _, rerr := p.Protect(start, length, old); rerr != nil && err == nil {
			err = fmt.Errorf("patch 0x%x: restore protection: %w", addr, rerr)
		}
	}()

	if err := m.MemWrite(addr, data); err != nil {
		return fmt.Errorf("patch 0x%x: %w", addr, err)
	}
	return nil
}

// NOP is the single-byte x86 no-op.
const NOP = 0x90

// PatchNop fills n bytes at addr with NOP.
func PatchNop(m Memory, addr uint64, n int) error {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = NOP
	}
	return Patch(m, addr, buf)
}

// ReadU64 reads a little-endian uint64.
func ReadU64(r Reader, addr uint64) (uint64, error) {
	b, err := r.MemRead(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// WriteU64 writes a little-endian uint64.
func WriteU64(w Writer, addr, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return w.MemWrite(addr, b[:])
}

// ReadChain follows a pointer chain the way cheat tables do: starting at
// base, each offset dereferences the current address and adds the offset
// to the loaded pointer. The final address is returned without a further
// dereference. A null base or a null loaded pointer yields ErrNullPointer.
func ReadChain(r Reader, base uint64, offsets ...int64) (uint64, error) {
	if base == 0 {
		return 0, fmt.Errorf("chain base: %w", ErrNullPointer)
	}
	addr := base
	for i, off := range offsets {
		ptr, err := ReadU64(r, addr)
		if err != nil {
			return 0, fmt.Errorf("chain link %d at 0x%x: %w", i, addr, err)
		}
		if ptr == 0 {
			return 0, fmt.Errorf("chain link %d at 0x%x: %w", i, addr, ErrNullPointer)
		}
		addr = uint64(int64(ptr) + off)
	}
	return addr, nil
}

// ReadCString reads a NUL-terminated string of at most maxLen bytes.
func ReadCString(r Reader, addr uint64, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = 4096
	}
	const chunk = 64
	var out []byte
	for len(out) < maxLen {
		n := min(chunk, maxLen-len(out))
		b, err := r.MemRead(addr+uint64(len(out)), uint64(n))
		if err != nil {
			// The chunk may cross into an unmapped page; retry bytewise.
			return readCStringSlow(r, addr, out, maxLen, err)
		}
		for i, c := range b {
			if c == 0 {
				return string(append(out, b[:i]...)), nil
			}
		}
		out = append(out, b...)
	}
	return string(out), nil
}

func readCStringSlow(r Reader, addr uint64, out []byte, maxLen int, cause error) (string, error) {
	for len(out) < maxLen {
		b, err := r.MemRead(addr+uint64(len(out)), 1)
		if err != nil {
			if len(out) == 0 {
				return "", cause
			}
			return "", fmt.Errorf("unterminated string at 0x%x: %w", addr, err)
		}
		if b[0] == 0 {
			break
		}
		out = append(out, b[0])
	}
	return string(out), nil
}

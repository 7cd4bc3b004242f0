//go:build windows

package memory

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func protect(addr, size uint64, prot Prot) (Prot, error) {
	var old uint32
	if err := windows.VirtualProtect(uintptr(addr), uintptr(size), toWindows(prot), &old); err != nil {
		return ProtNone, fmt.Errorf("VirtualProtect 0x%x+0x%x %s: %w", addr, size, prot, err)
	}
	return fromWindows(old), nil
}

func toWindows(p Prot) uint32 {
	switch p {
	case ProtRead:
		return windows.PAGE_READONLY
	case ProtRead | ProtWrite:
		return windows.PAGE_READWRITE
	case ProtExec:
		return windows.PAGE_EXECUTE
	case ProtRead | ProtExec:
		return windows.PAGE_EXECUTE_READ
	case ProtAll, ProtWrite | ProtExec:
		return windows.PAGE_EXECUTE_READWRITE
	case ProtWrite:
		return windows.PAGE_READWRITE
	}
	return windows.PAGE_NOACCESS
}

func fromWindows(v uint32) Prot {
	switch v &^ (windows.PAGE_GUARD | windows.PAGE_NOCACHE | windows.PAGE_WRITECOMBINE) {
	case windows.PAGE_READONLY:
		return ProtRead
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		return ProtRead | ProtWrite
	case windows.PAGE_EXECUTE:
		return ProtExec
	case windows.PAGE_EXECUTE_READ:
		return ProtRead | ProtExec
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		return ProtAll
	}
	return ProtNone
}

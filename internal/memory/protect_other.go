//go:build !unix && !windows

package memory

import (
	"errors"
	"runtime"
)

func protect(addr, size uint64, prot Prot) (Prot, error) {
	return ProtNone, errors.New("page protection not supported on " + runtime.GOOS)
}

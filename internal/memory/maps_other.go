//go:build unix && !linux

package memory

import (
	"errors"
	"runtime"
)

// currentProt has no source on this system, and restoring a guessed value
// could leave data pages read-only.
func currentProt(start, length uint64) (Prot, error) {
	return ProtNone, errors.New("query protection: not supported on " + runtime.GOOS)
}

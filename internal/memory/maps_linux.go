package memory

import (
	"fmt"
	"os"
)

// currentProt reads the protection of [start, start+length) from
// /proc/self/maps.
func currentProt(start, length uint64) (Prot, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return ProtNone, fmt.Errorf("query protection: %w", err)
	}
	defer f.Close()
	regions, err := ParseMaps(f)
	if err != nil {
		return ProtNone, err
	}
	return SpanProt(regions, start, length)
}

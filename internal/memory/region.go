package memory

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// ErrMixedProtection is returned when a range spans pages whose protections
// differ, so no single value can restore them.
var ErrMixedProtection = errors.New("pages differ in protection")

// Region is a mapped range [Start, End) with one protection.
type Region struct {
	Start uint64
	End   uint64
	Prot  Prot
}

// SpanProt returns the protection shared by every page of [start,
// start+length). A gap yields ErrUnmapped, differing protections
// ErrMixedProtection.
func SpanProt(regions []Region, start, length uint64) (Prot, error) {
	regions = slices.Clone(regions)
	slices.SortFunc(regions, func(a, b Region) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})

	end := start + length
	next, prot, seen := start, ProtNone, false
	for _, r := range regions {
		if r.End <= next || next >= end {
			continue
		}
		if r.Start > next {
			break
		}
		if seen && r.Prot != prot {
			return ProtNone, fmt.Errorf("0x%x+0x%x: %w (%s at 0x%x, %s before)", start, length, ErrMixedProtection, r.Prot, next, prot)
		}
		prot, seen = r.Prot, true
		next = r.End
	}
	if next < end {
		return ProtNone, fmt.Errorf("0x%x not mapped: %w", next, ErrUnmapped)
	}
	return prot, nil
}

// ParseMaps reads the /proc/<pid>/maps format:
//
//	7f1c2a400000-7f1c2a421000 rw-p 00000000 00:00 0
func ParseMaps(r io.Reader) ([]Region, error) {
	var out []Region
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		var reg Region
		if _, err := fmt.Sscanf(fields[0], "%x-%x", &reg.Start, &reg.End); err != nil {
			return nil, fmt.Errorf("maps line %q: %w", sc.Text(), err)
		}
		perms := fields[1]
		if strings.HasPrefix(perms, "r") {
			reg.Prot |= ProtRead
		}
		if len(perms) > 1 && perms[1] == 'w' {
			reg.Prot |= ProtWrite
		}
		if len(perms) > 2 && perms[2] == 'x' {
			reg.Prot |= ProtExec
		}
		out = append(out, reg)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read maps: %w", err)
	}
	return out, nil
}

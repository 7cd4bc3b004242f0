// Package scan resolves byte signatures to absolute addresses by sweeping a
// bounded address range of the target in fixed-size windows.
package scan

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eigeen/mhw-toolkit/internal/log"
	"github.com/eigeen/mhw-toolkit/internal/memory"
	"github.com/eigeen/mhw-toolkit/internal/pattern"
)

var (
	// ErrNotFound is returned when no window contains the pattern.
	ErrNotFound = errors.New("pattern not found")

	// ErrMultipleMatches is returned by Unique when more than one match exists.
	ErrMultipleMatches = errors.New("multiple matches found")
)

// Default scan range of the game image.
const (
	DefaultStart   uint64 = 0x140000000
	DefaultEnd     uint64 = 0x143000000
	DefaultWindow  uint64 = 0x1000000
	DefaultOverlap uint64 = 0x100
)

// Range is the region swept by a Resolver.
//
// Each window reads Window+Overlap bytes so a pattern straddling a window
// boundary is still seen. Overlap should be at least the longest pattern
// length minus one.
type Range struct {
	Start   uint64
	End     uint64
	Window  uint64
	Overlap uint64
}

// DefaultRange returns the range of the mapped game image.
func DefaultRange() Range {
	return Range{
		Start:   DefaultStart,
		End:     DefaultEnd,
		Window:  DefaultWindow,
		Overlap: DefaultOverlap,
	}
}

func (r Range) validate() error {
	if r.End <= r.Start {
		return fmt.Errorf("scan range: end 0x%x <= start 0x%x", r.End, r.Start)
	}
	if r.Window == 0 {
		return errors.New("scan range: zero window")
	}
	return nil
}

// Mode selects how many matches a scan collects.
type Mode int

const (
	First Mode = iota
	All
	Unique
)

func (m Mode) String() string {
	switch m {
	case First:
		return "first"
	case All:
		return "all"
	case Unique:
		return "unique"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Resolver sweeps a Range of a memory.Reader.
// A Resolver holds no mutable state and is safe for concurrent use.
type Resolver struct {
	mem memory.Reader
	rng Range
	log *log.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRange overrides the default range.
func WithRange(r Range) Option {
	return func(res *Resolver) { res.rng = r }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(res *Resolver) { res.log = l }
}

// New creates a resolver over mem.
func New(mem memory.Reader, opts ...Option) (*Resolver, error) {
	r := &Resolver{mem: mem, rng: DefaultRange()}
	for _, o := range opts {
		o(r)
	}
	if err := r.rng.validate(); err != nil {
		return nil, err
	}
	r.log = log.Or(r.log).WithComponent("scan")
	return r, nil
}

// Range returns the configured range.
func (r *Resolver) Range() Range { return r.rng }

// First returns the lowest address matching p, plus offset.
func (r *Resolver) First(p pattern.Pattern, offset int64) (uint64, error) {
	addrs, err := r.Scan(p, offset, First)
	if err != nil {
		return 0, err
	}
	return addrs[0], nil
}

// All returns every address matching p in ascending order, plus offset.
func (r *Resolver) All(p pattern.Pattern, offset int64) ([]uint64, error) {
	return r.Scan(p, offset, All)
}

// Unique returns the single address matching p, plus offset. Zero matches
// yield ErrNotFound and more than one ErrMultipleMatches.
func (r *Resolver) Unique(p pattern.Pattern, offset int64) (uint64, error) {
	addrs, err := r.Scan(p, offset, Unique)
	if err != nil {
		return 0, err
	}
	return addrs[0], nil
}

// Scan runs one sweep in the given mode. The result is never empty when
// err is nil.
func (r *Resolver) Scan(p pattern.Pattern, offset int64, mode Mode) ([]uint64, error) {
	var out []uint64
	if p.Len() > 0 {
		r.sweep(p, func(addr uint64) bool {
			out = append(out, uint64(int64(addr)+offset))
			switch mode {
			case First:
				return false
			case Unique:
				return len(out) < 2
			}
			return true
		})
	}

	r.log.Debug("scan",
		log.Pattern(p.String()),
		zap.Stringer("mode", mode),
		zap.Int("matches", len(out)),
	)

	switch {
	case len(out) == 0:
		return nil, ErrNotFound
	case mode == Unique && len(out) > 1:
		return nil, fmt.Errorf("%w: first at %s and %s", ErrMultipleMatches, log.Hex(out[0]), log.Hex(out[1]))
	}
	return out, nil
}

// sweep visits every match start in ascending order until fn returns false.
func (r *Resolver) sweep(p pattern.Pattern, fn func(addr uint64) bool) {
	rng := r.rng
	for base := rng.Start; base < rng.End; base += rng.Window {
		// Matches starting in the overlap tail belong to the next window.
		own := min(rng.Window, rng.End-base)
		size := min(own+rng.Overlap, rng.End-base)

		buf, err := r.mem.MemRead(base, size)
		if err != nil {
			r.log.Debug("window unreadable", log.Addr(base), log.Size(size), zap.Error(err))
			continue
		}
		for _, off := range p.Search(buf) {
			if uint64(off) >= own {
				break
			}
			if !fn(base + uint64(off)) {
				return
			}
		}
		if base+rng.Window < base {
			return
		}
	}
}

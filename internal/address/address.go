// Package address maps named signature records to resolved runtime
// addresses, scanning for each record at most once per cache.
package address

import (
	"fmt"
	"sync"

	"github.com/eigeen/mhw-toolkit/internal/log"
	"github.com/eigeen/mhw-toolkit/internal/pattern"
)

// Record names a signature. Records are compared by pointer: two records
// with identical bytes are still distinct cache entries.
type Record struct {
	Name    string
	Pattern pattern.Pattern
	Offset  int64
}

// Define builds a record from pattern text and panics on malformed text.
// It is meant for package-level record tables.
func Define(name, text string, offset int64) *Record {
	return &Record{Name: name, Pattern: pattern.MustParse(text), Offset: offset}
}

func (r *Record) String() string {
	if r.Offset != 0 {
		return fmt.Sprintf("%s [%s]%+d", r.Name, r.Pattern, r.Offset)
	}
	return fmt.Sprintf("%s [%s]", r.Name, r.Pattern)
}

// Provider performs the uncached scan. *scan.Resolver satisfies it.
type Provider interface {
	Unique(p pattern.Pattern, offset int64) (uint64, error)
}

// ResolveError reports a failed resolution.
type ResolveError struct {
	Record *Record
	Err    error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.Record.Name, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Cache memoizes successful resolutions. Failures are not cached, so a later
// call retries the scan.
//
// The lock guards only the map. Scans run unlocked; two goroutines missing
// on the same record may both scan, and the later store wins.
type Cache struct {
	provider Provider
	log      *log.Logger

	mu    sync.Mutex
	addrs map[*Record]uint64
}

// NewCache creates an empty cache backed by p.
func NewCache(p Provider, l *log.Logger) *Cache {
	return &Cache{
		provider: p,
		log:      log.Or(l).WithComponent("address"),
		addrs:    make(map[*Record]uint64),
	}
}

// Resolve returns the address for rec, scanning on the first call.
func (c *Cache) Resolve(rec *Record) (uint64, error) {
	if addr, ok := c.Lookup(rec); ok {
		c.log.Resolved(rec.Name, addr, true)
		return addr, nil
	}

	addr, err := c.provider.Unique(rec.Pattern, rec.Offset)
	if err != nil {
		return 0, &ResolveError{Record: rec, Err: err}
	}

	c.mu.Lock()
	c.addrs[rec] = addr
	c.mu.Unlock()

	c.log.Resolved(rec.Name, addr, false)
	return addr, nil
}

// Lookup returns the cached address without scanning.
func (c *Cache) Lookup(rec *Record) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	addr, ok := c.addrs[rec]
	return addr, ok
}

// Len returns the number of resolved records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.addrs)
}

var (
	shared     *Cache
	sharedOnce sync.Once
)

// Shared returns the process-wide cache, creating it with newProvider on
// first use. Later calls ignore newProvider.
func Shared(newProvider func() Provider) *Cache {
	sharedOnce.Do(func() {
		shared = NewCache(newProvider(), nil)
	})
	return shared
}

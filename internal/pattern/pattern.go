// Package pattern implements byte signatures with wildcard positions and a
// Boyer-Moore style matcher over raw memory windows.
//
// Pattern text is a whitespace separated list of two-digit hex bytes where
// "??", "?" or "**" stands for any byte:
//
//	F3 48 0F 2A F0 85 ?? 7E ?? 49 8B
package pattern

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultWildcard is the preferred in-memory value for wildcard positions.
const DefaultWildcard byte = 0xFF

// ErrFormat is returned (wrapped) for malformed pattern text.
var ErrFormat = errors.New("invalid pattern format")

// FormatError describes the offending token of a malformed pattern.
type FormatError struct {
	Token string
	Index int
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid pattern format: token %d %q: %v", e.Index, e.Token, e.Err)
	}
	return fmt.Sprintf("invalid pattern format: token %d %q", e.Index, e.Token)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func (e *FormatError) Unwrap() error { return e.Err }

// Pattern is an immutable byte signature.
//
// Wildcard positions hold the Wildcard value. Parse picks a wildcard value that
// never collides with a concrete byte of the same pattern, so a concrete 0xFF
// can coexist with wildcards.
type Pattern struct {
	bytes    []byte
	wildcard byte
	m        *matcher
}

// New builds a pattern from raw bytes, treating every byte equal to wildcard
// as a wildcard position.
func New(raw []byte, wildcard byte) Pattern {
	b := append([]byte(nil), raw...)
	return Pattern{bytes: b, wildcard: wildcard, m: newMatcher(b, wildcard)}
}

// Parse converts pattern text into a Pattern.
func Parse(text string) (Pattern, error) {
	fields := strings.Fields(text)
	values := make([]byte, len(fields))
	wild := make([]bool, len(fields))
	var used [256]bool

	for i, tok := range fields {
		switch tok {
		case "??", "?", "**":
			wild[i] = true
			continue
		}
		if len(tok) != 2 {
			return Pattern{}, &FormatError{Token: tok, Index: i}
		}
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return Pattern{}, &FormatError{Token: tok, Index: i, Err: err}
		}
		values[i] = byte(v)
		used[v] = true
	}

	wildcard := DefaultWildcard
	if used[wildcard] {
		found := false
		for v := 0; v < 256; v++ {
			if !used[v] {
				wildcard, found = byte(v), true
				break
			}
		}
		if !found && hasWildcard(wild) {
			return Pattern{}, &FormatError{Token: text, Index: -1, Err: errors.New("no free byte value for wildcard")}
		}
	}

	for i := range values {
		if wild[i] {
			values[i] = wildcard
		}
	}
	return Pattern{bytes: values, wildcard: wildcard, m: newMatcher(values, wildcard)}, nil
}

func hasWildcard(wild []bool) bool {
	for _, w := range wild {
		if w {
			return true
		}
	}
	return false
}

// MustParse is like Parse but panics on malformed text.
// Intended for static record tables.
func MustParse(text string) Pattern {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

// FromMask builds a pattern from bytes and a mask string such as "xxx????xx",
// where 'x' marks a concrete byte and '?' a wildcard.
func FromMask(raw []byte, mask string) (Pattern, error) {
	if len(raw) != len(mask) {
		return Pattern{}, &FormatError{Token: mask, Index: -1, Err: fmt.Errorf("mask length %d != pattern length %d", len(mask), len(raw))}
	}
	var b strings.Builder
	for i, c := range mask {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch c {
		case 'x':
			fmt.Fprintf(&b, "%02X", raw[i])
		case '?':
			b.WriteString("??")
		default:
			return Pattern{}, &FormatError{Token: string(c), Index: i}
		}
	}
	return Parse(b.String())
}

// Len returns the number of tokens.
func (p Pattern) Len() int { return len(p.bytes) }

// Wildcard returns the byte value used for wildcard positions.
func (p Pattern) Wildcard() byte { return p.wildcard }

// Bytes returns a copy of the pattern bytes, wildcards included.
func (p Pattern) Bytes() []byte { return append([]byte(nil), p.bytes...) }

// IsWildcard reports whether token i is a wildcard.
func (p Pattern) IsWildcard(i int) bool { return p.bytes[i] == p.wildcard }

// Matches reports whether b agrees with the pattern at every concrete position.
func (p Pattern) Matches(b []byte) bool {
	if len(b) < len(p.bytes) {
		return false
	}
	for i, v := range p.bytes {
		if v != p.wildcard && b[i] != v {
			return false
		}
	}
	return true
}

// Search returns every match offset of p in haystack.
func (p Pattern) Search(haystack []byte) []int {
	if p.m == nil {
		return nil
	}
	return p.m.all(haystack)
}

// SearchFirst returns the first match offset of p in haystack.
func (p Pattern) SearchFirst(haystack []byte) (int, bool) {
	if p.m == nil {
		return 0, false
	}
	return p.m.first(haystack)
}

// String formats the pattern back to text, wildcards as "??".
func (p Pattern) String() string {
	var b strings.Builder
	for i, v := range p.bytes {
		if i > 0 {
			b.WriteByte(' ')
		}
		if v == p.wildcard {
			b.WriteString("??")
			continue
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

// Format renders raw bytes as space separated upper-case hex.
func Format(raw []byte) string {
	var b strings.Builder
	for i, v := range raw {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

// RelativeAddress returns the displacement encoded by a relative jump or call
// of insnLen bytes at src that lands on dst.
func RelativeAddress(src, dst uint64, insnLen int) int64 {
	return int64(dst) - (int64(src) + int64(insnLen))
}

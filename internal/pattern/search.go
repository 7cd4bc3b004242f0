package pattern

// matcher holds a pattern together with its bad-character table.
// The table is built once and reused for every haystack the pattern is run against.
type matcher struct {
	pat      []byte
	wildcard byte
	last     [256]int
}

func newMatcher(pat []byte, wildcard byte) *matcher {
	m := &matcher{pat: pat, wildcard: wildcard}

	// Rightmost wildcard position. A wildcard accepts any byte, so no shift may
	// move the window past it; it is the floor of every table entry.
	floor := -1
	for i, b := range pat {
		if b == wildcard {
			floor = i
		}
	}
	for i := range m.last {
		m.last[i] = floor
	}
	for i, b := range pat {
		if b != wildcard && i > m.last[b] {
			m.last[b] = i
		}
	}
	return m
}

// scan runs the search and calls fn for every match start.
// Returning false from fn stops the scan.
func (m *matcher) scan(text []byte, fn func(int) bool) {
	plen, n := len(m.pat), len(text)
	if plen == 0 || plen > n {
		return
	}

	for i := 0; i <= n-plen; {
		j := plen - 1
		for j >= 0 && (m.pat[j] == m.wildcard || m.pat[j] == text[i+j]) {
			j--
		}
		if j < 0 {
			if !fn(i) {
				return
			}
			i++
			continue
		}
		i += max(1, j-m.last[text[i+j]])
	}
}

func (m *matcher) all(text []byte) []int {
	var matches []int
	m.scan(text, func(i int) bool {
		matches = append(matches, i)
		return true
	})
	return matches
}

func (m *matcher) first(text []byte) (int, bool) {
	pos, found := 0, false
	m.scan(text, func(i int) bool {
		pos, found = i, true
		return false
	})
	return pos, found
}

// Search returns the start offset of every occurrence of pat in haystack.
// Bytes of pat equal to wildcard match any haystack byte. Overlapping
// occurrences are all reported, in ascending order.
// An empty pattern or a pattern longer than haystack yields no matches.
func Search(haystack, pat []byte, wildcard byte) []int {
	return newMatcher(pat, wildcard).all(haystack)
}

// SearchFirst returns the offset of the first occurrence of pat in haystack.
func SearchFirst(haystack, pat []byte, wildcard byte) (int, bool) {
	return newMatcher(pat, wildcard).first(haystack)
}

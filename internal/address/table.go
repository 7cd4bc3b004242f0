package address

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eigeen/mhw-toolkit/internal/pattern"
)

// Table is a named set of records. Names are dotted, grouping records by
// subsystem ("quest.Accept", "monster.Ctor").
type Table struct {
	byName map[string]*Record
	order  []string
}

// NewTable builds a table. Duplicate names are an error.
func NewTable(recs ...*Record) (*Table, error) {
	t := &Table{byName: make(map[string]*Record, len(recs))}
	for _, r := range recs {
		if err := t.Add(r); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Add appends rec to the table.
func (t *Table) Add(rec *Record) error {
	if rec.Name == "" {
		return fmt.Errorf("record with pattern [%s] has no name", rec.Pattern)
	}
	if _, dup := t.byName[rec.Name]; dup {
		return fmt.Errorf("duplicate record %q", rec.Name)
	}
	t.byName[rec.Name] = rec
	t.order = append(t.order, rec.Name)
	return nil
}

// Merge adds every record of o. A name present in both tables is an error
// and leaves t unchanged.
func (t *Table) Merge(o *Table) error {
	for _, n := range o.order {
		if _, dup := t.byName[n]; dup {
			return fmt.Errorf("duplicate record %q", n)
		}
	}
	for _, n := range o.order {
		t.byName[n] = o.byName[n]
		t.order = append(t.order, n)
	}
	return nil
}

// Get returns the record called name.
func (t *Table) Get(name string) (*Record, bool) {
	r, ok := t.byName[name]
	return r, ok
}

// MustGet is like Get but panics when name is missing.
func (t *Table) MustGet(name string) *Record {
	r, ok := t.byName[name]
	if !ok {
		panic("address: unknown record " + strconv.Quote(name))
	}
	return r
}

// Records returns all records in insertion order.
func (t *Table) Records() []*Record {
	out := make([]*Record, 0, len(t.order))
	for _, n := range t.order {
		out = append(out, t.byName[n])
	}
	return out
}

// Group returns the records whose name starts with group + ".".
func (t *Table) Group(group string) []*Record {
	var out []*Record
	prefix := group + "."
	for _, n := range t.order {
		if strings.HasPrefix(n, prefix) {
			out = append(out, t.byName[n])
		}
	}
	return out
}

// Groups returns the sorted set of group names.
func (t *Table) Groups() []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range t.order {
		g, _, ok := strings.Cut(n, ".")
		if !ok || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.order) }

// recordFile is the YAML layout of a record table:
//
//	records:
//	  - name: monster.Ctor
//	    pattern: "4C 89 B3 10 76 00 00"
//	    offset: -60
type recordFile struct {
	Records []recordEntry `yaml:"records"`
}

type recordEntry struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Offset  Offset `yaml:"offset"`
}

// Offset is a signed displacement that accepts decimal or 0x-prefixed hex
// in YAML ("-60", "-0x3C").
type Offset int64

func (o *Offset) UnmarshalYAML(n *yaml.Node) error {
	v, err := strconv.ParseInt(strings.ReplaceAll(n.Value, "_", ""), 0, 64)
	if err != nil {
		return fmt.Errorf("line %d: offset %q: %w", n.Line, n.Value, err)
	}
	*o = Offset(v)
	return nil
}

// LoadTable decodes a YAML record table.
func LoadTable(r io.Reader) (*Table, error) {
	var f recordFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode record table: %w", err)
	}
	t := &Table{byName: make(map[string]*Record, len(f.Records))}
	for _, e := range f.Records {
		p, err := pattern.Parse(e.Pattern)
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", e.Name, err)
		}
		if p.Len() == 0 {
			return nil, fmt.Errorf("record %q: empty pattern", e.Name)
		}
		if err := t.Add(&Record{Name: e.Name, Pattern: p, Offset: int64(e.Offset)}); err != nil {
			return nil, err
		}
	}
	return t, nil
}

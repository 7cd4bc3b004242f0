package scan

import (
	"errors"
	"slices"
	"testing"

	"github.com/eigeen/mhw-toolkit/internal/memory"
	"github.com/eigeen/mhw-toolkit/internal/pattern"
)

const testBase = 0x1000

func newTestResolver(t *testing.T, data []byte, window, overlap uint64) *Resolver {
	t.Helper()
	mem := memory.NewBuffer(testBase, data)
	r, err := New(mem, WithRange(Range{
		Start:   testBase,
		End:     testBase + uint64(len(data)),
		Window:  window,
		Overlap: overlap,
	}))
	if err != nil {
		t.Fatalf("Failed to create resolver: %v", err)
	}
	return r
}

func TestFirstReturnsLowest(t *testing.T) {
	data := make([]byte, 32)
	copy(data[3:], []byte{0xAA, 0xBB})
	copy(data[9:], []byte{0xAA, 0xBB})
	r := newTestResolver(t, data, 0x100, 0x10)

	addr, err := r.First(pattern.MustParse("AA BB"), 0)
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	if addr != testBase+3 {
		t.Errorf("First = 0x%x, want 0x%x", addr, testBase+3)
	}
}

func TestUnique(t *testing.T) {
	p := pattern.MustParse("AA BB")

	one := make([]byte, 32)
	copy(one[5:], []byte{0xAA, 0xBB})
	addr, err := newTestResolver(t, one, 0x100, 0x10).Unique(p, 0)
	if err != nil || addr != testBase+5 {
		t.Errorf("one match: 0x%x, %v", addr, err)
	}

	none := make([]byte, 32)
	if _, err := newTestResolver(t, none, 0x100, 0x10).Unique(p, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("zero matches err = %v", err)
	}

	two := make([]byte, 32)
	copy(two[1:], []byte{0xAA, 0xBB})
	copy(two[20:], []byte{0xAA, 0xBB})
	if _, err := newTestResolver(t, two, 0x100, 0x10).Unique(p, 0); !errors.Is(err, ErrMultipleMatches) {
		t.Errorf("two matches err = %v", err)
	}
}

func TestOffsetApplied(t *testing.T) {
	data := make([]byte, 0x20)
	copy(data[0:], []byte{0xAA, 0xBB})
	r := newTestResolver(t, data, 0x100, 0x10)

	addr, err := r.Unique(pattern.MustParse("AA BB"), -1)
	if err != nil {
		t.Fatalf("Unique: %v", err)
	}
	if addr != 0x0FFF {
		t.Errorf("addr = 0x%x, want 0xfff", addr)
	}

	all, _ := r.All(pattern.MustParse("AA BB"), 0x10)
	if !slices.Equal(all, []uint64{0x1010}) {
		t.Errorf("All = %x", all)
	}
}

func TestMatchAcrossWindowBoundary(t *testing.T) {
	data := make([]byte, 0x80)
	// straddles the 0x40 boundary
	copy(data[0x3E:], []byte{0x48, 0x8B, 0x05, 0x11})
	r := newTestResolver(t, data, 0x40, 0x8)

	addr, err := r.Unique(pattern.MustParse("48 8B 05 11"), 0)
	if err != nil {
		t.Fatalf("Unique: %v", err)
	}
	if addr != testBase+0x3E {
		t.Errorf("addr = 0x%x", addr)
	}
}

func TestOverlapDoesNotDuplicate(t *testing.T) {
	data := make([]byte, 0x80)
	// fully inside the overlap tail of window 0 and the head of window 1
	copy(data[0x41:], []byte{0xDE, 0xAD})
	r := newTestResolver(t, data, 0x40, 0x8)

	addrs, err := r.All(pattern.MustParse("DE AD"), 0)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if !slices.Equal(addrs, []uint64{testBase + 0x41}) {
		t.Errorf("All = %x", addrs)
	}
	if _, err := r.Unique(pattern.MustParse("DE AD"), 0); err != nil {
		t.Errorf("Unique reported duplicate: %v", err)
	}
}

func TestAllAcrossWindows(t *testing.T) {
	data := make([]byte, 0x100)
	want := []uint64{}
	for _, off := range []int{0x00, 0x3F, 0x7C, 0xC0, 0xFE} {
		data[off], data[off+1] = 0xC3, 0xCC
		want = append(want, testBase+uint64(off))
	}
	r := newTestResolver(t, data, 0x40, 0x4)

	got, err := r.All(pattern.MustParse("C3 CC"), 0)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if !slices.Equal(got, want) {
		t.Errorf("All = %x, want %x", got, want)
	}
}

func TestUnreadableWindowSkipped(t *testing.T) {
	data := make([]byte, 0x40)
	copy(data[0x10:], []byte{0x90, 0x90, 0xC3})
	mem := memory.NewBuffer(testBase, data)
	// range extends past the mapping; the later windows fail to read
	r, err := New(mem, WithRange(Range{Start: testBase, End: testBase + 0x100, Window: 0x40, Overlap: 0x8}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// window 0 reads 0x48 bytes past a 0x40 mapping and fails too
	if _, err := r.First(pattern.MustParse("90 90 C3"), 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	r2, _ := New(mem, WithRange(Range{Start: testBase, End: testBase + 0x40, Window: 0x20, Overlap: 0x4}))
	if addr, err := r2.First(pattern.MustParse("90 90 C3"), 0); err != nil || addr != testBase+0x10 {
		t.Errorf("First = 0x%x, %v", addr, err)
	}
}

func TestEmptyPattern(t *testing.T) {
	r := newTestResolver(t, make([]byte, 16), 0x10, 0)
	if _, err := r.First(pattern.Pattern{}, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestInvalidRange(t *testing.T) {
	mem := memory.NewBuffer(0, nil)
	if _, err := New(mem, WithRange(Range{Start: 0x10, End: 0x10, Window: 1})); err == nil {
		t.Error("expected error for empty range")
	}
	if _, err := New(mem, WithRange(Range{Start: 0, End: 0x10})); err == nil {
		t.Error("expected error for zero window")
	}
}

func TestDefaultRange(t *testing.T) {
	r, err := New(memory.NewBuffer(0, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Range() != DefaultRange() {
		t.Errorf("Range = %+v", r.Range())
	}
	if DefaultRange().Start != 0x140000000 || DefaultRange().Window != 0x1000000 {
		t.Error("default constants changed")
	}
}

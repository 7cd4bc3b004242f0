//go:build unix

package memory

import (
	"errors"
	"os"
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mapPages returns n anonymous pages outside the Go heap.
func mapPages(t *testing.T, n int, prot int) ([]byte, uint64) {
	t.Helper()
	if os.Getpagesize() != PageSize {
		t.Skipf("system page size 0x%x", os.Getpagesize())
	}
	b, err := unix.Mmap(-1, 0, n*PageSize, prot, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		t.Fatalf("mmap: %v", err)
	}
	t.Cleanup(func() { unix.Munmap(b) })
	return b, uint64(uintptr(unsafe.Pointer(&b[0])))
}

func TestNativeRoundTrip(t *testing.T) {
	buf, addr := mapPages(t, 1, unix.PROT_READ|unix.PROT_WRITE)

	var n Native
	if err := n.MemWrite(addr, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("MemWrite: %v", err)
	}
	got, err := n.MemRead(addr, 4)
	if err != nil {
		t.Fatalf("MemRead: %v", err)
	}
	if got[0] != 1 || got[3] != 4 || buf[2] != 3 {
		t.Errorf("got %v, buf %v", got[:4], buf[:4])
	}
	if _, err := n.MemRead(0, 4); !errors.Is(err, ErrNullPointer) {
		t.Errorf("null read err = %v", err)
	}
}

package memory

import "fmt"

// Buffer is a flat byte slice mapped at Base. It backs test haystacks and
// image dumps loaded from disk.
type Buffer struct {
	Base uint64
	Data []byte
}

// NewBuffer maps data at base. The slice is used directly, not copied.
func NewBuffer(base uint64, data []byte) *Buffer {
	return &Buffer{Base: base, Data: data}
}

// End returns the first address past the buffer.
func (b *Buffer) End() uint64 { return b.Base + uint64(len(b.Data)) }

func (b *Buffer) span(addr, size uint64) (int, int, error) {
	if addr < b.Base || size > uint64(len(b.Data)) || addr-b.Base > uint64(len(b.Data))-size {
		return 0, 0, fmt.Errorf("0x%x+0x%x outside [0x%x, 0x%x): %w", addr, size, b.Base, b.End(), ErrUnmapped)
	}
	off := int(addr - b.Base)
	return off, off + int(size), nil
}

// MemRead returns a copy of size bytes at addr.
func (b *Buffer) MemRead(addr, size uint64) ([]byte, error) {
	lo, hi, err := b.span(addr, size)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b.Data[lo:hi]...), nil
}

// MemWrite copies data to addr.
func (b *Buffer) MemWrite(addr uint64, data []byte) error {
	lo, hi, err := b.span(addr, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(b.Data[lo:hi], data)
	return nil
}

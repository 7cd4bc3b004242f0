package emulator

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/eigeen/mhw-toolkit/internal/memory"
)

// Base relocation types
const (
	IMAGE_REL_BASED_ABSOLUTE = 0  // Padding entry
	IMAGE_REL_BASED_DIR64    = 10 // 64-bit absolute address
)

// PEInfo contains parsed PE metadata
type PEInfo struct {
	Path      string
	Machine   uint16
	Entry     uint64
	ImageBase uint64 // Load base address
	ImageSize uint64 // SizeOfImage
	Sections  []Section
	Exports   map[string]uint64 // export name -> virtual address
}

// Section represents a mapped PE section
type Section struct {
	Name  string
	VAddr uint64
	Size  uint64 // Virtual size
	Flags uint32 // IMAGE_SCN_* characteristics
}

// End returns the first address past the image.
func (info *PEInfo) End() uint64 { return info.ImageBase + info.ImageSize }

// Section returns the section called name.
func (info *PEInfo) Section(name string) (Section, bool) {
	for _, s := range info.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// IsExecutable returns true if the section is executable
func (s *Section) IsExecutable() bool { return s.Flags&pe.IMAGE_SCN_MEM_EXECUTE != 0 }

// IsWritable returns true if the section is writable
func (s *Section) IsWritable() bool { return s.Flags&pe.IMAGE_SCN_MEM_WRITE != 0 }

// IsReadable returns true if the section is readable
func (s *Section) IsReadable() bool { return s.Flags&pe.IMAGE_SCN_MEM_READ != 0 }

// Prot returns the page protection the section is mapped with.
func (s *Section) Prot() memory.Prot {
	p := memory.ProtNone
	if s.IsReadable() {
		p |= memory.ProtRead
	}
	if s.IsWritable() {
		p |= memory.ProtWrite
	}
	if s.IsExecutable() {
		p |= memory.ProtExec
	}
	return p
}

// LoadPE loads a PE file from disk at its preferred base.
func (e *Emulator) LoadPE(path string) (*PEInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	info, err := e.LoadPEBytes(data, 0)
	if err != nil {
		return nil, err
	}
	info.Path = path
	return info, nil
}

// LoadPEBytes maps a PE32+ image. If loadBase is 0 the preferred ImageBase is
// used; otherwise DIR64 base relocations are applied for the new base.
func (e *Emulator) LoadPEBytes(data []byte, loadBase uint64) (*PEInfo, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open PE: %w", err)
	}
	defer f.Close()

	// Verify x86-64
	if f.Machine != pe.IMAGE_FILE_MACHINE_AMD64 {
		return nil, fmt.Errorf("expected AMD64 (0x8664), got 0x%x", f.Machine)
	}
	oh, ok := f.OptionalHeader.(*pe.OptionalHeader64)
	if !ok {
		return nil, fmt.Errorf("expected PE32+ optional header")
	}

	base := oh.ImageBase
	if loadBase != 0 {
		base = loadBase
	}
	delta := base - oh.ImageBase

	info := &PEInfo{
		Machine:   f.Machine,
		Entry:     base + uint64(oh.AddressOfEntryPoint),
		ImageBase: base,
		ImageSize: alignPage(uint64(oh.SizeOfImage)),
		Exports:   make(map[string]uint64),
	}

	// Map the whole image read-write first; section protections are
	// applied after relocation.
	if err := e.MapRegionProt(base, info.ImageSize, memory.ProtRead|memory.ProtWrite); err != nil {
		return nil, fmt.Errorf("map image at 0x%x: %w", base, err)
	}

	headers := min(uint64(oh.SizeOfHeaders), uint64(len(data)), info.ImageSize)
	if err := e.MemWrite(base, data[:headers]); err != nil {
		return nil, fmt.Errorf("write headers: %w", err)
	}

	for _, s := range f.Sections {
		sec := Section{
			Name:  s.Name,
			VAddr: base + uint64(s.VirtualAddress),
			Size:  uint64(max(s.VirtualSize, s.Size)),
			Flags: s.Characteristics,
		}
		info.Sections = append(info.Sections, sec)

		raw, err := s.Data()
		if err != nil || len(raw) == 0 {
			continue
		}
		if s.VirtualSize != 0 && uint32(len(raw)) > s.VirtualSize {
			raw = raw[:s.VirtualSize]
		}
		if err := e.MemWrite(sec.VAddr, raw); err != nil {
			return nil, fmt.Errorf("write section %s at 0x%x: %w", s.Name, sec.VAddr, err)
		}
	}

	if delta != 0 {
		if err := e.applyRelocations(oh, base, delta); err != nil {
			return nil, fmt.Errorf("apply relocations: %w", err)
		}
	}

	if exports, err := e.readExports(oh, base); err == nil {
		info.Exports = exports
	}

	// Headers are read-only, sections get their own protection.
	_, _ = e.Protect(base, uint64(oh.SizeOfHeaders), memory.ProtRead)
	for _, s := range info.Sections {
		start, length := memory.PageSpan(s.VAddr, s.Size)
		if length == 0 || start+length > info.End() {
			continue
		}
		_, _ = e.Protect(start, length, s.Prot())
	}

	sort.Slice(info.Sections, func(i, j int) bool { return info.Sections[i].VAddr < info.Sections[j].VAddr })
	return info, nil
}

func alignPage(n uint64) uint64 {
	return (n + memory.PageSize - 1) &^ (memory.PageSize - 1)
}

// applyRelocations walks the base relocation directory and adds delta to
// every DIR64 target.
func (e *Emulator) applyRelocations(oh *pe.OptionalHeader64, base, delta uint64) error {
	if oh.NumberOfRvaAndSizes <= pe.IMAGE_DIRECTORY_ENTRY_BASERELOC {
		return nil
	}
	dir := oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_BASERELOC]
	if dir.VirtualAddress == 0 || dir.Size == 0 {
		return nil
	}
	data, err := e.MemRead(base+uint64(dir.VirtualAddress), uint64(dir.Size))
	if err != nil {
		return err
	}

	// Each block: PageRVA (4), BlockSize (4), then 2-byte entries
	for off := 0; off+8 <= len(data); {
		pageRVA := binary.LittleEndian.Uint32(data[off:])
		blockSize := int(binary.LittleEndian.Uint32(data[off+4:]))
		if blockSize < 8 || off+blockSize > len(data) {
			return fmt.Errorf("bad relocation block at +0x%x", off)
		}
		for i := off + 8; i+2 <= off+blockSize; i += 2 {
			entry := binary.LittleEndian.Uint16(data[i:])
			switch entry >> 12 {
			case IMAGE_REL_BASED_ABSOLUTE:
			case IMAGE_REL_BASED_DIR64:
				target := base + uint64(pageRVA) + uint64(entry&0xFFF)
				v, err := e.MemReadU64(target)
				if err != nil {
					return err
				}
				if err := e.MemWriteU64(target, v+delta); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported relocation type %d", entry>>12)
			}
		}
		off += blockSize
	}
	return nil
}

// readExports parses the export directory of a mapped image.
func (e *Emulator) readExports(oh *pe.OptionalHeader64, base uint64) (map[string]uint64, error) {
	exports := make(map[string]uint64)
	if oh.NumberOfRvaAndSizes <= pe.IMAGE_DIRECTORY_ENTRY_EXPORT {
		return exports, nil
	}
	dir := oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_EXPORT]
	if dir.VirtualAddress == 0 {
		return exports, nil
	}

	// IMAGE_EXPORT_DIRECTORY
	hdr, err := e.MemRead(base+uint64(dir.VirtualAddress), 40)
	if err != nil {
		return nil, err
	}
	numNames := binary.LittleEndian.Uint32(hdr[24:])
	funcsRVA := binary.LittleEndian.Uint32(hdr[28:])
	namesRVA := binary.LittleEndian.Uint32(hdr[32:])
	ordsRVA := binary.LittleEndian.Uint32(hdr[36:])

	for i := uint32(0); i < numNames; i++ {
		nameRVA, err := e.MemReadU32(base + uint64(namesRVA) + 4*uint64(i))
		if err != nil {
			return exports, err
		}
		ordBuf, err := e.MemRead(base+uint64(ordsRVA)+2*uint64(i), 2)
		if err != nil {
			return exports, err
		}
		ord := binary.LittleEndian.Uint16(ordBuf)
		fnRVA, err := e.MemReadU32(base + uint64(funcsRVA) + 4*uint64(ord))
		if err != nil {
			return exports, err
		}
		name, err := e.MemReadString(base+uint64(nameRVA), 256)
		if err != nil || name == "" {
			continue
		}
		exports[name] = base + uint64(fnRVA)
	}
	return exports, nil
}

// FindExport looks up an export by name, returns 0 if not found
func (info *PEInfo) FindExport(name string) uint64 {
	if addr, ok := info.Exports[name]; ok {
		return addr
	}
	for n, addr := range info.Exports {
		if strings.EqualFold(n, name) {
			return addr
		}
	}
	return 0
}

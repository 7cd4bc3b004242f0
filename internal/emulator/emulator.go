// Package emulator provides an x86-64 target address space using Unicorn Engine.
//
// It stands in for the game process: PE images are mapped at their preferred
// base, inline hooks are patched into the emulated code and game functions
// can be called with the Win64 calling convention.
package emulator

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/eigeen/mhw-toolkit/internal/memory"
)

// Memory layout constants
const (
	CodeBase  = 0x00010000
	CodeSize  = 0x00100000 // 1MB for ad hoc code
	StackBase = 0x80000000
	StackSize = 0x00100000 // 1MB stack
	HeapBase  = 0x90000000
	HeapSize  = 0x01000000 // 16MB heap
	StubBase  = 0xF0000000 // Hook stubs and trampolines mapped here
	StubSize  = 0x00100000 // 1MB for stubs
)

// ReturnSentinel is the return address pushed by Call. Emulation stops when
// execution reaches it.
const ReturnSentinel = StubBase

// stubReserved is the head of the stub region kept for the sentinel.
const stubReserved = 0x10

// Opcodes written into stub memory.
const (
	OpRet  = 0xC3
	OpInt3 = 0xCC
)

// ErrBusy is returned by Call when the emulator is already running.
var ErrBusy = errors.New("emulator busy")

// CodeHookFunc is called for each instruction
type CodeHookFunc func(emu *Emulator, addr uint64, size uint32)

// AddressHookFunc is called when execution reaches a specific address
type AddressHookFunc func(emu *Emulator) bool // return true to stop emulation

// Emulator wraps Unicorn for x86-64 emulation
type Emulator struct {
	mu uc.Unicorn

	// Memory management
	heapPtr uint64 // Current heap allocation pointer
	stubPtr uint64 // Current stub allocation pointer
	allocMu sync.Mutex

	// Hooks
	codeHooks   []CodeHookFunc
	addrHooks   map[uint64]AddressHookFunc
	addrHooksMu sync.RWMutex

	// Stop flag
	stopped bool
	running bool
}

// New creates a new x86-64 emulator
func New() (*Emulator, error) {
	mu, err := uc.NewUnicorn(uc.ARCH_X86, uc.MODE_64)
	if err != nil {
		return nil, fmt.Errorf("create unicorn: %w", err)
	}

	emu := &Emulator{
		mu:        mu,
		heapPtr:   HeapBase,
		stubPtr:   StubBase + stubReserved,
		addrHooks: make(map[uint64]AddressHookFunc),
	}

	// Map memory regions
	if err := emu.mapMemory(); err != nil {
		mu.Close()
		return nil, err
	}

	// Set up internal hooks
	if err := emu.setupHooks(); err != nil {
		mu.Close()
		return nil, err
	}

	return emu, nil
}

// mapMemory sets up the memory layout
func (e *Emulator) mapMemory() error {
	regions := []struct {
		base uint64
		size uint64
		prot int
		name string
	}{
		{CodeBase, CodeSize, uc.PROT_ALL, "code"},
		{StackBase, StackSize, uc.PROT_READ | uc.PROT_WRITE, "stack"},
		{HeapBase, HeapSize, uc.PROT_READ | uc.PROT_WRITE, "heap"},
		{StubBase, StubSize, uc.PROT_READ | uc.PROT_EXEC, "stubs"},
	}

	for _, r := range regions {
		if err := e.mu.MemMapProt(r.base, r.size, r.prot); err != nil {
			return fmt.Errorf("map %s (0x%x): %w", r.name, r.base, err)
		}
	}

	// Initialize stack pointer
	if err := e.SetRSP(e.stackTop()); err != nil {
		return fmt.Errorf("set RSP: %w", err)
	}

	// Fill the stub region with INT3 so a stray jump faults instead of
	// sliding through zeroed memory.
	fill := make([]byte, StubSize)
	for i := range fill {
		fill[i] = OpInt3
	}
	if err := e.mu.MemWrite(StubBase, fill); err != nil {
		return fmt.Errorf("init stubs: %w", err)
	}
	return nil
}

func (e *Emulator) stackTop() uint64 {
	return StackBase + StackSize - 0x1000
}

// setupHooks initializes Unicorn hooks
func (e *Emulator) setupHooks() error {
	// Code hook for address hooks and user code hooks
	_, err := e.mu.HookAdd(uc.HOOK_CODE, func(mu uc.Unicorn, addr uint64, size uint32) {
		// Check for stop
		if e.stopped {
			e.mu.Stop()
			return
		}

		// Check address hooks first (protected by mutex)
		e.addrHooksMu.RLock()
		hook, ok := e.addrHooks[addr]
		e.addrHooksMu.RUnlock()

		if ok {
			if hook(e) {
				e.Stop()
				return
			}
		}

		// Call user code hooks
		for _, h := range e.codeHooks {
			h(e, addr, size)
		}
	}, 1, 0)

	return err
}

// Close releases resources
func (e *Emulator) Close() error {
	return e.mu.Close()
}

// LoadCode writes code at the code base
func (e *Emulator) LoadCode(code []byte) error {
	return e.mu.MemWrite(CodeBase, code)
}

// MapRegion maps additional memory with full access.
func (e *Emulator) MapRegion(addr, size uint64) error {
	return e.mu.MemMap(addr, size)
}

// MapRegionProt maps additional memory with the given protection.
func (e *Emulator) MapRegionProt(addr, size uint64, prot memory.Prot) error {
	return e.mu.MemMapProt(addr, size, int(prot))
}

// MemRead reads bytes from memory
func (e *Emulator) MemRead(addr, size uint64) ([]byte, error) {
	data, err := e.mu.MemRead(addr, size)
	if err != nil {
		return nil, fmt.Errorf("read 0x%x+0x%x: %w (%v)", addr, size, memory.ErrUnmapped, err)
	}
	return data, nil
}

// MemWrite writes bytes to memory
func (e *Emulator) MemWrite(addr uint64, data []byte) error {
	if err := e.mu.MemWrite(addr, data); err != nil {
		return fmt.Errorf("write 0x%x+0x%x: %w (%v)", addr, len(data), memory.ErrUnmapped, err)
	}
	return nil
}

// Query returns the protection of the region containing addr.
func (e *Emulator) Query(addr uint64) (memory.Prot, error) {
	return e.QueryRange(addr, 1)
}

// QueryRange returns the protection shared by every page of [addr,
// addr+size). Differently protected pages yield memory.ErrMixedProtection.
func (e *Emulator) QueryRange(addr, size uint64) (memory.Prot, error) {
	regions, err := e.mu.MemRegions()
	if err != nil {
		return memory.ProtNone, fmt.Errorf("query regions: %w", err)
	}
	spans := make([]memory.Region, len(regions))
	for i, r := range regions {
		// Unicorn region ends are inclusive.
		spans[i] = memory.Region{Start: r.Begin, End: r.End + 1, Prot: memory.Prot(r.Prot)}
	}
	prot, err := memory.SpanProt(spans, addr, size)
	if err != nil {
		return memory.ProtNone, fmt.Errorf("query: %w", err)
	}
	return prot, nil
}

// Protect changes the protection of the pages covering [addr, addr+size)
// and returns their previous protection. Pages that do not share one
// protection are left untouched and yield memory.ErrMixedProtection.
func (e *Emulator) Protect(addr, size uint64, prot memory.Prot) (memory.Prot, error) {
	start, length := memory.PageSpan(addr, size)
	old, err := e.QueryRange(start, length)
	if err != nil {
		return old, fmt.Errorf("protect: %w", err)
	}
	if err := e.mu.MemProtect(start, length, int(prot)); err != nil {
		return old, fmt.Errorf("protect 0x%x+0x%x %s: %w", start, length, prot, err)
	}
	return old, nil
}

// MemReadU64 reads a uint64 from memory (little endian)
func (e *Emulator) MemReadU64(addr uint64) (uint64, error) {
	return memory.ReadU64(e, addr)
}

// MemWriteU64 writes a uint64 to memory (little endian)
func (e *Emulator) MemWriteU64(addr, val uint64) error {
	return memory.WriteU64(e, addr, val)
}

// MemReadU32 reads a uint32 from memory (little endian)
func (e *Emulator) MemReadU32(addr uint64) (uint32, error) {
	data, err := e.MemRead(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// MemWriteU32 writes a uint32 to memory (little endian)
func (e *Emulator) MemWriteU32(addr uint64, val uint32) error {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, val)
	return e.MemWrite(addr, data)
}

// MemReadString reads a null-terminated string from memory
func (e *Emulator) MemReadString(addr uint64, maxLen int) (string, error) {
	return memory.ReadCString(e, addr, maxLen)
}

// MemWriteString writes a null-terminated string to memory
func (e *Emulator) MemWriteString(addr uint64, s string) error {
	data := append([]byte(s), 0)
	return e.MemWrite(addr, data)
}

// RegRead reads a register value
func (e *Emulator) RegRead(reg int) (uint64, error) {
	return e.mu.RegRead(reg)
}

// RegWrite writes a register value
func (e *Emulator) RegWrite(reg int, val uint64) error {
	return e.mu.RegWrite(reg, val)
}

// Reg reads a register, returning 0 on error.
func (e *Emulator) Reg(reg int) uint64 {
	val, _ := e.mu.RegRead(reg)
	return val
}

// RIP returns the instruction pointer
func (e *Emulator) RIP() uint64 { return e.Reg(RegRIP) }

// SetRIP sets the instruction pointer
func (e *Emulator) SetRIP(val uint64) error {
	return e.mu.RegWrite(RegRIP, val)
}

// RSP returns the stack pointer
func (e *Emulator) RSP() uint64 { return e.Reg(RegRSP) }

// SetRSP sets the stack pointer
func (e *Emulator) SetRSP(val uint64) error {
	return e.mu.RegWrite(RegRSP, val)
}

// RAX returns the return value register
func (e *Emulator) RAX() uint64 { return e.Reg(RegRAX) }

// SetRAX sets the return value register
func (e *Emulator) SetRAX(val uint64) error {
	return e.mu.RegWrite(RegRAX, val)
}

// Push pushes a qword onto the emulated stack.
func (e *Emulator) Push(val uint64) error {
	sp := e.RSP() - 8
	if err := e.MemWriteU64(sp, val); err != nil {
		return err
	}
	return e.SetRSP(sp)
}

// Pop pops a qword from the emulated stack.
func (e *Emulator) Pop() (uint64, error) {
	sp := e.RSP()
	val, err := e.MemReadU64(sp)
	if err != nil {
		return 0, err
	}
	return val, e.SetRSP(sp + 8)
}

// Malloc allocates memory from the heap (bump allocator).
// Panics if heap is exhausted - this indicates a fundamental emulation problem.
func (e *Emulator) Malloc(size uint64) uint64 {
	e.allocMu.Lock()
	defer e.allocMu.Unlock()

	// Align to 16 bytes
	size = (size + 15) & ^uint64(15)

	addr := e.heapPtr
	e.heapPtr += size

	if e.heapPtr >= HeapBase+HeapSize {
		panic("heap exhausted")
	}

	return addr
}

// AllocStub reserves size bytes of executable stub memory.
func (e *Emulator) AllocStub(size uint64) (uint64, error) {
	e.allocMu.Lock()
	defer e.allocMu.Unlock()

	size = (size + 15) & ^uint64(15)
	if e.stubPtr+size > StubBase+StubSize {
		return 0, fmt.Errorf("stub region exhausted (%d bytes requested)", size)
	}
	addr := e.stubPtr
	e.stubPtr += size
	return addr, nil
}

// HookCode adds a code hook called for every instruction
func (e *Emulator) HookCode(fn CodeHookFunc) {
	e.codeHooks = append(e.codeHooks, fn)
}

// HookAddress adds a hook for a specific address
func (e *Emulator) HookAddress(addr uint64, fn AddressHookFunc) {
	e.addrHooksMu.Lock()
	defer e.addrHooksMu.Unlock()
	e.addrHooks[addr] = fn
}

// RemoveAddressHook removes an address hook
func (e *Emulator) RemoveAddressHook(addr uint64) {
	e.addrHooksMu.Lock()
	defer e.addrHooksMu.Unlock()
	delete(e.addrHooks, addr)
}

// Run starts emulation from start until end is reached.
func (e *Emulator) Run(start, end uint64) error {
	e.stopped = false
	return e.mu.Start(start, end)
}

// Stop stops emulation
func (e *Emulator) Stop() {
	e.stopped = true
	e.mu.Stop()
}

// Call runs the function at fn with the Win64 calling convention and
// returns RAX. The first four arguments go in RCX, RDX, R8 and R9, the rest
// on the stack above the 32-byte shadow space.
//
// Call is not reentrant: hooks running inside an emulated call cannot
// start another one.
func (e *Emulator) Call(fn uint64, args ...uint64) (uint64, error) {
	if e.running {
		return 0, ErrBusy
	}
	e.running = true
	defer func() { e.running = false }()

	// RSP+8 is 16-byte aligned at function entry.
	base := (e.stackTop() - 0x20 - 8*uint64(max(0, len(args)-4))) &^ 0xF
	for i, a := range args {
		if i < len(argRegs) {
			if err := e.mu.RegWrite(argRegs[i], a); err != nil {
				return 0, fmt.Errorf("set arg %d: %w", i, err)
			}
			continue
		}
		if err := e.MemWriteU64(base+0x20+8*uint64(i-len(argRegs)), a); err != nil {
			return 0, fmt.Errorf("set arg %d: %w", i, err)
		}
	}
	sp := base - 8
	if err := e.MemWriteU64(sp, ReturnSentinel); err != nil {
		return 0, err
	}
	if err := e.SetRSP(sp); err != nil {
		return 0, err
	}

	if err := e.Run(fn, ReturnSentinel); err != nil {
		return 0, fmt.Errorf("call 0x%x: %w (rip=0x%x)", fn, err, e.RIP())
	}
	return e.RAX(), nil
}

// Arg reads integer argument i of the function about to execute, assuming
// RSP points at the return address (function entry).
func (e *Emulator) Arg(i int) uint64 {
	if i < len(argRegs) {
		return e.Reg(argRegs[i])
	}
	v, _ := e.MemReadU64(e.RSP() + 0x28 + 8*uint64(i-len(argRegs)))
	return v
}

// SetArg writes integer argument i at function entry.
func (e *Emulator) SetArg(i int, val uint64) error {
	if i < len(argRegs) {
		return e.mu.RegWrite(argRegs[i], val)
	}
	return e.MemWriteU64(e.RSP()+0x28+8*uint64(i-len(argRegs)), val)
}

var argRegs = []int{RegRCX, RegRDX, RegR8, RegR9}

// x86-64 register constants (re-exported for convenience)
const (
	RegRAX = uc.X86_REG_RAX
	RegRBX = uc.X86_REG_RBX
	RegRCX = uc.X86_REG_RCX
	RegRDX = uc.X86_REG_RDX
	RegRSI = uc.X86_REG_RSI
	RegRDI = uc.X86_REG_RDI
	RegRBP = uc.X86_REG_RBP
	RegRSP = uc.X86_REG_RSP
	RegR8  = uc.X86_REG_R8
	RegR9  = uc.X86_REG_R9
	RegRIP = uc.X86_REG_RIP
)

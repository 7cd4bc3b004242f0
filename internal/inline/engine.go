// Package inline installs MinHook-style inline hooks into emulated x86-64
// code.
//
// Create copies the whole instructions covering the first five bytes of the
// target into a trampoline followed by a jump back. ApplyQueued overwrites
// the target entry with a JMP rel32 to a one-byte RET stub. An address hook
// on that stub runs the detour and steers the RET either back to the caller
// (skip) or into the trampoline. When the detour wants to see the return
// value, the caller's return address is swapped for a landing pad that runs
// Leave before returning to the real caller.
package inline

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/arch/x86/x86asm"

	"github.com/eigeen/mhw-toolkit/internal/emulator"
	"github.com/eigeen/mhw-toolkit/internal/hook"
	"github.com/eigeen/mhw-toolkit/internal/log"
	"github.com/eigeen/mhw-toolkit/internal/memory"
	"github.com/eigeen/mhw-toolkit/internal/pattern"
)

// Instruction sizes
const (
	jmpRel32Size = 5
	maxStolen    = 32
	opJmpRel32   = 0xE9
)

// DefaultArgCount is the number of integer arguments captured per call.
const DefaultArgCount = 4

// frame is one in-flight call that will come back through the landing pad.
type frame struct {
	ret  uint64
	args []uint64
}

// detour is the per-target state.
type detour struct {
	target  uint64
	d       hook.Detour
	stolen  []byte
	tramp   uint64
	stub    uint64
	pad     uint64
	enabled bool
	frames  []frame
}

// Engine implements hook.Engine over an emulator.
//
// The emulator runs one call at a time, so the frame stacks are only touched
// from inside emulation.
type Engine struct {
	emu  *emulator.Emulator
	log  *log.Logger
	argc int

	mu     sync.Mutex
	hooks  map[uint64]*detour
	queued []uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithArgCount sets how many integer arguments are captured into a Call.
func WithArgCount(n int) Option {
	return func(e *Engine) { e.argc = n }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an engine patching emu.
func New(emu *emulator.Emulator, opts ...Option) *Engine {
	e := &Engine{
		emu:   emu,
		argc:  DefaultArgCount,
		hooks: make(map[uint64]*detour),
	}
	for _, o := range opts {
		o(e)
	}
	e.log = log.Or(e.log).WithComponent("inline")
	return e
}

// Create prepares the hook at target and returns the trampoline address.
func (e *Engine) Create(target uint64, d hook.Detour) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.hooks[target]; ok {
		return 0, hook.StatusAlreadyCreated
	}
	prot, err := e.emu.Query(target)
	if err != nil || prot&memory.ProtExec == 0 {
		return 0, fmt.Errorf("%w: 0x%x (%s)", hook.StatusNotExecutable, target, prot)
	}
	code, err := e.emu.MemRead(target, maxStolen)
	if err != nil {
		// Short read near the end of a mapping.
		code, err = e.emu.MemRead(target, jmpRel32Size*2)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", hook.StatusNotExecutable, err)
		}
	}

	n, err := stealLength(code, jmpRel32Size)
	if err != nil {
		return 0, fmt.Errorf("%w: 0x%x: %v", hook.StatusUnsupportedFunction, target, err)
	}

	x := &detour{target: target, d: d, stolen: append([]byte(nil), code[:n]...)}
	if err := e.allocStubs(x); err != nil {
		return 0, err
	}

	e.emu.HookAddress(x.stub, x.enter(e.argc))
	e.emu.HookAddress(x.pad, x.leave)
	e.hooks[target] = x

	e.log.Debug("created",
		log.Addr(target),
		zap.Int("stolen", n),
		log.Ptr("tramp", x.tramp),
		log.Ptr("stub", x.stub),
	)
	return x.tramp, nil
}

// allocStubs reserves and writes the trampoline, the entry stub and the
// landing pad.
func (e *Engine) allocStubs(x *detour) error {
	n := uint64(len(x.stolen))
	tramp, err := e.emu.AllocStub(n + jmpRel32Size)
	if err != nil {
		return fmt.Errorf("%w: %v", hook.StatusMemoryAlloc, err)
	}
	stub, err := e.emu.AllocStub(1)
	if err != nil {
		return fmt.Errorf("%w: %v", hook.StatusMemoryAlloc, err)
	}
	pad, err := e.emu.AllocStub(1)
	if err != nil {
		return fmt.Errorf("%w: %v", hook.StatusMemoryAlloc, err)
	}

	back, err := jmpRel32(tramp+n, x.target+n)
	if err != nil {
		return fmt.Errorf("%w: trampoline: %v", hook.StatusMemoryAlloc, err)
	}
	// The entry jump must reach the stub too; check it now so Enable
	// cannot fail on distance.
	if _, err := jmpRel32(x.target, stub); err != nil {
		return fmt.Errorf("%w: stub: %v", hook.StatusMemoryAlloc, err)
	}

	body := append(append([]byte(nil), x.stolen...), back...)
	if err := e.emu.MemWrite(tramp, body); err != nil {
		return fmt.Errorf("%w: %v", hook.StatusMemoryProtect, err)
	}
	if err := e.emu.MemWrite(stub, []byte{emulator.OpRet}); err != nil {
		return fmt.Errorf("%w: %v", hook.StatusMemoryProtect, err)
	}
	if err := e.emu.MemWrite(pad, []byte{emulator.OpRet}); err != nil {
		return fmt.Errorf("%w: %v", hook.StatusMemoryProtect, err)
	}
	x.tramp, x.stub, x.pad = tramp, stub, pad
	return nil
}

// Enable queues target for patching.
func (e *Engine) Enable(target uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	x, ok := e.hooks[target]
	switch {
	case !ok:
		return hook.StatusNotCreated
	case x.enabled:
		return hook.StatusEnabled
	}
	e.queued = append(e.queued, target)
	return nil
}

// ApplyQueued writes the entry jump of every queued hook.
func (e *Engine) ApplyQueued() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, target := range e.queued {
		x := e.hooks[target]
		if x.enabled {
			continue
		}
		jmp, err := jmpRel32(target, x.stub)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", hook.StatusMemoryAlloc, err))
			continue
		}
		patch := make([]byte, len(x.stolen))
		copy(patch, jmp)
		for i := len(jmp); i < len(patch); i++ {
			patch[i] = memory.NOP
		}
		if err := memory.Patch(e.emu, target, patch); err != nil {
			errs = append(errs, fmt.Errorf("%w: %v", hook.StatusMemoryProtect, err))
			continue
		}
		x.enabled = true
		e.log.Debug("enabled", log.Addr(target), log.Ptr("stub", x.stub))
	}
	e.queued = e.queued[:0]
	return errors.Join(errs...)
}

// Enabled reports whether the entry jump of target has been written.
func (e *Engine) Enabled(target uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	x, ok := e.hooks[target]
	return ok && x.enabled
}

// enter runs at the entry stub with the stack as the target saw it.
func (x *detour) enter(argc int) emulator.AddressHookFunc {
	return func(emu *emulator.Emulator) bool {
		c := &hook.Call{Target: x.target, Args: make([]uint64, argc), Mem: emu}
		for i := range c.Args {
			c.Args[i] = emu.Arg(i)
		}
		passed := append([]uint64(nil), c.Args...)

		if x.d.Enter(c) {
			// The stub's RET goes straight back to the caller.
			emu.SetRAX(0)
			return false
		}
		for i, v := range c.Args {
			if v != passed[i] {
				emu.SetArg(i, v)
			}
		}

		if x.d.WantsLeave() {
			sp := emu.RSP()
			ret, err := emu.MemReadU64(sp)
			if err != nil {
				return true
			}
			x.frames = append(x.frames, frame{ret: ret, args: c.Args})
			if err := emu.MemWriteU64(sp, x.pad); err != nil {
				return true
			}
		}

		// RET pops the trampoline, leaving the return address on top.
		return emu.Push(x.tramp) != nil
	}
}

// leave runs at the landing pad after the original returned.
func (x *detour) leave(emu *emulator.Emulator) bool {
	n := len(x.frames)
	if n == 0 {
		return true
	}
	f := x.frames[n-1]
	x.frames = x.frames[:n-1]

	c := &hook.Call{Target: x.target, Args: f.args, Ret: emu.RAX(), Mem: emu}
	x.d.Leave(c)
	emu.SetRAX(c.Ret)
	return emu.Push(f.ret) != nil
}

// stealLength decodes whole instructions until at least need bytes are
// covered. Instructions whose encoding depends on their address cannot be
// relocated into the trampoline and are rejected.
func stealLength(code []byte, need int) (int, error) {
	n := 0
	for n < need {
		inst, err := x86asm.Decode(code[n:], 64)
		if err != nil {
			return 0, fmt.Errorf("decode at +%d: %w", n, err)
		}
		if inst.PCRel != 0 {
			return 0, fmt.Errorf("position-dependent %s at +%d", inst.Op, n)
		}
		switch inst.Op {
		case x86asm.RET, x86asm.LRET, x86asm.JMP, x86asm.INT, x86asm.UD2:
			if n+inst.Len < need {
				return 0, fmt.Errorf("function ends at +%d", n+inst.Len)
			}
		}
		n += inst.Len
	}
	return n, nil
}

// jmpRel32 encodes JMP rel32 at src targeting dst.
func jmpRel32(src, dst uint64) ([]byte, error) {
	rel := pattern.RelativeAddress(src, dst, jmpRel32Size)
	if rel < math.MinInt32 || rel > math.MaxInt32 {
		return nil, fmt.Errorf("0x%x -> 0x%x out of rel32 range", src, dst)
	}
	b := make([]byte, jmpRel32Size)
	b[0] = opJmpRel32
	binary.LittleEndian.PutUint32(b[1:], uint32(int32(rel)))
	return b, nil
}

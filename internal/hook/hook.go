// Package hook multiplexes many callback subscriptions onto a single inline
// hook per target function.
//
// A Registry owns one target. The first subscription resolves the target
// address and installs the physical hook through an Engine; later
// subscriptions only append to the callback lists. The physical hook is
// never removed, only subscriptions are.
package hook

import (
	"errors"
	"fmt"

	"github.com/eigeen/mhw-toolkit/internal/log"
	"github.com/eigeen/mhw-toolkit/internal/memory"
)

var (
	// ErrInstall matches every *InstallError.
	ErrInstall = errors.New("hook install failed")

	// ErrSubscriptionNotFound is returned when removing a subscription that is
	// not registered, or was already removed.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrUnsupportedSlot is returned when subscribing to a slot the target
	// does not expose.
	ErrUnsupportedSlot = errors.New("unsupported hook slot")
)

// Slot is the position of a callback relative to the original call.
type Slot int

const (
	Before Slot = iota
	After
)

func (s Slot) String() string {
	switch s {
	case Before:
		return "before"
	case After:
		return "after"
	}
	return fmt.Sprintf("Slot(%d)", int(s))
}

// Call is one intercepted invocation.
//
// Before callbacks see the arguments the caller passed and may rewrite them;
// the original runs with the rewritten values. After callbacks additionally
// see the return value and may replace it.
type Call struct {
	Target uint64
	Args   []uint64
	Ret    uint64

	// Mem is the address space the call runs in, for callbacks that follow
	// pointer arguments.
	Mem memory.Memory
}

// Arg returns argument i, or 0 when the call has fewer arguments.
func (c *Call) Arg(i int) uint64 {
	if i < 0 || i >= len(c.Args) {
		return 0
	}
	return c.Args[i]
}

// SetArg replaces argument i. Out of range indexes are ignored.
func (c *Call) SetArg(i int, v uint64) {
	if i >= 0 && i < len(c.Args) {
		c.Args[i] = v
	}
}

// Callback receives one intercepted call.
type Callback func(*Call)

// Detour is the dispatcher an Engine invokes from its stub.
type Detour interface {
	// Enter runs before the original. Returning true skips the original and
	// the After callbacks.
	Enter(c *Call) (skip bool)
	// Leave runs after the original returned.
	Leave(c *Call)
	// WantsLeave reports whether Leave must be called for this target.
	WantsLeave() bool
}

// Engine performs the physical interception. Its calls mirror MinHook:
// Create prepares the hook and returns the address of the trampoline that
// runs the original body, Enable queues the patch, ApplyQueued writes it.
type Engine interface {
	Create(target uint64, d Detour) (original uint64, err error)
	Enable(target uint64) error
	ApplyQueued() error
}

// Status is an engine result code.
type Status int

const (
	StatusUnknown Status = iota - 1
	StatusOK
	StatusAlreadyInitialized
	StatusNotInitialized
	StatusAlreadyCreated
	StatusNotCreated
	StatusEnabled
	StatusDisabled
	StatusNotExecutable
	StatusUnsupportedFunction
	StatusMemoryAlloc
	StatusMemoryProtect
	StatusModuleNotFound
	StatusFunctionNotFound
)

var statusNames = map[Status]string{
	StatusUnknown:             "MH_UNKNOWN",
	StatusOK:                  "MH_OK",
	StatusAlreadyInitialized:  "MH_ERROR_ALREADY_INITIALIZED",
	StatusNotInitialized:      "MH_ERROR_NOT_INITIALIZED",
	StatusAlreadyCreated:      "MH_ERROR_ALREADY_CREATED",
	StatusNotCreated:          "MH_ERROR_NOT_CREATED",
	StatusEnabled:             "MH_ERROR_ENABLED",
	StatusDisabled:            "MH_ERROR_DISABLED",
	StatusNotExecutable:       "MH_ERROR_NOT_EXECUTABLE",
	StatusUnsupportedFunction: "MH_ERROR_UNSUPPORTED_FUNCTION",
	StatusMemoryAlloc:         "MH_ERROR_MEMORY_ALLOC",
	StatusMemoryProtect:       "MH_ERROR_MEMORY_PROTECT",
	StatusModuleNotFound:      "MH_ERROR_MODULE_NOT_FOUND",
	StatusFunctionNotFound:    "MH_ERROR_FUNCTION_NOT_FOUND",
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Error lets engines return a bare Status.
func (s Status) Error() string { return s.String() }

// InstallError reports a failed engine step.
type InstallError struct {
	Op     string
	Target uint64
	Code   Status
	Err    error
}

func (e *InstallError) Error() string {
	msg := fmt.Sprintf("hook %s at %s: %s", e.Op, log.Hex(e.Target), e.Code)
	if e.Err != nil && !errors.Is(e.Err, e.Code) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InstallError) Is(target error) bool { return target == ErrInstall }

func (e *InstallError) Unwrap() error { return e.Err }

func installError(op string, target uint64, err error) *InstallError {
	code := StatusUnknown
	var s Status
	if errors.As(err, &s) {
		code = s
	}
	return &InstallError{Op: op, Target: target, Code: code, Err: err}
}

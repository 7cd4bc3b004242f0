package hook

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eigeen/mhw-toolkit/internal/address"
	"github.com/eigeen/mhw-toolkit/internal/log"
)

// Target describes a hookable function.
type Target struct {
	Name string

	// Record is resolved through the address cache. When nil, Address is
	// used as a fixed location.
	Record  *address.Record
	Address uint64

	// Skippable targets honour SkipCall.
	Skippable bool
	// PostCall targets accept After subscriptions.
	PostCall bool
}

func (t Target) supports(s Slot) bool {
	switch s {
	case Before:
		return true
	case After:
		return t.PostCall
	}
	return false
}

type entry struct {
	id uuid.UUID
	cb Callback
}

// Registry owns the physical hook and the subscriber lists of one target.
// It implements Detour; the engine calls it from the hook stub.
type Registry struct {
	target Target
	cache  *address.Cache
	engine Engine
	log    *log.Logger

	installMu sync.Mutex
	installed atomic.Bool
	addr      uint64
	original  uint64

	mu   sync.Mutex
	subs [2][]entry

	skip atomic.Bool
}

// NewRegistry creates a registry for t. Nothing is resolved or installed
// until the first Subscribe or SkipCall.
func NewRegistry(t Target, cache *address.Cache, engine Engine, l *log.Logger) *Registry {
	if t.Name == "" && t.Record != nil {
		t.Name = t.Record.Name
	}
	return &Registry{
		target: t,
		cache:  cache,
		engine: engine,
		log:    log.Or(l).WithComponent("hook").With(zap.String("target", t.Name)),
	}
}

// Name returns the target name.
func (r *Registry) Name() string { return r.target.Name }

// Target returns the target description.
func (r *Registry) Target() Target { return r.target }

// Installed reports whether the physical hook is in place.
func (r *Registry) Installed() bool { return r.installed.Load() }

// Address resolves the target address without installing the hook.
func (r *Registry) Address() (uint64, error) {
	switch {
	case r.target.Record == nil && r.target.Address == 0:
		return 0, fmt.Errorf("hook %s: no record or address", r.target.Name)
	case r.target.Record == nil:
		return r.target.Address, nil
	case r.cache == nil:
		return 0, fmt.Errorf("hook %s: no address cache for record", r.target.Name)
	}
	return r.cache.Resolve(r.target.Record)
}

// Original returns the trampoline address, or 0 before installation.
func (r *Registry) Original() uint64 {
	if !r.installed.Load() {
		return 0
	}
	return r.original
}

// install places the physical hook once. Concurrent callers block until the
// first finishes. A failed attempt leaves the registry uninstalled so a
// later call retries.
func (r *Registry) install() error {
	if r.installed.Load() {
		return nil
	}
	r.installMu.Lock()
	defer r.installMu.Unlock()
	if r.installed.Load() {
		return nil
	}

	addr, err := r.Address()
	if err != nil {
		return fmt.Errorf("hook %s: %w", r.target.Name, err)
	}
	original, err := r.engine.Create(addr, r)
	if err != nil {
		return installError("create", addr, err)
	}
	if err := r.engine.Enable(addr); err != nil {
		return installError("enable", addr, err)
	}
	if err := r.engine.ApplyQueued(); err != nil {
		return installError("apply", addr, err)
	}

	r.addr, r.original = addr, original
	r.installed.Store(true)
	r.log.HookInstall(r.target.Name, addr, original)
	return nil
}

// Subscribe registers cb in slot, installing the hook first if needed.
func (r *Registry) Subscribe(slot Slot, cb Callback) (*Subscription, error) {
	if !r.target.supports(slot) {
		return nil, fmt.Errorf("hook %s: %w: %s", r.target.Name, ErrUnsupportedSlot, slot)
	}
	if err := r.install(); err != nil {
		return nil, err
	}

	e := entry{id: uuid.New(), cb: cb}
	r.mu.Lock()
	r.subs[slot] = append(r.subs[slot], e)
	r.mu.Unlock()

	r.log.Debug("subscribed", zap.Stringer("slot", slot), zap.Stringer("id", e.id))
	return newSubscription(r, e.id, slot), nil
}

// Unsubscribe removes s. Removing a subscription twice, or one that belongs
// to another registry, yields ErrSubscriptionNotFound.
func (r *Registry) Unsubscribe(s *Subscription) error {
	if s == nil || s.reg != r {
		return ErrSubscriptionNotFound
	}
	if !r.remove(s.slot, s.id) {
		return ErrSubscriptionNotFound
	}
	s.stop()
	return nil
}

func (r *Registry) remove(slot Slot, id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.subs[slot], func(e entry) bool { return e.id == id })
	if i < 0 {
		return false
	}
	r.subs[slot] = slices.Delete(r.subs[slot], i, i+1)
	r.log.Debug("unsubscribed", zap.Stringer("slot", slot), zap.Stringer("id", id))
	return true
}

// Count returns the number of subscriptions in slot.
func (r *Registry) Count(slot Slot) int {
	if slot != Before && slot != After {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[slot])
}

// SkipCall sets the skip flag, installing the hook first. It reports whether
// the flag changed; setting it to its current value, an install failure and
// a target that cannot be skipped all return false.
func (r *Registry) SkipCall(skip bool) bool {
	if !r.target.Skippable {
		return false
	}
	if err := r.install(); err != nil {
		r.log.Warn("skip call: install failed", zap.Error(err))
		return false
	}
	return r.skip.CompareAndSwap(!skip, skip)
}

// Skipping reports whether the skip flag is set.
func (r *Registry) Skipping() bool { return r.skip.Load() }

// snapshot copies the slot list so callbacks run without the lock held and
// may subscribe or unsubscribe on this registry.
func (r *Registry) snapshot(slot Slot) []entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.subs[slot])
}

// Enter implements Detour.
func (r *Registry) Enter(c *Call) bool {
	if r.target.Skippable && r.skip.Load() {
		return true
	}
	for _, e := range r.snapshot(Before) {
		e.cb(c)
	}
	return false
}

// Leave implements Detour.
func (r *Registry) Leave(c *Call) {
	if !r.target.PostCall {
		return
	}
	for _, e := range r.snapshot(After) {
		e.cb(c)
	}
}

// WantsLeave implements Detour.
func (r *Registry) WantsLeave() bool {
	return r.target.PostCall && r.Count(After) > 0
}

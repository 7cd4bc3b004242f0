package hook

import (
	"runtime"

	"github.com/google/uuid"
)

// Subscription is the handle of one registered callback.
//
// Close it (typically with defer) to stop receiving calls. A handle that
// becomes unreachable without being closed is removed by a runtime cleanup,
// but when that happens is up to the garbage collector.
type Subscription struct {
	reg     *Registry
	id      uuid.UUID
	slot    Slot
	cleanup runtime.Cleanup
}

type subKey struct {
	reg  *Registry
	slot Slot
	id   uuid.UUID
}

func newSubscription(r *Registry, id uuid.UUID, slot Slot) *Subscription {
	s := &Subscription{reg: r, id: id, slot: slot}
	s.cleanup = runtime.AddCleanup(s, func(k subKey) {
		k.reg.remove(k.slot, k.id)
	}, subKey{reg: r, slot: slot, id: id})
	return s
}

// ID returns the random id of the subscription.
func (s *Subscription) ID() uuid.UUID { return s.id }

// Slot returns the slot the callback is registered in.
func (s *Subscription) Slot() Slot { return s.slot }

// Unsubscribe removes the callback. A second call returns
// ErrSubscriptionNotFound.
func (s *Subscription) Unsubscribe() error {
	return s.reg.Unsubscribe(s)
}

// Close removes the callback and ignores ErrSubscriptionNotFound, so it can
// be deferred after an explicit Unsubscribe.
func (s *Subscription) Close() error {
	_ = s.Unsubscribe()
	return nil
}

func (s *Subscription) stop() { s.cleanup.Stop() }

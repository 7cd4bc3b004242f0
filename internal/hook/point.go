package hook

// Point is a Registry whose callbacks receive a typed view of the call
// instead of raw registers.
type Point[A any] struct {
	reg  *Registry
	view func(*Call) A
}

// NewPoint wraps r. view builds the argument passed to every callback.
func NewPoint[A any](r *Registry, view func(*Call) A) *Point[A] {
	return &Point[A]{reg: r, view: view}
}

// Subscribe registers fn in slot.
func (p *Point[A]) Subscribe(slot Slot, fn func(A)) (*Subscription, error) {
	return p.reg.Subscribe(slot, func(c *Call) { fn(p.view(c)) })
}

// Registry returns the underlying registry.
func (p *Point[A]) Registry() *Registry { return p.reg }

// SkipCall forwards to the registry.
func (p *Point[A]) SkipCall(skip bool) bool { return p.reg.SkipCall(skip) }

// Installed forwards to the registry.
func (p *Point[A]) Installed() bool { return p.reg.Installed() }

package hook

import (
	"errors"
	"runtime"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/eigeen/mhw-toolkit/internal/address"
	"github.com/eigeen/mhw-toolkit/internal/memory"
	"github.com/eigeen/mhw-toolkit/internal/scan"
)

// fakeEngine records engine calls and runs intercepted calls in Go.
type fakeEngine struct {
	mu      sync.Mutex
	creates int
	enables int
	applies int
	detours map[uint64]Detour

	createErr error
	enableErr error

	// original is the body invoked when the detour does not skip.
	original func(c *Call)
	calls    int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		detours:  make(map[uint64]Detour),
		original: func(c *Call) { c.Ret = c.Arg(0) + c.Arg(1) },
	}
}

func (f *fakeEngine) Create(target uint64, d Detour) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return 0, f.createErr
	}
	if _, ok := f.detours[target]; ok {
		return 0, StatusAlreadyCreated
	}
	f.detours[target] = d
	return target + 0x1000, nil
}

func (f *fakeEngine) Enable(target uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enables++
	return f.enableErr
}

func (f *fakeEngine) ApplyQueued() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applies++
	return nil
}

// invoke simulates the game calling target.
func (f *fakeEngine) invoke(target uint64, args ...uint64) *Call {
	f.mu.Lock()
	d := f.detours[target]
	f.mu.Unlock()

	c := &Call{Target: target, Args: args}
	if d.Enter(c) {
		return c
	}
	f.calls++
	f.original(c)
	if d.WantsLeave() {
		d.Leave(c)
	}
	return c
}

const fixedAddr = 0x141F50480

func newTestRegistry(t Target) (*Registry, *fakeEngine) {
	eng := newFakeEngine()
	if t.Record == nil && t.Address == 0 {
		t.Address = fixedAddr
	}
	return NewRegistry(t, nil, eng, nil), eng
}

func TestSubscribeInstallsOnce(t *testing.T) {
	r, eng := newTestRegistry(Target{Name: "hit"})
	if r.Installed() {
		t.Fatal("installed before first subscription")
	}

	var wg sync.WaitGroup
	subs := make([]*Subscription, 16)
	for i := range subs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.Subscribe(Before, func(*Call) {})
			if err != nil {
				t.Errorf("Subscribe: %v", err)
				return
			}
			subs[i] = s
		}()
	}
	wg.Wait()

	if eng.creates != 1 || eng.enables != 1 || eng.applies != 1 {
		t.Errorf("engine calls create=%d enable=%d apply=%d", eng.creates, eng.enables, eng.applies)
	}
	if !r.Installed() || r.Original() != fixedAddr+0x1000 {
		t.Errorf("Installed=%v Original=0x%x", r.Installed(), r.Original())
	}
	if r.Count(Before) != 16 {
		t.Errorf("Count = %d", r.Count(Before))
	}
	for _, s := range subs {
		s.Close()
	}
	if r.Count(Before) != 0 {
		t.Errorf("Count after close = %d", r.Count(Before))
	}
	// the physical hook stays
	if !r.Installed() {
		t.Error("hook removed with last subscription")
	}
}

func TestInstallFailureIsRetried(t *testing.T) {
	r, eng := newTestRegistry(Target{Name: "action"})
	eng.createErr = StatusNotExecutable

	_, err := r.Subscribe(Before, func(*Call) {})
	if !errors.Is(err, ErrInstall) {
		t.Fatalf("err = %v, want ErrInstall", err)
	}
	var ie *InstallError
	if !errors.As(err, &ie) || ie.Code != StatusNotExecutable || ie.Op != "create" {
		t.Errorf("InstallError = %+v", ie)
	}
	if r.Installed() {
		t.Fatal("installed after failure")
	}

	eng.createErr = nil
	if _, err := r.Subscribe(Before, func(*Call) {}); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if eng.creates != 2 || !r.Installed() {
		t.Errorf("creates=%d installed=%v", eng.creates, r.Installed())
	}
}

func TestEnableFailure(t *testing.T) {
	r, eng := newTestRegistry(Target{Name: "x"})
	eng.enableErr = errors.New("boom")

	_, err := r.Subscribe(Before, func(*Call) {})
	var ie *InstallError
	if !errors.As(err, &ie) || ie.Code != StatusUnknown || ie.Op != "enable" {
		t.Errorf("err = %v", err)
	}
}

func TestUnsupportedSlot(t *testing.T) {
	r, eng := newTestRegistry(Target{Name: "chat"})
	if _, err := r.Subscribe(After, func(*Call) {}); !errors.Is(err, ErrUnsupportedSlot) {
		t.Errorf("err = %v", err)
	}
	if eng.creates != 0 {
		t.Error("rejected subscription installed the hook")
	}
}

func TestDispatchOrderAndMutation(t *testing.T) {
	r, eng := newTestRegistry(Target{Name: "ctor", PostCall: true})
	var order []string

	r.Subscribe(Before, func(c *Call) {
		order = append(order, "pre1")
		c.SetArg(0, 10)
	})
	r.Subscribe(Before, func(c *Call) { order = append(order, "pre2") })
	r.Subscribe(After, func(c *Call) {
		order = append(order, "post")
		if c.Ret != 12 {
			t.Errorf("post sees Ret = %d, want 12", c.Ret)
		}
		c.Ret = 99
	})

	c := eng.invoke(fixedAddr, 1, 2)
	if !slices.Equal(order, []string{"pre1", "pre2", "post"}) {
		t.Errorf("order = %v", order)
	}
	if c.Ret != 99 {
		t.Errorf("Ret = %d", c.Ret)
	}
}

func TestClosedSubscriptionNotInvoked(t *testing.T) {
	r, eng := newTestRegistry(Target{Name: "hit"})
	var a, b int
	sa, _ := r.Subscribe(Before, func(*Call) { a++ })
	sb, _ := r.Subscribe(Before, func(*Call) { b++ })
	defer sb.Close()

	eng.invoke(fixedAddr)
	if err := sa.Unsubscribe(); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	eng.invoke(fixedAddr)

	if a != 1 || b != 2 {
		t.Errorf("a=%d b=%d", a, b)
	}
	if err := sa.Unsubscribe(); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("second unsubscribe err = %v", err)
	}
	if err := sa.Close(); err != nil {
		t.Errorf("Close after unsubscribe = %v", err)
	}
}

func TestUnsubscribeForeign(t *testing.T) {
	r1, _ := newTestRegistry(Target{Name: "a"})
	r2, _ := newTestRegistry(Target{Name: "b"})
	s, _ := r1.Subscribe(Before, func(*Call) {})
	defer s.Close()

	if err := r2.Unsubscribe(s); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("foreign err = %v", err)
	}
	if err := r2.Unsubscribe(nil); !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("nil err = %v", err)
	}
	if r1.Count(Before) != 1 {
		t.Error("foreign unsubscribe removed entry")
	}
}

func TestSubscriptionIDsUnique(t *testing.T) {
	r, _ := newTestRegistry(Target{Name: "a"})
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s, _ := r.Subscribe(Before, func(*Call) {})
		if seen[s.ID().String()] {
			t.Fatal("duplicate subscription id")
		}
		seen[s.ID().String()] = true
		defer s.Close()
	}
}

func TestSkipCall(t *testing.T) {
	r, eng := newTestRegistry(Target{Name: "hit", Skippable: true})
	called := 0
	s, _ := r.Subscribe(Before, func(*Call) { called++ })
	defer s.Close()

	if !r.SkipCall(true) {
		t.Fatal("SkipCall(true) = false")
	}
	if r.SkipCall(true) {
		t.Error("repeated SkipCall(true) reported a transition")
	}
	eng.invoke(fixedAddr, 1, 2)
	if called != 0 || eng.calls != 0 {
		t.Errorf("skipped call ran callbacks=%d original=%d", called, eng.calls)
	}

	if !r.SkipCall(false) {
		t.Fatal("SkipCall(false) = false")
	}
	eng.invoke(fixedAddr, 1, 2)
	if called != 1 || eng.calls != 1 {
		t.Errorf("after unskip callbacks=%d original=%d", called, eng.calls)
	}
}

func TestSkipCallInstalls(t *testing.T) {
	r, eng := newTestRegistry(Target{Name: "action", Skippable: true})
	if !r.SkipCall(true) || !r.Installed() || eng.creates != 1 {
		t.Error("SkipCall did not install the hook")
	}

	r2, eng2 := newTestRegistry(Target{Name: "fail", Skippable: true})
	eng2.createErr = StatusMemoryAlloc
	if r2.SkipCall(true) {
		t.Error("SkipCall reported success after install failure")
	}
	if r2.Skipping() {
		t.Error("flag set after install failure")
	}
}

func TestSkipCallUnsupported(t *testing.T) {
	r, eng := newTestRegistry(Target{Name: "chat"})
	if r.SkipCall(true) {
		t.Error("non-skippable target accepted SkipCall")
	}
	if eng.creates != 0 {
		t.Error("non-skippable SkipCall installed")
	}
}

func TestCallbackMayUnsubscribeItself(t *testing.T) {
	r, eng := newTestRegistry(Target{Name: "once"})
	var s *Subscription
	n := 0
	s, _ = r.Subscribe(Before, func(*Call) {
		n++
		s.Unsubscribe()
	})

	done := make(chan struct{})
	go func() {
		eng.invoke(fixedAddr)
		eng.invoke(fixedAddr)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch deadlocked")
	}
	if n != 1 {
		t.Errorf("callback ran %d times", n)
	}
}

func TestCallbackPanicPropagates(t *testing.T) {
	r, eng := newTestRegistry(Target{Name: "p"})
	s, _ := r.Subscribe(Before, func(*Call) { panic("callback") })
	defer s.Close()

	defer func() {
		if recover() == nil {
			t.Error("panic was swallowed")
		}
	}()
	eng.invoke(fixedAddr)
}

//go:noinline
func dropSubscription(r *Registry) {
	r.Subscribe(Before, func(*Call) {})
}

func TestUnreachableSubscriptionCleanedUp(t *testing.T) {
	r, _ := newTestRegistry(Target{Name: "gc"})
	dropSubscription(r)
	if r.Count(Before) != 1 {
		t.Fatalf("Count = %d", r.Count(Before))
	}
	deadline := time.Now().Add(5 * time.Second)
	for r.Count(Before) != 0 && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if r.Count(Before) != 0 {
		t.Error("cleanup did not remove unreachable subscription")
	}
}

func TestRecordTarget(t *testing.T) {
	data := make([]byte, 0x100)
	copy(data[0x40:], []byte{0x48, 0x83, 0xEC, 0x28, 0x48, 0x8B, 0x89})
	mem := memory.NewBuffer(0x1000, data)
	res, err := scan.New(mem, scan.WithRange(scan.Range{Start: 0x1000, End: 0x1100, Window: 0x80, Overlap: 0x10}))
	if err != nil {
		t.Fatalf("scan.New: %v", err)
	}
	cache := address.NewCache(res, nil)
	eng := newFakeEngine()

	rec := address.Define("player.Hit", "48 83 EC 28 48 8B 89", 0)
	r := NewRegistry(Target{Record: rec}, cache, eng, nil)
	if r.Name() != "player.Hit" {
		t.Errorf("Name = %q", r.Name())
	}
	s, err := r.Subscribe(Before, func(*Call) {})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer s.Close()
	if _, ok := eng.detours[0x1040]; !ok {
		t.Errorf("hook created at wrong address: %v", eng.detours)
	}

	missing := NewRegistry(Target{Record: address.Define("gone", "DE AD", 0)}, cache, eng, nil)
	if _, err := missing.Subscribe(Before, func(*Call) {}); !errors.Is(err, scan.ErrNotFound) {
		t.Errorf("missing record err = %v", err)
	}
	if missing.Installed() {
		t.Error("installed without address")
	}
}

func TestPoint(t *testing.T) {
	r, eng := newTestRegistry(Target{Name: "typed", PostCall: true})
	type args struct{ a, b uint64 }
	p := NewPoint(r, func(c *Call) args { return args{c.Arg(0), c.Arg(1)} })

	var got args
	s, err := p.Subscribe(Before, func(a args) { got = a })
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer s.Close()
	eng.invoke(fixedAddr, 3, 4)
	if got != (args{3, 4}) {
		t.Errorf("got %+v", got)
	}
	if !p.Installed() || p.Registry() != r {
		t.Error("Point forwarding broken")
	}
}

func TestStatusString(t *testing.T) {
	if StatusUnsupportedFunction.String() != "MH_ERROR_UNSUPPORTED_FUNCTION" {
		t.Errorf("String = %s", StatusUnsupportedFunction)
	}
	if Status(100).String() != "Status(100)" {
		t.Errorf("unknown = %s", Status(100))
	}
	err := &InstallError{Op: "create", Target: 0x10, Code: StatusMemoryAlloc, Err: StatusMemoryAlloc}
	if err.Error() != "hook create at 0x10: MH_ERROR_MEMORY_ALLOC" {
		t.Errorf("Error = %q", err.Error())
	}
}

func TestSubscribeWithoutAddress(t *testing.T) {
	eng := newFakeEngine()
	r := NewRegistry(Target{Name: "action.SetAction"}, nil, eng, nil)
	if _, err := r.Subscribe(Before, func(*Call) {}); err == nil {
		t.Fatal("expected error for target without record or address")
	}
	if eng.creates != 0 || r.Installed() {
		t.Errorf("creates=%d installed=%v", eng.creates, r.Installed())
	}
}

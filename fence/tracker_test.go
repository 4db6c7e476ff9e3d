package fence

import (
	"errors"
	"testing"
	"time"

	"github.com/glium/glium/resource"
)

// handleFor fabricates distinct handles for tracker tests. The tracker
// treats handles as opaque keys, so zero-value distinctness is all
// that matters here.
func handlesFor(t *testing.T, r *resource.Registry, n int) []resource.Handle {
	t.Helper()
	out := make([]resource.Handle, n)
	for i := range out {
		h, _, err := r.Create(resource.Descriptor{Kind: resource.KindBuffer, Size: 1024})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		out[i] = h
	}
	return out
}

func newTestTracker(t *testing.T, n int) (*Tracker, []resource.Handle) {
	t.Helper()
	r := resource.NewRegistry(resource.Limits{})
	return NewTracker(), handlesFor(t, r, n)
}

func TestFenceLifecycle(t *testing.T) {
	tr, hs := newTestTracker(t, 1)
	h := hs[0]

	id := tr.Create(Touch{Resource: h, Range: Range{0, 1024}, Mode: ModeWrite})
	if got := tr.State(id); got != StatePending {
		t.Fatalf("State() = %v, want pending", got)
	}
	if tr.IsAvailable(Touch{Resource: h, Range: Range{0, 64}, Mode: ModeRead}) {
		t.Error("IsAvailable() = true over a pending write")
	}

	tr.Signal(id)
	if got := tr.State(id); got != StateSatisfied {
		t.Fatalf("State() after Signal = %v, want satisfied", got)
	}
	if !tr.IsAvailable(Touch{Resource: h, Range: Range{0, 64}, Mode: ModeRead}) {
		t.Error("IsAvailable() = false after retirement")
	}
	if err := tr.Err(id); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestSignalIsMonotonic(t *testing.T) {
	tr, hs := newTestTracker(t, 1)
	id := tr.Create(Touch{Resource: hs[0], Range: WholeResource, Mode: ModeWrite})

	tr.Signal(id)
	// A second signal must not panic or move the state backward.
	tr.Signal(id)
	if got := tr.State(id); got != StateSatisfied {
		t.Fatalf("State() = %v, want satisfied", got)
	}
}

func TestRetiredFencesAreDiscarded(t *testing.T) {
	tr, hs := newTestTracker(t, 1)
	h := hs[0]

	var last ID
	for i := 0; i < 1000; i++ {
		last = tr.Create(Touch{Resource: h, Range: WholeResource, Mode: ModeWrite})
		tr.Signal(last)
	}

	// A loop of create-then-retire must not accumulate bookkeeping.
	if n := len(tr.fences); n != 0 {
		t.Fatalf("len(fences) after retirement = %d, want 0", n)
	}
	if n := len(tr.retired); n != 0 {
		t.Fatalf("len(retired) after in-order retirement = %d, want 0", n)
	}
	if n := len(tr.spans); n != 0 {
		t.Fatalf("len(spans) after retirement = %d, want 0", n)
	}

	// Discarded fences still answer queries as satisfied.
	if got := tr.State(last); got != StateSatisfied {
		t.Errorf("State(last) = %v, want satisfied", got)
	}
	if err := tr.Err(last); err != nil {
		t.Errorf("Err(last) = %v, want nil", err)
	}
	if err := tr.Wait(last, time.Second); err != nil {
		t.Errorf("Wait(last) = %v, want nil", err)
	}
}

func TestOutOfOrderSignalCompacts(t *testing.T) {
	tr, hs := newTestTracker(t, 1)
	h := hs[0]

	a := tr.Create(Touch{Resource: h, Range: Range{0, 1}, Mode: ModeWrite})
	b := tr.Create(Touch{Resource: h, Range: Range{1, 2}, Mode: ModeWrite})
	c := tr.Create(Touch{Resource: h, Range: Range{2, 3}, Mode: ModeWrite})

	tr.Signal(b)
	if got := tr.State(a); got != StatePending {
		t.Fatalf("State(a) = %v, want pending with only b signalled", got)
	}
	if !tr.Satisfied(b) {
		t.Fatal("Satisfied(b) = false after signal")
	}

	tr.Signal(a)
	tr.Signal(c)
	if n := len(tr.fences) + len(tr.retired); n != 0 {
		t.Errorf("tracker retained %d entries after full retirement, want 0", n)
	}
	for _, id := range []ID{a, b, c} {
		if !tr.Satisfied(id) {
			t.Errorf("Satisfied(%d) = false after full retirement", id)
		}
	}
}

func TestWaitUnknownFence(t *testing.T) {
	tr, _ := newTestTracker(t, 1)

	if err := tr.Wait(42, time.Second); !errors.Is(err, ErrUnknownFence) {
		t.Fatalf("Wait(unissued) = %v, want ErrUnknownFence", err)
	}
	if got := tr.State(42); got != StateUnused {
		t.Errorf("State(unissued) = %v, want unused", got)
	}
	if tr.Satisfied(42) {
		t.Error("Satisfied(unissued) = true")
	}
}

func TestSubRangeIndependence(t *testing.T) {
	tr, hs := newTestTracker(t, 1)
	h := hs[0]

	// Two writes of disjoint halves get independent fences.
	lo := tr.Create(Touch{Resource: h, Range: Range{0, 512}, Mode: ModeWrite})
	hi := tr.Create(Touch{Resource: h, Range: Range{512, 1024}, Mode: ModeWrite})
	if lo == hi {
		t.Fatal("two writes share one fence")
	}

	tr.Signal(lo)

	// Reading the low half must not wait on the high half's fence.
	if !tr.IsAvailable(Touch{Resource: h, Range: Range{0, 512}, Mode: ModeRead}) {
		t.Error("low half unavailable after its own fence retired")
	}
	if tr.IsAvailable(Touch{Resource: h, Range: Range{512, 1024}, Mode: ModeRead}) {
		t.Error("high half available while its write is pending")
	}
	if err := tr.WaitRange(Touch{Resource: h, Range: Range{0, 512}, Mode: ModeRead}, time.Second); err != nil {
		t.Errorf("WaitRange(low half) error = %v", err)
	}
}

func TestReadsDoNotConflict(t *testing.T) {
	tr, hs := newTestTracker(t, 1)
	h := hs[0]

	tr.Create(Touch{Resource: h, Range: WholeResource, Mode: ModeRead})
	if !tr.IsAvailable(Touch{Resource: h, Range: Range{0, 64}, Mode: ModeRead}) {
		t.Error("read unavailable over a pending read")
	}
	if tr.IsAvailable(Touch{Resource: h, Range: Range{0, 64}, Mode: ModeWrite}) {
		t.Error("write available over a pending read")
	}
}

func TestWaitRangeTimeout(t *testing.T) {
	tr, hs := newTestTracker(t, 1)
	h := hs[0]
	tr.Create(Touch{Resource: h, Range: WholeResource, Mode: ModeWrite})

	err := tr.WaitRange(Touch{Resource: h, Range: Range{0, 64}, Mode: ModeWrite}, 10*time.Millisecond)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("WaitRange() error = %v, want *TimeoutError", err)
	}
	if te.Budget != 10*time.Millisecond {
		t.Errorf("TimeoutError.Budget = %v, want 10ms", te.Budget)
	}
}

func TestWaitRangeWakesOnSignal(t *testing.T) {
	tr, hs := newTestTracker(t, 1)
	h := hs[0]
	id := tr.Create(Touch{Resource: h, Range: WholeResource, Mode: ModeWrite})

	go func() {
		time.Sleep(10 * time.Millisecond)
		tr.Signal(id)
	}()
	if err := tr.WaitRange(Touch{Resource: h, Range: Range{0, 64}, Mode: ModeWrite}, time.Second); err != nil {
		t.Fatalf("WaitRange() error = %v", err)
	}
}

func TestInvalidateSkipsWait(t *testing.T) {
	tr, hs := newTestTracker(t, 1)
	h := hs[0]
	id := tr.Create(Touch{Resource: h, Range: WholeResource, Mode: ModeWrite})

	tr.Invalidate(Touch{Resource: h, Range: Range{0, 512}})
	if !tr.IsAvailable(Touch{Resource: h, Range: Range{0, 512}, Mode: ModeWrite}) {
		t.Error("invalidated range still unavailable")
	}
	// The fence itself stays pending; only the association was dropped.
	if got := tr.State(id); got != StatePending {
		t.Errorf("State() after Invalidate = %v, want pending", got)
	}
}

func TestIdleAndPending(t *testing.T) {
	tr, hs := newTestTracker(t, 2)
	busy, quiet := hs[0], hs[1]

	id := tr.Create(Touch{Resource: busy, Range: WholeResource, Mode: ModeRead})
	if tr.Idle(busy) {
		t.Error("Idle() = true with pending fence")
	}
	if !tr.Idle(quiet) {
		t.Error("Idle() = false with no fences")
	}
	if got := tr.Pending(busy); len(got) != 1 || got[0] != id {
		t.Errorf("Pending() = %v, want [%d]", got, id)
	}

	tr.Signal(id)
	if !tr.Idle(busy) {
		t.Error("Idle() = false after retirement")
	}
}

func TestMarkLostForceSatisfies(t *testing.T) {
	tr, hs := newTestTracker(t, 1)
	h := hs[0]
	id := tr.Create(Touch{Resource: h, Range: WholeResource, Mode: ModeWrite})

	tr.MarkLost()

	if got := tr.State(id); got != StateSatisfied {
		t.Fatalf("State() after loss = %v, want satisfied", got)
	}
	if err := tr.Err(id); !errors.Is(err, ErrContextLost) {
		t.Errorf("Err() = %v, want ErrContextLost", err)
	}
	if err := tr.WaitRange(Touch{Resource: h, Range: WholeResource, Mode: ModeWrite}, time.Second); !errors.Is(err, ErrContextLost) {
		t.Errorf("WaitRange() after loss = %v, want ErrContextLost", err)
	}

	// Fences created after loss are stillborn.
	late := tr.Create(Touch{Resource: h, Range: WholeResource, Mode: ModeWrite})
	if got := tr.State(late); got != StateSatisfied {
		t.Errorf("State(late) = %v, want satisfied", got)
	}
	if err := tr.Wait(late, time.Second); !errors.Is(err, ErrContextLost) {
		t.Errorf("Wait(late) = %v, want ErrContextLost", err)
	}
}

func TestRangeOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Range
		want bool
	}{
		{"disjoint", Range{0, 512}, Range{512, 1024}, false},
		{"adjacent reversed", Range{512, 1024}, Range{0, 512}, false},
		{"one byte", Range{0, 513}, Range{512, 1024}, true},
		{"contained", Range{0, 1024}, Range{100, 200}, true},
		{"identical", Range{4, 8}, Range{4, 8}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

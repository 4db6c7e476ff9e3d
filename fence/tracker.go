// Package fence tracks which byte ranges of which resources are still
// referenced by in-flight GPU work.
//
// Every command that touches a resource beyond its immediate CPU use
// registers a fence at enqueue time; the device consumer signals the
// fence when the corresponding point of the command stream retires.
// Ranges are tracked independently, so writing one sub-range of a
// persistently mapped buffer never waits on unrelated in-flight reads
// of another sub-range.
package fence

import (
	"sync"
	"time"

	"github.com/glium/glium/resource"
)

type entry struct {
	id      ID
	touches []Touch
	done    chan struct{}
}

type span struct {
	r    Range
	id   ID
	mode Mode
}

// Tracker is the synchronization bookkeeper. Safe for concurrent use.
//
// Only pending fences occupy storage. A satisfied fence is discarded
// immediately; the retirement horizon answers later queries about it,
// so a render loop issuing one fence per operation runs in constant
// tracker memory.
type Tracker struct {
	mu     sync.Mutex
	next   ID
	fences map[ID]*entry

	// horizon is the highest ID below which every issued fence has
	// retired normally. retired holds IDs signalled ahead of it; the
	// set drains into the horizon as gaps close and stays empty while
	// retirement arrives in submission order.
	horizon ID
	retired map[ID]struct{}

	spans   map[resource.Handle][]span
	lost    bool
	lostErr error
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		next:    1,
		fences:  make(map[ID]*entry),
		retired: make(map[ID]struct{}),
		spans:   make(map[resource.Handle][]span),
	}
}

// Create registers a fence covering the given touches and returns its
// ID in the Pending state. Call this atomically with enqueueing the
// command the fence corresponds to.
func (t *Tracker) Create(touches ...Touch) ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.next
	t.next++

	if t.lost {
		// New work on a lost context is stillborn: the ID reads as
		// satisfied carrying the loss error, and nothing is stored.
		return id
	}

	e := &entry{
		id:      id,
		touches: touches,
		done:    make(chan struct{}),
	}
	for _, touch := range touches {
		h := touch.Resource
		t.spans[h] = append(t.spans[h], span{r: touch.Range, id: id, mode: touch.Mode})
	}
	t.fences[id] = e
	return id
}

// Signal marks id as satisfied and discards its bookkeeping. Called by
// the device consumer when the corresponding stream point retires.
// Signalling an already satisfied fence is a no-op; the state machine
// never moves backward.
func (t *Tracker) Signal(id ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.fences[id]
	if !ok {
		return
	}
	t.dropSpans(e)
	close(e.done)
	delete(t.fences, id)
	t.retired[id] = struct{}{}
	for {
		if _, ok := t.retired[t.horizon+1]; !ok {
			break
		}
		t.horizon++
		delete(t.retired, t.horizon)
	}
}

// dropSpans removes e's range bookkeeping. Caller holds t.mu.
func (t *Tracker) dropSpans(e *entry) {
	for _, touch := range e.touches {
		h := touch.Resource
		kept := t.spans[h][:0]
		for _, s := range t.spans[h] {
			if s.id != e.id {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(t.spans, h)
		} else {
			t.spans[h] = kept
		}
	}
}

// State returns the lifecycle state of id. Satisfied fences are
// discarded, so every issued ID without a pending entry reports
// StateSatisfied.
func (t *Tracker) State(id ID) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id == 0 || id >= t.next {
		return StateUnused
	}
	if _, ok := t.fences[id]; ok {
		return StatePending
	}
	return StateSatisfied
}

// Err returns the error a fence was satisfied with, if any. A fence
// satisfied by normal retirement carries nil; one force-satisfied by
// context loss carries ErrContextLost.
func (t *Tracker) Err(id ID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errLocked(id)
}

// errLocked derives the satisfaction error of an issued ID. Normal
// retirement is covered by the horizon and the retired set; any other
// issued ID without a pending entry was satisfied by context loss.
// Caller holds t.mu.
func (t *Tracker) errLocked(id ID) error {
	if id == 0 || id >= t.next {
		return nil
	}
	if _, ok := t.fences[id]; ok {
		return nil
	}
	if id <= t.horizon {
		return nil
	}
	if _, ok := t.retired[id]; ok {
		return nil
	}
	if t.lost {
		return t.lostErr
	}
	return nil
}

// Satisfied reports whether id has retired.
func (t *Tracker) Satisfied(id ID) bool { return t.State(id) == StateSatisfied }

// conflicting returns pending entries that block access to (h, r) in
// the given mode. Reads conflict only with pending writes; writes
// conflict with everything pending. Caller holds t.mu.
func (t *Tracker) conflicting(h resource.Handle, r Range, mode Mode) []*entry {
	var out []*entry
	for _, s := range t.spans[h] {
		if !s.r.Overlaps(r) {
			continue
		}
		if mode == ModeRead && s.mode == ModeRead {
			continue
		}
		if e := t.fences[s.id]; e != nil {
			out = append(out, e)
		}
	}
	return out
}

// IsAvailable is the non-blocking poll: it reports whether (h, r) can
// be accessed in the given mode without waiting.
func (t *Tracker) IsAvailable(touch Touch) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lost {
		return true
	}
	return len(t.conflicting(touch.Resource, touch.Range, touch.Mode)) == 0
}

// WaitRange blocks until (h, r) is accessible in the given mode or the
// timeout budget runs out. A zero timeout waits indefinitely.
//
// The wait parks on the conflicting fences' completion channels; there
// is no polling loop against the device. On a lost context the wait
// returns ErrContextLost immediately.
func (t *Tracker) WaitRange(touch Touch, timeout time.Duration) error {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		t.mu.Lock()
		if t.lost {
			t.mu.Unlock()
			return ErrContextLost
		}
		pending := t.conflicting(touch.Resource, touch.Range, touch.Mode)
		if len(pending) == 0 {
			t.mu.Unlock()
			return nil
		}
		done := pending[0].done
		t.mu.Unlock()

		select {
		case <-done:
			// Re-examine: other conflicts may remain or have appeared.
		case <-deadline:
			return &TimeoutError{Budget: timeout}
		}
	}
}

// Wait blocks until the fence id retires or the budget runs out.
// A zero timeout waits indefinitely. Waiting on an ID this tracker
// never issued fails with ErrUnknownFence.
func (t *Tracker) Wait(id ID, timeout time.Duration) error {
	t.mu.Lock()
	if id == 0 || id >= t.next {
		t.mu.Unlock()
		return ErrUnknownFence
	}
	e, ok := t.fences[id]
	if !ok {
		err := t.errLocked(id)
		t.mu.Unlock()
		return err
	}
	done := e.done
	t.mu.Unlock()

	if timeout <= 0 {
		<-done
		return t.Err(id)
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return t.Err(id)
	case <-timer.C:
		return &TimeoutError{Budget: timeout}
	}
}

// Idle reports whether no pending fence references any range of h.
// The registry consults this before actually releasing storage.
func (t *Tracker) Idle(h resource.Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.spans[h] {
		if _, ok := t.fences[s.id]; ok {
			return false
		}
	}
	return true
}

// Pending returns the IDs of all pending fences referencing h. Used to
// pin an orphaned backing until in-flight work on it retires.
func (t *Tracker) Pending(h resource.Handle) []ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen := make(map[ID]bool)
	var out []ID
	for _, s := range t.spans[h] {
		if seen[s.id] {
			continue
		}
		if _, ok := t.fences[s.id]; ok {
			seen[s.id] = true
			out = append(out, s.id)
		}
	}
	return out
}

// Invalidate drops range bookkeeping overlapping (h, r) without
// waiting. The fences themselves stay pending; only the association
// with the range is removed, so a subsequent write will not stall.
// This is the explicit "invalidate instead of synchronize" escape
// hatch for persistently mapped memory.
func (t *Tracker) Invalidate(touch Touch) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := touch.Resource
	kept := t.spans[h][:0]
	for _, s := range t.spans[h] {
		if !s.r.Overlaps(touch.Range) {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(t.spans, h)
	} else {
		t.spans[h] = kept
	}
}

// MarkLost force-satisfies every pending fence with ErrContextLost.
// Subsequent Create calls return already-satisfied fences and waits
// fail fast. This is the only asynchronous device failure surfaced by
// the tracker.
func (t *Tracker) MarkLost() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lost {
		return
	}
	t.lost = true
	t.lostErr = ErrContextLost
	for id, e := range t.fences {
		close(e.done)
		delete(t.fences, id)
	}
	t.spans = make(map[resource.Handle][]span)
}

// Lost reports whether the context was marked lost.
func (t *Tracker) Lost() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lost
}

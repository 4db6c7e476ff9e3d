// Package resource implements the registry that owns the lifetime of
// GPU-side objects.
//
// The registry hands out stable [Handle] values backed by a
// generation-indexed slab. Destruction is deferred: a destroyed handle
// keeps its bookkeeping until the fence layer confirms that no queued
// GPU operation still references it, and only then is the underlying
// storage released and the slot recycled.
package resource

import (
	"errors"
	"sync"
)

// Registry sentinel errors.
var (
	// ErrInvalidHandle is returned when a handle is stale or was never
	// issued by this registry.
	ErrInvalidHandle = errors.New("glium: invalid or stale resource handle")

	// ErrDestroyed is returned when an operation targets a handle that
	// is already queued for destruction.
	ErrDestroyed = errors.New("glium: resource already destroyed")
)

// Release describes one device allocation that is safe to free.
// Returned by CollectExpired once all fences covering it retired.
type Release struct {
	Backing BackingID
	Kind    Kind
}

type orphan struct {
	backing BackingID
	kind    Kind
	waitOn  []uint64 // fence tokens outstanding at swap time
}

type slot struct {
	generation uint32
	live       bool
	dying      bool
	desc       Descriptor
	backing    BackingID
	shadow     []byte // persistent buffers only
}

// Registry owns GPU object bookkeeping. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	limits      Limits
	slots       []slot
	free        []uint32
	orphans     []orphan
	nextBacking BackingID
}

// NewRegistry creates an empty registry validating against lim.
func NewRegistry(lim Limits) *Registry {
	return &Registry{limits: lim, nextBacking: 1}
}

// Create validates desc and allocates a slot for it. The returned
// BackingID names the device allocation the caller must create by
// queueing the corresponding resource command.
//
// Validation happens here, before any device contact: a descriptor the
// device would reject (zero-sized texture, over-limit buffer, unknown
// format) fails with a *CreationError and leaves no trace.
func (r *Registry) Create(desc Descriptor) (Handle, BackingID, error) {
	if err := desc.validate(r.limits); err != nil {
		return Handle{}, 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	backing := r.nextBacking
	r.nextBacking++

	var shadow []byte
	if desc.Kind == KindBuffer && desc.Usage == UsagePersistent {
		shadow = make([]byte, desc.Size)
	}

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
		s := &r.slots[idx]
		s.live = true
		s.dying = false
		s.desc = desc
		s.backing = backing
		s.shadow = shadow
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot{
			generation: 1,
			live:       true,
			desc:       desc,
			backing:    backing,
			shadow:     shadow,
		})
	}

	return Handle{index: idx, generation: r.slots[idx].generation}, backing, nil
}

// lookup returns the slot for h or nil. Caller must hold r.mu.
func (r *Registry) lookup(h Handle) *slot {
	if int(h.index) >= len(r.slots) {
		return nil
	}
	s := &r.slots[h.index]
	if !s.live || s.generation != h.generation {
		return nil
	}
	return s
}

// Alive reports whether h refers to a live, not-yet-destroyed object.
func (r *Registry) Alive(h Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.lookup(h)
	return s != nil && !s.dying
}

// Describe returns a copy of the descriptor for h.
func (r *Registry) Describe(h Handle) (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.lookup(h)
	if s == nil {
		return Descriptor{}, ErrInvalidHandle
	}
	return s.desc, nil
}

// Backing returns the current device allocation behind h.
func (r *Registry) Backing(h Handle) (BackingID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.lookup(h)
	if s == nil {
		return 0, ErrInvalidHandle
	}
	return s.backing, nil
}

// Shadow returns the CPU-visible shadow of a persistent buffer, or nil
// if h is not a persistent buffer. The caller synchronizes access via
// the fence tracker; the slice aliases registry-owned memory.
func (r *Registry) Shadow(h Handle) []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.lookup(h)
	if s == nil {
		return nil
	}
	return s.shadow
}

// MarkDestroy queues h for destruction. Bookkeeping stays in place
// until CollectExpired observes that no fence references the handle;
// only then is the slot recycled and the generation bumped.
func (r *Registry) MarkDestroy(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.lookup(h)
	if s == nil {
		return ErrInvalidHandle
	}
	if s.dying {
		return ErrDestroyed
	}
	s.dying = true
	return nil
}

// Reallocate swaps the backing of a buffer for a fresh allocation and
// returns both IDs. The old allocation must be kept alive by the
// caller (AddOrphan) until every command referencing it has retired.
// Persistent buffers are never reallocated; their mapped identity is
// part of the API contract.
func (r *Registry) Reallocate(h Handle) (old, fresh BackingID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.lookup(h)
	if s == nil {
		return 0, 0, ErrInvalidHandle
	}
	if s.dying {
		return 0, 0, ErrDestroyed
	}
	if s.desc.Kind != KindBuffer || s.desc.Usage == UsagePersistent {
		return 0, 0, ErrInvalidHandle
	}
	old = s.backing
	fresh = r.nextBacking
	r.nextBacking++
	s.backing = fresh
	return old, fresh, nil
}

// AddOrphan records a superseded allocation that must outlive the
// given fence tokens. Tokens are opaque to the registry; the caller
// supplies a satisfaction predicate to CollectExpired.
func (r *Registry) AddOrphan(kind Kind, backing BackingID, waitOn []uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orphans = append(r.orphans, orphan{backing: backing, kind: kind, waitOn: waitOn})
}

// CollectExpired returns every allocation that became safe to free:
// dying slots whose handle the fence layer reports idle, and orphaned
// backings whose recorded fence tokens have all been satisfied.
// Freed slots are recycled with a bumped generation.
func (r *Registry) CollectExpired(idle func(Handle) bool, satisfied func(uint64) bool) []Release {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Release

	for i := range r.slots {
		s := &r.slots[i]
		if !s.live || !s.dying {
			continue
		}
		h := Handle{index: uint32(i), generation: s.generation}
		if !idle(h) {
			continue
		}
		out = append(out, Release{Backing: s.backing, Kind: s.desc.Kind})
		s.live = false
		s.dying = false
		s.shadow = nil
		s.desc = Descriptor{}
		s.generation++
		r.free = append(r.free, uint32(i))
	}

	kept := r.orphans[:0]
	for _, o := range r.orphans {
		done := true
		for _, tok := range o.waitOn {
			if !satisfied(tok) {
				done = false
				break
			}
		}
		if done {
			out = append(out, Release{Backing: o.backing, Kind: o.kind})
		} else {
			kept = append(kept, o)
		}
	}
	r.orphans = kept

	return out
}

// LiveCount returns the number of live (including dying) slots.
func (r *Registry) LiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for i := range r.slots {
		if r.slots[i].live {
			n++
		}
	}
	return n
}

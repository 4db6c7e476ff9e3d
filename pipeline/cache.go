package pipeline

import "sync"

// Cache mirrors the pipeline state the device has been told to assume.
//
// The cache records *queued* state: Commit must only ever be called
// after the corresponding commands were pushed onto the queue, and
// because the queue is append-only and strictly ordered, queued state
// is guaranteed to eventually be device-true. The cache never talks to
// the device and performs no validation; it is a pure mirror, and any
// divergence from device reality is a correctness bug in the caller.
type Cache struct {
	mu    sync.Mutex
	state State
}

// NewCache creates a cache holding the device reset state.
func NewCache(textureUnits, vertexSlots int) *Cache {
	return &Cache{state: NewState(textureUnits, vertexSlots)}
}

// Current returns a snapshot of the queued state.
func (c *Cache) Current() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Commit replaces the mirrored state. Call only after the commands
// realizing next have been enqueued.
func (c *Cache) Commit(next State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = next.Clone()
}

// InvalidateViewport forgets the cached viewport so the next draw
// re-emits it. Used when the window layer reports a resize, which
// clobbers device viewport state behind our back.
func (c *Cache) InvalidateViewport() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Viewport = Rect{X: -1, Y: -1}
}

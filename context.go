// Copyright 2026 The glium Authors
// SPDX-License-Identifier: MIT

package glium

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"

	"github.com/glium/glium/driver"
	"github.com/glium/glium/fence"
	"github.com/glium/glium/pipeline"
	"github.com/glium/glium/program"
	"github.com/glium/glium/queue"
	"github.com/glium/glium/resource"
)

// Context is the public entry point: it owns the resource registry,
// the fence tracker, the state cache and the command queue, and runs
// the single consumer goroutine that feeds the device.
//
// All methods are safe for concurrent use. Ordinary draw and resource
// calls never block; only Write on a contended range, ReadBuffer and
// the explicit wait methods may.
type Context struct {
	cfg  config
	dev  driver.Device
	caps driver.Capabilities

	registry *resource.Registry
	fences   *fence.Tracker
	cache    *pipeline.Cache
	q        *queue.Queue

	// emitMu serializes diff computation and enqueue so no two draws
	// derive deltas from the same cache snapshot.
	emitMu       sync.Mutex
	units        pipeline.UnitAllocator
	uniformCache map[Handle]map[string]program.Value
	samplerCache map[Handle]map[string]int
	blockCache   map[uint32]blockBind

	metaMu      sync.RWMutex
	reflections map[Handle]*program.Reflection

	stop   chan struct{}
	done   chan struct{}
	closed atomic.Bool
	lost   atomic.Bool
}

// NewContext creates a context. Without options the best registered
// device is selected; import the device package (e.g. driver/wgpu) to
// make it available.
func NewContext(opts ...Option) (*Context, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var dev driver.Device
	switch {
	case cfg.device != nil:
		dev = cfg.device
		if err := dev.Init(); err != nil {
			return nil, err
		}
	case cfg.deviceName != "":
		dev = driver.Get(cfg.deviceName)
		if dev == nil {
			return nil, driver.ErrDeviceNotAvailable
		}
		if err := dev.Init(); err != nil {
			return nil, err
		}
	default:
		d, err := driver.InitDefault()
		if err != nil {
			return nil, err
		}
		dev = d
	}

	caps := dev.Capabilities()
	c := &Context{
		cfg:  cfg,
		dev:  dev,
		caps: caps,
		registry: resource.NewRegistry(resource.Limits{
			MaxBufferSize:          uint64(caps.MaxBufferSize),
			MaxTextureDimension2D:  caps.MaxTextureDimension2D,
			MaxFramebufferAttached: caps.MaxColorAttachments,
		}),
		fences:       fence.NewTracker(),
		cache:        pipeline.NewCache(caps.MaxTextureUnits, caps.MaxVertexBuffers),
		q:            queue.New(),
		uniformCache: make(map[Handle]map[string]program.Value),
		samplerCache: make(map[Handle]map[string]int),
		blockCache:   make(map[uint32]blockBind),
		reflections:  make(map[Handle]*program.Reflection),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}

	dev.OnFenceRetire(func(id fence.ID) {
		c.fences.Signal(id)
		c.collect()
	})

	go c.consume()

	Logger().Info("device selected", "name", dev.Name(), "texture_units", caps.MaxTextureUnits)
	return c, nil
}

// consume is the device consumer goroutine: the only code that ever
// talks to the device, draining the queue in strict FIFO order.
func (c *Context) consume() {
	defer close(c.done)
	for c.q.Wait(c.stop) {
		if _, err := c.q.DrainTo(c.dev); err != nil {
			c.markLost(err)
			return
		}
	}
}

// markLost transitions the context into the lost state: pending fences
// are force-satisfied with ErrContextLost and later calls fail fast.
func (c *Context) markLost(err error) {
	if c.lost.CompareAndSwap(false, true) {
		Logger().Warn("device lost", "err", err)
		c.fences.MarkLost()
	}
}

func (c *Context) checkAlive() error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.lost.Load() {
		return ErrContextLost
	}
	return nil
}

// Lost reports whether the device context was lost. All handles are
// invalid once this returns true.
func (c *Context) Lost() bool { return c.lost.Load() }

// Close shuts the context down: remaining commands are drained, the
// consumer goroutine exits and the device is released.
func (c *Context) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	c.q.Close()
	close(c.stop)
	<-c.done
	return c.dev.Close()
}

// reflection returns the reflection data recorded for a live program.
func (c *Context) reflection(h Handle) (*program.Reflection, error) {
	if !c.registry.Alive(h) {
		return nil, ErrInvalidHandle
	}
	c.metaMu.RLock()
	defer c.metaMu.RUnlock()
	refl, ok := c.reflections[h]
	if !ok {
		return nil, ErrInvalidHandle
	}
	return refl, nil
}

// CreateBuffer allocates a buffer of the given byte size. The usage
// hint decides the write policy: static buffers may block on rewrite,
// dynamic buffers reallocate instead of stalling, persistent buffers
// keep a stable mapped identity with per-range synchronization.
func (c *Context) CreateBuffer(size int, usage Usage) (Handle, error) {
	if err := c.checkAlive(); err != nil {
		return Handle{}, err
	}
	h, backing, err := c.registry.Create(resource.Descriptor{
		Kind:  resource.KindBuffer,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return Handle{}, err
	}
	c.q.Push(queue.CreateBuffer{Backing: backing, Size: size, Usage: usage})
	return h, nil
}

// CreateBufferInit allocates a buffer and uploads data into it.
func (c *Context) CreateBufferInit(data []byte, usage Usage) (Handle, error) {
	h, err := c.CreateBuffer(len(data), usage)
	if err != nil {
		return Handle{}, err
	}
	if err := c.Write(h, 0, data); err != nil {
		return Handle{}, err
	}
	return h, nil
}

// TextureConfig describes a texture to create.
type TextureConfig struct {
	Label        string
	Width        uint32
	Height       uint32
	Format       gputypes.TextureFormat
	RenderTarget bool
	SampleCount  uint32
}

// CreateTexture allocates a texture. The descriptor is validated
// before any device contact; unsupported sizes or formats fail with a
// *CreationError.
func (c *Context) CreateTexture(cfg TextureConfig) (Handle, error) {
	if err := c.checkAlive(); err != nil {
		return Handle{}, err
	}
	h, backing, err := c.registry.Create(resource.Descriptor{
		Kind:         resource.KindTexture,
		Label:        cfg.Label,
		Width:        cfg.Width,
		Height:       cfg.Height,
		Format:       cfg.Format,
		RenderTarget: cfg.RenderTarget,
		SampleCount:  cfg.SampleCount,
	})
	if err != nil {
		return Handle{}, err
	}
	c.q.Push(queue.CreateTexture{
		Backing:      backing,
		Width:        cfg.Width,
		Height:       cfg.Height,
		Format:       cfg.Format,
		RenderTarget: cfg.RenderTarget,
	})
	return h, nil
}

// CreateTextureFromImage allocates an RGBA8 texture from a decoded
// image and uploads its pixels. Non-RGBA images are converted.
func (c *Context) CreateTextureFromImage(img image.Image) (Handle, error) {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)

	h, err := c.CreateTexture(TextureConfig{
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Format: gputypes.TextureFormatRGBA8Unorm,
	})
	if err != nil {
		return Handle{}, err
	}
	if err := c.WriteTexture(h, rgba.Pix); err != nil {
		return Handle{}, err
	}
	return h, nil
}

// ProgramConfig describes a program to compile and the reflection data
// the validator will check draws against.
type ProgramConfig struct {
	Label          string
	VertexSource   string
	FragmentSource string
	Reflection     program.Reflection
}

// CreateProgram compiles both stages and registers the program.
func (c *Context) CreateProgram(cfg ProgramConfig) (Handle, error) {
	if err := c.checkAlive(); err != nil {
		return Handle{}, err
	}
	vs, err := program.CompileWGSL(cfg.VertexSource)
	if err != nil {
		return Handle{}, &CreationError{
			Kind:   resource.KindProgram,
			Reason: fmt.Sprintf("vertex stage: %v", err),
		}
	}
	fs, err := program.CompileWGSL(cfg.FragmentSource)
	if err != nil {
		return Handle{}, &CreationError{
			Kind:   resource.KindProgram,
			Reason: fmt.Sprintf("fragment stage: %v", err),
		}
	}

	h, backing, err := c.registry.Create(resource.Descriptor{
		Kind:  resource.KindProgram,
		Label: cfg.Label,
	})
	if err != nil {
		return Handle{}, err
	}

	refl := cfg.Reflection
	c.metaMu.Lock()
	c.reflections[h] = &refl
	c.metaMu.Unlock()

	c.q.Push(queue.CreateProgram{Backing: backing, VertexSPIRV: vs, FragmentSPIRV: fs})
	return h, nil
}

// RegisterProgram registers an externally compiled program with its
// reflection data, bypassing shader compilation. Used when the
// application brings its own compiled stages.
func (c *Context) RegisterProgram(refl program.Reflection, vertexSPIRV, fragmentSPIRV []uint32) (Handle, error) {
	if err := c.checkAlive(); err != nil {
		return Handle{}, err
	}
	h, backing, err := c.registry.Create(resource.Descriptor{Kind: resource.KindProgram})
	if err != nil {
		return Handle{}, err
	}
	c.metaMu.Lock()
	c.reflections[h] = &refl
	c.metaMu.Unlock()
	c.q.Push(queue.CreateProgram{Backing: backing, VertexSPIRV: vertexSPIRV, FragmentSPIRV: fragmentSPIRV})
	return h, nil
}

// CreateFramebuffer assembles a framebuffer from render-target
// textures. Dimensions are recorded per attachment; the draw validator
// rejects draws into framebuffers with mismatched attachment sizes.
func (c *Context) CreateFramebuffer(attachments ...Handle) (Handle, error) {
	if err := c.checkAlive(); err != nil {
		return Handle{}, err
	}
	atts := make([]resource.Attachment, 0, len(attachments))
	backings := make([]resource.BackingID, 0, len(attachments))
	for i, att := range attachments {
		desc, err := c.registry.Describe(att)
		if err != nil {
			return Handle{}, err
		}
		if desc.Kind != resource.KindTexture || !desc.RenderTarget {
			return Handle{}, &CreationError{
				Kind:   resource.KindFramebuffer,
				Reason: fmt.Sprintf("attachment %d is not a render-target texture", i),
			}
		}
		backing, err := c.registry.Backing(att)
		if err != nil {
			return Handle{}, err
		}
		atts = append(atts, resource.Attachment{Target: att, Width: desc.Width, Height: desc.Height})
		backings = append(backings, backing)
	}
	h, backing, err := c.registry.Create(resource.Descriptor{
		Kind:        resource.KindFramebuffer,
		Attachments: atts,
	})
	if err != nil {
		return Handle{}, err
	}
	c.q.Push(queue.CreateFramebuffer{Backing: backing, Attachments: backings})
	return h, nil
}

// Write uploads data into a buffer at the given byte offset.
//
// Synchronization follows the usage hint chosen at creation. Static
// buffers wait for in-flight GPU work covering the range. Dynamic
// buffers transparently reallocate the backing instead of stalling
// when the range is contended; the handle is unaffected and in-flight
// reads of the old allocation stay valid until they retire. Persistent
// buffers are synchronized per sub-range and also mirror the write
// into their CPU shadow.
func (c *Context) Write(h Handle, offset int, data []byte) error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	desc, err := c.registry.Describe(h)
	if err != nil {
		return err
	}
	if desc.Kind != resource.KindBuffer {
		return ErrInvalidHandle
	}
	if offset < 0 || offset+len(data) > desc.Size {
		return fmt.Errorf("glium: write of %d bytes at %d exceeds buffer size %d",
			len(data), offset, desc.Size)
	}
	if len(data) == 0 {
		return nil
	}

	touch := fence.Touch{
		Resource: h,
		Range:    fence.Range{Start: offset, End: offset + len(data)},
		Mode:     fence.ModeWrite,
	}

	if desc.Usage == resource.UsageDynamic && !c.fences.IsAvailable(touch) {
		return c.writeRealloc(h, desc, offset, data)
	}

	if desc.Usage != resource.UsageDynamic {
		// Static and persistent writes wait for the contended range.
		// Sub-range tracking means a persistent write only waits on
		// work that actually overlaps it.
		if err := c.fences.WaitRange(touch, c.cfg.fenceTimeout); err != nil {
			return err
		}
	}

	if shadow := c.registry.Shadow(h); shadow != nil {
		copy(shadow[offset:], data)
	}

	backing, err := c.registry.Backing(h)
	if err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	fid := c.fences.Create(touch)
	c.q.Push(
		queue.WriteBuffer{Backing: backing, Offset: offset, Data: buf},
		queue.SignalFence{Fence: fid},
	)
	return nil
}

// writeRealloc is the reallocate-and-swap path for contended dynamic
// buffers: surviving content is copied to a fresh allocation on the
// device, the write lands there, and the superseded allocation is
// pinned until every command referencing it has retired.
func (c *Context) writeRealloc(h Handle, desc resource.Descriptor, offset int, data []byte) error {
	old, fresh, err := c.registry.Reallocate(h)
	if err != nil {
		return err
	}

	pend := c.fences.Pending(h)
	waitOn := make([]uint64, 0, len(pend)+1)
	for _, id := range pend {
		waitOn = append(waitOn, uint64(id))
	}
	// Old-range bookkeeping belongs to the old backing now; drop it so
	// later writes to the fresh backing do not stall on it.
	c.fences.Invalidate(fence.Touch{Resource: h, Range: fence.WholeResource})

	fid := c.fences.Create(fence.Touch{
		Resource: h,
		Range:    fence.WholeResource,
		Mode:     fence.ModeWrite,
	})
	waitOn = append(waitOn, uint64(fid))
	c.registry.AddOrphan(resource.KindBuffer, old, waitOn)

	buf := make([]byte, len(data))
	copy(buf, data)
	c.q.Push(
		queue.CreateBuffer{Backing: fresh, Size: desc.Size, Usage: desc.Usage},
		queue.CopyBuffer{Src: old, Dst: fresh, Size: desc.Size},
		queue.WriteBuffer{Backing: fresh, Offset: offset, Data: buf},
		queue.SignalFence{Fence: fid},
	)

	Logger().Debug("buffer backing swapped", "handle", h.String(), "old", old, "new", fresh)
	return nil
}

// WriteTexture uploads tightly packed texel data covering the whole
// texture.
func (c *Context) WriteTexture(h Handle, data []byte) error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	desc, err := c.registry.Describe(h)
	if err != nil {
		return err
	}
	if desc.Kind != resource.KindTexture {
		return ErrInvalidHandle
	}

	touch := fence.Touch{Resource: h, Range: fence.WholeResource, Mode: fence.ModeWrite}
	if err := c.fences.WaitRange(touch, c.cfg.fenceTimeout); err != nil {
		return err
	}

	backing, err := c.registry.Backing(h)
	if err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	fid := c.fences.Create(touch)
	c.q.Push(
		queue.WriteTexture{
			Backing: backing,
			Data:    buf,
			Width:   desc.Width,
			Height:  desc.Height,
		},
		queue.SignalFence{Fence: fid},
	)
	return nil
}

// ReadBuffer synchronously reads a byte range back from the device.
// It blocks until in-flight writes of the range retire and the
// consumer answers; this is one of the two places the API blocks by
// design.
func (c *Context) ReadBuffer(h Handle, offset, size int) ([]byte, error) {
	if err := c.checkAlive(); err != nil {
		return nil, err
	}
	desc, err := c.registry.Describe(h)
	if err != nil {
		return nil, err
	}
	if desc.Kind != resource.KindBuffer {
		return nil, ErrInvalidHandle
	}
	if offset < 0 || offset+size > desc.Size {
		return nil, fmt.Errorf("glium: read of %d bytes at %d exceeds buffer size %d",
			size, offset, desc.Size)
	}

	touch := fence.Touch{
		Resource: h,
		Range:    fence.Range{Start: offset, End: offset + size},
		Mode:     fence.ModeRead,
	}
	if err := c.fences.WaitRange(touch, c.cfg.fenceTimeout); err != nil {
		return nil, err
	}

	backing, err := c.registry.Backing(h)
	if err != nil {
		return nil, err
	}

	reply := make(chan queue.ReadResult, 1)
	fid := c.fences.Create(touch)
	c.q.Push(
		queue.ReadBuffer{Backing: backing, Offset: offset, Size: size, Reply: reply},
		queue.SignalFence{Fence: fid},
	)

	select {
	case res := <-reply:
		return res.Data, res.Err
	case <-c.done:
		return nil, ErrContextLost
	}
}

// Destroy queues h for destruction. The underlying storage is released
// only once no queued GPU command references it; until then the handle
// is dead to the API but the device allocation survives.
func (c *Context) Destroy(h Handle) error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	if err := c.registry.MarkDestroy(h); err != nil {
		return err
	}
	c.metaMu.Lock()
	delete(c.reflections, h)
	c.metaMu.Unlock()
	// Per-program device state dies with the handle.
	c.emitMu.Lock()
	delete(c.uniformCache, h)
	delete(c.samplerCache, h)
	c.emitMu.Unlock()
	c.collect()
	return nil
}

// collect frees everything whose fences have all retired.
func (c *Context) collect() {
	releases := c.registry.CollectExpired(
		c.fences.Idle,
		func(tok uint64) bool { return c.fences.Satisfied(fence.ID(tok)) },
	)
	if len(releases) == 0 {
		return
	}
	cmds := make([]queue.Command, len(releases))
	for i, rel := range releases {
		cmds[i] = queue.DestroyResource{Backing: rel.Backing, Kind: rel.Kind}
	}
	c.q.Push(cmds...)
	Logger().Debug("resources released", "count", len(releases))
}

// Draw validates req and, if it is valid, enqueues the minimal command
// sequence realizing it. A failed validation leaves the state cache
// and the command queue untouched.
func (c *Context) Draw(req *DrawRequest) error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	v, err := c.validate(req)
	if err != nil {
		return err
	}
	return c.emit(v)
}

// Clear clears the currently bound framebuffer. Nil arguments leave
// the corresponding aspect untouched.
func (c *Context) Clear(color *gputypes.Color, depth *float32, stencil *uint32) error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	c.q.Push(queue.Clear{Color: color, Depth: depth, Stencil: stencil})
	return nil
}

// Present flushes the stream and presents the default framebuffer.
// Expired resources are collected first so their release rides the
// same flush.
func (c *Context) Present() error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	c.collect()
	c.q.Push(queue.Present{})
	return nil
}

// Fence is an application-visible fence token covering everything
// queued before it was inserted.
type Fence = fence.ID

// InsertFence places a fence after everything queued so far and
// returns a token waitable with WaitFence.
func (c *Context) InsertFence() (Fence, error) {
	if err := c.checkAlive(); err != nil {
		return 0, err
	}
	fid := c.fences.Create()
	c.q.Push(queue.SignalFence{Fence: fid})
	return fid, nil
}

// WaitFence blocks until f retires or the budget runs out. A zero
// timeout waits indefinitely. On a lost context it returns
// ErrContextLost; a token this context never issued fails with
// ErrUnknownFence.
func (c *Context) WaitFence(f Fence, timeout time.Duration) error {
	return c.fences.Wait(f, timeout)
}

// FenceSignaled reports, without blocking, whether f has retired.
func (c *Context) FenceSignaled(f Fence) bool {
	return c.fences.Satisfied(f)
}

// Sync inserts a fence after everything queued so far and waits for it
// to retire. A zero timeout waits indefinitely.
func (c *Context) Sync(timeout time.Duration) error {
	fid, err := c.InsertFence()
	if err != nil {
		return err
	}
	return c.fences.Wait(fid, timeout)
}

// Available reports, without blocking, whether the byte range of h can
// be written right now without waiting on in-flight GPU work.
func (c *Context) Available(h Handle, start, end int) bool {
	return c.fences.IsAvailable(fence.Touch{
		Resource: h,
		Range:    fence.Range{Start: start, End: end},
		Mode:     fence.ModeWrite,
	})
}

// WaitAvailable blocks until the byte range of h is writable or the
// configured fence timeout runs out.
func (c *Context) WaitAvailable(h Handle, start, end int) error {
	if err := c.checkAlive(); err != nil {
		return err
	}
	return c.fences.WaitRange(fence.Touch{
		Resource: h,
		Range:    fence.Range{Start: start, End: end},
		Mode:     fence.ModeWrite,
	}, c.cfg.fenceTimeout)
}

// Invalidate drops synchronization bookkeeping for the byte range of h
// without waiting. The next write to the range will not stall on prior
// GPU work; the caller asserts the old content is dead. This is the
// explicit escape hatch for persistently mapped streaming.
func (c *Context) Invalidate(h Handle, start, end int) {
	c.fences.Invalidate(fence.Touch{
		Resource: h,
		Range:    fence.Range{Start: start, End: end},
	})
}

// InvalidateViewport forgets the cached viewport so the next draw
// re-emits it. Call when the window layer reports a resize.
func (c *Context) InvalidateViewport() {
	c.cache.InvalidateViewport()
}

// Capabilities returns the device capability set.
func (c *Context) Capabilities() driver.Capabilities { return c.caps }

// LiveResources returns the number of live handles, including those
// queued for deferred destruction.
func (c *Context) LiveResources() int { return c.registry.LiveCount() }

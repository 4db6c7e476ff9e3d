// Copyright 2026 The glium Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	types "github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/glium/glium/driver"
	"github.com/glium/glium/queue"
	"github.com/glium/glium/resource"
)

// ErrNoProvider is returned from Init when no device provider has been
// configured.
var ErrNoProvider = errors.New("glium: wgpu device provider not set")

// fenceWaitTimeout bounds how long a fence submission blocks the
// consumer thread.
const fenceWaitTimeout = 5 * time.Second

var (
	providerMu sync.Mutex
	provider   gpucontext.DeviceProvider
)

func init() {
	driver.Register("wgpu", func() driver.Device {
		p := currentProvider()
		if p == nil {
			return nil
		}
		return New(p)
	})
}

// SetProvider configures the shared device provider used by devices
// created through the driver registry. The provider must also expose
// the HAL handles via HalDevice and HalQueue.
func SetProvider(p gpucontext.DeviceProvider) {
	providerMu.Lock()
	provider = p
	providerMu.Unlock()
}

func currentProvider() gpucontext.DeviceProvider {
	providerMu.Lock()
	defer providerMu.Unlock()
	return provider
}

type bufferEntry struct {
	buf hal.Buffer
	// shadow mirrors every write. HAL buffer mapping is not exposed,
	// so readback answers from the shadow after fencing the device.
	shadow []byte
}

type textureEntry struct {
	tex    hal.Texture
	width  uint32
	height uint32
	format gputypes.TextureFormat
}

type programEntry struct {
	vs hal.ShaderModule
	fs hal.ShaderModule
}

// pipelineKey captures the state that selects a render pipeline.
type pipelineKey struct {
	program  resource.BackingID
	topology gputypes.PrimitiveTopology
	cull     gputypes.CullMode
	front    gputypes.FrontFace
	blend    bool
	depth    bool
	compare  gputypes.CompareFunction
	mask     gputypes.ColorWriteMask
}

// Device drives a wgpu HAL device. Execute is only ever called from
// the single consumer goroutine, so resource maps need no locking.
type Device struct {
	provider gpucontext.DeviceProvider
	device   hal.Device
	hqueue   hal.Queue
	caps     driver.Capabilities
	retire   driver.FenceFunc

	buffers      map[resource.BackingID]*bufferEntry
	textures     map[resource.BackingID]*textureEntry
	programs     map[resource.BackingID]*programEntry
	framebuffers map[resource.BackingID][]resource.BackingID

	key       pipelineKey
	pipelines map[pipelineKey]struct{}

	encoder    hal.CommandEncoder
	hasEncoder bool
}

// New returns a device bound to the given provider. Init must be
// called before use.
func New(p gpucontext.DeviceProvider) *Device {
	return &Device{
		provider:     p,
		buffers:      make(map[resource.BackingID]*bufferEntry),
		textures:     make(map[resource.BackingID]*textureEntry),
		programs:     make(map[resource.BackingID]*programEntry),
		framebuffers: make(map[resource.BackingID][]resource.BackingID),
		pipelines:    make(map[pipelineKey]struct{}),
	}
}

func (d *Device) Name() string { return "wgpu" }

// Init extracts the HAL device and queue from the provider and queries
// limits.
func (d *Device) Init() error {
	if d.provider == nil {
		return ErrNoProvider
	}
	hp, ok := d.provider.(interface {
		HalDevice() any
		HalQueue() any
	})
	if !ok {
		return fmt.Errorf("glium: provider does not expose HAL handles")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return fmt.Errorf("glium: provider HalDevice is not hal.Device")
	}
	hq, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return fmt.Errorf("glium: provider HalQueue is not hal.Queue")
	}
	d.device = device
	d.hqueue = hq

	lim := types.DefaultLimits()
	d.caps = driver.DefaultCapabilities()
	if lim.MaxBufferSize > 0 {
		d.caps.MaxBufferSize = int(lim.MaxBufferSize)
	}
	if lim.MaxTextureDimension2D > 0 {
		d.caps.MaxTextureDimension2D = lim.MaxTextureDimension2D
	}
	return nil
}

func (d *Device) Close() error {
	d.flush()
	for id, e := range d.buffers {
		d.device.DestroyBuffer(e.buf)
		delete(d.buffers, id)
	}
	for id, e := range d.textures {
		d.device.DestroyTexture(e.tex)
		delete(d.textures, id)
	}
	for id, e := range d.programs {
		d.device.DestroyShaderModule(e.vs)
		d.device.DestroyShaderModule(e.fs)
		delete(d.programs, id)
	}
	return nil
}

func (d *Device) Capabilities() driver.Capabilities { return d.caps }

func (d *Device) OnFenceRetire(fn driver.FenceFunc) { d.retire = fn }

// Execute runs one command against the HAL.
func (d *Device) Execute(cmd queue.Command) error {
	switch c := cmd.(type) {
	case queue.CreateBuffer:
		return d.createBuffer(c)
	case queue.WriteBuffer:
		return d.writeBuffer(c)
	case queue.CopyBuffer:
		return d.copyBuffer(c)
	case queue.CreateTexture:
		return d.createTexture(c)
	case queue.WriteTexture:
		return d.writeTexture(c)
	case queue.CreateProgram:
		return d.createProgram(c)
	case queue.CreateFramebuffer:
		d.framebuffers[c.Backing] = c.Attachments
		return nil
	case queue.DestroyResource:
		return d.destroy(c)
	case queue.ReadBuffer:
		return d.readBuffer(c)
	case queue.SignalFence:
		return d.signalFence(c)

	case queue.UseProgram:
		d.key.program = c.Program
	case queue.SetTopology:
		d.key.topology = c.Topology
	case queue.SetRaster:
		d.key.cull, d.key.front = c.Cull, c.Front
	case queue.SetBlend:
		d.key.blend = c.Enabled
	case queue.SetDepth:
		d.key.depth, d.key.compare = c.Enabled, c.Compare
	case queue.SetColorMask:
		d.key.mask = c.Mask

	case queue.Draw:
		// Pipeline objects are keyed by the raster state in effect at
		// the draw; creation is deduplicated across draws.
		d.pipelines[d.key] = struct{}{}
	case queue.Clear, queue.Present:
		d.flush()
	}
	return nil
}

func (d *Device) createBuffer(c queue.CreateBuffer) error {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: fmt.Sprintf("glium-buffer-%d", c.Backing),
		Size:  uint64(c.Size),
		Usage: bufferUsage(c.Usage),
	})
	if err != nil {
		return fmt.Errorf("glium: buffer allocation failed: %w", err)
	}
	d.buffers[c.Backing] = &bufferEntry{buf: buf, shadow: make([]byte, c.Size)}
	return nil
}

func (d *Device) writeBuffer(c queue.WriteBuffer) error {
	e, ok := d.buffers[c.Backing]
	if !ok {
		return fmt.Errorf("glium: write to unknown buffer %d", c.Backing)
	}
	d.hqueue.WriteBuffer(e.buf, uint64(c.Offset), c.Data)
	copy(e.shadow[c.Offset:], c.Data)
	return nil
}

func (d *Device) copyBuffer(c queue.CopyBuffer) error {
	src, ok := d.buffers[c.Src]
	if !ok {
		return fmt.Errorf("glium: copy from unknown buffer %d", c.Src)
	}
	dst, ok := d.buffers[c.Dst]
	if !ok {
		return fmt.Errorf("glium: copy to unknown buffer %d", c.Dst)
	}
	enc, err := d.ensureEncoder()
	if err != nil {
		return err
	}
	enc.CopyBufferToBuffer(src.buf, dst.buf, []hal.BufferCopy{{
		SrcOffset: uint64(c.SrcOffset),
		DstOffset: uint64(c.DstOffset),
		Size:      uint64(c.Size),
	}})
	copy(dst.shadow[c.DstOffset:c.DstOffset+c.Size], src.shadow[c.SrcOffset:c.SrcOffset+c.Size])
	return nil
}

func (d *Device) createTexture(c queue.CreateTexture) error {
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: fmt.Sprintf("glium-texture-%d", c.Backing),
		Size: hal.Extent3D{
			Width:              c.Width,
			Height:             c.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     types.TextureDimension2D,
		Format:        textureFormat(c.Format),
		Usage:         textureUsage(c.RenderTarget),
	})
	if err != nil {
		return fmt.Errorf("glium: texture allocation failed: %w", err)
	}
	d.textures[c.Backing] = &textureEntry{
		tex:    tex,
		width:  c.Width,
		height: c.Height,
		format: c.Format,
	}
	return nil
}

func (d *Device) writeTexture(c queue.WriteTexture) error {
	e, ok := d.textures[c.Backing]
	if !ok {
		return fmt.Errorf("glium: write to unknown texture %d", c.Backing)
	}
	bytesPerRow := c.BytesPerRow
	if bytesPerRow == 0 {
		bytesPerRow = c.Width * formatBytesPerPixel(e.format)
	}
	dst := &hal.ImageCopyTexture{
		Texture:  e.tex,
		MipLevel: 0,
		Origin:   hal.Origin3D{X: 0, Y: 0, Z: 0},
		Aspect:   types.TextureAspectAll,
	}
	layout := &hal.ImageDataLayout{
		Offset:       0,
		BytesPerRow:  bytesPerRow,
		RowsPerImage: c.Height,
	}
	size := &hal.Extent3D{
		Width:              c.Width,
		Height:             c.Height,
		DepthOrArrayLayers: 1,
	}
	d.hqueue.WriteTexture(dst, c.Data, layout, size)
	return nil
}

func (d *Device) createProgram(c queue.CreateProgram) error {
	vs, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  fmt.Sprintf("glium-vs-%d", c.Backing),
		Source: hal.ShaderSource{SPIRV: c.VertexSPIRV},
	})
	if err != nil {
		return fmt.Errorf("glium: vertex stage rejected: %w", err)
	}
	fs, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  fmt.Sprintf("glium-fs-%d", c.Backing),
		Source: hal.ShaderSource{SPIRV: c.FragmentSPIRV},
	})
	if err != nil {
		d.device.DestroyShaderModule(vs)
		return fmt.Errorf("glium: fragment stage rejected: %w", err)
	}
	d.programs[c.Backing] = &programEntry{vs: vs, fs: fs}
	return nil
}

func (d *Device) destroy(c queue.DestroyResource) error {
	switch c.Kind {
	case resource.KindBuffer:
		if e, ok := d.buffers[c.Backing]; ok {
			d.device.DestroyBuffer(e.buf)
			delete(d.buffers, c.Backing)
		}
	case resource.KindTexture:
		if e, ok := d.textures[c.Backing]; ok {
			d.device.DestroyTexture(e.tex)
			delete(d.textures, c.Backing)
		}
	case resource.KindProgram:
		if e, ok := d.programs[c.Backing]; ok {
			d.device.DestroyShaderModule(e.vs)
			d.device.DestroyShaderModule(e.fs)
			delete(d.programs, c.Backing)
		}
	case resource.KindFramebuffer:
		delete(d.framebuffers, c.Backing)
	}
	return nil
}

func (d *Device) readBuffer(c queue.ReadBuffer) error {
	e, ok := d.buffers[c.Backing]
	if !ok {
		err := fmt.Errorf("glium: read from unknown buffer %d", c.Backing)
		c.Reply <- queue.ReadResult{Err: err}
		return nil
	}
	// Fence the device so in-flight writes are visible, then answer
	// from the shadow.
	if err := d.sync(); err != nil {
		c.Reply <- queue.ReadResult{Err: err}
		return nil
	}
	data := make([]byte, c.Size)
	copy(data, e.shadow[c.Offset:c.Offset+c.Size])
	c.Reply <- queue.ReadResult{Data: data}
	return nil
}

func (d *Device) signalFence(c queue.SignalFence) error {
	if err := d.sync(); err != nil {
		return err
	}
	if d.retire != nil {
		d.retire(c.Fence)
	}
	return nil
}

func (d *Device) ensureEncoder() (hal.CommandEncoder, error) {
	if d.hasEncoder {
		return d.encoder, nil
	}
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "glium-encoder",
	})
	if err != nil {
		return nil, fmt.Errorf("glium: command encoder creation failed: %w", err)
	}
	if err := enc.BeginEncoding("glium"); err != nil {
		return nil, fmt.Errorf("glium: command encoding failed: %w", err)
	}
	d.encoder = enc
	d.hasEncoder = true
	return enc, nil
}

// flush submits any pending encoder without waiting.
func (d *Device) flush() {
	if !d.hasEncoder {
		return
	}
	d.hasEncoder = false
	cmdBuffer, err := d.encoder.EndEncoding()
	d.encoder = nil
	if err != nil {
		return
	}
	_ = d.hqueue.Submit([]hal.CommandBuffer{cmdBuffer}, nil, 0)
}

// sync flushes pending work and blocks until the device has retired
// it.
func (d *Device) sync() error {
	d.flush()
	f, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("glium: fence creation failed: %w", err)
	}
	defer d.device.DestroyFence(f)
	if err := d.hqueue.Submit(nil, f, 1); err != nil {
		return fmt.Errorf("glium: fence submission failed: %w", err)
	}
	if _, err := d.device.Wait(f, 1, fenceWaitTimeout); err != nil {
		return fmt.Errorf("glium: fence wait failed: %w", err)
	}
	return nil
}

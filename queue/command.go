// Copyright 2026 The glium Authors
// SPDX-License-Identifier: MIT

// Package queue defines the ordered command stream between the draw
// API and the device consumer.
//
// A command is an opaque unit of work: a state change, a draw, a
// resource operation or a synchronization marker. The queue is
// strictly FIFO and never reorders; the device visibly executes
// commands in submission order, which is the invariant the diff
// engine's correctness depends on.
package queue

import (
	"github.com/gogpu/gputypes"

	"github.com/glium/glium/fence"
	"github.com/glium/glium/pipeline"
	"github.com/glium/glium/program"
	"github.com/glium/glium/resource"
)

// Command is one entry of the stream. Implementations are small value
// structs; the device consumer type-switches over them.
type Command interface {
	isCommand()
}

// UseProgram activates a compiled program.
type UseProgram struct {
	Program resource.BackingID
}

// BindFramebuffer selects the render target; zero means the default
// framebuffer.
type BindFramebuffer struct {
	Framebuffer resource.BackingID
}

// SetDepth configures the depth test.
type SetDepth struct {
	Enabled bool
	Compare gputypes.CompareFunction
	Write   bool
}

// SetBlend configures blending.
type SetBlend struct {
	Enabled bool
	State   gputypes.BlendState
}

// SetStencil configures the stencil test.
type SetStencil struct {
	Enabled     bool
	Compare     gputypes.CompareFunction
	FailOp      pipeline.StencilOp
	DepthFailOp pipeline.StencilOp
	PassOp      pipeline.StencilOp
	Reference   uint32
}

// SetRaster configures face culling.
type SetRaster struct {
	Cull  gputypes.CullMode
	Front gputypes.FrontFace
}

// SetTopology selects the primitive topology.
type SetTopology struct {
	Topology gputypes.PrimitiveTopology
}

// SetColorMask configures the color write mask.
type SetColorMask struct {
	Mask gputypes.ColorWriteMask
}

// SetViewport sets the viewport rectangle.
type SetViewport struct {
	Rect pipeline.Rect
}

// SetScissor configures the scissor test.
type SetScissor struct {
	Enabled bool
	Rect    pipeline.Rect
}

// BindTexture binds a texture to a unit.
type BindTexture struct {
	Unit    int
	Texture resource.BackingID
}

// BindVertexBuffer binds a vertex buffer to a slot with its layout.
type BindVertexBuffer struct {
	Slot   int
	Buffer resource.BackingID
	Layout gputypes.VertexBufferLayout
}

// BindIndexBuffer binds the index buffer.
type BindIndexBuffer struct {
	Buffer resource.BackingID
	Format gputypes.IndexFormat
}

// SetUniform sets a literal uniform value on the active program.
type SetUniform struct {
	Name  string
	Value program.Value
}

// SetSamplerUnit points a sampler uniform at a texture unit.
type SetSamplerUnit struct {
	Name string
	Unit int
}

// BindUniformBlock binds a buffer range to a uniform block binding
// point.
type BindUniformBlock struct {
	Binding uint32
	Buffer  resource.BackingID
	Offset  int
	Size    int
}

// CreateBuffer allocates device storage for a buffer backing.
type CreateBuffer struct {
	Backing resource.BackingID
	Size    int
	Usage   resource.Usage
}

// WriteBuffer uploads data into a buffer backing.
type WriteBuffer struct {
	Backing resource.BackingID
	Offset  int
	Data    []byte
}

// CopyBuffer copies between backings on the device. Used by the
// reallocate-and-swap write path to carry surviving content over to
// the fresh allocation.
type CopyBuffer struct {
	Src       resource.BackingID
	Dst       resource.BackingID
	SrcOffset int
	DstOffset int
	Size      int
}

// CreateTexture allocates device storage for a texture backing.
type CreateTexture struct {
	Backing      resource.BackingID
	Width        uint32
	Height       uint32
	Format       gputypes.TextureFormat
	RenderTarget bool
}

// WriteTexture uploads tightly packed texel data.
type WriteTexture struct {
	Backing     resource.BackingID
	Data        []byte
	BytesPerRow uint32
	Width       uint32
	Height      uint32
}

// CreateProgram uploads compiled shader stages.
type CreateProgram struct {
	Backing       resource.BackingID
	VertexSPIRV   []uint32
	FragmentSPIRV []uint32
}

// CreateFramebuffer assembles a framebuffer from texture backings.
type CreateFramebuffer struct {
	Backing     resource.BackingID
	Attachments []resource.BackingID
}

// DestroyResource releases device storage. Only ever enqueued once the
// fence layer confirmed nothing in flight references the backing.
type DestroyResource struct {
	Backing resource.BackingID
	Kind    resource.Kind
}

// Draw is the draw call itself, always emitted after the state-change
// commands it depends on.
type Draw struct {
	VertexCount   uint32
	InstanceCount uint32
	FirstVertex   uint32

	Indexed    bool
	IndexCount uint32
	FirstIndex uint32
	BaseVertex int32
}

// Clear clears the bound framebuffer. Nil fields are left untouched.
type Clear struct {
	Color   *gputypes.Color
	Depth   *float32
	Stencil *uint32
}

// ReadResult is the reply to a ReadBuffer command.
type ReadResult struct {
	Data []byte
	Err  error
}

// ReadBuffer reads a buffer range back to the CPU. The consumer sends
// exactly one ReadResult on Reply.
type ReadBuffer struct {
	Backing resource.BackingID
	Offset  int
	Size    int
	Reply   chan<- ReadResult
}

// SignalFence marks a point in the stream; the consumer reports it to
// the fence tracker once every prior command has retired on the
// device.
type SignalFence struct {
	Fence fence.ID
}

// Present flushes the stream and presents the default framebuffer.
type Present struct{}

func (UseProgram) isCommand()        {}
func (BindFramebuffer) isCommand()   {}
func (SetDepth) isCommand()          {}
func (SetBlend) isCommand()          {}
func (SetStencil) isCommand()        {}
func (SetRaster) isCommand()         {}
func (SetTopology) isCommand()       {}
func (SetColorMask) isCommand()      {}
func (SetViewport) isCommand()       {}
func (SetScissor) isCommand()        {}
func (BindTexture) isCommand()       {}
func (BindVertexBuffer) isCommand()  {}
func (BindIndexBuffer) isCommand()   {}
func (SetUniform) isCommand()        {}
func (SetSamplerUnit) isCommand()    {}
func (BindUniformBlock) isCommand()  {}
func (CreateBuffer) isCommand()      {}
func (WriteBuffer) isCommand()       {}
func (CopyBuffer) isCommand()        {}
func (CreateTexture) isCommand()     {}
func (WriteTexture) isCommand()      {}
func (CreateProgram) isCommand()     {}
func (CreateFramebuffer) isCommand() {}
func (DestroyResource) isCommand()   {}
func (Draw) isCommand()              {}
func (Clear) isCommand()             {}
func (ReadBuffer) isCommand()        {}
func (SignalFence) isCommand()       {}
func (Present) isCommand()           {}

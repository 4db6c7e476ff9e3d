// Copyright 2026 The glium Authors
// SPDX-License-Identifier: MIT

// Package pipeline defines the value type that captures every piece of
// fixed-function and binding state relevant to a draw, the cache that
// mirrors what the device has been told so far, and the field-wise
// diff between the two.
//
// Callers of the library never mutate device state directly; they
// describe the end state they want and the diff decides which
// state-change commands are actually necessary.
package pipeline

import (
	"github.com/gogpu/gputypes"

	"github.com/glium/glium/resource"
)

// Rect is a viewport or scissor rectangle in framebuffer coordinates.
type Rect struct {
	X      int32
	Y      int32
	Width  uint32
	Height uint32
}

// StencilOp mirrors the WebGPU stencil operations. The device driver
// translates these to its native enum.
type StencilOp uint8

const (
	StencilOpKeep StencilOp = iota
	StencilOpZero
	StencilOpReplace
	StencilOpInvert
	StencilOpIncrementClamp
	StencilOpDecrementClamp
	StencilOpIncrementWrap
	StencilOpDecrementWrap
)

// VertexBinding is one bound vertex buffer together with the layout
// the shader reads it with.
type VertexBinding struct {
	Buffer resource.Handle
	Layout gputypes.VertexBufferLayout
}

// State is the full snapshot of pipeline state the device exposes.
// It is a value type: copies are independent except for the binding
// tables, which Clone deep-copies.
type State struct {
	Program     resource.Handle
	Framebuffer resource.Handle // zero handle means the default target

	DepthTest    bool
	DepthCompare gputypes.CompareFunction
	DepthWrite   bool

	Blend      bool
	BlendState gputypes.BlendState

	StencilTest        bool
	StencilCompare     gputypes.CompareFunction
	StencilFailOp      StencilOp
	StencilDepthFailOp StencilOp
	StencilPassOp      StencilOp
	StencilReference   uint32

	CullMode  gputypes.CullMode
	FrontFace gputypes.FrontFace
	Topology  gputypes.PrimitiveTopology

	ColorMask gputypes.ColorWriteMask

	Viewport    Rect
	ScissorTest bool
	Scissor     Rect

	VertexBuffers []VertexBinding
	IndexBuffer   resource.Handle
	IndexFormat   gputypes.IndexFormat

	// TextureUnits maps unit index to the bound texture. The zero
	// handle marks an unbound unit.
	TextureUnits []resource.Handle
}

// NewState returns the device's reset state with binding tables sized
// for the given unit and vertex-slot counts.
func NewState(textureUnits, vertexSlots int) State {
	return State{
		DepthCompare: gputypes.CompareFunctionAlways,
		DepthWrite:   true,
		ColorMask:    gputypes.ColorWriteMaskAll,
		Topology:     gputypes.PrimitiveTopologyTriangleList,

		VertexBuffers: make([]VertexBinding, vertexSlots),
		TextureUnits:  make([]resource.Handle, textureUnits),
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.VertexBuffers = make([]VertexBinding, len(s.VertexBuffers))
	copy(out.VertexBuffers, s.VertexBuffers)
	out.TextureUnits = make([]resource.Handle, len(s.TextureUnits))
	copy(out.TextureUnits, s.TextureUnits)
	return out
}

// layoutEqual compares two vertex buffer layouts including their
// attribute lists. gputypes.VertexBufferLayout carries a slice, so ==
// is not available.
func layoutEqual(a, b gputypes.VertexBufferLayout) bool {
	if a.ArrayStride != b.ArrayStride || a.StepMode != b.StepMode {
		return false
	}
	if len(a.Attributes) != len(b.Attributes) {
		return false
	}
	for i := range a.Attributes {
		if a.Attributes[i] != b.Attributes[i] {
			return false
		}
	}
	return true
}

// bindingEqual compares one vertex binding.
func bindingEqual(a, b VertexBinding) bool {
	return a.Buffer == b.Buffer && layoutEqual(a.Layout, b.Layout)
}

// Params is the fixed-function delta a draw request proposes. It maps
// one-to-one onto the corresponding State fields; the framebuffer and
// binding tables come from the request itself.
type Params struct {
	DepthTest    bool
	DepthCompare gputypes.CompareFunction
	DepthWrite   bool

	Blend      bool
	BlendState gputypes.BlendState

	StencilTest        bool
	StencilCompare     gputypes.CompareFunction
	StencilFailOp      StencilOp
	StencilDepthFailOp StencilOp
	StencilPassOp      StencilOp
	StencilReference   uint32

	CullMode  gputypes.CullMode
	FrontFace gputypes.FrontFace
	Topology  gputypes.PrimitiveTopology

	ColorMask gputypes.ColorWriteMask

	// Viewport is applied when non-nil; otherwise the current viewport
	// is kept.
	Viewport    *Rect
	ScissorTest bool
	Scissor     Rect

	// Capability-gated requests, validated against the device
	// capability set before any command is emitted.
	DepthClamp    bool
	Smooth        bool
	Multisample   bool
	ClipDistances uint32

	// Anisotropy is the requested maximum anisotropic filtering level.
	// Values above 1 require the anisotropic-filtering capability.
	Anisotropy uint32
}

// DefaultParams returns the draw parameters matching the device reset
// state: no depth test, no blending, no culling, triangles.
func DefaultParams() Params {
	return Params{
		DepthCompare: gputypes.CompareFunctionAlways,
		DepthWrite:   true,
		ColorMask:    gputypes.ColorWriteMaskAll,
		Topology:     gputypes.PrimitiveTopologyTriangleList,
	}
}

// Apply writes the params onto a copy of base and returns it.
func (p Params) Apply(base State) State {
	out := base.Clone()

	out.DepthTest = p.DepthTest
	out.DepthCompare = p.DepthCompare
	out.DepthWrite = p.DepthWrite

	out.Blend = p.Blend
	out.BlendState = p.BlendState

	out.StencilTest = p.StencilTest
	out.StencilCompare = p.StencilCompare
	out.StencilFailOp = p.StencilFailOp
	out.StencilDepthFailOp = p.StencilDepthFailOp
	out.StencilPassOp = p.StencilPassOp
	out.StencilReference = p.StencilReference

	out.CullMode = p.CullMode
	out.FrontFace = p.FrontFace
	out.Topology = p.Topology

	out.ColorMask = p.ColorMask

	if p.Viewport != nil {
		out.Viewport = *p.Viewport
	}
	out.ScissorTest = p.ScissorTest
	out.Scissor = p.Scissor

	return out
}

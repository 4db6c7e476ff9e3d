package pipeline

// Field is a bitmask naming the state fields a diff found to differ.
// Each set bit corresponds to exactly one state-change command the
// emitter will enqueue.
type Field uint32

const (
	FieldProgram Field = 1 << iota
	FieldFramebuffer
	FieldDepth
	FieldBlend
	FieldStencil
	FieldRaster // cull mode + front face
	FieldTopology
	FieldColorMask
	FieldViewport
	FieldScissor
	FieldIndexBuffer
	FieldVertexBuffers
	FieldTextures
)

// Count returns the number of set bits, i.e. the number of differing
// field groups.
func (f Field) Count() int {
	n := 0
	for f != 0 {
		f &= f - 1
		n++
	}
	return n
}

// Delta is the outcome of diffing the cached state against a draw's
// required state. DirtySlots and DirtyUnits list only the vertex slots
// and texture units whose bindings actually changed.
type Delta struct {
	Fields     Field
	DirtySlots []int
	DirtyUnits []int
}

// Empty reports whether nothing differs.
func (d Delta) Empty() bool { return d.Fields == 0 }

// Diff compares two states field by field. If old and new agree on a
// field, no bit is set and no command will be emitted for it.
func Diff(old, new *State) Delta {
	var d Delta

	if old.Program != new.Program {
		d.Fields |= FieldProgram
	}
	if old.Framebuffer != new.Framebuffer {
		d.Fields |= FieldFramebuffer
	}
	if old.DepthTest != new.DepthTest ||
		old.DepthCompare != new.DepthCompare ||
		old.DepthWrite != new.DepthWrite {
		d.Fields |= FieldDepth
	}
	if old.Blend != new.Blend || old.BlendState != new.BlendState {
		d.Fields |= FieldBlend
	}
	if old.StencilTest != new.StencilTest ||
		old.StencilCompare != new.StencilCompare ||
		old.StencilFailOp != new.StencilFailOp ||
		old.StencilDepthFailOp != new.StencilDepthFailOp ||
		old.StencilPassOp != new.StencilPassOp ||
		old.StencilReference != new.StencilReference {
		d.Fields |= FieldStencil
	}
	if old.CullMode != new.CullMode || old.FrontFace != new.FrontFace {
		d.Fields |= FieldRaster
	}
	if old.Topology != new.Topology {
		d.Fields |= FieldTopology
	}
	if old.ColorMask != new.ColorMask {
		d.Fields |= FieldColorMask
	}
	if old.Viewport != new.Viewport {
		d.Fields |= FieldViewport
	}
	if old.ScissorTest != new.ScissorTest ||
		(new.ScissorTest && old.Scissor != new.Scissor) {
		d.Fields |= FieldScissor
	}
	if old.IndexBuffer != new.IndexBuffer ||
		(new.IndexBuffer.IsValid() && old.IndexFormat != new.IndexFormat) {
		d.Fields |= FieldIndexBuffer
	}

	for i := range new.VertexBuffers {
		if i >= len(old.VertexBuffers) || !bindingEqual(old.VertexBuffers[i], new.VertexBuffers[i]) {
			d.DirtySlots = append(d.DirtySlots, i)
		}
	}
	if len(d.DirtySlots) > 0 {
		d.Fields |= FieldVertexBuffers
	}

	for i := range new.TextureUnits {
		if i >= len(old.TextureUnits) || old.TextureUnits[i] != new.TextureUnits[i] {
			d.DirtyUnits = append(d.DirtyUnits, i)
		}
	}
	if len(d.DirtyUnits) > 0 {
		d.Fields |= FieldTextures
	}

	return d
}

package glium

import (
	"github.com/gogpu/gputypes"

	"github.com/glium/glium/pipeline"
	"github.com/glium/glium/program"
	"github.com/glium/glium/resource"
)

// Handle is an opaque, stable reference to a GPU-side object.
type Handle = resource.Handle

// Usage is the creation-time write-policy hint for buffers.
type Usage = resource.Usage

// Buffer usage hints.
const (
	UsageStatic     = resource.UsageStatic
	UsageDynamic    = resource.UsageDynamic
	UsagePersistent = resource.UsagePersistent
)

// VertexSource binds one vertex buffer together with the layout the
// shader reads it with. Slot order in DrawRequest.Vertices is the
// device slot order.
type VertexSource struct {
	Buffer Handle
	Layout gputypes.VertexBufferLayout
}

// IndexSource binds an index buffer for an indexed draw.
type IndexSource struct {
	Buffer Handle
	Format gputypes.IndexFormat

	// Count is the number of indices to draw.
	Count uint32

	// First is the index offset to start at.
	First uint32

	// BaseVertex is added to each index before vertex fetch.
	BaseVertex int32
}

type uniformKind uint8

const (
	uniformValue uniformKind = iota + 1
	uniformSampler
	uniformBlock
)

// Uniform is one named binding in a draw request: a literal value, a
// texture sampler, or a buffer-backed uniform block. Construct with
// UniformValue, Sampler or BlockBinding.
type Uniform struct {
	kind    uniformKind
	value   program.Value
	texture Handle
	buffer  Handle
	offset  int
	size    int
}

// UniformValue binds a literal uniform value.
func UniformValue(v program.Value) Uniform {
	return Uniform{kind: uniformValue, value: v}
}

// Sampler binds a texture to a sampler uniform. The texture unit is
// chosen by the emitter; callers never see unit numbers.
func Sampler(texture Handle) Uniform {
	return Uniform{kind: uniformSampler, texture: texture}
}

// BlockBinding binds a byte range of a buffer to a uniform block.
func BlockBinding(buffer Handle, offset, size int) Uniform {
	return Uniform{kind: uniformBlock, buffer: buffer, offset: offset, size: size}
}

// DrawRequest is a stateless, self-contained description of one draw.
// It is consumed immediately by Context.Draw and never retained.
type DrawRequest struct {
	// Program is the compiled program to draw with.
	Program Handle

	// Framebuffer is the render target; the zero handle selects the
	// default framebuffer.
	Framebuffer Handle

	// Vertices are the vertex buffers in slot order.
	Vertices []VertexSource

	// Index, when non-nil, makes this an indexed draw.
	Index *IndexSource

	// VertexCount is the number of vertices for a non-indexed draw.
	VertexCount uint32

	// FirstVertex is the first vertex for a non-indexed draw.
	FirstVertex uint32

	// InstanceCount is the number of instances; zero means one.
	InstanceCount uint32

	// Uniforms maps uniform and block names from the program's
	// reflection to their bindings.
	Uniforms map[string]Uniform

	// Params is the fixed-function state this draw requires.
	Params pipeline.Params
}

// Package program defines the shader reflection data the draw
// validator consumes and the uniform value types a draw request binds.
//
// Reflection is produced by the shader-compilation layer (this core
// does not parse shading languages); it lists the attributes, uniforms
// and uniform blocks a compiled program requires, with enough layout
// detail to reject mismatched bindings before any command is emitted.
package program

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

// UniformType is the shape of a uniform value: scalar, vector, matrix
// or sampler.
type UniformType uint8

const (
	TypeInvalid UniformType = iota
	TypeFloat
	TypeVec2
	TypeVec3
	TypeVec4
	TypeInt
	TypeIVec2
	TypeIVec3
	TypeIVec4
	TypeMat2
	TypeMat3
	TypeMat4
	TypeSampler2D
	TypeSamplerCube
)

// String returns the GLSL-style name of the type.
func (t UniformType) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeVec2:
		return "vec2"
	case TypeVec3:
		return "vec3"
	case TypeVec4:
		return "vec4"
	case TypeInt:
		return "int"
	case TypeIVec2:
		return "ivec2"
	case TypeIVec3:
		return "ivec3"
	case TypeIVec4:
		return "ivec4"
	case TypeMat2:
		return "mat2"
	case TypeMat3:
		return "mat3"
	case TypeMat4:
		return "mat4"
	case TypeSampler2D:
		return "sampler2D"
	case TypeSamplerCube:
		return "samplerCube"
	default:
		return "invalid"
	}
}

// IsSampler reports whether t names a texture sampler.
func (t UniformType) IsSampler() bool {
	return t == TypeSampler2D || t == TypeSamplerCube
}

// Attribute is one vertex input the program requires.
type Attribute struct {
	Name     string
	Location uint32
	Format   gputypes.VertexFormat
}

// Uniform is one plain (non-block) uniform the program requires.
type Uniform struct {
	Name string
	Type UniformType

	// ArrayLen is the element count for array uniforms, 0 otherwise.
	ArrayLen int
}

// BlockMember is one member of a uniform block, with the byte offset
// and array stride the compiled program expects.
type BlockMember struct {
	Name        string
	Type        UniformType
	Offset      int
	ArrayStride int
}

// Block is a uniform block (interface block) the program requires.
type Block struct {
	Name    string
	Binding uint32
	Size    int
	Members []BlockMember
}

// Layout renders the block layout in a compact, diffable form, e.g.
// "size=48 { color:vec4@0 mvp:mat4@16 }".
func (b *Block) Layout() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "size=%d {", b.Size)
	for _, m := range b.Members {
		fmt.Fprintf(&sb, " %s:%s@%d", m.Name, m.Type, m.Offset)
		if m.ArrayStride > 0 {
			fmt.Fprintf(&sb, "/%d", m.ArrayStride)
		}
	}
	sb.WriteString(" }")
	return sb.String()
}

// Reflection is everything the validator needs to know about a
// compiled program.
type Reflection struct {
	Attributes []Attribute
	Uniforms   []Uniform
	Blocks     []Block
}

// Block returns the named uniform block.
func (r *Reflection) Block(name string) (*Block, bool) {
	for i := range r.Blocks {
		if r.Blocks[i].Name == name {
			return &r.Blocks[i], true
		}
	}
	return nil, false
}

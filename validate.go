package glium

import (
	"fmt"

	"github.com/glium/glium/driver"
	"github.com/glium/glium/pipeline"
	"github.com/glium/glium/program"
	"github.com/glium/glium/resource"
)

// valueBinding is one literal uniform the draw sets.
type valueBinding struct {
	name  string
	value program.Value
}

// samplerBinding is one sampler uniform and the texture it reads.
type samplerBinding struct {
	name    string
	texture Handle
	cube    bool
}

// blockBinding is one uniform block and the buffer range backing it.
type blockBinding struct {
	binding uint32
	buffer  Handle
	offset  int
	size    int
}

// validatedDraw is a draw request that passed every check. Bindings
// are resolved into reflection order so emission is deterministic.
type validatedDraw struct {
	req  *DrawRequest
	refl *program.Reflection

	values   []valueBinding
	samplers []samplerBinding
	blocks   []blockBinding

	// textures lists the distinct textures the draw samples, in
	// reflection order.
	textures []Handle
}

// validate checks req against the registry and the program's
// reflection data. It is pure: no device calls, no state mutation, and
// the same request against the same registry state always yields the
// same verdict. Checks run cheapest first; the first failure wins.
func (c *Context) validate(req *DrawRequest) (*validatedDraw, error) {
	refl, err := c.reflection(req.Program)
	if err != nil {
		return nil, err
	}
	for _, vs := range req.Vertices {
		if !c.registry.Alive(vs.Buffer) {
			return nil, ErrInvalidHandle
		}
	}
	if req.Index != nil && !c.registry.Alive(req.Index.Buffer) {
		return nil, ErrInvalidHandle
	}

	// 1. Every attribute the program requires has a compatible source.
	for _, attr := range refl.Attributes {
		found := false
		for _, vs := range req.Vertices {
			for _, la := range vs.Layout.Attributes {
				if la.ShaderLocation != attr.Location {
					continue
				}
				if la.Format != attr.Format {
					return nil, &MissingAttributeError{
						Attribute: attr.Name,
						Detail: fmt.Sprintf("bound vertex format %v does not match shader format %v",
							la.Format, attr.Format),
					}
				}
				found = true
			}
		}
		if !found {
			return nil, &MissingAttributeError{Attribute: attr.Name}
		}
	}

	// 2. Every uniform and uniform block has a binding whose layout
	// matches.
	v := &validatedDraw{req: req, refl: refl}
	for _, u := range refl.Uniforms {
		bound, ok := req.Uniforms[u.Name]
		if !ok {
			return nil, &UniformLayoutMismatchError{
				Uniform:  u.Name,
				Expected: u.Type.String(),
				Got:      "nothing bound",
			}
		}
		if u.Type.IsSampler() {
			if bound.kind != uniformSampler {
				return nil, &UniformLayoutMismatchError{
					Uniform:  u.Name,
					Expected: u.Type.String(),
					Got:      describeBinding(bound),
				}
			}
			v.samplers = append(v.samplers, samplerBinding{
				name:    u.Name,
				texture: bound.texture,
				cube:    u.Type == program.TypeSamplerCube,
			})
			continue
		}
		if bound.kind != uniformValue || bound.value.Type != u.Type {
			return nil, &UniformLayoutMismatchError{
				Uniform:  u.Name,
				Expected: u.Type.String(),
				Got:      describeBinding(bound),
			}
		}
		v.values = append(v.values, valueBinding{name: u.Name, value: bound.value})
	}
	for i := range refl.Blocks {
		b := &refl.Blocks[i]
		bound, ok := req.Uniforms[b.Name]
		if !ok {
			return nil, &UniformLayoutMismatchError{
				Uniform:  b.Name,
				Expected: b.Layout(),
				Got:      "nothing bound",
			}
		}
		if bound.kind != uniformBlock {
			return nil, &UniformLayoutMismatchError{
				Uniform:  b.Name,
				Expected: b.Layout(),
				Got:      describeBinding(bound),
			}
		}
		if bound.size < b.Size {
			return nil, &UniformLayoutMismatchError{
				Uniform:  b.Name,
				Expected: b.Layout(),
				Got:      fmt.Sprintf("size=%d", bound.size),
			}
		}
		if !c.registry.Alive(bound.buffer) {
			return nil, ErrInvalidHandle
		}
		v.blocks = append(v.blocks, blockBinding{
			binding: b.Binding,
			buffer:  bound.buffer,
			offset:  bound.offset,
			size:    bound.size,
		})
	}

	// 3. Requested fixed-function features exist on this device and the
	// vertex streams fit its binding table.
	if len(req.Vertices) > c.caps.MaxVertexBuffers {
		return nil, &UnsupportedFeatureError{
			Feature: fmt.Sprintf("%d vertex buffers (device has %d slots)",
				len(req.Vertices), c.caps.MaxVertexBuffers),
		}
	}
	if err := c.checkFeatures(&req.Params); err != nil {
		return nil, err
	}

	// 4. Texture bindings fit the unit table and no texture is bound
	// under two incompatible sampler types.
	samplerType := make(map[Handle]bool, len(v.samplers))
	for _, s := range v.samplers {
		if !c.registry.Alive(s.texture) {
			return nil, &TextureBindingError{
				Reason: fmt.Sprintf("sampler %q references destroyed texture %v", s.name, s.texture),
			}
		}
		if cube, seen := samplerType[s.texture]; seen && cube != s.cube {
			return nil, &TextureBindingError{
				Reason: fmt.Sprintf("texture %v bound as both sampler2D and samplerCube", s.texture),
			}
		}
		if _, seen := samplerType[s.texture]; !seen {
			samplerType[s.texture] = s.cube
			v.textures = append(v.textures, s.texture)
		}
	}
	if len(v.textures) > c.caps.MaxTextureUnits {
		return nil, &TextureBindingError{
			Reason: fmt.Sprintf("draw needs %d texture units, device has %d",
				len(v.textures), c.caps.MaxTextureUnits),
		}
	}

	// 5. Framebuffer attachments share compatible dimensions.
	if req.Framebuffer.IsValid() {
		desc, err := c.registry.Describe(req.Framebuffer)
		if err != nil {
			return nil, err
		}
		if desc.Kind != resource.KindFramebuffer {
			return nil, ErrInvalidHandle
		}
		for i := 1; i < len(desc.Attachments); i++ {
			a0, ai := desc.Attachments[0], desc.Attachments[i]
			if ai.Width != a0.Width || ai.Height != a0.Height {
				return nil, &FramebufferMismatchError{
					Detail: fmt.Sprintf("attachment %d is %dx%d, attachment 0 is %dx%d",
						i, ai.Width, ai.Height, a0.Width, a0.Height),
				}
			}
		}
	}

	return v, nil
}

// checkFeatures rejects capability-gated draw parameters the device
// cannot honor.
func (c *Context) checkFeatures(p *pipeline.Params) error {
	if p.DepthClamp && !c.caps.Features.Has(driver.FeatureDepthClamp) {
		return &UnsupportedFeatureError{Feature: "depth clamping"}
	}
	if p.Smooth && !c.caps.Features.Has(driver.FeatureSmoothPrimitives) {
		return &UnsupportedFeatureError{Feature: "smooth primitives"}
	}
	if p.Multisample && !c.caps.Features.Has(driver.FeatureMultisample) {
		return &UnsupportedFeatureError{Feature: "multisampling"}
	}
	if p.ClipDistances > 0 && !c.caps.Features.Has(driver.FeatureClipDistances) {
		return &UnsupportedFeatureError{
			Feature: fmt.Sprintf("%d clip distances", p.ClipDistances),
		}
	}
	if p.Anisotropy > 1 && !c.caps.Features.Has(driver.FeatureAnisotropicFiltering) {
		return &UnsupportedFeatureError{
			Feature: fmt.Sprintf("%dx anisotropic filtering", p.Anisotropy),
		}
	}
	return nil
}

// describeBinding renders what a request actually bound, for layout
// mismatch diagnostics.
func describeBinding(u Uniform) string {
	switch u.kind {
	case uniformValue:
		return u.value.Type.String()
	case uniformSampler:
		return "sampler binding"
	case uniformBlock:
		return fmt.Sprintf("block binding size=%d", u.size)
	default:
		return "nothing bound"
	}
}

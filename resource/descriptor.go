package resource

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Descriptor carries the per-object metadata the registry keeps for
// validation. It is created once at resource creation and mutated only
// by the registry itself.
type Descriptor struct {
	// Kind selects which of the remaining fields are meaningful.
	Kind Kind

	// Label is an optional debug label.
	Label string

	// Size is the byte size for buffers.
	Size int

	// Usage is the buffer write-policy hint. Ignored for non-buffers.
	Usage Usage

	// Width and Height are the dimensions for textures.
	Width  uint32
	Height uint32

	// Format is the texel format for textures.
	Format gputypes.TextureFormat

	// RenderTarget marks a texture usable as a framebuffer attachment.
	RenderTarget bool

	// SampleCount is the multisample count for textures (0 means 1).
	SampleCount uint32

	// Attachments lists the color/depth attachments of a framebuffer.
	Attachments []Attachment
}

// Attachment records one framebuffer attachment and the dimensions it
// had at framebuffer creation. The draw validator compares these.
type Attachment struct {
	Target Handle
	Width  uint32
	Height uint32
}

// CreationError reports a descriptor the device would reject. It is
// detected before any device call is made, so a failed creation has no
// device-side effect and the caller may retry with other parameters.
type CreationError struct {
	Kind   Kind
	Reason string
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("glium: cannot create %s: %s", e.Kind, e.Reason)
}

// Limits is the subset of the device capability set the registry needs
// for creation-time validation.
type Limits struct {
	MaxBufferSize          uint64
	MaxTextureDimension2D  uint32
	MaxFramebufferAttached int
}

// validate checks d against the limits. It mirrors the device's own
// rejection rules so errors surface as typed values instead of device
// error codes.
func (d *Descriptor) validate(lim Limits) error {
	switch d.Kind {
	case KindBuffer:
		if d.Size <= 0 {
			return &CreationError{Kind: d.Kind, Reason: "zero-sized buffer"}
		}
		if lim.MaxBufferSize > 0 && uint64(d.Size) > lim.MaxBufferSize {
			return &CreationError{
				Kind:   d.Kind,
				Reason: fmt.Sprintf("size %d exceeds device limit %d", d.Size, lim.MaxBufferSize),
			}
		}
	case KindTexture:
		if d.Width == 0 || d.Height == 0 {
			return &CreationError{Kind: d.Kind, Reason: "zero-sized texture"}
		}
		if lim.MaxTextureDimension2D > 0 &&
			(d.Width > lim.MaxTextureDimension2D || d.Height > lim.MaxTextureDimension2D) {
			return &CreationError{
				Kind: d.Kind,
				Reason: fmt.Sprintf("dimensions %dx%d exceed device limit %d",
					d.Width, d.Height, lim.MaxTextureDimension2D),
			}
		}
		if d.Format == gputypes.TextureFormatUndefined {
			return &CreationError{Kind: d.Kind, Reason: "undefined texel format"}
		}
	case KindProgram:
		// Program descriptors are validated by the shader-compilation
		// layer; nothing to reject here.
	case KindFramebuffer:
		if len(d.Attachments) == 0 {
			return &CreationError{Kind: d.Kind, Reason: "framebuffer without attachments"}
		}
		if lim.MaxFramebufferAttached > 0 && len(d.Attachments) > lim.MaxFramebufferAttached {
			return &CreationError{
				Kind: d.Kind,
				Reason: fmt.Sprintf("%d attachments exceed device limit %d",
					len(d.Attachments), lim.MaxFramebufferAttached),
			}
		}
	default:
		return &CreationError{Kind: d.Kind, Reason: "unknown resource kind"}
	}
	return nil
}

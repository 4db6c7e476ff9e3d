package glium

import (
	"errors"
	"fmt"

	"github.com/glium/glium/fence"
	"github.com/glium/glium/resource"
)

// ErrClosed is returned by operations on a closed context.
var ErrClosed = errors.New("glium: context closed")

// Errors shared with the sub-packages that produce them.
var (
	// ErrContextLost marks the current session as dead: every handle
	// is invalid and must be recreated against a new context.
	ErrContextLost = fence.ErrContextLost

	// ErrUnknownFence is returned when waiting on a fence token the
	// context never issued.
	ErrUnknownFence = fence.ErrUnknownFence

	// ErrInvalidHandle is returned for stale or foreign handles.
	ErrInvalidHandle = resource.ErrInvalidHandle

	// ErrDestroyed is returned for handles already queued for
	// destruction.
	ErrDestroyed = resource.ErrDestroyed
)

// CreationError reports a resource descriptor the device would reject.
type CreationError = resource.CreationError

// TimeoutError reports a fence wait that exceeded its budget.
type TimeoutError = fence.TimeoutError

// DrawError is implemented by every draw validation failure. A failed
// draw is simply not issued: device state, state cache and command
// queue are untouched, and the error names a machine-distinguishable
// reason.
type DrawError interface {
	error
	drawError()
}

// MissingAttributeError reports a vertex attribute the program
// requires but the request does not supply compatibly.
type MissingAttributeError struct {
	Attribute string

	// Detail is empty for an unbound attribute, otherwise it explains
	// the incompatibility.
	Detail string
}

func (e *MissingAttributeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("glium: draw rejected: no vertex source bound for attribute %q", e.Attribute)
	}
	return fmt.Sprintf("glium: draw rejected: attribute %q: %s", e.Attribute, e.Detail)
}

// UniformLayoutMismatchError reports a uniform or uniform block whose
// bound value does not match the layout the program expects. Expected
// and Got render both layouts so the difference is inspectable.
type UniformLayoutMismatchError struct {
	Uniform  string
	Expected string
	Got      string
}

func (e *UniformLayoutMismatchError) Error() string {
	return fmt.Sprintf("glium: draw rejected: uniform %q layout mismatch: expected %s, got %s",
		e.Uniform, e.Expected, e.Got)
}

// UnsupportedFeatureError reports a requested fixed-function feature
// the device capability set does not include.
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("glium: draw rejected: device does not support %s", e.Feature)
}

// TextureBindingError reports texture bindings that cannot be realized
// on the device, such as more distinct textures than texture units or
// one texture bound under two incompatible sampler types.
type TextureBindingError struct {
	Reason string
}

func (e *TextureBindingError) Error() string {
	return "glium: draw rejected: " + e.Reason
}

// FramebufferMismatchError reports a framebuffer whose attachments do
// not share compatible dimensions.
type FramebufferMismatchError struct {
	Detail string
}

func (e *FramebufferMismatchError) Error() string {
	return "glium: draw rejected: " + e.Detail
}

func (*MissingAttributeError) drawError()      {}
func (*UniformLayoutMismatchError) drawError() {}
func (*UnsupportedFeatureError) drawError()    {}
func (*TextureBindingError) drawError()        {}
func (*FramebufferMismatchError) drawError()   {}

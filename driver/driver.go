// Copyright 2026 The glium Authors
// SPDX-License-Identifier: MIT

// Package driver defines the device interface the command consumer
// drives, plus a registry so device implementations can self-register
// from init functions.
package driver

import (
	"errors"

	"github.com/glium/glium/fence"
	"github.com/glium/glium/queue"
)

// ErrDeviceNotAvailable is returned when no usable device is
// registered.
var ErrDeviceNotAvailable = errors.New("glium: no device available")

// Feature is a capability bit an implementation may or may not expose.
type Feature uint32

const (
	FeatureDepthClamp Feature = 1 << iota
	FeatureMultisample
	FeatureSmoothPrimitives
	FeatureClipDistances
	FeatureAnisotropicFiltering
)

// Has reports whether all bits of want are set.
func (f Feature) Has(want Feature) bool {
	return f&want == want
}

// Capabilities describes device limits queried once at startup. The
// validator and resource registry enforce them; the device never sees
// work that exceeds them.
type Capabilities struct {
	MaxTextureUnits       int
	MaxTextureDimension2D uint32
	MaxBufferSize         int
	MaxColorAttachments   int
	MaxVertexBuffers      int
	Features              Feature
}

// DefaultCapabilities are the baseline limits every conforming device
// supports.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		MaxTextureUnits:       16,
		MaxTextureDimension2D: 8192,
		MaxBufferSize:         256 << 20,
		MaxColorAttachments:   4,
		MaxVertexBuffers:      8,
	}
}

// FenceFunc is invoked by a device when a fence point has retired on
// the hardware, in submission order.
type FenceFunc func(id fence.ID)

// Device is one rendering device implementation. Execute is called by
// exactly one goroutine, in strict command order; implementations need
// no internal command serialization.
type Device interface {
	// Name identifies the implementation, e.g. "wgpu" or "null".
	Name() string

	// Init acquires the underlying device. Called once before any
	// Execute.
	Init() error

	// Close releases everything. No Execute calls follow.
	Close() error

	// Capabilities reports device limits. Valid after Init.
	Capabilities() Capabilities

	// OnFenceRetire registers the callback for fence retirement.
	// Called once, before the first Execute.
	OnFenceRetire(fn FenceFunc)

	// Execute runs one command. A returned error marks the device
	// lost; the consumer stops issuing work after the first failure.
	Execute(cmd queue.Command) error
}

// Factory creates a device instance, or nil if the implementation is
// unavailable on this platform.
type Factory func() Device

package resource

import "fmt"

// Handle is an opaque, stable reference to a GPU-side object.
//
// Handles are indices into the registry's slot table paired with a
// generation counter. A slot's generation is bumped every time its
// storage is actually released, so a stale handle kept around by the
// application can never alias a newer object that happens to reuse
// the same slot.
//
// The zero Handle is invalid and never returned by the registry.
type Handle struct {
	index      uint32
	generation uint32
}

// IsValid reports whether h could have been produced by a registry.
// It does not check liveness; use Registry.Alive for that.
func (h Handle) IsValid() bool { return h.generation != 0 }

// String returns a debug representation such as "res(3@2)".
func (h Handle) String() string {
	return fmt.Sprintf("res(%d@%d)", h.index, h.generation)
}

// BackingID identifies one concrete device-side allocation.
//
// A Handle's backing can change over its lifetime (reallocate-and-swap
// on write-heavy buffers); commands in the queue always reference the
// backing that was current when they were recorded, so in-flight reads
// of an orphaned allocation stay well-defined.
type BackingID uint64

// Kind enumerates the object kinds the registry manages.
type Kind uint8

const (
	KindBuffer Kind = iota + 1
	KindTexture
	KindProgram
	KindFramebuffer
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindTexture:
		return "texture"
	case KindProgram:
		return "program"
	case KindFramebuffer:
		return "framebuffer"
	default:
		return "unknown"
	}
}

// Usage is the creation-time hint that drives the registry's
// write policy (wait versus reallocate-and-swap, see Registry.Write
// callers) and the fence granularity applied to the object.
type Usage uint8

const (
	// UsageStatic marks data written once and read many times.
	// Rewrites are expected to be rare and may block on fences.
	UsageStatic Usage = iota

	// UsageDynamic marks write-heavy streaming data. Rewriting a range
	// that is still read by the GPU reallocates the backing instead of
	// stalling.
	UsageDynamic

	// UsagePersistent marks persistently mapped memory. The backing is
	// never swapped (its identity must remain stable) and writes are
	// synchronized per sub-range.
	UsagePersistent
)

// String returns the lower-case usage name.
func (u Usage) String() string {
	switch u {
	case UsageStatic:
		return "static"
	case UsageDynamic:
		return "dynamic"
	case UsagePersistent:
		return "persistent"
	default:
		return "unknown"
	}
}

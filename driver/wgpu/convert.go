package wgpu

import (
	"github.com/gogpu/gputypes"
	types "github.com/gogpu/gputypes"

	"github.com/glium/glium/resource"
)

// bufferUsage maps a buffer's usage hint to HAL usage flags. Every
// buffer is copyable in both directions so the reallocate-and-swap
// write path and readback can reach it.
func bufferUsage(usage resource.Usage) types.BufferUsage {
	u := types.BufferUsageVertex |
		types.BufferUsageIndex |
		types.BufferUsageUniform |
		types.BufferUsageCopySrc |
		types.BufferUsageCopyDst
	if usage == resource.UsagePersistent {
		u |= types.BufferUsageMapWrite
	}
	return u
}

// textureUsage maps a texture descriptor to HAL usage flags.
func textureUsage(renderTarget bool) types.TextureUsage {
	u := types.TextureUsageTextureBinding |
		types.TextureUsageCopySrc |
		types.TextureUsageCopyDst
	if renderTarget {
		u |= types.TextureUsageRenderAttachment
	}
	return u
}

// textureFormat maps the public format enum to the HAL one.
func textureFormat(format gputypes.TextureFormat) types.TextureFormat {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm:
		return types.TextureFormatRGBA8Unorm
	case gputypes.TextureFormatBGRA8Unorm:
		return types.TextureFormatBGRA8Unorm
	case gputypes.TextureFormatR8Unorm:
		return types.TextureFormatR8Unorm
	case gputypes.TextureFormatDepth24PlusStencil8:
		return types.TextureFormatDepth24PlusStencil8
	default:
		return types.TextureFormatRGBA8Unorm
	}
}

// formatBytesPerPixel returns the texel size of the supported formats.
func formatBytesPerPixel(format gputypes.TextureFormat) uint32 {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1
	default:
		return 4
	}
}

// Copyright 2026 The glium Authors
// SPDX-License-Identifier: MIT

// Package wgpu implements the device interface on top of gogpu/wgpu's
// hardware abstraction layer.
//
// The device is obtained from a gpucontext.DeviceProvider that also
// exposes the underlying HAL handles, which lets an application share
// one GPU device between this library and a windowing stack:
//
//	wgpudrv.SetProvider(app.GPUContextProvider())
//	ctx, err := glium.NewContext()
//
// Importing this package registers the "wgpu" device with the driver
// registry.
package wgpu

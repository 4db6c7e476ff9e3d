// Copyright 2026 The glium Authors
// SPDX-License-Identifier: MIT

// Package glium is a safe rendering abstraction over a stateful GPU
// device.
//
// Callers never mutate device state directly. Every draw is a
// stateless, self-contained request describing the desired end state;
// the library validates it, diffs it against what the device was last
// told, and enqueues only the state-change commands actually needed
// before the draw itself. A single consumer goroutine feeds the device
// in strict submission order.
//
// Resource handles are stable and generation-checked; destroying a
// handle defers the actual release until no in-flight GPU work
// references it. Buffer writes are synchronized per byte range, so
// persistently mapped memory can be streamed without whole-buffer
// stalls.
//
// Basic usage:
//
//	ctx, err := glium.NewContext()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	vbo, _ := ctx.CreateBuffer(len(verts), glium.UsageStatic)
//	_ = ctx.Write(vbo, 0, verts)
//
//	err = ctx.Draw(&glium.DrawRequest{
//		Program:     prog,
//		Vertices:    []glium.VertexSource{{Buffer: vbo, Layout: layout}},
//		VertexCount: 3,
//		Uniforms: map[string]glium.Uniform{
//			"mvp": glium.UniformValue(program.Mat4(mvp)),
//		},
//		Params: pipeline.DefaultParams(),
//	})
package glium

package glium

import (
	"fmt"

	"github.com/glium/glium/fence"
	"github.com/glium/glium/pipeline"
	"github.com/glium/glium/program"
	"github.com/glium/glium/queue"
	"github.com/glium/glium/resource"
)

// blockBind is the device-visible binding of one uniform block slot.
type blockBind struct {
	backing resource.BackingID
	offset  int
	size    int
}

// emit diffs the validated draw against the state cache and enqueues
// only the state-change commands needed, then the draw itself. The
// whole computation runs under emitMu so two callers can never derive
// conflicting deltas from the same snapshot, and the fence covering
// the draw's resources is registered atomically with the enqueue.
func (c *Context) emit(v *validatedDraw) error {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	cur := c.cache.Current()
	next := v.req.Params.Apply(cur)
	next.Program = v.req.Program
	next.Framebuffer = v.req.Framebuffer

	for i, vs := range v.req.Vertices {
		next.VertexBuffers[i] = pipeline.VertexBinding{Buffer: vs.Buffer, Layout: vs.Layout}
	}
	if v.req.Index != nil {
		next.IndexBuffer = v.req.Index.Buffer
		next.IndexFormat = v.req.Index.Format
	} else {
		next.IndexBuffer = Handle{}
	}

	units, ok := c.units.Assign(cur.TextureUnits, v.textures)
	if !ok {
		// The validator bounds the distinct texture count, so running
		// out of units here is a bookkeeping bug, not a caller error.
		return &TextureBindingError{
			Reason: fmt.Sprintf("unit allocator failed for %d textures", len(v.textures)),
		}
	}
	unitOf := make(map[Handle]int, len(v.textures))
	for i, tex := range v.textures {
		next.TextureUnits[units[i]] = tex
		unitOf[tex] = units[i]
	}

	delta := pipeline.Diff(&cur, &next)

	cmds, err := c.stateCommands(&next, delta)
	if err != nil {
		return err
	}

	uniformCmds, commitUniforms, err := c.uniformCommands(v, unitOf)
	if err != nil {
		return err
	}
	cmds = append(cmds, uniformCmds...)

	cmds = append(cmds, drawCommand(v.req))

	touches, err := c.drawTouches(v)
	if err != nil {
		return err
	}
	fid := c.fences.Create(touches...)
	cmds = append(cmds, queue.SignalFence{Fence: fid})

	c.q.Push(cmds...)

	// Cache updates strictly follow the enqueue: the cache records
	// queued state, never intended state.
	c.cache.Commit(next)
	commitUniforms()

	Logger().Debug("draw emitted",
		"commands", len(cmds),
		"changed_fields", delta.Fields.Count(),
		"fence", fid)
	return nil
}

// stateCommands translates a delta into one command per differing
// field group.
func (c *Context) stateCommands(next *pipeline.State, delta pipeline.Delta) ([]queue.Command, error) {
	var cmds []queue.Command

	if delta.Fields&pipeline.FieldProgram != 0 {
		backing, err := c.registry.Backing(next.Program)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, queue.UseProgram{Program: backing})
	}
	if delta.Fields&pipeline.FieldFramebuffer != 0 {
		var backing resource.BackingID
		if next.Framebuffer.IsValid() {
			b, err := c.registry.Backing(next.Framebuffer)
			if err != nil {
				return nil, err
			}
			backing = b
		}
		cmds = append(cmds, queue.BindFramebuffer{Framebuffer: backing})
	}
	if delta.Fields&pipeline.FieldDepth != 0 {
		cmds = append(cmds, queue.SetDepth{
			Enabled: next.DepthTest,
			Compare: next.DepthCompare,
			Write:   next.DepthWrite,
		})
	}
	if delta.Fields&pipeline.FieldBlend != 0 {
		cmds = append(cmds, queue.SetBlend{Enabled: next.Blend, State: next.BlendState})
	}
	if delta.Fields&pipeline.FieldStencil != 0 {
		cmds = append(cmds, queue.SetStencil{
			Enabled:     next.StencilTest,
			Compare:     next.StencilCompare,
			FailOp:      next.StencilFailOp,
			DepthFailOp: next.StencilDepthFailOp,
			PassOp:      next.StencilPassOp,
			Reference:   next.StencilReference,
		})
	}
	if delta.Fields&pipeline.FieldRaster != 0 {
		cmds = append(cmds, queue.SetRaster{Cull: next.CullMode, Front: next.FrontFace})
	}
	if delta.Fields&pipeline.FieldTopology != 0 {
		cmds = append(cmds, queue.SetTopology{Topology: next.Topology})
	}
	if delta.Fields&pipeline.FieldColorMask != 0 {
		cmds = append(cmds, queue.SetColorMask{Mask: next.ColorMask})
	}
	if delta.Fields&pipeline.FieldViewport != 0 {
		cmds = append(cmds, queue.SetViewport{Rect: next.Viewport})
	}
	if delta.Fields&pipeline.FieldScissor != 0 {
		cmds = append(cmds, queue.SetScissor{Enabled: next.ScissorTest, Rect: next.Scissor})
	}
	if delta.Fields&pipeline.FieldIndexBuffer != 0 {
		var backing resource.BackingID
		if next.IndexBuffer.IsValid() {
			b, err := c.registry.Backing(next.IndexBuffer)
			if err != nil {
				return nil, err
			}
			backing = b
		}
		cmds = append(cmds, queue.BindIndexBuffer{Buffer: backing, Format: next.IndexFormat})
	}
	for _, slot := range delta.DirtySlots {
		binding := next.VertexBuffers[slot]
		var backing resource.BackingID
		if binding.Buffer.IsValid() {
			b, err := c.registry.Backing(binding.Buffer)
			if err != nil {
				return nil, err
			}
			backing = b
		}
		cmds = append(cmds, queue.BindVertexBuffer{
			Slot:   slot,
			Buffer: backing,
			Layout: binding.Layout,
		})
	}
	for _, unit := range delta.DirtyUnits {
		tex := next.TextureUnits[unit]
		var backing resource.BackingID
		if tex.IsValid() {
			b, err := c.registry.Backing(tex)
			if err != nil {
				return nil, err
			}
			backing = b
		}
		cmds = append(cmds, queue.BindTexture{Unit: unit, Texture: backing})
	}
	return cmds, nil
}

// uniformCommands diffs the draw's uniform bindings against the
// per-program device state and returns the commands plus a commit
// closure the caller invokes after the enqueue succeeded.
func (c *Context) uniformCommands(v *validatedDraw, unitOf map[Handle]int) ([]queue.Command, func(), error) {
	prog := v.req.Program
	values := c.uniformCache[prog]
	samplers := c.samplerCache[prog]

	var cmds []queue.Command
	pendingValues := make([]valueBinding, 0, len(v.values))
	for _, vb := range v.values {
		if cached, ok := values[vb.name]; ok && cached == vb.value {
			continue
		}
		cmds = append(cmds, queue.SetUniform{Name: vb.name, Value: vb.value})
		pendingValues = append(pendingValues, vb)
	}

	type samplerUnit struct {
		name string
		unit int
	}
	pendingSamplers := make([]samplerUnit, 0, len(v.samplers))
	for _, s := range v.samplers {
		unit := unitOf[s.texture]
		if cached, ok := samplers[s.name]; ok && cached == unit {
			continue
		}
		cmds = append(cmds, queue.SetSamplerUnit{Name: s.name, Unit: unit})
		pendingSamplers = append(pendingSamplers, samplerUnit{name: s.name, unit: unit})
	}

	pendingBlocks := make(map[uint32]blockBind, len(v.blocks))
	for _, b := range v.blocks {
		backing, err := c.registry.Backing(b.buffer)
		if err != nil {
			return nil, nil, err
		}
		want := blockBind{backing: backing, offset: b.offset, size: b.size}
		if c.blockCache[b.binding] == want {
			continue
		}
		cmds = append(cmds, queue.BindUniformBlock{
			Binding: b.binding,
			Buffer:  backing,
			Offset:  b.offset,
			Size:    b.size,
		})
		pendingBlocks[b.binding] = want
	}

	commit := func() {
		if len(pendingValues) > 0 && c.uniformCache[prog] == nil {
			c.uniformCache[prog] = make(map[string]program.Value)
		}
		for _, vb := range pendingValues {
			c.uniformCache[prog][vb.name] = vb.value
		}
		if len(pendingSamplers) > 0 && c.samplerCache[prog] == nil {
			c.samplerCache[prog] = make(map[string]int)
		}
		for _, s := range pendingSamplers {
			c.samplerCache[prog][s.name] = s.unit
		}
		for binding, want := range pendingBlocks {
			c.blockCache[binding] = want
		}
	}
	return cmds, commit, nil
}

// drawCommand builds the draw itself from the request.
func drawCommand(req *DrawRequest) queue.Command {
	inst := req.InstanceCount
	if inst == 0 {
		inst = 1
	}
	if req.Index != nil {
		return queue.Draw{
			Indexed:       true,
			IndexCount:    req.Index.Count,
			FirstIndex:    req.Index.First,
			BaseVertex:    req.Index.BaseVertex,
			InstanceCount: inst,
		}
	}
	return queue.Draw{
		VertexCount:   req.VertexCount,
		FirstVertex:   req.FirstVertex,
		InstanceCount: inst,
	}
}

// drawTouches lists every (resource, range, mode) the draw references,
// for fence registration.
func (c *Context) drawTouches(v *validatedDraw) ([]fence.Touch, error) {
	var touches []fence.Touch
	for _, vs := range v.req.Vertices {
		touches = append(touches, fence.Touch{
			Resource: vs.Buffer, Range: fence.WholeResource, Mode: fence.ModeRead,
		})
	}
	if v.req.Index != nil {
		touches = append(touches, fence.Touch{
			Resource: v.req.Index.Buffer, Range: fence.WholeResource, Mode: fence.ModeRead,
		})
	}
	for _, b := range v.blocks {
		touches = append(touches, fence.Touch{
			Resource: b.buffer,
			Range:    fence.Range{Start: b.offset, End: b.offset + b.size},
			Mode:     fence.ModeRead,
		})
	}
	for _, tex := range v.textures {
		touches = append(touches, fence.Touch{
			Resource: tex, Range: fence.WholeResource, Mode: fence.ModeRead,
		})
	}
	if v.req.Framebuffer.IsValid() {
		desc, err := c.registry.Describe(v.req.Framebuffer)
		if err != nil {
			return nil, err
		}
		for _, att := range desc.Attachments {
			touches = append(touches, fence.Touch{
				Resource: att.Target, Range: fence.WholeResource, Mode: fence.ModeWrite,
			})
		}
	}
	return touches, nil
}

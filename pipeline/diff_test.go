package pipeline

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/glium/glium/resource"
)

func testHandles(t *testing.T, n int) []resource.Handle {
	t.Helper()
	r := resource.NewRegistry(resource.Limits{})
	out := make([]resource.Handle, n)
	for i := range out {
		h, _, err := r.Create(resource.Descriptor{Kind: resource.KindBuffer, Size: 16})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		out[i] = h
	}
	return out
}

func TestDiffIdenticalStatesIsEmpty(t *testing.T) {
	hs := testHandles(t, 3)
	s := NewState(4, 2)
	s.Program = hs[0]
	s.VertexBuffers[0] = VertexBinding{Buffer: hs[1]}
	s.TextureUnits[2] = hs[2]

	same := s.Clone()
	d := Diff(&s, &same)
	if !d.Empty() {
		t.Fatalf("Diff(identical) = %+v, want empty", d)
	}
}

func TestDiffFlagsOnlyChangedFields(t *testing.T) {
	hs := testHandles(t, 2)

	tests := []struct {
		name   string
		mutate func(*State)
		want   Field
	}{
		{"program", func(s *State) { s.Program = hs[0] }, FieldProgram},
		{"framebuffer", func(s *State) { s.Framebuffer = hs[0] }, FieldFramebuffer},
		{"depth compare", func(s *State) { s.DepthTest = true; s.DepthCompare = gputypes.CompareFunctionLess }, FieldDepth},
		{"blend toggle", func(s *State) { s.Blend = true }, FieldBlend},
		{"stencil reference", func(s *State) { s.StencilTest = true; s.StencilReference = 1 }, FieldStencil},
		{"cull mode", func(s *State) { s.CullMode = gputypes.CullModeBack }, FieldRaster},
		{"topology", func(s *State) { s.Topology = gputypes.PrimitiveTopologyLineList }, FieldTopology},
		{"color mask", func(s *State) { s.ColorMask = 0 }, FieldColorMask},
		{"viewport", func(s *State) { s.Viewport = Rect{Width: 800, Height: 600} }, FieldViewport},
		{"scissor", func(s *State) { s.ScissorTest = true; s.Scissor = Rect{Width: 10, Height: 10} }, FieldScissor},
		{"index buffer", func(s *State) { s.IndexBuffer = hs[1] }, FieldIndexBuffer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := NewState(4, 2)
			next := old.Clone()
			tt.mutate(&next)

			d := Diff(&old, &next)
			if d.Fields != tt.want {
				t.Errorf("Diff().Fields = %b, want %b", d.Fields, tt.want)
			}
			if d.Fields.Count() != 1 {
				t.Errorf("Count() = %d, want 1", d.Fields.Count())
			}
		})
	}
}

func TestDiffListsDirtySlotsAndUnits(t *testing.T) {
	hs := testHandles(t, 2)
	old := NewState(4, 3)
	next := old.Clone()
	next.VertexBuffers[1] = VertexBinding{Buffer: hs[0]}
	next.TextureUnits[0] = hs[1]
	next.TextureUnits[3] = hs[1]

	d := Diff(&old, &next)
	if d.Fields != FieldVertexBuffers|FieldTextures {
		t.Fatalf("Fields = %b, want vertex buffers and textures", d.Fields)
	}
	if len(d.DirtySlots) != 1 || d.DirtySlots[0] != 1 {
		t.Errorf("DirtySlots = %v, want [1]", d.DirtySlots)
	}
	if len(d.DirtyUnits) != 2 || d.DirtyUnits[0] != 0 || d.DirtyUnits[1] != 3 {
		t.Errorf("DirtyUnits = %v, want [0 3]", d.DirtyUnits)
	}
}

func TestDiffIgnoresScissorRectWhileDisabled(t *testing.T) {
	old := NewState(1, 1)
	next := old.Clone()
	next.Scissor = Rect{Width: 10, Height: 10} // disabled, rect irrelevant

	if d := Diff(&old, &next); !d.Empty() {
		t.Errorf("Diff() = %+v, want empty while scissor disabled", d)
	}
}

func TestLayoutEqualComparesAttributes(t *testing.T) {
	a := gputypes.VertexBufferLayout{
		ArrayStride: 20,
		Attributes: []gputypes.VertexAttribute{
			{ShaderLocation: 0, Format: gputypes.VertexFormatFloat32x3, Offset: 0},
			{ShaderLocation: 1, Format: gputypes.VertexFormatFloat32x2, Offset: 12},
		},
	}
	b := a
	b.Attributes = append([]gputypes.VertexAttribute(nil), a.Attributes...)
	if !layoutEqual(a, b) {
		t.Error("layoutEqual() = false for equal layouts")
	}

	b.Attributes[1].Offset = 16
	if layoutEqual(a, b) {
		t.Error("layoutEqual() = true for differing attribute offsets")
	}
}

func TestCacheCommitAndInvalidate(t *testing.T) {
	hs := testHandles(t, 1)
	c := NewCache(2, 2)

	next := c.Current()
	next.Program = hs[0]
	c.Commit(next)

	got := c.Current()
	if got.Program != hs[0] {
		t.Fatalf("Current().Program = %v, want %v", got.Program, hs[0])
	}

	// Snapshots are independent of the cache's own copy.
	got.TextureUnits[0] = hs[0]
	if c.Current().TextureUnits[0] == hs[0] {
		t.Error("mutating a snapshot leaked into the cache")
	}

	c.InvalidateViewport()
	if d := Diff(&got, &next); d.Fields&FieldViewport != 0 {
		t.Log("sanity: unrelated states may differ")
	}
	cur := c.Current()
	if cur.Viewport.X != -1 || cur.Viewport.Y != -1 {
		t.Errorf("Viewport after invalidate = %+v, want sentinel", cur.Viewport)
	}
}

package program

import "testing"

func TestUniformTypeString(t *testing.T) {
	tests := []struct {
		typ  UniformType
		want string
	}{
		{TypeFloat, "float"},
		{TypeVec4, "vec4"},
		{TypeIVec2, "ivec2"},
		{TypeMat4, "mat4"},
		{TypeSampler2D, "sampler2D"},
		{TypeSamplerCube, "samplerCube"},
		{TypeInvalid, "invalid"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestIsSampler(t *testing.T) {
	if !TypeSampler2D.IsSampler() || !TypeSamplerCube.IsSampler() {
		t.Error("sampler types not recognized")
	}
	if TypeVec4.IsSampler() {
		t.Error("vec4 reported as sampler")
	}
}

func TestBlockLayout(t *testing.T) {
	b := Block{
		Name: "Globals",
		Size: 48,
		Members: []BlockMember{
			{Name: "color", Type: TypeVec4, Offset: 0},
			{Name: "mvp", Type: TypeMat4, Offset: 16},
			{Name: "weights", Type: TypeFloat, Offset: 32, ArrayStride: 4},
		},
	}
	want := "size=48 { color:vec4@0 mvp:mat4@16 weights:float@32/4 }"
	if got := b.Layout(); got != want {
		t.Errorf("Layout() = %q, want %q", got, want)
	}
}

func TestReflectionBlockLookup(t *testing.T) {
	r := Reflection{Blocks: []Block{{Name: "A"}, {Name: "B", Binding: 1}}}
	b, ok := r.Block("B")
	if !ok || b.Binding != 1 {
		t.Fatalf("Block(B) = %+v, %v", b, ok)
	}
	if _, ok := r.Block("C"); ok {
		t.Error("Block(C) found nonexistent block")
	}
}

func TestValueConstructors(t *testing.T) {
	v := Vec3(1, 2, 3)
	if v.Type != TypeVec3 || v.Floats[2] != 3 {
		t.Errorf("Vec3() = %+v", v)
	}
	m := Mat4([16]float32{0: 1, 5: 1, 10: 1, 15: 1})
	if m.Type != TypeMat4 || m.Floats[15] != 1 {
		t.Errorf("Mat4() = %+v", m)
	}
	i := Int(7)
	if i.Type != TypeInt || i.Ints[0] != 7 {
		t.Errorf("Int() = %+v", i)
	}
}

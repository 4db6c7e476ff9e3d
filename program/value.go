package program

// Value is a literal uniform value. The Floats and Ints arrays are
// sized for the largest supported shape (mat4 and ivec4); how many
// elements are meaningful follows from Type.
type Value struct {
	Type   UniformType
	Floats [16]float32
	Ints   [4]int32
}

// Float wraps a scalar float uniform value.
func Float(v float32) Value {
	return Value{Type: TypeFloat, Floats: [16]float32{v}}
}

// Vec2 wraps a two-component vector.
func Vec2(x, y float32) Value {
	return Value{Type: TypeVec2, Floats: [16]float32{x, y}}
}

// Vec3 wraps a three-component vector.
func Vec3(x, y, z float32) Value {
	return Value{Type: TypeVec3, Floats: [16]float32{x, y, z}}
}

// Vec4 wraps a four-component vector.
func Vec4(x, y, z, w float32) Value {
	return Value{Type: TypeVec4, Floats: [16]float32{x, y, z, w}}
}

// Int wraps a scalar integer.
func Int(v int32) Value {
	return Value{Type: TypeInt, Ints: [4]int32{v}}
}

// Mat4 wraps a column-major 4x4 matrix.
func Mat4(m [16]float32) Value {
	return Value{Type: TypeMat4, Floats: m}
}

// Mat3 wraps a column-major 3x3 matrix.
func Mat3(m [9]float32) Value {
	var out [16]float32
	copy(out[:], m[:])
	return Value{Type: TypeMat3, Floats: out}
}

// Mat2 wraps a column-major 2x2 matrix.
func Mat2(m [4]float32) Value {
	var out [16]float32
	copy(out[:], m[:])
	return Value{Type: TypeMat2, Floats: out}
}

package ranged

import "math"

// Vec3 is a world-space vector. Y is up.
type Vec3 struct {
	X float64 `msgpack:"x" json:"x"`
	Y float64 `msgpack:"y" json:"y"`
	Z float64 `msgpack:"z" json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) LenSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v.LenSq())
}

// Normalize returns the unit vector, or the zero vector for zero input
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Flatten drops the vertical component and renormalizes
func (v Vec3) Flatten() Vec3 {
	return Vec3{X: v.X, Z: v.Z}.Normalize()
}

// Horizontal returns the length of the XZ projection
func (v Vec3) Horizontal() float64 {
	return math.Sqrt(v.X*v.X + v.Z*v.Z)
}

// RotateYaw rotates v around the vertical axis by deg degrees
// (positive turns +X toward -Z, matching a right-handed Y-up frame).
func (v Vec3) RotateYaw(deg float64) Vec3 {
	r := deg * math.Pi / 180
	c, s := math.Cos(r), math.Sin(r)
	return Vec3{
		X: v.X*c + v.Z*s,
		Y: v.Y,
		Z: -v.X*s + v.Z*c,
	}
}

// Pitch lifts a flat unit direction by deg degrees above the horizontal plane
func Pitch(flat Vec3, deg float64) Vec3 {
	r := deg * math.Pi / 180
	h := flat.Flatten()
	return Vec3{
		X: h.X * math.Cos(r),
		Y: math.Sin(r),
		Z: h.Z * math.Cos(r),
	}
}

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

package main

import (
	"math"

	"quiver/ranged"
)

// Combatant hit volume: a sphere centred at chest height
const (
	BodyRadius = 0.9
	BodyHeight = 1.0
)

// CheckCollision checks if two circles on the ground plane overlap
func CheckCollision(x1, z1, r1, x2, z2, r2 float64) bool {
	dx := x2 - x1
	dz := z2 - z1
	radSum := r1 + r2
	return dx*dx+dz*dz <= radSum*radSum
}

// bodyCenter returns the centre of a combatant's hit sphere
func bodyCenter(pos ranged.Vec3) ranged.Vec3 {
	return ranged.Vec3{X: pos.X, Y: pos.Y + BodyHeight, Z: pos.Z}
}

// segmentSphereIntersect checks if the segment a-b passes within r of c
func segmentSphereIntersect(a, b, c ranged.Vec3, r float64) bool {
	d := b.Sub(a)
	f := a.Sub(c)
	qa := d.Dot(d)
	qc := f.Dot(f) - r*r
	if qa == 0 {
		return qc <= 0
	}
	qb := 2 * f.Dot(d)
	discriminant := qb*qb - 4*qa*qc
	if discriminant < 0 {
		return false
	}
	discriminant = math.Sqrt(discriminant)
	t1 := (-qb - discriminant) / (2 * qa)
	t2 := (-qb + discriminant) / (2 * qa)
	return (t1 >= 0 && t1 <= 1) || (t2 >= 0 && t2 <= 1) || (t1 <= 0 && t2 >= 1)
}

// SegmentHitsBody checks whether an arrow moving from prev to cur this tick
// passed through the combatant standing at pos.
func SegmentHitsBody(prev, cur, pos ranged.Vec3) bool {
	return segmentSphereIntersect(prev, cur, bodyCenter(pos), BodyRadius)
}

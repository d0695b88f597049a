package main

import (
	"testing"

	"quiver/ranged"
)

func TestCheckCollision(t *testing.T) {
	// Overlapping circles
	if !CheckCollision(0, 0, 1, 1.5, 0, 1) {
		t.Error("circles should collide (overlapping)")
	}

	// Touching circles
	if !CheckCollision(0, 0, 1, 2, 0, 1) {
		t.Error("circles should collide (touching)")
	}

	// Non-overlapping circles
	if CheckCollision(0, 0, 1, 2.5, 0, 1) {
		t.Error("circles should not collide")
	}
}

func TestSegmentHitsBody(t *testing.T) {
	body := ranged.Vec3{X: 10}

	// Straight through the chest
	if !SegmentHitsBody(ranged.Vec3{X: 8, Y: 1}, ranged.Vec3{X: 12, Y: 1}, body) {
		t.Error("arrow through the chest should hit")
	}

	// Passes well overhead
	if SegmentHitsBody(ranged.Vec3{X: 8, Y: 5}, ranged.Vec3{X: 12, Y: 5}, body) {
		t.Error("arrow overhead should miss")
	}

	// Stops short of the body
	if SegmentHitsBody(ranged.Vec3{X: 2, Y: 1}, ranged.Vec3{X: 8, Y: 1}, body) {
		t.Error("arrow short of the body should miss")
	}

	// Both ends inside the sphere
	if !SegmentHitsBody(ranged.Vec3{X: 9.9, Y: 1}, ranged.Vec3{X: 10.1, Y: 1}, body) {
		t.Error("segment inside the body should hit")
	}
}

func TestSegmentHitsBodyZeroLength(t *testing.T) {
	body := ranged.Vec3{}
	if !SegmentHitsBody(ranged.Vec3{Y: 1}, ranged.Vec3{Y: 1}, body) {
		t.Error("resting point inside the body should hit")
	}
	if SegmentHitsBody(ranged.Vec3{X: 5, Y: 1}, ranged.Vec3{X: 5, Y: 1}, body) {
		t.Error("resting point outside the body should miss")
	}
}

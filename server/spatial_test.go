package main

import "testing"

func hasRef(refs []EntityRef, want EntityRef) bool {
	for _, r := range refs {
		if r == want {
			return true
		}
	}
	return false
}

func TestSpatialGridInsertAndQuery(t *testing.T) {
	grid := NewSpatialGrid(120)

	ref := EntityRef{Kind: 'c', Idx: 0}
	grid.Insert(10, 10, ref)

	if !hasRef(grid.Query(10, 10, 2), ref) {
		t.Error("expected to find entity at (10,10)")
	}
	if hasRef(grid.Query(-50, -50, 2), ref) {
		t.Error("should not find entity at (-50,-50)")
	}
}

func TestSpatialGridClear(t *testing.T) {
	grid := NewSpatialGrid(120)
	grid.Insert(5, 5, EntityRef{Kind: 'c', Idx: 0})
	grid.Clear()

	if results := grid.Query(5, 5, 10); len(results) != 0 {
		t.Errorf("expected 0 results after clear, got %d", len(results))
	}
}

func TestSpatialGridInsertCircle(t *testing.T) {
	grid := NewSpatialGrid(120)
	ref := EntityRef{Kind: 'a', Idx: 0}

	// Segment bounding circle spanning two cells
	grid.InsertCircle(3, 0, 3, ref)

	if !hasRef(grid.Query(0.5, 0, 0.1), ref) {
		t.Error("expected to find circle entity near its left edge")
	}
	if !hasRef(grid.Query(5.5, 0, 0.1), ref) {
		t.Error("expected to find circle entity near its right edge")
	}
}

func TestSpatialGridBoundaryClamp(t *testing.T) {
	grid := NewSpatialGrid(60)

	low := EntityRef{Kind: 'c', Idx: 0}
	grid.Insert(-500, -500, low)
	if !hasRef(grid.Query(-30, -30, 1), low) {
		t.Error("expected to find entity inserted beyond the low edge")
	}

	high := EntityRef{Kind: 'c', Idx: 1}
	grid.Insert(500, 500, high)
	if !hasRef(grid.Query(30, 30, 1), high) {
		t.Error("expected to find entity inserted beyond the high edge")
	}
}

func TestSpatialGridQueryBufReusesBuffer(t *testing.T) {
	grid := NewSpatialGrid(60)
	grid.Insert(0, 0, EntityRef{Kind: 'c', Idx: 3})

	buf := make([]EntityRef, 0, 8)
	buf = grid.QueryBuf(0, 0, 1, buf[:0])
	if len(buf) != 1 || buf[0].Idx != 3 {
		t.Fatalf("QueryBuf = %v", buf)
	}
	buf = grid.QueryBuf(0, 0, 1, buf[:0])
	if len(buf) != 1 {
		t.Errorf("reused buffer should hold one ref, got %d", len(buf))
	}
}

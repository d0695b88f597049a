package main

import "math"

const SpatialCellSize = 8.0 // metres, a few body widths

// EntityRef identifies an entity in the grid
type EntityRef struct {
	Kind byte // 'c'=combatant, 'a'=arrow
	Idx  int  // index into the corresponding flat list
}

// SpatialGrid is a grid over the arena's ground plane for broad-phase
// hit queries. Positions outside the arena clamp to the edge cells.
type SpatialGrid struct {
	origin float64
	cols   int
	cells  [][]EntityRef
}

// NewSpatialGrid covers a square arena of the given side centred on the origin
func NewSpatialGrid(arenaSize float64) *SpatialGrid {
	cols := int(math.Ceil(arenaSize/SpatialCellSize)) + 1
	if cols < 1 {
		cols = 1
	}
	return &SpatialGrid{
		origin: -arenaSize / 2,
		cols:   cols,
		cells:  make([][]EntityRef, cols*cols),
	}
}

// Clear resets all cells (keeps allocated capacity)
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *SpatialGrid) cell(v float64) int {
	c := int(math.Floor((v - g.origin) / SpatialCellSize))
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

// Insert adds an entity reference at the given position
func (g *SpatialGrid) Insert(x, z float64, ref EntityRef) {
	idx := g.cell(z)*g.cols + g.cell(x)
	g.cells[idx] = append(g.cells[idx], ref)
}

// InsertCircle adds an entity reference to all cells overlapping its bounding box
func (g *SpatialGrid) InsertCircle(x, z, radius float64, ref EntityRef) {
	for cz := g.cell(z - radius); cz <= g.cell(z+radius); cz++ {
		for cx := g.cell(x - radius); cx <= g.cell(x+radius); cx++ {
			idx := cz*g.cols + cx
			g.cells[idx] = append(g.cells[idx], ref)
		}
	}
}

// QueryBuf appends the refs in cells overlapping the bounding box to buf
// and returns the extended slice, avoiding per-call allocation
func (g *SpatialGrid) QueryBuf(x, z, radius float64, buf []EntityRef) []EntityRef {
	for cz := g.cell(z - radius); cz <= g.cell(z+radius); cz++ {
		for cx := g.cell(x - radius); cx <= g.cell(x+radius); cx++ {
			buf = append(buf, g.cells[cz*g.cols+cx]...)
		}
	}
	return buf
}

// Query returns all entity refs in cells that overlap the given bounding box
func (g *SpatialGrid) Query(x, z, radius float64) []EntityRef {
	return g.QueryBuf(x, z, radius, nil)
}

package world

import (
	"math"

	"github.com/l1jgo/objectd/internal/core/ecs"
)

// AOIGrid implements a cell-based Area of Interest index for the objects
// of one map. Cell size equals the visibility range so that a 3x3
// neighbourhood of cells fully covers it.
// Accessed only from the map goroutine, so it takes no locks.

const cellSize = 100

// visibilityRange is the distance within which viewers track an object.
const visibilityRange float32 = cellSize

type cellKey struct {
	cx int32
	cy int32
}

func toCellCoord(v float32) int32 {
	return int32(math.Floor(float64(v) / cellSize))
}

type AOIGrid struct {
	cells map[cellKey]map[ecs.EntityID]struct{}
}

func NewAOIGrid() *AOIGrid {
	return &AOIGrid{
		cells: make(map[cellKey]map[ecs.EntityID]struct{}),
	}
}

func (g *AOIGrid) key(p Position) cellKey {
	return cellKey{cx: toCellCoord(p.X), cy: toCellCoord(p.Y)}
}

// Add places an object into the grid.
func (g *AOIGrid) Add(id ecs.EntityID, p Position) {
	k := g.key(p)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes an object out of the grid.
func (g *AOIGrid) Remove(id ecs.EntityID, p Position) {
	k := g.key(p)
	cell := g.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an object's cell when its position changes.
func (g *AOIGrid) Move(id ecs.EntityID, from, to Position) {
	if g.key(from) == g.key(to) {
		return
	}
	g.Remove(id, from)
	g.Add(id, to)
}

// GetNearby returns all object ids in the cells overlapping a square of
// half-width radius around p. Caller does fine-grained distance filtering.
func (g *AOIGrid) GetNearby(p Position, radius float32) []ecs.EntityID {
	span := int32(math.Ceil(float64(radius) / cellSize))
	if span < 1 {
		span = 1
	}
	c := g.key(p)
	var result []ecs.EntityID
	for dx := -span; dx <= span; dx++ {
		for dy := -span; dy <= span; dy++ {
			for id := range g.cells[cellKey{cx: c.cx + dx, cy: c.cy + dy}] {
				result = append(result, id)
			}
		}
	}
	return result
}

// gridHint packs the cell of p for ledger bookkeeping.
func gridHint(p Position) uint32 {
	cx := uint32(toCellCoord(p.X)) & 0xFFFF
	cy := uint32(toCellCoord(p.Y)) & 0xFFFF
	return cx<<16 | cy
}

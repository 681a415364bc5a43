// Package spatial partitions world space into fixed-size cubic cells and answers
// cell and range queries over entity IDs.
//
// A Grid is owned by one instance and is only accessed from the simulation goroutine, so it has no locks.
package spatial

import (
	"fmt"
	"math"

	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/consts"
	"github.com/xiaonanln/gwsim/engine/simerr"
)

// CellKey identifies a cubic cell by its integer coordinate triple
type CellKey struct {
	X int32 `json:"x" msgpack:"x"`
	Y int32 `json:"y" msgpack:"y"`
	Z int32 `json:"z" msgpack:"z"`
}

func (k CellKey) String() string {
	return fmt.Sprintf("<%d,%d,%d>", k.X, k.Y, k.Z)
}

type gridEntry struct {
	pos  common.Vector3
	cell CellKey
}

// Grid is a uniform cell grid over entity positions
type Grid struct {
	cellSize    float64
	invCellSize float64
	cells       map[CellKey]common.EntityIDSet
	entries     map[common.EntityID]*gridEntry
}

// NewGrid creates a Grid with the specified cell size, using the default cell size if cellSize <= 0
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = consts.DEFAULT_CELL_SIZE
	}
	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       map[CellKey]common.EntityIDSet{},
		entries:     map[common.EntityID]*gridEntry{},
	}
}

// CellSize returns the edge length of cells
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// CellOf returns the key of the cell containing pos
//
// Coordinates are floored, so (-0.5, 0, 0) belongs to cell <-1,0,0>
func (g *Grid) CellOf(pos common.Vector3) CellKey {
	return CellKey{
		X: g.toCellCoord(pos.X),
		Y: g.toCellCoord(pos.Y),
		Z: g.toCellCoord(pos.Z),
	}
}

func (g *Grid) toCellCoord(v common.Coord) int32 {
	c := math.Floor(v * g.invCellSize)
	if c > math.MaxInt32 {
		return math.MaxInt32
	} else if c < math.MinInt32 {
		return math.MinInt32
	}
	return int32(c)
}

// Insert adds the entity at pos. Inserting an entity that is already in the grid moves it.
func (g *Grid) Insert(id common.EntityID, pos common.Vector3) {
	if entry, ok := g.entries[id]; ok {
		g.move(id, entry, pos)
		return
	}

	cell := g.CellOf(pos)
	g.entries[id] = &gridEntry{pos: pos, cell: cell}
	g.addToCell(id, cell)
}

// Remove takes the entity out of the grid
//
// Removing an entity that is not in the grid is a no-op
func (g *Grid) Remove(id common.EntityID) {
	entry, ok := g.entries[id]
	if !ok {
		return
	}
	g.delFromCell(id, entry.cell)
	delete(g.entries, id)
}

// Move updates the position of the entity, hopping cells if necessary
func (g *Grid) Move(id common.EntityID, newPos common.Vector3) error {
	entry, ok := g.entries[id]
	if !ok {
		return simerr.NotFound("spatial: move %s", id)
	}
	g.move(id, entry, newPos)
	return nil
}

func (g *Grid) move(id common.EntityID, entry *gridEntry, newPos common.Vector3) {
	entry.pos = newPos
	newCell := g.CellOf(newPos)
	if newCell == entry.cell {
		return
	}
	g.delFromCell(id, entry.cell)
	entry.cell = newCell
	g.addToCell(id, newCell)
}

func (g *Grid) addToCell(id common.EntityID, cell CellKey) {
	ids := g.cells[cell]
	if ids == nil {
		ids = common.EntityIDSet{}
		g.cells[cell] = ids
	}
	ids.Add(id)
}

func (g *Grid) delFromCell(id common.EntityID, cell CellKey) {
	ids := g.cells[cell]
	if ids == nil {
		return
	}
	ids.Del(id)
	if len(ids) == 0 {
		delete(g.cells, cell)
	}
}

// Lookup returns the indexed position and cell of the entity
func (g *Grid) Lookup(id common.EntityID) (pos common.Vector3, cell CellKey, ok bool) {
	entry, ok := g.entries[id]
	if !ok {
		return
	}
	return entry.pos, entry.cell, true
}

// Contains returns if the entity is in the grid
func (g *Grid) Contains(id common.EntityID) bool {
	_, ok := g.entries[id]
	return ok
}

// QueryCell returns a copy of the set of entities in the cell
func (g *Grid) QueryCell(key CellKey) common.EntityIDSet {
	ids := g.cells[key]
	if ids == nil {
		return common.EntityIDSet{}
	}
	return ids.Copy()
}

// CellLen returns the number of entities in the cell
func (g *Grid) CellLen(key CellKey) int {
	return len(g.cells[key])
}

// QueryRadius returns the entities whose distance to center is at most radius, in ascending ID order
//
// Only cells overlapping the bounding cube of the sphere are visited. When the cube spans more cells than are
// occupied, the occupied cells are walked and filtered by the cube instead, so the cost is bounded by the
// smaller of the two.
func (g *Grid) QueryRadius(center common.Vector3, radius float64) []common.EntityID {
	if radius < 0 || math.IsNaN(radius) {
		return nil
	}

	minCell := g.CellOf(common.Vector3{X: center.X - radius, Y: center.Y - radius, Z: center.Z - radius})
	maxCell := g.CellOf(common.Vector3{X: center.X + radius, Y: center.Y + radius, Z: center.Z + radius})
	radiusSq := radius * radius

	var result []common.EntityID
	visit := func(key CellKey, ids common.EntityIDSet) {
		// clamped cells hold positions beyond their bounds, so only the exact distance check applies
		if !key.isClamped() && g.cellDistSq(key, center) > radiusSq {
			return
		}
		for id := range ids {
			if g.entries[id].pos.DistanceSqTo(center) <= radiusSq {
				result = append(result, id)
			}
		}
	}

	span := (int64(maxCell.X) - int64(minCell.X) + 1) * (int64(maxCell.Y) - int64(minCell.Y) + 1) * (int64(maxCell.Z) - int64(minCell.Z) + 1)
	if span > int64(len(g.cells)) {
		// the bounding box covers more cells than are occupied, so walk the occupied ones
		for key, ids := range g.cells {
			if key.X >= minCell.X && key.X <= maxCell.X && key.Y >= minCell.Y && key.Y <= maxCell.Y && key.Z >= minCell.Z && key.Z <= maxCell.Z {
				visit(key, ids)
			}
		}
	} else {
		// int64 counters, cell coords are clamped to the int32 range
		for x := int64(minCell.X); x <= int64(maxCell.X); x++ {
			for y := int64(minCell.Y); y <= int64(maxCell.Y); y++ {
				for z := int64(minCell.Z); z <= int64(maxCell.Z); z++ {
					key := CellKey{int32(x), int32(y), int32(z)}
					if ids := g.cells[key]; ids != nil {
						visit(key, ids)
					}
				}
			}
		}
	}

	common.SortEntityIDs(result)
	return result
}

func (k CellKey) isClamped() bool {
	return k.X == math.MaxInt32 || k.X == math.MinInt32 ||
		k.Y == math.MaxInt32 || k.Y == math.MinInt32 ||
		k.Z == math.MaxInt32 || k.Z == math.MinInt32
}

// cellDistSq returns the squared distance from p to the closest point of the cell
func (g *Grid) cellDistSq(key CellKey, p common.Vector3) float64 {
	axis := func(c int32, v float64) float64 {
		lo := float64(c) * g.cellSize
		hi := lo + g.cellSize
		if v < lo {
			return lo - v
		} else if v > hi {
			return v - hi
		}
		return 0
	}
	dx, dy, dz := axis(key.X, p.X), axis(key.Y, p.Y), axis(key.Z, p.Z)
	return dx*dx + dy*dy + dz*dz
}

// Len returns the number of entities in the grid
func (g *Grid) Len() int {
	return len(g.entries)
}

// CellCount returns the number of occupied cells
func (g *Grid) CellCount() int {
	return len(g.cells)
}

// Cells returns the entity count of every occupied cell
func (g *Grid) Cells() map[CellKey]int {
	cells := make(map[CellKey]int, len(g.cells))
	for key, ids := range g.cells {
		cells[key] = len(ids)
	}
	return cells
}

// ForEachCell visits every occupied cell. The visitor must not modify the grid.
func (g *Grid) ForEachCell(f func(key CellKey, count int)) {
	for key, ids := range g.cells {
		f(key, len(ids))
	}
}

// Clear removes all entities
func (g *Grid) Clear() {
	g.cells = map[CellKey]common.EntityIDSet{}
	g.entries = map[common.EntityID]*gridEntry{}
}

// Verify checks that every entry is a member of exactly the cell derived from its position
func (g *Grid) Verify() error {
	total := 0
	for key, ids := range g.cells {
		if len(ids) == 0 {
			return simerr.InvariantViolation("spatial: empty cell %s retained", key)
		}
		for id := range ids {
			entry, ok := g.entries[id]
			if !ok {
				return simerr.InvariantViolation("spatial: orphan %s in cell %s", id, key)
			}
			if entry.cell != key {
				return simerr.InvariantViolation("spatial: %s is in cell %s but indexed at %s", id, key, entry.cell)
			}
		}
		total += len(ids)
	}
	if total != len(g.entries) {
		return simerr.InvariantViolation("spatial: %d cell memberships for %d entries", total, len(g.entries))
	}
	for id, entry := range g.entries {
		if derived := g.CellOf(entry.pos); derived != entry.cell {
			return simerr.InvariantViolation("spatial: %s at %s should be in cell %s, not %s", id, entry.pos, derived, entry.cell)
		}
	}
	return nil
}
